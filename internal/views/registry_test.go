package views

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/index"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
	"github.com/MrSnakeDoc/sitewatch/internal/poller"
	"github.com/MrSnakeDoc/sitewatch/internal/probe"
)

func testRoster() *index.MemoryIndex {
	idx := index.NewMemoryIndex()
	idx.UpdateClients([]*domain.Client{
		{
			Slug: "acme",
			Name: "ACME",
			Sites: []*domain.MonitoredSite{
				{Slug: "www", ClientSlug: "acme", Name: "ACME", URL: "https://acme.test", Token: "t1"},
				{Slug: "blog", ClientSlug: "acme", Name: "Blog", URL: "https://blog.acme.test", Token: "t2"},
			},
		},
		{
			Slug: "globex",
			Name: "Globex",
			Sites: []*domain.MonitoredSite{
				{Slug: "shop", ClientSlug: "globex", Name: "Shop", URL: "https://shop.globex.test", Token: "t3"},
			},
		},
		{Slug: "empty", Name: "Empty"},
	})
	return idx
}

func slowSettings() Settings {
	return Settings{
		Detail:    poller.SiteLoopConfig{Interval: time.Hour, Capacity: 60, TrackDowntime: true},
		Compact:   poller.SiteLoopConfig{Interval: time.Hour, Capacity: 20},
		Aggregate: poller.AggregateConfig{Interval: time.Hour},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	online := probe.ProberFunc(func(context.Context, string, string) domain.Status {
		return domain.StatusOnline
	})
	r := NewRegistry(context.Background(), testRoster(), online, logger.Nop(), slowSettings())
	t.Cleanup(r.Close)
	return r
}

func TestMountKinds(t *testing.T) {
	tests := []struct {
		name      string
		req       MountRequest
		sites     int
		bins      int
		aggregate bool
	}{
		{name: "site", req: MountRequest{Kind: KindSite, Client: "acme", Site: "blog"}, sites: 1, bins: 60},
		{name: "client", req: MountRequest{Kind: KindClient, Client: "acme"}, sites: 2, bins: 20, aggregate: true},
		{name: "fleet", req: MountRequest{Kind: KindFleet}, sites: 3, bins: 20, aggregate: true},
		{name: "client without sites", req: MountRequest{Kind: KindClient, Client: "empty"}, sites: 0, aggregate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t)

			v, err := r.Mount(tt.req)
			if err != nil {
				t.Fatalf("Mount() error = %v", err)
			}
			if v.ID == "" {
				t.Error("Mount() returned an empty view ID")
			}

			st, err := r.Get(v.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if len(st.Sites) != tt.sites {
				t.Fatalf("len(Sites) = %d, want %d", len(st.Sites), tt.sites)
			}
			for _, s := range st.Sites {
				if len(s.Bins) != tt.bins {
					t.Errorf("site %s has %d bins, want %d", s.ID, len(s.Bins), tt.bins)
				}
			}
			if (st.Aggregate != nil) != tt.aggregate {
				t.Errorf("Aggregate present = %v, want %v", st.Aggregate != nil, tt.aggregate)
			}
		})
	}
}

func TestMountErrors(t *testing.T) {
	tests := []struct {
		name string
		req  MountRequest
		want error
	}{
		{name: "unknown kind", req: MountRequest{Kind: "dashboard"}, want: ErrInvalidKind},
		{name: "unknown client", req: MountRequest{Kind: KindClient, Client: "nobody"}, want: ErrClientNotFound},
		{name: "site of unknown client", req: MountRequest{Kind: KindSite, Client: "nobody", Site: "www"}, want: ErrClientNotFound},
		{name: "unknown site", req: MountRequest{Kind: KindSite, Client: "acme", Site: "shop"}, want: ErrSiteNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t)
			if _, err := r.Mount(tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Mount() error = %v, want %v", err, tt.want)
			}
			if r.Count() != 0 {
				t.Errorf("Count() = %d after failed mount, want 0", r.Count())
			}
		})
	}
}

func TestMountRecordsFirstTick(t *testing.T) {
	r := newTestRegistry(t)
	v, err := r.Mount(MountRequest{Kind: KindClient, Client: "acme"})
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, _ := r.Get(v.ID)
		done := !st.Aggregate.Loading
		for _, s := range st.Sites {
			done = done && s.Current == domain.StatusOnline
		}
		if done {
			if st.Aggregate.Online != 2 || !st.Aggregate.Conserved() {
				t.Errorf("Aggregate = %+v, want 2 online", st.Aggregate.AggregateSnapshot)
			}
			if st.Aggregate.UptimePercent != 100 || st.Aggregate.Bar.Critical {
				t.Errorf("Aggregate bar = %+v", st.Aggregate.Bar)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("immediate ticks never landed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUnmountStopsLoops(t *testing.T) {
	r := newTestRegistry(t)
	v, err := r.Mount(MountRequest{Kind: KindFleet})
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}

	if err := r.Unmount(v.ID); err != nil {
		t.Fatalf("Unmount() error = %v", err)
	}
	for _, l := range v.sites {
		if l.State().Active {
			t.Error("site loop still active after Unmount")
		}
	}
	if v.aggregate.Active() {
		t.Error("aggregate loop still active after Unmount")
	}

	if _, err := r.Get(v.ID); !errors.Is(err, ErrViewNotFound) {
		t.Errorf("Get() after Unmount error = %v, want ErrViewNotFound", err)
	}
	if err := r.Unmount(v.ID); !errors.Is(err, ErrViewNotFound) {
		t.Errorf("second Unmount() error = %v, want ErrViewNotFound", err)
	}
}

func TestMountCapturesRoster(t *testing.T) {
	idx := testRoster()
	r := NewRegistry(context.Background(), idx, probe.ProberFunc(func(context.Context, string, string) domain.Status {
		return domain.StatusOffline
	}), logger.Nop(), slowSettings())
	defer r.Close()

	v, err := r.Mount(MountRequest{Kind: KindFleet})
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}

	idx.UpdateClients(nil)

	st, err := r.Get(v.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(st.Sites) != 3 || st.Aggregate.Total != 3 {
		t.Errorf("view changed after roster reload: %d sites, total %d", len(st.Sites), st.Aggregate.Total)
	}
}

func TestReap(t *testing.T) {
	r := newTestRegistry(t)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	idle, _ := r.Mount(MountRequest{Kind: KindFleet})
	busy, _ := r.Mount(MountRequest{Kind: KindSite, Client: "acme", Site: "www"})

	r.now = func() time.Time { return base.Add(90 * time.Second) }
	if _, err := r.Get(busy.ID); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	reaped := r.Reap(base.Add(2*time.Minute+time.Second), 2*time.Minute)
	if reaped != 1 {
		t.Fatalf("Reap() = %d, want 1", reaped)
	}
	if _, err := r.Get(idle.ID); !errors.Is(err, ErrViewNotFound) {
		t.Error("idle view survived Reap()")
	}
	if _, err := r.Get(busy.ID); err != nil {
		t.Error("recently read view was reaped")
	}
	if idle.sites[0].State().Active {
		t.Error("reaped view loops still active")
	}
}

func TestClose(t *testing.T) {
	r := newTestRegistry(t)
	v, _ := r.Mount(MountRequest{Kind: KindClient, Client: "globex"})

	r.Close()

	if r.Count() != 0 {
		t.Errorf("Count() after Close = %d, want 0", r.Count())
	}
	if v.aggregate.Active() {
		t.Error("aggregate loop active after Close")
	}
	if _, err := r.Mount(MountRequest{Kind: KindFleet}); !errors.Is(err, ErrClosed) {
		t.Errorf("Mount() after Close error = %v, want ErrClosed", err)
	}
}

func TestSiteViewFields(t *testing.T) {
	r := newTestRegistry(t)
	v, _ := r.Mount(MountRequest{Kind: KindSite, Client: "acme", Site: "www"})

	st, _ := r.Get(v.ID)
	s := st.Sites[0]
	if s.ID != "acme/www" || s.URL != "https://acme.test" || s.Name != "ACME" {
		t.Errorf("SiteView = %+v", s)
	}
}
