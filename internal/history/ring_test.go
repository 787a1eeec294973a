package history

import (
	"testing"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
)

func sample(i int, status domain.Status) domain.PingSample {
	return domain.PingSample{
		Status: status,
		At:     time.Unix(int64(i), 0),
	}
}

func TestNewRingClampsCapacity(t *testing.T) {
	for _, c := range []int{-5, 0} {
		if got := New(c).Cap(); got != 1 {
			t.Errorf("New(%d).Cap() = %d, want 1", c, got)
		}
	}
	if got := New(DetailCapacity).Cap(); got != 60 {
		t.Errorf("New(DetailCapacity).Cap() = %d, want 60", got)
	}
}

func TestRingBelowCapacity(t *testing.T) {
	r := New(5)
	for i := 0; i < 3; i++ {
		r.Append(sample(i, domain.StatusOnline))
	}

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	got := r.Samples()
	for i, s := range got {
		if s.At.Unix() != int64(i) {
			t.Errorf("Samples()[%d] = sample %d, want %d", i, s.At.Unix(), i)
		}
	}
}

func TestRingSlidingWindow(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		appends  int
	}{
		{name: "one over", capacity: 5, appends: 6},
		{name: "many laps", capacity: 3, appends: 17},
		{name: "detail window", capacity: DetailCapacity, appends: 150},
		{name: "compact window", capacity: CompactCapacity, appends: 21},
		{name: "single slot", capacity: 1, appends: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.capacity)
			for i := 0; i < tt.appends; i++ {
				r.Append(sample(i, domain.StatusOnline))

				if r.Len() > tt.capacity {
					t.Fatalf("Len() = %d exceeds capacity %d", r.Len(), tt.capacity)
				}
			}

			got := r.Samples()
			if len(got) != tt.capacity {
				t.Fatalf("len(Samples()) = %d, want %d", len(got), tt.capacity)
			}
			// buffer[0] is the sample that arrived at index N-C
			first := int64(tt.appends - tt.capacity)
			if got[0].At.Unix() != first {
				t.Errorf("Samples()[0] = sample %d, want %d", got[0].At.Unix(), first)
			}
			for i := 1; i < len(got); i++ {
				if got[i].At.Unix() != got[i-1].At.Unix()+1 {
					t.Errorf("Samples() not in arrival order at %d", i)
				}
			}
		})
	}
}

func TestRingSamplesIsCopy(t *testing.T) {
	r := New(3)
	r.Append(sample(1, domain.StatusOnline))

	got := r.Samples()
	got[0].Status = domain.StatusOffline

	if r.Samples()[0].Status != domain.StatusOnline {
		t.Error("mutating Samples() result changed the ring")
	}
}

func TestRingLast(t *testing.T) {
	r := New(2)
	if _, ok := r.Last(); ok {
		t.Error("Last() on empty ring should report false")
	}

	r.Append(sample(1, domain.StatusOnline))
	r.Append(sample(2, domain.StatusOffline))
	r.Append(sample(3, domain.StatusOnline))

	last, ok := r.Last()
	if !ok || last.At.Unix() != 3 {
		t.Errorf("Last() = %v, %v, want sample 3", last.At.Unix(), ok)
	}
}

func TestSummarize(t *testing.T) {
	samples := []domain.PingSample{
		sample(0, domain.StatusOnline),
		sample(1, domain.StatusOnline),
		sample(2, domain.StatusOffline),
		sample(3, domain.StatusOnline),
		sample(4, domain.StatusPending),
	}

	st := Summarize(samples)
	if st.Online != 3 || st.Offline != 1 || st.Total != 4 {
		t.Errorf("Summarize() = %+v, want 3/1/4", st)
	}
	if st.UptimePercent != 75.0 {
		t.Errorf("UptimePercent = %v, want 75.0", st.UptimePercent)
	}

	empty := Summarize(nil)
	if empty.Total != 0 || empty.UptimePercent != 0 {
		t.Errorf("Summarize(nil) = %+v, want zero", empty)
	}
}
