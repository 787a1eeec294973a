package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitewatch/internal/index"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
	"github.com/MrSnakeDoc/sitewatch/internal/poller"
	"github.com/MrSnakeDoc/sitewatch/internal/probe"
	"github.com/MrSnakeDoc/sitewatch/internal/telemetry"
	"github.com/MrSnakeDoc/sitewatch/internal/views"
)

const pluginReport = `{"sistema": {"nome_site": "ACME", "php": "8.3"}, "backup": {"ativo": true}}`

// pluginServer answers the status plugin route for token "good" only.
func pluginServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != probe.CheckPath || r.Header.Get(probe.TokenHeader) != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pluginReport))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	router  http.Handler
	deps    deps.Deps
	idx     *index.MemoryIndex
	views   *views.Registry
	trigger chan struct{}
}

func newTestEnv(t *testing.T, mutate func(*deps.Deps)) *testEnv {
	t.Helper()
	plugin := pluginServer(t)

	idx := index.NewMemoryIndex()
	idx.UpdateClients([]*domain.Client{
		{
			Slug: "acme",
			Name: "ACME",
			Sites: []*domain.MonitoredSite{
				{Slug: "www", ClientSlug: "acme", Name: "ACME", URL: plugin.URL, Token: "good"},
				{Slug: "legacy", ClientSlug: "acme", Name: "Legacy", URL: plugin.URL, Token: "bad"},
			},
		},
	})

	prober := probe.NewHTTPProber(time.Second, logger.Nop())
	registry := views.NewRegistry(context.Background(), idx, prober, logger.Nop(), views.Settings{
		Detail:    poller.SiteLoopConfig{Interval: time.Hour, Capacity: 60, TrackDowntime: true},
		Compact:   poller.SiteLoopConfig{Interval: time.Hour, Capacity: 20},
		Aggregate: poller.AggregateConfig{Interval: time.Hour},
	})
	t.Cleanup(registry.Close)

	trigger := make(chan struct{}, 1)
	d := deps.Deps{
		Logger:          logger.Nop(),
		StartTime:       time.Now().Add(-time.Minute),
		Version:         "test",
		TimeNow:         time.Now,
		RosterSource:    "file",
		MemoryIndex:     idx,
		Views:           registry,
		Prober:          prober,
		Telemetry:       telemetry.NewClient(time.Second, nil, 0, logger.Nop()),
		CheckRateBurst:  100,
		CheckRatePerMin: 100,
		ReloadTrigger:   trigger,
	}
	if mutate != nil {
		mutate(&d)
	}

	return &testEnv{
		router:  NewRouter(5*time.Second, logger.Nop(), d),
		deps:    d,
		idx:     idx,
		views:   registry,
		trigger: trigger,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if up, _ := body["uptime_seconds"].(float64); up < 59 {
		t.Errorf("uptime_seconds = %v, want about 60", body["uptime_seconds"])
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t, nil)
	if rec := env.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("loaded roster: status = %d, want 200", rec.Code)
	}

	empty := newTestEnv(t, func(d *deps.Deps) { d.MemoryIndex = index.NewMemoryIndex() })
	rec := empty.do(t, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("no roster: status = %d, want 503", rec.Code)
	}
	if body := decode[map[string]bool](t, rec); body["ready"] {
		t.Error("ready = true before the first load")
	}
}

func TestInfraWithoutRedis(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/infra", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Mode       string `json:"mode"`
		Components map[string]struct {
			OK    bool   `json:"ok"`
			Mode  string `json:"mode"`
			Sites *int   `json:"sites"`
		} `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Mode != "nominal" {
		t.Errorf("mode = %q, want nominal with redis disabled", body.Mode)
	}
	if r := body.Components["redis"]; r.OK || r.Mode != "disabled" {
		t.Errorf("redis component = %+v", r)
	}
	if r := body.Components["roster"]; !r.OK || r.Sites == nil || *r.Sites != 2 {
		t.Errorf("roster component = %+v", r)
	}
}

func TestInfraCriticalWithoutSites(t *testing.T) {
	env := newTestEnv(t, func(d *deps.Deps) { d.MemoryIndex = index.NewMemoryIndex() })
	body := decode[map[string]any](t, env.do(t, http.MethodGet, "/infra", ""))
	if body["mode"] != "critical" {
		t.Errorf("mode = %v, want critical", body["mode"])
	}
}

func TestAdminRoutesRestricted(t *testing.T) {
	env := newTestEnv(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
	})

	// httptest requests come from 192.0.2.1
	for _, path := range []string{"/infra", "/readyz"} {
		if rec := env.do(t, http.MethodGet, path, ""); rec.Code != http.StatusForbidden {
			t.Errorf("GET %s status = %d, want 403", path, rec.Code)
		}
	}
	if rec := env.do(t, http.MethodPost, "/reload", ""); rec.Code != http.StatusForbidden {
		t.Errorf("POST /reload status = %d, want 403", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz status = %d, want 200", rec.Code)
	}
}

func TestReload(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/reload", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first reload: status = %d, want 202", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/reload", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("pending reload: status = %d, want 429", rec.Code)
	}

	<-env.trigger
	if rec := env.do(t, http.MethodPost, "/reload", ""); rec.Code != http.StatusAccepted {
		t.Errorf("after drain: status = %d, want 202", rec.Code)
	}
}

func TestCheckStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	site, _ := env.idx.GetSite("acme", "www")

	tests := []struct {
		name string
		body string
		want domain.Status
	}{
		{name: "valid token", body: `{"url":"` + site.URL + `","token":"good"}`, want: domain.StatusOnline},
		{name: "rejected token", body: `{"url":"` + site.URL + `","token":"bad"}`, want: domain.StatusOffline},
		{name: "malformed body", body: `{"url":`, want: domain.StatusOffline},
		{name: "empty body", body: ``, want: domain.StatusOffline},
		{name: "missing url", body: `{"token":"good"}`, want: domain.StatusOffline},
		{name: "non http scheme", body: `{"url":"file:///etc/passwd","token":"good"}`, want: domain.StatusOffline},
		{name: "unreachable", body: `{"url":"http://127.0.0.1:1","token":"good"}`, want: domain.StatusOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/check-status", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if got := decode[probe.CheckResponse](t, rec); got.Status != tt.want {
				t.Errorf("status field = %q, want %q", got.Status, tt.want)
			}
		})
	}
}

func TestCheckStatusThrottledStays200(t *testing.T) {
	env := newTestEnv(t, func(d *deps.Deps) {
		d.CheckRateBurst = 1
		d.CheckRatePerMin = 1
	})
	site, _ := env.idx.GetSite("acme", "www")
	body := `{"url":"` + site.URL + `","token":"good"}`

	first := env.do(t, http.MethodPost, "/api/check-status", body)
	if got := decode[probe.CheckResponse](t, first); got.Status != domain.StatusOnline {
		t.Fatalf("first check = %q, want online", got.Status)
	}

	second := env.do(t, http.MethodPost, "/api/check-status", body)
	if second.Code != http.StatusOK {
		t.Errorf("throttled status = %d, want 200", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("throttled response has no Retry-After")
	}
	if got := decode[probe.CheckResponse](t, second); got.Status != domain.StatusOffline {
		t.Errorf("throttled check = %q, want offline", got.Status)
	}
}

func TestClientsListingOmitsTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/clients", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "good") || strings.Contains(rec.Body.String(), "token") {
		t.Errorf("listing leaks credentials: %s", rec.Body.String())
	}

	var body struct {
		Clients []struct {
			Slug  string `json:"slug"`
			Sites []struct {
				ID string `json:"id"`
			} `json:"sites"`
		} `json:"clients"`
		Sites int `json:"sites"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Clients) != 1 || body.Sites != 2 || body.Clients[0].Sites[0].ID != "acme/www" {
		t.Errorf("body = %+v", body)
	}
}

func TestViewLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/views", `{"kind":"client","client":"acme"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("mount status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	mounted := decode[views.ViewState](t, rec)
	if mounted.ID == "" || len(mounted.Sites) != 2 || mounted.Aggregate == nil {
		t.Fatalf("mounted = %+v", mounted)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/views/"+mounted.ID {
		t.Errorf("Location = %q", loc)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		st := decode[views.ViewState](t, env.do(t, http.MethodGet, "/api/views/"+mounted.ID, ""))
		if !st.Aggregate.Loading && st.Sites[0].Current != domain.StatusPending && st.Sites[1].Current != domain.StatusPending {
			if st.Aggregate.Online != 1 || st.Aggregate.Offline != 1 {
				t.Errorf("aggregate = %+v, want 1 online 1 offline", st.Aggregate.AggregateSnapshot)
			}
			if !st.Aggregate.Bar.Critical {
				t.Error("bar should be critical with an offline site")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first ticks never landed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if rec := env.do(t, http.MethodDelete, "/api/views/"+mounted.ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("unmount status = %d, want 204", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/views/"+mounted.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after unmount status = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/views/"+mounted.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second unmount status = %d, want 404", rec.Code)
	}
}

func TestMountErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "malformed", body: `{"kind":`, want: http.StatusBadRequest},
		{name: "unknown kind", body: `{"kind":"wall"}`, want: http.StatusBadRequest},
		{name: "unknown client", body: `{"kind":"client","client":"nobody"}`, want: http.StatusNotFound},
		{name: "unknown site", body: `{"kind":"site","client":"acme","site":"shop"}`, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/views", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if body := decode[map[string]string](t, rec); body["error"] == "" {
				t.Errorf("error body = %v", body)
			}
		})
	}
	if env.views.Count() != 0 {
		t.Errorf("Count() = %d after failed mounts, want 0", env.views.Count())
	}
}

func TestReport(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/clients/acme/sites/www/report", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	report := decode[telemetry.Report](t, rec)
	if report.System.SiteName != "ACME" || report.System.PHPVersion != "8.3" || !report.Backup.Active {
		t.Errorf("report = %+v", report)
	}
	if report.System.WPVersion != telemetry.Unknown {
		t.Errorf("WPVersion = %q, want %q", report.System.WPVersion, telemetry.Unknown)
	}

	if rec := env.do(t, http.MethodGet, "/api/clients/acme/sites/legacy/report", ""); rec.Code != http.StatusBadGateway {
		t.Errorf("upstream failure status = %d, want 502", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/clients/acme/sites/nope/report", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown site status = %d, want 404", rec.Code)
	}
}
