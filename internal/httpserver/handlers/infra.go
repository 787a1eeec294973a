package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/deps"
)

type componentStatus struct {
	OK           bool   `json:"ok"`
	Source       string `json:"source,omitempty"`
	ClientsCount *int   `json:"clients,omitempty"`
	SitesCount   *int   `json:"sites,omitempty"`
	MountedViews *int   `json:"mounted,omitempty"`
	LastReload   string `json:"last_reload,omitempty"`
	Mode         string `json:"mode,omitempty"`
	Impact       string `json:"impact,omitempty"`
	Error        string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clients := d.MemoryIndex.Count()
		sites := d.MemoryIndex.SiteCount()
		lastReload := d.MemoryIndex.GetLastReload()
		lastReloadStr := "never"
		if !lastReload.IsZero() {
			lastReloadStr = lastReload.Format("2006-01-02 15:04:05")
		}

		mounted := 0
		if d.Views != nil {
			mounted = d.Views.Count()
		}

		components := map[string]componentStatus{
			"roster": {
				OK:           sites > 0,
				Source:       d.RosterSource,
				ClientsCount: &clients,
				SitesCount:   &sites,
				LastReload:   lastReloadStr,
			},
			"redis": checkRedis(r.Context(), d),
			"views": {
				OK:           d.Views != nil,
				MountedViews: &mounted,
			},
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	// Nothing to poll
	if roster, ok := components["roster"]; ok && !roster.OK {
		return "critical"
	}
	// Redis is optional; only a configured but unreachable one degrades
	if redis, ok := components["redis"]; ok && !redis.OK && redis.Mode != "disabled" {
		return "degraded"
	}
	return "nominal"
}

func checkRedis(parent context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Mode:   "disabled",
			Impact: "roster-mirror-and-report-cache-off",
		}
	}

	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "roster-mirror-and-report-cache-off",
			Error:  "unreachable",
		}
	}

	return componentStatus{
		OK:   true,
		Mode: "optimal",
	}
}
