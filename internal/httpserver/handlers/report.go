package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
)

// Report proxies the full plugin report of one site. ?refresh=1 bypasses
// the report cache.
func Report(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientSlug := chi.URLParam(r, "client")
		siteSlug := chi.URLParam(r, "site")

		site, ok := d.MemoryIndex.GetSite(clientSlug, siteSlug)
		if !ok {
			writeError(w, http.StatusNotFound, "site not found")
			return
		}

		if r.URL.Query().Get("refresh") == "1" {
			if err := d.Telemetry.Invalidate(r.Context(), *site); err != nil {
				d.Logger.Warn("failed to invalidate cached report",
					logger.String("site", site.ID()),
					logger.Error(err))
			}
		}

		report, err := d.Telemetry.Fetch(r.Context(), *site)
		if err != nil {
			d.Logger.Warn("site report unavailable",
				logger.String("site", site.ID()),
				logger.Error(err))
			writeError(w, http.StatusBadGateway, "site report unavailable")
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}
