package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
	"github.com/MrSnakeDoc/sitewatch/internal/utils"
)

// Reload triggers a manual roster reload. Mounted views keep the sites they
// were built with.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := utils.ClientIP(r, d.TrustProxy)

		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("manual roster reload triggered via endpoint",
				logger.String("remote_ip", ip))
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("✅ Reload triggered successfully\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		default:
			d.Logger.Warn("roster reload already in progress",
				logger.String("remote_ip", ip))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("⏳ Reload already in progress, please wait\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		}
	}
}
