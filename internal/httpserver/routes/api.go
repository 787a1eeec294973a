package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/mw"
)

func init() { Register(registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	checkLimit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.CheckRateBurst,
		RefillPerIPPerMin: d.CheckRatePerMin,
		MaxEntries:        10_000,
		TrustProxy:        d.TrustProxy,
		OnLimit:           handlers.Throttled(),
	})

	r.Route("/api", func(api chi.Router) {
		api.With(checkLimit).Post("/check-status", handlers.CheckStatus(d))

		api.Get("/clients", handlers.Clients(d))
		api.Get("/clients/{client}/sites/{site}/report", handlers.Report(d))

		api.Post("/views", handlers.MountView(d))
		api.Get("/views/{id}", handlers.GetView(d))
		api.Delete("/views/{id}", handlers.UnmountView(d))
	})
}
