package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/handlers"
)

func init() {
	Register(registerHealthz)
	Register(registerReadyz, CIDROnly)
}

func registerHealthz(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
}

func registerReadyz(r chi.Router, d deps.Deps) {
	r.Get("/readyz", handlers.Readyz(d))
}
