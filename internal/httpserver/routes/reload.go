package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/handlers"
)

func init() { Register(registerOps, AdminOnly) }

func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/infra", handlers.Infra(d))
	r.Post("/reload", handlers.Reload(d))
}
