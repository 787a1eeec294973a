package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/mw"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler

	// Guard builds a middleware once the dependencies are known.
	Guard func(d deps.Deps) Middleware
)

type entry struct {
	reg    Registrar
	guards []Guard
}

var registry []entry

// Register a registrar with optional guards applied to all of its routes.
func Register(reg Registrar, guards ...Guard) {
	registry = append(registry, entry{reg: reg, guards: guards})
}

// RegisterAll is called once from httpserver.NewRouter.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		if len(e.guards) == 0 {
			e.reg(r, d)
			continue
		}
		mws := make([]Middleware, 0, len(e.guards))
		for _, g := range e.guards {
			mws = append(mws, g(d))
		}
		e.reg(r.With(mws...), d)
	}
}

// CIDROnly restricts routes to AllowedCIDRS.
func CIDROnly(d deps.Deps) Middleware {
	return mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
}

// AdminOnly restricts routes to AllowedCIDRS and AllowedHosts.
func AdminOnly(d deps.Deps) Middleware {
	return mw.Admin(d.AllowedCIDRS, d.AllowedHosts, d.TrustProxy, d.Logger)
}
