package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready bool `json:"ready"`
}

// Readyz reports ready once a roster has been loaded at least once.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := !d.MemoryIndex.GetLastReload().IsZero()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{Ready: ready})
	}
}
