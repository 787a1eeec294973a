package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitewatch/internal/probe"
)

const maxCheckBody = 16 << 10

// CheckStatus runs one probe server-side. It always answers 200 and only
// the status field carries the verdict.
func CheckStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req probe.CheckRequest
		body := http.MaxBytesReader(w, r.Body, maxCheckBody)
		if err := json.NewDecoder(body).Decode(&req); err != nil || !probeable(req.URL) {
			writeJSON(w, http.StatusOK, probe.CheckResponse{Status: domain.StatusOffline})
			return
		}

		status := d.Prober.Probe(r.Context(), req.URL, req.Token)
		writeJSON(w, http.StatusOK, probe.CheckResponse{Status: status})
	}
}

// Throttled is the check-status answer once a caller is rate limited.
func Throttled() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, probe.CheckResponse{Status: domain.StatusOffline})
	}
}

func probeable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
