package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
	"github.com/MrSnakeDoc/sitewatch/internal/views"
)

const maxMountBody = 4 << 10

// MountView opens a dashboard page and starts its loops.
func MountView(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req views.MountRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMountBody)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid mount request")
			return
		}

		v, err := d.Views.Mount(req)
		if err != nil {
			status := viewErrorStatus(err)
			if status == http.StatusInternalServerError {
				d.Logger.Error("failed to mount view", logger.Error(err))
			}
			writeError(w, status, err.Error())
			return
		}

		w.Header().Set("Location", "/api/views/"+v.ID)
		writeJSON(w, http.StatusCreated, v.State())
	}
}

// GetView returns the current projection of a mounted view. Reading it
// keeps the view alive.
func GetView(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := d.Views.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, viewErrorStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// UnmountView stops every loop of the view.
func UnmountView(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Views.Unmount(chi.URLParam(r, "id")); err != nil {
			writeError(w, viewErrorStatus(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func viewErrorStatus(err error) int {
	switch {
	case errors.Is(err, views.ErrInvalidKind):
		return http.StatusBadRequest
	case errors.Is(err, views.ErrViewNotFound),
		errors.Is(err, views.ErrClientNotFound),
		errors.Is(err, views.ErrSiteNotFound):
		return http.StatusNotFound
	case errors.Is(err, views.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
