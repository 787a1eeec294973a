package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/deps"
)

type siteEntry struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type clientEntry struct {
	Slug  string      `json:"slug"`
	Name  string      `json:"name"`
	Sites []siteEntry `json:"sites"`
}

type clientsResponse struct {
	Clients []clientEntry `json:"clients"`
	Sites   int           `json:"sites"`
}

// Clients lists the roster. Credentials are not part of the listing.
func Clients(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := d.MemoryIndex.GetAllClients()
		resp := clientsResponse{Clients: make([]clientEntry, 0, len(all))}

		for _, c := range all {
			entry := clientEntry{Slug: c.Slug, Name: c.Name, Sites: make([]siteEntry, 0, len(c.Sites))}
			for _, s := range c.Sites {
				entry.Sites = append(entry.Sites, siteEntry{ID: s.ID(), Slug: s.Slug, Name: s.Name, URL: s.URL})
			}
			resp.Sites += len(entry.Sites)
			resp.Clients = append(resp.Clients, entry)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
