package roster

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
)

// Mapper converts roster entries to domain clients
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapClients converts a roster File to domain clients.
// Sites with an unusable URL are dropped; a client whose slug is already
// taken is dropped too.
func (m *Mapper) MapClients(f File) ([]*domain.Client, error) {
	clients := make([]*domain.Client, 0, len(f.Clients))
	seen := make(map[string]bool, len(f.Clients))

	for _, entry := range f.Clients {
		slug := entry.Slug
		if slug == "" {
			slug = domain.Slugify(entry.Name)
		}
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true

		name := entry.Name
		if name == "" {
			name = slug
		}

		client := &domain.Client{
			Slug:  slug,
			Name:  name,
			Sites: make([]*domain.MonitoredSite, 0, len(entry.Sites)),
		}

		siteSeen := make(map[string]bool, len(entry.Sites))
		for _, se := range entry.Sites {
			site, ok := mapSite(slug, se)
			if !ok || siteSeen[site.Slug] {
				continue
			}
			siteSeen[site.Slug] = true
			client.Sites = append(client.Sites, site)
		}

		clients = append(clients, client)
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("no valid clients found in roster")
	}

	return clients, nil
}

func mapSite(clientSlug string, se SiteEntry) (*domain.MonitoredSite, bool) {
	raw := strings.TrimSpace(se.URL)
	if raw == "" {
		return nil, false
	}

	// Parse URL; only http(s) targets with a host can host the plugin
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	host := u.Hostname()
	if host == "" {
		return nil, false
	}

	name := se.Name
	if name == "" {
		name = host
	}

	slug := se.Slug
	if slug == "" {
		slug = domain.Slugify(name)
	}
	if slug == "" {
		return nil, false
	}

	return &domain.MonitoredSite{
		Slug:       slug,
		ClientSlug: clientSlug,
		Name:       name,
		URL:        raw,
		Token:      se.Token,
	}, true
}
