package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
)

// ErrClientNotFound is returned when a site is added to an unknown client.
var ErrClientNotFound = errors.New("client not found")

// AddClient inserts a client. The slug is derived from the name when empty.
func (s *Store) AddClient(ctx context.Context, c domain.Client) error {
	slug := c.Slug
	if slug == "" {
		slug = domain.Slugify(c.Name)
	}
	if slug == "" {
		return fmt.Errorf("client %q has no usable slug", c.Name)
	}

	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO clients (slug, name) VALUES (?, ?)"),
		slug, c.Name)
	if err != nil {
		return fmt.Errorf("failed to add client %s: %w", slug, err)
	}
	return nil
}

// AddSite inserts a site under its client.
func (s *Store) AddSite(ctx context.Context, site domain.MonitoredSite) error {
	var clientID int64
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT id FROM clients WHERE slug = ?"),
		site.ClientSlug).Scan(&clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrClientNotFound, site.ClientSlug)
	}
	if err != nil {
		return fmt.Errorf("failed to look up client %s: %w", site.ClientSlug, err)
	}

	slug := site.Slug
	if slug == "" {
		slug = domain.Slugify(site.Name)
	}

	_, err = s.db.ExecContext(ctx,
		s.rebind("INSERT INTO sites (client_id, slug, name, url, api_token) VALUES (?, ?, ?, ?, ?)"),
		clientID, slug, site.Name, site.URL, site.Token)
	if err != nil {
		return fmt.Errorf("failed to add site %s/%s: %w", site.ClientSlug, slug, err)
	}
	return nil
}

// LoadClients returns every client with its sites, ordered by slug.
func (s *Store) LoadClients(ctx context.Context) ([]*domain.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.slug, c.name, s.slug, s.name, s.url, s.api_token
		FROM clients c
		LEFT JOIN sites s ON s.client_id = c.id
		ORDER BY c.slug, s.slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var clients []*domain.Client
	var current *domain.Client

	for rows.Next() {
		var (
			clientSlug, clientName         string
			siteSlug, siteName, url, token sql.NullString
		)
		if err := rows.Scan(&clientSlug, &clientName, &siteSlug, &siteName, &url, &token); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}

		if current == nil || current.Slug != clientSlug {
			current = &domain.Client{
				Slug:  clientSlug,
				Name:  clientName,
				Sites: []*domain.MonitoredSite{},
			}
			clients = append(clients, current)
		}

		if !siteSlug.Valid {
			continue
		}
		current.Sites = append(current.Sites, &domain.MonitoredSite{
			Slug:       siteSlug.String,
			ClientSlug: clientSlug,
			Name:       siteName.String,
			URL:        url.String,
			Token:      token.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	return clients, nil
}
