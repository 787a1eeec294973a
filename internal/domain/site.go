package domain

// MonitoredSite identifies one polling target.
//
// It is NOT tied to the roster file, the database or Redis.
// Every roster source is mapped into this structure.
//
// URL and Token are captured by value when a poll loop is built;
// changing them requires a new loop.
type MonitoredSite struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// Slug is unique within its client.
	// Example: blog
	Slug string `json:"slug"`

	// ClientSlug is the owning client.
	// Example: acme
	ClientSlug string `json:"client"`

	// Name is the display name.
	// Example: ACME Blog
	Name string `json:"name"`

	// ─────────────────────────────
	// Polling target
	// ─────────────────────────────

	// URL is the WordPress base URL hosting the status plugin.
	// Example: https://blog.acme.com
	URL string `json:"url"`

	// Token is the opaque credential sent to the plugin.
	Token string `json:"token"`
}

// ID returns the roster-wide identifier "client/site".
func (s MonitoredSite) ID() string {
	return s.ClientSlug + "/" + s.Slug
}

// Client is an agency customer owning one or more sites.
type Client struct {
	Slug  string           `json:"slug"`
	Name  string           `json:"name"`
	Sites []*MonitoredSite `json:"sites"`
}

// Site returns the client's site with the given slug.
func (c *Client) Site(slug string) (*MonitoredSite, bool) {
	for _, s := range c.Sites {
		if s.Slug == slug {
			return s, true
		}
	}
	return nil, false
}
