package roster

// File is the top-level structure of the roster YAML file.
//
//	clients:
//	  - name: ACME
//	    sites:
//	      - name: Blog
//	        url: https://blog.acme.com
//	        token: "{{ACME_BLOG_TOKEN}}"
type File struct {
	Clients []ClientEntry `yaml:"clients"`
}

// ClientEntry is one agency customer. Slug is derived from Name when empty.
type ClientEntry struct {
	Slug  string      `yaml:"slug,omitempty"`
	Name  string      `yaml:"name"`
	Sites []SiteEntry `yaml:"sites"`
}

// SiteEntry is one WordPress site running the status plugin.
type SiteEntry struct {
	Slug  string `yaml:"slug,omitempty"`
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}
