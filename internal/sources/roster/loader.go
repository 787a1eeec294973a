package roster

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Loader reads the roster YAML file from disk
type Loader struct {
	filePath string
}

// NewLoader creates a new roster file loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Path returns the file the loader reads
func (l *Loader) Path() string {
	return l.filePath
}

// Load reads and parses the roster file
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read roster file: %w", err)
	}

	return Parse(data)
}

// Parse decodes the YAML document then expands placeholders in the
// decoded site fields
func Parse(data []byte) (File, error) {
	return parse(data, os.LookupEnv)
}

func parse(data []byte, lookup func(string) (string, bool)) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse roster yaml: %w", err)
	}

	for i := range f.Clients {
		sites := f.Clients[i].Sites
		for j := range sites {
			sites[j].Name = expandPlaceholders(sites[j].Name, lookup)
			sites[j].URL = expandPlaceholders(sites[j].URL, lookup)
			sites[j].Token = expandPlaceholders(sites[j].Token, lookup)
		}
	}

	return f, nil
}

// expandPlaceholders replaces {{VAR}} with the value of the environment
// variable VAR so tokens can stay out of the file. Values are inserted
// verbatim after decoding. Unset variables expand to nothing.
// Example: token: "{{ACME_TOKEN}}" -> token: s3cr3t
func expandPlaceholders(s string, lookup func(string) (string, bool)) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.TrimSpace(placeholder.FindStringSubmatch(m)[1])
		val, _ := lookup(name)
		return val
	})
}
