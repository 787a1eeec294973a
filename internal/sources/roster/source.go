package roster

import (
	"context"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
)

// FileSource loads the roster from a YAML file on each call.
type FileSource struct {
	loader *Loader
	mapper *Mapper
}

// NewFileSource creates a roster source backed by filePath
func NewFileSource(filePath string) *FileSource {
	return &FileSource{
		loader: NewLoader(filePath),
		mapper: NewMapper(),
	}
}

// LoadClients reads, expands and maps the roster file
func (s *FileSource) LoadClients(_ context.Context) ([]*domain.Client, error) {
	f, err := s.loader.Load()
	if err != nil {
		return nil, err
	}
	return s.mapper.MapClients(f)
}
