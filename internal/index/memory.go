package index

import (
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
)

// MemoryIndex holds the current roster in memory.
// It is the primary lookup; Redis only mirrors it.
type MemoryIndex struct {
	mu         sync.RWMutex
	clients    map[string]*domain.Client // slug -> Client
	siteCount  int
	lastReload time.Time
}

// NewMemoryIndex creates an empty roster index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		clients: make(map[string]*domain.Client),
	}
}

// UpdateClients replaces the whole roster
func (idx *MemoryIndex) UpdateClients(clients []*domain.Client) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Clear and rebuild
	idx.clients = make(map[string]*domain.Client, len(clients))
	idx.siteCount = 0
	for _, c := range clients {
		idx.clients[c.Slug] = c
		idx.siteCount += len(c.Sites)
	}
	idx.lastReload = time.Now()
}

// GetClient retrieves a client by slug
func (idx *MemoryIndex) GetClient(slug string) (*domain.Client, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	c, ok := idx.clients[slug]
	return c, ok
}

// GetSite retrieves one site of one client
func (idx *MemoryIndex) GetSite(clientSlug, siteSlug string) (*domain.MonitoredSite, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	c, ok := idx.clients[clientSlug]
	if !ok {
		return nil, false
	}
	return c.Site(siteSlug)
}

// GetAllClients returns every client sorted by slug
func (idx *MemoryIndex) GetAllClients() []*domain.Client {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	clients := make([]*domain.Client, 0, len(idx.clients))
	for _, c := range idx.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].Slug < clients[j].Slug
	})
	return clients
}

// AllSites returns every site of every client sorted by ID
func (idx *MemoryIndex) AllSites() []*domain.MonitoredSite {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	sites := make([]*domain.MonitoredSite, 0, idx.siteCount)
	for _, c := range idx.clients {
		sites = append(sites, c.Sites...)
	}
	sort.Slice(sites, func(i, j int) bool {
		return sites[i].ID() < sites[j].ID()
	})
	return sites
}

// Count returns the number of clients
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.clients)
}

// SiteCount returns the number of sites across all clients
func (idx *MemoryIndex) SiteCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.siteCount
}

// GetLastReload returns the timestamp of the last roster replacement
func (idx *MemoryIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}
