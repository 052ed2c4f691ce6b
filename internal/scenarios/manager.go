package scenarios

import (
	"fmt"
	"sort"
	"sync"

	"github.com/winitzki/chymyst-go/internal/jc"
)

// Manager tracks the set of live scenario sites by name, mirroring
// achem.EnvironmentManager's registry-of-environments shape. It keeps two
// views of the same sites: the JSON-friendly Handle map used to serve HTTP
// requests, and a jc.SiteManager holding the underlying *jc.ReactionSite
// values, which is the raw bookkeeping a non-HTTP host (e.g. a future
// in-process caller that wants the typed jc API directly) would use.
type Manager struct {
	mu    sync.RWMutex
	sites map[string]Handle
	raw   *jc.SiteManager
}

func NewManager() *Manager {
	return &Manager{sites: make(map[string]Handle), raw: jc.NewSiteManager()}
}

// Create starts a new site under name, or returns an error if one already
// exists with that name.
func (m *Manager) Create(name string, kind Kind) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sites[name]; exists {
		return nil, fmt.Errorf("site %q already exists", name)
	}

	h, err := New(name, kind)
	if err != nil {
		return nil, err
	}
	if err := m.raw.Register(name, h.Raw()); err != nil {
		h.Shutdown()
		return nil, err
	}
	m.sites[name] = h
	return h, nil
}

func (m *Manager) Get(name string) (Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.sites[name]
	return h, ok
}

// Delete shuts down and forgets the named site.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, exists := m.sites[name]
	if !exists {
		return fmt.Errorf("site %q does not exist", name)
	}
	m.raw.Remove(name)
	h.Shutdown()
	delete(m.sites, name)
	return nil
}

// List returns the known site names in sorted order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.sites))
	for name := range m.sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
