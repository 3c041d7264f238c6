package ratelimit

import (
	"sort"
	"sync"
)

// Manager is a registry of rate limiters keyed by resource name.
//
// Limiters are created lazily on first lookup; two lookups with the same
// name always return the same instance. Like the breaker registry, the
// manager is constructed explicitly and injected so tests can use isolated
// registries.
type Manager struct {
	defaultConfig Config

	mu       sync.RWMutex
	limiters map[string]*Limiter
}

// NewManager creates an empty registry. New limiters without an explicit
// configuration use defaultConfig.
func NewManager(defaultConfig Config) *Manager {
	return &Manager{
		defaultConfig: defaultConfig.withDefaults(),
		limiters:      make(map[string]*Limiter),
	}
}

// Get returns the limiter for a resource, creating it with the default
// configuration if needed.
func (m *Manager) Get(name string) *Limiter {
	return m.GetWithConfig(name, m.defaultConfig)
}

// GetWithConfig returns the limiter for a resource, creating it with the
// given configuration if needed. If the limiter already exists its
// configuration is left unchanged.
func (m *Manager) GetWithConfig(name string, config Config) *Limiter {
	m.mu.RLock()
	l, exists := m.limiters[name]
	m.mu.RUnlock()

	if exists {
		return l
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock.
	if l, exists = m.limiters[name]; exists {
		return l
	}

	l = NewLimiter(config)
	m.limiters[name] = l
	return l
}

// Names returns the sorted names of all registered limiters.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.limiters))
	for name := range m.limiters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllStats returns a snapshot of every limiter's counters, keyed by
// resource name.
func (m *Manager) AllStats() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]Stats, len(m.limiters))
	for name, l := range m.limiters {
		result[name] = l.Stats()
	}
	return result
}

// ResetAll resets every limiter in the registry.
func (m *Manager) ResetAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.limiters {
		l.Reset()
	}
}
