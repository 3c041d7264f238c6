package breaker

import (
	"sort"
	"sync"
)

// Manager is a registry of circuit breakers keyed by dependency name.
//
// Breakers are created lazily on first lookup; two lookups with the same
// name always return the same instance. The manager is constructed
// explicitly and injected into collaborators so tests can use isolated
// registries instead of process-wide state.
type Manager struct {
	defaultConfig Config

	mu        sync.RWMutex
	breakers  map[string]*Breaker
	listeners []Listener
}

// NewManager creates an empty registry. New breakers without an explicit
// configuration use defaultConfig.
func NewManager(defaultConfig Config) *Manager {
	return &Manager{
		defaultConfig: defaultConfig.withDefaults(),
		breakers:      make(map[string]*Breaker),
	}
}

// Get returns the breaker for a dependency, creating it with the default
// configuration if needed.
func (m *Manager) Get(name string) *Breaker {
	return m.GetWithConfig(name, m.defaultConfig)
}

// GetWithConfig returns the breaker for a dependency, creating it with the
// given configuration if needed. If the breaker already exists its
// configuration is left unchanged.
func (m *Manager) GetWithConfig(name string, config Config) *Breaker {
	m.mu.RLock()
	b, exists := m.breakers[name]
	m.mu.RUnlock()

	if exists {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock.
	if b, exists = m.breakers[name]; exists {
		return b
	}

	b = New(name, config)
	for _, l := range m.listeners {
		b.Subscribe(l)
	}
	m.breakers[name] = b
	return b
}

// Subscribe registers a listener on every breaker in the registry, including
// breakers created after the call.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, l)
	for _, b := range m.breakers {
		b.Subscribe(l)
	}
}

// Names returns the sorted names of all registered breakers.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.breakers))
	for name := range m.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllStatus returns a snapshot of every breaker in the registry, keyed by
// dependency name. Health reporting folds this into the overall report.
func (m *Manager) AllStatus() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]Status, len(m.breakers))
	for name, b := range m.breakers {
		result[name] = b.Status()
	}
	return result
}

// ResetAll resets every breaker in the registry.
func (m *Manager) ResetAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, b := range m.breakers {
		b.Reset()
	}
}
