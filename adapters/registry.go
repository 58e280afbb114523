package adapters

import (
	"fmt"
	"sync"

	"github.com/brettbedarf/bootfs"
)

// Registry maps transport names to their providers. The first provider
// registered for a name wins.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]bootfs.TransportProvider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]bootfs.TransportProvider)}
}

// Register ties a provider to a transport name and should be called for each
// transport type during app init
func (r *Registry) Register(name string, provider bootfs.TransportProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; exists {
		return
	}
	r.providers[name] = provider
}

func (r *Registry) GetProvider(name string) (bootfs.TransportProvider, error) {
	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no transport registered for %q", name)
	}
	return p, nil
}

// NewTransport builds a transport for server with the provider registered under name
func (r *Registry) NewTransport(name, server string, opts bootfs.TransportOptions) (bootfs.Transport, error) {
	p, err := r.GetProvider(name)
	if err != nil {
		return nil, err
	}
	return p.NewTransport(server, opts)
}
