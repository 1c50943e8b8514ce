package adapters

import (
	"errors"
	"fmt"
	"sync"

	"github.com/brettbedarf/daapfs"
	"github.com/brettbedarf/daapfs/config"
)

var ErrUnknownCatalog = errors.New("no catalog provider registered")

// Registry maps catalog types to the providers that build their dialers
type Registry struct {
	mu        sync.RWMutex
	providers map[string]daapfs.CatalogProvider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]daapfs.CatalogProvider)}
}

// Register ties a provider to a catalog type. The first registration of a
// type wins; later ones are ignored.
func (r *Registry) Register(catalogType string, provider daapfs.CatalogProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[catalogType]; exists {
		return
	}
	r.providers[catalogType] = provider
}

// GetProvider returns the provider registered for catalogType
func (r *Registry) GetProvider(catalogType string) (daapfs.CatalogProvider, error) {
	r.mu.RLock()
	p, ok := r.providers[catalogType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCatalog, catalogType)
	}
	return p, nil
}

// NewDialer builds the dialer for the configured catalog type
func (r *Registry) NewDialer(cfg *config.Config) (daapfs.Dialer, error) {
	p, err := r.GetProvider(cfg.CatalogType)
	if err != nil {
		return nil, err
	}
	return p.NewDialer(daapfs.CatalogOptions{Password: cfg.CatalogPassword})
}
