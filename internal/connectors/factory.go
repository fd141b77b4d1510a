package connectors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ConnectorFactory = (*Factory)(nil)

// Builder constructs a connector from a source configuration.
type Builder func(source domain.Source) (driven.Connector, error)

// Factory creates connectors from registered builders, keyed by
// connector type.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewFactory creates an empty connector factory.
func NewFactory() *Factory {
	return &Factory{
		builders: make(map[string]Builder),
	}
}

// Register adds a builder for a connector type.
func (f *Factory) Register(connType string, b Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[connType] = b
}

// Create builds a connector for the given source.
func (f *Factory) Create(_ context.Context, source domain.Source) (driven.Connector, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	b, ok := f.builders[source.Type]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, source.Type)
	}
	return b(source)
}

// SupportedTypes lists the registered connector types, sorted.
func (f *Factory) SupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
