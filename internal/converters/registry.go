package converters

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ConverterRegistry = (*Registry)(nil)

// Registry routes raw content to the converter for its MIME type.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]driven.Converter
}

// NewRegistry creates an empty converter registry.
func NewRegistry() *Registry {
	return &Registry{
		converters: make(map[string]driven.Converter),
	}
}

// Register adds a converter for its declared MIME types.
// A later registration for the same type wins.
func (r *Registry) Register(c driven.Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mt := range c.MIMETypes() {
		r.converters[normaliseMIME(mt)] = c
	}
}

// Convert dispatches to the registered converter for mimeType.
func (r *Registry) Convert(ctx context.Context, raw []byte, mimeType string) (string, error) {
	r.mu.RLock()
	c, ok := r.converters[normaliseMIME(mimeType)]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: no converter for %q", domain.ErrConversion, mimeType)
	}
	return c.Convert(ctx, raw, mimeType)
}

// normaliseMIME strips parameters ("text/plain; charset=utf-8") and
// lowercases the type for lookup.
func normaliseMIME(mimeType string) string {
	mt := mimeType
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
