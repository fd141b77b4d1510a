package converters

import (
	"github.com/custodia-labs/vecsync/internal/converters/html"
	"github.com/custodia-labs/vecsync/internal/converters/markdown"
	"github.com/custodia-labs/vecsync/internal/converters/plaintext"
)

// NewDefaultRegistry creates a registry with the built-in converters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	return r
}
