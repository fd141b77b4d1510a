package connectors

import (
	"github.com/custodia-labs/vecsync/internal/connectors/filesystem"
	"github.com/custodia-labs/vecsync/internal/connectors/github"
)

// NewDefaultFactory creates a factory with all built-in connectors
// registered.
func NewDefaultFactory() *Factory {
	f := NewFactory()
	f.Register("filesystem", filesystem.NewFromSource)
	f.Register("github", github.NewFromSource)
	return f
}
