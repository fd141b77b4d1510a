// Package plaintext passes text payloads through unchanged.
package plaintext

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Converter implements the interface.
var _ driven.Converter = (*Converter)(nil)

// Converter handles plain text content.
type Converter struct{}

// New creates a new plain text converter.
func New() *Converter {
	return &Converter{}
}

// Name returns the converter name.
func (c *Converter) Name() string {
	return "plaintext"
}

// MIMETypes returns the MIME types this converter handles.
func (c *Converter) MIMETypes() []string {
	return []string{
		"text/plain",
		"text/x-go",
		"text/x-python",
		"text/x-rust",
		"text/x-java",
		"text/x-c",
		"text/x-shellscript",
		"text/x-sql",
		"text/csv",
		"text/yaml",
		"text/toml",
		"text/javascript",
		"text/typescript",
		"text/css",
		"application/json",
		"application/xml",
	}
}

// Convert returns the payload as text. Invalid UTF-8 is rejected rather
// than mangled: a corrupt payload must fail the document, not poison
// its content hash.
func (c *Converter) Convert(_ context.Context, raw []byte, _ string) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: payload is not valid UTF-8", domain.ErrConversion)
	}
	return string(raw), nil
}
