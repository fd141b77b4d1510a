// Package markdown converts Markdown payloads to plain text.
package markdown

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Converter implements the interface.
var _ driven.Converter = (*Converter)(nil)

// Converter handles Markdown content.
type Converter struct{}

// New creates a new Markdown converter.
func New() *Converter {
	return &Converter{}
}

// Name returns the converter name.
func (c *Converter) Name() string {
	return "markdown"
}

// MIMETypes returns the MIME types this converter handles.
func (c *Converter) MIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Convert strips Markdown formatting and returns plain text.
func (c *Converter) Convert(_ context.Context, raw []byte, _ string) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: payload is not valid UTF-8", domain.ErrConversion)
	}
	return stripMarkdown(string(raw)), nil
}

// Pre-compiled expressions for markdown stripping.
var (
	codeBlock  = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode = regexp.MustCompile("`[^`]+`")
	images     = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links      = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquote = regexp.MustCompile(`(?m)^>\s*`)
	multiBlank = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes common markdown formatting for plain text content.
// This is a simplified implementation that handles common cases.
func stripMarkdown(content string) string {
	content = codeBlock.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "")

	// Convert links [text](url) to just text
	content = links.ReplaceAllString(content, "$1")

	// Remove heading markers (# ## ### etc)
	content = headings.ReplaceAllString(content, "")

	// Remove bold/italic markers
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")

	// Remove blockquote markers
	content = blockquote.ReplaceAllString(content, "")

	// Collapse runs of blank lines
	content = multiBlank.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
