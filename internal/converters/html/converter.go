// Package html converts HTML payloads to plain text.
package html

import (
	"context"
	"fmt"
	stdhtml "html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Converter implements the interface.
var _ driven.Converter = (*Converter)(nil)

// Converter handles HTML content.
type Converter struct{}

// New creates a new HTML converter.
func New() *Converter {
	return &Converter{}
}

// Name returns the converter name.
func (c *Converter) Name() string {
	return "html"
}

// MIMETypes returns the MIME types this converter handles.
func (c *Converter) MIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Convert strips tags and returns readable text.
func (c *Converter) Convert(_ context.Context, raw []byte, _ string) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: payload is not valid UTF-8", domain.ErrConversion)
	}
	return stripHTML(string(raw)), nil
}

// Pre-compiled regular expressions for HTML stripping performance.
var (
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(`[ \t]+`)
	multiNewlines     = regexp.MustCompile(`\n{3,}`)
)

// stripHTML removes HTML tags and extracts readable text content.
func stripHTML(content string) string {
	// Remove script, style, noscript, head, and svg blocks entirely
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	// Preserve block structure as newlines
	content = openBlockElements.ReplaceAllString(content, "\n")
	content = brTags.ReplaceAllString(content, "\n")

	// Drop the remaining tags
	content = allTags.ReplaceAllString(content, "")

	// Decode entities and tidy whitespace
	content = stdhtml.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
