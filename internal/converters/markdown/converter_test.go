package markdown

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

func TestConvert_StripsFormatting(t *testing.T) {
	c := New()
	input := "# Title\n\nSome **bold** text with a [link](https://example.com).\n\n" +
		"```go\nfunc main() {}\n```\n\n> quoted line\n"

	got, err := c.Convert(context.Background(), []byte(input), "text/markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(got, "#") || strings.Contains(got, "**") || strings.Contains(got, "```") {
		t.Errorf("markdown markers survived: %q", got)
	}
	if !strings.Contains(got, "link") {
		t.Error("expected link text to be preserved")
	}
	if strings.Contains(got, "https://example.com") {
		t.Error("expected link URL to be removed")
	}
	if strings.Contains(got, "func main") {
		t.Error("expected code block to be removed")
	}
}

func TestConvert_Deterministic(t *testing.T) {
	c := New()
	input := []byte("## Heading\n\nbody *text*\n")

	a, err := c.Convert(context.Background(), input, "text/markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := c.Convert(context.Background(), input, "text/markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Error("expected identical output for identical input")
	}
}

func TestConvert_InvalidUTF8(t *testing.T) {
	c := New()
	_, err := c.Convert(context.Background(), []byte{0xff, 0xfe}, "text/markdown")
	if !errors.Is(err, domain.ErrConversion) {
		t.Errorf("expected ErrConversion, got %v", err)
	}
}
