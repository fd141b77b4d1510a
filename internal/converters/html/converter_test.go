package html

import (
	"context"
	"strings"
	"testing"
)

func TestConvert_StripsTags(t *testing.T) {
	c := New()
	input := `<html><head><title>Page</title><style>body{}</style></head>
<body><script>alert(1)</script><p>First paragraph</p><p>Second &amp; third</p></body></html>`

	got, err := c.Convert(context.Background(), []byte(input), "text/html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(got, "<") {
		t.Errorf("tags survived: %q", got)
	}
	if strings.Contains(got, "alert") || strings.Contains(got, "body{}") {
		t.Error("expected script and style content to be removed")
	}
	if !strings.Contains(got, "First paragraph") {
		t.Error("expected paragraph text to be preserved")
	}
	if !strings.Contains(got, "Second & third") {
		t.Error("expected entities to be decoded")
	}
}

func TestConvert_BlockStructure(t *testing.T) {
	c := New()
	input := `<div>one</div><div>two</div>`

	got, err := c.Convert(context.Background(), []byte(input), "text/html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "\n") {
		t.Errorf("expected block elements to produce newlines, got %q", got)
	}
}
