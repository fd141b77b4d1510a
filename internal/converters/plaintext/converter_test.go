package plaintext

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

func TestConvert_PassThrough(t *testing.T) {
	c := New()
	got, err := c.Convert(context.Background(), []byte("hello world"), "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello world" {
		t.Errorf("expected pass-through, got %q", got)
	}
}

func TestConvert_InvalidUTF8(t *testing.T) {
	c := New()
	_, err := c.Convert(context.Background(), []byte{0x80, 0x81}, "text/plain")
	if !errors.Is(err, domain.ErrConversion) {
		t.Errorf("expected ErrConversion, got %v", err)
	}
}
