package driven

import "context"

// Converter turns one content type into plain text.
type Converter interface {
	// Name returns the converter name for logging and registration.
	Name() string

	// MIMETypes returns the content types this converter handles.
	MIMETypes() []string

	// Convert produces text from raw bytes. Returns an error wrapping
	// domain.ErrConversion on unsupported or corrupt input. Must not
	// partially mutate shared state on failure.
	Convert(ctx context.Context, raw []byte, mimeType string) (string, error)
}

// ConverterRegistry routes raw content to the converter for its MIME type.
type ConverterRegistry interface {
	// Convert dispatches to the registered converter for mimeType.
	// Returns an error wrapping domain.ErrConversion when no converter
	// is registered for the type.
	Convert(ctx context.Context, raw []byte, mimeType string) (string, error)

	// Register adds a converter for its declared MIME types.
	Register(c Converter)
}
