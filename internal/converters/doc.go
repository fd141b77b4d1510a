// Package converters turns raw document payloads into plain text.
//
// Each content type has its own converter under a subpackage
// (plaintext, markdown, html). The Registry routes a payload to the
// converter registered for its MIME type; unsupported types fail with
// domain.ErrConversion so the document is reported, never silently
// skipped.
package converters
