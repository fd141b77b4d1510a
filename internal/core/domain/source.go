package domain

import (
	"fmt"
	"time"
)

// Source represents a configured data source.
// Each source produces documents via a connector.
type Source struct {
	// ID is the unique identifier for the source.
	ID string

	// ProjectID groups this source into a project namespace.
	ProjectID string

	// Type identifies the connector type (e.g., "filesystem", "github").
	Type string

	// Name is the human-readable name for this source.
	Name string

	// Config contains connector-specific configuration.
	Config map[string]string

	// CreatedAt is when the source was created.
	CreatedAt time.Time
}

// Validate checks the source carries the fields every connector needs.
func (s *Source) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: source ID is required", ErrInvalidInput)
	}
	if s.Type == "" {
		return fmt.Errorf("%w: source type is required", ErrInvalidInput)
	}
	if s.ProjectID == "" {
		return fmt.Errorf("%w: project ID is required", ErrInvalidInput)
	}
	return nil
}
