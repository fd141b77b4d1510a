package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassificationString(t *testing.T) {
	assert.Equal(t, "new", ClassNew.String())
	assert.Equal(t, "changed", ClassChanged.String())
	assert.Equal(t, "unchanged", ClassUnchanged.String())
	assert.Equal(t, "deleted", ClassDeleted.String())
	assert.Equal(t, "unknown", Classification(99).String())
}

func TestSourceValidate(t *testing.T) {
	valid := Source{ID: "src-1", ProjectID: "proj", Type: "filesystem"}
	assert.NoError(t, valid.Validate())

	for _, tc := range []struct {
		name   string
		source Source
	}{
		{"missing ID", Source{ProjectID: "proj", Type: "filesystem"}},
		{"missing type", Source{ID: "src-1", ProjectID: "proj"}},
		{"missing project", Source{ID: "src-1", Type: "filesystem"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.source.Validate(), ErrInvalidInput)
		})
	}
}
