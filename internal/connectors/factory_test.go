package connectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

type nopConnector struct {
	driven.Connector
	sourceID string
}

func (n *nopConnector) SourceID() string { return n.sourceID }

func validSource(connType string) domain.Source {
	return domain.Source{
		ID:        "src-1",
		ProjectID: "proj",
		Type:      connType,
		Config:    map[string]string{},
	}
}

func TestFactory_Create(t *testing.T) {
	f := NewFactory()
	f.Register("fake", func(source domain.Source) (driven.Connector, error) {
		return &nopConnector{sourceID: source.ID}, nil
	})

	conn, err := f.Create(context.Background(), validSource("fake"))
	require.NoError(t, err)
	assert.Equal(t, "src-1", conn.SourceID())
}

func TestFactory_CreateUnknownType(t *testing.T) {
	f := NewFactory()
	_, err := f.Create(context.Background(), validSource("mystery"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestFactory_CreateInvalidSource(t *testing.T) {
	f := NewFactory()
	f.Register("fake", func(source domain.Source) (driven.Connector, error) {
		return &nopConnector{}, nil
	})

	_, err := f.Create(context.Background(), domain.Source{Type: "fake"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFactory_SupportedTypes(t *testing.T) {
	f := NewFactory()
	f.Register("zeta", func(domain.Source) (driven.Connector, error) { return nil, nil })
	f.Register("alpha", func(domain.Source) (driven.Connector, error) { return nil, nil })

	assert.Equal(t, []string{"alpha", "zeta"}, f.SupportedTypes())
}

func TestNewDefaultFactory(t *testing.T) {
	f := NewDefaultFactory()
	assert.Equal(t, []string{"filesystem", "github"}, f.SupportedTypes())
}
