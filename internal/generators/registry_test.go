package generators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simtom/internal/models"
)

func TestNewKnownGenerator(t *testing.T) {
	factory, err := New("bnpl", models.StreamConfig{})
	require.NoError(t, err)
	assert.Equal(t, "bnpl", factory.Name())
}

func TestNewUnknownGenerator(t *testing.T) {
	factory, err := New("nope", models.StreamConfig{})
	assert.Nil(t, factory)
	assert.ErrorContains(t, err, "unknown generator")
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)
	assert.Contains(t, names, "bnpl")
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}
