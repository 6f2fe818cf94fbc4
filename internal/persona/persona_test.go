package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []ID{Akbar, Assistant, Jailbreak}, r.IDs())

	id, err := r.Parse(" Assistant ")
	require.NoError(t, err)
	assert.Equal(t, Assistant, id)

	_, err = r.Parse("pirate")
	assert.Error(t, err)
}

func TestRegistryFallsBackToDefault(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, r.Instruction(Akbar), r.Instruction(ID("missing")))
}

func TestRegistryRegisterOverride(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("Pirate", "Arr."))
	id, err := r.Parse("pirate")
	require.NoError(t, err)
	assert.Equal(t, "Arr.", r.Instruction(id))

	assert.Error(t, r.Register("", "x"))
	assert.Error(t, r.Register("x", "  "))
}
