package exodus

import (
	"math"
	"testing"

	"github.com/kovetskiy/exomesh/exodus/exodustest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVariableLengthMatchesEntities(t *testing.T) {
	reader := newQuads(t)

	mesh, err := reader.GetMesh()
	require.NoError(t, err)

	expected := map[string]int{
		"temp":   mesh.NumNodes(),
		"c_Cr":   mesh.NumNodes(),
		"stress": mesh.NumElements(),
		"energy": 1,
	}

	for name, length := range expected {
		for step := 0; step < reader.NumSteps(); step++ {
			values, err := reader.GetVariable(name, step)
			require.NoError(t, err, "%s at step %d", name, step)
			assert.Len(t, values, length, "%s at step %d", name, step)
		}
	}
}

func TestGetVariableValues(t *testing.T) {
	reader := newQuads(t)

	temp, err := reader.GetVariable("temp", 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102, 103, 104, 105, 106}, temp)

	cCr, err := reader.GetVariable("c_Cr", 2)
	require.NoError(t, err)
	for node := 1; node <= exodustest.NumNodes; node++ {
		assert.InDelta(t, exodustest.CCr(2, node), cCr[node-1], 1e-12)
	}

	stress, err := reader.GetVariable("stress", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{12, 22}, stress)

	energy, err := reader.GetVariable("energy", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1000}, energy)
}

func TestGetVariableLookupErrors(t *testing.T) {
	reader := newQuads(t)

	tests := map[string]struct {
		name string
		step int
	}{
		"unknown name":      {name: "pressure", step: 0},
		"negative step":     {name: "temp", step: -1},
		"step past the end": {name: "temp", step: 3},
		"elemental past":    {name: "stress", step: 10},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			values, err := reader.GetVariable(tt.name, tt.step)
			assert.ErrorIs(t, err, ErrLookup)
			assert.Nil(t, values)
		})
	}
}

func TestGetVariableTruthTable(t *testing.T) {
	reader, err := New(
		exodustest.Quads().WithValues("elem_var_tab", 1, 0),
		"quads.e",
	)
	require.NoError(t, err)
	defer reader.Close()

	stress, err := reader.GetVariable("stress", 1)
	require.NoError(t, err)
	require.Len(t, stress, 2)
	assert.Equal(t, 11.0, stress[0])
	assert.True(t, math.IsNaN(stress[1]))
}

func TestGetVariableMissingBlockValues(t *testing.T) {
	reader, err := New(
		exodustest.Quads().Without("vals_elem_var1eb1"),
		"quads.e",
	)
	require.NoError(t, err)
	defer reader.Close()

	stress, err := reader.GetVariable("stress", 0)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(stress[0]))
	assert.Equal(t, 20.0, stress[1])
}

func TestGetVariableLegacyNodalLayout(t *testing.T) {
	memory := exodustest.Quads().
		Without("vals_nod_var1").
		Without("vals_nod_var2")

	var combined []float64
	for step := 0; step < 3; step++ {
		for node := 1; node <= exodustest.NumNodes; node++ {
			combined = append(combined, exodustest.Temp(step, node))
		}

		for node := 1; node <= exodustest.NumNodes; node++ {
			combined = append(combined, exodustest.CCr(step, node))
		}
	}

	reader, err := New(memory.WithValues("vals_nod_var", combined...), "legacy.e")
	require.NoError(t, err)
	defer reader.Close()

	temp, err := reader.GetVariable("temp", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{201, 202, 203, 204, 205, 206}, temp)

	cCr, err := reader.GetVariable("c_Cr", 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}, cCr, 1e-12)
}

func TestGetVariableIsCached(t *testing.T) {
	memory := exodustest.Quads()

	reader, err := New(memory, "quads.e")
	require.NoError(t, err)
	defer reader.Close()

	first, err := reader.GetVariable("temp", 0)
	require.NoError(t, err)

	first[0] = -1

	second, err := reader.GetVariable("temp", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, memory.Reads("vals_nod_var1"))
	assert.Equal(t, 1.0, second[0])
}
