// Package exodustest builds small Exodus files for tests.
//
// The mesh is two unit quads side by side, each in its own block:
//
//	4---5---6
//	| 1 | 2 |
//	1---2---3
//
// Nodal variables: temp = 100*step + node, c_Cr = 0.1*node + step.
// Elemental variable: stress = 10*block + step. Global variable:
// energy = 1000 + step.
package exodustest

import (
	"fmt"
	"os"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/kovetskiy/exomesh/dataset/datasettest"
	"github.com/scigolib/hdf5"
	"github.com/stretchr/testify/require"
)

var (
	X = []float64{0, 1, 2, 0, 1, 2}
	Y = []float64{0, 0, 0, 1, 1, 1}

	Connect1 = []float64{1, 2, 5, 4}
	Connect2 = []float64{2, 3, 6, 5}
)

const NumNodes = 6

func Temp(step, node int) float64 {
	return float64(100*step + node)
}

func CCr(step, node int) float64 {
	return 0.1*float64(node) + float64(step)
}

func Stress(block, step int) float64 {
	return float64(10*block + step)
}

func Energy(step int) float64 {
	return float64(1000 + step)
}

// Quads returns the two-quad mesh stored at the given times, 0, 0.5 and 1
// when none are given.
func Quads(times ...float64) *datasettest.Memory {
	if len(times) == 0 {
		times = []float64{0, 0.5, 1}
	}

	memory := datasettest.NewMemory().
		WithDimension("num_dim", 2).
		WithDimension("num_nodes", NumNodes).
		WithDimension("num_elem", 2).
		WithDimension("num_el_blk", 2).
		WithDimension("num_el_in_blk1", 1).
		WithDimension("num_nod_per_el1", 4).
		WithDimension("num_el_in_blk2", 1).
		WithDimension("num_nod_per_el2", 4).
		WithDimension("time_step", len(times)).
		WithDimension("len_name", 33).
		WithAttribute("", "title", "two quads").
		WithAttribute("connect1", "elem_type", "QUAD4").
		WithAttribute("connect2", "elem_type", "QUAD4").
		WithValues("time_whole", times...).
		WithValues("coordx", X...).
		WithValues("coordy", Y...).
		WithValues("connect1", Connect1...).
		WithValues("connect2", Connect2...).
		WithValues("eb_prop1", 10, 20).
		WithStrings("eb_names", "left", "right").
		WithStrings("name_nod_var", "temp", "c_Cr").
		WithStrings("name_elem_var", "stress").
		WithStrings("name_glo_var", "energy")

	var temp, cCr, stress1, stress2, energy []float64
	for step := range times {
		for node := 1; node <= NumNodes; node++ {
			temp = append(temp, Temp(step, node))
			cCr = append(cCr, CCr(step, node))
		}

		stress1 = append(stress1, Stress(1, step))
		stress2 = append(stress2, Stress(2, step))
		energy = append(energy, Energy(step))
	}

	return memory.
		WithValues("vals_nod_var1", temp...).
		WithValues("vals_nod_var2", cCr...).
		WithValues("vals_elem_var1eb1", stress1...).
		WithValues("vals_elem_var1eb2", stress2...).
		WithValues("vals_glo_var", energy...)
}

// WriteClassic writes the two-quad mesh with the temp values of Quads to a
// classic netCDF file at path. Variable names are not stored.
func WriteClassic(t *testing.T, path string, times ...float64) {
	t.Helper()

	if len(times) == 0 {
		times = []float64{0, 0.5, 1}
	}

	header := cdf.NewHeader(
		[]string{
			"time_step",
			"num_dim",
			"num_nodes",
			"num_elem",
			"num_el_blk",
			"num_el_in_blk1",
			"num_nod_per_el1",
			"num_el_in_blk2",
			"num_nod_per_el2",
		},
		[]int{len(times), 2, NumNodes, 2, 2, 1, 4, 1, 4},
	)
	header.AddVariable("time_whole", []string{"time_step"}, float64(0))
	header.AddVariable("coordx", []string{"num_nodes"}, float64(0))
	header.AddVariable("coordy", []string{"num_nodes"}, float64(0))
	header.AddVariable("eb_prop1", []string{"num_el_blk"}, int32(0))
	header.AddVariable("connect1", []string{"num_el_in_blk1", "num_nod_per_el1"}, int32(0))
	header.AddVariable("connect2", []string{"num_el_in_blk2", "num_nod_per_el2"}, int32(0))
	header.AddVariable("vals_nod_var1", []string{"time_step", "num_nodes"}, float64(0))
	header.AddAttribute("connect1", "elem_type", "QUAD4")
	header.AddAttribute("connect2", "elem_type", "QUAD4")
	header.AddAttribute("", "title", "two quads")
	header.Define()

	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	nc, err := cdf.Create(file, header)
	require.NoError(t, err)

	var temp []float64
	for step := range times {
		for node := 1; node <= NumNodes; node++ {
			temp = append(temp, Temp(step, node))
		}
	}

	values := map[string]interface{}{
		"time_whole":    times,
		"coordx":        X,
		"coordy":        Y,
		"eb_prop1":      []int32{10, 20},
		"connect1":      toInt32(Connect1),
		"connect2":      toInt32(Connect2),
		"vals_nod_var1": temp,
	}
	for variable, data := range values {
		_, err := nc.Writer(variable, nil, nil).Write(data)
		require.NoError(t, err, fmt.Sprintf("writing %s", variable))
	}
}

func toInt32(values []float64) []int32 {
	ints := make([]int32, len(values))
	for i, value := range values {
		ints[i] = int32(value)
	}

	return ints
}

// WriteHDF5 writes the same content as WriteClassic in the netCDF-4
// layout: dimensions are datasets named after them with the dimension
// length as extent and no data written.
func WriteHDF5(t *testing.T, path string, times ...float64) {
	t.Helper()

	if len(times) == 0 {
		times = []float64{0, 0.5, 1}
	}

	file, err := hdf5.CreateForWrite(path, hdf5.CreateTruncate)
	require.NoError(t, err)
	defer file.Close()

	dimensions := []struct {
		name   string
		length int
	}{
		{"time_step", len(times)},
		{"num_dim", 2},
		{"num_nodes", NumNodes},
		{"num_elem", 2},
		{"num_el_blk", 2},
		{"num_el_in_blk1", 1},
		{"num_nod_per_el1", 4},
		{"num_el_in_blk2", 1},
		{"num_nod_per_el2", 4},
	}
	for _, dimension := range dimensions {
		_, err := file.CreateDataset(
			"/"+dimension.name,
			hdf5.Int32,
			[]uint64{uint64(dimension.length)},
		)
		require.NoError(t, err, fmt.Sprintf("creating dimension %s", dimension.name))
	}

	var temp []float64
	for step := range times {
		for node := 1; node <= NumNodes; node++ {
			temp = append(temp, Temp(step, node))
		}
	}

	variables := []struct {
		name     string
		dtype    hdf5.Datatype
		dims     []uint64
		data     interface{}
		elemType string
	}{
		{"time_whole", hdf5.Float64, []uint64{uint64(len(times))}, times, ""},
		{"coordx", hdf5.Float64, []uint64{NumNodes}, X, ""},
		{"coordy", hdf5.Float64, []uint64{NumNodes}, Y, ""},
		{"eb_prop1", hdf5.Int32, []uint64{2}, []int32{10, 20}, ""},
		{"connect1", hdf5.Int32, []uint64{1, 4}, toInt32(Connect1), "QUAD4"},
		{"connect2", hdf5.Int32, []uint64{1, 4}, toInt32(Connect2), "QUAD4"},
		{"vals_nod_var1", hdf5.Float64, []uint64{uint64(len(times)), NumNodes}, temp, ""},
	}
	for _, variable := range variables {
		set, err := file.CreateDataset("/"+variable.name, variable.dtype, variable.dims)
		require.NoError(t, err, fmt.Sprintf("creating %s", variable.name))

		require.NoError(t, set.Write(variable.data), fmt.Sprintf("writing %s", variable.name))

		if variable.elemType != "" {
			require.NoError(t, set.WriteAttribute("elem_type", variable.elemType))
		}
	}

	require.NoError(t, file.Close())
}
