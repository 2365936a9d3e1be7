package dataset

import (
	"path/filepath"
	"testing"

	"github.com/kovetskiy/exomesh/vfs"
	"github.com/scigolib/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeHDF5 writes the mesh of writeClassic in the netCDF-4 layout. The
// dimension datasets are created but never written.
func writeHDF5(t *testing.T) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "quads.e")

	file, err := hdf5.CreateForWrite(name, hdf5.CreateTruncate)
	require.NoError(t, err)
	defer file.Close()

	for dimension, length := range map[string]uint64{
		"time_step":       2,
		"num_nodes":       6,
		"num_elem":        2,
		"num_el_in_blk1":  2,
		"num_nod_per_el1": 4,
	} {
		_, err := file.CreateDataset("/"+dimension, hdf5.Int32, []uint64{length})
		require.NoError(t, err)
	}

	create := func(variable string, dtype hdf5.Datatype, dims []uint64, values interface{}) *hdf5.DatasetWriter {
		set, err := file.CreateDataset("/"+variable, dtype, dims)
		require.NoError(t, err)
		require.NoError(t, set.Write(values))

		return set
	}

	create("time_whole", hdf5.Float64, []uint64{2}, []float64{0, 0.5})
	create("coordx", hdf5.Float64, []uint64{6}, []float64{0, 1, 2, 0, 1, 2})
	create("coordy", hdf5.Float64, []uint64{6}, []float64{0, 0, 0, 1, 1, 1})
	connect := create("connect1", hdf5.Int32, []uint64{2, 4}, []int32{1, 2, 5, 4, 2, 3, 6, 5})
	create("vals_nod_var1", hdf5.Float64, []uint64{2, 6}, []float64{
		1, 2, 3, 4, 5, 6,
		10, 20, 30, 40, 50, 60,
	})

	require.NoError(t, connect.WriteAttribute("elem_type", "QUAD4"))
	require.NoError(t, file.Close())

	return name
}

func TestHDF5Read(t *testing.T) {
	ds, err := Open(vfs.LocalOS, writeHDF5(t))
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, FormatHDF5, ds.Format())
	assert.True(t, ds.HasVariable("coordx"))
	assert.False(t, ds.HasVariable("coordz"))
	assert.Contains(t, ds.Variables(), "connect1")

	nodes, ok := ds.Dimension("num_nodes")
	require.True(t, ok)
	assert.Equal(t, 6, nodes)

	perElement, ok := ds.Dimension("num_nod_per_el1")
	require.True(t, ok)
	assert.Equal(t, 4, perElement)

	_, ok = ds.Dimension("connect1")
	assert.False(t, ok)

	x, err := ds.Float64s("coordx")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 0, 1, 2}, x)

	connect, err := ds.Ints("connect1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 5, 4, 2, 3, 6, 5}, connect)

	topology, ok := ds.Attribute("connect1", "elem_type")
	require.True(t, ok)
	assert.Equal(t, "QUAD4", topology)

	_, ok = ds.Attribute("connect1", "units")
	assert.False(t, ok)

	_, ok = ds.Attribute("", "title")
	assert.False(t, ok)

	_, err = ds.Float64s("coordz")
	assert.ErrorIs(t, err, ErrNoVariable)
}

func TestHDF5Float64Row(t *testing.T) {
	ds, err := Open(vfs.LocalOS, writeHDF5(t))
	require.NoError(t, err)
	defer ds.Close()

	rows, ok := ds.(RowReader)
	require.True(t, ok)

	first, err := rows.Float64Row("vals_nod_var1", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, first)

	second, err := rows.Float64Row("vals_nod_var1", 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 40, 50, 60}, second)

	_, err = rows.Float64Row("vals_nod_var1", 2)
	assert.Error(t, err)

	_, err = rows.Float64Row("coordz", 0)
	assert.ErrorIs(t, err, ErrNoVariable)
}

func TestParseExtent(t *testing.T) {
	tests := map[string]struct {
		info        string
		want        []int
		expectedErr bool
	}{
		"1d": {
			info: "Dataset: int32 (size=4 bytes), 1D array [6], contiguous (address=0x320, size=24)",
			want: []int{6},
		},
		"2d": {
			info: "Dataset: float64 (size=8 bytes), 2D array [3 x 6], contiguous (address=0x400, size=144)",
			want: []int{3, 6},
		},
		"3d": {
			info: "Dataset: float64 (size=8 bytes), 3D array [2 3 4], chunked (chunks=[1 3 4 8])",
			want: []int{2, 3, 4},
		},
		"scalar": {
			info: "Dataset: float64 (size=8 bytes), scalar, compact (size=8)",
			want: []int{},
		},
		"unknown": {
			info:        "Dataset: float64 (size=8 bytes), unknown, compact (size=8)",
			expectedErr: true,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseExtent(tt.info)
			if tt.expectedErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
