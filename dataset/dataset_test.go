package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/kovetskiy/exomesh/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := map[string]struct {
		header      string
		format      Format
		numrecs     int
		expectedErr error
	}{
		"classic":      {header: "CDF\x01\x00\x00\x00\x03", format: FormatClassic, numrecs: 3},
		"64bit offset": {header: "CDF\x02\x00\x00\x01\x00", format: FormatClassic64, numrecs: 256},
		"streaming":    {header: "CDF\x01\xff\xff\xff\xff", format: FormatClassic, numrecs: 0},
		"hdf5":         {header: "\x89HDF\r\n\x1a\n", format: FormatHDF5},
		"cdf5":         {header: "CDF\x05\x00\x00\x00\x00", expectedErr: ErrUnsupportedFormat},
		"bad version":  {header: "CDF\x07\x00\x00\x00\x00", expectedErr: ErrUnknownFormat},
		"text":         {header: "title = mesh\n", expectedErr: ErrUnknownFormat},
		"short":        {header: "CDF", expectedErr: ErrUnknownFormat},
		"empty":        {header: "", expectedErr: ErrUnknownFormat},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			format, numrecs, err := Detect(bytes.NewReader([]byte(tt.header)))
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, tt.numrecs, numrecs)
		})
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "netcdf3-classic", FormatClassic.String())
	assert.Equal(t, "netcdf3-64bit-offset", FormatClassic64.String())
	assert.Equal(t, "netcdf4-hdf5", FormatHDF5.String())
	assert.Equal(t, "unknown", FormatUnknown.String())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(vfs.LocalOS, filepath.Join(t.TempDir(), "missing.e"))
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestOpenDirectory(t *testing.T) {
	_, err := Open(vfs.LocalOS, t.TempDir())
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.NotErrorIs(t, err, ErrUnknownFormat)
}

func TestOpenUnknownFormat(t *testing.T) {
	name := filepath.Join(t.TempDir(), "notes.e")
	require.NoError(t, os.WriteFile(name, []byte("this is not a mesh"), 0o644))

	_, err := Open(vfs.LocalOS, name)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSplitChars(t *testing.T) {
	chars := []byte("temp\x00\x00\x00\x00c_Cr\x00\x00\x00\x00disp_x  ")

	assert.Equal(t, []string{"temp", "c_Cr", "disp_x"}, splitChars(chars, 8))
	assert.Nil(t, splitChars(chars, 0))
}

func TestToFloat64s(t *testing.T) {
	values, err := toFloat64s([]int32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, values)

	values, err = toFloat64s([]float32{0.5, 1.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5}, values)

	_, err = toFloat64s([]string{"x"})
	assert.Error(t, err)
}

func TestToInts(t *testing.T) {
	assert.Equal(t, []int{1, 2, 4}, toInts([]float64{1, 1.9999999, 4.0000001}))
}
