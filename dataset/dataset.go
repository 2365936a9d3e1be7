// Package dataset reads the containers Exodus II files are stored in.
//
// Exodus files are netCDF files, either in the classic binary layout
// (CDF-1 or CDF-2 with 64-bit offsets) or in the netCDF-4 layout which is an
// HDF5 file underneath. Both are exposed through the Dataset interface, so
// callers never deal with the physical layout.
package dataset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/kovetskiy/exomesh/vfs"
	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
)

var (
	ErrNotExist          = errors.New("file does not exist")
	ErrUnreadable        = errors.New("file can not be read")
	ErrUnknownFormat     = errors.New("not a netCDF or HDF5 container")
	ErrUnsupportedFormat = errors.New("unsupported container version")
	ErrCorrupt           = errors.New("corrupted container")
	ErrNoVariable        = errors.New("no such variable")
)

type Format int

const (
	FormatUnknown Format = iota
	FormatClassic
	FormatClassic64
	FormatHDF5
)

func (format Format) String() string {
	switch format {
	case FormatClassic:
		return "netcdf3-classic"
	case FormatClassic64:
		return "netcdf3-64bit-offset"
	case FormatHDF5:
		return "netcdf4-hdf5"
	default:
		return "unknown"
	}
}

// Dataset is a read-only view of a netCDF container. Multi-dimensional
// variables are returned flattened in row-major order.
type Dataset interface {
	Format() Format
	Variables() []string
	HasVariable(name string) bool
	Dimension(name string) (int, bool)
	Float64s(name string) ([]float64, error)
	Ints(name string) ([]int, error)
	// Strings returns char arrays split along their last dimension with
	// trailing NUL and space padding removed.
	Strings(name string) ([]string, error)
	Attribute(variable, name string) (string, bool)
	Close() error
}

// RowReader is implemented by datasets able to read a single row along the
// first dimension without loading the whole variable.
type RowReader interface {
	Float64Row(name string, row int) ([]float64, error)
}

var (
	magicHDF5 = []byte("\x89HDF\r\n\x1a\n")
	magicCDF  = []byte("CDF")
)

// Detect sniffs the container format from the first bytes of r. For classic
// files it also returns the number of records stored in the header.
func Detect(r io.Reader) (Format, int, error) {
	header := make([]byte, 8)

	_, err := io.ReadFull(r, header)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return FormatUnknown, 0, ErrUnknownFormat
		}

		return FormatUnknown, 0, errors.Join(
			ErrUnreadable,
			karma.Format(err, "unable to read file header"),
		)
	}

	if bytes.Equal(header, magicHDF5) {
		return FormatHDF5, 0, nil
	}

	if !bytes.HasPrefix(header, magicCDF) {
		return FormatUnknown, 0, ErrUnknownFormat
	}

	var format Format
	switch header[3] {
	case 1:
		format = FormatClassic
	case 2:
		format = FormatClassic64
	case 5:
		return FormatUnknown, 0, fmt.Errorf("%w: CDF-5", ErrUnsupportedFormat)
	default:
		return FormatUnknown, 0, ErrUnknownFormat
	}

	numrecs := binary.BigEndian.Uint32(header[4:8])
	if numrecs == 0xFFFFFFFF {
		// streaming files leave the count unset
		numrecs = 0
	}

	return format, int(numrecs), nil
}

// Open opens path with the backend matching its container format.
func Open(opener vfs.Opener, path string) (Dataset, error) {
	exists, err := opener.Exists(path)
	if err != nil {
		return nil, errors.Join(
			ErrUnreadable,
			karma.Format(err, "unable to stat %q", path),
		)
	}

	if !exists {
		return nil, ErrNotExist
	}

	file, err := opener.Open(path)
	if err != nil {
		return nil, errors.Join(
			ErrUnreadable,
			karma.Format(err, "unable to open %q", path),
		)
	}

	format, numrecs, err := Detect(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	log.Tracef(nil, "%s: detected %s container", path, format)

	if format == FormatHDF5 {
		err = file.Close()
		if err != nil {
			return nil, karma.Format(err, "unable to close %q", path)
		}

		return openHDF5(path)
	}

	ds, err := openClassic(file, format, numrecs)
	if err != nil {
		file.Close()
		return nil, err
	}

	return ds, nil
}
