package dataset

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/kovetskiy/exomesh/vfs"
	"github.com/reconquest/karma-go"
)

// classic reads CDF-1 and CDF-2 files.
type classic struct {
	file    vfs.File
	nc      *cdf.File
	format  Format
	numrecs int

	variables map[string]struct{}
	dims      map[string]int
}

func openClassic(file vfs.File, format Format, numrecs int) (*classic, error) {
	nc, err := cdf.Open(file)
	if err != nil {
		return nil, errors.Join(
			ErrCorrupt,
			karma.Format(err, "unable to parse netCDF header"),
		)
	}

	ds := &classic{
		file:      file,
		nc:        nc,
		format:    format,
		numrecs:   numrecs,
		variables: map[string]struct{}{},
		dims:      map[string]int{},
	}

	for _, name := range nc.Header.Variables() {
		ds.variables[name] = struct{}{}

		dims := nc.Header.Dimensions(name)
		lengths := ds.lengths(name)
		for i := range dims {
			if i < len(lengths) {
				ds.dims[dims[i]] = lengths[i]
			}
		}
	}

	// dimensions no variable refers to are listed only on the header
	dims := nc.Header.Dimensions("")
	lengths := nc.Header.Lengths("")
	if len(dims) == len(lengths) {
		for i, name := range dims {
			if _, ok := ds.dims[name]; ok {
				continue
			}

			if lengths[i] == 0 {
				ds.dims[name] = numrecs
			} else {
				ds.dims[name] = lengths[i]
			}
		}
	}

	return ds, nil
}

func (ds *classic) Format() Format {
	return ds.format
}

func (ds *classic) Variables() []string {
	names := make([]string, 0, len(ds.variables))
	for name := range ds.variables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (ds *classic) HasVariable(name string) bool {
	_, ok := ds.variables[name]
	return ok
}

func (ds *classic) Dimension(name string) (int, bool) {
	length, ok := ds.dims[name]
	return length, ok
}

// lengths returns the shape of a variable with the unlimited dimension
// resolved to the number of stored records.
func (ds *classic) lengths(name string) []int {
	lengths := append([]int(nil), ds.nc.Header.Lengths(name)...)
	if len(lengths) > 0 && lengths[0] == 0 {
		lengths[0] = ds.numrecs
	}

	return lengths
}

func (ds *classic) read(name string, begin, end []int, size int) (interface{}, error) {
	if !ds.HasVariable(name) {
		return nil, fmt.Errorf("%w: %q", ErrNoVariable, name)
	}

	reader := ds.nc.Reader(name, begin, end)
	buffer := reader.Zero(size)
	if size == 0 {
		return buffer, nil
	}

	count, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return nil, karma.Format(err, "unable to read variable %q", name)
	}

	if count != size {
		return nil, errors.Join(
			ErrCorrupt,
			karma.Format(
				nil,
				"variable %q: read %d values, expected %d",
				name,
				count,
				size,
			),
		)
	}

	return buffer, nil
}

func (ds *classic) Float64s(name string) ([]float64, error) {
	buffer, err := ds.read(name, nil, nil, product(ds.lengths(name)))
	if err != nil {
		return nil, err
	}

	return toFloat64s(buffer)
}

func (ds *classic) Float64Row(name string, row int) ([]float64, error) {
	lengths := ds.lengths(name)
	if len(lengths) == 0 || row < 0 || row >= lengths[0] {
		return nil, karma.Format(
			nil,
			"row %d is out of range for variable %q",
			row,
			name,
		)
	}

	begin := make([]int, len(lengths))
	begin[0] = row

	end := append([]int(nil), lengths...)
	end[0] = row + 1

	buffer, err := ds.read(name, begin, end, product(lengths[1:]))
	if err != nil {
		return nil, err
	}

	return toFloat64s(buffer)
}

func (ds *classic) Ints(name string) ([]int, error) {
	values, err := ds.Float64s(name)
	if err != nil {
		return nil, err
	}

	return toInts(values), nil
}

func (ds *classic) Strings(name string) ([]string, error) {
	lengths := ds.lengths(name)
	if len(lengths) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoVariable, name)
	}

	buffer, err := ds.read(name, nil, nil, product(lengths))
	if err != nil {
		return nil, err
	}

	width := lengths[len(lengths)-1]

	switch chars := buffer.(type) {
	case []byte:
		return splitChars(chars, width), nil
	case []int8:
		raw := make([]byte, len(chars))
		for i, char := range chars {
			raw[i] = byte(char)
		}

		return splitChars(raw, width), nil
	case string:
		return splitChars([]byte(chars), width), nil
	}

	return nil, karma.Describe("type", fmt.Sprintf("%T", buffer)).Format(
		nil,
		"variable %q is not a char array",
		name,
	)
}

func (ds *classic) Attribute(variable, name string) (string, bool) {
	switch value := ds.nc.Header.GetAttribute(variable, name).(type) {
	case string:
		return trimName(value), true
	case []byte:
		return trimName(string(value)), true
	}

	return "", false
}

func (ds *classic) Close() error {
	return ds.file.Close()
}

func product(lengths []int) int {
	size := 1
	for _, length := range lengths {
		size *= length
	}

	return size
}
