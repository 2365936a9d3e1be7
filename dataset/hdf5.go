package dataset

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/reconquest/karma-go"
	"github.com/scigolib/hdf5"
)

// nameLengthDimension is the trailing dimension of every Exodus name array.
// netCDF-4 stores char arrays as one-character strings, so rows are
// rebuilt by this width.
const nameLengthDimension = "len_name"

// hdf reads netCDF-4 files. netCDF dimensions are stored as HDF5 dimension
// scale datasets named after the dimension, their extent is the dimension
// length. The scales usually carry no data, so only their headers are read.
type hdf struct {
	file *hdf5.File
	sets map[string]*hdf5.Dataset

	mu     sync.Mutex
	shapes map[string][]int
}

// reExtent matches the dataspace part of a dataset description, like
// "1D array [6]" or "2D array [3 x 6]".
var reExtent = regexp.MustCompile(`\d+D array \[([^\]]*)\]`)

func openHDF5(path string) (*hdf, error) {
	file, err := hdf5.Open(path)
	if err != nil {
		return nil, errors.Join(
			ErrCorrupt,
			karma.Format(err, "unable to open HDF5 file %q", path),
		)
	}

	ds := &hdf{
		file:   file,
		sets:   map[string]*hdf5.Dataset{},
		shapes: map[string][]int{},
	}

	file.Walk(func(path string, object hdf5.Object) {
		if set, ok := object.(*hdf5.Dataset); ok {
			ds.sets[strings.TrimPrefix(path, "/")] = set
		}
	})

	return ds, nil
}

func (ds *hdf) Format() Format {
	return FormatHDF5
}

func (ds *hdf) Variables() []string {
	names := make([]string, 0, len(ds.sets))
	for name := range ds.sets {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (ds *hdf) HasVariable(name string) bool {
	_, ok := ds.sets[name]
	return ok
}

// shape returns the extent of the dataset's dataspace, empty for scalars.
func (ds *hdf) shape(name string) ([]int, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if shape, ok := ds.shapes[name]; ok {
		return shape, nil
	}

	set, ok := ds.sets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoVariable, name)
	}

	info, err := set.Info()
	if err != nil {
		return nil, karma.Format(err, "unable to read header of %q", name)
	}

	shape, err := parseExtent(info)
	if err != nil {
		return nil, karma.Format(err, "unable to get extent of %q", name)
	}

	ds.shapes[name] = shape

	return shape, nil
}

func parseExtent(info string) ([]int, error) {
	if strings.Contains(info, ", scalar,") {
		return []int{}, nil
	}

	matches := reExtent.FindStringSubmatch(info)
	if matches == nil {
		return nil, fmt.Errorf("no dataspace in %q", info)
	}

	fields := strings.FieldsFunc(matches[1], func(r rune) bool {
		return r < '0' || r > '9'
	})

	shape := make([]int, len(fields))
	for i, field := range fields {
		length, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}

		shape[i] = length
	}

	return shape, nil
}

func (ds *hdf) Dimension(name string) (int, bool) {
	shape, err := ds.shape(name)
	if err != nil || len(shape) != 1 {
		return 0, false
	}

	return shape[0], true
}

func (ds *hdf) Float64s(name string) ([]float64, error) {
	set, ok := ds.sets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoVariable, name)
	}

	values, err := set.Read()
	if err != nil {
		return nil, karma.Format(err, "unable to read dataset %q", name)
	}

	return values, nil
}

func (ds *hdf) Float64Row(name string, row int) ([]float64, error) {
	shape, err := ds.shape(name)
	if err != nil {
		return nil, err
	}

	if len(shape) == 0 || row < 0 || row >= shape[0] {
		return nil, karma.Format(
			nil,
			"row %d is out of range for variable %q",
			row,
			name,
		)
	}

	start := make([]uint64, len(shape))
	start[0] = uint64(row)

	count := make([]uint64, len(shape))
	count[0] = 1
	for i := 1; i < len(shape); i++ {
		count[i] = uint64(shape[i])
	}

	values, err := ds.sets[name].ReadSlice(start, count)
	if err != nil {
		return nil, karma.Format(err, "unable to read row %d of %q", row, name)
	}

	return toFloat64s(values)
}

func (ds *hdf) Ints(name string) ([]int, error) {
	values, err := ds.Float64s(name)
	if err != nil {
		return nil, err
	}

	return toInts(values), nil
}

func (ds *hdf) Strings(name string) ([]string, error) {
	set, ok := ds.sets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoVariable, name)
	}

	values, err := set.ReadStrings()
	if err != nil {
		return nil, karma.Format(err, "unable to read strings of %q", name)
	}

	width, ok := ds.Dimension(nameLengthDimension)
	if !ok || width <= 1 || !singleChars(values) {
		names := make([]string, len(values))
		for i, value := range values {
			names[i] = trimName(value)
		}

		return names, nil
	}

	var chars strings.Builder
	for _, value := range values {
		if value == "" {
			chars.WriteByte(0)
		} else {
			chars.WriteString(value)
		}
	}

	return splitChars([]byte(chars.String()), width), nil
}

func singleChars(values []string) bool {
	for _, value := range values {
		if len(value) > 1 {
			return false
		}
	}

	return len(values) > 0
}

// Attribute reads text attributes. An empty variable name addresses the
// root group, which holds the global attributes.
func (ds *hdf) Attribute(variable, name string) (string, bool) {
	var (
		value interface{}
		err   error
	)

	if variable == "" {
		value, err = ds.rootAttribute(name)
	} else {
		set, ok := ds.sets[variable]
		if !ok {
			return "", false
		}

		value, err = set.ReadAttribute(name)
	}

	if err != nil || value == nil {
		return "", false
	}

	switch value := value.(type) {
	case string:
		return trimName(value), true
	case []string:
		return trimName(strings.Join(value, "")), true
	case []byte:
		return trimName(string(value)), true
	}

	return "", false
}

func (ds *hdf) rootAttribute(name string) (interface{}, error) {
	attributes, err := ds.file.Root().Attributes()
	if err != nil {
		return nil, err
	}

	for _, attribute := range attributes {
		if attribute.Name == name {
			return attribute.ReadValue()
		}
	}

	return nil, nil
}

func (ds *hdf) Close() error {
	return ds.file.Close()
}
