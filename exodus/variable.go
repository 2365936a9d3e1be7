package exodus

import (
	"fmt"
	"math"

	"github.com/kovetskiy/exomesh/dataset"
	"github.com/patrickmn/go-cache"
	"github.com/reconquest/karma-go"
)

// GetVariable returns the values of a variable at a time step: one value
// per node for nodal variables, one per element (blocks concatenated in
// block order) for elemental variables and a single value for global ones.
func (reader *Reader) GetVariable(name string, step int) ([]float64, error) {
	reader.mu.RLock()
	defer reader.mu.RUnlock()

	if reader.closed {
		return nil, reader.closedError()
	}

	values, err := reader.values(name, step)
	if err != nil {
		return nil, err
	}

	return append([]float64(nil), values...), nil
}

// values returns cached slabs, callers must not modify the result.
func (reader *Reader) values(name string, step int) ([]float64, error) {
	kind, ok := reader.Kind(name)
	if !ok {
		return nil, newError(
			ErrLookup,
			nil,
			"%q is not in nodal, elemental or global variables of %q",
			name,
			reader.name,
		)
	}

	if step < 0 || step >= len(reader.times) {
		return nil, newError(
			ErrLookup,
			nil,
			"time step %d is out of range [0, %d) in %q",
			step,
			len(reader.times),
			reader.name,
		)
	}

	key := fmt.Sprintf("%s/%s/%d", kind, name, step)
	if cached, ok := reader.slabs.Get(key); ok {
		return cached.([]float64), nil
	}

	var (
		values []float64
		err    error
	)

	switch kind {
	case Nodal:
		values, err = reader.nodalValues(index(reader.nodal, name), step)
	case Elemental:
		values, err = reader.elementalValues(index(reader.elemental, name), step)
	case Global:
		values, err = reader.globalValue(index(reader.global, name), step)
	}

	if err != nil {
		return nil, newError(
			ErrFormat,
			err,
			"unable to read %s variable %q at step %d",
			kind,
			name,
			step,
		)
	}

	reader.slabs.Set(key, values, cache.NoExpiration)

	return values, nil
}

func (reader *Reader) nodalValues(index int, step int) ([]float64, error) {
	numNodes := reader.mesh.NumNodes()

	variable := fmt.Sprintf("vals_nod_var%d", index+1)
	if reader.ds.HasVariable(variable) {
		return reader.row(variable, step, numNodes)
	}

	// legacy layout: all nodal variables in one (time, variable, node) array
	if reader.ds.HasVariable("vals_nod_var") {
		stride := len(reader.nodal) * numNodes

		values, err := reader.row("vals_nod_var", step, stride)
		if err != nil {
			return nil, err
		}

		return values[index*numNodes : (index+1)*numNodes], nil
	}

	return nil, karma.Format(nil, "%s is not stored", variable)
}

func (reader *Reader) elementalValues(index int, step int) ([]float64, error) {
	table, err := reader.truthTable()
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, reader.mesh.NumElements())
	for _, block := range reader.mesh.Blocks {
		variable := fmt.Sprintf("vals_elem_var%deb%d", index+1, block.ordinal)

		stored := reader.ds.HasVariable(variable)
		if table != nil {
			offset := (block.ordinal-1)*len(reader.elemental) + index
			if offset < len(table) && table[offset] == 0 {
				stored = false
			}
		}

		if !stored {
			for i := 0; i < block.NumElements(); i++ {
				values = append(values, math.NaN())
			}

			continue
		}

		row, err := reader.row(variable, step, block.NumElements())
		if err != nil {
			return nil, err
		}

		values = append(values, row...)
	}

	return values, nil
}

// truthTable returns elem_var_tab, a (block, variable) matrix of flags, or
// nil when the file does not store one.
func (reader *Reader) truthTable() ([]int, error) {
	if !reader.ds.HasVariable("elem_var_tab") {
		return nil, nil
	}

	table, err := reader.ds.Ints("elem_var_tab")
	if err != nil {
		return nil, karma.Format(err, "unable to read elem_var_tab")
	}

	return table, nil
}

func (reader *Reader) globalValue(index int, step int) ([]float64, error) {
	values, err := reader.row("vals_glo_var", step, len(reader.global))
	if err != nil {
		return nil, err
	}

	return []float64{values[index]}, nil
}

// row reads one row of a (time, ...) variable.
func (reader *Reader) row(variable string, step int, width int) ([]float64, error) {
	var (
		values []float64
		err    error
	)

	if rows, ok := reader.ds.(dataset.RowReader); ok {
		values, err = rows.Float64Row(variable, step)
	} else {
		values, err = reader.ds.Float64s(variable)
		if err == nil {
			if len(values) < (step+1)*width {
				return nil, karma.Format(
					nil,
					"%s holds %d values, step %d needs %d",
					variable,
					len(values),
					step,
					(step+1)*width,
				)
			}

			values = values[step*width : (step+1)*width]
		}
	}

	if err != nil {
		return nil, karma.Format(err, "unable to read %s", variable)
	}

	if len(values) != width {
		return nil, karma.Format(
			nil,
			"%s row holds %d values, expected %d",
			variable,
			len(values),
			width,
		)
	}

	return values, nil
}
