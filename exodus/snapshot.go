package exodus

import (
	"math"

	"github.com/reconquest/karma-go"
	"gonum.org/v1/gonum/mat"
)

const (
	timeRelativeTolerance = 1e-5
	timeAbsoluteTolerance = 1e-8
)

// Snapshot is a variable sampled at one time, laid out per element: row i
// of X, Y and Z holds the coordinates of the nodes of element i and C[i]
// its value.
type Snapshot struct {
	Variable string
	Time     float64
	X, Y, Z  *mat.Dense
	C        []float64
}

// NumElements is the number of rows of the snapshot.
func (snapshot *Snapshot) NumElements() int {
	return len(snapshot.C)
}

type elementCoordinates struct {
	x, y, z *mat.Dense
}

// TimeClose reports whether two stored times denote the same instant.
func TimeClose(a, b float64) bool {
	return math.Abs(a-b) <= timeAbsoluteTolerance+timeRelativeTolerance*math.Abs(b)
}

// StepAt returns the first time step whose time is close to time.
func (reader *Reader) StepAt(time float64) (int, error) {
	for step, stored := range reader.times {
		if TimeClose(stored, time) {
			return step, nil
		}
	}

	return 0, newError(
		ErrLookup,
		nil,
		"time %g not found in file %q",
		time,
		reader.name,
	)
}

// ElementValues returns one value per element at a time step. Nodal values
// are averaged over the nodes of each element.
func (reader *Reader) ElementValues(name string, step int) ([]float64, error) {
	reader.mu.RLock()
	defer reader.mu.RUnlock()

	if reader.closed {
		return nil, reader.closedError()
	}

	return reader.elementValues(name, step)
}

func (reader *Reader) elementValues(name string, step int) ([]float64, error) {
	values, err := reader.values(name, step)
	if err != nil {
		return nil, err
	}

	kind, _ := reader.Kind(name)

	switch kind {
	case Elemental:
		return append([]float64(nil), values...), nil

	case Nodal:
		averages := make([]float64, 0, reader.mesh.NumElements())
		for _, block := range reader.mesh.Blocks {
			for _, element := range block.Connectivity {
				sum := 0.0
				for _, node := range element {
					sum += values[node-1]
				}

				averages = append(averages, sum/float64(len(element)))
			}
		}

		return averages, nil
	}

	return nil, newError(
		ErrLookup,
		nil,
		"global variable %q has no per-element values",
		name,
	)
}

// ElementCoordinates gathers node coordinates per element into
// (elements x nodes per element) matrices. Blocks of different element
// widths cannot share a matrix.
func (reader *Reader) ElementCoordinates() (x, y, z *mat.Dense, err error) {
	reader.mu.RLock()
	defer reader.mu.RUnlock()

	if reader.closed {
		return nil, nil, nil, reader.closedError()
	}

	gathered, err := reader.elementCoordinates()
	if err != nil {
		return nil, nil, nil, err
	}

	return gathered.x, gathered.y, gathered.z, nil
}

func (reader *Reader) elementCoordinates() (*elementCoordinates, error) {
	reader.gatherOnce.Do(func() {
		reader.gathered, reader.gatherErr = gather(reader.mesh)
		if reader.gatherErr != nil {
			reader.gatherErr = newError(
				ErrFormat,
				reader.gatherErr,
				"unable to gather element coordinates of %q",
				reader.name,
			)
		}
	})

	return reader.gathered, reader.gatherErr
}

func gather(mesh *Mesh) (*elementCoordinates, error) {
	rows := mesh.NumElements()
	if rows == 0 {
		return nil, karma.Format(nil, "mesh has no elements")
	}

	width := mesh.Blocks[0].NodesPerElement
	for _, block := range mesh.Blocks {
		if block.NodesPerElement != width {
			return nil, karma.Format(
				nil,
				"block %d has %d nodes per element, block %d has %d",
				mesh.Blocks[0].ID,
				width,
				block.ID,
				block.NodesPerElement,
			)
		}
	}

	x := make([]float64, 0, rows*width)
	y := make([]float64, 0, rows*width)
	z := make([]float64, 0, rows*width)
	for _, element := range mesh.Connectivity() {
		for _, node := range element {
			x = append(x, mesh.X[node-1])
			y = append(y, mesh.Y[node-1])
			z = append(z, mesh.Z[node-1])
		}
	}

	return &elementCoordinates{
		x: mat.NewDense(rows, width, x),
		y: mat.NewDense(rows, width, y),
		z: mat.NewDense(rows, width, z),
	}, nil
}

// DataAtTime returns the snapshot of a nodal or elemental variable at the
// stored time closest to time.
func (reader *Reader) DataAtTime(name string, time float64) (*Snapshot, error) {
	reader.mu.RLock()
	defer reader.mu.RUnlock()

	if reader.closed {
		return nil, reader.closedError()
	}

	if kind, ok := reader.Kind(name); !ok || kind == Global {
		return nil, newError(
			ErrLookup,
			nil,
			"%q is not in nodal or elemental variables, check variable name",
			name,
		)
	}

	step, err := reader.StepAt(time)
	if err != nil {
		return nil, err
	}

	gathered, err := reader.elementCoordinates()
	if err != nil {
		return nil, err
	}

	values, err := reader.elementValues(name, step)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Variable: name,
		Time:     reader.times[step],
		X:        mat.DenseCopyOf(gathered.x),
		Y:        mat.DenseCopyOf(gathered.y),
		Z:        mat.DenseCopyOf(gathered.z),
		C:        values,
	}, nil
}
