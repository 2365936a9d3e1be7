// Package nemesis reads a simulation split into several Exodus files, one
// per processor, as produced by Nemesis-aware solvers.
package nemesis

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kovetskiy/exomesh/exodus"
	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

type Options struct {
	// Concurrency limits how many parts are opened at once, GOMAXPROCS when
	// zero.
	Concurrency int

	// Open opens one part, exodus.Open when nil.
	Open func(path string) (*exodus.Reader, error)
}

func (options Options) open(path string) (*exodus.Reader, error) {
	if options.Open != nil {
		return options.Open(path)
	}

	return exodus.Open(path)
}

// Set is a group of part files read as one simulation.
type Set struct {
	readers []*exodus.Reader
	files   []string

	times     []float64
	ranges    [][2]float64
	nodal     []string
	elemental []string
	dim       int

	mu     sync.Mutex
	closed bool
}

var _ exodus.Source = (*Set)(nil)

// Open opens a single file, or a set of part files when pattern has glob
// meta characters or matches several files.
func Open(pattern string) (exodus.Source, error) {
	return OpenWith(pattern, Options{})
}

func OpenWith(pattern string, options Options) (exodus.Source, error) {
	files, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, karma.Format(err, "invalid pattern %q", pattern)
	}

	if !hasMeta(pattern) && len(files) <= 1 {
		return options.open(pattern)
	}

	return openFiles(pattern, files, options)
}

// OpenSet opens every file matching pattern as parts of one set.
func OpenSet(pattern string, options Options) (*Set, error) {
	files, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, karma.Format(err, "invalid pattern %q", pattern)
	}

	return openFiles(pattern, files, options)
}

func openFiles(pattern string, files []string, options Options) (*Set, error) {
	if len(files) == 0 {
		return nil, &exodus.Error{
			Kind:    exodus.ErrNotFound,
			Message: "no files match " + pattern,
		}
	}

	sort.Strings(files)

	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	log.Debugf(
		nil,
		"%s: opening %d parts, %d at a time",
		pattern,
		len(files),
		concurrency,
	)

	readers := make([]*exodus.Reader, len(files))

	var group errgroup.Group
	group.SetLimit(concurrency)

	for i, file := range files {
		group.Go(func() error {
			reader, err := options.open(file)
			if err != nil {
				return err
			}

			readers[i] = reader

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		for _, reader := range readers {
			if reader != nil {
				reader.Close()
			}
		}

		return nil, err
	}

	return NewSet(readers)
}

// NewSet aggregates opened readers. The set takes ownership of them.
func NewSet(readers []*exodus.Reader) (*Set, error) {
	if len(readers) == 0 {
		return nil, &exodus.Error{
			Kind:    exodus.ErrNotFound,
			Message: "set has no parts",
		}
	}

	set := &Set{
		readers: readers,
		ranges:  make([][2]float64, len(readers)),
		dim:     readers[0].Dim(),
	}

	times := map[float64]struct{}{}
	nodal := map[string]struct{}{}
	elemental := map[string]struct{}{}

	for i, reader := range readers {
		set.files = append(set.files, reader.Name())

		set.ranges[i] = [2]float64{math.NaN(), math.NaN()}

		for _, time := range reader.Times() {
			times[time] = struct{}{}

			if math.IsNaN(set.ranges[i][0]) || time < set.ranges[i][0] {
				set.ranges[i][0] = time
			}

			if math.IsNaN(set.ranges[i][1]) || time > set.ranges[i][1] {
				set.ranges[i][1] = time
			}
		}

		for _, name := range reader.NodalVarNames() {
			nodal[name] = struct{}{}
		}

		for _, name := range reader.ElemVarNames() {
			elemental[name] = struct{}{}
		}
	}

	for time := range times {
		set.times = append(set.times, time)
	}

	sort.Float64s(set.times)

	set.nodal = sortedKeys(nodal)
	set.elemental = sortedKeys(elemental)

	return set, nil
}

func (set *Set) Files() []string {
	return append([]string(nil), set.files...)
}

func (set *Set) Parts() []*exodus.Reader {
	return append([]*exodus.Reader(nil), set.readers...)
}

func (set *Set) Dim() int {
	return set.dim
}

// Times is the sorted union of the times of every part.
func (set *Set) Times() []float64 {
	return append([]float64(nil), set.times...)
}

// FileTimes returns the first and last time stored in every part, NaN for
// parts without time steps.
func (set *Set) FileTimes() [][2]float64 {
	return append([][2]float64(nil), set.ranges...)
}

func (set *Set) NodalVarNames() []string {
	return append([]string(nil), set.nodal...)
}

func (set *Set) ElemVarNames() []string {
	return append([]string(nil), set.elemental...)
}

func (set *Set) validate(name string) error {
	if contains(set.nodal, name) || contains(set.elemental, name) {
		return nil
	}

	return &exodus.Error{
		Kind:    exodus.ErrLookup,
		Message: "value not in nodal or elemental variables, check variable name " + strconv.Quote(name),
	}
}

// DataAtTime stacks the snapshots of every part whose time range holds
// time, in part order.
func (set *Set) DataAtTime(name string, time float64) (*exodus.Snapshot, error) {
	err := set.validate(name)
	if err != nil {
		return nil, err
	}

	snapshots := []*exodus.Snapshot{}
	for i, reader := range set.readers {
		if !(set.ranges[i][0] <= time && time <= set.ranges[i][1]) {
			continue
		}

		snapshot, err := set.DataFromPart(name, time, i)
		if err != nil {
			return nil, err
		}

		snapshots = append(snapshots, snapshot)

		log.Tracef(nil, "%s: %d elements at %g", reader.Name(), snapshot.NumElements(), time)
	}

	if len(snapshots) == 0 {
		return nil, &exodus.Error{
			Kind:    exodus.ErrLookup,
			Message: fmt.Sprintf("time %g is outside of every part", time),
		}
	}

	return stack(name, snapshots)
}

// DataFromPart returns the snapshot of a single part.
func (set *Set) DataFromPart(name string, time float64, part int) (*exodus.Snapshot, error) {
	err := set.validate(name)
	if err != nil {
		return nil, err
	}

	if part < 0 || part >= len(set.readers) {
		return nil, &exodus.Error{
			Kind:    exodus.ErrLookup,
			Message: fmt.Sprintf("part %d is out of range [0, %d)", part, len(set.readers)),
		}
	}

	return set.readers[part].DataAtTime(name, time)
}

func stack(name string, snapshots []*exodus.Snapshot) (*exodus.Snapshot, error) {
	_, width := snapshots[0].X.Dims()

	rows := 0
	for _, snapshot := range snapshots {
		_, cols := snapshot.X.Dims()
		if cols != width {
			return nil, &exodus.Error{
				Kind: exodus.ErrFormat,
				Message: fmt.Sprintf(
					"parts have %d and %d nodes per element",
					width,
					cols,
				),
			}
		}

		rows += snapshot.NumElements()
	}

	result := &exodus.Snapshot{
		Variable: name,
		Time:     snapshots[0].Time,
		X:        mat.NewDense(rows, width, nil),
		Y:        mat.NewDense(rows, width, nil),
		Z:        mat.NewDense(rows, width, nil),
		C:        make([]float64, 0, rows),
	}

	offset := 0
	for _, snapshot := range snapshots {
		for row := 0; row < snapshot.NumElements(); row++ {
			result.X.SetRow(offset+row, snapshot.X.RawRowView(row))
			result.Y.SetRow(offset+row, snapshot.Y.RawRowView(row))
			result.Z.SetRow(offset+row, snapshot.Z.RawRowView(row))
		}

		result.C = append(result.C, snapshot.C...)
		offset += snapshot.NumElements()
	}

	return result, nil
}

// Close closes every part and returns the first error. Closing a closed set
// is a no-op.
func (set *Set) Close() error {
	set.mu.Lock()
	defer set.mu.Unlock()

	if set.closed {
		return nil
	}

	set.closed = true

	var first error
	for _, reader := range set.readers {
		err := reader.Close()
		if err != nil && first == nil {
			first = err
		}
	}

	return first
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func contains(names []string, name string) bool {
	for _, candidate := range names {
		if candidate == name {
			return true
		}
	}

	return false
}
