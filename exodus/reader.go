// Package exodus reads Exodus II mesh and result files into arrays.
//
// A Reader loads the mesh geometry, the time axis and the variable names when
// it is opened. Field values are read from the file on demand and cached
// until the reader is closed.
package exodus

import (
	"errors"
	"sync"

	"github.com/kovetskiy/exomesh/dataset"
	"github.com/kovetskiy/exomesh/vfs"
	"github.com/patrickmn/go-cache"
	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
)

type VariableKind int

const (
	Nodal VariableKind = iota + 1
	Elemental
	Global
)

func (kind VariableKind) String() string {
	switch kind {
	case Nodal:
		return "nodal"
	case Elemental:
		return "elemental"
	case Global:
		return "global"
	default:
		return "unknown"
	}
}

type Reader struct {
	name string
	ds   dataset.Dataset

	mu     sync.RWMutex
	closed bool

	title     string
	times     []float64
	nodal     []string
	elemental []string
	global    []string
	mesh      *Mesh

	slabs *cache.Cache

	gatherOnce sync.Once
	gathered   *elementCoordinates
	gatherErr  error
}

// Open opens a single Exodus file from the local file system.
func Open(path string) (*Reader, error) {
	return OpenWith(vfs.LocalOS, path)
}

func OpenWith(opener vfs.Opener, path string) (*Reader, error) {
	ds, err := dataset.Open(opener, path)
	if err != nil {
		switch {
		case errors.Is(err, dataset.ErrNotExist):
			return nil, newError(
				ErrNotFound,
				nil,
				"file path %q does not exist",
				path,
			)

		case errors.Is(err, dataset.ErrUnreadable):
			return nil, newError(
				ErrNotFound,
				err,
				"file path %q can not be read",
				path,
			)

		case errors.Is(err, dataset.ErrUnknownFormat),
			errors.Is(err, dataset.ErrUnsupportedFormat),
			errors.Is(err, dataset.ErrCorrupt):
			return nil, newError(
				ErrFormat,
				err,
				"%q is not an Exodus or Nemesis container",
				path,
			)
		}

		return nil, karma.Format(err, "unable to open %q", path)
	}

	reader, err := New(ds, path)
	if err != nil {
		ds.Close()
		return nil, err
	}

	return reader, nil
}

// New reads the schema of an opened dataset. The reader takes ownership of
// ds only when New succeeds.
func New(ds dataset.Dataset, name string) (*Reader, error) {
	reader := &Reader{
		name:  name,
		ds:    ds,
		slabs: cache.New(cache.NoExpiration, 0),
	}

	reader.title, _ = ds.Attribute("", "title")

	err := reader.loadTimes()
	if err != nil {
		return nil, err
	}

	reader.nodal = reader.loadNames("name_nod_var")
	reader.elemental = reader.loadNames("name_elem_var")
	reader.global = reader.loadNames("name_glo_var")

	reader.mesh, err = loadMesh(ds)
	if err != nil {
		return nil, newError(ErrFormat, err, "%q has no valid mesh", name)
	}

	log.Debugf(
		karma.Describe("file", name).Describe("format", ds.Format()),
		"%d nodes, %d elements in %d blocks, %d time steps",
		reader.mesh.NumNodes(),
		reader.mesh.NumElements(),
		len(reader.mesh.Blocks),
		len(reader.times),
	)

	return reader, nil
}

func (reader *Reader) loadTimes() error {
	if !reader.ds.HasVariable("time_whole") {
		return nil
	}

	times, err := reader.ds.Float64s("time_whole")
	if err != nil {
		return newError(ErrFormat, err, "unable to read time steps of %q", reader.name)
	}

	reader.times = times

	return nil
}

// loadNames returns no names when the file carries none or they cannot be
// decoded, variables are optional.
func (reader *Reader) loadNames(variable string) []string {
	if !reader.ds.HasVariable(variable) {
		return []string{}
	}

	names, err := reader.ds.Strings(variable)
	if err != nil {
		log.Warningf(err, "%s: ignoring unreadable %s", reader.name, variable)
		return []string{}
	}

	return names
}

func (reader *Reader) Name() string {
	return reader.name
}

func (reader *Reader) Files() []string {
	return []string{reader.name}
}

func (reader *Reader) Parts() []*Reader {
	return []*Reader{reader}
}

func (reader *Reader) Title() string {
	return reader.title
}

func (reader *Reader) Format() dataset.Format {
	return reader.ds.Format()
}

// Dim is the number of coordinate arrays stored in the file.
func (reader *Reader) Dim() int {
	return reader.mesh.Dim
}

func (reader *Reader) Times() []float64 {
	return append([]float64(nil), reader.times...)
}

func (reader *Reader) NumSteps() int {
	return len(reader.times)
}

func (reader *Reader) NodalVarNames() []string {
	return append([]string(nil), reader.nodal...)
}

func (reader *Reader) ElemVarNames() []string {
	return append([]string(nil), reader.elemental...)
}

func (reader *Reader) GlobalVarNames() []string {
	return append([]string(nil), reader.global...)
}

// Kind reports how a variable is associated with the mesh.
func (reader *Reader) Kind(name string) (VariableKind, bool) {
	if index(reader.nodal, name) >= 0 {
		return Nodal, true
	}

	if index(reader.elemental, name) >= 0 {
		return Elemental, true
	}

	if index(reader.global, name) >= 0 {
		return Global, true
	}

	return 0, false
}

// GetMesh returns the mesh loaded on open. It is shared between calls and
// must not be modified.
func (reader *Reader) GetMesh() (*Mesh, error) {
	reader.mu.RLock()
	defer reader.mu.RUnlock()

	if reader.closed {
		return nil, reader.closedError()
	}

	return reader.mesh, nil
}

// Close releases the underlying file. Closing a closed reader is a no-op.
func (reader *Reader) Close() error {
	reader.mu.Lock()
	defer reader.mu.Unlock()

	if reader.closed {
		return nil
	}

	reader.closed = true
	reader.slabs.Flush()

	err := reader.ds.Close()
	if err != nil {
		return karma.Format(err, "unable to close %q", reader.name)
	}

	log.Tracef(nil, "%s: closed", reader.name)

	return nil
}

func (reader *Reader) closedError() error {
	return newError(ErrClosed, nil, "%q is already closed", reader.name)
}

func index(names []string, name string) int {
	for i, candidate := range names {
		if candidate == name {
			return i
		}
	}

	return -1
}
