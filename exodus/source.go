package exodus

// Source is what snapshots are taken from: a single file or a set of
// Nemesis part files.
type Source interface {
	Files() []string
	Parts() []*Reader
	Dim() int
	Times() []float64
	NodalVarNames() []string
	ElemVarNames() []string
	DataAtTime(name string, time float64) (*Snapshot, error)
	Close() error
}

var _ Source = (*Reader)(nil)
