package exodus

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/kovetskiy/exomesh/dataset"
	"github.com/reconquest/karma-go"
)

var reConnect = regexp.MustCompile(`^connect([0-9]+)$`)

// Block is an element block: elements sharing one topology.
type Block struct {
	// ID is the user block id from eb_prop1, the 1-based ordinal otherwise.
	ID              int
	Name            string
	Topology        string
	NodesPerElement int
	// Connectivity holds 1-based node ids, one row per element.
	Connectivity [][]int

	ordinal int
}

func (block *Block) NumElements() int {
	return len(block.Connectivity)
}

type Mesh struct {
	Dim     int
	X, Y, Z []float64
	Blocks  []*Block

	NodeNumMap []int
	ElemNumMap []int
}

func (mesh *Mesh) NumNodes() int {
	return len(mesh.X)
}

func (mesh *Mesh) NumElements() int {
	count := 0
	for _, block := range mesh.Blocks {
		count += block.NumElements()
	}

	return count
}

// Connectivity returns the rows of all blocks in block order.
func (mesh *Mesh) Connectivity() [][]int {
	rows := make([][]int, 0, mesh.NumElements())
	for _, block := range mesh.Blocks {
		rows = append(rows, block.Connectivity...)
	}

	return rows
}

func (mesh *Mesh) Block(id int) (*Block, bool) {
	for _, block := range mesh.Blocks {
		if block.ID == id {
			return block, true
		}
	}

	return nil, false
}

func loadMesh(ds dataset.Dataset) (*Mesh, error) {
	mesh := &Mesh{}

	err := loadCoordinates(ds, mesh)
	if err != nil {
		return nil, err
	}

	mesh.Blocks, err = loadBlocks(ds, mesh.NumNodes())
	if err != nil {
		return nil, err
	}

	if declared, ok := ds.Dimension("num_elem"); ok &&
		declared != mesh.NumElements() {
		return nil, karma.Format(
			nil,
			"file declares %d elements, blocks hold %d",
			declared,
			mesh.NumElements(),
		)
	}

	mesh.NodeNumMap, err = loadNumMap(ds, "node_num_map", mesh.NumNodes())
	if err != nil {
		return nil, err
	}

	mesh.ElemNumMap, err = loadNumMap(ds, "elem_num_map", mesh.NumElements())
	if err != nil {
		return nil, err
	}

	return mesh, nil
}

func loadCoordinates(ds dataset.Dataset, mesh *Mesh) error {
	var axes [][]float64

	switch {
	case ds.HasVariable("coordx"):
		for _, name := range []string{"coordx", "coordy", "coordz"} {
			if !ds.HasVariable(name) {
				break
			}

			values, err := ds.Float64s(name)
			if err != nil {
				return karma.Format(err, "unable to read %s", name)
			}

			axes = append(axes, values)
		}

	case ds.HasVariable("coord"):
		dim, ok := ds.Dimension("num_dim")
		if !ok || dim < 1 {
			return karma.Format(nil, "coord is stored without num_dim")
		}

		values, err := ds.Float64s("coord")
		if err != nil {
			return karma.Format(err, "unable to read coord")
		}

		if len(values)%dim != 0 {
			return karma.Format(
				nil,
				"coord holds %d values, not a multiple of %d dimensions",
				len(values),
				dim,
			)
		}

		width := len(values) / dim
		for axis := 0; axis < dim && axis < 3; axis++ {
			axes = append(axes, values[axis*width:(axis+1)*width])
		}

	default:
		return karma.Format(
			nil,
			"X dimension empty, mesh must have at least one non-empty dimension",
		)
	}

	numNodes := len(axes[0])

	declared, ok := ds.Dimension("num_nodes")
	if !ok {
		return karma.Format(nil, "file does not declare num_nodes")
	}

	if declared != numNodes {
		return karma.Format(
			nil,
			"file declares %d nodes, coordinates hold %d",
			declared,
			numNodes,
		)
	}

	for axis, values := range axes {
		if len(values) != numNodes {
			return karma.Format(
				nil,
				"coordinate axis %d holds %d values, expected %d",
				axis,
				len(values),
				numNodes,
			)
		}
	}

	mesh.Dim = len(axes)

	for len(axes) < 3 {
		axes = append(axes, make([]float64, numNodes))
	}

	mesh.X, mesh.Y, mesh.Z = axes[0], axes[1], axes[2]

	return nil
}

func loadBlocks(ds dataset.Dataset, numNodes int) ([]*Block, error) {
	ordinals := []int{}
	for _, name := range ds.Variables() {
		matches := reConnect.FindStringSubmatch(name)
		if matches == nil {
			continue
		}

		ordinal, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, karma.Format(err, "invalid block variable %q", name)
		}

		ordinals = append(ordinals, ordinal)
	}

	sort.Ints(ordinals)

	ids := []int{}
	if ds.HasVariable("eb_prop1") {
		var err error
		ids, err = ds.Ints("eb_prop1")
		if err != nil {
			return nil, karma.Format(err, "unable to read block ids")
		}
	}

	names := []string{}
	if ds.HasVariable("eb_names") {
		// names are cosmetic, unreadable ones are left empty
		names, _ = ds.Strings("eb_names")
	}

	blocks := make([]*Block, 0, len(ordinals))
	for _, ordinal := range ordinals {
		block, err := loadBlock(ds, ordinal, numNodes)
		if err != nil {
			return nil, karma.Describe("block", ordinal).Reason(err)
		}

		if ordinal <= len(ids) {
			block.ID = ids[ordinal-1]
		}

		if ordinal <= len(names) {
			block.Name = names[ordinal-1]
		}

		blocks = append(blocks, block)
	}

	return blocks, nil
}

func loadBlock(ds dataset.Dataset, ordinal int, numNodes int) (*Block, error) {
	variable := fmt.Sprintf("connect%d", ordinal)

	width, ok := ds.Dimension(fmt.Sprintf("num_nod_per_el%d", ordinal))
	if !ok || width < 1 {
		return nil, karma.Format(nil, "%s has no nodes per element", variable)
	}

	ids, err := ds.Ints(variable)
	if err != nil {
		return nil, karma.Format(err, "unable to read %s", variable)
	}

	if len(ids)%width != 0 {
		return nil, karma.Format(
			nil,
			"%s holds %d node ids, not a multiple of %d",
			variable,
			len(ids),
			width,
		)
	}

	rows := len(ids) / width
	if declared, ok := ds.Dimension(fmt.Sprintf("num_el_in_blk%d", ordinal)); ok &&
		declared != rows {
		return nil, karma.Format(
			nil,
			"%s declares %d elements, holds %d",
			variable,
			declared,
			rows,
		)
	}

	connectivity := make([][]int, rows)
	for row := range connectivity {
		connectivity[row] = ids[row*width : (row+1)*width]

		for _, id := range connectivity[row] {
			if id < 1 || id > numNodes {
				return nil, karma.Format(
					nil,
					"%s element %d refers to node %d of %d",
					variable,
					row+1,
					id,
					numNodes,
				)
			}
		}
	}

	topology, _ := ds.Attribute(variable, "elem_type")

	return &Block{
		ID:              ordinal,
		Topology:        topology,
		NodesPerElement: width,
		Connectivity:    connectivity,
		ordinal:         ordinal,
	}, nil
}

// loadNumMap returns the user ids of entities, identity when not stored.
func loadNumMap(ds dataset.Dataset, variable string, count int) ([]int, error) {
	if !ds.HasVariable(variable) {
		ids := make([]int, count)
		for i := range ids {
			ids[i] = i + 1
		}

		return ids, nil
	}

	ids, err := ds.Ints(variable)
	if err != nil {
		return nil, karma.Format(err, "unable to read %s", variable)
	}

	if len(ids) != count {
		return nil, karma.Format(
			nil,
			"%s holds %d ids, expected %d",
			variable,
			len(ids),
			count,
		)
	}

	return ids, nil
}
