// Package export writes what was read from Exodus files in formats other
// programs consume: a YAML summary for people and encoded snapshots for
// plotting tools.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/kovetskiy/exomesh/exodus"
	"github.com/reconquest/karma-go"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

type Summary struct {
	Files            []string      `yaml:"files"`
	Dimension        int           `yaml:"dimension"`
	NodalVariables   []string      `yaml:"nodal_variables"`
	ElementVariables []string      `yaml:"element_variables"`
	Times            TimeRange     `yaml:"times"`
	Parts            []PartSummary `yaml:"parts"`
}

// TimeRange has no first and last time when the file stores no steps.
type TimeRange struct {
	Steps int      `yaml:"steps"`
	First *float64 `yaml:"first,omitempty"`
	Last  *float64 `yaml:"last,omitempty"`
}

type PartSummary struct {
	File            string         `yaml:"file"`
	Format          string         `yaml:"format"`
	Title           string         `yaml:"title,omitempty"`
	Nodes           int            `yaml:"nodes"`
	Elements        int            `yaml:"elements"`
	Steps           int            `yaml:"steps"`
	GlobalVariables []string       `yaml:"global_variables,omitempty"`
	Blocks          []BlockSummary `yaml:"blocks"`
}

type BlockSummary struct {
	ID              int    `yaml:"id"`
	Name            string `yaml:"name,omitempty"`
	Topology        string `yaml:"topology,omitempty"`
	Elements        int    `yaml:"elements"`
	NodesPerElement int    `yaml:"nodes_per_element"`
}

func Summarize(source exodus.Source) (*Summary, error) {
	times := source.Times()

	summary := &Summary{
		Files:            source.Files(),
		Dimension:        source.Dim(),
		NodalVariables:   source.NodalVarNames(),
		ElementVariables: source.ElemVarNames(),
		Times:            TimeRange{Steps: len(times)},
	}

	if len(times) > 0 {
		first, last := times[0], times[len(times)-1]
		summary.Times.First = &first
		summary.Times.Last = &last
	}

	for _, part := range source.Parts() {
		mesh, err := part.GetMesh()
		if err != nil {
			return nil, err
		}

		partSummary := PartSummary{
			File:            part.Name(),
			Format:          part.Format().String(),
			Title:           part.Title(),
			Nodes:           mesh.NumNodes(),
			Elements:        mesh.NumElements(),
			Steps:           part.NumSteps(),
			GlobalVariables: part.GlobalVarNames(),
		}

		for _, block := range mesh.Blocks {
			partSummary.Blocks = append(partSummary.Blocks, BlockSummary{
				ID:              block.ID,
				Name:            block.Name,
				Topology:        block.Topology,
				Elements:        block.NumElements(),
				NodesPerElement: block.NodesPerElement,
			})
		}

		summary.Parts = append(summary.Parts, partSummary)
	}

	return summary, nil
}

func WriteSummary(writer io.Writer, summary *Summary) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)

	err := encoder.Encode(summary)
	if err != nil {
		return karma.Format(err, "unable to encode summary")
	}

	return encoder.Close()
}

type Encoding string

const (
	EncodingCBOR Encoding = "cbor"
	EncodingJSON Encoding = "json"
)

func ParseEncoding(value string) (Encoding, error) {
	switch encoding := Encoding(strings.ToLower(value)); encoding {
	case EncodingCBOR, EncodingJSON:
		return encoding, nil
	}

	return "", fmt.Errorf("unknown encoding: %s", value)
}

// Record is the encoded form of a snapshot. Values missing from a block
// are encoded as null.
type Record struct {
	Variable        string      `cbor:"variable" json:"variable"`
	Time            float64     `cbor:"time" json:"time"`
	Elements        int         `cbor:"elements" json:"elements"`
	NodesPerElement int         `cbor:"nodes_per_element" json:"nodes_per_element"`
	X               [][]float64 `cbor:"x" json:"x"`
	Y               [][]float64 `cbor:"y" json:"y"`
	Z               [][]float64 `cbor:"z" json:"z"`
	C               []*float64  `cbor:"c" json:"c"`
}

func NewRecord(snapshot *exodus.Snapshot) *Record {
	_, width := snapshot.X.Dims()

	record := &Record{
		Variable:        snapshot.Variable,
		Time:            snapshot.Time,
		Elements:        snapshot.NumElements(),
		NodesPerElement: width,
		X:               rows(snapshot.X),
		Y:               rows(snapshot.Y),
		Z:               rows(snapshot.Z),
		C:               make([]*float64, len(snapshot.C)),
	}

	for i := range snapshot.C {
		if math.IsNaN(snapshot.C[i]) {
			continue
		}

		value := snapshot.C[i]
		record.C[i] = &value
	}

	return record
}

func rows(matrix *mat.Dense) [][]float64 {
	count, _ := matrix.Dims()

	result := make([][]float64, count)
	for i := range result {
		result[i] = mat.Row(nil, i, matrix)
	}

	return result
}

func WriteSnapshot(
	writer io.Writer,
	snapshot *exodus.Snapshot,
	encoding Encoding,
) error {
	record := NewRecord(snapshot)

	var err error
	switch encoding {
	case EncodingCBOR:
		err = cbor.NewEncoder(writer).Encode(record)
	case EncodingJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(record)
	default:
		return fmt.Errorf("unknown encoding: %s", encoding)
	}

	if err != nil {
		return karma.Format(
			err,
			"unable to encode snapshot of %q as %s",
			snapshot.Variable,
			encoding,
		)
	}

	return nil
}
