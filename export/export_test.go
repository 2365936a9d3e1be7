package export

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/kovetskiy/exomesh/exodus"
	"github.com/kovetskiy/exomesh/exodus/exodustest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

func TestSummarize(t *testing.T) {
	reader, err := exodus.New(exodustest.Quads(), "quads.e")
	require.NoError(t, err)
	defer reader.Close()

	summary, err := Summarize(reader)
	require.NoError(t, err)

	assert.Equal(t, []string{"quads.e"}, summary.Files)
	assert.Equal(t, 2, summary.Dimension)
	assert.Equal(t, 3, summary.Times.Steps)
	require.NotNil(t, summary.Times.First)
	require.NotNil(t, summary.Times.Last)
	assert.Equal(t, 0.0, *summary.Times.First)
	assert.Equal(t, 1.0, *summary.Times.Last)
	assert.Equal(t, []string{"temp", "c_Cr"}, summary.NodalVariables)

	require.Len(t, summary.Parts, 1)

	part := summary.Parts[0]
	assert.Equal(t, "netcdf3-64bit-offset", part.Format)
	assert.Equal(t, "two quads", part.Title)
	assert.Equal(t, 6, part.Nodes)
	assert.Equal(t, 2, part.Elements)
	assert.Equal(t, []string{"energy"}, part.GlobalVariables)
	assert.Equal(t, []BlockSummary{
		{ID: 10, Name: "left", Topology: "QUAD4", Elements: 1, NodesPerElement: 4},
		{ID: 20, Name: "right", Topology: "QUAD4", Elements: 1, NodesPerElement: 4},
	}, part.Blocks)
}

func TestSummarizeClosedReader(t *testing.T) {
	reader, err := exodus.New(exodustest.Quads(), "quads.e")
	require.NoError(t, err)
	require.NoError(t, reader.Close())

	_, err = Summarize(reader)
	assert.ErrorIs(t, err, exodus.ErrClosed)
}

func TestWriteSummary(t *testing.T) {
	first, last := 0.0, 0.5

	summary := &Summary{
		Files:     []string{"quads.e"},
		Dimension: 2,
		Times:     TimeRange{Steps: 2, First: &first, Last: &last},
		Parts: []PartSummary{
			{File: "quads.e", Format: "netcdf3-classic", Nodes: 6, Elements: 2},
		},
	}

	var buffer bytes.Buffer
	require.NoError(t, WriteSummary(&buffer, summary))

	assert.Contains(t, buffer.String(), "dimension: 2\n")
	assert.Contains(t, buffer.String(), "- file: quads.e\n")
	assert.Contains(t, buffer.String(), "times:\n  steps: 2\n  first: 0\n  last: 0.5\n")

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buffer.Bytes(), &decoded))
	assert.Equal(t, 2, decoded["dimension"])
}

func TestWriteSummaryWithoutSteps(t *testing.T) {
	summary := &Summary{Files: []string{"mesh.e"}, Dimension: 3}

	var buffer bytes.Buffer
	require.NoError(t, WriteSummary(&buffer, summary))

	assert.Contains(t, buffer.String(), "times:\n  steps: 0\n")
	assert.NotContains(t, buffer.String(), "first:")
	assert.NotContains(t, buffer.String(), "last:")
}

func TestParseEncoding(t *testing.T) {
	tests := map[string]struct {
		value       string
		want        Encoding
		expectedErr string
	}{
		"cbor":      {value: "cbor", want: EncodingCBOR},
		"uppercase": {value: "JSON", want: EncodingJSON},
		"unknown":   {value: "npz", expectedErr: "unknown encoding: npz"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			encoding, err := ParseEncoding(tt.value)
			if tt.expectedErr != "" {
				assert.EqualError(t, err, tt.expectedErr)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, encoding)
		})
	}
}

func newSnapshot() *exodus.Snapshot {
	return &exodus.Snapshot{
		Variable: "stress",
		Time:     0.5,
		X:        mat.NewDense(2, 2, []float64{0, 1, 1, 2}),
		Y:        mat.NewDense(2, 2, []float64{0, 0, 0, 0}),
		Z:        mat.NewDense(2, 2, nil),
		C:        []float64{11, math.NaN()},
	}
}

func TestWriteSnapshotCBOR(t *testing.T) {
	var buffer bytes.Buffer
	require.NoError(t, WriteSnapshot(&buffer, newSnapshot(), EncodingCBOR))

	var record Record
	require.NoError(t, cbor.Unmarshal(buffer.Bytes(), &record))

	assert.Equal(t, "stress", record.Variable)
	assert.Equal(t, 2, record.Elements)
	assert.Equal(t, 2, record.NodesPerElement)
	assert.Equal(t, [][]float64{{0, 1}, {1, 2}}, record.X)
	require.Len(t, record.C, 2)
	require.NotNil(t, record.C[0])
	assert.Equal(t, 11.0, *record.C[0])
	assert.Nil(t, record.C[1])
}

func TestWriteSnapshotJSON(t *testing.T) {
	var buffer bytes.Buffer
	require.NoError(t, WriteSnapshot(&buffer, newSnapshot(), EncodingJSON))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &decoded))

	assert.Equal(t, "stress", decoded["variable"])
	assert.Equal(t, []interface{}{11.0, nil}, decoded["c"])
}

func TestWriteSnapshotUnknownEncoding(t *testing.T) {
	err := WriteSnapshot(&bytes.Buffer{}, newSnapshot(), Encoding("npz"))
	assert.Error(t, err)
}
