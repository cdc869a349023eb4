package contractor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lintang-b-s/navigatorx-ch/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractLiteratureCycle(t *testing.T) (*datastructure.RoadGraph, *ContractionInfo) {
	t.Helper()
	graph := newLiteratureCycleGraph()
	processor := NewContractionProcessor(datastructure.CreateFromRawGraph(graph, discardLogger),
		testConfig(), discardLogger, nil)
	info, err := processor.Contract(context.Background(), []datastructure.VertexID{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	return graph, info
}

func TestContractionInfoFileRoundTrip(t *testing.T) {
	_, info := contractLiteratureCycle(t)

	path := filepath.Join(t.TempDir(), "contraction_info.zst")
	require.NoError(t, info.SaveToFile(path))

	loaded, err := LoadContractionInfo(path)
	require.NoError(t, err)
	assert.Equal(t, info.OrderedVertexIDs, loaded.OrderedVertexIDs)
	assert.Equal(t, info.Shortcuts, loaded.Shortcuts)

	_, err = LoadContractionInfo(filepath.Join(t.TempDir(), "missing.zst"))
	assert.Error(t, err)
}

func TestContractionInfoValidate(t *testing.T) {
	graph, info := contractLiteratureCycle(t)
	require.NoError(t, info.Validate(graph))

	tests := []struct {
		name   string
		mutate func(c *ContractionInfo)
	}{
		{"unknown constituent", func(c *ContractionInfo) { c.Shortcuts[0].Left = 999 }},
		{"constituents do not meet", func(c *ContractionInfo) { c.Shortcuts[0].Left, c.Shortcuts[0].Right = c.Shortcuts[0].Right, c.Shortcuts[0].Left }},
		{"reused id", func(c *ContractionInfo) { c.Shortcuts[0].ID = 0 }},
		{"later shortcut used first", func(c *ContractionInfo) {
			c.Shortcuts[0], c.Shortcuts[len(c.Shortcuts)-1] = c.Shortcuts[len(c.Shortcuts)-1], c.Shortcuts[0]
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := &ContractionInfo{
				OrderedVertexIDs: append([]datastructure.VertexID{}, info.OrderedVertexIDs...),
				Shortcuts:        append([]datastructure.Edge{}, info.Shortcuts...),
			}
			tt.mutate(broken)
			assert.ErrorIs(t, broken.Validate(graph), ErrInvalidShortcut)
		})
	}

	t.Run("unknown vertex in order", func(t *testing.T) {
		broken := &ContractionInfo{OrderedVertexIDs: []datastructure.VertexID{1, 42}}
		assert.ErrorIs(t, broken.Validate(graph), ErrVertexNotFound)
	})

	t.Run("vertex contracted twice", func(t *testing.T) {
		broken := &ContractionInfo{OrderedVertexIDs: []datastructure.VertexID{1, 1}}
		assert.Error(t, broken.Validate(graph))
	})
}

func TestContractionInfoRebuild(t *testing.T) {
	graph, info := contractLiteratureCycle(t)

	h, err := info.Rebuild(graph, discardLogger)
	require.NoError(t, err)
	assert.Equal(t, graph.NumVertices(), h.Indexer.NumVertices())
	assert.Len(t, h.Indexer.Edges(), graph.NumEdges()+len(info.Shortcuts))
	for rank, id := range info.OrderedVertexIDs {
		assert.Equal(t, rank, h.Rank[id])
	}

	// shortcuts only add paths that already exist
	original := allPairsDistances(t, datastructure.CreateFromRawGraph(graph, discardLogger))
	requireDistancesPreserved(t, h.Indexer, original)

	// 6 -> 5 is built from 6 -> 4 (6 -> 1 -> 4) and 4 -> 5 (4 -> 3 -> 5)
	sc, ok := h.Indexer.FindEdge(6, 5)
	require.True(t, ok)
	require.True(t, sc.IsShortcut())

	path, err := h.Unpack(sc.ID)
	require.NoError(t, err)
	hops := make([]vertexPair, 0, len(path))
	length := 0.0
	for _, e := range path {
		assert.False(t, e.IsShortcut())
		hops = append(hops, vertexPair{e.From, e.To})
		length += e.Length
	}
	assert.Equal(t, []vertexPair{{6, 1}, {1, 4}, {4, 3}, {3, 5}}, hops)
	assert.Equal(t, sc.Length, length)

	_, err = h.Unpack(999)
	assert.ErrorIs(t, err, ErrInvalidShortcut)
}
