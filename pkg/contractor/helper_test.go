package contractor

import (
	"io"
	"math"
	"testing"

	"github.com/lintang-b-s/navigatorx-ch/pkg/config"
	"github.com/lintang-b-s/navigatorx-ch/pkg/datastructure"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slog"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

func testConfig() config.Contraction {
	return config.Default().Contraction
}

/*
dari https://jlazarsfeld.github.io/ch.150.project/sections/8-contraction/
p=1, v=2, q=3, w=4, r=5

	 p
	  \
	   10
	    \
	     v -----3----- r
	    /             /
	   6             5
	  /             /
	 q ------5---- w

semua edge bidirectional. kontraksi v menghasilkan shortcut p-q (16), p-r (13) dan q-r (9),
q-w-r (10) lebih mahal dari q-v-r (9).
*/
func newLazarsfeldGraph() *datastructure.RoadGraph {
	return datastructure.NewRoadGraphBuilder().
		AddBidirectionalEdge(1, 2, 10).
		AddBidirectionalEdge(2, 5, 3).
		AddBidirectionalEdge(2, 3, 6).
		AddBidirectionalEdge(3, 4, 5).
		AddBidirectionalEdge(4, 5, 5).
		Build()
}

/*
6 vertex graph, semua edge bidirectional:

	2 --2-- 6 --3-- 1 --2-- 4 --1-- 3 --2-- 5
*/
func newLiteratureCycleGraph() *datastructure.RoadGraph {
	return datastructure.NewRoadGraphBuilder().
		AddBidirectionalEdge(2, 6, 2).
		AddBidirectionalEdge(6, 1, 3).
		AddBidirectionalEdge(1, 4, 2).
		AddBidirectionalEdge(3, 5, 2).
		AddBidirectionalEdge(3, 4, 1).
		Build()
}

// newRandomGraph builds a directed graph with integer lengths, so path costs are exact.
func newRandomGraph(seed uint64, numVertices, numEdges int) *datastructure.RoadGraph {
	r := rand.New(rand.NewSource(seed))
	b := datastructure.NewRoadGraphBuilder()
	for i := 1; i <= numVertices; i++ {
		b.AddVertex(datastructure.VertexID(i))
	}
	for i := 0; i < numEdges; i++ {
		from := datastructure.VertexID(1 + r.Intn(numVertices))
		to := datastructure.VertexID(1 + r.Intn(numVertices))
		b.AddEdge(from, to, float64(1+r.Intn(10)))
	}
	return b.Build()
}

type vertexPair [2]datastructure.VertexID

// allPairsDistances runs an unbounded dijkstra from every vertex of the index.
func allPairsDistances(t *testing.T, indexer *datastructure.SimpleIndexer) map[vertexPair]float64 {
	t.Helper()
	dist := make(map[vertexPair]float64)
	for _, u := range indexer.VertexIDs() {
		tree, err := RunDijkstra(indexer, u, NewVertexSet())
		require.NoError(t, err)
		dist[vertexPair{u, u}] = 0
		for _, v := range indexer.VertexIDs() {
			if node, ok := tree.Find(v); ok {
				dist[vertexPair{u, v}] = node.Cost
			}
		}
	}
	return dist
}

// requireDistancesPreserved checks every pair of vertices still in the index against the
// distances of the original graph.
func requireDistancesPreserved(t *testing.T, indexer *datastructure.SimpleIndexer, original map[vertexPair]float64) {
	t.Helper()
	current := allPairsDistances(t, indexer)
	for _, u := range indexer.VertexIDs() {
		for _, v := range indexer.VertexIDs() {
			want, wantOk := original[vertexPair{u, v}]
			got, gotOk := current[vertexPair{u, v}]
			require.Equal(t, wantOk, gotOk, "reachability %d -> %d", u, v)
			if wantOk {
				require.True(t, math.Abs(want-got) < 1e-9, "distance %d -> %d: want %v, got %v", u, v, want, got)
			}
		}
	}
}

// requireIndexConsistent checks that every edge is mirrored on both endpoints.
func requireIndexConsistent(t *testing.T, indexer *datastructure.SimpleIndexer) {
	t.Helper()
	for _, id := range indexer.VertexIDs() {
		conn := indexer.Find(id)
		for _, out := range conn.Outwards {
			to := indexer.Find(out.To)
			require.NotNil(t, to, "edge %d points to missing vertex %d", out.ID, out.To)
			require.Contains(t, to.Inwards, out)
		}
		for _, in := range conn.Inwards {
			from := indexer.Find(in.From)
			require.NotNil(t, from, "edge %d comes from missing vertex %d", in.ID, in.From)
			require.Contains(t, from.Outwards, in)
		}
	}
}
