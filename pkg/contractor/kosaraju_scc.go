package contractor

import (
	"github.com/lintang-b-s/navigatorx-ch/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-ch/pkg/util"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// StronglyConnectedComponents returns the strongly connected components of the indexed graph
// (kosaraju). each component is sorted by vertex id, components are sorted by size descending
// and then by their smallest vertex id.
func StronglyConnectedComponents(indexer *datastructure.SimpleIndexer) [][]datastructure.VertexID {
	ids := indexer.VertexIDs()
	order := make([]datastructure.VertexID, 0, len(ids))
	visited := make(map[datastructure.VertexID]bool, len(ids))

	for _, id := range ids {
		if !visited[id] {
			dfs(indexer, id, &order, visited, false)
		}
	}

	order = util.ReverseG(order)

	// reset visited
	visited = make(map[datastructure.VertexID]bool, len(ids))

	components := make([][]datastructure.VertexID, 0)
	for _, v := range order {
		if !visited[v] {
			component := make([]datastructure.VertexID, 0)
			dfs(indexer, v, &component, visited, true)
			slices.Sort(component)
			components = append(components, component)
		}
	}

	slices.SortFunc(components, func(a, b []datastructure.VertexID) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return cmpVertexID(a[0], b[0])
	})
	return components
}

// dfs appends the vertices reachable from v in post order. reversed follows inward edges.
// iterative, road networks are deep enough to overflow a recursive walk.
func dfs(indexer *datastructure.SimpleIndexer, v datastructure.VertexID, output *[]datastructure.VertexID,
	visited map[datastructure.VertexID]bool, reversed bool) {
	type frame struct {
		id   datastructure.VertexID
		next int
	}

	visited[v] = true
	stack := []frame{{id: v}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		conn := indexer.Find(top.id)

		edges := conn.Outwards
		if reversed {
			edges = conn.Inwards
		}

		pushed := false
		for top.next < len(edges) {
			e := edges[top.next]
			top.next++
			adj := e.To
			if reversed {
				adj = e.From
			}
			if !visited[adj] {
				visited[adj] = true
				stack = append(stack, frame{id: adj})
				pushed = true
				break
			}
		}
		if pushed {
			continue
		}

		*output = append(*output, top.id)
		stack = stack[:len(stack)-1]
	}
}

func cmpVertexID(a, b datastructure.VertexID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// LargestComponent returns the subgraph of graph spanned by its largest strongly connected
// component, so every remaining vertex can reach every other one.
func LargestComponent(graph *datastructure.RoadGraph, logger *slog.Logger) *datastructure.RoadGraph {
	if logger == nil {
		logger = slog.Default()
	}
	components := StronglyConnectedComponents(datastructure.CreateFromRawGraph(graph, logger))
	if len(components) == 0 {
		return graph
	}

	keep := NewVertexSet(components[0]...)
	sub := graph.Subgraph(keep.Has)
	logger.Info("kept the largest strongly connected component", "components", len(components),
		"vertices", sub.NumVertices(), "dropped", graph.NumVertices()-sub.NumVertices())
	return sub
}
