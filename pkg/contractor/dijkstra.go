package contractor

import (
	"fmt"

	"github.com/lintang-b-s/navigatorx-ch/pkg/datastructure"
)

// SearchNode is a finalized vertex of a search tree: its shortest distance from the start and
// the edge through which it was reached.
type SearchNode struct {
	Cost float64
	Edge datastructure.Edge
}

// SearchTree is the result of RunDijkstra. the start vertex is settled at cost 0 but has no node.
type SearchTree struct {
	start datastructure.VertexID
	nodes map[datastructure.VertexID]SearchNode
}

func newSearchTree(start datastructure.VertexID) *SearchTree {
	return &SearchTree{
		start: start,
		nodes: make(map[datastructure.VertexID]SearchNode),
	}
}

func (t *SearchTree) Start() datastructure.VertexID {
	return t.start
}

func (t *SearchTree) Find(id datastructure.VertexID) (SearchNode, bool) {
	node, ok := t.nodes[id]
	return node, ok
}

func (t *SearchTree) Size() int {
	return len(t.nodes)
}

func (t *SearchTree) settled(id datastructure.VertexID) bool {
	if id == t.start {
		return true
	}
	_, ok := t.nodes[id]
	return ok
}

// VertexSet is a set of vertex ids.
type VertexSet map[datastructure.VertexID]struct{}

func NewVertexSet(ids ...datastructure.VertexID) VertexSet {
	set := make(VertexSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s VertexSet) Has(id datastructure.VertexID) bool {
	_, ok := s[id]
	return ok
}

/*
RunDijkstra. bounded multi target dijkstra over the current index, starting from start.

stops as soon as every goal is settled, or when nothing reachable is left. goals can be empty,
then the whole reachable part of the graph is settled. a start vertex listed in goals counts as
settled from the beginning. the frontier is a binary heap without decrease key: a vertex is pushed
again every time its tentative cost improves and the older entries are skipped when popped.
*/
func RunDijkstra(indexer *datastructure.SimpleIndexer, start datastructure.VertexID, goals VertexSet) (*SearchTree, error) {
	tree := newSearchTree(start)

	hits := 0
	if goals.Has(start) {
		hits++
	}
	if len(goals) > 0 && hits == len(goals) {
		return tree, nil
	}

	frontier := datastructure.NewMinHeap[datastructure.Edge]()
	bestKnown := make(map[datastructure.VertexID]float64)

	current, currentCost := start, 0.0
	for {
		conn := indexer.Find(current)
		if conn == nil {
			return nil, fmt.Errorf("dijkstra from %d cannot expand vertex %d: %w", start, current, ErrVertexNotFound)
		}

		for _, edge := range conn.Outwards {
			if tree.settled(edge.To) {
				continue
			}
			cost := currentCost + edge.Cost()
			if best, ok := bestKnown[edge.To]; ok && cost >= best {
				continue
			}
			bestKnown[edge.To] = cost
			frontier.Insert(datastructure.PriorityQueueNode[datastructure.Edge]{Rank: cost, Item: edge})
		}

		next, ok := popUnsettled(frontier, tree)
		if !ok {
			// exhausted, some goals are unreachable
			return tree, nil
		}

		tree.nodes[next.Item.To] = SearchNode{Cost: next.Rank, Edge: next.Item}
		current, currentCost = next.Item.To, next.Rank

		if goals.Has(current) {
			hits++
			if hits == len(goals) {
				return tree, nil
			}
		}
	}
}

// popUnsettled pops until it finds an entry whose target is not settled yet.
func popUnsettled(frontier *datastructure.MinHeap[datastructure.Edge],
	tree *SearchTree) (datastructure.PriorityQueueNode[datastructure.Edge], bool) {
	for !frontier.IsEmpty() {
		node, err := frontier.ExtractMin()
		if err != nil {
			break
		}
		if !tree.settled(node.Item.To) {
			return node, true
		}
	}
	return datastructure.PriorityQueueNode[datastructure.Edge]{}, false
}
