package contractor

import (
	"fmt"

	"github.com/lintang-b-s/navigatorx-ch/pkg/datastructure"
)

// ShortcutCollector allocates shortcut ids and keeps the shortcuts created so far.
// ids start above every edge id of the index and are never reused.
type ShortcutCollector struct {
	nextID    datastructure.EdgeID
	shortcuts []datastructure.Edge
}

func NewShortcutCollector(firstID datastructure.EdgeID) *ShortcutCollector {
	return &ShortcutCollector{
		nextID:    firstID,
		shortcuts: make([]datastructure.Edge, 0),
	}
}

// Add creates the shortcut left.From -> right.To.
func (c *ShortcutCollector) Add(left, right datastructure.Edge) (datastructure.Edge, error) {
	shortcut, err := datastructure.NewShortcut(c.nextID, left, right)
	if err != nil {
		return datastructure.Edge{}, fmt.Errorf("%w: %v", ErrInvalidShortcut, err)
	}
	c.nextID++
	c.shortcuts = append(c.shortcuts, shortcut)
	return shortcut, nil
}

func (c *ShortcutCollector) Len() int {
	return len(c.shortcuts)
}

// Release hands the collected shortcuts to the caller and starts a new batch. ids keep counting up.
func (c *ShortcutCollector) Release() []datastructure.Edge {
	shortcuts := c.shortcuts
	c.shortcuts = make([]datastructure.Edge, 0)
	return shortcuts
}

/*
SingleContractionPlan. the shortcuts needed to contract one vertex, computed without touching the
index. every pair is (incoming edge p -> center, outgoing edge center -> goal) where p -> center ->
goal is a shortest path found by a witness search from p.
*/
type SingleContractionPlan struct {
	center    datastructure.VertexID
	hasCenter bool
	pairs     [][2]datastructure.Edge
	inDegree  int
	outDegree int
	searches  int
}

// DryRun plans the contraction of centerID. the plan is empty if the vertex is not in the index.
func DryRun(indexer *datastructure.SimpleIndexer, centerID datastructure.VertexID) (SingleContractionPlan, error) {
	conn := indexer.Find(centerID)
	if conn == nil {
		return SingleContractionPlan{}, nil
	}

	plan := SingleContractionPlan{
		center:    centerID,
		hasCenter: true,
		pairs:     make([][2]datastructure.Edge, 0),
		inDegree:  len(conn.Inwards),
		outDegree: len(conn.Outwards),
	}

	goalIDs := make([]datastructure.VertexID, 0, len(conn.Outwards))
	goals := NewVertexSet()
	for _, out := range conn.Outwards {
		if !goals.Has(out.To) {
			goals[out.To] = struct{}{}
			goalIDs = append(goalIDs, out.To)
		}
	}

	starts := NewVertexSet()
	for _, in := range conn.Inwards {
		start := in.From
		if starts.Has(start) {
			continue
		}
		starts[start] = struct{}{}

		tree, err := RunDijkstra(indexer, start, goals)
		plan.searches++
		if err != nil {
			return SingleContractionPlan{}, fmt.Errorf("witness search for vertex %d: %w", centerID, err)
		}

		// center must be reached directly from start, otherwise start -> center is not a shortest path
		centerNode, ok := tree.Find(centerID)
		if !ok || centerNode.Edge.From != start {
			continue
		}

		for _, goalID := range goalIDs {
			goal, ok := tree.Find(goalID)
			if !ok || goal.Edge.From != centerID {
				continue
			}
			plan.pairs = append(plan.pairs, [2]datastructure.Edge{centerNode.Edge, goal.Edge})
		}
	}

	return plan, nil
}

func (p *SingleContractionPlan) Center() (datastructure.VertexID, bool) {
	return p.center, p.hasCenter
}

// Pairs returns the planned (incoming, outgoing) edge pairs.
func (p *SingleContractionPlan) Pairs() [][2]datastructure.Edge {
	return p.pairs
}

// WitnessSearches is the number of dijkstra runs made by the dry run.
func (p *SingleContractionPlan) WitnessSearches() int {
	return p.searches
}

// EdgeDifference is planned shortcuts minus the edges removed with the center. can be negative.
func (p *SingleContractionPlan) EdgeDifference() int {
	return len(p.pairs) - (p.inDegree + p.outDegree)
}

// CarryOut adds the planned shortcuts to the index and to collector, then removes the center.
// a plan can be carried out once, later calls return 0.
func (p *SingleContractionPlan) CarryOut(indexer *datastructure.SimpleIndexer, collector *ShortcutCollector) (int, error) {
	if !p.hasCenter {
		return 0, nil
	}

	count := 0
	for _, pair := range p.pairs {
		shortcut, err := collector.Add(pair[0], pair[1])
		if err != nil {
			return count, fmt.Errorf("contracting vertex %d: %w", p.center, err)
		}
		if !indexer.AddEdge(shortcut) {
			return count, fmt.Errorf("contracting vertex %d, shortcut %d (%d -> %d): %w",
				p.center, shortcut.ID, shortcut.From, shortcut.To, ErrVertexNotFound)
		}
		count++
	}

	indexer.RemoveVertex(p.center)
	p.hasCenter = false
	return count, nil
}
