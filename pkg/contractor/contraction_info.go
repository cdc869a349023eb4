package contractor

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/kelindar/binary"
	"github.com/lintang-b-s/navigatorx-ch/pkg/datastructure"
	"golang.org/x/exp/slog"
)

// ContractionInfo is the output of a contraction run: the vertices in the order they were
// contracted and every shortcut created. together with the original graph it is enough to
// rebuild the hierarchy.
type ContractionInfo struct {
	OrderedVertexIDs []datastructure.VertexID
	Shortcuts        []datastructure.Edge
}

type ShortcutRecord struct {
	ID     int64
	From   int64
	To     int64
	Left   int64
	Right  int64
	Length float64
}

type contractionInfoRecord struct {
	OrderedVertexIDs []int64
	Shortcuts        []ShortcutRecord
}

func NewShortcutRecord(e datastructure.Edge) ShortcutRecord {
	return ShortcutRecord{
		ID:     int64(e.ID),
		From:   int64(e.From),
		To:     int64(e.To),
		Left:   int64(e.Left),
		Right:  int64(e.Right),
		Length: e.Length,
	}
}

func (r ShortcutRecord) Edge() datastructure.Edge {
	return datastructure.Edge{
		ID:       datastructure.EdgeID(r.ID),
		From:     datastructure.VertexID(r.From),
		To:       datastructure.VertexID(r.To),
		Length:   r.Length,
		Left:     datastructure.EdgeID(r.Left),
		Right:    datastructure.EdgeID(r.Right),
		Shortcut: true,
	}
}

func (c *ContractionInfo) MarshalBinary() ([]byte, error) {
	rec := contractionInfoRecord{
		OrderedVertexIDs: make([]int64, len(c.OrderedVertexIDs)),
		Shortcuts:        make([]ShortcutRecord, len(c.Shortcuts)),
	}
	for i, id := range c.OrderedVertexIDs {
		rec.OrderedVertexIDs[i] = int64(id)
	}
	for i, sc := range c.Shortcuts {
		rec.Shortcuts[i] = NewShortcutRecord(sc)
	}
	return binary.Marshal(rec)
}

func (c *ContractionInfo) UnmarshalBinary(data []byte) error {
	var rec contractionInfoRecord
	if err := binary.Unmarshal(data, &rec); err != nil {
		return err
	}
	c.OrderedVertexIDs = make([]datastructure.VertexID, len(rec.OrderedVertexIDs))
	for i, id := range rec.OrderedVertexIDs {
		c.OrderedVertexIDs[i] = datastructure.VertexID(id)
	}
	c.Shortcuts = make([]datastructure.Edge, len(rec.Shortcuts))
	for i, sc := range rec.Shortcuts {
		c.Shortcuts[i] = sc.Edge()
	}
	return nil
}

// SaveToFile writes the contraction info zstd compressed.
func (c *ContractionInfo) SaveToFile(path string) error {
	data, err := c.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode contraction info: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := datastructure.CompressData(data, w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

func LoadContractionInfo(path string) (*ContractionInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := datastructure.DecompressData(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}

	info := &ContractionInfo{}
	if err := info.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("failed to decode contraction info %s: %w", path, err)
	}
	return info, nil
}

// Validate checks that the order lists vertices of graph at most once and that every shortcut is
// built from original edges or earlier shortcuts that meet at the contracted vertex.
func (c *ContractionInfo) Validate(graph *datastructure.RoadGraph) error {
	seen := make(map[datastructure.VertexID]struct{}, len(c.OrderedVertexIDs))
	for _, id := range c.OrderedVertexIDs {
		if _, ok := graph.GetVertex(id); !ok {
			return fmt.Errorf("ordered vertex %d: %w", id, ErrVertexNotFound)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("vertex %d contracted twice", id)
		}
		seen[id] = struct{}{}
	}

	known := make(map[datastructure.EdgeID]datastructure.Edge, graph.NumEdges()+len(c.Shortcuts))
	for _, e := range graph.Edges() {
		known[e.ID] = e
	}
	for _, sc := range c.Shortcuts {
		if _, ok := known[sc.ID]; ok {
			return fmt.Errorf("%w: shortcut %d reuses an edge id", ErrInvalidShortcut, sc.ID)
		}
		left, okLeft := known[sc.Left]
		right, okRight := known[sc.Right]
		if !okLeft || !okRight {
			return fmt.Errorf("%w: shortcut %d refers to unknown edge %d or %d", ErrInvalidShortcut, sc.ID, sc.Left, sc.Right)
		}
		if left.To != right.From || sc.From != left.From || sc.To != right.To {
			return fmt.Errorf("%w: shortcut %d (%d -> %d) does not join edges %d and %d",
				ErrInvalidShortcut, sc.ID, sc.From, sc.To, sc.Left, sc.Right)
		}
		known[sc.ID] = sc
	}
	return nil
}

// Hierarchy is a contraction hierarchy rebuilt from a graph and its ContractionInfo.
type Hierarchy struct {
	Indexer *datastructure.SimpleIndexer
	// Rank is the position of the vertex in the contraction order. vertices missing from the order
	// are not in the map.
	Rank  map[datastructure.VertexID]int
	edges map[datastructure.EdgeID]datastructure.Edge
}

// Rebuild adds the shortcuts to a fresh index of graph, without contracting anything.
func (c *ContractionInfo) Rebuild(graph *datastructure.RoadGraph, logger *slog.Logger) (*Hierarchy, error) {
	if err := c.Validate(graph); err != nil {
		return nil, err
	}

	h := &Hierarchy{
		Indexer: datastructure.CreateFromRawGraph(graph, logger),
		Rank:    make(map[datastructure.VertexID]int, len(c.OrderedVertexIDs)),
		edges:   make(map[datastructure.EdgeID]datastructure.Edge, graph.NumEdges()+len(c.Shortcuts)),
	}
	for _, e := range graph.Edges() {
		h.edges[e.ID] = e
	}
	for _, sc := range c.Shortcuts {
		if !h.Indexer.AddEdge(sc) {
			return nil, fmt.Errorf("%w: shortcut %d endpoints are not in the graph", ErrInvalidShortcut, sc.ID)
		}
		h.edges[sc.ID] = sc
	}
	for rank, id := range c.OrderedVertexIDs {
		h.Rank[id] = rank
	}
	return h, nil
}

// Unpack expands an edge into the original edges it stands for, in path order.
func (h *Hierarchy) Unpack(id datastructure.EdgeID) ([]datastructure.Edge, error) {
	path := make([]datastructure.Edge, 0)
	stack := []datastructure.EdgeID{id}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		e, ok := h.edges[top]
		if !ok {
			return nil, fmt.Errorf("%w: unknown edge %d", ErrInvalidShortcut, top)
		}
		if !e.IsShortcut() {
			path = append(path, e)
			continue
		}
		// right is pushed first so left is expanded first
		stack = append(stack, e.Right, e.Left)
	}
	return path, nil
}

// String dumps the order and shortcuts, one per line.
func (c *ContractionInfo) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "order: %v\n", c.OrderedVertexIDs)
	for _, sc := range c.Shortcuts {
		fmt.Fprintln(&buf, sc.String())
	}
	return buf.String()
}
