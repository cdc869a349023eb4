package datastructure

import "fmt"

type VertexID int64

type EdgeID int64

// NoEdge marks an absent provenance slot of a non-shortcut edge.
const NoEdge EdgeID = -1

// Vertex is a road junction. Immutable once constructed.
type Vertex struct {
	ID  VertexID
	Loc Coordinate
}

func NewVertex(id VertexID, loc Coordinate) Vertex {
	return Vertex{
		ID:  id,
		Loc: loc,
	}
}

/*
Edge. directed road segment from From to To.

a shortcut edge is synthesized during contraction from two edges Left (From -> via) and
Right (via -> To), Left.To == Right.From. a non shortcut edge has Left == Right == NoEdge.
edges are never mutated, a shortcut is always a new edge with a fresh ID.
*/
type Edge struct {
	ID       EdgeID
	From     VertexID
	To       VertexID
	Length   float64      // meter
	Points   []Coordinate // intermediate geometry, not used for routing
	Left     EdgeID
	Right    EdgeID
	Shortcut bool
}

func NewEdge(id EdgeID, from, to VertexID, length float64) Edge {
	return Edge{
		ID:     id,
		From:   from,
		To:     to,
		Length: length,
		Left:   NoEdge,
		Right:  NoEdge,
	}
}

func NewEdgeWithPoints(id EdgeID, from, to VertexID, length float64, points []Coordinate) Edge {
	e := NewEdge(id, from, to, length)
	e.Points = points
	return e
}

// NewShortcut creates the shortcut left.From -> right.To spanning the two edges.
func NewShortcut(id EdgeID, left, right Edge) (Edge, error) {
	if left.To != right.From {
		return Edge{}, fmt.Errorf("shortcut %d: edge %d ends at %d but edge %d starts at %d",
			id, left.ID, left.To, right.ID, right.From)
	}
	return Edge{
		ID:       id,
		From:     left.From,
		To:       right.To,
		Length:   left.Length + right.Length,
		Left:     left.ID,
		Right:    right.ID,
		Shortcut: true,
	}, nil
}

// Cost of traversing the edge.
// TODO: use travel time once the loader reads maxspeed tags.
func (e Edge) Cost() float64 {
	return e.Length
}

func (e Edge) IsShortcut() bool {
	return e.Shortcut
}

func (e Edge) String() string {
	if e.Shortcut {
		return fmt.Sprintf("shortcut %d (%d -> %d, %.3f, via %d + %d)", e.ID, e.From, e.To, e.Length, e.Left, e.Right)
	}
	return fmt.Sprintf("edge %d (%d -> %d, %.3f)", e.ID, e.From, e.To, e.Length)
}
