package datastructure

import "fmt"

// RoadGraph owns the original vertices and edges for the whole preprocessing run.
type RoadGraph struct {
	vertices    []Vertex
	edges       []Edge
	vertexIndex map[VertexID]int
}

// NewRoadGraph builds a graph from vertices and edges. vertex IDs must be unique, every edge
// endpoint should be one of the vertices (edges that are not are dropped later by the indexer).
func NewRoadGraph(vertices []Vertex, edges []Edge) (*RoadGraph, error) {
	g := &RoadGraph{
		vertices:    vertices,
		edges:       edges,
		vertexIndex: make(map[VertexID]int, len(vertices)),
	}
	for i, v := range vertices {
		if _, ok := g.vertexIndex[v.ID]; ok {
			return nil, fmt.Errorf("duplicate vertex id %d", v.ID)
		}
		g.vertexIndex[v.ID] = i
	}
	return g, nil
}

func (g *RoadGraph) Vertices() []Vertex {
	return g.vertices
}

func (g *RoadGraph) Edges() []Edge {
	return g.edges
}

func (g *RoadGraph) GetVertex(id VertexID) (Vertex, bool) {
	idx, ok := g.vertexIndex[id]
	if !ok {
		return Vertex{}, false
	}
	return g.vertices[idx], true
}

func (g *RoadGraph) NumVertices() int {
	return len(g.vertices)
}

func (g *RoadGraph) NumEdges() int {
	return len(g.edges)
}

// RoadGraphBuilder builds a RoadGraph edge by edge, mostly for tests.
// Vertices are created on first use, edge ids are assigned sequentially from 0.
type RoadGraphBuilder struct {
	vertices []Vertex
	seen     map[VertexID]struct{}
	edges    []Edge
}

func NewRoadGraphBuilder() *RoadGraphBuilder {
	return &RoadGraphBuilder{
		seen: make(map[VertexID]struct{}),
	}
}

func (b *RoadGraphBuilder) AddVertex(id VertexID) *RoadGraphBuilder {
	if _, ok := b.seen[id]; ok {
		return b
	}
	b.seen[id] = struct{}{}
	b.vertices = append(b.vertices, NewVertex(id, Coordinate{}))
	return b
}

func (b *RoadGraphBuilder) AddEdge(from, to VertexID, length float64) *RoadGraphBuilder {
	b.AddVertex(from)
	b.AddVertex(to)
	b.edges = append(b.edges, NewEdge(EdgeID(len(b.edges)), from, to, length))
	return b
}

// AddBidirectionalEdge adds from -> to and to -> from with the same length.
func (b *RoadGraphBuilder) AddBidirectionalEdge(from, to VertexID, length float64) *RoadGraphBuilder {
	return b.AddEdge(from, to, length).AddEdge(to, from, length)
}

func (b *RoadGraphBuilder) Build() *RoadGraph {
	g, err := NewRoadGraph(b.vertices, b.edges)
	if err != nil {
		// vertices are deduplicated by AddVertex
		panic(err)
	}
	return g
}

// Subgraph returns the graph made of the vertices keep accepts and the edges between them.
// edge ids are kept.
func (g *RoadGraph) Subgraph(keep func(id VertexID) bool) *RoadGraph {
	vertices := make([]Vertex, 0)
	for _, v := range g.vertices {
		if keep(v.ID) {
			vertices = append(vertices, v)
		}
	}
	sub := &RoadGraph{
		vertices:    vertices,
		edges:       make([]Edge, 0),
		vertexIndex: make(map[VertexID]int, len(vertices)),
	}
	for i, v := range vertices {
		sub.vertexIndex[v.ID] = i
	}
	for _, e := range g.edges {
		_, okFrom := sub.vertexIndex[e.From]
		_, okTo := sub.vertexIndex[e.To]
		if okFrom && okTo {
			sub.edges = append(sub.edges, e)
		}
	}
	return sub
}
