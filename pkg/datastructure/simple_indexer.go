package datastructure

import (
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// ConnectionInfo is the adjacency record of one un-contracted vertex.
type ConnectionInfo struct {
	Vertex   Vertex
	Inwards  []Edge
	Outwards []Edge
}

func newConnectionInfo(v Vertex) *ConnectionInfo {
	return &ConnectionInfo{
		Vertex:   v,
		Inwards:  make([]Edge, 0),
		Outwards: make([]Edge, 0),
	}
}

// Degree is the number of inward plus outward edges.
func (c *ConnectionInfo) Degree() int {
	return len(c.Inwards) + len(c.Outwards)
}

/*
SimpleIndexer. mutable adjacency index of the graph being contracted.

invariant: an edge in the outwards of vertex u is also in the inwards of vertex w (edge u->w),
as long as both u and w are in the index. RemoveVertex keeps it by scrubbing every edge that
touches the removed vertex from its neighbours.
*/
type SimpleIndexer struct {
	connections map[VertexID]*ConnectionInfo
	maxEdgeID   EdgeID
}

func NewSimpleIndexer() *SimpleIndexer {
	return &SimpleIndexer{
		connections: make(map[VertexID]*ConnectionInfo),
		maxEdgeID:   NoEdge,
	}
}

// CreateFromRawGraph adds every vertex and then every edge of the graph. edges whose endpoints
// are not in the graph are logged and skipped, their ids still count for MaxEdgeID.
func CreateFromRawGraph(graph *RoadGraph, logger *slog.Logger) *SimpleIndexer {
	if logger == nil {
		logger = slog.Default()
	}
	indexer := NewSimpleIndexer()

	for _, v := range graph.Vertices() {
		if !indexer.AddVertex(v) {
			logger.Warn("SimpleIndexer cannot AddVertex, duplicate vertex", "vertex", v.ID)
		}
	}

	skipped := 0
	for _, e := range graph.Edges() {
		if !indexer.AddEdge(e) {
			logger.Warn("SimpleIndexer cannot AddEdge", "edge", e.ID, "from", e.From, "to", e.To)
			skipped++
			if e.ID > indexer.maxEdgeID {
				indexer.maxEdgeID = e.ID
			}
		}
	}

	logger.Info("adjacency index created", "vertices", len(indexer.connections),
		"edges", graph.NumEdges()-skipped, "skipped", skipped)
	return indexer
}

// Find returns the connection info of the vertex or nil if it is not in the index.
// The returned record is owned by the index and must not be kept across RemoveVertex.
func (s *SimpleIndexer) Find(vertexID VertexID) *ConnectionInfo {
	return s.connections[vertexID]
}

func (s *SimpleIndexer) Has(vertexID VertexID) bool {
	_, ok := s.connections[vertexID]
	return ok
}

// AddVertex returns false if the vertex is already present.
func (s *SimpleIndexer) AddVertex(v Vertex) bool {
	if _, ok := s.connections[v.ID]; ok {
		return false
	}
	s.connections[v.ID] = newConnectionInfo(v)
	return true
}

// AddEdge returns false, without touching the index, if either endpoint is missing.
func (s *SimpleIndexer) AddEdge(e Edge) bool {
	from, ok := s.connections[e.From]
	if !ok {
		return false
	}
	to, ok := s.connections[e.To]
	if !ok {
		return false
	}
	from.Outwards = append(from.Outwards, e)
	to.Inwards = append(to.Inwards, e)
	if e.ID > s.maxEdgeID {
		s.maxEdgeID = e.ID
	}
	return true
}

// RemoveVertex drops the vertex and every edge touching it. no-op if the vertex is absent.
func (s *SimpleIndexer) RemoveVertex(vertexID VertexID) {
	conn, ok := s.connections[vertexID]
	if !ok {
		return
	}

	for _, in := range conn.Inwards {
		if pred, ok := s.connections[in.From]; ok {
			pred.Outwards = removeEdge(pred.Outwards, in.ID)
		}
	}
	for _, out := range conn.Outwards {
		if succ, ok := s.connections[out.To]; ok {
			succ.Inwards = removeEdge(succ.Inwards, out.ID)
		}
	}

	delete(s.connections, vertexID)
}

// removeEdge deletes the edge with the given id keeping the order of the rest.
func removeEdge(edges []Edge, id EdgeID) []Edge {
	for i := range edges {
		if edges[i].ID == id {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return edges
}

// FindEdge returns the first outward edge of from that ends at to.
func (s *SimpleIndexer) FindEdge(from, to VertexID) (Edge, bool) {
	conn, ok := s.connections[from]
	if !ok {
		return Edge{}, false
	}
	for _, e := range conn.Outwards {
		if e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// VertexIDs returns the ids of all vertices in the index in ascending order.
func (s *SimpleIndexer) VertexIDs() []VertexID {
	ids := make([]VertexID, 0, len(s.connections))
	for id := range s.connections {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *SimpleIndexer) NumVertices() int {
	return len(s.connections)
}

// MaxEdgeID is the largest edge id ever added or skipped by CreateFromRawGraph, NoEdge for an
// index without edges. Removing edges does not lower it, so ids above it were never used.
func (s *SimpleIndexer) MaxEdgeID() EdgeID {
	return s.maxEdgeID
}

// Edges returns every edge currently in the index, ordered by source vertex id.
func (s *SimpleIndexer) Edges() []Edge {
	edges := make([]Edge, 0)
	for _, id := range s.VertexIDs() {
		edges = append(edges, s.connections[id].Outwards...)
	}
	return edges
}
