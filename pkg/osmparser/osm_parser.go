package osmparser

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lintang-b-s/navigatorx-ch/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-ch/pkg/geo"
	"github.com/lintang-b-s/navigatorx-ch/pkg/util"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"golang.org/x/exp/slog"
)

type Format int

const (
	FormatXML Format = iota
	FormatPBF
)

// FormatFromPath guesses the format from the file extension, .pbf is protobuf, anything else xml.
func FormatFromPath(path string) Format {
	if strings.HasSuffix(path, ".pbf") {
		return FormatPBF
	}
	return FormatXML
}

type Options struct {
	Format Format
	// also make way endpoints vertices, not only nodes tagged vertex=*.
	EndpointsAsVertices bool
	// nodes shared by two accepted ways (or visited twice by one way) become vertices.
	SplitAtJunctions bool
	// drop ways that touch no junction. needs nothing else, junctions are always extracted.
	DropIsolatedRoads bool
	// add the reverse edge for ways that are not oneway.
	TwoWay bool
	// nil accepts every way.
	AcceptWay func(way *osm.Way) bool
	// nil keeps every node. a node outside the box is never a vertex or a junction.
	BoundingBox *osm.Bounds
	// douglas peucker threshold in meter for edge geometry, 0 keeps every point.
	SimplifyThreshold float64
}

// edgeIDs hands out edge ids in creation order. one counter per parse, nothing is shared
// between parsers.
type edgeIDs struct {
	next datastructure.EdgeID
}

func (c *edgeIDs) take() datastructure.EdgeID {
	id := c.next
	c.next++
	return id
}

/*
OsmParser loads a road graph from an osm file.

a node is a vertex if it has a vertex tag whose value is not "no", if it ends a way
(EndpointsAsVertices) or if it is a junction (SplitAtJunctions). every other node is only a
geometry point. ways are split at every vertex they pass, each piece between two vertices becomes
an edge whose length is the length of its polyline. the parts of a way before its first vertex and
after its last vertex are dropped. edge ids come from a counter in creation order, the reverse edge
of a two way piece right after the forward one.
*/
type OsmParser struct {
	opts   Options
	logger *slog.Logger

	nodeCoords  map[osm.NodeID]datastructure.Coordinate
	nodeOrder   []osm.NodeID
	taggedNodes map[osm.NodeID]struct{}
	ways        []*osm.Way

	junctions   map[osm.NodeID]struct{}
	vertexNodes map[osm.NodeID]struct{}
	ids         edgeIDs
}

// NewOSMParser returns a parser for a single Parse call.
func NewOSMParser(opts Options, logger *slog.Logger) *OsmParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &OsmParser{
		opts:        opts,
		logger:      logger,
		nodeCoords:  make(map[osm.NodeID]datastructure.Coordinate),
		nodeOrder:   make([]osm.NodeID, 0),
		taggedNodes: make(map[osm.NodeID]struct{}),
		ways:        make([]*osm.Way, 0),
		junctions:   make(map[osm.NodeID]struct{}),
		vertexNodes: make(map[osm.NodeID]struct{}),
	}
}

// ParseBoundingBox reads "minlat,minlon,maxlat,maxlon". an empty string is no bounding box.
func ParseBoundingBox(s string) (*osm.Bounds, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bounding box %q: want minlat,minlon,maxlat,maxlon", s)
	}
	vals := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bounding box %q: %w", s, err)
		}
		vals[i] = v
	}
	box := &osm.Bounds{MinLat: vals[0], MinLon: vals[1], MaxLat: vals[2], MaxLon: vals[3]}
	if box.MinLat > box.MaxLat || box.MinLon > box.MaxLon {
		return nil, fmt.Errorf("bounding box %q: min is larger than max", s)
	}
	return box, nil
}

// IsValidRoad accepts ways with a highway tag, except footways and service roads.
func IsValidRoad(way *osm.Way) bool {
	highway := way.Tags.Find("highway")
	return highway != "" && highway != "footway" && highway != "service"
}

type osmScanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

func (p *OsmParser) newScanner(ctx context.Context, r io.Reader) osmScanner {
	if p.opts.Format == FormatPBF {
		// must not be parallel
		return osmpbf.New(ctx, r, 1)
	}
	return osmxml.New(ctx, r)
}

func (p *OsmParser) ParseFile(ctx context.Context, mapFile string) (*datastructure.RoadGraph, error) {
	f, err := os.Open(mapFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p.logger.Info("Loading the road graph", "file", mapFile)
	return p.Parse(ctx, f)
}

func (p *OsmParser) Parse(ctx context.Context, r io.Reader) (*datastructure.RoadGraph, error) {
	scanner := p.newScanner(ctx, r)
	defer scanner.Close()

	countNodes, countWays := 0, 0
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			if (countNodes+1)%50000 == 0 {
				p.logger.Info("reading openstreetmap nodes", "count", countNodes+1)
			}
			countNodes++
			p.nodeCoords[o.ID] = datastructure.NewCoordinate(o.Lat, o.Lon)
			p.nodeOrder = append(p.nodeOrder, o.ID)
			if tag := o.Tags.Find("vertex"); tag != "" && tag != "no" {
				p.taggedNodes[o.ID] = struct{}{}
			}
		case *osm.Way:
			if p.opts.AcceptWay != nil && !p.opts.AcceptWay(o) {
				continue
			}
			if (countWays+1)%50000 == 0 {
				p.logger.Info("reading openstreetmap ways", "count", countWays+1)
			}
			countWays++
			p.ways = append(p.ways, o)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read osm data: %w", err)
	}

	p.extractJunctions()
	if p.opts.DropIsolatedRoads {
		p.dropIsolatedRoads()
	}
	p.selectVertices()

	vertices := make([]datastructure.Vertex, 0, len(p.vertexNodes))
	for _, id := range p.nodeOrder {
		if _, ok := p.vertexNodes[id]; ok {
			vertices = append(vertices, datastructure.NewVertex(datastructure.VertexID(id), p.nodeCoords[id]))
		}
	}

	edges := p.buildEdges()

	p.logger.Info("road graph loaded", "nodes", countNodes, "ways", countWays, "junctions", len(p.junctions),
		"vertices", len(vertices), "edges", len(edges))
	return datastructure.NewRoadGraph(vertices, edges)
}

func (p *OsmParser) inBoundingBox(id osm.NodeID) bool {
	box := p.opts.BoundingBox
	if box == nil {
		return true
	}
	coord, ok := p.nodeCoords[id]
	if !ok {
		return false
	}
	return coord.Lat >= box.MinLat && coord.Lat <= box.MaxLat &&
		coord.Lon >= box.MinLon && coord.Lon <= box.MaxLon
}

// extractJunctions marks the nodes that appear more than once over all accepted ways and lie
// in the bounding box.
func (p *OsmParser) extractJunctions() {
	visited := make(map[osm.NodeID]struct{})
	for _, way := range p.ways {
		for _, wn := range way.Nodes {
			if _, ok := visited[wn.ID]; ok {
				if p.inBoundingBox(wn.ID) {
					p.junctions[wn.ID] = struct{}{}
				}
				continue
			}
			visited[wn.ID] = struct{}{}
		}
	}
}

// dropIsolatedRoads keeps the ways that pass at least one junction.
func (p *OsmParser) dropIsolatedRoads() {
	kept := make([]*osm.Way, 0, len(p.ways))
	for _, way := range p.ways {
		for _, wn := range way.Nodes {
			if _, ok := p.junctions[wn.ID]; ok {
				kept = append(kept, way)
				break
			}
		}
	}
	p.logger.Info("isolated roads dropped", "dropped", len(p.ways)-len(kept), "kept", len(kept))
	p.ways = kept
}

func (p *OsmParser) selectVertices() {
	add := func(id osm.NodeID) {
		if p.inBoundingBox(id) {
			p.vertexNodes[id] = struct{}{}
		}
	}

	for id := range p.taggedNodes {
		add(id)
	}
	if p.opts.SplitAtJunctions {
		for id := range p.junctions {
			add(id)
		}
	}
	if p.opts.EndpointsAsVertices {
		for _, way := range p.ways {
			if len(way.Nodes) >= 2 {
				add(way.Nodes[0].ID)
				add(way.Nodes[len(way.Nodes)-1].ID)
			}
		}
	}
}

func (p *OsmParser) buildEdges() []datastructure.Edge {
	edges := make([]datastructure.Edge, 0, len(p.ways))

	for _, way := range p.ways {
		if len(way.Nodes) < 2 {
			p.logger.Warn("skipping way with less than 2 points", "way", way.ID, "points", len(way.Nodes))
			continue
		}

		forward, backward := wayDirections(way)
		start := -1
		for i, wn := range way.Nodes {
			if _, ok := p.vertexNodes[wn.ID]; !ok {
				continue
			}
			if start >= 0 {
				edges = p.appendSegment(edges, way, way.Nodes[start:i+1], forward, backward)
			}
			start = i
		}
	}
	return edges
}

// appendSegment adds the edges for one piece of a way running from vertex to vertex.
func (p *OsmParser) appendSegment(edges []datastructure.Edge, way *osm.Way, nodes osm.WayNodes,
	forward, backward bool) []datastructure.Edge {
	points := make([]datastructure.Coordinate, 0, len(nodes))
	for _, wn := range nodes {
		coord, ok := p.nodeCoords[wn.ID]
		if !ok {
			p.logger.Error("cannot find point", "way", way.ID, "node", wn.ID)
			return edges
		}
		points = append(points, coord)
	}

	length := geo.PolylineLength(points)
	if p.opts.SimplifyThreshold > 0 {
		points = geo.RamerDouglasPeucker(points, p.opts.SimplifyThreshold)
	}

	from := datastructure.VertexID(nodes[0].ID)
	to := datastructure.VertexID(nodes[len(nodes)-1].ID)
	if forward {
		edges = append(edges, datastructure.NewEdgeWithPoints(p.ids.take(), from, to, length, points))
	}
	if backward && (p.opts.TwoWay || !forward) {
		edges = append(edges, datastructure.NewEdgeWithPoints(p.ids.take(), to, from, length, util.ReverseG(points)))
	}
	return edges
}

// wayDirections reads the oneway tag. a way without it can be driven both ways.
func wayDirections(way *osm.Way) (forward, backward bool) {
	switch way.Tags.Find("oneway") {
	case "yes", "true", "1":
		return true, false
	case "-1", "reverse":
		return false, true
	default:
		return true, true
	}
}
