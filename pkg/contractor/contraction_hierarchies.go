package contractor

import (
	"context"
	"fmt"
	"time"

	"github.com/lintang-b-s/navigatorx-ch/pkg/config"
	"github.com/lintang-b-s/navigatorx-ch/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-ch/pkg/metrics"
	"github.com/lintang-b-s/navigatorx-ch/pkg/util"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// RankingInfo is the score of a vertex that is not contracted yet.
type RankingInfo struct {
	EdgeDifference int
	Extra          float64 // anti clustering penalty accumulated from contracted neighbours
}

func (r RankingInfo) Score() float64 {
	return float64(r.EdgeDifference) + r.Extra
}

/*
ContractionProcessor contracts the vertices of a SimpleIndexer, either in a given order (Contract)
or in an order it picks itself (ContractGraph). it is the only writer of the index while it runs.
shortcut ids are allocated above the largest edge id of the index, across calls.
*/
type ContractionProcessor struct {
	indexer   *datastructure.SimpleIndexer
	cfg       config.Contraction
	logger    *slog.Logger
	metrics   *metrics.Metrics
	collector *ShortcutCollector
	order     []datastructure.VertexID
}

// NewContractionProcessor. logger and m can be nil.
func NewContractionProcessor(indexer *datastructure.SimpleIndexer, cfg config.Contraction,
	logger *slog.Logger, m *metrics.Metrics) *ContractionProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContractionProcessor{
		indexer:   indexer,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		collector: NewShortcutCollector(indexer.MaxEdgeID() + 1),
		order:     make([]datastructure.VertexID, 0),
	}
}

func (p *ContractionProcessor) contractVertex(id datastructure.VertexID) (int, error) {
	plan, err := DryRun(p.indexer, id)
	p.metrics.AddWitnessSearches(plan.WitnessSearches())
	if err != nil {
		return 0, err
	}
	n, err := plan.CarryOut(p.indexer, p.collector)
	if err != nil {
		return n, err
	}
	p.order = append(p.order, id)
	p.metrics.ObserveContraction(n)
	return n, nil
}

func (p *ContractionProcessor) release() *ContractionInfo {
	info := &ContractionInfo{
		OrderedVertexIDs: p.order,
		Shortcuts:        p.collector.Release(),
	}
	p.order = make([]datastructure.VertexID, 0)
	return info
}

// Contract contracts the vertices in the given order. ids no longer in the index are skipped.
func (p *ContractionProcessor) Contract(ctx context.Context, orderedIDs []datastructure.VertexID) (*ContractionInfo, error) {
	st := time.Now()
	for _, id := range orderedIDs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("contraction stopped after %d vertices: %w", len(p.order), err)
		}
		if !p.indexer.Has(id) {
			continue
		}
		if _, err := p.contractVertex(id); err != nil {
			return nil, err
		}
		p.metrics.SetPending(p.indexer.NumVertices())
	}

	info := p.release()
	p.logger.Info("fixed order contraction done", "vertices", len(info.OrderedVertexIDs),
		"shortcuts", len(info.Shortcuts), "took", time.Since(st))
	return info, nil
}

/*
ContractGraph contracts every vertex of the index, always picking the vertex with the lowest score
(edge difference plus anti clustering penalty) next.

scores are updated lazily. after a contraction only the neighbours' scoreboard entries are
recomputed, their heap entries keep the old score. a popped vertex whose scoreboard score is worse
than its heap score by more than SignificanceThreshold is pushed back with the new score instead of
being contracted, unless it is the last pending vertex. equal scores pop the lower vertex id first.
*/
func (p *ContractionProcessor) ContractGraph(ctx context.Context) (*ContractionInfo, error) {
	st := time.Now()
	ids := p.indexer.VertexIDs()
	debug := p.debugEnabled(len(ids))

	scoreboard := make(map[datastructure.VertexID]*RankingInfo, len(ids))
	pq := datastructure.NewMinHeapFunc(func(a, b datastructure.PriorityQueueNode[datastructure.VertexID]) bool {
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Item < b.Item
	})

	for _, id := range ids {
		ranking, err := p.rank(id)
		if err != nil {
			return nil, err
		}
		scoreboard[id] = &ranking
		pq.Insert(datastructure.PriorityQueueNode[datastructure.VertexID]{Rank: ranking.Score(), Item: id})
	}
	p.logger.Info("initial vertex ordering done", "vertices", len(ids), "took", time.Since(st))
	p.metrics.SetPending(len(scoreboard))

	iteration := 0
	for !pq.IsEmpty() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("contraction stopped after %d vertices: %w", len(p.order), err)
		}
		if debug {
			p.logScoreTable(iteration, scoreboard)
		}
		iteration++

		polledItem, err := pq.ExtractMin()
		if err != nil {
			return nil, err
		}
		id := polledItem.Item
		ranking, ok := scoreboard[id]
		if !ok {
			return nil, fmt.Errorf("vertex %d: %w", id, ErrScoreboardDesync)
		}

		// lazy update
		if len(scoreboard) > 1 && ranking.Score() > polledItem.Rank+p.cfg.SignificanceThreshold {
			pq.Insert(datastructure.PriorityQueueNode[datastructure.VertexID]{Rank: ranking.Score(), Item: id})
			p.metrics.IncLazyUpdate()
			continue
		}

		neighbours := p.neighbours(id)
		n, err := p.contractVertex(id)
		if err != nil {
			return nil, err
		}
		delete(scoreboard, id)
		p.metrics.SetPending(len(scoreboard))
		if debug {
			p.logger.Debug("vertex contracted", "vertex", id, "score", util.RoundFloat(polledItem.Rank, 3), "shortcuts", n)
		}

		for _, nb := range neighbours {
			nbRanking, ok := scoreboard[nb]
			if !ok {
				continue
			}
			updated, err := p.rank(nb)
			if err != nil {
				return nil, err
			}
			nbRanking.EdgeDifference = updated.EdgeDifference
			nbRanking.Extra += p.cfg.ClusteringPenalty
		}

		if len(p.order)%10000 == 0 {
			p.logger.Info("contracting vertices", "contracted", len(p.order), "pending", len(scoreboard))
		}
	}

	info := p.release()
	p.logger.Info("contraction hierarchies preprocessing done", "vertices", len(info.OrderedVertexIDs),
		"shortcuts", len(info.Shortcuts), "iterations", iteration, "took", time.Since(st))
	return info, nil
}

func (p *ContractionProcessor) rank(id datastructure.VertexID) (RankingInfo, error) {
	plan, err := DryRun(p.indexer, id)
	p.metrics.AddWitnessSearches(plan.WitnessSearches())
	if err != nil {
		return RankingInfo{}, err
	}
	return RankingInfo{EdgeDifference: plan.EdgeDifference()}, nil
}

// neighbours returns the distinct predecessor and successor ids of the vertex, ascending.
func (p *ContractionProcessor) neighbours(id datastructure.VertexID) []datastructure.VertexID {
	conn := p.indexer.Find(id)
	if conn == nil {
		return nil
	}
	seen := NewVertexSet(id)
	ids := make([]datastructure.VertexID, 0, conn.Degree())
	for _, in := range conn.Inwards {
		if !seen.Has(in.From) {
			seen[in.From] = struct{}{}
			ids = append(ids, in.From)
		}
	}
	for _, out := range conn.Outwards {
		if !seen.Has(out.To) {
			seen[out.To] = struct{}{}
			ids = append(ids, out.To)
		}
	}
	slices.Sort(ids)
	return ids
}

func (p *ContractionProcessor) debugEnabled(numVertices int) bool {
	if !p.cfg.Debug {
		return false
	}
	if numVertices > p.cfg.DebugMaxVertices {
		p.logger.Warn("graph too large for contraction diagnostics, debug output disabled",
			"vertices", numVertices, "max", p.cfg.DebugMaxVertices)
		return false
	}
	return true
}

func (p *ContractionProcessor) logScoreTable(iteration int, scoreboard map[datastructure.VertexID]*RankingInfo) {
	ids := make([]datastructure.VertexID, 0, len(scoreboard))
	for id := range scoreboard {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b datastructure.VertexID) int {
		sa, sb := scoreboard[a].Score(), scoreboard[b].Score()
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})

	p.logger.Debug("score table", "iteration", iteration, "pending", len(ids))
	for _, id := range ids {
		r := scoreboard[id]
		p.logger.Debug("score", "vertex", id, "edge_difference", r.EdgeDifference,
			"extra", util.RoundFloat(r.Extra, 3), "score", util.RoundFloat(r.Score(), 3))
	}
}
