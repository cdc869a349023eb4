package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/lintang-b-s/navigatorx-ch/pkg/contractor"
	"github.com/lintang-b-s/navigatorx-ch/pkg/datastructure"
	"github.com/uber/h3-go/v4"
	"golang.org/x/exp/slog"
)

var (
	ErrContractionInfoNotFound = errors.New("contraction info not found")
	ErrVerticesNotFound        = errors.New("vertices not found")
)

const (
	batchSize = 1000 // values per write batch
	chunkSize = 4096 // ids or shortcuts per value
	h3Res     = 9
)

type contractionMeta struct {
	NumVertices    int
	NumShortcuts   int
	OrderChunks    int
	ShortcutChunks int
}

/*
KVDB stores contraction results under a name, e.g. the osm file they were computed from.

keys:

	ch/<name>/meta
	ch/<name>/order/<chunk>     []int64 vertex ids
	ch/<name>/shortcut/<chunk>  []contractor.ShortcutRecord
	cell/<name>/<h3 cell>       []int64 ids of the vertices in the cell

values are kelindar/binary encoded and zstd compressed.
*/
type KVDB struct {
	store  Store
	logger *slog.Logger
}

func NewKVDB(store Store, logger *slog.Logger) *KVDB {
	if logger == nil {
		logger = slog.Default()
	}
	return &KVDB{store: store, logger: logger}
}

func metaKey(name string) []byte {
	return []byte(fmt.Sprintf("ch/%s/meta", name))
}

func orderKey(name string, chunk int) []byte {
	return []byte(fmt.Sprintf("ch/%s/order/%08d", name, chunk))
}

func shortcutKey(name string, chunk int) []byte {
	return []byte(fmt.Sprintf("ch/%s/shortcut/%08d", name, chunk))
}

func cellKey(name string, cell h3.Cell) []byte {
	return []byte(fmt.Sprintf("cell/%s/%s", name, cell.String()))
}

func numChunks(n int) int {
	return (n + chunkSize - 1) / chunkSize
}

// SaveContractionInfo writes the order and the shortcuts in chunks, the meta record last. the old
// meta record of name is deleted first, so an interrupted save leaves name not found instead of
// mixing old and new chunks.
func (k *KVDB) SaveContractionInfo(ctx context.Context, name string, info *contractor.ContractionInfo) error {
	k.logger.Info("saving contraction info to key-value db", "name", name,
		"vertices", len(info.OrderedVertexIDs), "shortcuts", len(info.Shortcuts))

	if err := k.store.WriteBatch(ctx, []batchData{{key: metaKey(name), delete: true}}); err != nil {
		return fmt.Errorf("error deleting contraction info meta %s: %w", name, err)
	}

	batches := make([]batchData, 0, batchSize)
	flush := func(force bool) error {
		if len(batches) == 0 || (!force && len(batches) < batchSize) {
			return nil
		}
		if err := k.store.WriteBatch(ctx, batches); err != nil {
			return fmt.Errorf("error saving contraction info %s: %w", name, err)
		}
		batches = make([]batchData, 0, batchSize)
		return nil
	}

	meta := contractionMeta{
		NumVertices:    len(info.OrderedVertexIDs),
		NumShortcuts:   len(info.Shortcuts),
		OrderChunks:    numChunks(len(info.OrderedVertexIDs)),
		ShortcutChunks: numChunks(len(info.Shortcuts)),
	}

	for chunk := 0; chunk < meta.OrderChunks; chunk++ {
		ids := info.OrderedVertexIDs[chunk*chunkSize : min((chunk+1)*chunkSize, meta.NumVertices)]
		rec := make([]int64, len(ids))
		for i, id := range ids {
			rec[i] = int64(id)
		}
		val, err := encode(rec)
		if err != nil {
			return err
		}
		batches = append(batches, batchData{key: orderKey(name, chunk), value: val})
		if err := flush(false); err != nil {
			return err
		}
	}

	for chunk := 0; chunk < meta.ShortcutChunks; chunk++ {
		shortcuts := info.Shortcuts[chunk*chunkSize : min((chunk+1)*chunkSize, meta.NumShortcuts)]
		rec := make([]contractor.ShortcutRecord, len(shortcuts))
		for i, sc := range shortcuts {
			rec[i] = contractor.NewShortcutRecord(sc)
		}
		val, err := encode(rec)
		if err != nil {
			return err
		}
		batches = append(batches, batchData{key: shortcutKey(name, chunk), value: val})
		if err := flush(false); err != nil {
			return err
		}
	}

	if err := flush(true); err != nil {
		return err
	}

	val, err := encode(meta)
	if err != nil {
		return err
	}
	batches = append(batches, batchData{key: metaKey(name), value: val})
	return flush(true)
}

func (k *KVDB) LoadContractionInfo(name string) (*contractor.ContractionInfo, error) {
	val, err := k.store.Get(metaKey(name))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrContractionInfoNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	var meta contractionMeta
	if err := decode(val, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode contraction meta %s: %w", name, err)
	}

	info := &contractor.ContractionInfo{
		OrderedVertexIDs: make([]datastructure.VertexID, 0, meta.NumVertices),
		Shortcuts:        make([]datastructure.Edge, 0, meta.NumShortcuts),
	}

	for chunk := 0; chunk < meta.OrderChunks; chunk++ {
		var rec []int64
		if err := k.getChunk(orderKey(name, chunk), &rec); err != nil {
			return nil, err
		}
		for _, id := range rec {
			info.OrderedVertexIDs = append(info.OrderedVertexIDs, datastructure.VertexID(id))
		}
	}

	for chunk := 0; chunk < meta.ShortcutChunks; chunk++ {
		var rec []contractor.ShortcutRecord
		if err := k.getChunk(shortcutKey(name, chunk), &rec); err != nil {
			return nil, err
		}
		for _, sc := range rec {
			info.Shortcuts = append(info.Shortcuts, sc.Edge())
		}
	}

	if len(info.OrderedVertexIDs) != meta.NumVertices || len(info.Shortcuts) != meta.NumShortcuts {
		return nil, fmt.Errorf("contraction info %s is incomplete: %d/%d vertices, %d/%d shortcuts", name,
			len(info.OrderedVertexIDs), meta.NumVertices, len(info.Shortcuts), meta.NumShortcuts)
	}
	return info, nil
}

func (k *KVDB) getChunk(key []byte, v any) error {
	val, err := k.store.Get(key)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := decode(val, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SaveVertexCells indexes the vertices by their h3 cell.
func (k *KVDB) SaveVertexCells(ctx context.Context, name string, vertices []datastructure.Vertex) error {
	cells := make(map[h3.Cell][]int64)
	order := make([]h3.Cell, 0)
	for _, v := range vertices {
		cell := h3.LatLngToCell(h3.NewLatLng(v.Loc.Lat, v.Loc.Lon), h3Res)
		if _, ok := cells[cell]; !ok {
			order = append(order, cell)
		}
		cells[cell] = append(cells[cell], int64(v.ID))
	}

	batches := make([]batchData, 0, batchSize)
	for _, cell := range order {
		val, err := encode(cells[cell])
		if err != nil {
			return err
		}
		batches = append(batches, batchData{key: cellKey(name, cell), value: val})
		if len(batches) == batchSize {
			if err := k.store.WriteBatch(ctx, batches); err != nil {
				return err
			}
			batches = make([]batchData, 0, batchSize)
		}
	}
	if len(batches) > 0 {
		if err := k.store.WriteBatch(ctx, batches); err != nil {
			return err
		}
	}

	k.logger.Info("saving h3 indexed vertices to key-value db done", "name", name,
		"vertices", len(vertices), "cells", len(order))
	return nil
}

// NearestVertices returns the vertices in the h3 cell of the coordinate. if the cell is empty the
// search grows ring by ring, up to 10 rings.
func (k *KVDB) NearestVertices(name string, lat, lon float64) ([]datastructure.VertexID, error) {
	origin := h3.LatLngToCell(h3.NewLatLng(lat, lon), h3Res)
	visited := make(map[h3.Cell]struct{})

	for lev := 0; lev <= 10; lev++ {
		ids := make([]datastructure.VertexID, 0)
		for _, cell := range h3.GridDisk(origin, lev) {
			if _, ok := visited[cell]; ok {
				continue
			}
			visited[cell] = struct{}{}

			val, err := k.store.Get(cellKey(name, cell))
			if errors.Is(err, ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			var rec []int64
			if err := decode(val, &rec); err != nil {
				return nil, err
			}
			for _, id := range rec {
				ids = append(ids, datastructure.VertexID(id))
			}
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}
	return nil, ErrVerticesNotFound
}

func (k *KVDB) Close() error {
	return k.store.Close()
}
