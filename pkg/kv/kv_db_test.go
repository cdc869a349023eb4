package kv

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/lintang-b-s/navigatorx-ch/pkg/contractor"
	"github.com/lintang-b-s/navigatorx-ch/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func openStores(t *testing.T) map[string]*KVDB {
	t.Helper()
	dbs := make(map[string]*KVDB)
	for _, engine := range []string{"badger", "pebble"} {
		store, err := OpenStore(engine, "")
		require.NoError(t, err)
		db := NewKVDB(store, testLogger)
		t.Cleanup(func() { db.Close() })
		dbs[engine] = db
	}
	return dbs
}

func newContractionInfo(numVertices, numShortcuts int) *contractor.ContractionInfo {
	info := &contractor.ContractionInfo{
		OrderedVertexIDs: make([]datastructure.VertexID, 0, numVertices),
		Shortcuts:        make([]datastructure.Edge, 0, numShortcuts),
	}
	for i := 0; i < numVertices; i++ {
		info.OrderedVertexIDs = append(info.OrderedVertexIDs, datastructure.VertexID(numVertices-i))
	}
	for i := 0; i < numShortcuts; i++ {
		left := datastructure.NewEdge(datastructure.EdgeID(2*i), datastructure.VertexID(i), datastructure.VertexID(i+1), 1.5)
		right := datastructure.NewEdge(datastructure.EdgeID(2*i+1), datastructure.VertexID(i+1), datastructure.VertexID(i+2), 2.0)
		sc, _ := datastructure.NewShortcut(datastructure.EdgeID(100000+i), left, right)
		info.Shortcuts = append(info.Shortcuts, sc)
	}
	return info
}

func TestContractionInfoRoundTrip(t *testing.T) {
	for engine, db := range openStores(t) {
		t.Run(engine, func(t *testing.T) {
			tests := []struct {
				name                    string
				numVertices, shortcuts int
			}{
				{"empty", 0, 0},
				{"small", 10, 4},
				{"several chunks", 3*chunkSize + 17, chunkSize + 1},
			}
			for _, tt := range tests {
				info := newContractionInfo(tt.numVertices, tt.shortcuts)
				require.NoError(t, db.SaveContractionInfo(context.Background(), tt.name, info))

				loaded, err := db.LoadContractionInfo(tt.name)
				require.NoError(t, err, tt.name)
				assert.Equal(t, info.OrderedVertexIDs, loaded.OrderedVertexIDs, tt.name)
				assert.Equal(t, info.Shortcuts, loaded.Shortcuts, tt.name)
			}

			_, err := db.LoadContractionInfo("missing")
			assert.ErrorIs(t, err, ErrContractionInfoNotFound)
		})
	}
}

func TestSaveContractionInfoCanceled(t *testing.T) {
	store, err := OpenBadger("")
	require.NoError(t, err)
	db := NewKVDB(store, testLogger)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = db.SaveContractionInfo(ctx, "canceled", newContractionInfo(10, 2))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = db.LoadContractionInfo("canceled")
	assert.ErrorIs(t, err, ErrContractionInfoNotFound)
}

// failingStore fails every WriteBatch after the first okBatches calls.
type failingStore struct {
	Store
	okBatches int
	calls     int
}

func (s *failingStore) WriteBatch(ctx context.Context, batch []batchData) error {
	s.calls++
	if s.calls > s.okBatches {
		return errors.New("disk full")
	}
	return s.Store.WriteBatch(ctx, batch)
}

func TestSaveContractionInfoInterruptedOverwrite(t *testing.T) {
	for _, engine := range []string{"badger", "pebble"} {
		t.Run(engine, func(t *testing.T) {
			store, err := OpenStore(engine, "")
			require.NoError(t, err)
			db := NewKVDB(store, testLogger)
			defer db.Close()

			old := newContractionInfo(2*chunkSize, 3)
			require.NoError(t, db.SaveContractionInfo(context.Background(), "jogja", old))

			// the old meta is deleted, then writing the chunks fails
			failing := NewKVDB(&failingStore{Store: store, okBatches: 1}, testLogger)
			err = failing.SaveContractionInfo(context.Background(), "jogja", newContractionInfo(10, 1))
			require.Error(t, err)

			_, err = db.LoadContractionInfo("jogja")
			assert.ErrorIs(t, err, ErrContractionInfoNotFound)

			// a complete save afterwards is readable again
			info := newContractionInfo(10, 1)
			require.NoError(t, db.SaveContractionInfo(context.Background(), "jogja", info))
			loaded, err := db.LoadContractionInfo("jogja")
			require.NoError(t, err)
			assert.Equal(t, info.OrderedVertexIDs, loaded.OrderedVertexIDs)
			assert.Equal(t, info.Shortcuts, loaded.Shortcuts)
		})
	}
}

func TestNearestVertices(t *testing.T) {
	vertices := []datastructure.Vertex{
		datastructure.NewVertex(1, datastructure.NewCoordinate(-7.782889, 110.367083)),
		datastructure.NewVertex(2, datastructure.NewCoordinate(-7.782889, 110.367083)),
		datastructure.NewVertex(3, datastructure.NewCoordinate(-7.801389, 110.364722)),
	}

	for engine, db := range openStores(t) {
		t.Run(engine, func(t *testing.T) {
			require.NoError(t, db.SaveVertexCells(context.Background(), "yogyakarta", vertices))

			ids, err := db.NearestVertices("yogyakarta", -7.782889, 110.367083)
			require.NoError(t, err)
			assert.ElementsMatch(t, []datastructure.VertexID{1, 2}, ids)

			// about 300 meter from vertex 3, a few rings away
			ids, err = db.NearestVertices("yogyakarta", -7.804000, 110.364722)
			require.NoError(t, err)
			assert.Equal(t, []datastructure.VertexID{3}, ids)

			_, err = db.NearestVertices("yogyakarta", 51.5, -0.12)
			assert.ErrorIs(t, err, ErrVerticesNotFound)
		})
	}
}

func TestOpenStoreUnknownEngine(t *testing.T) {
	_, err := OpenStore("leveldb", "")
	assert.Error(t, err)
}
