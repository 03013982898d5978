package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/shelfvec/catalog"
	"github.com/poiesic/shelfvec/core"
	"github.com/poiesic/shelfvec/storage"
	"github.com/poiesic/shelfvec/storage/badger"
	"github.com/stretchr/testify/require"
)

const testDim = 8

var errStoreDown = errors.New("store down")

// faultyStore wraps a real store and fails selected operations.
type faultyStore struct {
	*badger.Store

	mu           sync.Mutex
	pingErr      error
	ensureErr    error
	clearErr     error
	statsErr     map[string]error
	failUpserts  map[string]int // collection -> remaining failures, -1 for always
	upsertCalls  map[string]int
	clearedNames []string
}

func newFaultyStore(t *testing.T) *faultyStore {
	t.Helper()
	store, err := badger.NewMemoryStore(storage.CollectionConfig{VectorSize: testDim, Distance: core.DistanceCosine})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &faultyStore{
		Store:       store,
		statsErr:    make(map[string]error),
		failUpserts: make(map[string]int),
		upsertCalls: make(map[string]int),
	}
}

func (s *faultyStore) Ping(ctx context.Context) error {
	if s.pingErr != nil {
		return s.pingErr
	}
	return s.Store.Ping(ctx)
}

func (s *faultyStore) Ensure(ctx context.Context, name string) (bool, error) {
	if s.ensureErr != nil {
		return false, s.ensureErr
	}
	return s.Store.Ensure(ctx, name)
}

func (s *faultyStore) Clear(ctx context.Context, name string) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	s.mu.Lock()
	s.clearedNames = append(s.clearedNames, name)
	s.mu.Unlock()
	return s.Store.Clear(ctx, name)
}

func (s *faultyStore) Upsert(ctx context.Context, name string, points []core.PointRecord) error {
	s.mu.Lock()
	s.upsertCalls[name]++
	remaining := s.failUpserts[name]
	if remaining > 0 {
		s.failUpserts[name] = remaining - 1
	}
	s.mu.Unlock()

	if remaining != 0 {
		return fmt.Errorf("%w: %s: status 500", storage.ErrUpsertRejected, name)
	}
	return s.Store.Upsert(ctx, name, points)
}

func (s *faultyStore) Stats(ctx context.Context, name string) (*core.CollectionState, error) {
	if err := s.statsErr[name]; err != nil {
		return nil, err
	}
	return s.Store.Stats(ctx, name)
}

func (s *faultyStore) calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertCalls[name]
}

func (s *faultyStore) ids(t *testing.T, name string) []core.PointID {
	t.Helper()
	ids, err := s.Store.PointIDs(context.Background(), name)
	require.NoError(t, err)
	return ids
}

func (s *faultyStore) count(t *testing.T, name string) uint64 {
	t.Helper()
	state, err := s.Store.Stats(context.Background(), name)
	require.NoError(t, err)
	return state.PointsCount
}

// recordingMetrics captures observer calls.
type recordingMetrics struct {
	mu       sync.Mutex
	batches  int
	records  int
	upserts  map[string]int
	upErrors int
	runState string
}

func (m *recordingMetrics) RecordBatch(size, succeeded, failed int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	m.records += size
}

func (m *recordingMetrics) RecordUpsert(collection string, points int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upserts == nil {
		m.upserts = make(map[string]int)
	}
	if err != nil {
		m.upErrors++
		return
	}
	m.upserts[collection] += points
}

func (m *recordingMetrics) RecordRun(state string, duration time.Duration, calls, failures int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runState = state
}

func makeBooks(n int) []core.BookRecord {
	books := make([]core.BookRecord, n)
	for i := range books {
		books[i] = core.BookRecord{
			BookID:      fmt.Sprintf("book-%03d", i),
			Title:       fmt.Sprintf("Title %d", i),
			Author:      fmt.Sprintf("Author %d", i),
			Description: fmt.Sprintf("Description of book %d", i),
			Tags:        []string{"fiction", fmt.Sprintf("tag-%d", i%4)},
			Language:    "en",
		}
	}
	return books
}

func writeCatalog(t *testing.T, books []core.BookRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.json")
	require.NoError(t, catalog.Write(path, books))
	return path
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
