package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/shelfvec/core"
	"github.com/poiesic/shelfvec/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 4

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemoryStore(storage.CollectionConfig{VectorSize: testDim, Distance: core.DistanceCosine})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func makePoints(prefix string, n int) []core.PointRecord {
	points := make([]core.PointRecord, n)
	for i := range points {
		key := fmt.Sprintf("%s-%d", prefix, i)
		vec := make([]float32, testDim)
		vec[i%testDim] = 1
		book := &core.BookRecord{BookID: key, Title: key, Tags: []string{"t"}}
		points[i] = core.NewTagPoint(core.PointIDFromKey(key), key, book, vec)
	}
	return points
}

func TestStore_Ensure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Ensure(ctx, "tags_vecs")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Ensure(ctx, "tags_vecs")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = s.Ensure(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidCollection)
}

func TestStore_EnsureConcurrent(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := s.Ensure(context.Background(), "desc_vecs")
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, createdCount)
}

func TestStore_UpsertAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Ensure(ctx, "tags_vecs")
	require.NoError(t, err)

	points := makePoints("book", 7)
	require.NoError(t, s.Upsert(ctx, "tags_vecs", points))
	require.NoError(t, s.Upsert(ctx, "tags_vecs", points), "upsert overwrites by id")

	state, err := s.Stats(ctx, "tags_vecs")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), state.PointsCount)
	assert.Equal(t, testDim, state.VectorSize)
	assert.Equal(t, core.DistanceCosine, state.Distance)

	got, err := s.GetPoint(ctx, "tags_vecs", points[3].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, points[3].Vector, got.Vector)
	assert.Equal(t, "book-3", got.Payload["book_id"])
	assert.Equal(t, core.PointTypeBook, got.Payload["type"])

	missing, err := s.GetPoint(ctx, "tags_vecs", core.PointIDFromKey("nope"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_UpsertAllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Ensure(ctx, "tags_vecs")
	require.NoError(t, err)

	points := makePoints("book", 5)
	points[4].Vector = []float32{1, 2}

	err = s.Upsert(ctx, "tags_vecs", points)
	assert.ErrorIs(t, err, storage.ErrUpsertRejected)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	state, err := s.Stats(ctx, "tags_vecs")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.PointsCount, "no point of a rejected batch is written")
}

func TestStore_UpsertBatchTooLarge(t *testing.T) {
	const dim = 1024
	s, err := NewMemoryStore(storage.CollectionConfig{VectorSize: dim, Distance: core.DistanceCosine})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	_, err = s.Ensure(ctx, "desc_vecs")
	require.NoError(t, err)

	points := make([]core.PointRecord, 4000)
	for i := range points {
		key := fmt.Sprintf("book-%d", i)
		vec := make([]float32, dim)
		vec[i%dim] = 1
		points[i] = core.NewDescPoint(core.PointIDFromKey(key), key, vec)
	}

	err = s.Upsert(ctx, "desc_vecs", points)
	assert.ErrorIs(t, err, storage.ErrUpsertRejected)
	assert.ErrorIs(t, err, storage.ErrBatchTooLarge)
	assert.ErrorContains(t, err, "4000 points of dimension 1024")
	assert.ErrorContains(t, err, "import.batch_size")

	state, err := s.Stats(ctx, "desc_vecs")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.PointsCount)

	require.NoError(t, s.Upsert(ctx, "desc_vecs", points[:100]))
}

func TestStore_UpsertMissingCollection(t *testing.T) {
	s := newTestStore(t)
	err := s.Upsert(context.Background(), "nope", makePoints("b", 1))
	assert.ErrorIs(t, err, storage.ErrUpsertRejected)
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)

	assert.NoError(t, s.Upsert(context.Background(), "nope", nil), "empty input is a no-op")
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"tags_vecs", "desc_vecs"} {
		_, err := s.Ensure(ctx, name)
		require.NoError(t, err)
	}

	require.NoError(t, s.Upsert(ctx, "tags_vecs", makePoints("a", 1000)))
	require.NoError(t, s.Upsert(ctx, "desc_vecs", makePoints("b", 3)))

	require.NoError(t, s.Clear(ctx, "tags_vecs"))

	state, err := s.Stats(ctx, "tags_vecs")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.PointsCount)

	state, err = s.Stats(ctx, "desc_vecs")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), state.PointsCount, "other collections untouched")

	require.NoError(t, s.Clear(ctx, "tags_vecs"), "clearing an empty collection succeeds")
	assert.ErrorIs(t, s.Clear(ctx, "missing"), storage.ErrCollectionNotFound)
}

func TestStore_PointIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Ensure(ctx, "tags_vecs")
	require.NoError(t, err)

	points := makePoints("book", 10)
	require.NoError(t, s.Upsert(ctx, "tags_vecs", points))

	ids, err := s.PointIDs(ctx, "tags_vecs")
	require.NoError(t, err)
	want := make([]core.PointID, len(points))
	for i := range points {
		want[i] = points[i].ID
	}
	assert.ElementsMatch(t, want, ids)
}

func TestStore_Closed(t *testing.T) {
	s, err := NewMemoryStore(storage.CollectionConfig{VectorSize: testDim, Distance: core.DistanceCosine})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(context.Background()), storage.ErrStorageClosed)
	_, err = s.Ensure(context.Background(), "x")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestStore_SharedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	s, err := NewStore(backend, storage.CollectionConfig{VectorSize: testDim, Distance: core.DistanceCosine})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.False(t, backend.IsClosed(), "store does not close a backend it was given")
}
