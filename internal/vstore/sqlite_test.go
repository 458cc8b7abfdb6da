package vstore

import (
	"path/filepath"
	"testing"

	"github.com/vectorcore/hnswengine/internal/metric"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T, dim int) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectors.db")
	s, err := OpenSQLiteStore(path, dim, metric.New("Dot"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_PutAndGetRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t, 3)

	offset, err := s.Put([]float32{1, 2, 3})
	require.NoError(t, err)

	v, ok := s.Get(offset)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)
}

func TestSQLiteStore_UpdateAlwaysAppendsAndTombstones(t *testing.T) {
	s := newTestSQLiteStore(t, 2)
	offset, err := s.Put([]float32{1, 1})
	require.NoError(t, err)

	newOffset, err := s.Update(offset, []float32{2, 2})
	require.NoError(t, err)

	assert.NotEqual(t, offset, newOffset, "sqlite store always appends on update")

	_, ok := s.Get(offset)
	assert.False(t, ok)

	v, ok := s.Get(newOffset)
	require.True(t, ok)
	assert.Equal(t, []float32{2, 2}, v)
}

func TestSQLiteStore_DeleteTombstonesRow(t *testing.T) {
	s := newTestSQLiteStore(t, 2)
	offset, _ := s.Put([]float32{1, 1})

	s.Delete(offset)

	_, ok := s.Get(offset)
	assert.False(t, ok)
	assert.Equal(t, 0, s.VectorCount())
	assert.Equal(t, 1, s.DeletedCount())
}

func TestSQLiteStore_IterLiveOrdersByOffset(t *testing.T) {
	s := newTestSQLiteStore(t, 1)
	o1, _ := s.Put([]float32{1})
	o2, _ := s.Put([]float32{2})
	o3, _ := s.Put([]float32{3})
	s.Delete(o2)

	live := s.IterLive()

	assert.Equal(t, []uint32{o1, o3}, live)
}

func TestSQLiteStore_RawScorerScoresStoredVectors(t *testing.T) {
	s := newTestSQLiteStore(t, 2)
	offset, _ := s.Put([]float32{2, 2})

	scorer, err := s.RawScorer([]float32{1, 1})
	require.NoError(t, err)

	assert.Equal(t, float32(4), scorer.Score(offset))
	assert.True(t, scorer.Visible(offset))
}

func TestSQLiteStore_ReopenPreservesNextOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	s, err := OpenSQLiteStore(path, 2, metric.New("Dot"))
	require.NoError(t, err)
	s.Put([]float32{1, 1})
	s.Put([]float32{2, 2})
	require.NoError(t, s.Close())

	reopened, err := OpenSQLiteStore(path, 2, metric.New("Dot"))
	require.NoError(t, err)
	defer reopened.Close()

	offset, err := reopened.Put([]float32{3, 3})
	require.NoError(t, err)
	assert.Equal(t, uint32(2), offset)
}
