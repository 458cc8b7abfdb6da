package vstore

import (
	"testing"

	"github.com/vectorcore/hnswengine/internal/metric"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_PutAssignsSequentialOffsets(t *testing.T) {
	s := NewInMemoryStore(3, metric.New("Dot"))

	o1, err := s.Put([]float32{1, 2, 3})
	require.NoError(t, err)
	o2, err := s.Put([]float32{4, 5, 6})
	require.NoError(t, err)

	assert.Equal(t, uint32(0), o1)
	assert.Equal(t, uint32(1), o2)
	assert.Equal(t, 2, s.VectorCount())
}

func TestInMemoryStore_PutRejectsDimensionMismatch(t *testing.T) {
	s := NewInMemoryStore(3, metric.New("Dot"))

	_, err := s.Put([]float32{1, 2})

	assert.Error(t, err)
}

func TestInMemoryStore_DeleteTombstonesButKeepsOffset(t *testing.T) {
	s := NewInMemoryStore(2, metric.New("Dot"))
	offset, _ := s.Put([]float32{1, 1})

	s.Delete(offset)

	_, ok := s.Get(offset)
	assert.False(t, ok)
	assert.Equal(t, 0, s.VectorCount())
	assert.Equal(t, 1, s.DeletedCount())
	assert.Equal(t, 1, s.TotalVectorCount())
}

func TestInMemoryStore_DeleteIsIdempotent(t *testing.T) {
	s := NewInMemoryStore(2, metric.New("Dot"))
	offset, _ := s.Put([]float32{1, 1})

	s.Delete(offset)
	s.Delete(offset)

	assert.Equal(t, 1, s.DeletedCount())
}

func TestInMemoryStore_UpdateOverwritesInPlace(t *testing.T) {
	s := NewInMemoryStore(2, metric.New("Dot"))
	offset, _ := s.Put([]float32{1, 1})

	newOffset, err := s.Update(offset, []float32{9, 9})

	require.NoError(t, err)
	assert.Equal(t, offset, newOffset, "in-memory store overwrites in place")

	v, ok := s.Get(offset)
	require.True(t, ok)
	assert.Equal(t, []float32{9, 9}, v)
}

func TestInMemoryStore_IterLiveSkipsTombstones(t *testing.T) {
	s := NewInMemoryStore(1, metric.New("Dot"))
	o1, _ := s.Put([]float32{1})
	o2, _ := s.Put([]float32{2})
	o3, _ := s.Put([]float32{3})
	s.Delete(o2)

	live := s.IterLive()

	assert.Equal(t, []uint32{o1, o3}, live)
}

func TestInMemoryStore_RawScorerScoresAgainstBoundQuery(t *testing.T) {
	s := NewInMemoryStore(4, metric.New("Dot"))
	o1, _ := s.Put([]float32{1, 0, 1, 1})
	o2, _ := s.Put([]float32{1, 1, 1, 1})

	scorer, err := s.RawScorer([]float32{1, 1, 1, 1})
	require.NoError(t, err)

	assert.Equal(t, float32(4), scorer.Score(o2))
	assert.Equal(t, float32(3), scorer.Score(o1))
}

func TestInMemoryStore_RawScorerVisibleSkipsTombstones(t *testing.T) {
	s := NewInMemoryStore(2, metric.New("Dot"))
	offset, _ := s.Put([]float32{1, 1})
	s.Delete(offset)

	scorer, err := s.RawScorer([]float32{1, 1})
	require.NoError(t, err)

	assert.False(t, scorer.Visible(offset))
}

func TestInMemoryStore_ScoreIterSkipsTombstonesAndScoresLazily(t *testing.T) {
	s := NewInMemoryStore(2, metric.New("Dot"))
	o1, _ := s.Put([]float32{1, 0})
	o2, _ := s.Put([]float32{0, 1})
	o3, _ := s.Put([]float32{1, 1})
	s.Delete(o2)

	scorer, err := s.RawScorer([]float32{1, 1})
	require.NoError(t, err)

	offsets := func(yield func(uint32) bool) {
		for _, o := range []uint32{o1, o2, o3} {
			if !yield(o) {
				return
			}
		}
	}

	var seen []uint32
	for offset, score := range scorer.ScoreIter(offsets) {
		seen = append(seen, offset)
		assert.Equal(t, scorer.Score(offset), score)
	}

	assert.Equal(t, []uint32{o1, o3}, seen, "tombstoned offset must be skipped")
}

func TestInMemoryStore_ScoreIterStopsWhenCallerStopsRanging(t *testing.T) {
	s := NewInMemoryStore(2, metric.New("Dot"))
	o1, _ := s.Put([]float32{1, 0})
	o2, _ := s.Put([]float32{0, 1})
	o3, _ := s.Put([]float32{1, 1})

	scorer, err := s.RawScorer([]float32{1, 1})
	require.NoError(t, err)

	pulled := 0
	offsets := func(yield func(uint32) bool) {
		for _, o := range []uint32{o1, o2, o3} {
			pulled++
			if !yield(o) {
				return
			}
		}
	}

	var seen []uint32
	for offset := range scorer.ScoreIter(offsets) {
		seen = append(seen, offset)
		break
	}

	assert.Equal(t, []uint32{o1}, seen)
	assert.Equal(t, 1, pulled, "scorer must not pull offsets past the caller's early exit")
}

func TestInMemoryStore_UpdateFromBulkAppendsLiveVectors(t *testing.T) {
	src := NewInMemoryStore(2, metric.New("Dot"))
	o1, _ := src.Put([]float32{1, 1})
	o2, _ := src.Put([]float32{2, 2})
	src.Delete(o2)

	dst := NewInMemoryStore(2, metric.New("Dot"))
	dst.Put([]float32{0, 0})

	start, end, err := dst.UpdateFrom(src)

	require.NoError(t, err)
	assert.Equal(t, uint32(1), start)
	assert.Equal(t, uint32(2), end)
	assert.Equal(t, 2, dst.VectorCount())

	v, ok := dst.Get(start)
	require.True(t, ok)
	_ = o1
	assert.Equal(t, []float32{1, 1}, v)
}
