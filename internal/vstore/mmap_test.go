package vstore

import (
	"path/filepath"
	"testing"

	"github.com/vectorcore/hnswengine/internal/metric"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapStore_PutAndGetRoundTripInOverflow(t *testing.T) {
	s, err := NewMmapStore(3, metric.New("Dot"))
	require.NoError(t, err)

	offset, err := s.Put([]float32{1, 2, 3})
	require.NoError(t, err)

	v, ok := s.Get(offset)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)
}

func TestMmapStore_FreezeThenOpenRoundTripsVectors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")

	s, err := NewMmapStore(2, metric.New("Dot"))
	require.NoError(t, err)
	s.Put([]float32{1, 2})
	s.Put([]float32{3, 4})
	require.NoError(t, s.Freeze(path))
	require.NoError(t, s.Close())

	loaded, err := OpenMmapStore(path, 2, metric.New("Dot"))
	require.NoError(t, err)
	defer loaded.Close()

	v0, ok := loaded.Get(0)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, v0)

	v1, ok := loaded.Get(1)
	require.True(t, ok)
	assert.Equal(t, []float32{3, 4}, v1)

	assert.Equal(t, 2, loaded.VectorCount())
}

func TestMmapStore_UpdateOnFrozenOffsetAppendsAndTombstones(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")

	s, err := NewMmapStore(2, metric.New("Dot"))
	require.NoError(t, err)
	s.Put([]float32{1, 1})
	require.NoError(t, s.Freeze(path))
	require.NoError(t, s.Close())

	loaded, err := OpenMmapStore(path, 2, metric.New("Dot"))
	require.NoError(t, err)
	defer loaded.Close()

	newOffset, err := loaded.Update(0, []float32{9, 9})
	require.NoError(t, err)
	assert.NotEqual(t, uint32(0), newOffset)

	_, ok := loaded.Get(0)
	assert.False(t, ok, "frozen offset is tombstoned after update")

	v, ok := loaded.Get(newOffset)
	require.True(t, ok)
	assert.Equal(t, []float32{9, 9}, v)
}

func TestMmapStore_DeleteTombstonesOverflowEntry(t *testing.T) {
	s, err := NewMmapStore(2, metric.New("Dot"))
	require.NoError(t, err)
	offset, _ := s.Put([]float32{1, 1})

	s.Delete(offset)

	_, ok := s.Get(offset)
	assert.False(t, ok)
}
