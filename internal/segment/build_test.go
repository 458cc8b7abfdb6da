package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorcore/hnswengine/internal/segment"
)

// Given a fresh segment, when five records are bulk-loaded via Build,
// then all five are applied and a search finds the exact match.
func TestBuild_AppliesAllRecordsAndIsSearchable(t *testing.T) {
	s := newDotSegment(t)

	records := []segment.BuildRecord{
		{ExternalID: 1, Vector: []float32{1, 0, 1, 1}},
		{ExternalID: 2, Vector: []float32{1, 0, 1, 0}},
		{ExternalID: 3, Vector: []float32{1, 1, 1, 1}},
		{ExternalID: 4, Vector: []float32{1, 1, 0, 1}},
		{ExternalID: 5, Vector: []float32{1, 0, 0, 0}},
	}

	applied, err := s.Build(records, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, applied)

	hits, err := s.Search([]float32{1, 1, 1, 1}, 1, segment.SearchParams{Ef: 32}, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(3), hits[0].ID)
}

// Given a segment already built from a record slice, when Build is
// called again with the same records and starting op_num, then every
// upsert replays its original op_num and is skipped.
func TestBuild_ReplayWithSameOpNumsIsNoOp(t *testing.T) {
	s := newDotSegment(t)
	records := []segment.BuildRecord{
		{ExternalID: 1, Vector: []float32{1, 0, 1, 1}},
		{ExternalID: 2, Vector: []float32{1, 0, 1, 0}},
	}

	applied, err := s.Build(records, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	replayed, err := s.Build(records, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, replayed)
}

// Given a record in the batch with the wrong dimensionality, when Build
// runs, then it fails before applying any record rather than partially
// committing the batch.
func TestBuild_RejectsDimensionMismatchBeforeApplying(t *testing.T) {
	s := newDotSegment(t)
	records := []segment.BuildRecord{
		{ExternalID: 1, Vector: []float32{1, 0, 1, 1}},
		{ExternalID: 2, Vector: []float32{1, 0}},
	}

	applied, err := s.Build(records, 1)
	require.Error(t, err)
	assert.Equal(t, 0, applied)

	info := s.Info()
	assert.Equal(t, 0, info.PointCount)
}

// Given an empty record slice, when Build runs, then it applies nothing
// and reports no error.
func TestBuild_EmptyRecordsIsNoOp(t *testing.T) {
	s := newDotSegment(t)

	applied, err := s.Build(nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}
