package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSegmentConfig_IsValid(t *testing.T) {
	// Given: a default config for a 128-dim segment
	cfg := DefaultSegmentConfig(128)

	// Then: it validates cleanly
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, DistanceCosine, cfg.Distance)
	assert.Equal(t, IndexKindHNSW, cfg.Index)
	assert.Equal(t, StorageInMemory, cfg.Storage)
}

func TestValidate_RejectsZeroVectorSize(t *testing.T) {
	cfg := DefaultSegmentConfig(0)

	err := cfg.Validate()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "vector_size")
}

func TestValidate_RejectsUnknownDistance(t *testing.T) {
	cfg := DefaultSegmentConfig(8)
	cfg.Distance = "Manhattan"

	err := cfg.Validate()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "distance")
}

func TestValidate_RejectsUnknownIndexKind(t *testing.T) {
	cfg := DefaultSegmentConfig(8)
	cfg.Index = "Bogus"

	err := cfg.Validate()

	assert.Error(t, err)
}

func TestValidate_RejectsInvalidHNSWParamsWhenHNSWSelected(t *testing.T) {
	cfg := DefaultSegmentConfig(8)
	cfg.HNSW.M = 0

	err := cfg.Validate()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "hnsw.m")
}

func TestValidate_IgnoresHNSWParamsWhenPlainSelected(t *testing.T) {
	cfg := DefaultSegmentConfig(8)
	cfg.Index = IndexKindPlain
	cfg.HNSW.M = 0

	assert.NoError(t, cfg.Validate())
}

func TestSaveThenLoad_RoundTripsConfig(t *testing.T) {
	// Given: a non-default config
	dir := t.TempDir()
	path := filepath.Join(dir, "segment.yaml")

	cfg := DefaultSegmentConfig(64)
	cfg.Distance = DistanceDot
	cfg.Storage = StorageSQLite
	cfg.HNSW.M = 24

	// When: saving and reloading
	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)

	// Then: the reloaded config matches what was saved
	require.NoError(t, err)
	assert.Equal(t, cfg.VectorSize, loaded.VectorSize)
	assert.Equal(t, cfg.Distance, loaded.Distance)
	assert.Equal(t, cfg.Storage, loaded.Storage)
	assert.Equal(t, cfg.HNSW.M, loaded.HNSW.M)
}

func TestLoad_FillsDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vector_size: 16\n"), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 16, cfg.VectorSize)
	assert.Equal(t, DistanceCosine, cfg.Distance)
	assert.Equal(t, IndexKindHNSW, cfg.Index)
	assert.Equal(t, 64, cfg.Ef)
}

func TestLoad_ReturnsErrorForMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	assert.Error(t, err)
}

func TestLoad_ReturnsErrorForInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vector_size: -1\n"), 0o644))

	_, err := Load(path)

	assert.Error(t, err)
}
