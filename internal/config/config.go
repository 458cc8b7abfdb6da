// Package config loads and validates segment configuration, the enumerated
// options recognized by a segment (vector size, distance metric, index
// kind, storage kind). It mirrors the reference stack's own on-disk config
// loader: YAML on disk via gopkg.in/yaml.v3, a defaulting constructor, and
// explicit validation separate from loading.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Distance identifies the similarity metric a segment scores vectors with.
type Distance string

const (
	DistanceCosine    Distance = "Cosine"
	DistanceEuclidean Distance = "Euclidean"
	DistanceDot       Distance = "Dot"
)

// IndexKind selects the index structure a segment builds over its vectors.
type IndexKind string

const (
	IndexKindHNSW  IndexKind = "Hnsw"
	IndexKindPlain IndexKind = "Plain"
)

// StorageKind selects the vector store realization backing a segment.
type StorageKind string

const (
	StorageInMemory StorageKind = "InMemory"
	StorageMmap     StorageKind = "Mmap"
	StorageSQLite   StorageKind = "SQLite"
)

// HNSWConfig configures the HNSW index kind.
type HNSWConfig struct {
	// M is the maximum number of bidirectional links per node on layers
	// above layer 0. Layer 0 uses M0 = 2*M.
	M int `yaml:"m" json:"m"`

	// EfConstruct is the size of the dynamic candidate list used while
	// building the graph; higher values trade build time for recall.
	EfConstruct int `yaml:"ef_construct" json:"ef_construct"`

	// FullScanThreshold is kept for forward compatibility with the
	// upstream config shape; this module additionally consults it to
	// answer IndexKindHNSW searches with a brute-force scan while the
	// live vector count is below this size. IndexKindPlain segments
	// always scan, whatever its value.
	FullScanThreshold int `yaml:"full_scan_threshold" json:"full_scan_threshold"`
}

// SegmentConfig is the full set of options recognized by a segment (§6.3).
type SegmentConfig struct {
	// VectorSize is the dimensionality every vector in the segment must
	// have. Required, must be > 0.
	VectorSize int `yaml:"vector_size" json:"vector_size"`

	Distance Distance `yaml:"distance" json:"distance"`

	Index IndexKind `yaml:"index_kind" json:"index_kind"`

	HNSW HNSWConfig `yaml:"hnsw" json:"hnsw"`

	Storage StorageKind `yaml:"storage_type" json:"storage_type"`

	// Ef is the default search-time candidate-list size, overridable per
	// query via hnsw_ef.
	Ef int `yaml:"ef" json:"ef"`
}

// DefaultSegmentConfig returns sensible defaults for a segment of the given
// vector size, following the reference stack's own defaulting style
// (DefaultVectorStoreConfig).
func DefaultSegmentConfig(vectorSize int) SegmentConfig {
	return SegmentConfig{
		VectorSize: vectorSize,
		Distance:   DistanceCosine,
		Index:      IndexKindHNSW,
		HNSW: HNSWConfig{
			M:                 16,
			EfConstruct:       100,
			FullScanThreshold: 10_000,
		},
		Storage: StorageInMemory,
		Ef:      64,
	}
}

// Validate checks that the configuration is internally consistent,
// returning the first problem found.
func (c SegmentConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("vector_size must be > 0, got %d", c.VectorSize)
	}

	switch c.Distance {
	case DistanceCosine, DistanceEuclidean, DistanceDot:
	default:
		return fmt.Errorf("unknown distance metric %q", c.Distance)
	}

	switch c.Index {
	case IndexKindHNSW, IndexKindPlain:
	default:
		return fmt.Errorf("unknown index kind %q", c.Index)
	}

	switch c.Storage {
	case StorageInMemory, StorageMmap, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage kind %q", c.Storage)
	}

	if c.Index == IndexKindHNSW {
		if c.HNSW.M <= 0 {
			return fmt.Errorf("hnsw.m must be > 0, got %d", c.HNSW.M)
		}
		if c.HNSW.EfConstruct <= 0 {
			return fmt.Errorf("hnsw.ef_construct must be > 0, got %d", c.HNSW.EfConstruct)
		}
	}

	if c.Ef <= 0 {
		return fmt.Errorf("ef must be > 0, got %d", c.Ef)
	}

	return nil
}

// Load reads a SegmentConfig from a YAML document at path, filling any
// zero-valued HNSW, ef, distance, index and storage fields from
// DefaultSegmentConfig before validating. vector_size has no default:
// a file that omits it fails validation.
func Load(path string) (SegmentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SegmentConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultSegmentConfig(0)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SegmentConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.HNSW.M == 0 {
		cfg.HNSW.M = DefaultSegmentConfig(cfg.VectorSize).HNSW.M
	}
	if cfg.HNSW.EfConstruct == 0 {
		cfg.HNSW.EfConstruct = DefaultSegmentConfig(cfg.VectorSize).HNSW.EfConstruct
	}
	if cfg.HNSW.FullScanThreshold == 0 {
		cfg.HNSW.FullScanThreshold = DefaultSegmentConfig(cfg.VectorSize).HNSW.FullScanThreshold
	}
	if cfg.Ef == 0 {
		cfg.Ef = DefaultSegmentConfig(cfg.VectorSize).Ef
	}
	if cfg.Distance == "" {
		cfg.Distance = DistanceCosine
	}
	if cfg.Index == "" {
		cfg.Index = IndexKindHNSW
	}
	if cfg.Storage == "" {
		cfg.Storage = StorageInMemory
	}

	if err := cfg.Validate(); err != nil {
		return SegmentConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg SegmentConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
