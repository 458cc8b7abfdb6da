// Package vstore implements the vector store contract (§4.2, §6.1): an
// append-only, offset-addressed container of preprocessed vectors with a
// tombstone set and a scorer factory. Three realizations share the
// contract: an in-memory store, a memory-mapped store backed by a frozen
// on-disk segment plus an in-memory overflow, and a modernc.org/sqlite
// key-value store.
package vstore

import (
	"iter"
	"sync"

	"github.com/vectorcore/hnswengine/internal/metric"

	vecerr "github.com/vectorcore/hnswengine/internal/errors"
)

// Scorer scores candidate offsets against a bound query vector (§4.3).
type Scorer interface {
	// Score scores offset against the bound query. Callers must only pass
	// offsets for which Visible reports true.
	Score(offset uint32) float32

	// ScorePair scores two stored vectors directly, bypassing the bound
	// query.
	ScorePair(a, b []float32) float32

	// Visible reports whether offset is in range and not tombstoned.
	Visible(offset uint32) bool

	// ScoreIter lazily scores the offsets it yields, pulling one at a
	// time and skipping anything not Visible. Implementations must not
	// materialize the full candidate sequence up front; a caller that
	// stops ranging early leaves the rest of it unconsumed.
	ScoreIter(it iter.Seq[uint32]) iter.Seq2[uint32, float32]
}

// scoreIterFunc is the ScoreIter behavior every Scorer realization
// shares: it differs only in how Score/Visible reach the underlying
// store, not in the pull-one-at-a-time iteration shape.
func scoreIterFunc(s Scorer, it iter.Seq[uint32]) iter.Seq2[uint32, float32] {
	return func(yield func(uint32, float32) bool) {
		for offset := range it {
			if !s.Visible(offset) {
				continue
			}
			if !yield(offset, s.Score(offset)) {
				return
			}
		}
	}
}

// Store is the vector store contract shared by every realization.
type Store interface {
	// Dim returns the configured vector dimension.
	Dim() int

	// Put preprocesses v under the store's metric, appends it, and
	// returns the new offset. Fails DimensionMismatch if len(v) != Dim().
	Put(v []float32) (uint32, error)

	// Update overwrites or append-and-tombstones the vector at offset,
	// per the realization's update semantics (§9 open question), and
	// returns the live offset afterward.
	Update(offset uint32, v []float32) (uint32, error)

	// Delete tombstones offset. Idempotent.
	Delete(offset uint32)

	// Get returns the preprocessed vector at offset, or ok=false if the
	// offset was never allocated or (at the store's option) is tombstoned.
	Get(offset uint32) (v []float32, ok bool)

	// IterLive yields live (non-tombstoned) offsets in ascending order.
	IterLive() []uint32

	// VectorCount returns the number of live vectors.
	VectorCount() int

	// DeletedCount returns the number of tombstoned offsets.
	DeletedCount() int

	// TotalVectorCount is VectorCount() + DeletedCount().
	TotalVectorCount() int

	// RawScorer preprocesses query under the store's metric and returns a
	// Scorer bound to it, valid for the lifetime of the store.
	RawScorer(query []float32) (Scorer, error)

	// UpdateFrom bulk-appends the live vectors of other, in ascending
	// offset order, returning the contiguous range of newly-assigned
	// offsets as [start, end).
	UpdateFrom(other Store) (start, end uint32, err error)
}

// InMemoryStore is the simplest Store realization: a growable slice of
// preprocessed vectors plus a tombstone set, guarded by a RWMutex per the
// single-writer-per-segment discipline (§5). Update overwrites in place.
type InMemoryStore struct {
	mu        sync.RWMutex
	dim       int
	m         metric.Metric
	vectors   [][]float32
	tombstone []bool
}

// NewInMemoryStore returns an empty store for vectors of the given
// dimension, scored under m.
func NewInMemoryStore(dim int, m metric.Metric) *InMemoryStore {
	return &InMemoryStore{dim: dim, m: m}
}

func (s *InMemoryStore) Dim() int { return s.dim }

func (s *InMemoryStore) Put(v []float32) (uint32, error) {
	if err := metric.CheckDimension(s.dim, v); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offset := uint32(len(s.vectors))
	s.vectors = append(s.vectors, s.m.Preprocess(v))
	s.tombstone = append(s.tombstone, false)
	return offset, nil
}

func (s *InMemoryStore) Update(offset uint32, v []float32) (uint32, error) {
	if err := metric.CheckDimension(s.dim, v); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if int(offset) >= len(s.vectors) {
		return 0, vecerr.Service("update: offset out of range")
	}

	s.vectors[offset] = s.m.Preprocess(v)
	s.tombstone[offset] = false
	return offset, nil
}

func (s *InMemoryStore) Delete(offset uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(offset) < len(s.tombstone) {
		s.tombstone[offset] = true
	}
}

func (s *InMemoryStore) Get(offset uint32) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if int(offset) >= len(s.vectors) || s.tombstone[offset] {
		return nil, false
	}
	return s.vectors[offset], true
}

func (s *InMemoryStore) IterLive() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	live := make([]uint32, 0, len(s.vectors))
	for i, dead := range s.tombstone {
		if !dead {
			live = append(live, uint32(i))
		}
	}
	return live
}

func (s *InMemoryStore) VectorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, dead := range s.tombstone {
		if !dead {
			count++
		}
	}
	return count
}

func (s *InMemoryStore) DeletedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, dead := range s.tombstone {
		if dead {
			count++
		}
	}
	return count
}

func (s *InMemoryStore) TotalVectorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

func (s *InMemoryStore) RawScorer(query []float32) (Scorer, error) {
	if err := metric.CheckDimension(s.dim, query); err != nil {
		return nil, err
	}
	return &inMemoryScorer{store: s, query: s.m.Preprocess(query)}, nil
}

func (s *InMemoryStore) UpdateFrom(other Store) (uint32, uint32, error) {
	live := other.IterLive()

	s.mu.Lock()
	defer s.mu.Unlock()

	start := uint32(len(s.vectors))
	for _, offset := range live {
		v, ok := other.Get(offset)
		if !ok {
			continue
		}
		if len(v) != s.dim {
			return 0, 0, vecerr.DimensionMismatch(s.dim, len(v))
		}
		s.vectors = append(s.vectors, v)
		s.tombstone = append(s.tombstone, false)
	}
	end := uint32(len(s.vectors))

	return start, end, nil
}

type inMemoryScorer struct {
	store *InMemoryStore
	query []float32
}

func (sc *inMemoryScorer) Score(offset uint32) float32 {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	return sc.store.m.Similarity(sc.query, sc.store.vectors[offset])
}

func (sc *inMemoryScorer) ScorePair(a, b []float32) float32 {
	return sc.store.m.Similarity(a, b)
}

func (sc *inMemoryScorer) Visible(offset uint32) bool {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	return int(offset) < len(sc.store.vectors) && !sc.store.tombstone[offset]
}

func (sc *inMemoryScorer) ScoreIter(it iter.Seq[uint32]) iter.Seq2[uint32, float32] {
	return scoreIterFunc(sc, it)
}

var _ Store = (*InMemoryStore)(nil)
var _ Scorer = (*inMemoryScorer)(nil)
