// Package visited provides reusable, generation-stamped bitsets for HNSW
// graph traversal, plus a semaphore-bounded pool so concurrent search
// and insertion traversals share a fixed number of bitsets instead of
// allocating one per traversal.
package visited

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Set is a reusable "visited offsets" bitset. Clear is O(1): it just
// bumps the generation counter instead of zeroing the backing array, so
// a Set can be reused across many traversals without reallocating.
type Set struct {
	gen       []uint32
	current   uint32
	tombstone uint32 // sentinel meaning "never visited"
}

// NewSet returns a Set sized for offsets in [0, capacity).
func NewSet(capacity int) *Set {
	return &Set{
		gen:     make([]uint32, capacity),
		current: 1,
	}
}

// Visit marks offset as visited in the current generation and reports
// whether it was already visited.
func (s *Set) Visit(offset uint32) (alreadyVisited bool) {
	s.ensureCapacity(offset)
	if s.gen[offset] == s.current {
		return true
	}
	s.gen[offset] = s.current
	return false
}

// IsVisited reports whether offset has been visited in the current
// generation, without marking it.
func (s *Set) IsVisited(offset uint32) bool {
	if int(offset) >= len(s.gen) {
		return false
	}
	return s.gen[offset] == s.current
}

// Clear starts a new generation; all prior Visit marks become invisible.
func (s *Set) Clear() {
	s.current++
	if s.current == s.tombstone {
		// Wrapped around a uint32 generation counter; zero the backing
		// array once and restart at generation 1. In practice this never
		// fires (it would take billions of traversals against the same
		// Set), but it keeps the invariant airtight.
		for i := range s.gen {
			s.gen[i] = 0
		}
		s.current = 1
	}
}

func (s *Set) ensureCapacity(offset uint32) {
	if int(offset) < len(s.gen) {
		return
	}
	grown := make([]uint32, offset+1)
	copy(grown, s.gen)
	s.gen = grown
}

// Pool bounds the number of Sets concurrently checked out, so that
// concurrent search and insertion traversals cannot allocate
// unboundedly many bitsets at once.
type Pool struct {
	sem      *semaphore.Weighted
	capacity int
	free     chan *Set
}

// NewPool returns a Pool allowing at most maxConcurrent checked-out Sets,
// each sized for offsets in [0, capacity).
func NewPool(maxConcurrent int, capacity int) *Pool {
	return &Pool{
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		capacity: capacity,
		free:     make(chan *Set, maxConcurrent),
	}
}

// Acquire blocks until a slot is available (bounded by maxConcurrent) and
// returns a cleared Set. Release must be called when done.
func (p *Pool) Acquire(ctx context.Context) (*Set, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	select {
	case s := <-p.free:
		s.Clear()
		return s, nil
	default:
		return NewSet(p.capacity), nil
	}
}

// Release returns a Set to the pool for reuse and frees its semaphore slot.
func (p *Pool) Release(s *Set) {
	select {
	case p.free <- s:
	default:
		// Pool already holds maxConcurrent idle sets; drop this one.
	}
	p.sem.Release(1)
}
