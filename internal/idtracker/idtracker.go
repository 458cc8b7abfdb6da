// Package idtracker maps between external point IDs (caller-chosen
// uint64s) and the dense internal offsets the vector store and graph
// address points by, and records the op_num each external ID was last
// written at. Grounded on original_source/src/id_tracker's
// SimpleIdTracker: two maps plus a version map, with ordered iteration by
// external ID.
package idtracker

import (
	"sort"
	"sync"

	vecerr "github.com/vectorcore/hnswengine/internal/errors"
)

// Tracker is the bidirectional external-ID <-> internal-offset map plus
// per-point version tracking described in §4.4/§4.8.
type Tracker struct {
	mu sync.RWMutex

	externalToInternal map[uint64]uint32
	internalToExternal map[uint32]uint64
	versions           map[uint64]uint64 // external ID -> last-applied op_num

	nextOffset uint32
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{
		externalToInternal: make(map[uint64]uint32),
		internalToExternal: make(map[uint32]uint64),
		versions:           make(map[uint64]uint64),
	}
}

// InternalID returns the internal offset for an external ID, if tracked.
func (t *Tracker) InternalID(external uint64) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	offset, ok := t.externalToInternal[external]
	return offset, ok
}

// ExternalID returns the external ID for an internal offset, if tracked.
func (t *Tracker) ExternalID(internal uint32) (uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	external, ok := t.internalToExternal[internal]
	return external, ok
}

// Version returns the op_num this external ID was last written at, and
// whether the point is currently tracked.
func (t *Tracker) Version(external uint64) (uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.versions[external]
	return v, ok
}

// Assign records a new mapping for an external ID not yet tracked,
// allocating the next dense internal offset, and stamps its version.
// It is the caller's responsibility (segment.upsert_point) to check
// Version first and skip re-assignment for an existing point.
func (t *Tracker) Assign(external uint64, opNum uint64) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	offset := t.nextOffset
	t.nextOffset++

	t.externalToInternal[external] = offset
	t.internalToExternal[offset] = external
	t.versions[external] = opNum

	return offset
}

// Rebind points an already-tracked external ID at a new internal offset
// (used when a vector store performs an append+tombstone update rather
// than an in-place overwrite) and stamps the new version.
func (t *Tracker) Rebind(external uint64, newInternal uint32, opNum uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if oldInternal, ok := t.externalToInternal[external]; ok {
		delete(t.internalToExternal, oldInternal)
	}

	t.externalToInternal[external] = newInternal
	t.internalToExternal[newInternal] = external
	t.versions[external] = opNum
}

// SetVersion stamps the version of an already-tracked external ID without
// moving it, used when an in-place store overwrites a vector at its
// existing offset.
func (t *Tracker) SetVersion(external uint64, opNum uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.versions[external] = opNum
}

// Drop removes an external ID from the tracker entirely (used by
// delete_point). Returns the internal offset it held, if any.
func (t *Tracker) Drop(external uint64) (uint32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	offset, ok := t.externalToInternal[external]
	if !ok {
		return 0, false
	}

	delete(t.externalToInternal, external)
	delete(t.internalToExternal, offset)
	delete(t.versions, external)

	return offset, true
}

// Len returns the number of live (non-dropped) points.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.externalToInternal)
}

// IterFrom returns the live external IDs greater than or equal to from,
// in ascending order. It materializes a snapshot rather than holding the
// read lock across iteration (§9, "Iteration over interior-borrowed
// data").
func (t *Tracker) IterFrom(from uint64) []uint64 {
	t.mu.RLock()
	ids := make([]uint64, 0, len(t.externalToInternal))
	for external := range t.externalToInternal {
		if external >= from {
			ids = append(ids, external)
		}
	}
	t.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// All returns every live external ID in ascending order.
func (t *Tracker) All() []uint64 {
	return t.IterFrom(0)
}

// ResolveInternal returns the internal offset for an external ID or a
// PointNotFound error, for use on read paths (§7).
func (t *Tracker) ResolveInternal(external uint64) (uint32, error) {
	offset, ok := t.InternalID(external)
	if !ok {
		return 0, vecerr.PointNotFound(external)
	}
	return offset, nil
}
