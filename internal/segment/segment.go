// Package segment composes an ID tracker, a vector store, and an HNSW
// (or brute-force) index into the unit of mutation and query the rest
// of the engine drives (§4.8): upsert_point, delete_point, search,
// vector, iter_points, flush, info, drop_data.
package segment

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/vectorcore/hnswengine/internal/config"
	"github.com/vectorcore/hnswengine/internal/hnswindex"
	"github.com/vectorcore/hnswengine/internal/idtracker"
	"github.com/vectorcore/hnswengine/internal/metric"
	"github.com/vectorcore/hnswengine/internal/vstore"

	vecerr "github.com/vectorcore/hnswengine/internal/errors"
)

// Hit is one scored search result, translated back to the caller's
// external ID.
type Hit struct {
	ID    uint64
	Score float32
}

// Info summarizes a segment's current state, for monitoring/debugging.
type Info struct {
	InstanceID        string
	Version           uint64
	VectorCount       int
	DeletedCount      int
	PointCount        int
	FailedVersion     uint64
	IsFailed          bool
	FailedPointID     uint64
	FailedHasPointID  bool
}

// failedState latches a structural failure until a caller explicitly
// retries at or below the failed op_num (§4.8 step 1/5).
type failedState struct {
	opNum    uint64
	pointID  uint64
	hasPoint bool
	err      error
}

// Segment is the single-writer unit of mutation and query. Its
// interior (tracker, store, index, version, failure state) is
// protected by one mutex: at most one writer mutates at a time, and
// readers observe a consistent snapshot as of the last committed op
// (§5).
type Segment struct {
	mu sync.RWMutex

	tracker *idtracker.Tracker
	store   vstore.Store
	index   *hnswindex.Index
	plain   *hnswindex.PlainIndex
	cfg     config.SegmentConfig

	// instanceID identifies this segment directory across process
	// restarts (§12): a fresh one is minted on New and persisted across
	// Flush/Load, so a watcher or log line can tell two generations of
	// the same directory apart from two distinct segments sharing a
	// version number by coincidence.
	instanceID string

	version uint64
	failed  *failedState
}

// New constructs an empty segment backed by store, using cfg to decide
// between an HNSW index and a brute-force PlainIndex (§6.3).
func New(cfg config.SegmentConfig, store vstore.Store) *Segment {
	s := &Segment{
		tracker:    idtracker.New(),
		store:      store,
		cfg:        cfg,
		instanceID: uuid.NewString(),
	}
	if cfg.Index == config.IndexKindPlain {
		s.plain = hnswindex.NewPlainIndex(store)
	} else {
		s.index = hnswindex.New(store, cfg.HNSW, 0)
	}
	return s
}

// applyGated runs op under the version/failure gating algorithm of
// §4.8. pointID is nil for point-less operations (currently none are
// exposed, but the hook is general).
func (s *Segment) applyGated(opNum uint64, pointID *uint64, op func() error) (applied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed != nil {
		if opNum > s.failed.opNum {
			return false, vecerr.NotRecovered(s.failed.opNum, s.failed.err)
		}
		// opNum <= failed.opNum: this is a retry attempt, proceed.
	}

	if pointID != nil {
		if v, ok := s.tracker.Version(*pointID); ok && v >= opNum {
			return false, nil
		}
	} else if s.version >= opNum {
		return false, nil
	}

	if err := op(); err != nil {
		s.failed = &failedState{
			opNum:    opNum,
			hasPoint: pointID != nil,
			err:      err,
		}
		if pointID != nil {
			s.failed.pointID = *pointID
		}
		slog.Warn("segment latched failed state",
			slog.String("instance_id", s.instanceID),
			slog.Uint64("op_num", opNum),
			slog.Bool("has_point_id", pointID != nil),
			slog.String("error", err.Error()))
		return false, err
	}

	if opNum > s.version {
		s.version = opNum
	}

	if s.failed != nil {
		sameScope := s.failed.hasPoint == (pointID != nil) &&
			(pointID == nil || s.failed.pointID == *pointID)
		if sameScope {
			slog.Info("segment cleared failed state",
				slog.String("instance_id", s.instanceID),
				slog.Uint64("recovered_op_num", opNum),
				slog.Uint64("failed_op_num", s.failed.opNum))
			s.failed = nil
		}
	}

	return true, nil
}

// UpsertPoint inserts a new point or overwrites an existing one under
// externalID, applying at most once per opNum (§4.8).
func (s *Segment) UpsertPoint(externalID uint64, vector []float32, opNum uint64) (bool, error) {
	if err := metric.CheckDimension(s.cfg.VectorSize, vector); err != nil {
		return false, err
	}

	return s.applyGated(opNum, &externalID, func() error {
		if internal, ok := s.tracker.InternalID(externalID); ok {
			newOffset, err := s.store.Update(internal, vector)
			if err != nil {
				return err
			}
			if newOffset == internal {
				s.tracker.SetVersion(externalID, opNum)
				return nil
			}
			// Append+tombstone realization: the point moved to a new
			// offset and needs its own graph node; the stale offset
			// stays in the graph but is now invisible via tombstone.
			s.tracker.Rebind(externalID, newOffset, opNum)
			return s.insertIntoIndex(newOffset)
		}

		offset, err := s.store.Put(vector)
		if err != nil {
			return err
		}
		s.tracker.Assign(externalID, opNum)
		if tracked, _ := s.tracker.InternalID(externalID); tracked != offset {
			return vecerr.Internal("tracker/store offset allocation diverged", nil)
		}
		return s.insertIntoIndex(offset)
	})
}

func (s *Segment) insertIntoIndex(offset uint32) error {
	if s.index == nil {
		return nil
	}
	return s.index.Insert(offset)
}

// DeletePoint tombstones externalID's vector, applying at most once per
// opNum (§4.8).
func (s *Segment) DeletePoint(externalID uint64, opNum uint64) (bool, error) {
	return s.applyGated(opNum, &externalID, func() error {
		offset, ok := s.tracker.Drop(externalID)
		if !ok {
			return nil
		}
		s.store.Delete(offset)
		return nil
	})
}

// Vector returns the live, preprocessed vector stored for externalID.
func (s *Segment) Vector(externalID uint64) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	internal, err := s.tracker.ResolveInternal(externalID)
	if err != nil {
		return nil, err
	}
	v, ok := s.store.Get(internal)
	if !ok {
		return nil, vecerr.PointNotFound(externalID)
	}
	return v, nil
}

// IterPoints returns the live external IDs from from onward, ascending.
func (s *Segment) IterPoints(from uint64) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.IterFrom(from)
}

// Info reports the segment's current state.
func (s *Segment) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{
		InstanceID:   s.instanceID,
		Version:      s.version,
		VectorCount:  s.store.VectorCount(),
		DeletedCount: s.store.DeletedCount(),
		PointCount:   s.tracker.Len(),
	}
	if s.failed != nil {
		info.IsFailed = true
		info.FailedVersion = s.failed.opNum
		info.FailedHasPointID = s.failed.hasPoint
		info.FailedPointID = s.failed.pointID
	}
	return info
}
