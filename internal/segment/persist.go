package segment

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vectorcore/hnswengine/internal/config"
	"github.com/vectorcore/hnswengine/internal/hnswindex"
	"github.com/vectorcore/hnswengine/internal/idtracker"
	"github.com/vectorcore/hnswengine/internal/metric"
	"github.com/vectorcore/hnswengine/internal/vstore"

	vecerr "github.com/vectorcore/hnswengine/internal/errors"
)

// fsRetryConfig governs retries of the individual blocking filesystem
// calls in Flush/Load (§5: flush/save/load "may block on the
// filesystem"). Short and few: these are local-disk operations, not
// network calls, so a transient EINTR/EAGAIN-class failure should clear
// within a couple of backoffs or not at all.
var fsRetryConfig = vecerr.RetryConfig{
	MaxRetries:   2,
	InitialDelay: 10 * time.Millisecond,
	MaxDelay:     100 * time.Millisecond,
	Multiplier:   2,
}

const (
	stateFileName = "segment_state.json"
	storeFileName = "vectors.store"
)

// state is the small JSON sidecar persisted atomically alongside the
// graph and store files (§6.2): segment version plus the config it was
// built with.
type state struct {
	InstanceID string               `json:"instance_id"`
	Version    uint64               `json:"version"`
	Config     config.SegmentConfig `json:"config"`
}

// Flush persists the tracker, store, and index under dir (§5, §6.2).
// Only an Mmap-backed store has anything to freeze; an InMemory store's
// vectors live solely for the process lifetime, matching the reference
// stack's own ephemeral-vs-frozen split.
func (s *Segment) Flush(dir string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return vecerr.Storage(err)
	}

	if freezer, ok := s.store.(interface{ Freeze(path string) error }); ok {
		if err := freezer.Freeze(filepath.Join(dir, storeFileName)); err != nil {
			return err
		}
	}

	if err := s.tracker.Flush(dir); err != nil {
		return err
	}

	if s.index != nil {
		if err := s.index.Save(dir); err != nil {
			return err
		}
	}

	st := state{InstanceID: s.instanceID, Version: s.version, Config: s.cfg}
	if err := writeStateAtomic(filepath.Join(dir, stateFileName), st); err != nil {
		return err
	}

	slog.Info("segment flush complete",
		slog.String("instance_id", s.instanceID),
		slog.String("dir", dir),
		slog.Uint64("version", s.version))
	return nil
}

func writeStateAtomic(path string, st state) error {
	tmp := path + ".tmp"
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return vecerr.Internal("marshal segment state", err)
	}

	return vecerr.Retry(context.Background(), fsRetryConfig, func() error {
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return vecerr.Storage(err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return vecerr.Storage(err)
		}
		return nil
	})
}

// Load reconstructs a segment previously written by Flush. Only
// Mmap-backed segments round-trip their vectors to disk; an InMemory
// segment's persisted state file exists solely to recover its version
// and config, with an empty store (§8: "save -> load ... yields a
// segment whose search on any fixed query returns identical results"
// is scoped to the Mmap storage_type this engine actually freezes).
func Load(dir string) (*Segment, error) {
	data, err := vecerr.RetryWithResult(context.Background(), fsRetryConfig, func() ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, stateFileName))
	})
	if err != nil {
		return nil, vecerr.Storage(err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, vecerr.Internal("unmarshal segment state", err)
	}

	m := metric.New(st.Config.Distance)

	var store vstore.Store
	switch st.Config.Storage {
	case config.StorageMmap:
		mstore, err := vstore.OpenMmapStore(filepath.Join(dir, storeFileName), st.Config.VectorSize, m)
		if err != nil {
			return nil, vecerr.Storage(err)
		}
		store = mstore
	default:
		store = vstore.NewInMemoryStore(st.Config.VectorSize, m)
	}

	tracker, err := idtracker.Load(dir)
	if err != nil {
		return nil, err
	}

	instanceID := st.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	s := &Segment{
		tracker:    tracker,
		store:      store,
		cfg:        st.Config,
		version:    st.Version,
		instanceID: instanceID,
	}

	if st.Config.Index == config.IndexKindPlain {
		s.plain = hnswindex.NewPlainIndex(store)
	} else {
		idx, err := hnswindex.Load(dir, store)
		if err != nil {
			return nil, err
		}
		s.index = idx
	}

	return s, nil
}

// DropData discards every point in the segment, resetting it to empty
// while keeping its configuration and version counters intact (§4.8's
// drop_data: a full reset, not a failure-latch clear).
func (s *Segment) DropData() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracker = idtracker.New()

	m := metric.New(s.cfg.Distance)
	switch s.cfg.Storage {
	case config.StorageInMemory:
		s.store = vstore.NewInMemoryStore(s.cfg.VectorSize, m)
	default:
		// Mmap/SQLite stores own an open file handle that DropData has no
		// path to reopen against; tombstone every live offset instead of
		// replacing the store outright.
		for _, offset := range s.store.IterLive() {
			s.store.Delete(offset)
		}
	}

	if s.cfg.Index == config.IndexKindPlain {
		s.plain = hnswindex.NewPlainIndex(s.store)
	} else {
		s.index = hnswindex.New(s.store, s.cfg.HNSW, 0)
	}
}
