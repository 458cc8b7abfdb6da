package idtracker

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"

	vecerr "github.com/vectorcore/hnswengine/internal/errors"
)

// Snapshot is the gob-encodable state of a Tracker, mirroring the three
// maps it owns (§6.2: segment flush scopes the tracker alongside the
// store and graph).
type Snapshot struct {
	ExternalToInternal map[uint64]uint32
	Versions           map[uint64]uint64
	NextOffset         uint32
}

// Dump captures the tracker's current state for persistence.
func (t *Tracker) Dump() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ext := make(map[uint64]uint32, len(t.externalToInternal))
	for k, v := range t.externalToInternal {
		ext[k] = v
	}
	ver := make(map[uint64]uint64, len(t.versions))
	for k, v := range t.versions {
		ver[k] = v
	}
	return Snapshot{ExternalToInternal: ext, Versions: ver, NextOffset: t.nextOffset}
}

// LoadSnapshot reconstructs a Tracker from a Snapshot, rebuilding the
// internal-to-external reverse map.
func LoadSnapshot(s Snapshot) *Tracker {
	t := New()
	t.nextOffset = s.NextOffset
	for external, offset := range s.ExternalToInternal {
		t.externalToInternal[external] = offset
		t.internalToExternal[offset] = external
	}
	for external, v := range s.Versions {
		t.versions[external] = v
	}
	return t
}

const trackerFileName = "tracker.gob"

// Flush persists the tracker under dir via atomic rename.
func (t *Tracker) Flush(dir string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(t.Dump()); err != nil {
		return vecerr.Internal("encode tracker snapshot", err)
	}

	path := filepath.Join(dir, trackerFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return vecerr.Storage(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return vecerr.Storage(err)
	}
	return nil
}

// Load reads a tracker previously persisted under dir.
func Load(dir string) (*Tracker, error) {
	path := filepath.Join(dir, trackerFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vecerr.Storage(err)
	}

	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, vecerr.Internal("decode tracker snapshot", err)
	}
	return LoadSnapshot(snap), nil
}
