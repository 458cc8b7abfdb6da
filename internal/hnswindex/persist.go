package hnswindex

import (
	"encoding/gob"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/vectorcore/hnswengine/internal/config"
	"github.com/vectorcore/hnswengine/internal/graph"
	"github.com/vectorcore/hnswengine/internal/vstore"

	vecerr "github.com/vectorcore/hnswengine/internal/errors"
)

const (
	graphFileName = "graph.gob"
	metaFileName  = "hnsw_meta.json"
)

// metadata is the small JSON sidecar persisted next to the gob-encoded
// graph (§6.2, §9): M, ef_construct, ef, and full_scan_threshold.
type metadata struct {
	M                 int `json:"m"`
	EfConstruct       int `json:"ef_construct"`
	Ef                int `json:"ef"`
	FullScanThreshold int `json:"full_scan_threshold"`
}

// Save persists the graph and its metadata under dir, using the
// atomic-rename pattern (write a .tmp sibling, then os.Rename) for each
// file.
func (idx *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return vecerr.Storage(err)
	}

	if err := writeAtomic(filepath.Join(dir, graphFileName), func(f *os.File) error {
		return gob.NewEncoder(f).Encode(idx.graph.Dump())
	}); err != nil {
		return err
	}

	meta := metadata{
		M:                 idx.cfg.M,
		EfConstruct:       idx.cfg.EfConstruct,
		Ef:                idx.cfg.EfConstruct,
		FullScanThreshold: idx.cfg.FullScanThreshold,
	}
	return writeAtomic(filepath.Join(dir, metaFileName), func(f *os.File) error {
		return json.NewEncoder(f).Encode(meta)
	})
}

// Load reconstructs an Index bound to store from the graph and metadata
// files previously written by Save.
func Load(dir string, store vstore.Store) (*Index, error) {
	var snap graph.Snapshot
	if err := readFile(filepath.Join(dir, graphFileName), func(f *os.File) error {
		return gob.NewDecoder(f).Decode(&snap)
	}); err != nil {
		return nil, err
	}

	var meta metadata
	if err := readFile(filepath.Join(dir, metaFileName), func(f *os.File) error {
		return json.NewDecoder(f).Decode(&meta)
	}); err != nil {
		return nil, err
	}

	cfg := config.HNSWConfig{
		M:                 meta.M,
		EfConstruct:       meta.EfConstruct,
		FullScanThreshold: meta.FullScanThreshold,
	}

	idx := &Index{
		graph: graph.LoadSnapshot(snap, store.TotalVectorCount()),
		store: store,
		cfg:   cfg,
	}
	return idx, nil
}

func writeAtomic(path string, encode func(f *os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return vecerr.Storage(err)
	}

	if err := encode(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return vecerr.Storage(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return vecerr.Storage(err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return vecerr.Storage(err)
	}
	return nil
}

func readFile(path string, decode func(f *os.File) error) error {
	f, err := os.Open(path)
	if err != nil {
		return vecerr.Storage(err)
	}
	defer f.Close()
	return decode(f)
}
