package vstore

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vectorcore/hnswengine/internal/metric"

	mmapgo "github.com/blevesearch/mmap-go"
	vecerr "github.com/vectorcore/hnswengine/internal/errors"
)

// recordSize is dim*4 bytes per vector; offsets map directly to byte
// ranges in the base file with no index, per §6.2's "dense array of
// dim*4 bytes per offset" store file format.

// MmapStore is a memory-mapped vector store: a frozen, read-only base
// segment loaded from disk via github.com/blevesearch/mmap-go (an
// indirect bleve dependency, promoted here to direct use), plus
// an in-memory overflow slice for vectors written since the base was
// frozen. A hashicorp/golang-lru/v2 cache holds recently-decoded vectors
// from the mmap'd region so repeated scoring of hot offsets avoids
// re-copying from the mapped bytes.
type MmapStore struct {
	mu sync.RWMutex

	dim int
	m   metric.Metric

	file     *os.File
	mapping  mmapgo.MMap
	baseLen  uint32 // number of offsets covered by the frozen base
	overflow [][]float32
	tombstone []bool

	cache *lru.Cache[uint32, []float32]
}

// NewMmapStore returns an empty store with no frozen base; all vectors
// live in the in-memory overflow until Freeze is called.
func NewMmapStore(dim int, m metric.Metric) (*MmapStore, error) {
	cache, err := lru.New[uint32, []float32](4096)
	if err != nil {
		return nil, fmt.Errorf("create vector cache: %w", err)
	}
	return &MmapStore{dim: dim, m: m, cache: cache}, nil
}

// OpenMmapStore loads a frozen base segment file written by Freeze and
// returns a store ready for further appends.
func OpenMmapStore(path string, dim int, m metric.Metric) (*MmapStore, error) {
	s, err := NewMmapStore(dim, m)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mmap store %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat mmap store %s: %w", path, err)
	}
	if info.Size() == 0 {
		f.Close()
		return s, nil
	}

	mapping, err := mmapgo.Map(f, mmapgo.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap store %s: %w", path, err)
	}

	recordSize := int64(dim) * 4
	s.file = f
	s.mapping = mapping
	s.baseLen = uint32(info.Size() / recordSize)
	s.tombstone = make([]bool, s.baseLen)

	return s, nil
}

// Close unmaps and closes the frozen base file, if any.
func (s *MmapStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mapping != nil {
		if err := s.mapping.Unmap(); err != nil {
			return fmt.Errorf("unmap store: %w", err)
		}
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// Freeze writes every currently-live vector to path as a dense
// dim*4-byte-per-record file (§6.2) via a temp file plus atomic rename,
// matching the reference stack's persistence pattern.
func (s *MmapStore) Freeze(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}

	total := int(s.baseLen) + len(s.overflow)
	buf := make([]byte, s.dim*4)
	for offset := 0; offset < total; offset++ {
		v, _ := s.getLocked(uint32(offset))
		if v == nil {
			v = make([]float32, s.dim)
		}
		for i, x := range v {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
		}
		if _, err := f.Write(buf); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("write store record: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp store file: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *MmapStore) Dim() int { return s.dim }

func (s *MmapStore) Put(v []float32) (uint32, error) {
	if err := metric.CheckDimension(s.dim, v); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offset := s.baseLen + uint32(len(s.overflow))
	s.overflow = append(s.overflow, s.m.Preprocess(v))
	s.tombstone = append(s.tombstone, false)
	return offset, nil
}

// Update overwrites in place for offsets that live in the overflow
// region; for offsets baked into the frozen, read-only base it appends a
// replacement to the overflow and tombstones the original, since the
// mmap'd bytes cannot be mutated.
func (s *MmapStore) Update(offset uint32, v []float32) (uint32, error) {
	if err := metric.CheckDimension(s.dim, v); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if offset < s.baseLen {
		s.tombstone[offset] = true
		newOffset := s.baseLen + uint32(len(s.overflow))
		s.overflow = append(s.overflow, s.m.Preprocess(v))
		s.tombstone = append(s.tombstone, false)
		return newOffset, nil
	}

	idx := offset - s.baseLen
	if int(idx) >= len(s.overflow) {
		return 0, vecerr.Service("update: offset out of range")
	}
	s.overflow[idx] = s.m.Preprocess(v)
	s.tombstone[offset] = false
	s.cache.Remove(offset)
	return offset, nil
}

func (s *MmapStore) Delete(offset uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(offset) < len(s.tombstone) {
		s.tombstone[offset] = true
		s.cache.Remove(offset)
	}
}

func (s *MmapStore) Get(offset uint32) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(offset)
}

func (s *MmapStore) getLocked(offset uint32) ([]float32, bool) {
	if int(offset) >= len(s.tombstone) || s.tombstone[offset] {
		return nil, false
	}

	if offset >= s.baseLen {
		return s.overflow[offset-s.baseLen], true
	}

	if v, ok := s.cache.Get(offset); ok {
		return v, true
	}

	recordSize := s.dim * 4
	start := int(offset) * recordSize
	raw := s.mapping[start : start+recordSize]
	v := make([]float32, s.dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	s.cache.Add(offset, v)
	return v, true
}

func (s *MmapStore) IterLive() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	live := make([]uint32, 0, len(s.tombstone))
	for i, dead := range s.tombstone {
		if !dead {
			live = append(live, uint32(i))
		}
	}
	return live
}

func (s *MmapStore) VectorCount() int {
	return len(s.IterLive())
}

func (s *MmapStore) DeletedCount() int {
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

func (s *MmapStore) TotalVectorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tombstone)
}

func (s *MmapStore) RawScorer(query []float32) (Scorer, error) {
	if err := metric.CheckDimension(s.dim, query); err != nil {
		return nil, err
	}
	return &mmapScorer{store: s, query: s.m.Preprocess(query)}, nil
}

func (s *MmapStore) UpdateFrom(other Store) (uint32, uint32, error) {
	live := other.IterLive()

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.baseLen + uint32(len(s.overflow))
	for _, offset := range live {
		v, ok := other.Get(offset)
		if !ok {
			continue
		}
		if len(v) != s.dim {
			return 0, 0, vecerr.DimensionMismatch(s.dim, len(v))
		}
		s.overflow = append(s.overflow, v)
		s.tombstone = append(s.tombstone, false)
	}
	end := s.baseLen + uint32(len(s.overflow))

	return start, end, nil
}

type mmapScorer struct {
	store *MmapStore
	query []float32
}

func (sc *mmapScorer) Score(offset uint32) float32 {
	v, _ := sc.store.Get(offset)
	return sc.store.m.Similarity(sc.query, v)
}

func (sc *mmapScorer) ScorePair(a, b []float32) float32 {
	return sc.store.m.Similarity(a, b)
}

func (sc *mmapScorer) Visible(offset uint32) bool {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	return int(offset) < len(sc.store.tombstone) && !sc.store.tombstone[offset]
}

func (sc *mmapScorer) ScoreIter(it iter.Seq[uint32]) iter.Seq2[uint32, float32] {
	return scoreIterFunc(sc, it)
}

var _ Store = (*MmapStore)(nil)
var _ Scorer = (*mmapScorer)(nil)
