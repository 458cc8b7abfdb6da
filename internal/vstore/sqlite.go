package vstore

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"sync"

	"github.com/vectorcore/hnswengine/internal/metric"

	vecerr "github.com/vectorcore/hnswengine/internal/errors"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the vector store contract over
// modernc.org/sqlite, a pure-Go, CGO-free SQLite driver
// (preferred over a CGO sqlite driver
// specifically because this module ships no CGO anywhere else). Vectors
// are BLOBs keyed by offset in a single table. Update always appends a
// new row and tombstones the old offset — the append+tombstone
// resolution of the §9 open question, in contrast to the in-memory
// store's in-place overwrite and the mmap store's, which overwrites in
// place only in its overflow region.
type SQLiteStore struct {
	mu  sync.RWMutex
	db  *sql.DB
	dim int
	m   metric.Metric

	nextOffset uint32
}

// OpenSQLiteStore opens (creating if necessary) a SQLite-backed vector
// store at path, sized for vectors of dimension dim.
func OpenSQLiteStore(path string, dim int, m metric.Metric) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS vectors (
	offset    INTEGER PRIMARY KEY,
	data      BLOB NOT NULL,
	tombstone INTEGER NOT NULL DEFAULT 0
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create vectors table: %w", err)
	}

	s := &SQLiteStore{db: db, dim: dim, m: m}

	row := db.QueryRow(`SELECT COALESCE(MAX(offset), -1) + 1 FROM vectors`)
	var next int64
	if err := row.Scan(&next); err != nil {
		db.Close()
		return nil, fmt.Errorf("read next offset: %w", err)
	}
	s.nextOffset = uint32(next)

	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Dim() int { return s.dim }

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

func (s *SQLiteStore) Put(v []float32) (uint32, error) {
	if err := metric.CheckDimension(s.dim, v); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offset := s.nextOffset
	pre := s.m.Preprocess(v)
	if _, err := s.db.Exec(`INSERT INTO vectors (offset, data, tombstone) VALUES (?, ?, 0)`,
		offset, encodeVector(pre)); err != nil {
		return 0, vecerr.Storage(err)
	}
	s.nextOffset++
	return offset, nil
}

// Update always appends a new row and tombstones the original offset.
func (s *SQLiteStore) Update(offset uint32, v []float32) (uint32, error) {
	if err := metric.CheckDimension(s.dim, v); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE vectors SET tombstone = 1 WHERE offset = ?`, offset); err != nil {
		return 0, vecerr.Storage(err)
	}

	newOffset := s.nextOffset
	pre := s.m.Preprocess(v)
	if _, err := s.db.Exec(`INSERT INTO vectors (offset, data, tombstone) VALUES (?, ?, 0)`,
		newOffset, encodeVector(pre)); err != nil {
		return 0, vecerr.Storage(err)
	}
	s.nextOffset++

	return newOffset, nil
}

func (s *SQLiteStore) Delete(offset uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db.Exec(`UPDATE vectors SET tombstone = 1 WHERE offset = ?`, offset)
}

func (s *SQLiteStore) Get(offset uint32) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT data FROM vectors WHERE offset = ? AND tombstone = 0`, offset)
	var data []byte
	if err := row.Scan(&data); err != nil {
		return nil, false
	}
	return decodeVector(data), true
}

func (s *SQLiteStore) IterLive() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT offset FROM vectors WHERE tombstone = 0 ORDER BY offset ASC`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var live []uint32
	for rows.Next() {
		var offset uint32
		if err := rows.Scan(&offset); err == nil {
			live = append(live, offset)
		}
	}
	return live
}

func (s *SQLiteStore) VectorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	s.db.QueryRow(`SELECT COUNT(*) FROM vectors WHERE tombstone = 0`).Scan(&count)
	return count
}

func (s *SQLiteStore) DeletedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	s.db.QueryRow(`SELECT COUNT(*) FROM vectors WHERE tombstone = 1`).Scan(&count)
	return count
}

func (s *SQLiteStore) TotalVectorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	s.db.QueryRow(`SELECT COUNT(*) FROM vectors`).Scan(&count)
	return count
}

func (s *SQLiteStore) RawScorer(query []float32) (Scorer, error) {
	if err := metric.CheckDimension(s.dim, query); err != nil {
		return nil, err
	}
	return &sqliteScorer{store: s, query: s.m.Preprocess(query)}, nil
}

func (s *SQLiteStore) UpdateFrom(other Store) (uint32, uint32, error) {
	live := other.IterLive()

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.nextOffset
	for _, offset := range live {
		v, ok := other.Get(offset)
		if !ok {
			continue
		}
		if len(v) != s.dim {
			return 0, 0, vecerr.DimensionMismatch(s.dim, len(v))
		}
		newOffset := s.nextOffset
		if _, err := s.db.Exec(`INSERT INTO vectors (offset, data, tombstone) VALUES (?, ?, 0)`,
			newOffset, encodeVector(v)); err != nil {
			return 0, 0, vecerr.Storage(err)
		}
		s.nextOffset++
	}
	end := s.nextOffset

	return start, end, nil
}

type sqliteScorer struct {
	store *SQLiteStore
	query []float32
}

func (sc *sqliteScorer) Score(offset uint32) float32 {
	v, ok := sc.store.Get(offset)
	if !ok {
		return sc.store.m.Similarity(sc.query, make([]float32, sc.store.dim))
	}
	return sc.store.m.Similarity(sc.query, v)
}

func (sc *sqliteScorer) ScorePair(a, b []float32) float32 {
	return sc.store.m.Similarity(a, b)
}

func (sc *sqliteScorer) Visible(offset uint32) bool {
	_, ok := sc.store.Get(offset)
	return ok
}

func (sc *sqliteScorer) ScoreIter(it iter.Seq[uint32]) iter.Seq2[uint32, float32] {
	return scoreIterFunc(sc, it)
}

var _ Store = (*SQLiteStore)(nil)
var _ Scorer = (*sqliteScorer)(nil)
