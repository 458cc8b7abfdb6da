// Package hnswindex owns a graph.Layers over a vector store and exposes
// the build/search/save/load surface a segment drives (§6.2). Index
// falls back to an exhaustive scan for segments below
// full_scan_threshold, and the brute-force PlainIndex serves segments
// whose index.kind is Plain.
package hnswindex

import (
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/vectorcore/hnswengine/internal/config"
	"github.com/vectorcore/hnswengine/internal/graph"
	"github.com/vectorcore/hnswengine/internal/vstore"

	vecerr "github.com/vectorcore/hnswengine/internal/errors"
)

// buildLogInterval is how often Build logs progress, in offsets
// inserted, to keep the hot insertion loop from paying a log call per
// offset.
const buildLogInterval = 10_000

// Result is one scored hit returned by a search.
type Result struct {
	Offset uint32
	Score  float32
}

// SearchParams overrides the configured ef for a single query.
type SearchParams struct {
	Ef int
}

// Index is the HNSW graph bound to a vector store.
type Index struct {
	graph *graph.Layers
	store vstore.Store
	cfg   config.HNSWConfig
}

// New constructs an empty index over store, configured by cfg.
// maxOffsetHint sizes the graph's visited-bitset pool.
func New(store vstore.Store, cfg config.HNSWConfig, maxOffsetHint int) *Index {
	params := graph.Params{
		M:                cfg.M,
		EfConstruct:      cfg.EfConstruct,
		Heuristic:        true,
		ExtendCandidates: true,
		Rand:             rand.New(rand.NewSource(1)),
	}
	return &Index{
		graph: graph.New(params, maxOffsetHint),
		store: store,
		cfg:   cfg,
	}
}

// Build inserts every live offset currently in the store into the graph,
// in ascending offset order, each scored via the store's own raw_scorer
// against itself (§6.2).
func (idx *Index) Build() error {
	offsets := idx.store.IterLive()
	start := time.Now()
	slog.Info("hnsw build starting", slog.Int("count", len(offsets)))

	for i, offset := range offsets {
		if err := idx.insertOffset(offset); err != nil {
			slog.Warn("hnsw build failed",
				slog.Int("inserted", i),
				slog.Int("count", len(offsets)),
				slog.String("error", err.Error()))
			return err
		}
		if (i+1)%buildLogInterval == 0 {
			slog.Info("hnsw build progress", slog.Int("inserted", i+1), slog.Int("count", len(offsets)))
		}
	}

	slog.Info("hnsw build complete",
		slog.Int("count", len(offsets)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Insert adds a single offset already present in the store to the
// graph. Used for incremental upserts after the initial Build.
func (idx *Index) Insert(offset uint32) error {
	return idx.insertOffset(offset)
}

func (idx *Index) insertOffset(offset uint32) error {
	v, ok := idx.store.Get(offset)
	if !ok {
		return vecerr.PointNotFound(uint64(offset))
	}

	scorer, err := idx.store.RawScorer(v)
	if err != nil {
		return err
	}

	topLayer := idx.graph.AssignLayer()
	idx.graph.Insert(offset, topLayer, scorer, idx.store)
	return nil
}

// Search runs a top-K query against the graph, falling back to an
// exhaustive scan when the live vector count is below full_scan_threshold
// (§9, the otherwise-unused full_scan_threshold field finds a home here).
func (idx *Index) Search(query []float32, top int, params SearchParams) ([]Result, error) {
	scorer, err := idx.store.RawScorer(query)
	if err != nil {
		return nil, err
	}
	return idx.SearchScorer(scorer, top, params), nil
}

// SearchScorer runs a top-K query using a caller-supplied scorer, which
// may be a plain vstore.Scorer or a vstore.FilteredScorer wrapping one
// with a predicate (§6.4). This is the seam segment.Search uses to wire
// a filtered query through the same graph-traversal code path as an
// unfiltered one.
func (idx *Index) SearchScorer(scorer graph.Scorer, top int, params SearchParams) []Result {
	if idx.store.VectorCount() < idx.cfg.FullScanThreshold {
		return exhaustiveScanScorer(idx.store, scorer, top)
	}

	if _, ok := idx.graph.EntryPoint(); !ok {
		return nil
	}

	ef := params.Ef
	if ef <= 0 {
		ef = idx.cfg.EfConstruct
	}

	candidates := idx.graph.Search(top, ef, scorer)
	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if !scorer.Visible(c.Offset) {
			continue
		}
		out = append(out, Result{Offset: c.Offset, Score: c.Score})
	}
	return out
}

// Graph exposes the underlying layer structure, for persistence and
// invariant testing.
func (idx *Index) Graph() *graph.Layers { return idx.graph }

// exhaustiveScanScorer scores every live offset against the bound query
// and returns the top results, used both as the PlainIndex fallback and
// as the brute-force oracle in recall tests (§8).
func exhaustiveScanScorer(store vstore.Store, scorer graph.Scorer, top int) []Result {
	live := store.IterLive()
	results := make([]Result, 0, len(live))

	if vs, ok := scorer.(vstore.Scorer); ok {
		offsets := func(yield func(uint32) bool) {
			for _, offset := range live {
				if !yield(offset) {
					return
				}
			}
		}
		for offset, score := range vs.ScoreIter(offsets) {
			results = append(results, Result{Offset: offset, Score: score})
		}
	} else {
		for _, offset := range live {
			if !scorer.Visible(offset) {
				continue
			}
			results = append(results, Result{Offset: offset, Score: scorer.Score(offset)})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Offset < results[j].Offset
	})
	if len(results) > top {
		results = results[:top]
	}
	return results
}

// PlainIndex is the brute-force realization used when index.kind is
// configured as Plain{} rather than Hnsw{} (§6.3): it never builds a
// graph at all, scoring every live offset on every query.
type PlainIndex struct {
	store vstore.Store
}

// NewPlainIndex wraps store in a brute-force index.
func NewPlainIndex(store vstore.Store) *PlainIndex {
	return &PlainIndex{store: store}
}

// Search exhaustively scores every live vector against query.
func (p *PlainIndex) Search(query []float32, top int) ([]Result, error) {
	scorer, err := p.store.RawScorer(query)
	if err != nil {
		return nil, err
	}
	return exhaustiveScanScorer(p.store, scorer, top), nil
}

// SearchScorer exhaustively scores every live vector using a
// caller-supplied scorer, the filtered-search seam matching
// Index.SearchScorer.
func (p *PlainIndex) SearchScorer(scorer graph.Scorer, top int) []Result {
	return exhaustiveScanScorer(p.store, scorer, top)
}
