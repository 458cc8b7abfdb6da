package vstore

import "iter"

// Predicate is the opaque point predicate supplied by a collaborator
// (§6.4). The core only guarantees it is queried at most once per
// visited offset per traversal; it never inspects the predicate's
// internals. internal/textfilter provides one concrete implementation.
type Predicate func(offset uint32) bool

// FilteredScorer composes a raw Scorer with an optional Predicate,
// letting the graph traversal code (internal/graph) run identically
// during an unfiltered build and a filtered search (§4.3).
type FilteredScorer struct {
	raw       Scorer
	predicate Predicate
}

// NewFilteredScorer wraps raw with predicate. A nil predicate always
// passes Check.
func NewFilteredScorer(raw Scorer, predicate Predicate) *FilteredScorer {
	return &FilteredScorer{raw: raw, predicate: predicate}
}

// Score delegates to the wrapped raw scorer.
func (f *FilteredScorer) Score(offset uint32) float32 {
	return f.raw.Score(offset)
}

// ScorePair delegates to the wrapped raw scorer.
func (f *FilteredScorer) ScorePair(a, b []float32) float32 {
	return f.raw.ScorePair(a, b)
}

// Visible reports whether offset is in-range, not tombstoned, and (if a
// predicate is attached) accepted by it.
func (f *FilteredScorer) Visible(offset uint32) bool {
	if !f.raw.Visible(offset) {
		return false
	}
	return f.Check(offset)
}

// Check runs only the predicate, always true when none is attached.
func (f *FilteredScorer) Check(offset uint32) bool {
	if f.predicate == nil {
		return true
	}
	return f.predicate(offset)
}

// ScorePoints scores ids in input order, invoking sink with each result
// until limit results have been produced or ids is exhausted. It does
// not materialize the full result set up front.
func (f *FilteredScorer) ScorePoints(ids []uint32, limit int, sink func(offset uint32, score float32)) {
	produced := 0
	for _, id := range ids {
		if produced >= limit {
			return
		}
		if !f.Visible(id) {
			continue
		}
		sink(id, f.Score(id))
		produced++
	}
}

// ScoreIter lazily scores the offsets it yields, honoring both the
// wrapped raw scorer's visibility and the attached predicate via
// Visible.
func (f *FilteredScorer) ScoreIter(it iter.Seq[uint32]) iter.Seq2[uint32, float32] {
	return scoreIterFunc(f, it)
}

var _ Scorer = (*FilteredScorer)(nil)
