package segment

import (
	"github.com/vectorcore/hnswengine/internal/hnswindex"
	"github.com/vectorcore/hnswengine/internal/vstore"
)

// SearchParams overrides the segment's configured ef for one query.
type SearchParams struct {
	Ef int
}

// Search runs a top-K query for query under the segment's configured
// index, optionally restricted by predicate (§6.4). Read-only: it does
// not participate in the op_num gating algorithm, only in the
// single-writer/many-reader discipline via the segment's RWMutex.
func (s *Segment) Search(query []float32, top int, params SearchParams, predicate vstore.Predicate) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := s.store.RawScorer(query)
	if err != nil {
		return nil, err
	}
	scorer := vstore.NewFilteredScorer(raw, predicate)

	ef := params.Ef
	if ef <= 0 {
		ef = s.cfg.Ef
	}

	var results []hnswindex.Result
	if s.index != nil {
		results = s.index.SearchScorer(scorer, top, hnswindex.SearchParams{Ef: ef})
	} else {
		results = s.plain.SearchScorer(scorer, top)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		external, ok := s.tracker.ExternalID(r.Offset)
		if !ok {
			continue
		}
		hits = append(hits, Hit{ID: external, Score: r.Score})
	}
	return hits, nil
}
