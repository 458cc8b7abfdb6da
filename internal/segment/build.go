package segment

import (
	"golang.org/x/sync/errgroup"

	"github.com/vectorcore/hnswengine/internal/metric"
)

// BuildRecord is one point to bulk-load via Build: an external ID paired
// with its raw, not-yet-preprocessed vector.
type BuildRecord struct {
	ExternalID uint64
	Vector     []float32
}

// Build bulk-loads records into the segment, each consuming one op_num
// starting at startOpNum and counting up in slice order, so re-running
// Build against an unchanged slice is a no-op under the §4.8 gating
// algorithm.
//
// Metric preprocessing (cosine's unit-L2 normalization, or the
// dot/Euclidean no-ops) is independent per record, so it runs
// concurrently across an errgroup before the sequential pass: the graph
// mutation itself stays single-writer, one record at a time, through
// the same UpsertPoint path a single incremental upsert uses.
func (s *Segment) Build(records []BuildRecord, startOpNum uint64) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	m := metric.New(s.cfg.Distance)
	preprocessed := make([][]float32, len(records))

	var g errgroup.Group
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := metric.CheckDimension(s.cfg.VectorSize, rec.Vector); err != nil {
				return err
			}
			preprocessed[i] = m.Preprocess(rec.Vector)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	applied := 0
	for i, rec := range records {
		opNum := startOpNum + uint64(i)
		ok, err := s.UpsertPoint(rec.ExternalID, preprocessed[i], opNum)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}
