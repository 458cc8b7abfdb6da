// Package metric implements the similarity metrics a segment can score
// vectors with. Every metric follows the larger-is-better convention so
// the graph and scorer code never special-cases "smaller is better"
// distances: Euclidean is exposed as negated squared distance.
package metric

import (
	"math"

	"github.com/vectorcore/hnswengine/internal/config"
	vecerr "github.com/vectorcore/hnswengine/internal/errors"
)

// Metric scores pairs of equal-length float32 vectors and normalizes
// vectors at insertion time (e.g. cosine's unit-L2 preprocessing).
type Metric interface {
	// Preprocess returns the stored form of v. Idempotent:
	// Preprocess(Preprocess(v)) == Preprocess(v).
	Preprocess(v []float32) []float32

	// Similarity scores a (preprocessed query, preprocessed candidate)
	// pair. Larger is always more similar.
	Similarity(a, b []float32) float32

	// Name identifies the metric, matching config.Distance values.
	Name() config.Distance
}

// New constructs the Metric for the given distance kind.
func New(d config.Distance) Metric {
	switch d {
	case config.DistanceEuclidean:
		return euclidean{}
	case config.DistanceDot:
		return dot{}
	default:
		return cosine{}
	}
}

// CheckDimension validates that v has exactly dim elements.
func CheckDimension(dim int, v []float32) error {
	if len(v) != dim {
		return vecerr.DimensionMismatch(dim, len(v))
	}
	return nil
}

type cosine struct{}

func (cosine) Name() config.Distance { return config.DistanceCosine }

// Preprocess normalizes v to unit L2 length so that dot product over the
// preprocessed vectors equals cosine similarity.
func (cosine) Preprocess(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	var sumSquares float64
	for _, x := range out {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return out
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range out {
		out[i] *= inv
	}
	return out
}

func (cosine) Similarity(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

type dot struct{}

func (dot) Name() config.Distance { return config.DistanceDot }

func (dot) Preprocess(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

func (dot) Similarity(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

type euclidean struct{}

func (euclidean) Name() config.Distance { return config.DistanceEuclidean }

func (euclidean) Preprocess(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

// Similarity returns negated squared Euclidean distance so that, like every
// other metric here, larger means more similar.
func (euclidean) Similarity(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return -sum
}
