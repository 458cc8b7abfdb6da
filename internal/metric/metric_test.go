package metric

import (
	"math"
	"testing"

	"github.com/vectorcore/hnswengine/internal/config"
	vecerr "github.com/vectorcore/hnswengine/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine_PreprocessIsIdempotent(t *testing.T) {
	m := New(config.DistanceCosine)
	v := []float32{3, 4, 0}

	once := m.Preprocess(v)
	twice := m.Preprocess(once)

	assert.InDeltaSlice(t, once, twice, 1e-6)
}

func TestCosine_PreprocessUnitLength(t *testing.T) {
	m := New(config.DistanceCosine)
	v := []float32{3, 4, 0}

	p := m.Preprocess(v)

	var sumSquares float64
	for _, x := range p {
		sumSquares += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5)
}

func TestCosine_PreprocessZeroVectorIsUnchanged(t *testing.T) {
	m := New(config.DistanceCosine)
	v := []float32{0, 0, 0}

	p := m.Preprocess(v)

	assert.Equal(t, []float32{0, 0, 0}, p)
}

func TestCosine_SimilarityOfIdenticalUnitVectorsIsOne(t *testing.T) {
	m := New(config.DistanceCosine)
	v := m.Preprocess([]float32{1, 2, 3})

	assert.InDelta(t, 1.0, m.Similarity(v, v), 1e-5)
}

func TestDot_SimilarityIsPlainDotProduct(t *testing.T) {
	m := New(config.DistanceDot)
	a := []float32{1, 0, 1, 1}
	b := []float32{1, 1, 1, 1}

	assert.Equal(t, float32(3), m.Similarity(a, b))
}

func TestEuclidean_SimilarityIsNegatedSquaredDistance(t *testing.T) {
	m := New(config.DistanceEuclidean)
	a := []float32{0, 0}
	b := []float32{3, 4}

	assert.Equal(t, float32(-25), m.Similarity(a, b))
}

func TestEuclidean_IdenticalVectorsScoreZero(t *testing.T) {
	m := New(config.DistanceEuclidean)
	a := []float32{1, 2, 3}

	assert.Equal(t, float32(0), m.Similarity(a, a))
}

func TestEuclidean_LargerIsBetter(t *testing.T) {
	m := New(config.DistanceEuclidean)
	query := []float32{0, 0}
	near := []float32{1, 0}
	far := []float32{5, 0}

	assert.Greater(t, m.Similarity(query, near), m.Similarity(query, far))
}

func TestNew_DefaultsToCosine(t *testing.T) {
	m := New(config.Distance("unknown"))
	assert.Equal(t, config.DistanceCosine, m.Name())
}

func TestCheckDimension_ReportsMismatch(t *testing.T) {
	err := CheckDimension(4, []float32{1, 2, 3})

	require.Error(t, err)
	var ve *vecerr.VecError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, vecerr.ErrCodeDimensionMismatch, ve.Code)
	assert.Equal(t, "4", ve.Details["expected"])
	assert.Equal(t, "3", ve.Details["got"])
}

func TestCheckDimension_AcceptsMatchingLength(t *testing.T) {
	assert.NoError(t, CheckDimension(3, []float32{1, 2, 3}))
}
