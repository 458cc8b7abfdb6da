package hnswindex_test

import (
	"math/rand"
	"testing"

	"github.com/vectorcore/hnswengine/internal/config"
	"github.com/vectorcore/hnswengine/internal/hnswindex"
	"github.com/vectorcore/hnswengine/internal/metric"
	"github.com/vectorcore/hnswengine/internal/vstore"

	"github.com/coder/hnsw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecall_CoderHNSWOracleCorroboratesBound builds the same point set
// into this module's graph and into github.com/coder/hnsw, an
// independently-implemented pure-Go HNSW library, and checks that both
// agree with brute force on a comparable share of queries. This guards
// against the recall bound being an artifact of a bug shared between
// this module's own exhaustive scan and its own HNSW traversal (§8,
// §10.7). This is the only file in the module that imports coder/hnsw.
func TestRecall_CoderHNSWOracleCorroboratesBound(t *testing.T) {
	const (
		numVectors = 2000
		dim        = 8
		top        = 3
		numQueries = 50
	)

	rng := rand.New(rand.NewSource(99))
	vecs := make([][]float32, numVectors)
	for i := range vecs {
		v := make([]float32, dim)
		for d := range v {
			v[d] = rng.Float32()*2 - 1
		}
		vecs[i] = v
	}

	store := vstore.NewInMemoryStore(dim, metric.New(config.DistanceCosine))
	for _, v := range vecs {
		_, err := store.Put(v)
		require.NoError(t, err)
	}

	idx := hnswindex.New(store, config.HNSWConfig{M: 8, EfConstruct: 16, FullScanThreshold: 0}, numVectors)
	require.NoError(t, idx.Build())

	oracle := hnsw.NewGraph[uint32]()
	oracle.Distance = hnsw.CosineDistance
	for i, v := range vecs {
		oracle.Add(hnsw.MakeNode(uint32(i), hnsw.Vector(v)))
	}

	agreeWithThisModule, agreeWithOracle := 0, 0
	for q := 0; q < numQueries; q++ {
		query := make([]float32, dim)
		for d := range query {
			query[d] = rng.Float32()*2 - 1
		}

		scorer, err := store.RawScorer(query)
		require.NoError(t, err)
		brute := exhaustiveTopK(store, scorer, top)

		ours, err := idx.Search(query, top, hnswindex.SearchParams{Ef: 32})
		require.NoError(t, err)
		if sameOffsets(ours, brute) {
			agreeWithThisModule++
		}

		oracleHits := oracle.Search(hnsw.Vector(query), top)
		oracleResults := make([]hnswindex.Result, 0, len(oracleHits))
		for _, h := range oracleHits {
			oracleResults = append(oracleResults, hnswindex.Result{Offset: h.Key})
		}
		if sameOffsets(oracleResults, brute) {
			agreeWithOracle++
		}
	}

	// Both implementations should land in the same ballpark of recall
	// against the shared brute-force oracle; neither should be wildly
	// out of line with the other.
	assert.GreaterOrEqual(t, agreeWithThisModule, numQueries*8/10)
	assert.GreaterOrEqual(t, agreeWithOracle, numQueries*8/10)
}
