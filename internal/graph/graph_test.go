package graph_test

import (
	"math/rand"
	"testing"

	"github.com/vectorcore/hnswengine/internal/config"
	"github.com/vectorcore/hnswengine/internal/graph"
	"github.com/vectorcore/hnswengine/internal/metric"
	"github.com/vectorcore/hnswengine/internal/vstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildGraph inserts vecs (in order) into a fresh graph over an
// in-memory store under the Euclidean metric, returning the graph, the
// store, and the offsets assigned in insertion order.
func buildGraph(t *testing.T, vecs [][]float32, params graph.Params) (*graph.Layers, *vstore.InMemoryStore, []uint32) {
	t.Helper()

	store := vstore.NewInMemoryStore(len(vecs[0]), metric.New(config.DistanceEuclidean))
	g := graph.New(params, len(vecs))

	offsets := make([]uint32, len(vecs))
	for i, v := range vecs {
		offset, err := store.Put(v)
		require.NoError(t, err)
		offsets[i] = offset

		scorer, err := store.RawScorer(v)
		require.NoError(t, err)

		topLayer := g.AssignLayer()
		g.Insert(offset, topLayer, scorer, store)
	}

	return g, store, offsets
}

func TestInsert_FirstPointBecomesEntryPoint(t *testing.T) {
	g, _, offsets := buildGraph(t, [][]float32{{1, 0}}, graph.Params{M: 4, EfConstruct: 8})

	ep, ok := g.EntryPoint()
	require.True(t, ok)
	assert.Equal(t, offsets[0], ep)
}

func TestInsert_EdgesAreBidirectional(t *testing.T) {
	vecs := [][]float32{
		{1, 0}, {0, 1}, {1, 1}, {2, 2}, {0.5, 0.5}, {3, 1}, {1, 3}, {2, 0},
	}
	g, _, offsets := buildGraph(t, vecs, graph.Params{M: 4, EfConstruct: 16, Heuristic: true})

	for _, offset := range offsets {
		top := g.TopLayer(offset)
		for l := 0; l <= top; l++ {
			for _, nb := range g.Neighbors(offset, l) {
				assert.Contains(t, g.Neighbors(nb, l), offset,
					"edge %d->%d at layer %d must be reciprocated", offset, nb, l)
			}
		}
	}
}

func TestInsert_Layer0DegreeNeverExceedsM0(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vecs := make([][]float32, 60)
	for i := range vecs {
		vecs[i] = []float32{rng.Float32()*10 - 5, rng.Float32()*10 - 5}
	}

	g, _, offsets := buildGraph(t, vecs, graph.Params{M: 4, EfConstruct: 16, Heuristic: true})

	for _, offset := range offsets {
		assert.LessOrEqual(t, len(g.Neighbors(offset, 0)), g.M0())
	}
}

func TestInsert_UpperLayerDegreeNeverExceedsM(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vecs := make([][]float32, 80)
	for i := range vecs {
		vecs[i] = []float32{rng.Float32()*10 - 5, rng.Float32()*10 - 5}
	}

	g, _, offsets := buildGraph(t, vecs, graph.Params{M: 4, EfConstruct: 16, Heuristic: true})

	for _, offset := range offsets {
		top := g.TopLayer(offset)
		for l := 1; l <= top; l++ {
			assert.LessOrEqual(t, len(g.Neighbors(offset, l)), g.M())
		}
	}
}

func TestInsert_EntryPointHasMaxTopLayer(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	vecs := make([][]float32, 40)
	for i := range vecs {
		vecs[i] = []float32{rng.Float32()*10 - 5, rng.Float32()*10 - 5}
	}

	g, _, offsets := buildGraph(t, vecs, graph.Params{M: 4, EfConstruct: 16, Heuristic: true})

	ep, ok := g.EntryPoint()
	require.True(t, ok)

	maxTop := g.TopLayer(ep)
	for _, offset := range offsets {
		assert.LessOrEqual(t, g.TopLayer(offset), maxTop)
	}
}

func TestSearch_FindsNearestNeighbor(t *testing.T) {
	vecs := [][]float32{
		{10, 10}, {-10, -10}, {10, 9}, {-9, -10}, {9, 10}, {-10, -9}, {11, 11}, {-11, -9},
	}
	g, store, offsets := buildGraph(t, vecs, graph.Params{M: 4, EfConstruct: 16, Heuristic: true})

	scorer, err := store.RawScorer([]float32{10, 10})
	require.NoError(t, err)

	results := g.Search(1, 8, scorer)
	require.Len(t, results, 1)
	assert.Equal(t, offsets[0], results[0].Offset)
}

func TestSearch_TopKRespectsLimit(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	vecs := make([][]float32, 30)
	for i := range vecs {
		vecs[i] = []float32{rng.Float32()*10 - 5, rng.Float32()*10 - 5}
	}
	g, store, _ := buildGraph(t, vecs, graph.Params{M: 4, EfConstruct: 16, Heuristic: true})

	scorer, err := store.RawScorer([]float32{0, 0})
	require.NoError(t, err)

	results := g.Search(5, 20, scorer)
	assert.LessOrEqual(t, len(results), 5)
}

func TestAssignLayer_NeverNegative(t *testing.T) {
	g := graph.New(graph.Params{M: 8, Rand: rand.New(rand.NewSource(99))}, 0)
	for i := 0; i < 1000; i++ {
		assert.GreaterOrEqual(t, g.AssignLayer(), 0)
	}
}
