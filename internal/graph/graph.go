// Package graph implements the central HNSW algorithm (§4.6): multi-layer
// neighbor lists, probabilistic layer assignment, insertion with
// heuristic neighbor selection, and beam-search traversal. It is the
// largest and most performance-sensitive component of the engine.
//
// The graph is represented as an arena of nodes addressed by dense
// offset: per-node top_layer plus a jagged neighbors[layer] list of
// offsets. No node holds a pointer to another; edges are indices. This
// sidesteps the cyclic-ownership problem entirely and makes the graph
// trivially serializable (§9, "Cyclic graph ownership").
package graph

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/vectorcore/hnswengine/internal/visited"
)

// Scorer is the minimal capability the graph algorithms need from a
// vector store's scorer (§4.3): score an offset against the bound query,
// score two stored vectors directly, and report visibility. Any
// vstore.Scorer or vstore.FilteredScorer satisfies this structurally, so
// this package never imports internal/vstore.
type Scorer interface {
	Score(offset uint32) float32
	ScorePair(a, b []float32) float32
	Visible(offset uint32) bool
}

// VectorSource resolves an offset to its stored vector, needed by the
// heuristic selector to score candidate-against-candidate rather than
// only candidate-against-query.
type VectorSource interface {
	Get(offset uint32) (v []float32, ok bool)
}

// Candidate is one scored offset, used throughout search_layer and the
// heuristic selector.
type Candidate struct {
	Offset uint32
	Score  float32
}

// Params configures graph construction and search (§4.6).
type Params struct {
	// M is the target degree for layers >= 1. Layer 0 uses M0 = 2*M.
	M int

	// EfConstruct is the beam width used while inserting.
	EfConstruct int

	// Heuristic enables the diversity-aware neighbor selector (§4.6.3).
	// When false, the top-M candidates by score are kept verbatim.
	Heuristic bool

	// ExtendCandidates pads the heuristic's accepted set from the
	// rejected list, in score order, when fewer than M* were accepted
	// (§4.6.3 step 3).
	ExtendCandidates bool

	// Rand drives probabilistic layer assignment. Tests may supply a
	// seeded source for determinism; nil defaults to a fresh source
	// seeded with 1, so layer assignment is deterministic either way.
	Rand *rand.Rand
}

type node struct {
	topLayer  int
	neighbors [][]uint32 // neighbors[layer] -> offsets
}

// Layers is the multi-layer proximity graph.
type Layers struct {
	mu sync.RWMutex

	params Params
	mL     float64

	nodes      map[uint32]*node
	entryPoint uint32
	hasEntry   bool

	visitedPool *visited.Pool
}

// New returns an empty graph configured by params. maxOffsetHint sizes
// the visited-bitset pool's bitsets; it may be zero and will grow
// on demand.
func New(params Params, maxOffsetHint int) *Layers {
	if params.M <= 0 {
		params.M = 16
	}
	if params.EfConstruct <= 0 {
		params.EfConstruct = 100
	}
	if params.Rand == nil {
		params.Rand = rand.New(rand.NewSource(1))
	}

	return &Layers{
		params:      params,
		mL:          1.0 / math.Log(float64(params.M)),
		nodes:       make(map[uint32]*node),
		visitedPool: visited.NewPool(8, maxOffsetHint),
	}
}

// M0 is the layer-0 degree cap, 2*M by convention.
func (g *Layers) M0() int { return g.params.M * 2 }

// M is the upper-layer degree cap.
func (g *Layers) M() int { return g.params.M }

// EntryPoint returns the current entry point offset and whether one is
// set (false only before the first insertion).
func (g *Layers) EntryPoint() (uint32, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.entryPoint, g.hasEntry
}

// TopLayer returns the top layer of offset, or -1 if not present.
func (g *Layers) TopLayer(offset uint32) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[offset]
	if !ok {
		return -1
	}
	return n.topLayer
}

// Neighbors returns a copy of offset's neighbor list at layer l.
func (g *Layers) Neighbors(offset uint32, l int) []uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[offset]
	if !ok || l > n.topLayer || l >= len(n.neighbors) {
		return nil
	}
	out := make([]uint32, len(n.neighbors[l]))
	copy(out, n.neighbors[l])
	return out
}

// Len returns the number of nodes linked into the graph.
func (g *Layers) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// AssignLayer draws the top layer for a new point: l = floor(-ln(u) * mL).
func (g *Layers) AssignLayer() int {
	u := g.params.Rand.Float64()
	for u == 0 {
		u = g.params.Rand.Float64()
	}
	return int(math.Floor(-math.Log(u) * g.mL))
}

func (g *Layers) degreeCap(layer int) int {
	if layer == 0 {
		return g.M0()
	}
	return g.params.M
}

// Insert links offset into the graph at its own chosen top layer,
// scoring candidates with scorer and resolving candidate vectors with
// vectors for the heuristic selector (§4.6 steps 1-5).
func (g *Layers) Insert(offset uint32, topLayer int, scorer Scorer, vectors VectorSource) {
	g.mu.Lock()

	if !g.hasEntry {
		g.nodes[offset] = newNode(topLayer)
		g.entryPoint = offset
		g.hasEntry = true
		g.mu.Unlock()
		return
	}

	ep := g.entryPoint
	epLayer := g.nodes[ep].topLayer
	g.nodes[offset] = newNode(topLayer)
	g.mu.Unlock()

	// Coarse descent: single-candidate greedy walk down to topLayer+1.
	for l := epLayer; l > topLayer; l-- {
		ep = g.greedyDescend(ep, l, scorer)
	}

	// Linking: search_layer + heuristic selection + bidirectional edges,
	// from min(topLayer, epLayer) down to 0.
	start := topLayer
	if epLayer < start {
		start = epLayer
	}
	for l := start; l >= 0; l-- {
		candidates := g.SearchLayer(ep, g.params.EfConstruct, l, scorer)
		cap := g.degreeCap(l)

		var selected []Candidate
		if g.params.Heuristic {
			selected = g.selectHeuristic(offset, candidates, cap, scorer, vectors)
		} else {
			selected = topByScore(candidates, cap)
		}

		g.mu.Lock()
		neighborOffsets := make([]uint32, len(selected))
		for i, c := range selected {
			neighborOffsets[i] = c.Offset
		}
		g.setNeighborsLocked(offset, l, neighborOffsets)
		for _, c := range selected {
			g.addEdgeLocked(c.Offset, offset, l)
			g.pruneIfOverCapLocked(c.Offset, l, offset, scorer, vectors)
		}
		g.mu.Unlock()

		if len(selected) > 0 {
			ep = selected[0].Offset
		}
	}

	if topLayer > epLayer {
		g.mu.Lock()
		g.entryPoint = offset
		g.mu.Unlock()
	}
}

func newNode(topLayer int) *node {
	n := &node{topLayer: topLayer, neighbors: make([][]uint32, topLayer+1)}
	for l := range n.neighbors {
		n.neighbors[l] = nil
	}
	return n
}

func (g *Layers) setNeighborsLocked(offset uint32, l int, neighbors []uint32) {
	n := g.nodes[offset]
	if l >= len(n.neighbors) {
		return
	}
	n.neighbors[l] = neighbors
}

func (g *Layers) addEdgeLocked(from, to uint32, l int) {
	n, ok := g.nodes[from]
	if !ok || l >= len(n.neighbors) {
		return
	}
	for _, existing := range n.neighbors[l] {
		if existing == to {
			return
		}
	}
	n.neighbors[l] = append(n.neighbors[l], to)
}

// pruneIfOverCapLocked reselects offset's outgoing set at layer l via the
// heuristic over its current neighbors, trimming to the layer cap, when
// linking a new edge pushed it over degree (§4.6 step 4c). justLinked is
// the new point whose reciprocal edge to offset was just added. Every
// neighbor the reselection drops, justLinked included, loses its own
// edge back to offset too, so the bidirectional-edges invariant (§8)
// never breaks.
func (g *Layers) pruneIfOverCapLocked(offset uint32, l int, justLinked uint32, scorer Scorer, vectors VectorSource) {
	n, ok := g.nodes[offset]
	if !ok || l >= len(n.neighbors) {
		return
	}
	cap := g.degreeCap(l)
	if len(n.neighbors[l]) <= cap {
		return
	}
	previous := append([]uint32(nil), n.neighbors[l]...)

	selfVec, ok := vectors.Get(offset)
	if !ok {
		// Can't re-score without the self vector; trim to cap by
		// whatever order they're already in rather than leave the
		// degree invariant violated.
		n.neighbors[l] = n.neighbors[l][:cap]
		for _, nb := range previous {
			g.removeEdgeIfAbsentLocked(offset, nb, l)
		}
		return
	}

	candidates := make([]Candidate, 0, len(n.neighbors[l]))
	for _, nb := range n.neighbors[l] {
		nbVec, ok := vectors.Get(nb)
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{Offset: nb, Score: scorer.ScorePair(selfVec, nbVec)})
	}

	selected := g.selectHeuristic(offset, candidates, cap, scorer, vectors)

	trimmed := make([]uint32, len(selected))
	for i, c := range selected {
		trimmed[i] = c.Offset
	}
	n.neighbors[l] = trimmed
	for _, nb := range previous {
		g.removeEdgeIfAbsentLocked(offset, nb, l)
	}
}

// removeEdgeIfAbsentLocked removes the edge from -> to at layer l when
// to is no longer present in from's reselected neighbor list.
func (g *Layers) removeEdgeIfAbsentLocked(from, to uint32, l int) {
	fromNode := g.nodes[from]
	for _, nb := range fromNode.neighbors[l] {
		if nb == to {
			return
		}
	}

	toNode, ok := g.nodes[to]
	if !ok || l >= len(toNode.neighbors) {
		return
	}
	kept := toNode.neighbors[l][:0]
	for _, nb := range toNode.neighbors[l] {
		if nb != from {
			kept = append(kept, nb)
		}
	}
	toNode.neighbors[l] = kept
}

// greedyDescend repeatedly moves to the neighbor on layer l with the best
// score to the target offset, stopping when no neighbor improves.
func (g *Layers) greedyDescend(from uint32, l int, scorer Scorer) uint32 {
	current := from
	currentScore := scorer.Score(current)

	for {
		improved := false
		for _, nb := range g.Neighbors(current, l) {
			if !scorer.Visible(nb) {
				continue
			}
			s := scorer.Score(nb)
			if s > currentScore {
				current = nb
				currentScore = s
				improved = true
			}
		}
		if !improved {
			return current
		}
	}
}

// topByScore returns up to cap candidates from candidates sorted by
// descending score, offset ascending on ties.
func topByScore(candidates []Candidate, cap int) []Candidate {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sortCandidates(sorted)
	if len(sorted) > cap {
		sorted = sorted[:cap]
	}
	return sorted
}

func sortCandidates(c []Candidate) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Score != c[j].Score {
			return c[i].Score > c[j].Score
		}
		return c[i].Offset < c[j].Offset
	})
}
