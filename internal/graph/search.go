package graph

import (
	"container/heap"
	"context"
)

// SearchLayer runs the beam search at layer l from entry point ep,
// keeping at most ef results (§4.6.2). The query is whatever scorer is
// bound to — during insertion, the new point's own raw vector; during a
// top-K query, the caller's query vector.
//
// The candidate heap pops the highest score (closest) first and the
// result heap keeps the lowest score (worst) at its top, so the loop can
// stop as soon as the best remaining candidate cannot beat the current
// worst kept result.
func (g *Layers) SearchLayer(ep uint32, ef int, l int, scorer Scorer) []Candidate {
	vis, err := g.visitedPool.Acquire(context.Background())
	if err != nil {
		vis = nil
	}
	if vis != nil {
		defer g.visitedPool.Release(vis)
	}
	seen := make(map[uint32]bool)

	markVisited := func(o uint32) {
		if vis != nil {
			vis.Visit(o)
		} else {
			seen[o] = true
		}
	}
	isVisited := func(o uint32) bool {
		if vis != nil {
			return vis.IsVisited(o)
		}
		return seen[o]
	}

	epScore := scorer.Score(ep)
	markVisited(ep)

	candidates := &minHeap{{Offset: ep, Score: epScore}}
	heap.Init(candidates)

	results := &maxHeap{}
	heap.Init(results)
	if scorer.Visible(ep) {
		heap.Push(results, Candidate{Offset: ep, Score: epScore})
	}

	for candidates.Len() > 0 {
		nearest := heap.Pop(candidates).(Candidate)

		if results.Len() >= ef {
			worst := (*results)[0]
			if nearest.Score < worst.Score {
				break
			}
		}

		for _, nb := range g.Neighbors(nearest.Offset, l) {
			if isVisited(nb) {
				continue
			}
			markVisited(nb)

			s := scorer.Score(nb)

			// An invisible point (tombstoned or filtered out) never
			// enters results, but its neighbors may still bridge to
			// live regions of the graph, so it still gets expanded via
			// the candidate queue.
			if !scorer.Visible(nb) {
				heap.Push(candidates, Candidate{Offset: nb, Score: s})
				continue
			}

			worstScore := float32(0)
			full := results.Len() >= ef
			if full {
				worstScore = (*results)[0].Score
			}

			if !full || s > worstScore {
				heap.Push(candidates, Candidate{Offset: nb, Score: s})
				heap.Push(results, Candidate{Offset: nb, Score: s})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]Candidate, results.Len())
	copy(out, *results)
	sortCandidates(out)
	return out
}

// minHeap orders by descending score (closest-first pop), offset
// ascending on ties.
type minHeap []Candidate

func (h minHeap) Len() int { return len(h) }
func (h minHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score > h[j].Score
	}
	return h[i].Offset < h[j].Offset
}
func (h minHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)   { *h = append(*h, x.(Candidate)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// maxHeap orders by ascending score (worst-first pop at index 0), so
// the weakest kept result is always the cheapest to evict.
type maxHeap []Candidate

func (h maxHeap) Len() int { return len(h) }
func (h maxHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].Offset > h[j].Offset
}
func (h maxHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)   { *h = append(*h, x.(Candidate)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Search performs the full top-down HNSW query (§4.7): greedy descent
// from the entry point through the upper layers, then a single
// search_layer pass at layer 0 with the caller's ef, returning the top
// "top" results by score.
func (g *Layers) Search(top int, ef int, scorer Scorer) []Candidate {
	ep, ok := g.EntryPoint()
	if !ok {
		return nil
	}
	epLayer := g.TopLayer(ep)

	for l := epLayer; l > 0; l-- {
		ep = g.greedyDescend(ep, l, scorer)
	}

	if ef < top {
		ef = top
	}
	results := g.SearchLayer(ep, ef, 0, scorer)
	if len(results) > top {
		results = results[:top]
	}
	return results
}
