package graph

// NodeState is the serializable form of one graph node: its top layer
// and per-layer neighbor lists (§9, graph file format).
type NodeState struct {
	TopLayer  int
	Neighbors [][]uint32
}

// Snapshot is the full serializable state of a Layers graph.
type Snapshot struct {
	M                int
	EfConstruct      int
	Heuristic        bool
	ExtendCandidates bool
	EntryPoint       uint32
	HasEntry         bool
	Nodes            map[uint32]NodeState
}

// Dump captures the graph's full state for persistence.
func (g *Layers) Dump() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make(map[uint32]NodeState, len(g.nodes))
	for offset, n := range g.nodes {
		neighbors := make([][]uint32, len(n.neighbors))
		for l, nb := range n.neighbors {
			cp := make([]uint32, len(nb))
			copy(cp, nb)
			neighbors[l] = cp
		}
		nodes[offset] = NodeState{TopLayer: n.topLayer, Neighbors: neighbors}
	}

	return Snapshot{
		M:                g.params.M,
		EfConstruct:      g.params.EfConstruct,
		Heuristic:        g.params.Heuristic,
		ExtendCandidates: g.params.ExtendCandidates,
		EntryPoint:       g.entryPoint,
		HasEntry:         g.hasEntry,
		Nodes:            nodes,
	}
}

// LoadSnapshot reconstructs a graph from a previously-dumped snapshot.
// maxOffsetHint sizes the visited-bitset pool.
func LoadSnapshot(s Snapshot, maxOffsetHint int) *Layers {
	g := New(Params{
		M:                s.M,
		EfConstruct:      s.EfConstruct,
		Heuristic:        s.Heuristic,
		ExtendCandidates: s.ExtendCandidates,
	}, maxOffsetHint)

	g.entryPoint = s.EntryPoint
	g.hasEntry = s.HasEntry
	for offset, ns := range s.Nodes {
		neighbors := make([][]uint32, len(ns.Neighbors))
		for l, nb := range ns.Neighbors {
			cp := make([]uint32, len(nb))
			copy(cp, nb)
			neighbors[l] = cp
		}
		g.nodes[offset] = &node{topLayer: ns.TopLayer, neighbors: neighbors}
	}

	return g
}
