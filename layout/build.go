package layout

import (
	"github.com/quartercastle/vector"
	"golang.org/x/exp/slices"

	"github.com/carrygg/metagraph/graph/model"
)

const (
	baseNodeRadius   = 16.0
	centerNodeRadius = 24.0
	// spread of the random jitter used to seed uncached node positions
	seedJitter = 40.0
)

// Node is the simulation's working copy of a model node, augmented with the
// physics fields owned by the engine. Nodes live in a flat arena slice;
// forces and links address them by index.
type Node struct {
	ID       string
	Type     model.NodeType
	Label    string
	IsCenter bool
	Radius   float64
	// HasDelta is true iff at least one incident edge carries a delta.
	// AvgDelta, DeltaNorm and Impact are derived from the visible set on
	// every rebuild; Impact is meaningful only when HasDelta is set.
	HasDelta  bool
	AvgDelta  float64
	DeltaNorm float64
	Impact    float64

	Pos   vector.Vector
	vel   vector.Vector
	fixed bool
	fix   vector.Vector
}

// Link connects two arena indices. The originating model edge is retained
// for token resolution and tooltips.
type Link struct {
	Source, Target int
	Edge           *model.Edge
	// strength and bias follow the endpoint degrees, d3-force style: the
	// lower-degree endpoint determines the pull, the higher-degree endpoint
	// moves less.
	strength float64
	bias     float64
}

// WorkingSet is the simulation's node/link arena for one Graph snapshot
// under one type filter. It is rebuilt from scratch on every snapshot or
// filter change, seeded with cached positions.
type WorkingSet struct {
	Nodes   []Node
	Links   []Link
	Centers []int

	index map[string]int
	// membership maps a node index to the sorted set of center indices it is
	// directly linked to; a center's membership is itself.
	membership [][]int
	// clusterSize counts the exclusively-owned peripherals per center.
	clusterSize map[int]int
}

// NewWorkingSet derives the visible node/link arena from a snapshot. A node
// survives iff it passes the type filter or is a center; an edge survives
// iff both endpoints survive. Edges naming unknown ids are dropped
// silently. Cached positions are reused keyed by node id so unaffected
// nodes do not jump across rebuilds; unknown nodes are jittered near the
// viewport center.
func NewWorkingSet(g *model.Graph, filter model.TypeFilter, cache *PositionCache, viewport Rect, rnd func() float64) *WorkingSet {
	ws := &WorkingSet{
		index:       make(map[string]int, len(g.Nodes)),
		clusterSize: make(map[int]int),
	}
	for _, n := range g.Nodes {
		if !n.IsCenter && !filter.Allows(n.Type) {
			continue
		}
		radius := baseNodeRadius
		if n.IsCenter {
			radius = centerNodeRadius
		}
		pos, cached := cache.Get(n.ID)
		if !cached {
			pos = jitterAround(viewport.Center(), seedJitter, rnd)
		}
		ws.index[n.ID] = len(ws.Nodes)
		ws.Nodes = append(ws.Nodes, Node{
			ID:       n.ID,
			Type:     n.Type,
			Label:    n.Label,
			IsCenter: n.IsCenter,
			Radius:   radius,
			Pos:      pos,
			vel:      vector.Vector{0, 0},
		})
		if n.IsCenter {
			ws.Centers = append(ws.Centers, len(ws.Nodes)-1)
		}
	}
	for _, e := range g.Edges {
		source, ok := ws.index[e.From]
		if !ok {
			continue
		}
		target, ok := ws.index[e.To]
		if !ok {
			continue
		}
		ws.Links = append(ws.Links, Link{Source: source, Target: target, Edge: e})
	}
	degree := make([]int, len(ws.Nodes))
	for _, l := range ws.Links {
		degree[l.Source]++
		degree[l.Target]++
	}
	for i := range ws.Links {
		l := &ws.Links[i]
		ds, dt := degree[l.Source], degree[l.Target]
		l.strength = 1 / float64(min(ds, dt))
		l.bias = float64(ds) / float64(ds+dt)
	}
	ws.deriveImpact()
	ws.deriveClusters()
	return ws
}

// deriveImpact recomputes AvgDelta, DeltaNorm and Impact, normalized against
// the min/max average delta of the currently visible node set. DeltaNorm 0
// is the strongest improvement on screen, 1 the strongest harm; Impact is
// the inverse ranking. Nodes without delta-bearing edges sit at DeltaNorm
// 0.5 with no impact score.
func (ws *WorkingSet) deriveImpact() {
	sums := make([]float64, len(ws.Nodes))
	counts := make([]int, len(ws.Nodes))
	for _, l := range ws.Links {
		if l.Edge.Delta == nil {
			continue
		}
		sums[l.Source] += *l.Edge.Delta
		counts[l.Source]++
		sums[l.Target] += *l.Edge.Delta
		counts[l.Target]++
	}
	minAvg, maxAvg := 0.0, 0.0
	first := true
	for i := range ws.Nodes {
		node := &ws.Nodes[i]
		if counts[i] == 0 {
			node.HasDelta = false
			node.AvgDelta = 0
			continue
		}
		node.HasDelta = true
		node.AvgDelta = sums[i] / float64(counts[i])
		if first || node.AvgDelta < minAvg {
			minAvg = node.AvgDelta
		}
		if first || node.AvgDelta > maxAvg {
			maxAvg = node.AvgDelta
		}
		first = false
	}
	for i := range ws.Nodes {
		node := &ws.Nodes[i]
		if !node.HasDelta {
			node.DeltaNorm = 0.5
			node.Impact = 0
			continue
		}
		if maxAvg == minAvg {
			node.DeltaNorm = 0.5
		} else {
			node.DeltaNorm = (node.AvgDelta - minAvg) / (maxAvg - minAvg)
		}
		node.Impact = 1 - node.DeltaNorm
	}
}

// deriveClusters assigns each peripheral node to the set of centers it is
// directly linked to. Nodes linked to exactly one center count toward that
// center's cluster size.
func (ws *WorkingSet) deriveClusters() {
	ws.membership = make([][]int, len(ws.Nodes))
	for _, c := range ws.Centers {
		ws.membership[c] = []int{c}
	}
	for _, l := range ws.Links {
		if ws.Nodes[l.Source].IsCenter && !ws.Nodes[l.Target].IsCenter {
			ws.addMembership(l.Target, l.Source)
		}
		if ws.Nodes[l.Target].IsCenter && !ws.Nodes[l.Source].IsCenter {
			ws.addMembership(l.Source, l.Target)
		}
	}
	for i := range ws.Nodes {
		if !ws.Nodes[i].IsCenter && len(ws.membership[i]) == 1 {
			ws.clusterSize[ws.membership[i][0]]++
		}
	}
}

func (ws *WorkingSet) addMembership(node, center int) {
	if slices.Contains(ws.membership[node], center) {
		return
	}
	ws.membership[node] = append(ws.membership[node], center)
	slices.Sort(ws.membership[node])
}

// sharesCluster reports whether two nodes have at least one common cluster
// membership. Nodes without any membership share nothing.
func (ws *WorkingSet) sharesCluster(a, b int) bool {
	for _, c := range ws.membership[a] {
		if slices.Contains(ws.membership[b], c) {
			return true
		}
	}
	return false
}

// ClusterMembers returns the arena indices belonging to the given center's
// cluster, the center included. Shared peripherals appear in every cluster
// they are linked to.
func (ws *WorkingSet) ClusterMembers(center int) []int {
	members := []int{}
	for i := range ws.Nodes {
		if slices.Contains(ws.membership[i], center) {
			members = append(members, i)
		}
	}
	return members
}

// NodeIndex resolves a node id to its arena index.
func (ws *WorkingSet) NodeIndex(id string) (int, bool) {
	i, ok := ws.index[id]
	return i, ok
}

// IncidentToken returns the token of the first incident edge carrying one,
// used for click-to-filter resolution on peripheral nodes.
func (ws *WorkingSet) IncidentToken(node int) (string, bool) {
	for _, l := range ws.Links {
		if l.Source != node && l.Target != node {
			continue
		}
		if l.Edge.Token != "" {
			return l.Edge.Token, true
		}
	}
	return "", false
}

// collideRadius is the per-node collision radius: delta-bearing non-center
// nodes scale dramatically with impact (0.5x to 1.5x), everything else uses
// its base radius. The buffer keeps neighbors visually separated.
func (n *Node) collideRadius(buffer float64) float64 {
	if !n.IsCenter && n.HasDelta {
		return n.Radius*(0.5+n.Impact) + buffer
	}
	return n.Radius + buffer
}

// PositionCache carries last known node positions across rebuilds, keyed by
// node id. It is read at build time and written every physics tick.
// Access is single-threaded: the owning session serializes builds and ticks.
type PositionCache struct {
	pos map[string]vector.Vector
}

func NewPositionCache() *PositionCache {
	return &PositionCache{pos: make(map[string]vector.Vector)}
}

func (c *PositionCache) Get(id string) (vector.Vector, bool) {
	p, ok := c.pos[id]
	return p, ok
}

func (c *PositionCache) Put(id string, pos vector.Vector) {
	c.pos[id] = pos
}

func (c *PositionCache) Len() int {
	return len(c.pos)
}

// commit writes every node position back to the cache.
func (ws *WorkingSet) commit(cache *PositionCache) {
	for i := range ws.Nodes {
		cache.Put(ws.Nodes[i].ID, ws.Nodes[i].Pos)
	}
}
