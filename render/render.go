// Package render maps the current node/edge working state to visual
// primitives. It is stateless with respect to physics: building a frame
// never touches positions or forces, and the highlight pass is independent
// of the physics rebuild so it stays cheap on every selection change.
package render

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/quartercastle/vector"
	"github.com/rs/zerolog/log"

	"github.com/carrygg/metagraph/camera"
	"github.com/carrygg/metagraph/graph/model"
	"github.com/carrygg/metagraph/layout"
)

// ViewportAnchor is the stable UI anchor identifying the graph's viewport
// region, consumed by the external guided-tour overlay.
const ViewportAnchor = "metagraph-viewport"

const (
	// visible stroke vs the wide invisible hit target of the same edge
	edgeStrokeWidth = 1.5
	edgeHitWidth    = 14.0

	iconFailureCacheSize = 512
)

// opacity tiers deliberately de-emphasize low-impact nodes
const (
	opacityHigh    = 1.0
	opacityMedium  = 0.8
	opacityLow     = 0.5
	opacityNeutral = 0.65
)

type NodeVisual struct {
	ID          string  `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Radius      float64 `json:"radius"`
	ColorClass  string  `json:"colorClass"`
	Glow        float64 `json:"glow"`
	Opacity     float64 `json:"opacity"`
	Icon        string  `json:"icon,omitempty"`
	IsCenter    bool    `json:"isCenter,omitempty"`
	Highlighted bool    `json:"highlighted,omitempty"`
	Dimmed      bool    `json:"dimmed,omitempty"`
	// paint order: highlighted nodes are raised to the top
	Z int `json:"z"`
}

type EdgeVisual struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Width      float64 `json:"width"`
	HitWidth   float64 `json:"hitWidth"`
	ColorClass string  `json:"colorClass"`
	Token      string  `json:"token,omitempty"`
}

// Hull outlines one center's cluster when more than one center is active.
type Hull struct {
	Center string      `json:"center"`
	Points [][]float64 `json:"points"`
}

// Frame is one renderable snapshot pushed to the host on every tick.
type Frame struct {
	Anchor    string           `json:"anchor"`
	Empty     bool             `json:"empty,omitempty"`
	Nodes     []NodeVisual     `json:"nodes,omitempty"`
	Edges     []EdgeVisual     `json:"edges,omitempty"`
	Hulls     []Hull           `json:"hulls,omitempty"`
	Transform camera.Transform `json:"transform"`
}

// IconResolver resolves an icon asset reference for a node. An error marks
// the asset as failed; the renderer falls back to a plain shape and will
// not retry.
type IconResolver func(typ model.NodeType, key string) (string, error)

type iconKey struct {
	typ model.NodeType
	key string
}

// Renderer converts working sets into frames. Icon failures are memoized in
// a bounded cache keyed by (type, key) so a failing asset is not retried on
// every render.
type Renderer struct {
	mu           sync.Mutex
	resolve      IconResolver
	iconFailures *lru.Cache[iconKey, struct{}]
	icons        *lru.Cache[iconKey, string]
	highlight    map[string]struct{}
}

func New(resolve IconResolver) *Renderer {
	failures, _ := lru.New[iconKey, struct{}](iconFailureCacheSize)
	icons, _ := lru.New[iconKey, string](iconFailureCacheSize)
	return &Renderer{
		resolve:      resolve,
		iconFailures: failures,
		icons:        icons,
		highlight:    map[string]struct{}{},
	}
}

// SetHighlight replaces the highlighted node id set. Applying the same set
// twice yields the identical visual state.
func (r *Renderer) SetHighlight(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlight = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		r.highlight[id] = struct{}{}
	}
}

// EmptyFrame is rendered when zero nodes survive the active filter.
func (r *Renderer) EmptyFrame(t camera.Transform) Frame {
	return Frame{Anchor: ViewportAnchor, Empty: true, Transform: t}
}

// Frame builds the visual state for the given working set. It is called
// from the simulation's tick callback and must stay allocation-light.
func (r *Renderer) Frame(ws *layout.WorkingSet, t camera.Transform) Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(ws.Nodes) == 0 {
		return Frame{Anchor: ViewportAnchor, Empty: true, Transform: t}
	}
	f := Frame{
		Anchor:    ViewportAnchor,
		Nodes:     make([]NodeVisual, 0, len(ws.Nodes)),
		Edges:     make([]EdgeVisual, 0, len(ws.Links)),
		Transform: t,
	}
	dimOthers := len(r.highlight) > 0
	for i := range ws.Nodes {
		node := &ws.Nodes[i]
		v := NodeVisual{
			ID:         node.ID,
			X:          node.Pos.X(),
			Y:          node.Pos.Y(),
			Radius:     displayRadius(node),
			ColorClass: nodeColorClass(node),
			Glow:       glow(node),
			Opacity:    opacity(node),
			Icon:       r.iconLocked(node),
			IsCenter:   node.IsCenter,
		}
		if _, ok := r.highlight[node.ID]; ok {
			v.Highlighted = true
			v.Z = 1
		} else if dimOthers {
			v.Dimmed = true
		}
		f.Nodes = append(f.Nodes, v)
	}
	for _, l := range ws.Links {
		source, target := &ws.Nodes[l.Source], &ws.Nodes[l.Target]
		f.Edges = append(f.Edges, EdgeVisual{
			X1:         source.Pos.X(),
			Y1:         source.Pos.Y(),
			X2:         target.Pos.X(),
			Y2:         target.Pos.Y(),
			Width:      edgeStrokeWidth,
			HitWidth:   edgeHitWidth,
			ColorClass: edgeColorClass(l.Edge),
			Token:      l.Edge.Token,
		})
	}
	if len(ws.Centers) > 1 {
		f.Hulls = clusterHulls(ws)
	}
	return f
}

// displayRadius scales delta-bearing satellites between 0.5x and 1.5x of
// their base size so size tracks impact; centers and neutral nodes keep
// their base radius.
func displayRadius(n *layout.Node) float64 {
	if !n.IsCenter && n.HasDelta {
		return n.Radius * (0.5 + n.Impact)
	}
	return n.Radius
}

func nodeColorClass(n *layout.Node) string {
	sign := "neutral"
	if n.HasDelta {
		if n.AvgDelta < 0 {
			sign = "better"
		} else {
			sign = "worse"
		}
	}
	return fmt.Sprintf("%s-%s", n.Type, sign)
}

func edgeColorClass(e *model.Edge) string {
	if e.Delta == nil {
		return "edge-neutral"
	}
	if *e.Delta < 0 {
		return "edge-better"
	}
	return "edge-worse"
}

// glow intensity rises quadratically so only genuinely high-impact nodes
// stand out.
func glow(n *layout.Node) float64 {
	if !n.HasDelta {
		return 0
	}
	return n.Impact * n.Impact
}

func opacity(n *layout.Node) float64 {
	if n.IsCenter {
		return opacityHigh
	}
	if !n.HasDelta {
		return opacityNeutral
	}
	switch {
	case n.Impact >= 0.66:
		return opacityHigh
	case n.Impact >= 0.33:
		return opacityMedium
	}
	return opacityLow
}

func (r *Renderer) iconLocked(n *layout.Node) string {
	if r.resolve == nil {
		return ""
	}
	key := iconKey{typ: n.Type, key: model.Key(n.ID)}
	if _, failed := r.iconFailures.Get(key); failed {
		return ""
	}
	if icon, ok := r.icons.Get(key); ok {
		return icon
	}
	icon, err := r.resolve(n.Type, key.key)
	if err != nil {
		log.Debug().Str("node", n.ID).Msgf("icon lookup failed, using fallback shape: %v", err)
		r.iconFailures.Add(key, struct{}{})
		return ""
	}
	r.icons.Add(key, icon)
	return icon
}

func clusterHulls(ws *layout.WorkingSet) []Hull {
	hulls := make([]Hull, 0, len(ws.Centers))
	for _, c := range ws.Centers {
		members := ws.ClusterMembers(c)
		points := make([]vector.Vector, 0, len(members))
		for _, m := range members {
			points = append(points, ws.Nodes[m].Pos)
		}
		hull := layout.ConvexHull(points)
		out := make([][]float64, 0, len(hull))
		for _, p := range hull {
			out = append(out, []float64{p.X(), p.Y()})
		}
		hulls = append(hulls, Hull{Center: ws.Nodes[c].ID, Points: out})
	}
	return hulls
}
