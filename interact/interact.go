// Package interact converts pointer and touch events into simulation
// mutations (drag), filter-selection events and tooltip triggers. It never
// owns state beyond the active gesture; all cross-cutting state flows out
// through the emitter.
package interact

import (
	"sync"

	"github.com/quartercastle/vector"
	"github.com/rs/zerolog/log"

	"github.com/carrygg/metagraph/camera"
	"github.com/carrygg/metagraph/graph/model"
	"github.com/carrygg/metagraph/layout"
)

// SourceGraph marks selection events originating from the graph view.
const SourceGraph = "graph"

// dragAlphaTarget keeps the simulation warm while a node is dragged.
const dragAlphaTarget = 0.3

// Emitter receives the outbound events of the interaction layer. The
// external state collaborator turns token selections into an updated filter
// set and a new graph snapshot.
type Emitter interface {
	SelectToken(token, source string)
	ShowTooltip(x, y float64, content model.Tooltip)
	HideTooltip()
}

type EventKind string

const (
	EventNodeDown EventKind = "nodeDown"
	EventNodeUp   EventKind = "nodeUp"
	EventNodeMove EventKind = "nodeMove"

	EventNodeClick EventKind = "nodeClick"
	EventNodeHover EventKind = "nodeHover"
	EventNodeLeave EventKind = "nodeLeave"
	// touch has no hover state: a tap shows the tooltip, a tap elsewhere
	// hides it again
	EventNodeTap       EventKind = "nodeTap"
	EventBackgroundTap EventKind = "backgroundTap"

	EventEdgeClick EventKind = "edgeClick"
	EventEdgeHover EventKind = "edgeHover"
	EventEdgeLeave EventKind = "edgeLeave"

	EventPanStart EventKind = "panStart"
	EventPanMove  EventKind = "panMove"
	EventPanEnd   EventKind = "panEnd"
	EventZoom     EventKind = "zoom"
)

// Event is one pointer/touch message from the host. X and Y are screen
// coordinates; Edge indexes the frame's edge list.
type Event struct {
	Kind   EventKind `json:"kind"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	NodeID string    `json:"nodeId,omitempty"`
	Edge   int       `json:"edge,omitempty"`
	Factor float64   `json:"factor,omitempty"`
}

// Handler routes events into the simulation, the camera and the emitter.
// At most one primary gesture is active at a time; overlapping gestures are
// resolved most-recent-wins by the host's native event semantics.
type Handler struct {
	sim     *layout.ForceSimulation
	cam     *camera.Camera
	emitter Emitter

	mu       sync.Mutex
	dragNode string
	// touch-only tooltip visibility, so a pan/zoom gesture can force-hide a
	// stale tooltip anchored to a pre-gesture position
	touchTooltip bool
}

func NewHandler(sim *layout.ForceSimulation, cam *camera.Camera, emitter Emitter) *Handler {
	return &Handler{sim: sim, cam: cam, emitter: emitter}
}

func (h *Handler) Handle(ev Event) {
	switch ev.Kind {
	case EventNodeDown:
		h.nodeDown(ev)
	case EventNodeMove:
		h.nodeMove(ev)
	case EventNodeUp:
		h.nodeUp()
	case EventNodeClick:
		h.nodeClick(ev)
	case EventNodeHover:
		h.nodeTooltip(ev, false)
	case EventNodeTap:
		h.nodeTooltip(ev, true)
	case EventNodeLeave, EventEdgeLeave:
		h.emitter.HideTooltip()
	case EventBackgroundTap:
		h.hideTouchTooltip()
	case EventEdgeClick:
		h.edgeClick(ev)
	case EventEdgeHover:
		h.edgeTooltip(ev)
	case EventPanStart:
		h.hideTouchTooltip()
		h.cam.BeginDrag(ev.X, ev.Y)
		h.sim.Reheat(dragAlphaTarget)
	case EventPanMove:
		h.cam.DragTo(ev.X, ev.Y)
	case EventPanEnd:
		h.cam.EndDrag()
	case EventZoom:
		h.hideTouchTooltip()
		h.cam.Zoom(ev.Factor, ev.X, ev.Y)
	default:
		log.Debug().Msgf("ignoring unknown event kind '%s'", ev.Kind)
	}
}

// nodeDown fixes the node under the pointer and reheats the simulation so
// neighbors keep adjusting during the drag.
func (h *Handler) nodeDown(ev Event) {
	if !h.sim.FixNode(ev.NodeID, h.toWorld(ev.X, ev.Y)) {
		return
	}
	h.mu.Lock()
	h.dragNode = ev.NodeID
	h.mu.Unlock()
	h.sim.SetAlphaTarget(dragAlphaTarget)
}

func (h *Handler) nodeMove(ev Event) {
	h.mu.Lock()
	id := h.dragNode
	h.mu.Unlock()
	if id == "" {
		return
	}
	h.sim.FixNode(id, h.toWorld(ev.X, ev.Y))
}

// nodeUp releases the fix and lets physics resume.
func (h *Handler) nodeUp() {
	h.mu.Lock()
	id := h.dragNode
	h.dragNode = ""
	h.mu.Unlock()
	if id == "" {
		return
	}
	h.sim.ReleaseNode(id)
	h.sim.SetAlphaTarget(0)
}

// nodeClick resolves a satellite click to a filter token: the relationship
// token of an incident edge when one exists, the bare node id otherwise.
// Center nodes are already active filters and stay inert; removal happens
// in the external filter UI.
func (h *Handler) nodeClick(ev Event) {
	token := ""
	h.sim.Snapshot(func(ws *layout.WorkingSet) {
		i, ok := ws.NodeIndex(ev.NodeID)
		if !ok || ws.Nodes[i].IsCenter {
			return
		}
		if t, ok := ws.IncidentToken(i); ok {
			token = t
			return
		}
		token = ws.Nodes[i].ID
	})
	if token != "" {
		h.emitter.SelectToken(token, SourceGraph)
	}
}

func (h *Handler) edgeClick(ev Event) {
	token := ""
	h.sim.Snapshot(func(ws *layout.WorkingSet) {
		if ev.Edge < 0 || ev.Edge >= len(ws.Links) {
			return
		}
		token = ws.Links[ev.Edge].Edge.Token
	})
	if token != "" {
		h.emitter.SelectToken(token, SourceGraph)
	}
}

func (h *Handler) nodeTooltip(ev Event, touch bool) {
	var content *model.Tooltip
	h.sim.Snapshot(func(ws *layout.WorkingSet) {
		i, ok := ws.NodeIndex(ev.NodeID)
		if !ok {
			return
		}
		node := &ws.Nodes[i]
		t := model.Tooltip{
			Kind:     model.TooltipKindNode,
			Label:    node.Label,
			NodeType: node.Type,
			IsCenter: node.IsCenter,
		}
		content = &t
	})
	if content == nil {
		return
	}
	if touch {
		h.mu.Lock()
		h.touchTooltip = true
		h.mu.Unlock()
	}
	h.emitter.ShowTooltip(ev.X, ev.Y, *content)
}

func (h *Handler) edgeTooltip(ev Event) {
	var content *model.Tooltip
	h.sim.Snapshot(func(ws *layout.WorkingSet) {
		if ev.Edge < 0 || ev.Edge >= len(ws.Links) {
			return
		}
		t := model.EdgeTooltip(ws.Links[ev.Edge].Edge)
		content = &t
	})
	if content == nil {
		return
	}
	h.emitter.ShowTooltip(ev.X, ev.Y, *content)
}

func (h *Handler) hideTouchTooltip() {
	h.mu.Lock()
	visible := h.touchTooltip
	h.touchTooltip = false
	h.mu.Unlock()
	if visible {
		h.emitter.HideTooltip()
	}
}

// toWorld converts screen coordinates into simulation space through the
// camera transform.
func (h *Handler) toWorld(x, y float64) vector.Vector {
	t := h.cam.Transform()
	return vector.Vector{(x - t.X) / t.K, (y - t.Y) / t.K}
}
