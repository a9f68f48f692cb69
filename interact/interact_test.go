package interact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carrygg/metagraph/camera"
	"github.com/carrygg/metagraph/graph/model"
	"github.com/carrygg/metagraph/layout"
)

type emitterCall struct {
	Method  string
	Token   string
	Source  string
	Tooltip model.Tooltip
}

type recordingEmitter struct {
	calls []emitterCall
}

func (r *recordingEmitter) SelectToken(token, source string) {
	r.calls = append(r.calls, emitterCall{Method: "SelectToken", Token: token, Source: source})
}

func (r *recordingEmitter) ShowTooltip(x, y float64, content model.Tooltip) {
	r.calls = append(r.calls, emitterCall{Method: "ShowTooltip", Tooltip: content})
}

func (r *recordingEmitter) HideTooltip() {
	r.calls = append(r.calls, emitterCall{Method: "HideTooltip"})
}

func delta(v float64) *float64 { return &v }

func testGraph() *model.Graph {
	return &model.Graph{
		Nodes: []*model.Node{
			{ID: "U:Ahri", Type: model.NodeTypeUnit, Label: "Ahri", IsCenter: true},
			{ID: "I:BlueBuff", Type: model.NodeTypeItem, Label: "Blue Buff"},
			{ID: "T:Lonely", Type: model.NodeTypeTrait, Label: "Lonely"},
		},
		Edges: []*model.Edge{
			{
				From:  "U:Ahri",
				To:    "I:BlueBuff",
				Type:  model.EdgeTypeEquipped,
				Token: "E:Ahri|BlueBuff",
				Label: "Ahri + Blue Buff",
				Delta: delta(-0.3),
			},
		},
	}
}

// newTestHandler settles a small layout synchronously so the handler has a
// working set to hit-test against, without a live tick loop.
func newTestHandler(t *testing.T) (*Handler, *recordingEmitter, *layout.ForceSimulation) {
	t.Helper()
	sim := layout.NewForceSimulation(layout.Config{RandomFloat: func() float64 { return 0.5 }})
	sim.ComputeLayout(context.Background(), testGraph(), model.AllTypes(), layout.NewPositionCache())
	emitter := &recordingEmitter{}
	cam := camera.New(camera.DefaultConfig, sim.Pan())
	return NewHandler(sim, cam, emitter), emitter, sim
}

func TestHandle_nodeClick(t *testing.T) {
	for _, test := range []struct {
		Name       string
		NodeID     string
		Assertions func(t *testing.T, emitter *recordingEmitter)
	}{
		{
			Name:   "satellite with an edge resolves to the relationship token",
			NodeID: "I:BlueBuff",
			Assertions: func(t *testing.T, emitter *recordingEmitter) {
				assert.Equal(t, []emitterCall{
					{Method: "SelectToken", Token: "E:Ahri|BlueBuff", Source: SourceGraph},
				}, emitter.calls)
			},
		},
		{
			Name:   "satellite without edges falls back to its id",
			NodeID: "T:Lonely",
			Assertions: func(t *testing.T, emitter *recordingEmitter) {
				assert.Equal(t, []emitterCall{
					{Method: "SelectToken", Token: "T:Lonely", Source: SourceGraph},
				}, emitter.calls)
			},
		},
		{
			Name:   "center nodes are inert",
			NodeID: "U:Ahri",
			Assertions: func(t *testing.T, emitter *recordingEmitter) {
				assert.Empty(t, emitter.calls)
			},
		},
		{
			Name:   "unknown nodes are ignored",
			NodeID: "I:Missing",
			Assertions: func(t *testing.T, emitter *recordingEmitter) {
				assert.Empty(t, emitter.calls)
			},
		},
	} {
		t.Run(test.Name, func(t *testing.T) {
			h, emitter, _ := newTestHandler(t)
			h.Handle(Event{Kind: EventNodeClick, NodeID: test.NodeID})
			test.Assertions(t, emitter)
		})
	}
}

func TestHandle_edgeClick(t *testing.T) {
	h, emitter, _ := newTestHandler(t)
	h.Handle(Event{Kind: EventEdgeClick, Edge: 0})
	assert.Equal(t, []emitterCall{
		{Method: "SelectToken", Token: "E:Ahri|BlueBuff", Source: SourceGraph},
	}, emitter.calls)

	h.Handle(Event{Kind: EventEdgeClick, Edge: 99})
	assert.Len(t, emitter.calls, 1, "out-of-range edge indices are ignored")
}

func TestHandle_nodeDrag(t *testing.T) {
	assert := assert.New(t)
	h, _, sim := newTestHandler(t)

	h.Handle(Event{Kind: EventNodeDown, NodeID: "I:BlueBuff", X: 100, Y: 100})
	assert.Equal(layout.StateRunning, sim.State(), "a drag keeps the simulation warm")

	h.Handle(Event{Kind: EventNodeMove, NodeID: "I:BlueBuff", X: 300, Y: 200})
	sim.Tick()
	sim.Snapshot(func(ws *layout.WorkingSet) {
		i, _ := ws.NodeIndex("I:BlueBuff")
		// identity camera: screen == world
		assert.Equal(300.0, ws.Nodes[i].Pos.X())
		assert.Equal(200.0, ws.Nodes[i].Pos.Y())
	})

	h.Handle(Event{Kind: EventNodeUp})
	h.Handle(Event{Kind: EventNodeMove, X: 999, Y: 999})
	sim.Snapshot(func(ws *layout.WorkingSet) {
		i, _ := ws.NodeIndex("I:BlueBuff")
		assert.NotEqual(999.0, ws.Nodes[i].Pos.X(), "moves after release are ignored")
	})
}

func TestHandle_nodeDrag_unknownNodeIsIgnored(t *testing.T) {
	h, _, sim := newTestHandler(t)
	h.Handle(Event{Kind: EventNodeDown, NodeID: "I:Missing", X: 1, Y: 1})
	assert.Equal(t, layout.StateSettled, sim.State(), "no reheat without a grabbed node")
}

func TestHandle_dragRespectsCameraTransform(t *testing.T) {
	h, _, sim := newTestHandler(t)
	h.cam.TransformTo(100, 0, 2)
	h.Handle(Event{Kind: EventNodeDown, NodeID: "I:BlueBuff", X: 300, Y: 40})
	sim.Tick()
	sim.Snapshot(func(ws *layout.WorkingSet) {
		i, _ := ws.NodeIndex("I:BlueBuff")
		assert.Equal(t, 100.0, ws.Nodes[i].Pos.X())
		assert.Equal(t, 20.0, ws.Nodes[i].Pos.Y())
	})
}

func TestHandle_tooltips(t *testing.T) {
	assert := assert.New(t)
	h, emitter, _ := newTestHandler(t)

	h.Handle(Event{Kind: EventNodeHover, NodeID: "I:BlueBuff", X: 10, Y: 20})
	if assert.Len(emitter.calls, 1) {
		tip := emitter.calls[0].Tooltip
		assert.Equal(model.TooltipKindNode, tip.Kind)
		assert.Equal("Blue Buff", tip.Label)
		assert.Equal(model.NodeTypeItem, tip.NodeType)
	}

	h.Handle(Event{Kind: EventNodeLeave})
	assert.Equal("HideTooltip", emitter.calls[1].Method)

	h.Handle(Event{Kind: EventEdgeHover, Edge: 0, X: 5, Y: 5})
	if assert.Len(emitter.calls, 3) {
		tip := emitter.calls[2].Tooltip
		assert.Equal(model.TooltipKindEdge, tip.Kind)
		assert.Equal("Ahri + Blue Buff", tip.Label)
		if assert.NotNil(tip.Delta) {
			assert.Equal(-0.3, *tip.Delta)
		}
	}

	h.Handle(Event{Kind: EventNodeHover, NodeID: "I:Missing"})
	assert.Len(emitter.calls, 3, "unknown nodes show nothing")
}

func TestHandle_touchTooltipLifecycle(t *testing.T) {
	assert := assert.New(t)
	h, emitter, _ := newTestHandler(t)

	h.Handle(Event{Kind: EventBackgroundTap})
	assert.Empty(emitter.calls, "no tooltip to hide yet")

	h.Handle(Event{Kind: EventNodeTap, NodeID: "I:BlueBuff", X: 10, Y: 10})
	h.Handle(Event{Kind: EventBackgroundTap})
	assert.Equal("HideTooltip", emitter.calls[1].Method)

	h.Handle(Event{Kind: EventBackgroundTap})
	assert.Len(emitter.calls, 2, "hide fires once per shown tooltip")
}

func TestHandle_panAndZoomForceHideTouchTooltip(t *testing.T) {
	for _, test := range []struct {
		Name  string
		Event Event
	}{
		{Name: "pan", Event: Event{Kind: EventPanStart, X: 0, Y: 0}},
		{Name: "zoom", Event: Event{Kind: EventZoom, Factor: 1.5, X: 10, Y: 10}},
	} {
		t.Run(test.Name, func(t *testing.T) {
			h, emitter, _ := newTestHandler(t)
			h.Handle(Event{Kind: EventNodeTap, NodeID: "I:BlueBuff", X: 10, Y: 10})
			h.Handle(test.Event)
			assert.Equal(t, "HideTooltip", emitter.calls[1].Method,
				"a stale touch tooltip must not survive a viewport gesture")
		})
	}
}

func TestHandle_panGesture(t *testing.T) {
	assert := assert.New(t)
	h, _, sim := newTestHandler(t)

	h.Handle(Event{Kind: EventPanStart, X: 0, Y: 0})
	assert.True(h.cam.Dragging())
	assert.Equal(layout.StateRunning, sim.State(), "panning reheats so inertia can act")

	h.Handle(Event{Kind: EventPanMove, X: 25, Y: 0})
	assert.Equal(25.0, h.cam.Transform().X)
	assert.Greater(sim.Pan().Velocity().X(), 0.0)

	h.Handle(Event{Kind: EventPanEnd})
	assert.False(h.cam.Dragging())
}

func TestHandle_unknownEventKindIsIgnored(t *testing.T) {
	h, emitter, _ := newTestHandler(t)
	h.Handle(Event{Kind: "somethingElse"})
	assert.Empty(t, emitter.calls)
}
