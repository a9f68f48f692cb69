package layout

import (
	"context"
	"testing"
	"time"

	"github.com/quartercastle/vector"
	"github.com/stretchr/testify/assert"

	"github.com/carrygg/metagraph/graph/model"
)

func newTestSimulation() *ForceSimulation {
	return NewForceSimulation(Config{RandomFloat: func() float64 { return 0.5 }})
}

func TestState_String(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("idle", StateIdle.String())
	assert.Equal("building", StateBuilding.String())
	assert.Equal("running", StateRunning.String())
	assert.Equal("settled", StateSettled.String())
	assert.Equal("destroyed", StateDestroyed.String())
	assert.Equal("unknown", State(42).String())
}

func TestApplyConfig_zeroValuesFallBackToDefaults(t *testing.T) {
	fs := NewForceSimulation(Config{LinkDistance: 99})
	assert := assert.New(t)
	assert.Equal(99.0, fs.conf.LinkDistance)
	assert.Equal(DefaultConfig.ChargeStrength, fs.conf.ChargeStrength)
	assert.Equal(DefaultConfig.AlphaDecay, fs.conf.AlphaDecay)
	assert.Equal(DefaultConfig.Viewport, fs.conf.Viewport)
	assert.NotNil(fs.conf.RandomFloat)
}

func TestComputeLayout_settles(t *testing.T) {
	assert := assert.New(t)
	fs := newTestSimulation()
	ws, stats := fs.ComputeLayout(context.Background(), testGraph(), model.AllTypes(), NewPositionCache())
	assert.Equal(StateSettled, fs.State())
	assert.Greater(stats.Iterations, 100, "alpha decay takes a few hundred ticks to cool down")
	assert.Len(ws.Nodes, 4)
}

func TestComputeLayout_emptyGraphStaysIdle(t *testing.T) {
	fs := newTestSimulation()
	ws, stats := fs.ComputeLayout(context.Background(), &model.Graph{}, model.AllTypes(), NewPositionCache())
	assert := assert.New(t)
	assert.Equal(StateIdle, fs.State())
	assert.Zero(stats.Iterations)
	assert.Empty(ws.Nodes)
}

func TestComputeLayout_improvementSettlesCloserThanHarm(t *testing.T) {
	fs := newTestSimulation()
	ws, _ := fs.ComputeLayout(context.Background(), testGraph(), model.AllTypes(), NewPositionCache())
	center := fs.conf.Viewport.Center()
	blue, _ := ws.NodeIndex("I:BlueBuff")
	dcap, _ := ws.NodeIndex("I:Deathcap")
	assert.Less(t, Dist(ws.Nodes[blue].Pos, center), Dist(ws.Nodes[dcap].Pos, center),
		"the improving item must settle nearer the center than the harmful one")
}

// With a constant random source every node seeds at the exact viewport
// center; the layout must still pull them apart.
func TestComputeLayout_coincidentSeedsSeparate(t *testing.T) {
	fs := newTestSimulation()
	ws, _ := fs.ComputeLayout(context.Background(), testGraph(), model.AllTypes(), NewPositionCache())
	for i := 0; i < len(ws.Nodes); i++ {
		for j := i + 1; j < len(ws.Nodes); j++ {
			assert.Greater(t, Dist(ws.Nodes[i].Pos, ws.Nodes[j].Pos), baseNodeRadius,
				"%s and %s must not settle on top of each other", ws.Nodes[i].ID, ws.Nodes[j].ID)
		}
	}
}

func TestComputeLayout_writesCache(t *testing.T) {
	fs := newTestSimulation()
	cache := NewPositionCache()
	ws, _ := fs.ComputeLayout(context.Background(), testGraph(), model.AllTypes(), cache)
	assert.Equal(t, len(ws.Nodes), cache.Len())
	i, _ := ws.NodeIndex("U:Ahri")
	pos, ok := cache.Get("U:Ahri")
	assert.True(t, ok)
	assert.Equal(t, ws.Nodes[i].Pos, pos)
}

func TestComputeLayout_honorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fs := newTestSimulation()
	_, stats := fs.ComputeLayout(ctx, testGraph(), model.AllTypes(), NewPositionCache())
	assert.LessOrEqual(t, stats.Iterations, 1)
}

func TestBuild_emptyVisibleSetReturnsIdle(t *testing.T) {
	fs := newTestSimulation()
	defer fs.Stop()
	state := fs.Build(context.Background(), &model.Graph{}, model.AllTypes(), NewPositionCache())
	assert.Equal(t, StateIdle, state)
}

func TestBuild_startsTicking(t *testing.T) {
	fs := NewForceSimulation(Config{
		TickInterval: time.Millisecond,
		RandomFloat:  func() float64 { return 0.5 },
	})
	defer fs.Stop()
	ticked := make(chan struct{}, 1)
	fs.OnTick(func(*WorkingSet) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	})
	state := fs.Build(context.Background(), testGraph(), model.AllTypes(), NewPositionCache())
	assert.Equal(t, StateRunning, state)
	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a tick callback")
	}
}

func TestTick_settlesBelowAlphaMin(t *testing.T) {
	fs := newTestSimulation()
	fs.ws = buildSet(testGraph(), model.AllTypes(), nil)
	fs.qt = NewQuadTree(fs.chargeRegionLocked())
	fs.state = StateRunning
	fs.alpha = fs.conf.AlphaMin / 2
	fs.Tick()
	assert.Equal(t, StateSettled, fs.State())
}

func TestReheat(t *testing.T) {
	assert := assert.New(t)
	fs := newTestSimulation()
	fs.ws = buildSet(testGraph(), model.AllTypes(), nil)
	fs.state = StateSettled
	fs.alpha = 0.0001
	fs.Reheat(0.3)
	assert.Equal(StateRunning, fs.State())
	assert.Equal(0.3, fs.Alpha())
	// reheating never cools an already warmer simulation
	fs.Reheat(0.1)
	assert.Equal(0.3, fs.Alpha())
	// and has no effect once destroyed
	fs.state = StateDestroyed
	fs.Reheat(1)
	assert.Equal(StateDestroyed, fs.State())
}

func TestSetAlphaTarget_keepsSimulationWarm(t *testing.T) {
	fs := newTestSimulation()
	fs.ws = buildSet(testGraph(), model.AllTypes(), nil)
	fs.qt = NewQuadTree(fs.chargeRegionLocked())
	fs.state = StateSettled
	fs.alpha = 0.0001
	fs.SetAlphaTarget(0.3)
	assert.Equal(t, StateRunning, fs.State())
	for i := 0; i < 100; i++ {
		fs.Tick()
	}
	assert.Equal(t, StateRunning, fs.State(), "a positive alpha target must never settle")
	fs.SetAlphaTarget(0)
	for i := 0; i < 1000; i++ {
		fs.Tick()
	}
	assert.Equal(t, StateSettled, fs.State(), "dropping the target lets decay finish")
}

func TestFixAndReleaseNode(t *testing.T) {
	assert := assert.New(t)
	fs := newTestSimulation()
	fs.ws = buildSet(testGraph(), model.AllTypes(), nil)
	fs.qt = NewQuadTree(fs.chargeRegionLocked())
	fs.state = StateRunning
	fs.alpha = 0.5

	assert.False(fs.FixNode("U:Missing", vector.Vector{0, 0}))
	assert.True(fs.FixNode("I:BlueBuff", vector.Vector{77, 88}))
	for i := 0; i < 10; i++ {
		fs.Tick()
	}
	i, _ := fs.ws.NodeIndex("I:BlueBuff")
	assert.Equal(vector.Vector{77, 88}, fs.ws.Nodes[i].Pos, "a fixed node ignores physics")

	fs.ReleaseNode("I:BlueBuff")
	fs.Reheat(0.5)
	for j := 0; j < 10; j++ {
		fs.Tick()
	}
	assert.NotEqual(vector.Vector{77, 88}, fs.ws.Nodes[i].Pos, "a released node moves again")
}

func TestSetViewport_movesNoNodes(t *testing.T) {
	fs := newTestSimulation()
	ws, _ := fs.ComputeLayout(context.Background(), testGraph(), model.AllTypes(), NewPositionCache())
	before := make([]vector.Vector, len(ws.Nodes))
	for i := range ws.Nodes {
		before[i] = ws.Nodes[i].Pos
	}
	fs.SetViewport(Rect{0, 0, 400, 300})
	for i := range ws.Nodes {
		assert.Equal(t, before[i], ws.Nodes[i].Pos, "resize alone repositions nothing until reheated")
	}
}

func TestSnapshot(t *testing.T) {
	fs := newTestSimulation()
	called := false
	fs.Snapshot(func(*WorkingSet) { called = true })
	assert.False(t, called, "no working set before the first build")

	fs.ComputeLayout(context.Background(), testGraph(), model.AllTypes(), NewPositionCache())
	fs.Snapshot(func(ws *WorkingSet) { called = len(ws.Nodes) == 4 })
	assert.True(t, called)
}

func TestStop(t *testing.T) {
	fs := NewForceSimulation(Config{
		TickInterval: time.Millisecond,
		RandomFloat:  func() float64 { return 0.5 },
	})
	fs.Build(context.Background(), testGraph(), model.AllTypes(), NewPositionCache())
	fs.Stop()
	assert := assert.New(t)
	assert.Equal(StateDestroyed, fs.State())
	state := fs.Build(context.Background(), testGraph(), model.AllTypes(), NewPositionCache())
	assert.Equal(StateDestroyed, state, "a destroyed simulation refuses to build")
}
