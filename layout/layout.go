// adapted from https://github.com/jwhandley/graphyz/blob/main/main.go
package layout

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/quartercastle/vector"

	"github.com/carrygg/metagraph/graph/model"
)

// State is the simulation lifecycle. Build moves Idle to Running through
// Building; alpha decay moves Running to Settled; Reheat moves Settled back
// to Running; Stop is terminal.
type State int

const (
	StateIdle State = iota
	StateBuilding
	StateRunning
	StateSettled
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateRunning:
		return "running"
	case StateSettled:
		return "settled"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

type Config struct {
	Viewport Rect
	// link force target distance between connected nodes
	LinkDistance float64
	// many-body repulsion, negative repels
	ChargeStrength float64
	ChargeTheta    float64
	// weak pull to the viewport center, per axis
	CenterStrength float64
	// radial-impact ring: target = RadialInner + (1-impact)^2 * RadialSpan
	RadialInner     float64
	RadialSpan      float64
	NeutralRadius   float64
	RadialStrength  float64
	NeutralStrength float64
	// collision buffer added to every node's collide radius
	CollideBuffer float64
	// multi-center cluster shaping
	ClusterPull              float64
	ClusterCenterBaseDist    float64
	ClusterCenterSizeDist    float64
	ClusterPeripheralMinDist float64
	// pan inertia: velocity drag multiplier, per-tick decay and zero snap
	PanDrag  float64
	PanDecay float64
	PanSnap  float64
	// temperature of the simulation
	AlphaInit  float64
	AlphaDecay float64
	AlphaMin   float64
	// velocity retention per tick
	VelocityDecay float64
	TickInterval  time.Duration
	RandomFloat   func() float64
}

var DefaultConfig = Config{
	Viewport:                 Rect{0, 0, 1200, 800},
	LinkDistance:             140,
	ChargeStrength:           -300,
	ChargeTheta:              0.9,
	CenterStrength:           0.04,
	RadialInner:              80,
	RadialSpan:               270,
	NeutralRadius:            150,
	RadialStrength:           0.5,
	NeutralStrength:          0.3,
	CollideBuffer:            8,
	ClusterPull:              0.02,
	ClusterCenterBaseDist:    120,
	ClusterCenterSizeDist:    25,
	ClusterPeripheralMinDist: 60,
	PanDrag:                  2.5,
	PanDecay:                 0.92,
	PanSnap:                  0.01,
	AlphaInit:                1.0,
	AlphaDecay:               0.0228,
	AlphaMin:                 0.001,
	VelocityDecay:            0.4,
	TickInterval:             16 * time.Millisecond,
}

// ForceSimulation owns the node/edge working set and runs the fixed set of
// forces per tick. All methods are safe for concurrent use; the tick loop
// and callers share one lock.
type ForceSimulation struct {
	mu          sync.Mutex
	conf        Config
	ws          *WorkingSet
	qt          *QuadTree
	cache       *PositionCache
	pan         *PanState
	alpha       float64
	alphaTarget float64
	state       State
	onTick      func(*WorkingSet)
	tickHook    func(time.Duration)
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewForceSimulation(conf Config) *ForceSimulation {
	fs := &ForceSimulation{state: StateIdle, pan: NewPanState()}
	fs.ApplyConfig(conf)
	return fs
}

func (fs *ForceSimulation) ApplyConfig(conf Config) {
	if conf.Viewport.Width == 0 || conf.Viewport.Height == 0 {
		conf.Viewport = DefaultConfig.Viewport
	}
	if conf.LinkDistance == 0 {
		conf.LinkDistance = DefaultConfig.LinkDistance
	}
	if conf.ChargeStrength == 0 {
		conf.ChargeStrength = DefaultConfig.ChargeStrength
	}
	if conf.ChargeTheta == 0 {
		conf.ChargeTheta = DefaultConfig.ChargeTheta
	}
	if conf.CenterStrength == 0 {
		conf.CenterStrength = DefaultConfig.CenterStrength
	}
	if conf.RadialInner == 0 {
		conf.RadialInner = DefaultConfig.RadialInner
	}
	if conf.RadialSpan == 0 {
		conf.RadialSpan = DefaultConfig.RadialSpan
	}
	if conf.NeutralRadius == 0 {
		conf.NeutralRadius = DefaultConfig.NeutralRadius
	}
	if conf.RadialStrength == 0 {
		conf.RadialStrength = DefaultConfig.RadialStrength
	}
	if conf.NeutralStrength == 0 {
		conf.NeutralStrength = DefaultConfig.NeutralStrength
	}
	if conf.CollideBuffer == 0 {
		conf.CollideBuffer = DefaultConfig.CollideBuffer
	}
	if conf.ClusterPull == 0 {
		conf.ClusterPull = DefaultConfig.ClusterPull
	}
	if conf.ClusterCenterBaseDist == 0 {
		conf.ClusterCenterBaseDist = DefaultConfig.ClusterCenterBaseDist
	}
	if conf.ClusterCenterSizeDist == 0 {
		conf.ClusterCenterSizeDist = DefaultConfig.ClusterCenterSizeDist
	}
	if conf.ClusterPeripheralMinDist == 0 {
		conf.ClusterPeripheralMinDist = DefaultConfig.ClusterPeripheralMinDist
	}
	if conf.PanDrag == 0 {
		conf.PanDrag = DefaultConfig.PanDrag
	}
	if conf.PanDecay == 0 {
		conf.PanDecay = DefaultConfig.PanDecay
	}
	if conf.PanSnap == 0 {
		conf.PanSnap = DefaultConfig.PanSnap
	}
	if conf.AlphaInit == 0 {
		conf.AlphaInit = DefaultConfig.AlphaInit
	}
	if conf.AlphaDecay == 0 {
		conf.AlphaDecay = DefaultConfig.AlphaDecay
	}
	if conf.AlphaMin == 0 {
		conf.AlphaMin = DefaultConfig.AlphaMin
	}
	if conf.VelocityDecay == 0 {
		conf.VelocityDecay = DefaultConfig.VelocityDecay
	}
	if conf.TickInterval == 0 {
		conf.TickInterval = DefaultConfig.TickInterval
	}
	if conf.RandomFloat == nil {
		conf.RandomFloat = func() float64 { return rand.Float64() }
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.conf = conf
	fs.alpha = conf.AlphaInit
}

// OnTick registers the per-tick callback. The callback runs on the tick
// goroutine with the lock held and must not retain the working set.
func (fs *ForceSimulation) OnTick(fn func(*WorkingSet)) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.onTick = fn
}

// OnTickDuration registers an observer for per-tick wall time, used for
// metrics.
func (fs *ForceSimulation) OnTickDuration(fn func(time.Duration)) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.tickHook = fn
}

// Build derives the working set from a snapshot and starts the tick loop.
// Known node positions are seeded from the cache; the cache is written back
// every tick. A snapshot with zero visible nodes leaves the simulation Idle
// so the host can render an explicit empty state instead of running empty
// physics.
func (fs *ForceSimulation) Build(ctx context.Context, g *model.Graph, filter model.TypeFilter, cache *PositionCache) State {
	fs.mu.Lock()
	if fs.state == StateDestroyed {
		fs.mu.Unlock()
		return StateDestroyed
	}
	fs.stopLoopLocked()
	fs.state = StateBuilding
	fs.cache = cache
	fs.ws = NewWorkingSet(g, filter, cache, fs.conf.Viewport, fs.conf.RandomFloat)
	if len(fs.ws.Nodes) == 0 {
		fs.state = StateIdle
		fs.mu.Unlock()
		return StateIdle
	}
	fs.qt = NewQuadTree(fs.chargeRegionLocked())
	fs.alpha = fs.conf.AlphaInit
	fs.alphaTarget = 0
	fs.state = StateRunning
	loopCtx, cancel := context.WithCancel(ctx)
	fs.cancel = cancel
	fs.done = make(chan struct{})
	go fs.loop(loopCtx, fs.done)
	fs.mu.Unlock()
	return StateRunning
}

func (fs *ForceSimulation) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(fs.conf.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fs.Tick()
		}
	}
}

// Tick runs one simulation step: alpha decay, the force passes in order,
// integration, overlap correction, then cache write-back and the tick
// callback. Settled simulations are a no-op until reheated.
func (fs *ForceSimulation) Tick() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.state != StateRunning || fs.ws == nil {
		return
	}
	started := time.Now()
	fs.alpha += (fs.alphaTarget - fs.alpha) * fs.conf.AlphaDecay
	if fs.alpha < fs.conf.AlphaMin && fs.alphaTarget < fs.conf.AlphaMin {
		fs.state = StateSettled
		return
	}
	fc := &forceContext{
		ws:     fs.ws,
		conf:   &fs.conf,
		alpha:  fs.alpha,
		center: fs.conf.Viewport.Center(),
		pan:    fs.pan,
	}
	linkForce(fc)
	fs.qt.region = fs.chargeRegionLocked()
	fs.qt.Rebuild(fs.ws)
	chargeForce(fc, fs.qt)
	centerForce(fc)
	radialForce(fc)
	clusterForce(fc)
	panInertiaForce(fc)
	integrate(fc)
	collisionForce(fc)
	if fs.cache != nil {
		fs.ws.commit(fs.cache)
	}
	if fs.onTick != nil {
		fs.onTick(fs.ws)
	}
	if fs.tickHook != nil {
		fs.tickHook(time.Since(started))
	}
}

// chargeRegionLocked sizes the quadtree region around the current content
// so repulsion reaches nodes that left the viewport.
func (fs *ForceSimulation) chargeRegionLocked() Rect {
	points := make([]vector.Vector, 0, len(fs.ws.Nodes))
	for i := range fs.ws.Nodes {
		if !math.IsNaN(fs.ws.Nodes[i].Pos.X()) {
			points = append(points, fs.ws.Nodes[i].Pos)
		}
	}
	box, ok := BoundingBox(points)
	if !ok {
		return fs.conf.Viewport
	}
	return box.Expand(fs.conf.LinkDistance)
}

// Reheat raises the simulation temperature, e.g. after panning or resizing,
// so a settled layout resumes moving.
func (fs *ForceSimulation) Reheat(alpha float64) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.state != StateRunning && fs.state != StateSettled {
		return
	}
	if alpha > fs.alpha {
		fs.alpha = alpha
	}
	fs.state = StateRunning
}

// SetAlphaTarget keeps the simulation warm at the given temperature, used
// during drags (0.3 while dragging, 0 on release).
func (fs *ForceSimulation) SetAlphaTarget(target float64) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.state != StateRunning && fs.state != StateSettled {
		return
	}
	fs.alphaTarget = target
	if target > fs.alpha {
		fs.alpha = target
	}
	fs.state = StateRunning
}

// SetViewport updates the centering and radial anchors without discarding
// node velocities, used on resize notifications.
func (fs *ForceSimulation) SetViewport(viewport Rect) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.conf.Viewport = viewport
}

// Pan exposes the pan state shared with the camera controller.
func (fs *ForceSimulation) Pan() *PanState {
	return fs.pan
}

// FixNode pins a node to pos for the duration of a drag.
func (fs *ForceSimulation) FixNode(id string, pos vector.Vector) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.ws == nil {
		return false
	}
	i, ok := fs.ws.index[id]
	if !ok {
		return false
	}
	fs.ws.Nodes[i].fixed = true
	fs.ws.Nodes[i].fix = pos
	return true
}

// ReleaseNode lets physics reclaim a previously fixed node.
func (fs *ForceSimulation) ReleaseNode(id string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.ws == nil {
		return
	}
	if i, ok := fs.ws.index[id]; ok {
		fs.ws.Nodes[i].fixed = false
	}
}

// Snapshot invokes fn with the working set under the lock, for reads that
// must be consistent with the tick loop (hit testing, framing).
func (fs *ForceSimulation) Snapshot(fn func(*WorkingSet)) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.ws != nil {
		fn(fs.ws)
	}
}

func (fs *ForceSimulation) State() State {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.state
}

func (fs *ForceSimulation) Alpha() float64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.alpha
}

// Stop cancels the tick loop and destroys the simulation. It blocks until
// the loop goroutine has exited.
func (fs *ForceSimulation) Stop() {
	fs.mu.Lock()
	fs.stopLoopLocked()
	fs.state = StateDestroyed
	done := fs.done
	fs.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (fs *ForceSimulation) stopLoopLocked() {
	if fs.cancel != nil {
		fs.cancel()
		fs.cancel = nil
	}
}

type Stats struct {
	Iterations int
	TotalTime  time.Duration
}

// ComputeLayout runs the simulation synchronously until it settles or ctx
// is cancelled, for offline layout generation. The tick loop is not
// started.
func (fs *ForceSimulation) ComputeLayout(ctx context.Context, g *model.Graph, filter model.TypeFilter, cache *PositionCache) (*WorkingSet, Stats) {
	fs.mu.Lock()
	fs.state = StateBuilding
	fs.cache = cache
	fs.ws = NewWorkingSet(g, filter, cache, fs.conf.Viewport, fs.conf.RandomFloat)
	stats := Stats{}
	if len(fs.ws.Nodes) == 0 {
		fs.state = StateIdle
		ws := fs.ws
		fs.mu.Unlock()
		return ws, stats
	}
	fs.qt = NewQuadTree(fs.chargeRegionLocked())
	fs.alpha = fs.conf.AlphaInit
	fs.alphaTarget = 0
	fs.state = StateRunning
	fs.mu.Unlock()
	startTime := time.Now()
simulation:
	for fs.State() == StateRunning {
		select {
		case <-ctx.Done():
			break simulation
		default:
		}
		fs.Tick()
		stats.Iterations++
	}
	stats.TotalTime = time.Since(startTime)
	return fs.ws, stats
}
