// Package controller glues one client's graph view together: the force
// simulation, the camera, the renderer and the interaction handler. All
// cross-cutting state (selected filters, tooltips) is passed in and emitted
// out; the controller never reads shared mutable globals.
package controller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/carrygg/metagraph/camera"
	"github.com/carrygg/metagraph/graph/model"
	"github.com/carrygg/metagraph/interact"
	"github.com/carrygg/metagraph/layout"
	"github.com/carrygg/metagraph/render"
	"github.com/quartercastle/vector"
)

// Emitter is the outbound event surface of a session: selection events and
// tooltips for the external state collaborator, frames for the transport.
//
//go:generate mockgen -destination emitter_mock.go -package controller . Emitter
type Emitter interface {
	SelectToken(token, source string)
	ShowTooltip(x, y float64, content model.Tooltip)
	HideTooltip()
	Frame(f render.Frame)
}

// reheat temperature applied on resize so a settled layout adapts to the
// new centering target without restarting
const resizeReheat = 0.3

// Session owns the engine instances of one connected client. A session is
// single-owner: the transport serializes inbound calls. The node-position
// cache is the only state carried across rebuilds.
type Session struct {
	ID string

	sim     *layout.ForceSimulation
	cam     *camera.Camera
	rend    *render.Renderer
	handler *interact.Handler
	cache   *layout.PositionCache
	emitter Emitter

	data   *model.Graph
	filter model.TypeFilter

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession wires a fresh engine. The drift loop starts immediately; the
// physics loop starts with the first snapshot.
func NewSession(ctx context.Context, emitter Emitter, icons render.IconResolver) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:      uuid.NewString(),
		sim:     layout.NewForceSimulation(layout.Config{}),
		rend:    render.New(icons),
		cache:   layout.NewPositionCache(),
		emitter: emitter,
		filter:  model.AllTypes(),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.cam = camera.New(camera.DefaultConfig, s.sim.Pan())
	s.handler = interact.NewHandler(s.sim, s.cam, emitter)
	s.sim.OnTick(func(ws *layout.WorkingSet) {
		emitter.Frame(s.rend.Frame(ws, s.cam.Transform()))
	})
	s.cam.OnChange(func(t camera.Transform) {
		// keep the view moving under pan/zoom even when physics settled
		if s.sim.State() == layout.StateSettled {
			s.emitFrame()
		}
	})
	s.cam.StartDrift(ctx, s.visiblePoints)
	return s
}

// ApplyData replaces the graph snapshot and rebuilds the working set. The
// previous simulation loop is torn down before the new one starts, so two
// simulations never mutate the same node set concurrently.
func (s *Session) ApplyData(g *model.Graph) {
	s.data = g
	s.rebuild()
}

// SetTypeFilter changes the visible node types without a data refetch. The
// layout rebuilds since visible-set membership changes; cached positions
// keep unaffected nodes in place.
func (s *Session) SetTypeFilter(filter model.TypeFilter) {
	s.filter = filter
	s.rebuild()
}

func (s *Session) rebuild() {
	if s.data == nil {
		return
	}
	state := s.sim.Build(s.ctx, s.data, s.filter, s.cache)
	log.Ctx(s.ctx).Debug().
		Str("session", s.ID).
		Stringer("state", state).
		Int("nodes", len(s.data.Nodes)).
		Int("edges", len(s.data.Edges)).
		Msg("rebuilt working set")
	if state == layout.StateIdle {
		s.emitter.Frame(s.rend.EmptyFrame(s.cam.Transform()))
	}
}

// Resize updates the viewport-dependent force anchors and the drift target
// without discarding node velocities or cached positions.
func (s *Session) Resize(width, height float64) {
	s.cam.Attach(width, height)
	s.sim.SetViewport(layout.Rect{Width: width, Height: height})
	s.sim.Reheat(resizeReheat)
}

// Highlight toggles the highlighted node set and re-emits a single frame.
// No physics rebuild happens; applying the same set twice is idempotent.
func (s *Session) Highlight(ids []string) {
	s.rend.SetHighlight(ids)
	s.emitFrame()
}

// ObserveTicks registers a per-tick duration observer, used for metrics.
func (s *Session) ObserveTicks(fn func(d time.Duration)) {
	s.sim.OnTickDuration(fn)
}

// Pointer dispatches one pointer/touch event.
func (s *Session) Pointer(ev interact.Event) {
	s.handler.Handle(ev)
}

// Close tears the session down: simulation scheduler stopped, drift-loop
// frame requests cancelled, listeners detached.
func (s *Session) Close() {
	s.cancel()
	s.cam.StopDrift()
	s.sim.Stop()
	log.Debug().Str("session", s.ID).Msg("session closed")
}

func (s *Session) emitFrame() {
	emitted := false
	s.sim.Snapshot(func(ws *layout.WorkingSet) {
		s.emitter.Frame(s.rend.Frame(ws, s.cam.Transform()))
		emitted = true
	})
	if !emitted {
		s.emitter.Frame(s.rend.EmptyFrame(s.cam.Transform()))
	}
}

func (s *Session) visiblePoints() []vector.Vector {
	points := []vector.Vector{}
	s.sim.Snapshot(func(ws *layout.WorkingSet) {
		for i := range ws.Nodes {
			points = append(points, ws.Nodes[i].Pos)
		}
	})
	return points
}
