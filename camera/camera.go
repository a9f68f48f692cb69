// Package camera owns the zoom/pan transform applied to the rendered graph
// and the auto-framing drift loop that keeps content in view without
// fighting a user who has deliberately zoomed in.
package camera

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/quartercastle/vector"

	"github.com/carrygg/metagraph/layout"
)

// Transform is the translate+scale applied uniformly to the render group.
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

type Config struct {
	// user zoom bounds
	MinZoom, MaxZoom float64
	// auto-framing zoom bounds, tighter than the user bounds
	FitMinZoom, FitMaxZoom float64
	// margin around the content bounding box
	FitMargin float64
	// share of the viewport the fitted content should fill
	FitFill float64
	// interpolation rate of the drift loop, per frame
	DriftRate float64
	// relative distance to the fit scale below which the camera counts as
	// being in overview mode
	FitTolerance float64
	// exponential smoothing of the user pan velocity: new sample weight
	PanSmoothing  float64
	FrameInterval time.Duration
}

var DefaultConfig = Config{
	MinZoom:       0.3,
	MaxZoom:       3,
	FitMinZoom:    0.3,
	FitMaxZoom:    2.5,
	FitMargin:     60,
	FitFill:       0.85,
	DriftRate:     0.02,
	FitTolerance:  0.1,
	PanSmoothing:  0.4,
	FrameInterval: 16 * time.Millisecond,
}

// Camera tracks the current viewport transform. User gestures update it
// directly; the drift loop nudges it toward a fit-to-content target when
// the user is looking at empty space or is already near the fit scale.
type Camera struct {
	mu            sync.Mutex
	conf          Config
	width, height float64
	t             Transform
	pan           *layout.PanState
	dragging      bool
	lastDrag      vector.Vector
	smoothedVel   vector.Vector
	onChange      func(Transform)
	cancel        context.CancelFunc
	done          chan struct{}
}

// New creates a camera feeding pan momentum into the given pan state. Zero
// config fields fall back to DefaultConfig, field by field.
func New(conf Config, pan *layout.PanState) *Camera {
	if conf.MinZoom == 0 {
		conf.MinZoom = DefaultConfig.MinZoom
	}
	if conf.MaxZoom == 0 {
		conf.MaxZoom = DefaultConfig.MaxZoom
	}
	if conf.FitMinZoom == 0 {
		conf.FitMinZoom = DefaultConfig.FitMinZoom
	}
	if conf.FitMaxZoom == 0 {
		conf.FitMaxZoom = DefaultConfig.FitMaxZoom
	}
	if conf.FitMargin == 0 {
		conf.FitMargin = DefaultConfig.FitMargin
	}
	if conf.FitFill == 0 {
		conf.FitFill = DefaultConfig.FitFill
	}
	if conf.DriftRate == 0 {
		conf.DriftRate = DefaultConfig.DriftRate
	}
	if conf.FitTolerance == 0 {
		conf.FitTolerance = DefaultConfig.FitTolerance
	}
	if conf.PanSmoothing == 0 {
		conf.PanSmoothing = DefaultConfig.PanSmoothing
	}
	if conf.FrameInterval == 0 {
		conf.FrameInterval = DefaultConfig.FrameInterval
	}
	return &Camera{conf: conf, t: Transform{K: 1}, pan: pan}
}

// Attach sets the viewport size. Safe to call again on resize.
func (c *Camera) Attach(width, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
}

// OnChange registers the transform listener, invoked from gestures and the
// drift loop.
func (c *Camera) OnChange(fn func(Transform)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Camera) Transform() Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// TransformTo sets the transform programmatically, clamped to the user zoom
// bounds.
func (c *Camera) TransformTo(x, y, k float64) {
	c.mu.Lock()
	c.t = Transform{X: x, Y: y, K: clamp(k, c.conf.MinZoom, c.conf.MaxZoom)}
	fn, t := c.onChange, c.t
	c.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

// BeginDrag starts a user pan gesture at the given screen point. The drift
// loop pauses for the duration of the drag.
func (c *Camera) BeginDrag(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = true
	c.lastDrag = vector.Vector{x, y}
	c.smoothedVel = vector.Vector{0, 0}
}

// DragTo pans the viewport to follow the pointer and tracks the running
// average pan velocity handed to the simulation's inertia force.
func (c *Camera) DragTo(x, y float64) {
	c.mu.Lock()
	if !c.dragging {
		c.mu.Unlock()
		return
	}
	delta := vector.Vector{x, y}.Sub(c.lastDrag)
	c.lastDrag = vector.Vector{x, y}
	c.t.X += delta.X()
	c.t.Y += delta.Y()
	// world-space velocity, exponentially smoothed
	worldDelta := delta.Scale(1 / c.t.K)
	s := c.conf.PanSmoothing
	c.smoothedVel = c.smoothedVel.Scale(1 - s).Add(worldDelta.Scale(s))
	if c.pan != nil {
		c.pan.SetVelocity(c.smoothedVel)
	}
	fn, t := c.onChange, c.t
	c.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

// EndDrag releases the gesture; the captured pan velocity keeps decaying
// inside the simulation.
func (c *Camera) EndDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = false
}

func (c *Camera) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragging
}

// Zoom scales around the given screen point, clamped to the user bounds.
func (c *Camera) Zoom(factor, cx, cy float64) {
	c.mu.Lock()
	k := clamp(c.t.K*factor, c.conf.MinZoom, c.conf.MaxZoom)
	ratio := k / c.t.K
	c.t.X = cx - (cx-c.t.X)*ratio
	c.t.Y = cy - (cy-c.t.Y)*ratio
	c.t.K = k
	fn, t := c.onChange, c.t
	c.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

// StartDrift runs the auto-framing loop until ctx is cancelled. points
// provides the world positions of the currently visible nodes; it is
// queried every frame.
func (c *Camera) StartDrift(ctx context.Context, points func() []vector.Vector) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	interval := c.conf.FrameInterval
	c.mu.Unlock()
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				c.driftStep(points())
			}
		}
	}()
}

// StopDrift cancels the drift loop frame requests and waits for the loop to
// exit.
func (c *Camera) StopDrift() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// driftStep interpolates the transform toward the fit-to-content target.
// It only acts when the visible content is outside the viewport or the
// camera is already near the fit scale; a user zoomed into a sub-region is
// left alone.
func (c *Camera) driftStep(points []vector.Vector) {
	c.mu.Lock()
	if c.dragging || c.width == 0 || c.height == 0 || len(points) == 0 {
		c.mu.Unlock()
		return
	}
	box, ok := layout.BoundingBox(points)
	if !ok {
		c.mu.Unlock()
		return
	}
	box = box.Expand(c.conf.FitMargin)
	fitK := c.conf.FitMaxZoom
	if box.Width > 0 && box.Height > 0 {
		fitK = math.Min(c.conf.FitFill*c.width/box.Width, c.conf.FitFill*c.height/box.Height)
	}
	fitK = clamp(fitK, c.conf.FitMinZoom, c.conf.FitMaxZoom)
	target := Transform{
		X: c.width/2 - fitK*(box.X+box.Width/2),
		Y: c.height/2 - fitK*(box.Y+box.Height/2),
		K: fitK,
	}
	screenBox := layout.Rect{
		X:      box.X*c.t.K + c.t.X,
		Y:      box.Y*c.t.K + c.t.Y,
		Width:  box.Width * c.t.K,
		Height: box.Height * c.t.K,
	}
	viewport := layout.Rect{Width: c.width, Height: c.height}
	lookingAtEmptySpace := !screenBox.Overlaps(viewport)
	overviewMode := math.Abs(c.t.K-fitK) <= c.conf.FitTolerance*fitK
	if !lookingAtEmptySpace && !overviewMode {
		c.mu.Unlock()
		return
	}
	r := c.conf.DriftRate
	c.t.X += (target.X - c.t.X) * r
	c.t.Y += (target.Y - c.t.Y) * r
	c.t.K += (target.K - c.t.K) * r
	fn, t := c.onChange, c.t
	c.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

func clamp(in, lo, hi float64) float64 {
	if in < lo {
		return lo
	}
	if in > hi {
		return hi
	}
	return in
}
