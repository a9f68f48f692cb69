// adapted from https://github.com/jwhandley/graphyz/blob/main/g.go
package layout

import (
	"math"
	"sync"

	"github.com/quartercastle/vector"
)

// forceContext is the explicit input of every per-tick force pass: the node
// arena, the current temperature and the viewport-derived anchors. Forces
// only write node velocities; the collision pass is the exception and
// corrects positions directly after integration.
type forceContext struct {
	ws     *WorkingSet
	conf   *Config
	alpha  float64
	center vector.Vector
	pan    *PanState
}

// coincidentDelta substitutes a pseudo-random unit direction for a
// zero-length pairwise delta, so coincident nodes still separate instead of
// cancelling every force between them to an exact zero.
func (fc *forceContext) coincidentDelta() vector.Vector {
	angle := fc.conf.RandomFloat() * 2 * math.Pi
	return vector.Vector{math.Cos(angle), math.Sin(angle)}
}

// linkForce pulls connected nodes toward the configured target distance.
// Strength and bias follow the endpoint degrees so that hubs move less than
// leaves.
func linkForce(fc *forceContext) {
	ws := fc.ws
	for _, l := range ws.Links {
		source, target := &ws.Nodes[l.Source], &ws.Nodes[l.Target]
		delta := target.Pos.Add(target.vel).Sub(source.Pos.Add(source.vel))
		d := delta.Magnitude()
		if d < minSeparation {
			delta = fc.coincidentDelta()
			d = minSeparation
		}
		k := (d - fc.conf.LinkDistance) / d * l.strength * fc.alpha
		push := delta.Scale(k)
		vector.In(target.vel).Sub(push.Scale(l.bias))
		vector.In(source.vel).Add(push.Scale(1 - l.bias))
	}
}

// chargeForce applies many-body repulsion through the Barnes-Hut tree.
func chargeForce(fc *forceContext, qt *QuadTree) {
	ws := fc.ws
	for i := range ws.Nodes {
		acc := vector.Vector{0, 0}
		qt.Accumulate(&acc, ws, i, fc.conf.ChargeStrength, fc.conf.ChargeTheta, fc.coincidentDelta)
		vector.In(ws.Nodes[i].vel).Add(acc.Scale(fc.alpha))
	}
}

// centerForce is the weak pull toward the viewport center keeping the
// layout from drifting off screen.
func centerForce(fc *forceContext) {
	ws := fc.ws
	for i := range ws.Nodes {
		node := &ws.Nodes[i]
		delta := fc.center.Sub(node.Pos)
		vector.In(node.vel).Add(delta.Scale(fc.conf.CenterStrength * fc.alpha))
	}
}

// radialForce biases every non-center node toward a ring whose radius
// encodes its impact: high impact sits close to the centers, low impact far
// out, neutral nodes on a fixed middle ring. The strength is deliberately
// soft so the bias coexists with charge and collision instead of pinning.
func radialForce(fc *forceContext) {
	ws := fc.ws
	for i := range ws.Nodes {
		node := &ws.Nodes[i]
		if node.IsCenter {
			continue
		}
		target := fc.conf.NeutralRadius
		strength := fc.conf.NeutralStrength
		if node.HasDelta {
			falloff := 1 - node.Impact
			target = fc.conf.RadialInner + falloff*falloff*fc.conf.RadialSpan
			strength = fc.conf.RadialStrength
		}
		delta := node.Pos.Sub(fc.center)
		d := delta.Magnitude()
		if d < minSeparation {
			delta = fc.coincidentDelta()
			d = minSeparation
		}
		k := (target - d) * strength * fc.alpha / d
		vector.In(node.vel).Add(delta.Scale(k))
	}
}

// clusterForce shapes multi-center layouts: centers share a centroid pull,
// center pairs keep a size-aware minimum distance, and peripherals of
// disjoint clusters are kept apart. Pairs sharing at least one cluster
// membership are never repelled from each other.
func clusterForce(fc *forceContext) {
	ws := fc.ws
	if len(ws.Centers) < 2 {
		return
	}
	points := make([]vector.Vector, len(ws.Centers))
	for i, c := range ws.Centers {
		points[i] = ws.Nodes[c].Pos
	}
	centroid := Centroid(points)
	for _, c := range ws.Centers {
		node := &ws.Nodes[c]
		delta := centroid.Sub(node.Pos)
		vector.In(node.vel).Add(delta.Scale(fc.conf.ClusterPull * fc.alpha))
	}
	for i := 0; i < len(ws.Centers); i++ {
		for j := i + 1; j < len(ws.Centers); j++ {
			a, b := ws.Centers[i], ws.Centers[j]
			size := float64(ws.clusterSize[a] + ws.clusterSize[b])
			minDist := fc.conf.ClusterCenterBaseDist + math.Sqrt(size)*fc.conf.ClusterCenterSizeDist
			repelPair(fc, a, b, minDist)
		}
	}
	for i := range ws.Nodes {
		if ws.Nodes[i].IsCenter || len(ws.membership[i]) == 0 {
			continue
		}
		for j := i + 1; j < len(ws.Nodes); j++ {
			if ws.Nodes[j].IsCenter || len(ws.membership[j]) == 0 {
				continue
			}
			if ws.sharesCluster(i, j) {
				continue
			}
			repelPair(fc, i, j, fc.conf.ClusterPeripheralMinDist)
		}
	}
}

// repelPair pushes a and b apart when closer than minDist, half the
// correction each.
func repelPair(fc *forceContext, a, b int, minDist float64) {
	ws := fc.ws
	na, nb := &ws.Nodes[a], &ws.Nodes[b]
	d := Dist(na.Pos, nb.Pos)
	if d >= minDist {
		return
	}
	delta := nb.Pos.Sub(na.Pos)
	if delta.Magnitude() == 0 {
		delta = fc.coincidentDelta()
	}
	k := (minDist - d) / d * 0.5 * fc.alpha
	vector.In(nb.vel).Add(delta.Scale(k))
	vector.In(na.vel).Sub(delta.Scale(k))
}

// panInertiaForce drags every node against the camera's pan momentum so
// content appears to drift with the gesture instead of relocating
// instantly. The pan velocity decays each tick and snaps to zero once
// negligible.
func panInertiaForce(fc *forceContext) {
	if fc.pan == nil {
		return
	}
	vel := fc.pan.Velocity()
	if vel.Magnitude() > 0 {
		drag := vel.Scale(fc.conf.PanDrag)
		for i := range fc.ws.Nodes {
			vector.In(fc.ws.Nodes[i].vel).Sub(drag)
		}
	}
	fc.pan.decay(fc.conf.PanDecay, fc.conf.PanSnap)
}

// integrate folds accumulated velocities into positions. Fixed nodes are
// snapped to their fix point with velocity cleared.
func integrate(fc *forceContext) {
	ws := fc.ws
	for i := range ws.Nodes {
		node := &ws.Nodes[i]
		if node.fixed {
			node.Pos = node.fix
			node.vel = vector.Vector{0, 0}
			continue
		}
		vector.In(node.vel).Scale(1 - fc.conf.VelocityDecay)
		vector.In(node.Pos).Add(node.vel)
	}
}

// collisionForce separates overlapping nodes, radius-aware. It runs last
// and adjusts positions directly so overlap correction is the final word of
// each tick, preventing jitter from competing attractors.
func collisionForce(fc *forceContext) {
	ws := fc.ws
	buffer := fc.conf.CollideBuffer
	for i := 0; i < len(ws.Nodes); i++ {
		a := &ws.Nodes[i]
		ra := a.collideRadius(buffer)
		for j := i + 1; j < len(ws.Nodes); j++ {
			b := &ws.Nodes[j]
			rb := b.collideRadius(buffer)
			d := Dist(a.Pos, b.Pos)
			overlap := ra + rb - d
			if overlap <= 0 {
				continue
			}
			dir := a.Pos.Sub(b.Pos)
			if dir.Magnitude() == 0 {
				dir = fc.coincidentDelta()
			}
			push := dir.Unit().Scale(overlap * 0.5)
			if !a.fixed {
				vector.In(a.Pos).Add(push)
			}
			if !b.fixed {
				vector.In(b.Pos).Sub(push)
			}
		}
	}
}

// PanState carries the camera's smoothed pan velocity into the simulation.
// The camera goroutine writes while the physics tick reads, hence the lock.
type PanState struct {
	mu  sync.Mutex
	vel vector.Vector
}

func NewPanState() *PanState {
	return &PanState{vel: vector.Vector{0, 0}}
}

func (p *PanState) SetVelocity(v vector.Vector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vel = v
}

func (p *PanState) Velocity() vector.Vector {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vel
}

func (p *PanState) decay(factor, snap float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vel = p.vel.Scale(factor)
	if p.vel.Magnitude() < snap {
		p.vel = vector.Vector{0, 0}
	}
}
