package control

import (
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/magsim/internal/magnet"
)

// Wall is a magnetic box surface. Bodies carrying a pole on one of its mask
// layers are pulled toward the nearest surface point while within MaxRange,
// then pinned to the kinematic Anchor body by a breakable fixed joint once
// they come within SnapDistance. A snapping body gets no pull that tick.
type Wall struct {
	Center      mgl64.Vec3
	HalfExtents mgl64.Vec3
	Anchor      string
	Mask        uint32
	Enabled     bool

	MaxRange     float64
	PullStrength float64
	Damping      float64
	MaxPullSpeed float64

	UseSnap       bool
	SnapDistance  float64
	SurfaceOffset float64
	SnapJoint     bool
	BreakForce    float64
	BreakTorque   float64

	// Align turns LocalForward of a snapped body to face the wall.
	Align        bool
	LocalForward mgl64.Vec3

	anchor magnet.BodyID
	joints map[magnet.BodyID]magnet.JointID
	logger *log.Logger
}

func NewWall(center, halfExtents mgl64.Vec3, anchor string) *Wall {
	return &Wall{
		Center:        center,
		HalfExtents:   halfExtents,
		Anchor:        anchor,
		Mask:          magnet.AllLayers,
		Enabled:       true,
		MaxRange:      3,
		PullStrength:  60,
		Damping:       4,
		MaxPullSpeed:  25,
		UseSnap:       true,
		SnapDistance:  0.08,
		SurfaceOffset: 0.01,
		SnapJoint:     true,
		BreakForce:    1200,
		BreakTorque:   1200,
		Align:         true,
		LocalForward:  mgl64.Vec3{0, 0, 1},
		joints:        make(map[magnet.BodyID]magnet.JointID),
	}
}

func (wl *Wall) SetLogger(l *log.Logger) { wl.logger = l }

// Stuck reports whether a body is held to the wall by a joint.
func (wl *Wall) Stuck(id magnet.BodyID) bool {
	_, ok := wl.joints[id]
	return ok
}

// Closest returns the point of the box nearest to p and the outward normal of
// the face that point lies on.
func (wl *Wall) Closest(p mgl64.Vec3) (point, normal mgl64.Vec3) {
	lo := wl.Center.Sub(wl.HalfExtents)
	hi := wl.Center.Add(wl.HalfExtents)
	for i := range 3 {
		point[i] = mgl64.Clamp(p[i], lo[i], hi[i])
	}

	local := point.Sub(wl.Center)
	best, axis := math.Inf(1), 0
	for i := range 3 {
		gap := math.Abs(wl.HalfExtents[i] - math.Abs(local[i]))
		if gap < best {
			best, axis = gap, i
			normal = mgl64.Vec3{}
			normal[i] = 1
			if local[i] < 0 {
				normal[i] = -1
			}
		}
	}
	// Points inside the box move out to the nearest face.
	point[axis] = wl.Center[axis] + normal[axis]*wl.HalfExtents[axis]
	return point, normal
}

func (wl *Wall) Apply(w *magnet.World, host magnet.Host, _ float64) {
	if !wl.Enabled {
		return
	}
	if !w.Alive(wl.anchor) {
		wl.anchor, _ = w.FindBody(wl.Anchor)
	}

	for id, j := range wl.joints {
		if !host.Connected(j) {
			delete(wl.joints, id)
			wl.logf("%s came off the wall", id)
		}
	}

	w.EachBody(func(id magnet.BodyID, b *magnet.Body) {
		if id == wl.anchor || !b.Enabled || b.Kinematic || !wl.magnetic(w, b) {
			return
		}
		if _, stuck := wl.joints[id]; stuck {
			return
		}
		surface, normal := wl.Closest(b.Position)
		if surface.Sub(b.Position).Len() > wl.MaxRange {
			return
		}

		target := surface.Add(normal.Mul(wl.SurfaceOffset))
		dir := target.Sub(b.Position)
		d := dir.Len()

		if wl.UseSnap && d <= wl.SnapDistance {
			wl.snap(w, host, id, b, target, normal)
			return
		}

		var desired mgl64.Vec3
		if d > 1e-9 {
			desired = dir.Mul(math.Min(wl.MaxPullSpeed, d*wl.PullStrength) / d)
		}
		gain := math.Max(wl.PullStrength-wl.Damping, wl.PullStrength*0.2)
		host.AddForce(id, desired.Sub(b.Velocity).Mul(gain), magnet.ModeAcceleration)
	})
}

func (wl *Wall) snap(w *magnet.World, host magnet.Host, id magnet.BodyID, b *magnet.Body, target, normal mgl64.Vec3) {
	if wl.Align && wl.LocalForward.LenSqr() > 0 {
		current := b.Orientation.Rotate(wl.LocalForward).Normalize()
		b.Orientation = mgl64.QuatBetweenVectors(current, normal.Mul(-1)).Mul(b.Orientation).Normalize()
	}
	b.Position = target

	anchor, ok := w.Body(wl.anchor)
	if !wl.SnapJoint || !ok {
		if vn := b.Velocity.Dot(normal); vn > 0 {
			b.Velocity = b.Velocity.Sub(normal.Mul(vn))
		}
		return
	}
	// snapped bodies start at rest relative to the anchor
	b.Velocity = anchor.Velocity
	b.AngularVelocity = anchor.AngularVelocity
	j := host.Connect(id, wl.anchor, wl.BreakForce, wl.BreakTorque)
	if j == 0 {
		return
	}
	wl.joints[id] = j
	wl.logf("%s stuck to the wall (joint %d)", id, j)
}

func (wl *Wall) magnetic(w *magnet.World, b *magnet.Body) bool {
	for _, pid := range b.Poles() {
		if p, ok := w.Pole(pid); ok && p.Enabled && wl.Mask&(1<<p.Layer) != 0 {
			return true
		}
	}
	return false
}

func (wl *Wall) logf(format string, args ...any) {
	if wl.logger != nil {
		wl.logger.Printf("wall: "+format, args...)
	}
}
