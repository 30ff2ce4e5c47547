package magnet

import "github.com/go-gl/mathgl/mgl64"

// PairResult is the outcome for one eligible pole pair.
type PairResult struct {
	A, B     PoleID
	Distance float64
	Sign     float64
	Force    mgl64.Vec3 // force on A; B receives the negation
	Snapped  bool
}

// Application is one force handed to the host.
type Application struct {
	Body    BodyID
	Force   mgl64.Vec3
	Point   mgl64.Vec3
	AtPoint bool
	Mode    ForceMode
}

// JointEvent records a joint request or release between two bodies.
type JointEvent struct {
	Host, Other BodyID
	Joint       JointID
	BreakForce  float64
	BreakTorque float64
}

// Report describes everything one solver step decided.
type Report struct {
	Pairs     []PairResult
	Applied   []Application
	Joined    []JointEvent
	Released  []JointEvent
	Skipped   int
	PeakForce float64
}

func (r *Report) reset() {
	r.Pairs = r.Pairs[:0]
	r.Applied = r.Applied[:0]
	r.Joined = r.Joined[:0]
	r.Released = r.Released[:0]
	r.Skipped = 0
	r.PeakForce = 0
}

// NetForce sums the applications on one body.
func (r *Report) NetForce(body BodyID) mgl64.Vec3 {
	var sum mgl64.Vec3
	for _, a := range r.Applied {
		if a.Body == body {
			sum = sum.Add(a.Force)
		}
	}
	return sum
}
