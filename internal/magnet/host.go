package magnet

import "github.com/go-gl/mathgl/mgl64"

// Host is the rigid-body engine the solver hands its results to.
type Host interface {
	AddForceAtPosition(body BodyID, force, point mgl64.Vec3, mode ForceMode)
	AddForce(body BodyID, force mgl64.Vec3, mode ForceMode)
	// Connect creates a fixed joint on host attached to other. A zero break
	// threshold means the joint never breaks on that axis.
	Connect(host, other BodyID, breakForce, breakTorque float64) JointID
	// Connected reports whether a joint still exists and links live bodies.
	Connected(j JointID) bool
}

// Recorder is a Host that records what it receives. Joints stay connected
// until Break is called.
type Recorder struct {
	Forces []Application
	Joints map[JointID][2]BodyID

	next JointID
}

func NewRecorder() *Recorder {
	return &Recorder{Joints: make(map[JointID][2]BodyID)}
}

func (r *Recorder) AddForceAtPosition(body BodyID, force, point mgl64.Vec3, mode ForceMode) {
	r.Forces = append(r.Forces, Application{Body: body, Force: force, Point: point, AtPoint: true, Mode: mode})
}

func (r *Recorder) AddForce(body BodyID, force mgl64.Vec3, mode ForceMode) {
	r.Forces = append(r.Forces, Application{Body: body, Force: force, Mode: mode})
}

func (r *Recorder) Connect(host, other BodyID, _, _ float64) JointID {
	r.next++
	r.Joints[r.next] = [2]BodyID{host, other}
	return r.next
}

func (r *Recorder) Connected(j JointID) bool {
	_, ok := r.Joints[j]
	return ok
}

// Break removes a joint as if its threshold had been exceeded.
func (r *Recorder) Break(j JointID) { delete(r.Joints, j) }

// Reset forgets recorded forces; joints are kept.
func (r *Recorder) Reset() { r.Forces = r.Forces[:0] }

// Net returns the summed force recorded for a body.
func (r *Recorder) Net(body BodyID) mgl64.Vec3 {
	var sum mgl64.Vec3
	for _, f := range r.Forces {
		if f.Body == body {
			sum = sum.Add(f.Force)
		}
	}
	return sum
}
