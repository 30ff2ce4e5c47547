package control

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/magsim/internal/magnet"
)

// Manual applies a user-set force to one body every tick.
// Used by the live view to shove bodies around.
type Manual struct {
	Body  magnet.BodyID
	Force mgl64.Vec3
	Mode  magnet.ForceMode
}

func NewManual() *Manual {
	return &Manual{Mode: magnet.ModeAcceleration}
}

// Push sets the target body and force; a zero force stops pushing.
func (c *Manual) Push(body magnet.BodyID, force mgl64.Vec3) {
	c.Body = body
	c.Force = force
}

func (c *Manual) Apply(w *magnet.World, host magnet.Host, _ float64) {
	if c.Force.LenSqr() == 0 || !w.Alive(c.Body) {
		return
	}
	host.AddForce(c.Body, c.Force, c.Mode)
}
