package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/magsim/internal/dynamo"
)

// Separation returns the distance between two bodies at every frame where
// both are present.
func Separation(r *dynamo.Result, a, b string) []float64 {
	out := make([]float64, 0, len(r.Frames))
	for i := range r.Frames {
		ba, okA := r.Frames[i].Body(a)
		bb, okB := r.Frames[i].Body(b)
		if okA && okB {
			out = append(out, bb.Position.Sub(ba.Position).Len())
		}
	}
	return out
}

// ClosingSpeed returns the rate at which two bodies approach along the line
// joining them; positive means closing.
func ClosingSpeed(r *dynamo.Result, a, b string) []float64 {
	out := make([]float64, 0, len(r.Frames))
	for i := range r.Frames {
		ba, okA := r.Frames[i].Body(a)
		bb, okB := r.Frames[i].Body(b)
		if !okA || !okB {
			continue
		}
		d := bb.Position.Sub(ba.Position)
		if d.LenSqr() == 0 {
			out = append(out, 0)
			continue
		}
		rel := bb.Velocity.Sub(ba.Velocity)
		out = append(out, -rel.Dot(d.Normalize()))
	}
	return out
}

type Point struct{ X, Y float64 }

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	XLabel, YLabel string
	Points         []Point
}

// PhasePortrait pairs separation with closing speed for two bodies.
func PhasePortrait(r *dynamo.Result, a, b string) *PhasePortrait2D {
	sep := Separation(r, a, b)
	speed := ClosingSpeed(r, a, b)
	p := &PhasePortrait2D{XLabel: "separation", YLabel: "closing speed", Points: make([]Point, len(sep))}
	for i := range sep {
		p.Points[i] = Point{X: sep[i], Y: speed[i]}
	}
	return p
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width <= 1 || height <= 1 {
		return ""
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range portrait.Points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	// zero closing speed marks rest
	if minY <= 0 && minY+rangeY >= 0 {
		row := height - 1 - int(-minY/rangeY*float64(height-1))
		for col := range canvas[row] {
			canvas[row][col] = '─'
		}
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
