package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/viz"
)

// Palette cycles through body colours.
var Palette = []string{"#ff5f5f", "#5fafff", "#5fff87", "#ffd75f", "#d787ff", "#5fffff", "#ff875f", "#afafaf"}

// Plane picks the two world axes drawn on the page.
type Plane struct {
	U, V int
}

var (
	// TopDown looks along -y, the usual view of a magnet table.
	TopDown = Plane{U: 0, V: 2}
	// Side looks along -z.
	Side = Plane{U: 0, V: 1}
)

// ParsePlane accepts "xz" or "xy".
func ParsePlane(s string) (Plane, error) {
	switch s {
	case "", "xz":
		return TopDown, nil
	case "xy":
		return Side, nil
	}
	return Plane{}, fmt.Errorf("unknown plane: %s", s)
}

func (p Plane) project(v mgl64.Vec3) (float64, float64) { return v[p.U], v[p.V] }

type bounds struct {
	minX, minY, rangeX, rangeY float64
}

func boundsOf(tracks map[string][]mgl64.Vec3, plane Plane) bounds {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, pts := range tracks {
		for _, p := range pts {
			x, y := plane.project(p)
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	// square aspect so circles stay circles
	r := math.Max(rangeX, rangeY) * 1.2
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	return bounds{minX: cx - r/2, minY: cy - r/2, rangeX: r, rangeY: r}
}

// TracksToSVG draws every body's path through a run, one colour per body,
// with a hollow marker at the start and a filled one at the end.
func TracksToSVG(result *dynamo.Result, plane Plane, width, height int) string {
	if result == nil || len(result.Frames) < 2 {
		return ""
	}
	names := make([]string, 0, len(result.Frames[0].Bodies))
	tracks := make(map[string][]mgl64.Vec3)
	for _, b := range result.Frames[0].Bodies {
		names = append(names, b.Name)
		tracks[b.Name] = result.Track(b.Name)
	}
	bb := boundsOf(tracks, plane)
	toPage := func(v mgl64.Vec3) (float64, float64) {
		x, y := plane.project(v)
		return (x - bb.minX) / bb.rangeX * float64(width),
			float64(height) - (y-bb.minY)/bb.rangeY*float64(height)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for i, name := range names {
		pts := tracks[name]
		if len(pts) == 0 {
			continue
		}
		color := Palette[i%len(Palette)]
		sb.WriteString(fmt.Sprintf(`<g id="%s"><path fill="none" stroke="%s" stroke-width="1.5" d="M`, name, color))
		for j, p := range pts {
			x, y := toPage(p)
			if j == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString(`"/>`)
		x0, y0 := toPage(pts[0])
		x1, y1 := toPage(pts[len(pts)-1])
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="4" fill="none" stroke="%s"/>`, x0, y0, color))
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="4" fill="%s"/>`, x1, y1, color))
		sb.WriteString("</g>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// CanvasToSVG converts a Braille canvas to SVG format
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2   // 2 sub-pixels per char
	height := float64(canvas.Height) * scale * 4 // 4 sub-pixels per char

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height))

	dotRadius := scale * 0.4
	for py := 0; py < canvas.Height*4; py++ {
		for px := 0; px < canvas.Width*2; px++ {
			if !canvas.Get(px, py) {
				continue
			}
			cx := float64(px)*scale + scale/2
			cy := float64(py)*scale + scale/2
			sb.WriteString(fmt.Sprintf("<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius))
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}
