package export

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/gomega"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/viz"
)

func twoBodyResult() *dynamo.Result {
	r := &dynamo.Result{}
	for i := 0; i < 4; i++ {
		x := float64(i) * 0.1
		r.Frames = append(r.Frames, dynamo.Frame{
			T: float64(i) * 0.02,
			Bodies: []dynamo.BodyState{
				{Name: "north", Position: mgl64.Vec3{-1 + x, 0, 0}},
				{Name: "south", Position: mgl64.Vec3{1 - x, 0, 0.5}},
			},
		})
	}
	return r
}

func TestTracksToSVG(t *testing.T) {
	g := NewWithT(t)
	svg := TracksToSVG(twoBodyResult(), TopDown, 400, 300)

	g.Expect(svg).To(HavePrefix("<?xml"))
	g.Expect(svg).To(HaveSuffix("</svg>"))
	g.Expect(svg).To(ContainSubstring(`<g id="north">`))
	g.Expect(svg).To(ContainSubstring(`<g id="south">`))
	g.Expect(svg).To(ContainSubstring(Palette[0]))
	g.Expect(svg).To(ContainSubstring(Palette[1]))
	g.Expect(strings.Count(svg, "<path")).To(Equal(2))
	g.Expect(strings.Count(svg, "<circle")).To(Equal(4))
	g.Expect(strings.Count(svg, " L")).To(Equal(6))
}

func TestTracksToSVG_NeedsTwoFrames(t *testing.T) {
	if TracksToSVG(nil, TopDown, 100, 100) != "" {
		t.Error("nil result should render nothing")
	}
	r := twoBodyResult()
	r.Frames = r.Frames[:1]
	if TracksToSVG(r, TopDown, 100, 100) != "" {
		t.Error("single frame should render nothing")
	}
}

func TestTracksToSVG_StaysOnPage(t *testing.T) {
	r := twoBodyResult()
	svg := TracksToSVG(r, Side, 200, 200)
	for _, neg := range []string{"M-", "L-", `cx="-`, `cy="-`} {
		if strings.Contains(svg, neg) {
			t.Errorf("negative page coordinate %q in %s", neg, svg)
		}
	}
}

func TestParsePlane(t *testing.T) {
	tests := []struct {
		in   string
		want Plane
		err  bool
	}{
		{"", TopDown, false},
		{"xz", TopDown, false},
		{"xy", Side, false},
		{"yz", Plane{}, true},
	}
	for _, tt := range tests {
		got, err := ParsePlane(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParsePlane(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestCanvasToSVG(t *testing.T) {
	g := NewWithT(t)
	g.Expect(CanvasToSVG(nil, 2)).To(BeEmpty())

	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	svg := CanvasToSVG(c, 2)
	g.Expect(svg).To(ContainSubstring(`width="8" height="8"`))
	g.Expect(strings.Count(svg, "<circle")).To(Equal(2))
	g.Expect(svg).To(ContainSubstring(`cx="1.0" cy="1.0"`))
	g.Expect(svg).To(ContainSubstring(`cx="7.0" cy="7.0"`))
}
