package viz

import (
	"strings"
	"testing"

	. "github.com/onsi/gomega"
)

func TestCanvas_SetGetUnset(t *testing.T) {
	g := NewWithT(t)
	c := NewCanvas(4, 2)

	w, h := c.Dots()
	g.Expect(w).To(Equal(8))
	g.Expect(h).To(Equal(8))

	c.Set(3, 5)
	g.Expect(c.Get(3, 5)).To(BeTrue())
	g.Expect(c.Get(2, 5)).To(BeFalse())
	g.Expect(c.Grid[1][1]).To(Equal(rune(0x2800 | 0x10)))

	c.Unset(3, 5)
	g.Expect(c.Get(3, 5)).To(BeFalse())
	g.Expect(c.Grid[1][1]).To(Equal(rune(0x2800)))
}

func TestCanvas_OutOfRangeIgnored(t *testing.T) {
	c := NewCanvas(2, 2)
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 8}} {
		c.Set(p[0], p[1])
		if c.Get(p[0], p[1]) {
			t.Errorf("dot %v should be out of range", p)
		}
	}
	if c.String() != NewCanvas(2, 2).String() {
		t.Error("out of range writes changed the canvas")
	}
}

func TestCanvas_DrawLine(t *testing.T) {
	g := NewWithT(t)
	c := NewCanvas(10, 5)
	c.DrawLine(0, 0, 19, 19)
	for i := 0; i < 20; i++ {
		g.Expect(c.Get(i, i)).To(BeTrue(), "diagonal dot %d", i)
	}
	g.Expect(c.Get(5, 0)).To(BeFalse())
}

func TestCanvas_DashedLineSkipsRuns(t *testing.T) {
	c := NewCanvas(10, 1)
	c.DashedLine(0, 0, 11, 0, 3)
	want := []bool{true, true, true, false, false, false, true, true, true, false, false, false}
	for x, lit := range want {
		if c.Get(x, 0) != lit {
			t.Errorf("dot %d lit=%v, want %v", x, c.Get(x, 0), lit)
		}
	}
}

func TestCanvas_ClearAndString(t *testing.T) {
	g := NewWithT(t)
	c := NewCanvas(3, 2)
	c.Disc(2, 2, 1)
	g.Expect(c.Get(2, 2)).To(BeTrue())
	g.Expect(c.Get(3, 2)).To(BeTrue())

	c.Clear()
	g.Expect(c.Get(2, 2)).To(BeFalse())

	lines := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	g.Expect(lines).To(HaveLen(2))
	g.Expect([]rune(lines[0])).To(HaveLen(3))
}

func TestSparkline(t *testing.T) {
	g := NewWithT(t)
	g.Expect(Sparkline(nil, 4)).To(Equal("────"))
	g.Expect(Sparkline([]float64{0, 1}, 4)).To(Equal("▁█"))
	g.Expect([]rune(Sparkline([]float64{1, 2, 3, 4, 5, 6}, 3))).To(HaveLen(3))
}

func TestThemes(t *testing.T) {
	g := NewWithT(t)
	defer SetTheme(ThemeWorkshop.Name)

	g.Expect(ThemeNames()).To(Equal([]string{"minimal", "retro", "workshop"}))
	g.Expect(GetTheme("nope").Name).To(Equal("workshop"))

	SetTheme("minimal")
	g.Expect(NextTheme().Name).To(Equal("retro"))
}
