package analysis

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/gomega"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/magnet"
	"github.com/san-kum/magsim/internal/physics"
)

func TestDominantFrequency(t *testing.T) {
	dt := 0.01
	data := make([]float64, 1000)
	for i := range data {
		data[i] = 3 + math.Sin(2*math.Pi*5*float64(i)*dt)
	}

	f := DominantFrequency(data, dt)
	if math.Abs(f-5) > 0.2 {
		t.Errorf("expected ~5 Hz, got %.3f", f)
	}
}

func TestFFTPadsToPowerOfTwo(t *testing.T) {
	bins := FFT([]float64{1, 2, 3})
	if len(bins) != 4 {
		t.Fatalf("expected 4 bins, got %d", len(bins))
	}
	if real(bins[0]) != 6 {
		t.Errorf("DC bin = %v, want 6", bins[0])
	}
}

func TestPowerSpectrumRemovesMean(t *testing.T) {
	ps := PowerSpectrum([]float64{5, 5, 5, 5})
	for i, v := range ps {
		if v > 1e-12 {
			t.Errorf("bin %d = %v, want 0", i, v)
		}
	}
}

func twoBodyResult() *dynamo.Result {
	frame := func(t, xb, vb float64) dynamo.Frame {
		return dynamo.Frame{T: t, Bodies: []dynamo.BodyState{
			{Name: "a"},
			{Name: "b", Position: mgl64.Vec3{xb, 0, 0}, Velocity: mgl64.Vec3{vb, 0, 0}},
		}}
	}
	return &dynamo.Result{Frames: []dynamo.Frame{frame(0, 1, -1), frame(0.1, 0.9, -1), frame(0.2, 0.8, 0.5)}}
}

func TestSeparationAndClosingSpeed(t *testing.T) {
	g := NewWithT(t)
	r := twoBodyResult()

	sep := Separation(r, "a", "b")
	g.Expect(sep).To(HaveLen(3))
	g.Expect(sep[1]).To(BeNumerically("~", 0.9, 1e-12))

	speed := ClosingSpeed(r, "a", "b")
	g.Expect(speed).To(Equal([]float64{1, 1, -0.5}))

	g.Expect(Separation(r, "a", "ghost")).To(BeEmpty())
}

func TestPhasePortraitToASCII(t *testing.T) {
	p := PhasePortrait(twoBodyResult(), "a", "b")
	if len(p.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(p.Points))
	}
	art := PhasePortraitToASCII(p, 20, 8)
	if strings.Count(art, "\n") != 8 || !strings.Contains(art, "•") {
		t.Errorf("unexpected portrait:\n%s", art)
	}
	if PhasePortraitToASCII(nil, 20, 8) != "" {
		t.Error("nil portrait should render empty")
	}
}

// pair builds two unlike poles without snapping.
func pair(polarityB float64) func() (*dynamo.Simulator, error) {
	return func() (*dynamo.Simulator, error) {
		w := magnet.NewWorld()
		a := magnet.NewBody("a", 1)
		b := magnet.NewBody("b", 1)
		b.Position = mgl64.Vec3{1, 0, 0}
		ida, idb := w.AddBody(a), w.AddBody(b)
		if _, err := w.AddPole(magnet.NewPole(ida, 1, 1)); err != nil {
			return nil, err
		}
		if _, err := w.AddPole(magnet.NewPole(idb, 1, polarityB)); err != nil {
			return nil, err
		}
		p := magnet.DefaultParams()
		p.UseSnap = false
		s, err := magnet.NewSolver(p)
		if err != nil {
			return nil, err
		}
		return dynamo.New(w, s, physics.NewEngine(w, nil)), nil
	}
}

func TestSweepStrength(t *testing.T) {
	g := NewWithT(t)
	cfg := dynamo.Config{Dt: 0.01, Duration: 0.3}
	final := func(r *dynamo.Result) float64 {
		sep := Separation(r, "a", "b")
		return sep[len(sep)-1]
	}

	points, err := Sweep(context.Background(), pair(-1), "k", 1, 5, 3, cfg, final)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(points).To(HaveLen(3))
	g.Expect(points[1].Param).To(Equal(3.0))
	g.Expect(points[2].Value).To(BeNumerically("<", points[0].Value), "stronger attraction closes more")

	g.Expect(SweepToASCII(points, 30, 5, "k")).To(ContainSubstring("k"))

	_, err = Sweep(context.Background(), pair(-1), "power", -1, 1, 2, cfg, final)
	g.Expect(err).To(MatchError(magnet.ErrInvalidParams))
}

func TestLyapunovExponent(t *testing.T) {
	g := NewWithT(t)
	lambda, err := LyapunovExponent(pair(1), "b", 0.01, 0.5, 1e-6)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(math.IsNaN(lambda) || math.IsInf(lambda, 0)).To(BeFalse())

	_, err = LyapunovExponent(pair(1), "ghost", 0.01, 0.5, 1e-6)
	g.Expect(err).To(MatchError(ContainSubstring("unknown body")))

	_, err = LyapunovExponent(pair(1), "b", 0, 0.5, 1e-6)
	g.Expect(err).To(MatchError(dynamo.ErrParameterBounds))
}
