package viz

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/magsim/internal/control"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/magnet"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	trailLength     = 60
	pushAccel       = 8.0
)

type TickMsg time.Time

// Builder produces a fresh simulator; the live view calls it again on reset.
type Builder func() (*dynamo.Simulator, error)

type trailPoint struct{ x, z float64 }

// Model is the live top-down view of a running world.
type Model struct {
	build Builder
	name  string
	sim   *dynamo.Simulator

	manual *control.Manual
	gun    *control.Gun

	dt           float64
	stepsPerTick int
	canvas       *Canvas
	center       mgl64.Vec3
	zoom         float64 // world units per dot
	trails       map[string][]trailPoint

	bodies   []string
	selected int

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	paramIdx      int

	energy  []float64
	peak    []float64
	running bool
	help    bool
	status  string
	err     error
}

// NewModel builds the first simulator and frames the camera around it.
func NewModel(name string, build Builder, dt float64) (Model, error) {
	m := Model{
		build:        build,
		name:         name,
		dt:           dt,
		stepsPerTick: 1,
		canvas:       NewCanvas(width, height),
		running:      true,
	}
	if dt <= 0 {
		m.dt = dynamo.DefaultConfig().Dt
	}
	// run at roughly real time with a 60 Hz redraw
	m.stepsPerTick = max(1, int(math.Round(1.0/60/m.dt)))
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	m.frame()

	m.initialParams = make(map[string]float64, len(m.params))
	for k, v := range m.params {
		m.initialParams[k] = v
	}
	return m, nil
}

func (m *Model) reset() error {
	sim, err := m.build()
	if err != nil {
		return err
	}
	m.sim = sim
	m.manual = control.NewManual()
	sim.AddController(m.manual)
	m.gun = nil
	for _, c := range sim.Controllers() {
		if g, ok := c.(*control.Gun); ok {
			m.gun = g
		}
	}

	m.bodies = m.bodies[:0]
	w := sim.World()
	for _, id := range w.BodyIDs() {
		b, _ := w.Body(id)
		m.bodies = append(m.bodies, b.Name)
	}
	m.selected = min(m.selected, max(len(m.bodies)-1, 0))
	m.trails = make(map[string][]trailPoint, len(m.bodies))
	m.energy = m.energy[:0]
	m.peak = m.peak[:0]

	var errs []error
	for _, k := range slices.Sorted(maps.Keys(m.initialParams)) {
		if err := sim.Solver().SetParam(k, m.initialParams[k]); err != nil {
			errs = append(errs, err)
		}
	}
	m.err = errors.Join(errs...)
	m.params = sim.Solver().GetParams()
	m.paramKeys = m.paramKeys[:0]
	for k := range m.params {
		m.paramKeys = append(m.paramKeys, k)
	}
	sort.Strings(m.paramKeys)
	m.paramIdx = min(m.paramIdx, max(len(m.paramKeys)-1, 0))
	return nil
}

// frame centres the view on the bodies and picks a zoom that fits them.
func (m *Model) frame() {
	w := m.sim.World()
	lo := mgl64.Vec3{math.Inf(1), 0, math.Inf(1)}
	hi := mgl64.Vec3{math.Inf(-1), 0, math.Inf(-1)}
	for _, id := range w.BodyIDs() {
		b, _ := w.Body(id)
		lo[0], lo[2] = math.Min(lo[0], b.Position[0]), math.Min(lo[2], b.Position[2])
		hi[0], hi[2] = math.Max(hi[0], b.Position[0]), math.Max(hi[2], b.Position[2])
	}
	if m.gun != nil {
		lo[0], lo[2] = math.Min(lo[0], m.gun.Origin[0]), math.Min(lo[2], m.gun.Origin[2])
		hi[0], hi[2] = math.Max(hi[0], m.gun.Origin[0]), math.Max(hi[2], m.gun.Origin[2])
	}
	if math.IsInf(lo[0], 0) {
		m.center, m.zoom = mgl64.Vec3{}, 0.1
		return
	}
	m.center = lo.Add(hi).Mul(0.5)
	cw, ch := m.canvas.Dots()
	span := math.Max((hi[0]-lo[0])/float64(cw), (hi[2]-lo[2])/float64(ch))
	m.zoom = math.Max(span*1.6, 0.02)
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
			m.frame()
		case ".":
			m.advance()
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "n":
			if len(m.bodies) > 0 {
				m.selected = (m.selected + 1) % len(m.bodies)
			}
		case "w":
			m.push(mgl64.Vec3{0, 0, 1})
		case "s":
			m.push(mgl64.Vec3{0, 0, -1})
		case "a":
			m.push(mgl64.Vec3{-1, 0, 0})
		case "d":
			m.push(mgl64.Vec3{1, 0, 0})
		case "f":
			if m.gun != nil {
				m.gun.Firing = !m.gun.Firing
			}
		case "g":
			m.toggleGunMode()
		case "u":
			if m.gun != nil {
				m.gun.Unlock()
				m.status = "red mode unlocked"
			}
		case "+", "=":
			m.zoom = math.Max(m.zoom/1.2, 1e-3)
		case "-", "_":
			m.zoom *= 1.2
		case "c":
			m.frame()
		case "t":
			NextTheme()
		case "?":
			m.help = !m.help
		}
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// advance steps the simulator through one redraw worth of ticks.
func (m *Model) advance() {
	if m.err != nil {
		return
	}
	var tick *dynamo.Tick
	for i := 0; i < m.stepsPerTick; i++ {
		tick = m.sim.Step(m.dt)
		if frame := m.sim.Frame(); !finite(frame) {
			m.err = fmt.Errorf("%w at t=%.2fs", dynamo.ErrInvalidState, tick.T)
			m.running = false
			break
		}
	}
	m.manual.Push(m.manual.Body, mgl64.Vec3{})
	if tick == nil {
		return
	}

	m.energy = appendCapped(m.energy, m.sim.Engine().KineticEnergy())
	m.peak = appendCapped(m.peak, tick.Report.PeakForce)

	w := m.sim.World()
	for _, id := range w.BodyIDs() {
		b, _ := w.Body(id)
		tr := append(m.trails[b.Name], trailPoint{b.Position[0], b.Position[2]})
		if len(tr) > trailLength {
			tr = tr[1:]
		}
		m.trails[b.Name] = tr
	}
}

func finite(f dynamo.Frame) bool {
	for _, b := range f.Bodies {
		for _, v := range b.Position {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

// push shoves the selected body along dir for the next redraw.
func (m *Model) push(dir mgl64.Vec3) {
	if len(m.bodies) == 0 {
		return
	}
	id, ok := m.sim.World().FindBody(m.bodies[m.selected])
	if !ok {
		return
	}
	m.manual.Push(id, dir.Mul(pushAccel))
}

func (m *Model) toggleGunMode() {
	if m.gun == nil {
		return
	}
	next := control.GunRed
	if m.gun.Mode() == control.GunRed {
		next = control.GunBlue
	}
	if !m.gun.SetMode(next) {
		m.status = "gun is locked to blue mode (u unlocks)"
		return
	}
	m.status = "gun mode " + next.String()
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.paramIdx = (m.paramIdx + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.paramIdx]
	val := m.params[key] * factor
	if val == 0 && factor > 1 {
		val = 0.01
	}
	if err := m.sim.Solver().SetParam(key, val); err != nil {
		m.status = err.Error()
		return
	}
	m.params[key] = val
	m.status = ""
}

// project maps world x/z onto canvas dots; +z is up the screen.
func (m *Model) project(x, z float64) (int, int) {
	cw, ch := m.canvas.Dots()
	px := cw/2 + int(math.Round((x-m.center[0])/m.zoom))
	py := ch/2 - int(math.Round((z-m.center[2])/m.zoom))
	return px, py
}

func (m *Model) draw() {
	m.canvas.Clear()
	w := m.sim.World()

	for _, tr := range m.trails {
		for _, p := range tr {
			m.canvas.Set(m.project(p.x, p.z))
		}
	}

	for _, j := range m.sim.Engine().Joints() {
		hb, ok1 := w.Body(j.Host)
		ob, ok2 := w.Body(j.Other)
		if !ok1 || !ok2 {
			continue
		}
		x0, y0 := m.project(hb.Position[0], hb.Position[2])
		x1, y1 := m.project(ob.Position[0], ob.Position[2])
		m.canvas.DrawLine(x0, y0, x1, y1)
	}

	for _, id := range w.BodyIDs() {
		b, _ := w.Body(id)
		px, py := m.project(b.Position[0], b.Position[2])
		r := 1
		if len(m.bodies) > 0 && b.Name == m.bodies[m.selected] {
			r = 2
		}
		m.canvas.Disc(px, py, r)
		for _, pid := range b.Poles() {
			if pos, ok := w.PolePosition(pid); ok {
				m.canvas.Set(m.project(pos[0], pos[2]))
			}
		}
	}

	if m.gun != nil && m.gun.Aim.LenSqr() > 0 {
		end := m.gun.Origin.Add(m.gun.Aim.Normalize().Mul(m.gun.MaxDistance))
		x0, y0 := m.project(m.gun.Origin[0], m.gun.Origin[2])
		x1, y1 := m.project(end[0], end[2])
		if m.gun.FiringAt(m.sim.Time()) {
			m.canvas.DrawLine(x0, y0, x1, y1)
		} else {
			m.canvas.DashedLine(x0, y0, x1, y1, 3)
		}
		m.canvas.Disc(x0, y0, 1)
	}
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(statusError.Render("HALTED") + "\n" + m.err.Error() + "\n\n")
	case m.running:
		s.WriteString(statusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(statusPaused.Render("PAUSED") + "\n\n")
	}

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	if len(m.peak) > 0 {
		s.WriteString(labelStyle.Render("Peak F") + Sparkline(m.peak, 28) + "\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.sim.Time())) + "\n")
	s.WriteString(labelStyle.Render("Bodies") + valueStyle.Render(fmt.Sprintf("%d", len(m.bodies))) + "\n")
	s.WriteString(labelStyle.Render("Joints") + jointStyle.Render(fmt.Sprintf("%d", m.sim.Solver().NumJoints())) + "\n")
	if len(m.bodies) > 0 {
		s.WriteString(labelStyle.Render("Selected") + m.bodyLine(m.bodies[m.selected]) + "\n")
	}
	if m.gun != nil {
		s.WriteString(labelStyle.Render("Gun") + valueStyle.Render(m.gunLine()) + "\n")
	}

	s.WriteString("\nSOLVER\n")
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-10s %s %.3g", k, paramBar(m.params[k], m.initialParams[k], 10), m.params[k])
		if i == m.paramIdx {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.UnsetWidth().Render(line) + "\n")
		}
	}
	if m.status != "" {
		s.WriteString("\n" + activeParamStyle.Render(m.status) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause R:Reset Q:Quit ?:Help\nTab ↑↓:Tune  N:Select WASD:Push"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.help {
		return helpText + "\n" + mainView
	}
	return mainView
}

func (m *Model) bodyLine(name string) string {
	w := m.sim.World()
	id, ok := w.FindBody(name)
	if !ok {
		return name
	}
	b, _ := w.Body(id)
	var marks strings.Builder
	for _, pid := range b.Poles() {
		if p, ok := w.Pole(pid); ok {
			marks.WriteString(polarityMark(p.Polarity))
		}
	}
	return valueStyle.Render(fmt.Sprintf("%s |v|=%.2f ", name, b.Velocity.Len())) + marks.String()
}

func (m *Model) gunLine() string {
	state := "idle"
	if m.gun.FiringAt(m.sim.Time()) {
		state = "firing"
	}
	if id, ok := m.gun.Target(); ok {
		if b, ok := m.sim.World().Body(id); ok {
			state = "holding " + b.Name
		}
	}
	lock := ""
	if !m.gun.Unlocked() {
		lock = " (blue only)"
	}
	return fmt.Sprintf("%s %s%s", m.gun.Mode(), state, lock)
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  .        - Single step              ║
║  R        - Rebuild the scene        ║
║  Tab      - Cycle solver parameters  ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  N        - Select next body         ║
║  W/A/S/D  - Push selected body       ║
║  F        - Toggle gun trigger       ║
║  G        - Switch gun mode          ║
║  U        - Unlock red mode          ║
║  +/-      - Zoom, C recentres        ║
║  T        - Cycle themes             ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// Run opens the live view full screen.
func Run(name string, build Builder, dt float64) error {
	m, err := NewModel(name, build, dt)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
