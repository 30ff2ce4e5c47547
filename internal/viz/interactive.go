package viz

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/experiment"
)

var sceneInfo = map[string]string{
	"pair":  "two blocks, opposite poles",
	"repel": "like poles pushing apart",
	"chain": "bars snapping end to end",
	"typed": "integer pole types",
	"gun":   "magnet gun pulls targets",
	"swarm": "random field of magnets",
}

type entry struct{ scene, preset string }

func (e entry) String() string { return e.scene + "." + e.preset }

const (
	stateMenu = iota
	stateSim
)

// picker lists every preset and hands the chosen one to the live view.
type picker struct {
	state   int
	cursor  int
	entries []entry
	reg     *experiment.Registry
	live    Model
	err     error
}

func newPicker(reg *experiment.Registry) picker {
	var entries []entry
	scenes := make([]string, 0, len(config.Presets))
	for s := range config.Presets {
		scenes = append(scenes, s)
	}
	sort.Strings(scenes)
	for _, s := range scenes {
		for _, p := range config.ListPresets(s) {
			entries = append(entries, entry{s, p})
		}
	}
	return picker{entries: entries, reg: reg}
}

func (m picker) Init() tea.Cmd { return nil }

func (m picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateSim {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.state = stateMenu
			return m, nil
		}
		next, cmd := m.live.Update(msg)
		m.live = next.(Model)
		return m, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter", " ":
		return m.start()
	}
	return m, nil
}

func (m picker) start() (tea.Model, tea.Cmd) {
	e := m.entries[m.cursor]
	cfg := config.GetPreset(e.scene, e.preset)
	live, err := NewModel(e.String(), func() (*dynamo.Simulator, error) {
		return experiment.Build(cfg, m.reg, nil, nil)
	}, cfg.Dt)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.live = live
	m.state = stateSim
	return m, live.Init()
}

func (m picker) View() string {
	if m.state == stateSim {
		return m.live.View()
	}
	title := lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true)
	sub := lipgloss.NewStyle().Foreground(CurrentTheme.Muted)
	cur := lipgloss.NewStyle().Foreground(CurrentTheme.Accent).Bold(true)

	var b strings.Builder
	b.WriteString("\n\n    " + title.Render("MAGSIM") + "\n    " + sub.Render("pairwise magnet playground") + "\n    " + sub.Render("─────────────────────────") + "\n\n")
	for i, e := range m.entries {
		line := fmt.Sprintf("%-16s  %s", e, sceneInfo[e.scene])
		if i == m.cursor {
			b.WriteString("    " + cur.Render("▸ "+line) + "\n")
		} else {
			b.WriteString("      " + sub.Render(line) + "\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + statusError.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + sub.Render("j/k navigate  enter start  esc back  q quit") + "\n")
	return b.String()
}

// RunInteractive opens the preset picker.
func RunInteractive() error {
	_, err := tea.NewProgram(newPicker(experiment.NewRegistry()), tea.WithAltScreen()).Run()
	return err
}
