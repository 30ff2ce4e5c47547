package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	canvasStyle      lipgloss.Style
	statsStyle       lipgloss.Style
	headerStyle      lipgloss.Style
	labelStyle       lipgloss.Style
	valueStyle       lipgloss.Style
	activeParamStyle lipgloss.Style
	graphStyle       lipgloss.Style
	helpStyle        lipgloss.Style
	northStyle       lipgloss.Style
	southStyle       lipgloss.Style
	jointStyle       lipgloss.Style

	statusRunning = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	statusPaused  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	statusError   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
)

func init() { applyTheme(CurrentTheme) }

func applyTheme(t Theme) {
	canvasStyle = lipgloss.NewStyle().Padding(1, 2).Foreground(t.Primary)
	statsStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(t.Muted).Padding(1, 2).Width(46)
	headerStyle = lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Foreground(t.Muted).Width(12)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeParamStyle = lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	graphStyle = lipgloss.NewStyle().Foreground(t.Primary).Padding(1, 0)
	helpStyle = lipgloss.NewStyle().Foreground(t.Muted).MarginTop(1)
	northStyle = lipgloss.NewStyle().Foreground(t.North).Bold(true)
	southStyle = lipgloss.NewStyle().Foreground(t.South).Bold(true)
	jointStyle = lipgloss.NewStyle().Foreground(t.Joint)
}

// polarityMark renders a coloured N/S/· for a pole polarity.
func polarityMark(polarity float64) string {
	switch {
	case polarity > 0:
		return northStyle.Render("N")
	case polarity < 0:
		return southStyle.Render("S")
	}
	return labelStyle.UnsetWidth().Render("·")
}

// Sparkline renders values scaled between their own min and max.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	chars := []rune("▁▂▃▄▅▆▇█")

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	// keep the newest samples
	if len(values) > width {
		values = values[len(values)-width:]
	}
	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / span * float64(len(chars)-1))
		idx = min(max(idx, 0), len(chars)-1)
		b.WriteRune(chars[idx])
	}
	return b.String()
}

// paramBar draws a [====----] gauge of val relative to twice its initial value.
func paramBar(val, initial float64, width int) string {
	if initial == 0 {
		initial = 1e-6
	}
	ratio := min(max(val/(2*initial), 0), 1)
	filled := int(ratio * float64(width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}
