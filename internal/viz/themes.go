package viz

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Theme colours the live view. North and South mark pole polarity.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Muted   lipgloss.Color
	North   lipgloss.Color
	South   lipgloss.Color
	Joint   lipgloss.Color
}

var (
	ThemeWorkshop = Theme{
		Name:    "workshop",
		Primary: lipgloss.Color("#00ffff"),
		Accent:  lipgloss.Color("#ff00ff"),
		Muted:   lipgloss.Color("#666688"),
		North:   lipgloss.Color("#ff4444"),
		South:   lipgloss.Color("#4488ff"),
		Joint:   lipgloss.Color("#ffcc00"),
	}

	ThemeRetro = Theme{
		Name:    "retro",
		Primary: lipgloss.Color("#00ff00"),
		Accent:  lipgloss.Color("#88ff88"),
		Muted:   lipgloss.Color("#005500"),
		North:   lipgloss.Color("#ffff00"),
		South:   lipgloss.Color("#00cc00"),
		Joint:   lipgloss.Color("#ffffff"),
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Muted:   lipgloss.Color("#888888"),
		North:   lipgloss.Color("#ffffff"),
		South:   lipgloss.Color("#888888"),
		Joint:   lipgloss.Color("#0088ff"),
	}

	themes = map[string]Theme{
		ThemeWorkshop.Name: ThemeWorkshop,
		ThemeRetro.Name:    ThemeRetro,
		ThemeMinimal.Name:  ThemeMinimal,
	}

	CurrentTheme = ThemeWorkshop
)

// GetTheme falls back to the workshop theme for unknown names.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return ThemeWorkshop
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
	applyTheme(CurrentTheme)
}

func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NextTheme cycles to the theme after the current one.
func NextTheme() Theme {
	names := ThemeNames()
	for i, n := range names {
		if n == CurrentTheme.Name {
			SetTheme(names[(i+1)%len(names)])
			break
		}
	}
	return CurrentTheme
}
