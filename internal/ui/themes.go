package ui

import (
	"os"
	"sort"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/yildizm/dlgen/internal/app"
)

// Palette holds the colors a theme assigns to each role on screen
type Palette struct {
	Name string

	Brand     lipgloss.AdaptiveColor // titles and the active view
	Subtle    lipgloss.AdaptiveColor // section headers
	Muted     lipgloss.AdaptiveColor // hints, disabled controls
	Border    lipgloss.AdaptiveColor
	Selection lipgloss.AdaptiveColor // background of the cursor row
	Banner    lipgloss.AdaptiveColor // template status line

	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Info    lipgloss.AdaptiveColor
}

func color(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var palettes = map[string]Palette{
	"default": {
		Name:      "default",
		Brand:     color("#1E40AF", "#60A5FA"),
		Subtle:    color("#475569", "#CBD5E1"),
		Muted:     color("#6B7280", "#9CA3AF"),
		Border:    color("#D1D5DB", "#374151"),
		Selection: color("#DBEAFE", "#1E3A8A"),
		Banner:    color("#7C3AED", "#C084FC"),
		Success:   color("#047857", "#34D399"),
		Warning:   color("#B45309", "#FBBF24"),
		Error:     color("#B91C1C", "#F87171"),
		Info:      color("#0E7490", "#22D3EE"),
	},
	"high-contrast": {
		Name:      "high-contrast",
		Brand:     color("#000000", "#FFFFFF"),
		Subtle:    color("#000080", "#8080FF"),
		Muted:     color("#555555", "#BBBBBB"),
		Border:    color("#000000", "#FFFFFF"),
		Selection: color("#FFFF00", "#444444"),
		Banner:    color("#800080", "#FF80FF"),
		Success:   color("#006600", "#00FF00"),
		Warning:   color("#994C00", "#FFAA00"),
		Error:     color("#CC0000", "#FF4444"),
		Info:      color("#0050A0", "#55AAFF"),
	},
	"minimal": {
		Name:      "minimal",
		Brand:     color("#2D3748", "#E2E8F0"),
		Subtle:    color("#4A5568", "#CBD5E0"),
		Muted:     color("#A0AEC0", "#718096"),
		Border:    color("#E2E8F0", "#2D3748"),
		Selection: color("#EDF2F7", "#2D3748"),
		Banner:    color("#4A5568", "#CBD5E0"),
		Success:   color("#2F855A", "#68D391"),
		Warning:   color("#C05621", "#F6AD55"),
		Error:     color("#C53030", "#FC8181"),
		Info:      color("#2B6CB0", "#63B3ED"),
	},
}

var (
	current  = palettes["default"]
	colorOff atomic.Bool
)

// SetThemeByName switches the palette; unknown names leave it unchanged
func SetThemeByName(name string) bool {
	p, ok := palettes[name]
	if ok {
		current = p
	}
	return ok
}

// GetAvailableThemes returns the theme names in alphabetical order
func GetAvailableThemes() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DisableColor turns styling off for the rest of the process
func DisableColor() {
	colorOff.Store(true)
	lipgloss.SetColorProfile(termenv.Ascii)
}

// IsColorDisabled reports whether --no-color or NO_COLOR is in effect
func IsColorDisabled() bool {
	return colorOff.Load() || os.Getenv("NO_COLOR") != ""
}

// Styles are the lipgloss styles the screens render with
type Styles struct {
	Palette Palette

	Title     lipgloss.Style
	Header    lipgloss.Style
	Subheader lipgloss.Style
	Muted     lipgloss.Style
	Banner    lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	Selected     lipgloss.Style
	ListSelected lipgloss.Style
	Box          lipgloss.Style
}

// GetStyles builds styles from the active palette
func GetStyles() *Styles {
	p := current
	bold := lipgloss.NewStyle().Bold(true)

	return &Styles{
		Palette:   p,
		Title:     bold.Foreground(p.Brand).Padding(0, 1),
		Header:    bold.Foreground(p.Brand),
		Subheader: bold.Foreground(p.Subtle),
		Muted:     lipgloss.NewStyle().Foreground(p.Muted),
		Banner:    bold.Foreground(p.Banner),

		Success: bold.Foreground(p.Success),
		Warning: bold.Foreground(p.Warning),
		Error:   bold.Foreground(p.Error),
		Info:    lipgloss.NewStyle().Foreground(p.Info),

		Selected:     bold.Background(p.Selection).Foreground(p.Brand),
		ListSelected: bold.Background(p.Selection).Foreground(p.Brand).Padding(0, 2),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(1, 2),
	}
}

// Notice returns the style of a notice banner
func (s *Styles) Notice(kind app.NoticeKind) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch kind {
	case app.NoticeSuccess:
		return base.Foreground(s.Palette.Success)
	case app.NoticeError:
		return base.Foreground(s.Palette.Error)
	default:
		return base.Foreground(s.Palette.Info)
	}
}
