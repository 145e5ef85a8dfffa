package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders the progress of a generation run
type ProgressBar struct {
	Width     int
	Percent   float64
	Message   string
	Failed    bool
	StartTime time.Time
	ShowETA   bool
}

// NewProgressBar creates a new progress bar
func NewProgressBar(width int) *ProgressBar {
	return &ProgressBar{
		Width:     width,
		StartTime: time.Now(),
		ShowETA:   true,
	}
}

// SetProgress updates the percentage and the status message
func (p *ProgressBar) SetProgress(percent float64, message string) {
	p.Percent = percent
	p.Message = message
}

// Render renders the progress bar
func (p *ProgressBar) Render() string {
	// Define styles locally to avoid import cycle
	fill := lipgloss.AdaptiveColor{Light: "#059669", Dark: "#10B981"}
	if p.Failed {
		fill = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"}
	}
	progressStyle := lipgloss.NewStyle().Foreground(fill).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

	ratio := p.Percent / 100
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	width := p.Width
	if width < 10 {
		width = 10
	}
	filledWidth := int(float64(width) * ratio)
	bar := progressStyle.Render(strings.Repeat("█", filledWidth)) +
		mutedStyle.Render(strings.Repeat("░", width-filledWidth))

	status := fmt.Sprintf("%.0f%%", ratio*100)
	if eta := p.eta(ratio); eta != "" {
		status += " ETA: " + eta
	}

	result := fmt.Sprintf("[%s] %s", bar, status)
	if p.Message != "" {
		result = p.Message + "\n" + result
	}
	return result
}

func (p *ProgressBar) eta(ratio float64) string {
	if !p.ShowETA || p.Failed || ratio <= 0 || ratio >= 1 {
		return ""
	}
	elapsed := time.Since(p.StartTime)
	remaining := time.Duration(float64(elapsed)/ratio) - elapsed
	if remaining <= 0 {
		return ""
	}
	return formatDuration(remaining)
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is shown while a request is outstanding
type Spinner struct {
	Frame int
	Label string
}

// NewSpinner creates a new spinner
func NewSpinner() *Spinner {
	return &Spinner{}
}

// SetLabel sets the spinner label
func (s *Spinner) SetLabel(label string) {
	s.Label = label
}

// Tick advances the spinner animation
func (s *Spinner) Tick() {
	s.Frame = (s.Frame + 1) % len(spinnerFrames)
}

// Render renders the spinner
func (s *Spinner) Render() string {
	progressStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	spinner := progressStyle.Render(spinnerFrames[s.Frame])
	if s.Label != "" {
		return fmt.Sprintf("%s %s", spinner, s.Label)
	}
	return spinner
}
