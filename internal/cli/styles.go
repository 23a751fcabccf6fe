package cli

import "github.com/charmbracelet/lipgloss"

// Styles are the text styles used for human-readable output. Colors adapt
// to light and dark terminals.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Ref     lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#D29922"}),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"}),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6E7781", Dark: "#8B949E"}),
		Ref:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0550AE", Dark: "#58A6FF"}),
	}
}

// PlainStyles renders everything unstyled.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{Header: plain, Success: plain, Warning: plain, Error: plain, Muted: plain, Ref: plain}
}

// Outcome styles a per-node outcome label.
func (s Styles) Outcome(outcome string) string {
	switch outcome {
	case "ok", "adopted":
		return s.Success.Render(outcome)
	case "failed", "conflict":
		return s.Error.Render(outcome)
	case "ambiguous", "skipped":
		return s.Warning.Render(outcome)
	default:
		return s.Muted.Render(outcome)
	}
}
