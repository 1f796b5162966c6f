package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ptzlink/internal/variables"
)

// Section is a titled group of variables in a report
type Section struct {
	Title       string
	Definitions []variables.Definition
	Values      map[string]string
	// Note is shown when the section has no definitions
	Note string
}

// Report renders one-shot camera readings
type Report struct {
	Sections []Section
	Width    int
}

// NewReport creates a report sized to the terminal
func NewReport(sections ...Section) *Report {
	return &Report{Sections: sections, Width: GetTerminalWidth()}
}

// Render returns the styled report as a string
func (r *Report) Render() string {
	width := clampWidth(r.Width)

	blocks := make([]string, 0, len(r.Sections))
	for _, s := range r.Sections {
		blocks = append(blocks, renderSection(s))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(width-2).
		Padding(0, 1).
		Render(strings.Join(blocks, "\n\n"))
}

// String implements fmt.Stringer
func (r *Report) String() string {
	return r.Render()
}

func renderSection(s Section) string {
	lines := []string{SectionTitleStyle.Render(s.Title)}
	if len(s.Definitions) == 0 {
		note := s.Note
		if note == "" {
			note = "no values"
		}
		return strings.Join(append(lines, TroubleshootingItemStyle.Render("  "+note)), "\n")
	}

	for _, def := range s.Definitions {
		value, ok := s.Values[def.ID]
		if !ok {
			value = "-"
		}
		lines = append(lines, ResultKeyStyle.Render("  "+def.Name)+" "+ResultValueStyle.Render(value))
	}
	return strings.Join(lines, "\n")
}
