package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ptzlink/internal/discovery"
)

// ScanFunc performs one discovery pass
type ScanFunc func(ctx context.Context) ([]*discovery.Device, error)

type scanCompleteMsg struct {
	devices []*discovery.Device
	err     error
}

// ScanModel shows a spinner while a scan runs and quits when it completes.
// Read Devices and Err from the final model.
type ScanModel struct {
	ctx     context.Context
	scan    ScanFunc
	timeout time.Duration

	spinner spinner.Model
	started time.Time
	done    bool

	Devices []*discovery.Device
	Err     error
}

// NewScanModel creates a scan view around scan
func NewScanModel(ctx context.Context, timeout time.Duration, scan ScanFunc) ScanModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return ScanModel{
		ctx:     ctx,
		scan:    scan,
		timeout: timeout,
		spinner: s,
		started: time.Now(),
	}
}

// Init implements tea.Model
func (m ScanModel) Init() tea.Cmd {
	return tea.Batch(m.runScan, m.spinner.Tick)
}

func (m ScanModel) runScan() tea.Msg {
	devices, err := m.scan(m.ctx)
	return scanCompleteMsg{devices: devices, err: err}
}

// Update implements tea.Model
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.done = true
			m.Err = context.Canceled
			return m, tea.Quit
		}

	case scanCompleteMsg:
		m.done = true
		m.Devices = msg.devices
		m.Err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m ScanModel) View() string {
	if m.done {
		return ""
	}
	elapsed := time.Since(m.started).Truncate(time.Second)
	return fmt.Sprintf("  %s Scanning for cameras (%s / %s)\n",
		m.spinner.View(), elapsed, m.timeout)
}

// RenderDevices renders discovered cameras as an aligned list
func RenderDevices(devices []*discovery.Device, width int) string {
	width = clampWidth(width)

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		ResultKeyStyle.Render("  NAME"),
		lipgloss.NewStyle().Foreground(MutedColor).Width(24).Render("ADDRESS"),
		lipgloss.NewStyle().Foreground(MutedColor).Width(8).Render("VISCA"),
		lipgloss.NewStyle().Foreground(MutedColor).Render("MODEL"),
	)

	lines := []string{header}
	for _, d := range devices {
		model := d.Model
		if model == "" {
			model = "-"
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			ResultKeyStyle.Foreground(TextColor).Render("  "+d.Name),
			lipgloss.NewStyle().Width(24).Render(d.BaseURL()),
			lipgloss.NewStyle().Width(8).Render(strconv.Itoa(d.ViscaPort)),
			model,
		))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(strings.Join(lines, "\n"))
}
