package ui

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"github.com/muurk/ptzlink/internal/server"
	"github.com/muurk/ptzlink/internal/variables"
)

// ReconnectDelay is how long the live view waits before redialing
const ReconnectDelay = 2 * time.Second

// Stream states shown in the footer
const (
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateDisconnected = "disconnected"
)

type (
	connectedMsg struct{ conn *websocket.Conn }
	reconnectMsg struct{}

	// conn is nil when a dial failed
	disconnectedMsg struct {
		conn *websocket.Conn
		err  error
	}
	streamMsg struct {
		conn *websocket.Conn
		msg  server.Message
	}
)

// StreamURL turns a server base URL ("http://host:8080") into its
// websocket stream URL ("ws://host:8080/api/ws")
func StreamURL(base string) (string, error) {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL %q: unsupported scheme %q", base, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", base)
	}
	u.Path = "/api/ws"
	u.RawQuery = ""
	return u.String(), nil
}

type watchKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Reconnect key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reconnect, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Reconnect, k.Help, k.Quit},
	}
}

// WatchModel is the live variable table fed by a server's websocket stream
type WatchModel struct {
	ctx    context.Context
	url    string
	dialer *websocket.Dialer

	conn   *websocket.Conn
	state  string
	err    error
	defs   []variables.Definition
	values map[string]string
	last   time.Time

	table  table.Model
	help   help.Model
	keys   watchKeyMap
	width  int
	height int
}

// NewWatchModel creates a live view of the stream at streamURL
func NewWatchModel(ctx context.Context, streamURL string) WatchModel {
	t := table.New(
		table.WithColumns(watchColumns(MinTerminalWidth)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(MutedColor).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(TextColor).
		Background(PrimaryColor)
	t.SetStyles(styles)

	return WatchModel{
		ctx:    ctx,
		url:    streamURL,
		dialer: websocket.DefaultDialer,
		state:  StateConnecting,
		values: make(map[string]string),
		table:  t,
		help:   help.New(),
		keys: watchKeyMap{
			Up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "move up"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "move down"),
			),
			Reconnect: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "reconnect"),
			),
			Help: key.NewBinding(
				key.WithKeys("?"),
				key.WithHelp("?", "help"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
		width: MinTerminalWidth,
	}
}

func watchColumns(width int) []table.Column {
	idWidth, valueWidth := 22, 20
	nameWidth := width - idWidth - valueWidth - 8
	if nameWidth < 16 {
		nameWidth = 16
	}
	return []table.Column{
		{Title: "ID", Width: idWidth},
		{Title: "Name", Width: nameWidth},
		{Title: "Value", Width: valueWidth},
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return m.dial()
}

func (m WatchModel) dial() tea.Cmd {
	ctx, dialer, u := m.ctx, m.dialer, m.url
	return func() tea.Msg {
		conn, _, err := dialer.DialContext(ctx, u, nil)
		if err != nil {
			return disconnectedMsg{err: err}
		}
		return connectedMsg{conn: conn}
	}
}

func readNext(conn *websocket.Conn) tea.Cmd {
	return func() tea.Msg {
		var msg server.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return disconnectedMsg{conn: conn, err: err}
		}
		return streamMsg{conn: conn, msg: msg}
	}
}

func scheduleReconnect() tea.Cmd {
	return tea.Tick(ReconnectDelay, func(time.Time) tea.Msg { return reconnectMsg{} })
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.closeConn()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Reconnect):
			m.closeConn()
			m.state = StateConnecting
			return m, m.dial()
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetColumns(watchColumns(msg.Width))
		if h := msg.Height - 8; h > 3 {
			m.table.SetHeight(h)
		}
		m.help.Width = msg.Width
		return m, nil

	case connectedMsg:
		if m.conn != nil {
			// a second dial raced the first
			_ = msg.conn.Close()
			return m, nil
		}
		m.conn = msg.conn
		m.state = StateConnected
		m.err = nil
		return m, readNext(msg.conn)

	case disconnectedMsg:
		if m.ctx.Err() != nil {
			return m, tea.Quit
		}
		if msg.conn != m.conn {
			// reader of a connection already replaced
			return m, nil
		}
		m.closeConn()
		m.state = StateDisconnected
		m.err = msg.err
		return m, scheduleReconnect()

	case reconnectMsg:
		if m.conn != nil {
			return m, nil
		}
		m.state = StateConnecting
		return m, m.dial()

	case streamMsg:
		if msg.conn != m.conn {
			return m, nil
		}
		m.apply(msg.msg)
		return m, readNext(m.conn)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// apply folds one stream message into the table. A definitions message
// starts a new session, so it also clears the values.
func (m *WatchModel) apply(msg server.Message) {
	switch msg.Type {
	case server.MessageDefinitions:
		m.defs = append([]variables.Definition(nil), msg.Definitions...)
		m.values = make(map[string]string)
	case server.MessageValues:
		for id, v := range msg.Values {
			m.values[id] = v
		}
	default:
		return
	}
	m.last = msg.At

	rows := make([]table.Row, 0, len(m.defs))
	for _, def := range m.defs {
		value, ok := m.values[def.ID]
		if !ok {
			value = "-"
		}
		rows = append(rows, table.Row{def.ID, def.Name, value})
	}
	m.table.SetRows(rows)
}

func (m *WatchModel) closeConn() {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(HeaderTitleStyle.Render("PTZLINK LIVE"))
	b.WriteString(HeaderCommandStyle.Render(m.url))
	b.WriteString("\n\n")

	if len(m.defs) == 0 {
		b.WriteString(FooterStyle.Render("  waiting for variable definitions..."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}

	status := StateStyle(m.state).Render(m.state)
	if !m.last.IsZero() {
		status += FooterStyle.Render("last update " + m.last.Local().Format("15:04:05"))
	}
	if m.err != nil && m.state != StateConnected {
		status += FooterStyle.Render(m.err.Error())
	}
	b.WriteString("\n ")
	b.WriteString(status)
	b.WriteString("\n")
	b.WriteString(FooterStyle.Render(m.help.View(m.keys)))
	b.WriteString("\n")
	return b.String()
}
