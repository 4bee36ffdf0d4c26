package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/forcegraph/pkg/diagram"
	"github.com/dd0wney/forcegraph/pkg/logging"
	"github.com/dd0wney/forcegraph/pkg/snapshot"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(1)

	statStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginLeft(1)
)

const (
	frameInterval = 16 * time.Millisecond
	headerRows    = 1
	footerRows    = 2
	// One wheel notch; with the default zoom speed this is a 0.1 scale step
	wheelDelta = 100
)

var placements = []string{"random", "circular", "hierarchical"}

// Key bindings
type keyMap struct {
	Pause   key.Binding
	Fit     key.Binding
	Reset   key.Binding
	ZoomIn  key.Binding
	ZoomOut key.Binding
	Arrange key.Binding
	Save    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Fit, k.Reset, k.Arrange, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Arrange, k.Save},
		{k.Fit, k.Reset, k.ZoomIn, k.ZoomOut},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Pause: key.NewBinding(
		key.WithKeys(" ", "p"),
		key.WithHelp("space", "stop/resume"),
	),
	Fit: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "fit view"),
	),
	Reset: key.NewBinding(
		key.WithKeys("0", "r"),
		key.WithHelp("r", "reset view"),
	),
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "zoom out"),
	),
	Arrange: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "rearrange"),
	),
	Save: key.NewBinding(
		key.WithKeys("s", "ctrl+s"),
		key.WithHelp("s", "save snapshot"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type model struct {
	d      *diagram.Diagram
	canvas *Canvas
	keys   keyMap
	help   help.Model
	logger logging.Logger

	width  int
	height int

	graphPath string
	savePath  string
	watcher   *fileWatcher
	placement int

	status    string
	statusErr bool
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func newModel(d *diagram.Diagram, canvas *Canvas, logger logging.Logger) *model {
	return &model{
		d:      d,
		canvas: canvas,
		keys:   keys,
		help:   help.New(),
		logger: logger,
	}
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.wait())
	}
	return tea.Batch(cmds...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.canvas.Resize(msg.Width, msg.Height-headerRows-footerRows)
		m.redraw()
		return m, nil

	case tickMsg:
		if !m.d.Advance() {
			m.redraw()
		}
		return m, tickCmd()

	case fileChangedMsg:
		m.reload(msg.path)
		return m, m.watcher.wait()

	case watchErrorMsg:
		m.setError("watch", msg.err)
		return m, m.watcher.wait()

	case tea.MouseMsg:
		m.mouse(msg)
		return m, nil

	case tea.KeyMsg:
		return m.key(msg)
	}
	return m, nil
}

// redraw renders the current state when no frame is being advanced
func (m *model) redraw() {
	_ = m.canvas.Render(m.d.Scene())
}

func (m *model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Pause):
		if m.d.Running() {
			m.d.Stop()
			m.setStatus("layout stopped")
		} else {
			m.d.Resume()
			m.setStatus("layout resumed")
		}

	case key.Matches(msg, m.keys.Fit):
		m.d.FitView()

	case key.Matches(msg, m.keys.Reset):
		m.d.ResetView()

	case key.Matches(msg, m.keys.ZoomIn, m.keys.ZoomOut):
		cols, rows := m.canvas.Size()
		px, py, _ := m.canvas.ToDevice(cols/2, rows/2)
		delta := float64(wheelDelta)
		if key.Matches(msg, m.keys.ZoomIn) {
			delta = -delta
		}
		m.d.Wheel(px, py, delta)

	case key.Matches(msg, m.keys.Arrange):
		m.placement = (m.placement + 1) % len(placements)
		m.d.Arrange(placements[m.placement])
		m.d.Resume()
		m.setStatus("arranged " + placements[m.placement])

	case key.Matches(msg, m.keys.Save):
		m.save()
	}
	m.redraw()
	return m, nil
}

// mouse translates terminal cells into device pixels for the diagram
func (m *model) mouse(msg tea.MouseMsg) {
	px, py, inside := m.canvas.ToDevice(msg.X, msg.Y-headerRows)
	if !inside {
		if msg.Action == tea.MouseActionRelease || msg.Action == tea.MouseActionMotion {
			m.d.PointerLeave()
		}
		return
	}

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.d.Wheel(px, py, -wheelDelta)
	case msg.Button == tea.MouseButtonWheelDown:
		m.d.Wheel(px, py, wheelDelta)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.d.PointerDown(px, py)
	case msg.Action == tea.MouseActionRelease:
		m.d.PointerUp(px, py)
	case msg.Action == tea.MouseActionMotion:
		m.d.PointerMove(px, py)
	}
	if !m.d.Running() {
		m.redraw()
	}
}

func (m *model) reload(path string) {
	doc, err := snapshot.LoadFile(path)
	if err != nil {
		m.setError("reload", err)
		return
	}
	if _, err := m.d.Load(doc); err != nil {
		m.setError("reload", err)
		return
	}
	m.d.Resume()
	m.setStatus(fmt.Sprintf("reloaded %d nodes", len(doc.Nodes)))
}

func (m *model) save() {
	if m.savePath == "" {
		m.setError("save", fmt.Errorf("no snapshot path; start with -save"))
		return
	}
	if err := snapshot.SaveFile(m.savePath, m.d.Snapshot()); err != nil {
		m.setError("save", err)
		return
	}
	m.setStatus("saved " + m.savePath)
}

func (m *model) setStatus(s string) {
	m.status, m.statusErr = s, false
	m.logger.Info(s)
}

func (m *model) setError(op string, err error) {
	m.status, m.statusErr = op+": "+err.Error(), true
	m.logger.Error(op+" failed", logging.Error(err))
}

func (m *model) View() string {
	var b strings.Builder

	stats := m.d.Stats()
	state := "running"
	if !m.d.Running() {
		state = "stopped"
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("forcegraph"),
		statStyle.Render(fmt.Sprintf("  %s  frame %d  passes %d  Δ %.2f  scale %.1f  nodes %d  edges %d  %s",
			state, stats.Frame, stats.Passes, stats.MaxDelta, m.d.Transform().Scale,
			m.d.Store().NodeCount(), m.d.Store().EdgeCount(), m.d.Cursor())),
	)
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.canvas.View())
	b.WriteString("\n")

	if m.status != "" {
		if m.statusErr {
			b.WriteString(errorStyle.Render(" " + m.status))
		} else {
			b.WriteString(statusStyle.Render(" " + m.status))
		}
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}
