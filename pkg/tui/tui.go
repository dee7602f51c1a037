// Package tui provides a terminal user interface for handchords: a live view
// of the session and a keyboard stand-in for the hand tracker
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/handchords/pkg/chords"
	"github.com/james-see/handchords/pkg/engine"
	"github.com/james-see/handchords/pkg/hands"
)

// Acid-inspired color scheme
var (
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")
	dimGray    = lipgloss.Color("#666666")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(acidGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	chordStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true)

	sustainStyle = lipgloss.NewStyle().
			Foreground(silverGray)

	instrumentStyle = lipgloss.NewStyle().
			Foreground(silverGray)

	hintStyle = lipgloss.NewStyle().
			Foreground(acidYellow).
			Bold(true)

	upStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true)

	downStyle = lipgloss.NewStyle().
			Foreground(dimGray)

	statusStyle = lipgloss.NewStyle().
			Foreground(acidYellow).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(acidGreen).
			Padding(1, 2)
)

// Display passes session views to the TUI. Show never blocks: a view the UI
// has not picked up yet is replaced by the newer one.
type Display struct {
	views chan engine.View
}

// NewDisplay returns a display for use with engine.WithDisplay
func NewDisplay() *Display {
	return &Display{views: make(chan engine.View, 1)}
}

// Show implements engine.Display
func (d *Display) Show(v engine.View) {
	for {
		select {
		case d.views <- v:
			return
		default:
		}
		select {
		case <-d.views:
		default:
		}
	}
}

func (d *Display) wait() tea.Cmd {
	return func() tea.Msg {
		return viewMsg(<-d.views)
	}
}

type viewMsg engine.View

// sessionDoneMsg reports that the session loop returned
type sessionDoneMsg struct {
	err error
}

type keyMap struct {
	Left   key.Binding
	Right  key.Binding
	Hands  key.Binding
	Open   key.Binding
	Hide   key.Binding
	Help   key.Binding
	Quit   key.Binding
	Finger map[string]chords.Key
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.Open, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right},
		{k.Hands, k.Open, k.Hide},
		{k.Help, k.Quit},
	}
}

func newKeyMap() keyMap {
	finger := make(map[string]chords.Key, chords.NumHands*chords.NumFingers)
	for i, f := range chords.Fingers {
		finger[fmt.Sprint(i+1)] = chords.Key{Hand: chords.Left, Finger: f}
		finger[fmt.Sprint((i+6)%10)] = chords.Key{Hand: chords.Right, Finger: f}
	}
	return keyMap{
		Left:   key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "left thumb..pinky")),
		Right:  key.NewBinding(key.WithKeys("6", "7", "8", "9", "0"), key.WithHelp("6-0", "right thumb..pinky")),
		Hands:  key.NewBinding(key.WithKeys("l", "r"), key.WithHelp("l/r", "show/hide hand")),
		Open:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "both hands open")),
		Hide:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no hands")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Finger: finger,
	}
}

// Model is the bubbletea model for a running session
type Model struct {
	table    *chords.Table
	display  *Display
	keyboard *hands.Queue

	pose    [chords.NumHands]hands.HandState
	visible [chords.NumHands]bool

	view     engine.View
	haveView bool
	done     bool
	err      error

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model
	width    int
}

// New creates the model. keyboard may be nil when frames come from a script
// or a serial tracker; the finger keys are then ignored.
func New(table *chords.Table, display *Display, keyboard *hands.Queue) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(acidGreen)

	m := Model{
		table:    table,
		display:  display,
		keyboard: keyboard,
		keys:     newKeyMap(),
		help:     help.New(),
		spinner:  s,
		progress: progress.New(progress.WithGradient("#FFFF00", "#39FF14"), progress.WithWidth(30)),
	}
	for _, h := range chords.Hands {
		m.pose[h].Hand = h
		m.visible[h] = true
	}
	return m
}

// Pose returns the snapshot the keyboard currently describes
func (m Model) Pose() hands.Snapshot {
	var snap hands.Snapshot
	for _, h := range chords.Hands {
		if m.visible[h] {
			snap.Hands = append(snap.Hands, m.pose[h])
		}
	}
	return snap
}

func (m Model) push() {
	if m.keyboard == nil {
		return
	}
	_ = m.keyboard.Push(m.Pose())
}

// Init starts the spinner and waits for the first view
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.display != nil {
		cmds = append(cmds, m.display.wait())
	}
	return tea.Batch(cmds...)
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case viewMsg:
		m.view = engine.View(msg)
		m.haveView = true
		if m.display != nil {
			return m, m.display.wait()
		}
		return m, nil

	case sessionDoneMsg:
		m.done = true
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if m.keyboard == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Right):
		k := m.keys.Finger[msg.String()]
		m.pose[k.Hand].Fingers[k.Finger] = !m.pose[k.Hand].Fingers[k.Finger]
		m.visible[k.Hand] = true
	case key.Matches(msg, m.keys.Hands):
		h := chords.Left
		if msg.String() == "r" {
			h = chords.Right
		}
		m.visible[h] = !m.visible[h]
	case key.Matches(msg, m.keys.Open):
		for _, h := range chords.Hands {
			m.visible[h] = true
			for _, f := range chords.Fingers {
				m.pose[h].Fingers[f] = true
			}
		}
	case key.Matches(msg, m.keys.Hide):
		m.visible = [chords.NumHands]bool{}
	default:
		return m, nil
	}
	m.push()
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" HANDCHORDS "))
	s.WriteString("\n")

	var body strings.Builder
	switch {
	case !m.haveView && !m.done:
		body.WriteString(fmt.Sprintf("%s Waiting for frames...", m.spinner.View()))
	default:
		body.WriteString(m.viewSession())
	}
	if m.done {
		body.WriteString("\n")
		if m.err != nil {
			body.WriteString(errorStyle.Render(fmt.Sprintf("✗ Session ended: %s", m.err)))
		} else {
			body.WriteString(statusStyle.Render("Hand source finished. Press q to quit."))
		}
	}
	s.WriteString(boxStyle.Render(body.String()))

	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))
	return s.String()
}

func (m Model) viewSession() string {
	var s strings.Builder
	v := m.view

	switch {
	case v.Chord == "":
		s.WriteString(downStyle.Render("-"))
	case v.Sustaining:
		s.WriteString(sustainStyle.Render(v.Chord))
	default:
		s.WriteString(chordStyle.Render(v.Chord))
	}
	s.WriteString("\n")
	s.WriteString(instrumentStyle.Render("Instrument: " + v.Instrument))
	s.WriteString("\n")
	if v.Hint != "" {
		s.WriteString(hintStyle.Render(v.Hint))
		s.WriteString(" ")
		s.WriteString(m.progress.ViewAs(v.HoldProgress))
	}
	s.WriteString("\n\n")
	s.WriteString(m.viewFingers())
	s.WriteString(statusStyle.Render(fmt.Sprintf("%s frame %d • %d hands • %d releases pending",
		m.spinner.View(), v.Frame, len(v.Hands), v.PendingReleases)))
	return s.String()
}

// viewFingers renders one row per hand with each finger's state and chord
func (m Model) viewFingers() string {
	var s strings.Builder
	for _, h := range chords.Hands {
		s.WriteString(fmt.Sprintf("%-6s", h.Title()))
		for _, f := range chords.Fingers {
			k := chords.Key{Hand: h, Finger: f}
			mark := downStyle.Render("·")
			if m.view.Up(k) {
				mark = upStyle.Render("▲")
			}
			name := ""
			if m.table != nil {
				if c, ok := m.table.Lookup(k); ok {
					name = c.Name
				}
			}
			s.WriteString(fmt.Sprintf(" %s %-10s", mark, truncate(name, 10)))
		}
		s.WriteString("\n")
	}
	return s.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Config wires a running session to the TUI
type Config struct {
	Session  *engine.Session
	Source   hands.Source
	Display  *Display
	Keyboard *hands.Queue
}

// Run starts the session loop and the TUI application. It returns when the
// user quits or ctx is done; the session is closed either way.
func Run(ctx context.Context, cfg Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(cfg.Session.Table(), cfg.Display, cfg.Keyboard)
	m.push()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	done := make(chan error, 1)
	go func() {
		err := cfg.Session.Run(ctx, cfg.Source)
		done <- err
		p.Send(sessionDoneMsg{err: err})
	}()

	_, err := p.Run()
	cancel()
	serr := <-done
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		err = nil
	}
	return errors.Join(err, serr)
}
