// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tuinote/internal/keyboard"
	"github.com/verte-zerg/tuinote/internal/matcher"
	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/session"
	"github.com/verte-zerg/tuinote/internal/theory"
)

var (
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle    = currentStyle.Underline(true)
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8FB8DE")).Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Options configures the practice UI.
type Options struct {
	// Session is passed to session.New. Observer and Timer are set by the UI.
	Session      session.Options
	Events       *Events
	TickInterval time.Duration
	MIDIPort     string
	// Bell rings the terminal bell on wrong notes and completed exercises.
	Bell         bool
	// BellOut receives the bell character. Defaults to os.Stdout.
	BellOut      io.Writer
}

// Model implements the Bubble Tea practice UI.
type Model struct {
	sess     *session.TrainerSession
	events   *Events
	keys     *keyboard.Keyboard
	logger   *log.Logger
	midiPort string
	bell     bool
	bellOut  io.Writer
	cue      bool

	width  int
	height int

	snap    session.Snapshot
	elapsed time.Duration
	clef    theory.Clef

	played      string
	playedMatch bool
	lastResult  string
	err         error
}

// NewModel builds the UI and starts the first exercise.
func NewModel(ctx context.Context, opts Options) (*Model, error) {
	logger := opts.Session.Logger
	if logger == nil {
		logger = log.Default()
	}
	events := opts.Events
	if events == nil {
		events = NewEvents(0, logger)
	}
	bellOut := opts.BellOut
	if bellOut == nil {
		bellOut = os.Stdout
	}
	m := &Model{
		events:   events,
		logger:   logger,
		midiPort: opts.MIDIPort,
		bell:     opts.Bell,
		bellOut:  bellOut,
	}
	sessOpts := opts.Session
	sessOpts.Observer = m
	sessOpts.Timer = session.NewTickerTimer(opts.TickInterval, sessOpts.Clock, events.Tick)
	m.sess = session.New(sessOpts)
	if err := m.sess.Start(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Close stops background timers owned by the model.
func (m *Model) Close() {
	m.sess.Close()
}

// Err returns the error that ended the program, if any.
func (m *Model) Err() error {
	return m.err
}

// ExerciseStarted implements session.Observer.
func (m *Model) ExerciseStarted(s session.Snapshot) {
	m.snap = s
	m.elapsed = 0
	clef := s.Progress.Exercise.Clef()
	switch {
	case m.keys == nil:
		m.keys = keyboard.New(keyboard.ForClef(clef))
	case clef != m.clef:
		m.keys.SetBase(keyboard.ForClef(clef))
	}
	m.clef = clef
}

// ProgressChanged implements session.Observer.
func (m *Model) ProgressChanged(s session.Snapshot) {
	m.snap = s
}

// ExerciseCompleted implements session.Observer.
func (m *Model) ExerciseCompleted(out matcher.Outcome, rec model.SessionRecord) {
	m.lastResult = fmt.Sprintf("Done %s in %.1fs · %.1f%%", out.Exercise.Key().Name(), rec.Seconds, rec.Accuracy)
	m.cue = m.bell
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.events.wait()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case noteMsg:
		m.handleNote(msg.event)
		return m, m.withBell(m.next())
	case tickMsg:
		if msg.tick.Run == m.snap.Run {
			m.elapsed = msg.tick.Elapsed
		}
		return m, m.events.wait()
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			m.handle(session.SkipMsg{})
			return m, m.quitOnError()
		case tea.KeyBackspace, tea.KeyCtrlR:
			m.handle(session.ResetMsg{})
			return m, m.quitOnError()
		case tea.KeyRunes:
			for _, r := range msg.Runes {
				ev, isNote, _ := m.keys.Press(string(r), time.Time{})
				if isNote {
					m.handleNote(ev)
				}
			}
			return m, m.withBell(m.quitOnError())
		default:
			return m, nil
		}
	default:
		return m, nil
	}
}

func (m *Model) next() tea.Cmd {
	if m.err != nil {
		return tea.Quit
	}
	return m.events.wait()
}

func (m *Model) quitOnError() tea.Cmd {
	if m.err != nil {
		return tea.Quit
	}
	return nil
}

// withBell adds a bell ring to cmd when a cue is pending.
func (m *Model) withBell(cmd tea.Cmd) tea.Cmd {
	if !m.cue {
		return cmd
	}
	m.cue = false
	ring := ringBell(m.bellOut)
	if cmd == nil {
		return ring
	}
	return tea.Batch(cmd, ring)
}

func ringBell(w io.Writer) tea.Cmd {
	return func() tea.Msg {
		_, _ = io.WriteString(w, "\a")
		return nil
	}
}

func (m *Model) handleNote(ev model.NoteEvent) {
	before := m.snap.Progress
	if ev.Kind == model.NoteOn && ev.Velocity > 0 && theory.Pitch(ev.Pitch).Valid() {
		ex := before.Exercise
		m.played = playedName(ev.Pitch, ex.Key())
		m.playedMatch = before.Cursor < ex.Len() && int(ex.At(before.Cursor)) == ev.Pitch
	}
	m.handle(session.NoteMsg{Event: ev})
	after := m.snap.Progress
	wrong := after.Exercise.ID() == before.Exercise.ID() && after.Attempted > before.Attempted && !m.playedMatch
	if wrong && m.bell {
		m.cue = true
	}
}

func (m *Model) handle(msg session.Msg) {
	if err := m.sess.Handle(context.Background(), msg); err != nil {
		m.logger.Error("session failed", "err", err)
		m.err = errors.Join(m.err, err)
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	ex := m.snap.Progress.Exercise
	if ex.Len() == 0 {
		return ""
	}
	tokens := buildStaffTokens(spelledNames(ex), m.snap.Progress.Cursor, m.snap.Progress.LastWrong)
	if m.width == 0 || m.height == 0 {
		return renderTokens(tokens)
	}
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}
	lines := []string{
		headerStyle.Render(m.renderHeader()),
		"",
		lipgloss.NewStyle().Width(contentWidth).Align(lipgloss.Center).Render(wrapTokens(tokens, contentWidth)),
		"",
		m.renderPlayed(),
		"",
		footerStyle.Width(contentWidth).Align(lipgloss.Center).Render(m.renderLegend()),
	}
	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderHeader() string {
	ex := m.snap.Progress.Exercise
	parts := []string{
		ex.Key().String(),
		ex.Clef().String() + " clef",
	}
	if m.keys != nil {
		parts = append(parts, fmt.Sprintf("keys from %s (z/x)", playedName(int(m.keys.Base()), ex.Key())))
	}
	if m.midiPort != "" {
		parts = append(parts, "MIDI "+m.midiPort)
	}
	return strings.Join(parts, " · ")
}

func (m *Model) renderPlayed() string {
	var parts []string
	if m.played != "" {
		style := incorrectStyle
		if m.playedMatch {
			style = correctStyle
		}
		parts = append(parts, "played "+style.Render(m.played))
	}
	if m.lastResult != "" {
		parts = append(parts, footerStyle.Render(m.lastResult))
	}
	return strings.Join(parts, "   ")
}

// renderLegend lists the computer keys and the notes they play.
func (m *Model) renderLegend() string {
	if m.keys == nil {
		return ""
	}
	legend := m.keys.Legend(m.snap.Progress.Exercise.Key())
	parts := make([]string, len(legend))
	for i, binding := range legend {
		parts[i] = binding[0] + " " + binding[1]
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderFooter() string {
	p := m.snap.Progress
	if p.Exercise.Len() == 0 {
		return ""
	}
	segments := []string{
		fmt.Sprintf("Progress %d/%d", p.Cursor, p.Exercise.Len()),
		fmt.Sprintf("Accuracy %.1f%%", m.snap.Accuracy),
		fmt.Sprintf("%.1fs", m.elapsed.Seconds()),
	}
	if m.snap.HasLast {
		segments = append(segments, fmt.Sprintf("Last %.1f%% · %.1fs", m.snap.Last.Accuracy, m.snap.Last.Seconds))
	}
	segments = append(segments, fmt.Sprintf("All-time %.1f%% · %.1fs", m.snap.AllTimeAccuracy, m.snap.AllTimeSeconds))
	footer := strings.Join(segments, "  ")
	return footerStyle.Render(footer)
}
