package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/session"
)

// DefaultEventBuffer is the inbox size used by NewEvents when size <= 0.
const DefaultEventBuffer = 256

type noteMsg struct {
	event model.NoteEvent
}

type tickMsg struct {
	tick session.Tick
}

// Events carries messages from background goroutines (MIDI driver, elapsed
// timer) into the Bubble Tea update loop.
type Events struct {
	ch     chan tea.Msg
	logger *log.Logger
}

// NewEvents returns an inbox with the given buffer size.
func NewEvents(size int, logger *log.Logger) *Events {
	if size <= 0 {
		size = DefaultEventBuffer
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Events{ch: make(chan tea.Msg, size), logger: logger}
}

// Note queues a note event. It never blocks; a full inbox drops the event.
func (e *Events) Note(ev model.NoteEvent) {
	select {
	case e.ch <- noteMsg{event: ev}:
	default:
		e.logger.Warn("input queue full, dropping note", "pitch", ev.Pitch, "source", ev.Source)
	}
}

// Tick queues an elapsed-time tick. Ticks are dropped silently when the inbox
// is full.
func (e *Events) Tick(t session.Tick) {
	select {
	case e.ch <- tickMsg{tick: t}:
	default:
	}
}

func (e *Events) wait() tea.Cmd {
	return func() tea.Msg {
		return <-e.ch
	}
}
