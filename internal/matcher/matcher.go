// Package matcher tracks live note input against the current exercise.
//
// A Matcher is not safe for concurrent use. Events from several sources must be
// serialized into one ordered stream before they reach Apply.
package matcher

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/stats"
	"github.com/verte-zerg/tuinote/internal/theory"
)

// State is the matcher's position in the exercise lifecycle.
type State int

// Matcher states.
const (
	AwaitingInput State = iota
	Completed
)

func (s State) String() string {
	if s == Completed {
		return "completed"
	}
	return "awaiting-input"
}

// Outcome summarizes a completed exercise.
type Outcome struct {
	Exercise  model.Exercise
	StartedAt time.Time
	EndedAt   time.Time
	Elapsed   time.Duration
	Correct   int
	Attempted int
	Accuracy  float64
	Notes     []model.NoteStats
}

// Update is the result of applying one event.
type Update struct {
	Progress model.Progress
	// Changed is set for every accepted note-on.
	Changed bool
	// Matched reports whether the note-on hit the expected pitch.
	Matched  bool
	Released bool
	Ignored  bool
	Rejected bool
	Outcome  *Outcome
}

type noteStat struct {
	correct      int
	incorrect    int
	latencySumMs int64
	latencyCount int64
}

// Matcher is the per-exercise input state machine.
type Matcher struct {
	policy model.MistakePolicy
	logger *log.Logger

	exercise  model.Exercise
	state     State
	cursor    int
	correct   int
	attempted int
	lastWrong int
	startedAt time.Time
	prevHitAt time.Time
	notes     map[theory.Pitch]*noteStat
}

// New returns a Matcher applying the given mistake policy. A nil logger uses
// the default charm logger.
func New(policy model.MistakePolicy, logger *log.Logger) *Matcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Matcher{policy: policy, logger: logger, lastWrong: -1}
}

// Reset discards all progress and starts tracking ex from start.
func (m *Matcher) Reset(ex model.Exercise, start time.Time) {
	m.exercise = ex
	m.state = AwaitingInput
	m.cursor = 0
	m.correct = 0
	m.attempted = 0
	m.lastWrong = -1
	m.startedAt = start
	m.prevHitAt = time.Time{}
	m.notes = map[theory.Pitch]*noteStat{}
}

// State returns the current lifecycle state.
func (m *Matcher) State() State {
	return m.state
}

// Policy returns the configured mistake policy.
func (m *Matcher) Policy() model.MistakePolicy {
	return m.policy
}

// StartedAt returns when the current exercise started.
func (m *Matcher) StartedAt() time.Time {
	return m.startedAt
}

// Progress returns a snapshot for renderers.
func (m *Matcher) Progress() model.Progress {
	return model.Progress{
		Exercise:  m.exercise,
		Cursor:    m.cursor,
		LastWrong: m.lastWrong,
		Correct:   m.correct,
		Attempted: m.attempted,
	}
}

// Accuracy returns the live accuracy percentage.
func (m *Matcher) Accuracy() float64 {
	return stats.Accuracy(m.correct, m.attempted)
}

const maxVelocity = 127

// Apply consumes one input event.
func (m *Matcher) Apply(ev model.NoteEvent) Update {
	if ev.Pitch < int(theory.MinPitch) || ev.Pitch > int(theory.MaxPitch) {
		m.logger.Warn("rejecting event with pitch out of range", "pitch", ev.Pitch, "kind", ev.Kind, "source", ev.Source)
		return Update{Progress: m.Progress(), Rejected: true}
	}
	if ev.Velocity < 0 || ev.Velocity > maxVelocity {
		m.logger.Warn("rejecting event with velocity out of range", "velocity", ev.Velocity, "pitch", ev.Pitch, "source", ev.Source)
		return Update{Progress: m.Progress(), Rejected: true}
	}
	switch ev.Kind {
	case model.NoteOn:
		return m.noteOn(ev)
	case model.NoteOff:
		return Update{Progress: m.Progress(), Released: true}
	default:
		m.logger.Warn("rejecting event of unknown kind", "kind", int(ev.Kind), "source", ev.Source)
		return Update{Progress: m.Progress(), Rejected: true}
	}
}

func (m *Matcher) noteOn(ev model.NoteEvent) Update {
	if ev.Velocity == 0 {
		return Update{Progress: m.Progress(), Ignored: true}
	}
	if m.state == Completed || m.exercise.Len() == 0 {
		return Update{Progress: m.Progress(), Ignored: true}
	}

	m.attempted++
	expected := m.exercise.At(m.cursor)
	entry := m.noteEntry(expected)
	if theory.Pitch(ev.Pitch) == expected {
		m.correct++
		entry.correct++
		if !m.prevHitAt.IsZero() {
			entry.latencySumMs += ev.At.Sub(m.prevHitAt).Milliseconds()
			entry.latencyCount++
		}
		m.prevHitAt = ev.At
		m.cursor++
		up := Update{Changed: true, Matched: true}
		if m.cursor == m.exercise.Len() {
			m.state = Completed
			up.Outcome = m.outcome(ev.At)
		}
		up.Progress = m.Progress()
		return up
	}

	entry.incorrect++
	m.lastWrong = m.cursor
	if m.policy == model.MistakeStrict {
		m.cursor = 0
		m.prevHitAt = time.Time{}
	}
	m.logger.Debug("wrong note", "expected", int(expected), "played", ev.Pitch, "policy", m.policy)
	return Update{Progress: m.Progress(), Changed: true}
}

func (m *Matcher) noteEntry(p theory.Pitch) *noteStat {
	if m.notes == nil {
		m.notes = map[theory.Pitch]*noteStat{}
	}
	entry, ok := m.notes[p]
	if !ok {
		entry = &noteStat{}
		m.notes[p] = entry
	}
	return entry
}

func (m *Matcher) outcome(at time.Time) *Outcome {
	elapsed := at.Sub(m.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	notes := make([]model.NoteStats, 0, len(m.notes))
	for _, p := range m.exercise.Pitches() {
		entry, ok := m.notes[p]
		if !ok {
			continue
		}
		notes = append(notes, model.NoteStats{
			Pitch:        int(p),
			Name:         theory.Spell(p, m.exercise.Key()).String(),
			Correct:      entry.correct,
			Incorrect:    entry.incorrect,
			LatencySumMs: entry.latencySumMs,
			LatencyCount: entry.latencyCount,
		})
	}
	return &Outcome{
		Exercise:  m.exercise,
		StartedAt: m.startedAt,
		EndedAt:   at,
		Elapsed:   elapsed,
		Correct:   m.correct,
		Attempted: m.attempted,
		Accuracy:  stats.Accuracy(m.correct, m.attempted),
		Notes:     notes,
	}
}
