// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/tuinote/internal/theory"
)

// MistakePolicy decides what a wrong note does to the cursor.
type MistakePolicy int

const (
	// MistakeStrict restarts the exercise from the first note.
	MistakeStrict MistakePolicy = iota
	// MistakeLenient keeps the cursor so the same note can be retried.
	MistakeLenient
)

func (p MistakePolicy) String() string {
	if p == MistakeLenient {
		return "lenient"
	}
	return "strict"
}

// ParseMistakePolicy parses "strict" or "lenient".
func ParseMistakePolicy(s string) (MistakePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return MistakeStrict, nil
	case "lenient":
		return MistakeLenient, nil
	default:
		return 0, fmt.Errorf("unknown mistake policy %q (expected strict or lenient)", s)
	}
}

// OrderPolicy decides how generated pitches are presented.
type OrderPolicy int

const (
	// OrderAscending sorts pitches low to high.
	OrderAscending OrderPolicy = iota
	// OrderRandom keeps the draw order.
	OrderRandom
)

func (o OrderPolicy) String() string {
	if o == OrderRandom {
		return "random"
	}
	return "ascending"
}

// ParseOrderPolicy parses "ascending" or "random".
func ParseOrderPolicy(s string) (OrderPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ascending", "sorted":
		return OrderAscending, nil
	case "random":
		return OrderRandom, nil
	default:
		return 0, fmt.Errorf("unknown order policy %q (expected ascending or random)", s)
	}
}

// Range is an inclusive MIDI pitch range.
type Range struct {
	Min theory.Pitch
	Max theory.Pitch
}

// Contains reports whether p lies within r.
func (r Range) Contains(p theory.Pitch) bool {
	return p >= r.Min && p <= r.Max
}

// ExerciseConfig is the generator configuration.
type ExerciseConfig struct {
	Length      int
	AllowAnyKey bool
	Keys        []theory.Key
	DefaultKey  theory.Key
	Clefs       []theory.Clef
	Ranges      map[theory.Clef]Range
	Order       OrderPolicy
}

// Config defines practice settings.
type Config struct {
	Exercise   ExerciseConfig
	Mistakes   MistakePolicy
	MIDIInput  string
	FocusWeak  bool
	WeakTop    int
	WeakFactor float64
	WeakWindow int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Key         string
	Clef        string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// Exercise is an immutable sequence of target pitches.
type Exercise struct {
	id      int64
	pitches []theory.Pitch
	clef    theory.Clef
	key     theory.Key
}

// NewExercise builds an exercise. The pitch slice is copied.
func NewExercise(id int64, pitches []theory.Pitch, clef theory.Clef, key theory.Key) Exercise {
	cp := make([]theory.Pitch, len(pitches))
	copy(cp, pitches)
	return Exercise{id: id, pitches: cp, clef: clef, key: key}
}

// ID identifies the exercise within a session.
func (e Exercise) ID() int64 { return e.id }

// Len returns the number of target pitches.
func (e Exercise) Len() int { return len(e.pitches) }

// At returns the target pitch at index i.
func (e Exercise) At(i int) theory.Pitch { return e.pitches[i] }

// Pitches returns a copy of the target pitches.
func (e Exercise) Pitches() []theory.Pitch {
	cp := make([]theory.Pitch, len(e.pitches))
	copy(cp, e.pitches)
	return cp
}

// Clef returns the clef the exercise was generated for.
func (e Exercise) Clef() theory.Clef { return e.clef }

// Key returns the key signature of the exercise.
func (e Exercise) Key() theory.Key { return e.key }

// Spellings returns the key-aware names of the target pitches.
func (e Exercise) Spellings() []theory.Spelling {
	return theory.SpellAll(e.pitches, e.key)
}

// EventKind distinguishes note-on from note-off.
type EventKind int

// Event kinds.
const (
	NoteOn EventKind = iota + 1
	NoteOff
)

func (k EventKind) String() string {
	switch k {
	case NoteOn:
		return "note-on"
	case NoteOff:
		return "note-off"
	default:
		return "unknown"
	}
}

// NoteEvent is one normalized input event from any source.
type NoteEvent struct {
	Kind     EventKind
	Pitch    int
	Velocity int
	At       time.Time
	Source   string
}

// Progress is what a renderer needs to redraw the current exercise.
// LastWrong is -1 when no wrong note is highlighted.
type Progress struct {
	Exercise  Exercise
	Cursor    int
	LastWrong int
	Correct   int
	Attempted int
}

// SessionRecord is one completed exercise in the history.
type SessionRecord struct {
	Accuracy float64 `json:"accuracy" yaml:"accuracy"`
	Seconds  float64 `json:"seconds" yaml:"seconds"`
}

// SessionStats captures a completed exercise for persistence.
type SessionStats struct {
	StartedAt  time.Time
	EndedAt    time.Time
	Key        string
	Clef       string
	Length     int
	Policy     string
	Correct    int
	Attempted  int
	Accuracy   float64
	DurationMs int64
}

// NoteStats stores per-pitch stats for a session.
type NoteStats struct {
	Pitch        int
	Name         string
	Correct      int
	Incorrect    int
	LatencySumMs int64
	LatencyCount int64
}

// NoteAggregate aggregates note stats across sessions.
type NoteAggregate struct {
	Pitch        int
	Correct      int
	Incorrect    int
	LatencySumMs int64
	LatencyCount int64
}

// SessionAggregate summarizes a session for reporting.
type SessionAggregate struct {
	SessionID  int64
	EndedAt    time.Time
	Key        string
	Clef       string
	Correct    int
	Attempted  int
	Accuracy   float64
	DurationMs int64
}
