// Package session drives one practice run: it generates exercises, feeds
// input into the matcher, keeps the history and tells the renderer what
// changed.
//
// A TrainerSession is not safe for concurrent use. Handle must be called from
// one goroutine, normally the Bubble Tea update loop.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tuinote/internal/generator"
	"github.com/verte-zerg/tuinote/internal/matcher"
	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/stats"
	"github.com/verte-zerg/tuinote/internal/theory"
)

// Msg is an input to Handle.
type Msg interface {
	sessionMsg()
}

// NoteMsg carries one normalized input event.
type NoteMsg struct {
	Event model.NoteEvent
}

// ResetMsg restarts the current exercise from the first note.
type ResetMsg struct{}

// SkipMsg abandons the current exercise without recording it.
type SkipMsg struct{}

func (NoteMsg) sessionMsg()  {}
func (ResetMsg) sessionMsg() {}
func (SkipMsg) sessionMsg()  {}

// Snapshot is the renderer-facing view of the session.
type Snapshot struct {
	Progress        model.Progress
	Accuracy        float64
	StartedAt       time.Time
	Last            model.SessionRecord
	HasLast         bool
	AllTimeAccuracy float64
	AllTimeSeconds  float64
	Completed       int
	// Run identifies the current timing run; see Tick.
	Run             int64
}

// Observer receives session notifications synchronously from Handle.
type Observer interface {
	ExerciseStarted(Snapshot)
	ProgressChanged(Snapshot)
	ExerciseCompleted(matcher.Outcome, model.SessionRecord)
}

// Recorder persists completed exercises.
type Recorder interface {
	InsertSession(ctx context.Context, stats model.SessionStats, notes []model.NoteStats) (int64, error)
}

// WeakSource provides note aggregates for weak-note focus.
type WeakSource interface {
	GetWeakNotes(ctx context.Context, window int, key string) ([]model.NoteAggregate, error)
}

// Options configures a TrainerSession. Only Config is required.
type Options struct {
	Config    model.Config
	Generator *generator.Generator
	Clock     stats.Clock
	Recorder  Recorder
	Weak      WeakSource
	Observer  Observer
	Timer     ElapsedTimer
	Logger    *log.Logger
	History   []model.SessionRecord
}

// TrainerSession owns the exercise lifecycle.
type TrainerSession struct {
	cfg      model.Config
	gen      *generator.Generator
	clock    stats.Clock
	matcher  *matcher.Matcher
	agg      *stats.Aggregator
	recorder Recorder
	weakSrc  WeakSource
	observer Observer
	timer    ElapsedTimer
	logger   *log.Logger

	exercise     model.Exercise
	timerRunning bool
	run          int64
	completed    int
	weak         map[theory.Pitch]struct{}
}

// New builds a session from opts.
func New(opts Options) *TrainerSession {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = stats.SystemClock{}
	}
	gen := opts.Generator
	if gen == nil {
		gen = generator.New()
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	timer := opts.Timer
	if timer == nil {
		timer = nopTimer{}
	}
	agg := stats.NewAggregator(clock)
	agg.Load(opts.History)
	return &TrainerSession{
		cfg:      opts.Config,
		gen:      gen,
		clock:    clock,
		matcher:  matcher.New(opts.Config.Mistakes, logger),
		agg:      agg,
		recorder: opts.Recorder,
		weakSrc:  opts.Weak,
		observer: observer,
		timer:    timer,
		logger:   logger,
	}
}

// Start generates the first exercise.
func (s *TrainerSession) Start(ctx context.Context) error {
	return s.next(ctx)
}

// Close stops the elapsed timer.
func (s *TrainerSession) Close() {
	s.stopTimer()
}

// Handle applies one message.
func (s *TrainerSession) Handle(ctx context.Context, msg Msg) error {
	switch m := msg.(type) {
	case NoteMsg:
		return s.handleNote(ctx, m.Event)
	case ResetMsg:
		s.restart()
		return nil
	case SkipMsg:
		s.logger.Debug("skipping exercise", "id", s.exercise.ID())
		return s.next(ctx)
	default:
		return fmt.Errorf("unknown session message %T", msg)
	}
}

// Snapshot returns the current renderer view.
func (s *TrainerSession) Snapshot() Snapshot {
	last, hasLast := s.agg.Last()
	allAcc, allSec := s.agg.AllTime()
	return Snapshot{
		Progress:        s.matcher.Progress(),
		Accuracy:        s.matcher.Accuracy(),
		StartedAt:       s.matcher.StartedAt(),
		Last:            last,
		HasLast:         hasLast,
		AllTimeAccuracy: allAcc,
		AllTimeSeconds:  allSec,
		Completed:       s.completed,
		Run:             s.run,
	}
}

// Exercise returns the current exercise.
func (s *TrainerSession) Exercise() model.Exercise {
	return s.exercise
}

// Elapsed returns the time spent on the current exercise so far.
func (s *TrainerSession) Elapsed() time.Duration {
	return s.agg.ElapsedSince(s.matcher.StartedAt())
}

// History returns a copy of the completed records.
func (s *TrainerSession) History() []model.SessionRecord {
	return s.agg.History()
}

func (s *TrainerSession) handleNote(ctx context.Context, ev model.NoteEvent) error {
	if ev.At.IsZero() {
		ev.At = s.clock.Now()
	}
	up := s.matcher.Apply(ev)
	if !up.Changed {
		return nil
	}
	s.observer.ProgressChanged(s.Snapshot())
	if up.Outcome == nil {
		return nil
	}
	s.complete(ctx, *up.Outcome)
	return s.next(ctx)
}

func (s *TrainerSession) complete(ctx context.Context, out matcher.Outcome) {
	rec := s.agg.RecordCompletion(out.Accuracy, out.Elapsed)
	s.completed++
	s.logger.Info("exercise completed",
		"id", out.Exercise.ID(),
		"key", out.Exercise.Key().Name(),
		"accuracy", fmt.Sprintf("%.1f", out.Accuracy),
		"seconds", fmt.Sprintf("%.2f", rec.Seconds),
	)
	if s.recorder != nil {
		sessionStats := model.SessionStats{
			StartedAt:  out.StartedAt,
			EndedAt:    out.EndedAt,
			Key:        out.Exercise.Key().Name(),
			Clef:       out.Exercise.Clef().String(),
			Length:     out.Exercise.Len(),
			Policy:     s.cfg.Mistakes.String(),
			Correct:    out.Correct,
			Attempted:  out.Attempted,
			Accuracy:   out.Accuracy,
			DurationMs: out.Elapsed.Milliseconds(),
		}
		if _, err := s.recorder.InsertSession(ctx, sessionStats, out.Notes); err != nil {
			s.logger.Error("failed to save exercise", "err", err)
		}
	}
	s.observer.ExerciseCompleted(out, rec)
}

func (s *TrainerSession) next(ctx context.Context) error {
	s.refreshWeak(ctx)
	ex, err := s.gen.Generate(s.cfg.Exercise, generator.Request{
		Weak:       s.weak,
		WeakFactor: s.cfg.WeakFactor,
	})
	if err != nil {
		return fmt.Errorf("generate exercise: %w", err)
	}
	s.exercise = ex
	s.restart()
	return nil
}

// restart resets the matcher on the current exercise and swaps the timer.
func (s *TrainerSession) restart() {
	start := s.clock.Now()
	s.matcher.Reset(s.exercise, start)
	s.stopTimer()
	s.run++
	s.timer.Start(s.run, start)
	s.timerRunning = true
	s.observer.ExerciseStarted(s.Snapshot())
}

func (s *TrainerSession) stopTimer() {
	if !s.timerRunning {
		return
	}
	s.timer.Stop()
	s.timerRunning = false
}

func (s *TrainerSession) refreshWeak(ctx context.Context) {
	if !s.cfg.FocusWeak || s.weakSrc == nil {
		return
	}
	aggs, err := s.weakSrc.GetWeakNotes(ctx, s.cfg.WeakWindow, "")
	if err != nil {
		s.logger.Warn("failed to load weak notes", "err", err)
		return
	}
	s.weak = stats.SelectWeakPitches(aggs, s.cfg.WeakTop)
}

type nopObserver struct{}

func (nopObserver) ExerciseStarted(Snapshot)                               {}
func (nopObserver) ProgressChanged(Snapshot)                               {}
func (nopObserver) ExerciseCompleted(matcher.Outcome, model.SessionRecord) {}
