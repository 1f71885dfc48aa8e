package session

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tuinote/internal/generator"
	"github.com/verte-zerg/tuinote/internal/matcher"
	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/theory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeTimer struct {
	starts []int64
	stops  int
}

func (f *fakeTimer) Start(run int64, _ time.Time) { f.starts = append(f.starts, run) }
func (f *fakeTimer) Stop()                        { f.stops++ }

type recordingObserver struct {
	started  []Snapshot
	progress []Snapshot
	outcomes []matcher.Outcome
	records  []model.SessionRecord
}

func (o *recordingObserver) ExerciseStarted(s Snapshot) { o.started = append(o.started, s) }
func (o *recordingObserver) ProgressChanged(s Snapshot) { o.progress = append(o.progress, s) }
func (o *recordingObserver) ExerciseCompleted(out matcher.Outcome, rec model.SessionRecord) {
	o.outcomes = append(o.outcomes, out)
	o.records = append(o.records, rec)
}

type memRecorder struct {
	sessions []model.SessionStats
	notes    [][]model.NoteStats
	err      error
}

func (r *memRecorder) InsertSession(_ context.Context, stats model.SessionStats, notes []model.NoteStats) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.sessions = append(r.sessions, stats)
	r.notes = append(r.notes, notes)
	return int64(len(r.sessions)), nil
}

type staticWeak struct {
	aggs  []model.NoteAggregate
	calls int
}

func (w *staticWeak) GetWeakNotes(context.Context, int, string) ([]model.NoteAggregate, error) {
	w.calls++
	return w.aggs, nil
}

func cMajorTreble() model.Config {
	return model.Config{
		Exercise: model.ExerciseConfig{
			Length:      4,
			AllowAnyKey: true,
			Keys:        []theory.Key{{}},
			Clefs:       []theory.Clef{theory.Treble},
			Ranges:      generator.DefaultRanges(),
		},
		Mistakes: model.MistakeStrict,
	}
}

type harness struct {
	sess     *TrainerSession
	clock    *fakeClock
	timer    *fakeTimer
	observer *recordingObserver
	recorder *memRecorder
}

func newHarness(t *testing.T, cfg model.Config) *harness {
	t.Helper()
	h := &harness{
		clock:    &fakeClock{now: time.Unix(1000, 0)},
		timer:    &fakeTimer{},
		observer: &recordingObserver{},
		recorder: &memRecorder{},
	}
	h.sess = New(Options{
		Config:    cfg,
		Generator: generator.NewWithSeed(3),
		Clock:     h.clock,
		Recorder:  h.recorder,
		Observer:  h.observer,
		Timer:     h.timer,
		Logger:    log.New(io.Discard),
	})
	if err := h.sess.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return h
}

func (h *harness) play(t *testing.T, pitch theory.Pitch) {
	t.Helper()
	h.clock.Advance(time.Second)
	err := h.sess.Handle(context.Background(), NoteMsg{Event: model.NoteEvent{
		Kind:     model.NoteOn,
		Pitch:    int(pitch),
		Velocity: 90,
	}})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
}

func TestSessionCompletesExactSequence(t *testing.T) {
	h := newHarness(t, cMajorTreble())
	first := h.sess.Exercise()
	if first.Len() != 4 || first.Key().Name() != "C" || first.Clef() != theory.Treble {
		t.Fatalf("unexpected first exercise: len=%d key=%s clef=%s", first.Len(), first.Key().Name(), first.Clef())
	}

	for _, p := range first.Pitches() {
		h.play(t, p)
	}

	if len(h.observer.progress) != 4 {
		t.Fatalf("expected 4 progress notifications, got %d", len(h.observer.progress))
	}
	for i, snap := range h.observer.progress {
		if snap.Progress.Cursor != i+1 {
			t.Fatalf("notification %d: cursor %d", i, snap.Progress.Cursor)
		}
	}
	if len(h.observer.records) != 1 || h.observer.records[0].Accuracy != 100 || h.observer.records[0].Seconds != 4 {
		t.Fatalf("unexpected records: %+v", h.observer.records)
	}
	history := h.sess.History()
	if len(history) != 1 || history[0].Accuracy != 100 {
		t.Fatalf("unexpected history: %+v", history)
	}
	if len(h.recorder.sessions) != 1 {
		t.Fatalf("expected one persisted session, got %d", len(h.recorder.sessions))
	}
	saved := h.recorder.sessions[0]
	if saved.Key != "C" || saved.Clef != "treble" || saved.Policy != "strict" || saved.DurationMs != 4000 {
		t.Fatalf("unexpected saved session: %+v", saved)
	}
	if len(h.recorder.notes[0]) != 4 {
		t.Fatalf("expected stats for 4 notes, got %d", len(h.recorder.notes[0]))
	}

	next := h.sess.Exercise()
	if next.ID() == first.ID() {
		t.Fatalf("expected a new exercise after completion")
	}
	if snap := h.sess.Snapshot(); snap.Progress.Cursor != 0 || snap.Completed != 1 || !snap.HasLast {
		t.Fatalf("unexpected snapshot after completion: %+v", snap)
	}
	if len(h.observer.started) != 2 {
		t.Fatalf("expected 2 exercise starts, got %d", len(h.observer.started))
	}
}

func TestSessionTimerStopsOncePerTransition(t *testing.T) {
	h := newHarness(t, cMajorTreble())
	ctx := context.Background()
	if len(h.timer.starts) != 1 || h.timer.stops != 0 {
		t.Fatalf("after start: starts=%v stops=%d", h.timer.starts, h.timer.stops)
	}

	if err := h.sess.Handle(ctx, ResetMsg{}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(h.timer.starts) != 2 || h.timer.stops != 1 {
		t.Fatalf("after reset: starts=%v stops=%d", h.timer.starts, h.timer.stops)
	}
	if h.timer.starts[0] == h.timer.starts[1] {
		t.Fatalf("reset should begin a new timing run: %v", h.timer.starts)
	}
	if snap := h.sess.Snapshot(); snap.Run != h.timer.starts[1] {
		t.Fatalf("snapshot run %d does not match timer run %v", snap.Run, h.timer.starts)
	}

	for _, p := range h.sess.Exercise().Pitches() {
		h.play(t, p)
	}
	if len(h.timer.starts) != 3 || h.timer.stops != 2 {
		t.Fatalf("after completion: starts=%v stops=%d", h.timer.starts, h.timer.stops)
	}
	if h.timer.starts[2] == h.timer.starts[1] {
		t.Fatalf("completion should start the timer for a new exercise: %v", h.timer.starts)
	}

	if err := h.sess.Handle(ctx, SkipMsg{}); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if len(h.timer.starts) != 4 || h.timer.stops != 3 {
		t.Fatalf("after skip: starts=%v stops=%d", h.timer.starts, h.timer.stops)
	}

	h.sess.Close()
	h.sess.Close()
	if h.timer.stops != 4 {
		t.Fatalf("close should stop the timer exactly once, got %d stops", h.timer.stops)
	}
}

func TestSessionSkipDoesNotRecord(t *testing.T) {
	h := newHarness(t, cMajorTreble())
	ex := h.sess.Exercise()
	h.play(t, ex.At(0))
	if err := h.sess.Handle(context.Background(), SkipMsg{}); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if len(h.sess.History()) != 0 || len(h.recorder.sessions) != 0 {
		t.Fatalf("skip must not record anything")
	}
	if h.sess.Exercise().ID() == ex.ID() {
		t.Fatalf("skip should move to a new exercise")
	}
}

func TestSessionStrictMistakeRecordsLowerAccuracy(t *testing.T) {
	h := newHarness(t, cMajorTreble())
	pitches := h.sess.Exercise().Pitches()
	h.play(t, pitches[0])
	h.play(t, pitches[0]-1)
	if snap := h.sess.Snapshot(); snap.Progress.Cursor != 0 || snap.Progress.LastWrong != 1 {
		t.Fatalf("strict mistake should reset cursor: %+v", snap.Progress)
	}
	for _, p := range pitches {
		h.play(t, p)
	}
	if len(h.observer.records) != 1 {
		t.Fatalf("expected one record, got %d", len(h.observer.records))
	}
	want := float64(5) / float64(6) * 100
	if got := h.observer.records[0].Accuracy; got != want {
		t.Fatalf("accuracy = %v, want %v", got, want)
	}
}

func TestSessionIgnoresNoteOffAndPersistErrors(t *testing.T) {
	h := newHarness(t, cMajorTreble())
	h.recorder.err = errors.New("disk full")
	ctx := context.Background()
	ex := h.sess.Exercise()
	if err := h.sess.Handle(ctx, NoteMsg{Event: model.NoteEvent{Kind: model.NoteOff, Pitch: int(ex.At(0))}}); err != nil {
		t.Fatalf("note off: %v", err)
	}
	if len(h.observer.progress) != 0 {
		t.Fatalf("note off must not notify progress")
	}
	for _, p := range ex.Pitches() {
		h.play(t, p)
	}
	if len(h.sess.History()) != 1 {
		t.Fatalf("history should still record when persistence fails")
	}
}

func TestSessionFocusWeakLoadsAggregates(t *testing.T) {
	cfg := cMajorTreble()
	cfg.FocusWeak = true
	cfg.WeakTop = 1
	cfg.WeakFactor = 50
	cfg.WeakWindow = 10
	weak := &staticWeak{aggs: []model.NoteAggregate{{Pitch: 65, Correct: 0, Incorrect: 5}}}
	sess := New(Options{
		Config:    cfg,
		Generator: generator.NewWithSeed(1),
		Weak:      weak,
		Logger:    log.New(io.Discard),
	})
	ctx := context.Background()
	if err := sess.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	hits := 0
	for i := 0; i < 50; i++ {
		for _, p := range sess.Exercise().Pitches() {
			if p == 65 {
				hits++
			}
		}
		if err := sess.Handle(ctx, SkipMsg{}); err != nil {
			t.Fatalf("skip: %v", err)
		}
	}
	if weak.calls != 51 {
		t.Fatalf("expected weak notes refreshed per exercise, got %d calls", weak.calls)
	}
	if hits < 40 {
		t.Fatalf("expected weak pitch in most exercises, got %d/50", hits)
	}
}

func TestSessionStartFailsOnInsufficientRange(t *testing.T) {
	cfg := cMajorTreble()
	cfg.Exercise.Length = 9
	sess := New(Options{Config: cfg, Logger: log.New(io.Discard)})
	err := sess.Start(context.Background())
	if !errors.Is(err, generator.ErrInsufficientRange) {
		t.Fatalf("expected insufficient range error, got %v", err)
	}
}

func TestTickerTimerTicksWithRun(t *testing.T) {
	ticks := make(chan Tick, 64)
	timer := NewTickerTimer(2*time.Millisecond, nil, func(tk Tick) {
		select {
		case ticks <- tk:
		default:
		}
	})
	timer.Start(7, time.Now())
	waitForTick(t, ticks, 7)
	timer.Start(8, time.Now())
	waitForTick(t, ticks, 8)
	timer.Stop()
	timer.Stop()
}

func TestTickerTimerStartReplacesPreviousRun(t *testing.T) {
	const interval = 5 * time.Millisecond
	ticks := make(chan Tick, 256)
	timer := NewTickerTimer(interval, nil, func(tk Tick) {
		select {
		case ticks <- tk:
		default:
		}
	})
	t.Cleanup(timer.Stop)

	timer.Start(7, time.Now())
	waitForTick(t, ticks, 7)
	timer.Start(8, time.Now())
	waitForTick(t, ticks, 8)
	// A send already past the cancel check may still land.
	drainTicks(ticks, 5*interval)

	deadline := time.After(10 * interval)
	seen8 := false
	for {
		select {
		case tk := <-ticks:
			if tk.Run != 8 {
				t.Fatalf("tick for replaced run %d after Start(8)", tk.Run)
			}
			seen8 = true
		case <-deadline:
			if !seen8 {
				t.Fatalf("run 8 stopped ticking")
			}
			return
		}
	}
}

func TestTickerTimerStopEndsTicks(t *testing.T) {
	const interval = 5 * time.Millisecond
	ticks := make(chan Tick, 256)
	timer := NewTickerTimer(interval, nil, func(tk Tick) {
		select {
		case ticks <- tk:
		default:
		}
	})

	timer.Start(3, time.Now())
	waitForTick(t, ticks, 3)
	timer.Stop()
	drainTicks(ticks, 5*interval)

	select {
	case tk := <-ticks:
		t.Fatalf("tick after Stop: %+v", tk)
	case <-time.After(10 * interval):
	}
}

func drainTicks(ticks <-chan Tick, d time.Duration) {
	deadline := time.After(d)
	for {
		select {
		case <-ticks:
		case <-deadline:
			return
		}
	}
}

func waitForTick(t *testing.T, ticks <-chan Tick, run int64) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case tk := <-ticks:
			if tk.Run == run {
				if tk.Elapsed < 0 {
					t.Fatalf("negative elapsed: %v", tk.Elapsed)
				}
				return
			}
		case <-deadline:
			t.Fatalf("no tick for run %d", run)
		}
	}
}
