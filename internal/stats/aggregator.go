package stats

import (
	"time"

	"github.com/verte-zerg/tuinote/internal/model"
)

// Aggregator owns the cross-exercise history. Like the rest of a trainer
// session it expects calls from a single goroutine.
type Aggregator struct {
	clock   Clock
	history []model.SessionRecord
}

// NewAggregator returns an empty aggregator. A nil clock uses SystemClock.
func NewAggregator(clock Clock) *Aggregator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Aggregator{clock: clock}
}

// Load replaces the history, typically with records read from the store.
func (a *Aggregator) Load(records []model.SessionRecord) {
	a.history = append([]model.SessionRecord(nil), records...)
}

// CurrentAccuracy returns the live accuracy for the running exercise.
func (a *Aggregator) CurrentAccuracy(correct, attempted int) float64 {
	return Accuracy(correct, attempted)
}

// ElapsedSince measures time since start on the aggregator's clock.
func (a *Aggregator) ElapsedSince(start time.Time) time.Duration {
	return ElapsedSince(a.clock, start)
}

// RecordCompletion appends one finished exercise and returns the record.
func (a *Aggregator) RecordCompletion(accuracy float64, elapsed time.Duration) model.SessionRecord {
	rec := model.SessionRecord{Accuracy: accuracy, Seconds: elapsed.Seconds()}
	a.history = append(a.history, rec)
	return rec
}

// History returns a copy of the recorded sessions in completion order.
func (a *Aggregator) History() []model.SessionRecord {
	return append([]model.SessionRecord(nil), a.history...)
}

// Last returns the most recent record.
func (a *Aggregator) Last() (model.SessionRecord, bool) {
	if len(a.history) == 0 {
		return model.SessionRecord{}, false
	}
	return a.history[len(a.history)-1], true
}

// AllTime averages accuracy and seconds over the whole history.
func (a *Aggregator) AllTime() (accuracy, seconds float64) {
	if len(a.history) == 0 {
		return EmptyAccuracy, 0
	}
	for _, rec := range a.history {
		accuracy += rec.Accuracy
		seconds += rec.Seconds
	}
	n := float64(len(a.history))
	return accuracy / n, seconds / n
}
