package session

import (
	"context"
	"sync"
	"time"

	"github.com/verte-zerg/tuinote/internal/stats"
)

// DefaultTickInterval is how often a TickerTimer reports elapsed time.
const DefaultTickInterval = 100 * time.Millisecond

// Tick reports elapsed time for one timing run. Every start or reset of an
// exercise begins a new run; renderers drop ticks whose Run is not current.
type Tick struct {
	Run     int64
	Elapsed time.Duration
}

// ElapsedTimer drives periodic elapsed-time updates for the running exercise.
type ElapsedTimer interface {
	Start(run int64, start time.Time)
	Stop()
}

// TickerTimer is an ElapsedTimer backed by time.Ticker.
type TickerTimer struct {
	interval time.Duration
	clock    stats.Clock
	send     func(Tick)

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewTickerTimer returns a timer calling send on every tick. send runs on the
// timer's goroutine.
func NewTickerTimer(interval time.Duration, clock stats.Clock, send func(Tick)) *TickerTimer {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if clock == nil {
		clock = stats.SystemClock{}
	}
	return &TickerTimer{interval: interval, clock: clock, send: send}
}

// Start implements ElapsedTimer. A running ticker is cancelled first.
func (t *TickerTimer) Start(run int64, start time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				t.send(Tick{Run: run, Elapsed: stats.ElapsedSince(t.clock, start)})
			}
		}
	}()
}

// Stop implements ElapsedTimer. It does not wait for an in-flight send.
func (t *TickerTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *TickerTimer) stopLocked() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	t.cancel = nil
}

type nopTimer struct{}

func (nopTimer) Start(int64, time.Time) {}
func (nopTimer) Stop()                  {}
