// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/theory"
)

// EmptyAccuracy is reported before any note has been attempted.
const EmptyAccuracy = 0.0

const sparkChars = " .:-=+*#%@"

// Accuracy returns correct/attempted as a percentage, or EmptyAccuracy when
// nothing was attempted.
func Accuracy(correct, attempted int) float64 {
	if attempted <= 0 {
		return EmptyAccuracy
	}
	return float64(correct) / float64(attempted) * 100
}

// Clock reads a monotonic time source.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now, whose readings carry the monotonic clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// ElapsedSince returns the monotonic time since start, never negative.
func ElapsedSince(clock Clock, start time.Time) time.Duration {
	d := clock.Now().Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

// NotesPerMinute computes correct notes per minute for a session.
func NotesPerMinute(correct int, durationMs int64) float64 {
	if durationMs <= 0 {
		return 0
	}
	return float64(correct) / (float64(durationMs) / 60000.0)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Summary holds headline numbers over a set of sessions.
type Summary struct {
	Sessions     int
	AvgAccuracy  float64
	BestAccuracy float64
	AvgSeconds   float64
	BestSeconds  float64
	AvgNPM       float64
}

// Summarize computes headline numbers for sessions.
func Summarize(sessions []model.SessionAggregate) Summary {
	s := Summary{Sessions: len(sessions)}
	if len(sessions) == 0 {
		return s
	}
	var totalAcc, totalSec, totalNPM float64
	for i, sess := range sessions {
		secs := float64(sess.DurationMs) / 1000
		totalAcc += sess.Accuracy
		totalSec += secs
		totalNPM += NotesPerMinute(sess.Correct, sess.DurationMs)
		if sess.Accuracy > s.BestAccuracy {
			s.BestAccuracy = sess.Accuracy
		}
		if i == 0 || secs < s.BestSeconds {
			s.BestSeconds = secs
		}
	}
	count := float64(len(sessions))
	s.AvgAccuracy = totalAcc / count
	s.AvgSeconds = totalSec / count
	s.AvgNPM = totalNPM / count
	return s
}

// RenderSummary prints a summary for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	s := Summarize(sessions)
	accs := make([]float64, len(sessions))
	for i, sess := range sessions {
		accs[i] = sess.Accuracy
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Exercises: %d", s.Sessions),
		fmt.Sprintf("Avg Accuracy: %.2f%%", s.AvgAccuracy),
		fmt.Sprintf("Best Accuracy: %.2f%%", s.BestAccuracy),
		fmt.Sprintf("Avg Time: %.2fs", s.AvgSeconds),
		fmt.Sprintf("Best Time: %.2fs", s.BestSeconds),
		fmt.Sprintf("Avg Notes/min: %.1f", s.AvgNPM),
		fmt.Sprintf("Accuracy trend: [%s]", Sparkline(accs)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves prints learning curves for accuracy and time.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window int) error {
	return RenderCurvesWithSize(w, sessions, window, 0, defaultPlotHeight, false)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, sessions []model.SessionAggregate, window, totalWidth, height int, useColor bool) error {
	if len(sessions) == 0 {
		return nil
	}
	accs := make([]float64, len(sessions))
	secs := make([]float64, len(sessions))
	for i, s := range sessions {
		accs[i] = s.Accuracy
		secs[i] = float64(s.DurationMs) / 1000
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "Accuracy", Values: MovingAverage(accs, window)},
		{Name: "Seconds", Values: MovingAverage(secs, window)},
	}, width, height, useColor)
}

// NoteRow is one formatted line of the per-note table.
type NoteRow struct {
	Name      string
	Accuracy  float64
	LatencyMs float64
	Correct   int
	Incorrect int
}

// NoteRows converts aggregates into rows sorted by lowest accuracy.
func NoteRows(aggs []model.NoteAggregate) []NoteRow {
	rows := make([]NoteRow, 0, len(aggs))
	for _, agg := range aggs {
		rows = append(rows, NoteRow{
			Name:      PitchLabel(agg.Pitch),
			Accuracy:  noteAccuracy(agg),
			LatencyMs: avgLatency(agg),
			Correct:   agg.Correct,
			Incorrect: agg.Incorrect,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Accuracy == rows[j].Accuracy {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].Accuracy < rows[j].Accuracy
	})
	return rows
}

// RenderNoteTable prints per-note aggregates.
func RenderNoteTable(w io.Writer, aggs []model.NoteAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No note stats found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Per-Note"); err != nil {
		return err
	}
	headers := []string{"Note", "Accuracy", "Avg Latency (ms)", "Correct", "Incorrect"}
	var tableRows [][]string
	for _, r := range NoteRows(aggs) {
		tableRows = append(tableRows, []string{
			r.Name,
			fmt.Sprintf("%.2f%%", r.Accuracy),
			fmt.Sprintf("%.1f", r.LatencyMs),
			fmt.Sprintf("%d", r.Correct),
			fmt.Sprintf("%d", r.Incorrect),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, tableRows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// PitchLabel names a pitch for tables where no key is known.
func PitchLabel(pitch int) string {
	return fmt.Sprintf("%s (%d)", theory.Spell(theory.Pitch(pitch), theory.Key{}), pitch)
}

func noteAccuracy(agg model.NoteAggregate) float64 {
	return Accuracy(agg.Correct, agg.Correct+agg.Incorrect)
}

func avgLatency(agg model.NoteAggregate) float64 {
	if agg.LatencyCount <= 0 {
		return 0
	}
	return float64(agg.LatencySumMs) / float64(agg.LatencyCount)
}
