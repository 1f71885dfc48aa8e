package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "tuinote.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		end := start.Add(30 * time.Second)
		sess := model.SessionStats{
			StartedAt:  start,
			EndedAt:    end,
			Key:        "D",
			Clef:       "treble",
			Length:     2,
			Policy:     "strict",
			Correct:    2,
			Attempted:  3,
			Accuracy:   Accuracy(2, 3),
			DurationMs: end.Sub(start).Milliseconds(),
		}
		notes := []model.NoteStats{
			{Pitch: 62, Name: "D4", Correct: 1},
			{Pitch: 66, Name: "F#4", Correct: 1, Incorrect: 1},
		}
		id, err := st.InsertSession(ctx, sess, notes)
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, id)
	}

	report, err := BuildReport(ctx, st, model.StatsConfig{Key: "D", Last: 2, CurveWindow: 1})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SessionID != ids[1] || report.Sessions[1].SessionID != ids[2] {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if len(report.WindowSessionIDs) != 1 || report.WindowSessionIDs[0] != ids[2] {
		t.Fatalf("unexpected window ids: %v", report.WindowSessionIDs)
	}
	for _, agg := range report.NoteAggsAll {
		if agg.Pitch == 66 && agg.Incorrect != 2 {
			t.Fatalf("expected 2 misses on F#4 across last two sessions, got %+v", agg)
		}
	}
	if len(report.NoteAggsWindow) != 2 {
		t.Fatalf("expected 2 window aggregates, got %d", len(report.NoteAggsWindow))
	}
	records := report.Records()
	if len(records) != 2 || records[1].Seconds != 30 {
		t.Fatalf("unexpected records: %+v", records)
	}
}
