package stats

import (
	"testing"

	"github.com/verte-zerg/tuinote/internal/model"
)

func TestTopPitchesByFrequency(t *testing.T) {
	aggs := []model.NoteAggregate{
		{Pitch: 62, Correct: 3, Incorrect: 1},
		{Pitch: 60, Correct: 2, Incorrect: 2},
		{Pitch: 64, Correct: 1, Incorrect: 0},
	}
	top := TopPitchesByFrequency(aggs, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 pitches, got %d", len(top))
	}
	if top[0] != 60 || top[1] != 62 {
		t.Fatalf("unexpected order: %v", top)
	}
}
