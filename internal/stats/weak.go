package stats

import (
	"sort"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/theory"
)

// SelectWeakPitches selects the lowest-accuracy pitches from aggregates.
func SelectWeakPitches(aggs []model.NoteAggregate, top int) map[theory.Pitch]struct{} {
	weak := map[theory.Pitch]struct{}{}
	if len(aggs) == 0 {
		return weak
	}
	candidates := append([]model.NoteAggregate(nil), aggs...)
	sort.Slice(candidates, func(i, j int) bool {
		ai := weakAccuracy(candidates[i])
		aj := weakAccuracy(candidates[j])
		if ai == aj {
			return candidates[i].Pitch < candidates[j].Pitch
		}
		return ai < aj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for _, c := range candidates[:top] {
		weak[theory.Pitch(c.Pitch)] = struct{}{}
	}
	return weak
}

// Unseen notes count as perfect so they are never picked as weak.
func weakAccuracy(agg model.NoteAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 100
	}
	return Accuracy(agg.Correct, total)
}
