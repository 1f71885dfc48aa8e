package stats

import (
	"sort"

	"github.com/verte-zerg/tuinote/internal/model"
)

// TopPitchesByFrequency returns the N most practised pitches.
func TopPitchesByFrequency(aggs []model.NoteAggregate, n int) []int {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	items := append([]model.NoteAggregate(nil), aggs...)
	sort.Slice(items, func(i, j int) bool {
		ti := items[i].Correct + items[i].Incorrect
		tj := items[j].Correct + items[j].Incorrect
		if ti == tj {
			return items[i].Pitch < items[j].Pitch
		}
		return ti > tj
	})
	if n > len(items) {
		n = len(items)
	}
	out := make([]int, 0, n)
	for _, it := range items[:n] {
		out = append(out, it.Pitch)
	}
	return out
}
