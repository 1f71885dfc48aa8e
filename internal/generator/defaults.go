package generator

import (
	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/theory"
)

// Default exercise settings.
const (
	DefaultLength = 6
)

// DefaultRanges covers an octave around each clef's centre.
func DefaultRanges() map[theory.Clef]model.Range {
	return map[theory.Clef]model.Range{
		theory.Treble: {Min: 60, Max: 72},
		theory.Bass:   {Min: 48, Max: 60},
	}
}

// DefaultConfig returns the stock generator configuration.
func DefaultConfig() model.ExerciseConfig {
	return model.ExerciseConfig{
		Length:      DefaultLength,
		AllowAnyKey: true,
		Keys:        theory.AllKeys(),
		Clefs:       theory.Clefs(),
		Ranges:      DefaultRanges(),
		Order:       model.OrderAscending,
	}
}
