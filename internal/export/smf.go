// Package export writes exercises and history to files other tools can read.
package export

import (
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/verte-zerg/tuinote/internal/model"
)

// DefaultBPM is the tempo used when none is given.
const DefaultBPM = 60.0

const (
	exportChannel  = 0
	exportVelocity = 90
)

// ExerciseSMF renders an exercise as a single-track Standard MIDI File with
// one quarter note per pitch.
func ExerciseSMF(ex model.Exercise, bpm float64) (*smf.SMF, error) {
	if ex.Len() == 0 {
		return nil, errors.New("exercise is empty")
	}
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	file := smf.New()
	quarter := file.TimeFormat.(smf.MetricTicks).Ticks4th()

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(fmt.Sprintf("%s %s #%d", ex.Key().Name(), ex.Clef(), ex.ID())))
	track.Add(0, smf.MetaTempo(bpm))
	for _, p := range ex.Pitches() {
		track.Add(0, midi.NoteOn(exportChannel, uint8(p), exportVelocity))
		track.Add(quarter, midi.NoteOff(exportChannel, uint8(p)))
	}
	track.Close(0)
	if err := file.Add(track); err != nil {
		return nil, fmt.Errorf("add track: %w", err)
	}
	return file, nil
}

// WriteSMF saves an exercise to path as a MIDI file.
func WriteSMF(path string, ex model.Exercise, bpm float64) error {
	file, err := ExerciseSMF(ex, bpm)
	if err != nil {
		return err
	}
	if err := file.WriteFile(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
