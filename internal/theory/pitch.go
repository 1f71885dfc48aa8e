// Package theory maps MIDI pitches to key-aware note spellings.
package theory

import (
	"fmt"
	"strings"
)

// Pitch is a MIDI note number.
type Pitch int

// Piano range and MIDI bounds.
const (
	MinPitch      Pitch = 0
	MaxPitch      Pitch = 127
	PianoLowest   Pitch = 21
	PianoHighest  Pitch = 108
	MiddleC       Pitch = 60
	pitchClassLen       = 12
)

// Valid reports whether p is inside the MIDI domain.
func (p Pitch) Valid() bool {
	return p >= MinPitch && p <= MaxPitch
}

// PitchClass returns p mod 12.
func PitchClass(p Pitch) int {
	pc := int(p) % pitchClassLen
	if pc < 0 {
		pc += pitchClassLen
	}
	return pc
}

// Octave returns the MIDI octave of p, where middle C (60) is octave 4.
func Octave(p Pitch) int {
	n := int(p)
	if n < 0 {
		return (n-(pitchClassLen-1))/pitchClassLen - 1
	}
	return n/pitchClassLen - 1
}

// Clef selects the staff a generated exercise is written for.
type Clef int

// Supported clefs.
const (
	Treble Clef = iota
	Bass
)

// Clefs lists every supported clef.
func Clefs() []Clef {
	return []Clef{Treble, Bass}
}

func (c Clef) String() string {
	switch c {
	case Treble:
		return "treble"
	case Bass:
		return "bass"
	default:
		return fmt.Sprintf("clef(%d)", int(c))
	}
}

// ParseClef parses "treble" or "bass".
func ParseClef(s string) (Clef, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "treble", "g":
		return Treble, nil
	case "bass", "f":
		return Bass, nil
	default:
		return 0, fmt.Errorf("unknown clef %q (expected treble or bass)", s)
	}
}
