// Package keyboard maps computer keys to pitches for playing without a MIDI
// device.
package keyboard

import (
	"time"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/theory"
)

// Source tags events coming from the computer keyboard.
const Source = "keyboard"

// DefaultVelocity is used for every key press.
const DefaultVelocity = 100

// Home row plays white keys from C, the row above plays black keys.
var layout = []string{"a", "w", "s", "e", "d", "f", "t", "g", "y", "h", "u", "j", "k", "o", "l", "p", ";", "'"}

const (
	octaveDown = "z"
	octaveUp   = "x"
)

// Keyboard is a virtual piano over the QWERTY layout.
type Keyboard struct {
	base    theory.Pitch
	offsets map[string]int
}

// New returns a keyboard whose "a" key plays base.
func New(base theory.Pitch) *Keyboard {
	offsets := make(map[string]int, len(layout))
	for i, key := range layout {
		offsets[key] = i
	}
	k := &Keyboard{offsets: offsets}
	k.SetBase(base)
	return k
}

// ForClef returns the base pitch that covers a clef's default range.
func ForClef(clef theory.Clef) theory.Pitch {
	if clef == theory.Bass {
		return theory.MiddleC - 12
	}
	return theory.MiddleC
}

// Base returns the pitch of the "a" key.
func (k *Keyboard) Base() theory.Pitch {
	return k.base
}

// SetBase moves the keyboard, clamped so every key stays a valid pitch.
func (k *Keyboard) SetBase(base theory.Pitch) {
	top := theory.MaxPitch - theory.Pitch(len(layout)-1)
	if base < theory.MinPitch {
		base = theory.MinPitch
	}
	if base > top {
		base = top
	}
	k.base = base
}

// Press handles one key. It returns a note event for note keys, shifts the
// octave for z/x and reports handled=false for anything else.
func (k *Keyboard) Press(key string, at time.Time) (ev model.NoteEvent, isNote, handled bool) {
	switch key {
	case octaveDown:
		k.SetBase(k.base - 12)
		return model.NoteEvent{}, false, true
	case octaveUp:
		k.SetBase(k.base + 12)
		return model.NoteEvent{}, false, true
	}
	offset, ok := k.offsets[key]
	if !ok {
		return model.NoteEvent{}, false, false
	}
	return model.NoteEvent{
		Kind:     model.NoteOn,
		Pitch:    int(k.base) + offset,
		Velocity: DefaultVelocity,
		At:       at,
		Source:   Source,
	}, true, true
}

// Legend renders the note name under each key for the current octave.
func (k *Keyboard) Legend(key theory.Key) [][2]string {
	out := make([][2]string, len(layout))
	for i, binding := range layout {
		out[i] = [2]string{binding, theory.Spell(k.base+theory.Pitch(i), key).String()}
	}
	return out
}
