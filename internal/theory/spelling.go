package theory

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
)

// Spelling is the written name of a pitch: letter, accidental and octave.
type Spelling struct {
	Letter     Letter
	Accidental Accidental
	Octave     int
}

func (s Spelling) String() string {
	return s.Name() + strconv.Itoa(s.Octave)
}

// Name returns the spelling without the octave, e.g. "F#".
func (s Spelling) Name() string {
	return s.Letter.String() + s.Accidental.String()
}

// PitchClass returns the pitch class the spelling sounds.
func (s Spelling) PitchClass() int {
	return mod(naturalPitchClass[s.Letter]+int(s.Accidental), pitchClassLen)
}

type spellEntry struct {
	letter     Letter
	accidental Accidental
	ok         bool
}

type spellTable [pitchClassLen]spellEntry

// spellings is indexed by sharps-minSharps and built once at init.
var spellings [maxSharps - minSharps + 1]spellTable

func init() {
	for _, k := range AllKeys() {
		spellings[k.sharps-minSharps] = buildSpellTable(k)
	}
}

func buildSpellTable(k Key) spellTable {
	var t spellTable
	tonicLetter := k.TonicLetter()
	for i, pc := range k.ScalePitchClasses() {
		l := Letter((int(tonicLetter) + i) % letterCount)
		t[pc] = spellEntry{letter: l, accidental: accidentalBetween(l, pc), ok: true}
	}
	for pc := 0; pc < pitchClassLen; pc++ {
		if t[pc].ok {
			continue
		}
		t[pc] = chromaticSpelling(pc, k.sharps < 0)
	}
	return t
}

// chromaticSpelling spells a non-scale tone: naturals stay natural, black keys
// take flats in flat keys and sharps otherwise.
func chromaticSpelling(pc int, flats bool) spellEntry {
	for l, n := range naturalPitchClass {
		if n == pc {
			return spellEntry{letter: Letter(l), accidental: Natural, ok: true}
		}
	}
	if flats {
		return spellEntry{letter: letterFor(pc + 1), accidental: Flat, ok: true}
	}
	return spellEntry{letter: letterFor(pc - 1), accidental: Sharp, ok: true}
}

func letterFor(pc int) Letter {
	pc = mod(pc, pitchClassLen)
	for l, n := range naturalPitchClass {
		if n == pc {
			return Letter(l)
		}
	}
	return LetterC
}

// Spell returns the conventional spelling of p in key k. A missing table entry
// is logged and answered with gomidi's default name for the pitch class.
func Spell(p Pitch, k Key) Spelling {
	pc := PitchClass(p)
	entry := spellings[k.sharps-minSharps][pc]
	if !entry.ok {
		fallback := fallbackSpelling(p)
		log.Warn("missing spelling, using default name", "key", k.Name(), "pitch", int(p), "name", fallback.String())
		return fallback
	}
	return Spelling{
		Letter:     entry.letter,
		Accidental: entry.accidental,
		Octave:     writtenOctave(p, entry.letter, entry.accidental),
	}
}

// SpellAll spells every pitch of a sequence in k.
func SpellAll(pitches []Pitch, k Key) []Spelling {
	out := make([]Spelling, len(pitches))
	for i, p := range pitches {
		out[i] = Spell(p, k)
	}
	return out
}

func fallbackSpelling(p Pitch) Spelling {
	name := midi.Note(uint8(PitchClass(p))).Name()
	s := Spelling{Letter: letterFor(PitchClass(p))}
	if name != "" {
		for i, ln := range letterNames {
			if ln == name[:1] {
				s.Letter = Letter(i)
				break
			}
		}
	}
	s.Accidental = accidentalBetween(s.Letter, PitchClass(p))
	s.Octave = writtenOctave(p, s.Letter, s.Accidental)
	return s
}

// writtenOctave keeps the octave with the letter: B#3 sounds as 60, Cb5 as 71.
func writtenOctave(p Pitch, l Letter, a Accidental) int {
	octave := Octave(p)
	sum := naturalPitchClass[l] + int(a)
	switch {
	case sum >= pitchClassLen:
		return octave - 1
	case sum < 0:
		return octave + 1
	default:
		return octave
	}
}

// ValidateSpellings checks that every key has a well-formed spelling for all
// twelve pitch classes and that each spelling sounds its pitch class.
func ValidateSpellings() error {
	var errs error
	for _, k := range AllKeys() {
		table := spellings[k.sharps-minSharps]
		for pc := 0; pc < pitchClassLen; pc++ {
			entry := table[pc]
			if !entry.ok {
				errs = errors.Join(errs, fmt.Errorf("key %s: no spelling for pitch class %d", k.Name(), pc))
				continue
			}
			if entry.letter < 0 || int(entry.letter) >= letterCount || entry.accidental < Flat || entry.accidental > Sharp {
				errs = errors.Join(errs, fmt.Errorf("key %s: malformed spelling for pitch class %d", k.Name(), pc))
				continue
			}
			sp := Spelling{Letter: entry.letter, Accidental: entry.accidental}
			if sp.PitchClass() != pc {
				errs = errors.Join(errs, fmt.Errorf("key %s: %s does not sound pitch class %d", k.Name(), sp.Name(), pc))
			}
		}
	}
	return errs
}
