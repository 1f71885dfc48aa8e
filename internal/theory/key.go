package theory

import (
	"fmt"
	"sort"
	"strings"
)

// Letter is a natural note name, C through B.
type Letter int

// Natural letters in scale order starting at C.
const (
	LetterC Letter = iota
	LetterD
	LetterE
	LetterF
	LetterG
	LetterA
	LetterB
)

const letterCount = 7

var letterNames = [letterCount]string{"C", "D", "E", "F", "G", "A", "B"}

// naturalPitchClass is the pitch class of each unaltered letter.
var naturalPitchClass = [letterCount]int{0, 2, 4, 5, 7, 9, 11}

func (l Letter) String() string {
	if l < 0 || int(l) >= letterCount {
		return "?"
	}
	return letterNames[l]
}

// Accidental is a semitone alteration of a letter.
type Accidental int

// Accidentals used by major-key spellings.
const (
	Flat    Accidental = -1
	Natural Accidental = 0
	Sharp   Accidental = 1
)

func (a Accidental) String() string {
	switch a {
	case Flat:
		return "b"
	case Natural:
		return ""
	case Sharp:
		return "#"
	default:
		return "?"
	}
}

var majorSteps = [letterCount]int{0, 2, 4, 5, 7, 9, 11}

// Key is one of the 15 major key signatures, identified by its number of
// sharps (negative for flats).
type Key struct {
	sharps int
}

// Keys from seven flats to seven sharps.
const (
	minSharps = -7
	maxSharps = 7
)

// KeyFromSharps returns the key with the given signature.
func KeyFromSharps(n int) (Key, error) {
	if n < minSharps || n > maxSharps {
		return Key{}, fmt.Errorf("key signature %d out of range [%d,%d]", n, minSharps, maxSharps)
	}
	return Key{sharps: n}, nil
}

// AllKeys returns the 15 major keys ordered around the circle of fifths, C first.
func AllKeys() []Key {
	keys := make([]Key, 0, maxSharps-minSharps+1)
	keys = append(keys, Key{})
	for i := 1; i <= maxSharps; i++ {
		keys = append(keys, Key{sharps: i})
	}
	for i := -1; i >= minSharps; i-- {
		keys = append(keys, Key{sharps: i})
	}
	return keys
}

// Sharps returns the signature's sharp count, negative for flats.
func (k Key) Sharps() int {
	return k.sharps
}

// TonicLetter returns the letter of the key's tonic.
func (k Key) TonicLetter() Letter {
	return Letter(mod(4*k.sharps, letterCount))
}

// Tonic returns the tonic pitch class.
func (k Key) Tonic() int {
	return mod(7*k.sharps, pitchClassLen)
}

// TonicAccidental returns the accidental written on the tonic.
func (k Key) TonicAccidental() Accidental {
	return accidentalBetween(k.TonicLetter(), k.Tonic())
}

// Name is the canonical key name, e.g. "C", "F#", "Bb".
func (k Key) Name() string {
	return k.TonicLetter().String() + k.TonicAccidental().String()
}

func (k Key) String() string {
	return k.Name()
}

// ScalePitchClasses returns the seven scale-degree pitch classes, tonic first.
func (k Key) ScalePitchClasses() []int {
	out := make([]int, letterCount)
	tonic := k.Tonic()
	for i, step := range majorSteps {
		out[i] = (tonic + step) % pitchClassLen
	}
	return out
}

// Contains reports whether the pitch class is a scale degree of k.
func (k Key) Contains(pc int) bool {
	pc = mod(pc, pitchClassLen)
	for _, s := range k.ScalePitchClasses() {
		if s == pc {
			return true
		}
	}
	return false
}

// KeyByName finds a key by its canonical name. Matching ignores case of the
// accidental and accepts "♯"/"♭".
func KeyByName(name string) (Key, error) {
	normalized := normalizeKeyName(name)
	for _, k := range AllKeys() {
		if k.Name() == normalized {
			return k, nil
		}
	}
	return Key{}, fmt.Errorf("unknown key %q", name)
}

// ParseKeys parses a comma separated list of key names. Duplicates are dropped
// and the result is ordered by signature.
func ParseKeys(list string) ([]Key, error) {
	seen := map[int]struct{}{}
	var keys []Key
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.EqualFold(part, "all") {
			return AllKeys(), nil
		}
		k, err := KeyByName(part)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[k.sharps]; ok {
			continue
		}
		seen[k.sharps] = struct{}{}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no keys in %q", list)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].sharps < keys[j].sharps
	})
	return keys, nil
}

func normalizeKeyName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "♯", "#")
	name = strings.ReplaceAll(name, "♭", "b")
	name = strings.TrimSuffix(strings.TrimSuffix(name, " major"), "maj")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}

func accidentalBetween(l Letter, pc int) Accidental {
	diff := mod(pc-naturalPitchClass[l], pitchClassLen)
	if diff > pitchClassLen/2 {
		diff -= pitchClassLen
	}
	return Accidental(diff)
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
