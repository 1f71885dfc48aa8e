package generator

import (
	"errors"
	"testing"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/theory"
)

func TestGenerateProperties(t *testing.T) {
	gen := NewWithSeed(42)
	cfg := DefaultConfig()
	for i := 0; i < 500; i++ {
		ex, err := gen.Generate(cfg, Request{})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if ex.Len() != cfg.Length {
			t.Fatalf("expected length %d, got %d", cfg.Length, ex.Len())
		}
		rng := cfg.Ranges[ex.Clef()]
		seen := map[theory.Pitch]struct{}{}
		for j, p := range ex.Pitches() {
			if _, dup := seen[p]; dup {
				t.Fatalf("duplicate pitch %d in %v", p, ex.Pitches())
			}
			seen[p] = struct{}{}
			if !rng.Contains(p) {
				t.Fatalf("pitch %d outside %s range %+v", p, ex.Clef(), rng)
			}
			if !ex.Key().Contains(theory.PitchClass(p)) {
				t.Fatalf("pitch %d not in key %s", p, ex.Key())
			}
			if j > 0 && ex.At(j-1) >= p {
				t.Fatalf("expected ascending order: %v", ex.Pitches())
			}
		}
	}
}

func TestGenerateCMajorTreble(t *testing.T) {
	gen := NewWithSeed(7)
	cfg := DefaultConfig()
	cfg.Length = 4
	key, _ := theory.KeyByName("C")
	clef := theory.Treble
	allowed := map[theory.Pitch]bool{60: true, 62: true, 64: true, 65: true, 67: true, 69: true, 71: true, 72: true}

	ex, err := gen.Generate(cfg, Request{Key: &key, Clef: &clef})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ex.Len() != 4 || ex.Key().Name() != "C" || ex.Clef() != theory.Treble {
		t.Fatalf("unexpected exercise: %v %s %s", ex.Pitches(), ex.Key(), ex.Clef())
	}
	for _, p := range ex.Pitches() {
		if !allowed[p] {
			t.Fatalf("pitch %d not in C major treble set", p)
		}
	}
}

func TestGenerateInsufficientRange(t *testing.T) {
	gen := NewWithSeed(1)
	cfg := DefaultConfig()
	cfg.Length = 9
	key, _ := theory.KeyByName("C")
	clef := theory.Treble

	ex, err := gen.Generate(cfg, Request{Key: &key, Clef: &clef})
	if err == nil {
		t.Fatalf("expected error, got exercise %v", ex.Pitches())
	}
	if !errors.Is(err, ErrInsufficientRange) {
		t.Fatalf("expected ErrInsufficientRange, got %v", err)
	}
	var rangeErr *InsufficientRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected *InsufficientRangeError, got %T", err)
	}
	if rangeErr.Available != 8 || rangeErr.Requested != 9 {
		t.Fatalf("unexpected pool sizes: %+v", rangeErr)
	}
	if ex.Len() != 0 {
		t.Fatalf("expected empty exercise on error")
	}
}

func TestGenerateRandomOrderKeepsDrawOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Length = 7
	cfg.Order = model.OrderRandom
	key, _ := theory.KeyByName("G")
	clef := theory.Bass

	unsorted := false
	gen := NewWithSeed(3)
	for i := 0; i < 50 && !unsorted; i++ {
		ex, err := gen.Generate(cfg, Request{Key: &key, Clef: &clef})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		for j := 1; j < ex.Len(); j++ {
			if ex.At(j) < ex.At(j-1) {
				unsorted = true
				break
			}
		}
	}
	if !unsorted {
		t.Fatalf("expected at least one unsorted exercise with random order")
	}
}

func TestGenerateDefaultKeyWhenAnyKeyDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowAnyKey = false
	cfg.DefaultKey, _ = theory.KeyByName("Eb")
	gen := NewWithSeed(9)
	for i := 0; i < 20; i++ {
		ex, err := gen.Generate(cfg, Request{})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if ex.Key().Name() != "Eb" {
			t.Fatalf("expected Eb, got %s", ex.Key())
		}
	}
}

func TestGenerateWeightedStillValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Length = 4
	key, _ := theory.KeyByName("C")
	clef := theory.Treble
	weak := map[theory.Pitch]struct{}{65: {}}
	gen := NewWithSeed(11)

	hits := 0
	for i := 0; i < 200; i++ {
		ex, err := gen.Generate(cfg, Request{Key: &key, Clef: &clef, Weak: weak, WeakFactor: 20})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		seen := map[theory.Pitch]bool{}
		for _, p := range ex.Pitches() {
			if seen[p] {
				t.Fatalf("duplicate pitch in weighted draw: %v", ex.Pitches())
			}
			seen[p] = true
		}
		if seen[65] {
			hits++
		}
	}
	// Uniform draws would include F4 in half of the exercises.
	if hits < 150 {
		t.Fatalf("expected weak pitch to be favoured, got %d/200", hits)
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	cfg.Length = 8
	err := ValidateConfig(cfg)
	if !errors.Is(err, ErrInsufficientRange) {
		t.Fatalf("expected insufficient range for length 8 across all keys, got %v", err)
	}
	cfg.Keys, _ = theory.ParseKeys("C")
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("C major has 8 pitches per octave span: %v", err)
	}
}

func TestExerciseIDsIncrease(t *testing.T) {
	gen := NewWithSeed(5)
	cfg := DefaultConfig()
	a, _ := gen.Generate(cfg, Request{})
	b, _ := gen.Generate(cfg, Request{})
	if b.ID() <= a.ID() {
		t.Fatalf("expected increasing ids, got %d then %d", a.ID(), b.ID())
	}
}
