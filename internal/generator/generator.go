// Package generator builds randomized sight-reading exercises.
package generator

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/theory"
)

// ErrInsufficientRange is returned when a clef range holds fewer in-key
// pitches than the requested exercise length.
var ErrInsufficientRange = errors.New("insufficient pitch range")

// InsufficientRangeError describes the pool that was too small.
type InsufficientRangeError struct {
	Key       theory.Key
	Clef      theory.Clef
	Range     model.Range
	Requested int
	Available int
}

func (e *InsufficientRangeError) Error() string {
	return fmt.Sprintf("%s %s range [%d,%d] has %d in-key pitches, need %d",
		e.Key.Name(), e.Clef, e.Range.Min, e.Range.Max, e.Available, e.Requested)
}

// Unwrap lets errors.Is match ErrInsufficientRange.
func (e *InsufficientRangeError) Unwrap() error {
	return ErrInsufficientRange
}

// Request carries per-call overrides. Nil fields are chosen at random.
type Request struct {
	Key        *theory.Key
	Clef       *theory.Clef
	Weak       map[theory.Pitch]struct{}
	WeakFactor float64
}

// Generator produces randomized exercises.
type Generator struct {
	rnd    *rand.Rand
	nextID int64
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate draws a new exercise. It never returns a partial exercise: either
// all pitches are distinct, in key, in range and exactly cfg.Length long, or an
// error is returned.
func (g *Generator) Generate(cfg model.ExerciseConfig, req Request) (model.Exercise, error) {
	if cfg.Length < 2 {
		return model.Exercise{}, fmt.Errorf("exercise length must be >= 2, got %d", cfg.Length)
	}
	clef, err := g.pickClef(cfg, req)
	if err != nil {
		return model.Exercise{}, err
	}
	key, err := g.pickKey(cfg, req)
	if err != nil {
		return model.Exercise{}, err
	}
	rng, ok := cfg.Ranges[clef]
	if !ok {
		return model.Exercise{}, fmt.Errorf("no pitch range configured for %s clef", clef)
	}

	pool := Pool(key, rng)
	if len(pool) < cfg.Length {
		return model.Exercise{}, &InsufficientRangeError{
			Key:       key,
			Clef:      clef,
			Range:     rng,
			Requested: cfg.Length,
			Available: len(pool),
		}
	}

	var picked []theory.Pitch
	if len(req.Weak) > 0 && req.WeakFactor > 0 {
		picked = g.drawWeighted(pool, cfg.Length, req.Weak, req.WeakFactor)
	} else {
		picked = g.draw(pool, cfg.Length)
	}
	if cfg.Order == model.OrderAscending {
		sort.Slice(picked, func(i, j int) bool { return picked[i] < picked[j] })
	}

	g.nextID++
	return model.NewExercise(g.nextID, picked, clef, key), nil
}

func (g *Generator) pickClef(cfg model.ExerciseConfig, req Request) (theory.Clef, error) {
	if req.Clef != nil {
		return *req.Clef, nil
	}
	clefs := cfg.Clefs
	if len(clefs) == 0 {
		clefs = theory.Clefs()
	}
	return clefs[g.rnd.Intn(len(clefs))], nil
}

func (g *Generator) pickKey(cfg model.ExerciseConfig, req Request) (theory.Key, error) {
	if req.Key != nil {
		return *req.Key, nil
	}
	if !cfg.AllowAnyKey {
		return cfg.DefaultKey, nil
	}
	if len(cfg.Keys) == 0 {
		return theory.Key{}, fmt.Errorf("no key signatures enabled")
	}
	return cfg.Keys[g.rnd.Intn(len(cfg.Keys))], nil
}

// draw picks count pitches uniformly without replacement.
func (g *Generator) draw(pool []theory.Pitch, count int) []theory.Pitch {
	remaining := append([]theory.Pitch(nil), pool...)
	result := make([]theory.Pitch, 0, count)
	for i := 0; i < count; i++ {
		idx := g.rnd.Intn(len(remaining))
		result = append(result, remaining[idx])
		remaining[idx] = remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
	}
	return result
}

// drawWeighted picks without replacement, biased toward weak pitches.
func (g *Generator) drawWeighted(pool []theory.Pitch, count int, weak map[theory.Pitch]struct{}, factor float64) []theory.Pitch {
	remaining := append([]theory.Pitch(nil), pool...)
	weights := make([]float64, len(remaining))
	total := 0.0
	for i, p := range remaining {
		w := 1.0
		if _, ok := weak[p]; ok {
			w += factor
		}
		weights[i] = w
		total += w
	}

	result := make([]theory.Pitch, 0, count)
	for i := 0; i < count; i++ {
		r := g.rnd.Float64() * total
		acc := 0.0
		idx := len(remaining) - 1
		for j, w := range weights {
			acc += w
			if r <= acc {
				idx = j
				break
			}
		}
		result = append(result, remaining[idx])
		total -= weights[idx]
		last := len(remaining) - 1
		remaining[idx], weights[idx] = remaining[last], weights[last]
		remaining, weights = remaining[:last], weights[:last]
	}
	return result
}

// Pool returns the ascending in-key pitches within r.
func Pool(k theory.Key, r model.Range) []theory.Pitch {
	var pool []theory.Pitch
	for p := r.Min; p <= r.Max; p++ {
		if !p.Valid() {
			continue
		}
		if k.Contains(theory.PitchClass(p)) {
			pool = append(pool, p)
		}
	}
	return pool
}

// ValidateConfig rejects configurations that could fail at generation time.
func ValidateConfig(cfg model.ExerciseConfig) error {
	if cfg.Length < 2 {
		return fmt.Errorf("exercise length must be >= 2, got %d", cfg.Length)
	}
	clefs := cfg.Clefs
	if len(clefs) == 0 {
		clefs = theory.Clefs()
	}
	keys := cfg.Keys
	if !cfg.AllowAnyKey {
		keys = []theory.Key{cfg.DefaultKey}
	}
	if len(keys) == 0 {
		return fmt.Errorf("no key signatures enabled")
	}
	var errs error
	for _, clef := range clefs {
		rng, ok := cfg.Ranges[clef]
		if !ok {
			return fmt.Errorf("no pitch range configured for %s clef", clef)
		}
		if rng.Min > rng.Max || !rng.Min.Valid() || !rng.Max.Valid() {
			return fmt.Errorf("invalid %s range [%d,%d]", clef, rng.Min, rng.Max)
		}
		for _, k := range keys {
			if n := len(Pool(k, rng)); n < cfg.Length {
				errs = errors.Join(errs, &InsufficientRangeError{
					Key: k, Clef: clef, Range: rng, Requested: cfg.Length, Available: n,
				})
			}
		}
	}
	return errs
}
