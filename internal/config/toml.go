// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/theory"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Ranges   RangesConfig   `toml:"ranges"`
	Log      LogConfig      `toml:"log"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Length      *int     `toml:"length"`
	Keys        *string  `toml:"keys"`
	DefaultKey  *string  `toml:"default-key"`
	AllowAnyKey *bool    `toml:"allow-any-key"`
	Clefs       *string  `toml:"clefs"`
	Policy      *string  `toml:"policy"`
	Order       *string  `toml:"order"`
	MIDIIn      *string  `toml:"midi-in"`
	FocusWeak   *bool    `toml:"focus-weak"`
	WeakTop     *int     `toml:"weak-top"`
	WeakFactor  *float64 `toml:"weak-factor"`
	WeakWindow  *int     `toml:"weak-window"`
	Bell        *bool    `toml:"bell"`
}

// RangesConfig maps per-clef pitch ranges as MIDI note numbers.
type RangesConfig struct {
	TrebleMin *int `toml:"treble-min"`
	TrebleMax *int `toml:"treble-max"`
	BassMin   *int `toml:"bass-min"`
	BassMax   *int `toml:"bass-max"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Resolve overlays the configured ranges onto base and validates the result.
func (r RangesConfig) Resolve(base map[theory.Clef]model.Range) (map[theory.Clef]model.Range, error) {
	out := make(map[theory.Clef]model.Range, len(base))
	for clef, rng := range base {
		out[clef] = rng
	}
	overlay := func(clef theory.Clef, lo, hi *int) {
		rng := out[clef]
		if lo != nil {
			rng.Min = theory.Pitch(*lo)
		}
		if hi != nil {
			rng.Max = theory.Pitch(*hi)
		}
		out[clef] = rng
	}
	overlay(theory.Treble, r.TrebleMin, r.TrebleMax)
	overlay(theory.Bass, r.BassMin, r.BassMax)

	for _, clef := range theory.Clefs() {
		rng := out[clef]
		if !rng.Min.Valid() || !rng.Max.Valid() {
			return nil, fmt.Errorf("%s range %d-%d is outside MIDI 0-127", clef, rng.Min, rng.Max)
		}
		if rng.Min > rng.Max {
			return nil, fmt.Errorf("%s range min %d is above max %d", clef, rng.Min, rng.Max)
		}
	}
	return out, nil
}
