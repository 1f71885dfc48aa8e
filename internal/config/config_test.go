package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/theory"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Practice.Length != nil || cfg.Ranges.TrebleMin != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigValues(t *testing.T) {
	path := writeConfig(t, `
[practice]
length = 5
keys = "C, G, Bb"
allow-any-key = false
default-key = "F"
policy = "lenient"
order = "random"
focus-weak = true
weak-factor = 1.5
bell = true

[ranges]
treble-min = 64
bass-max = 55

[log]
level = "debug"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	p := cfg.Practice
	if p.Length == nil || *p.Length != 5 {
		t.Fatalf("unexpected length: %v", p.Length)
	}
	if p.Keys == nil || *p.Keys != "C, G, Bb" {
		t.Fatalf("unexpected keys: %v", p.Keys)
	}
	if p.AllowAnyKey == nil || *p.AllowAnyKey {
		t.Fatalf("unexpected allow-any-key: %v", p.AllowAnyKey)
	}
	if p.Policy == nil || *p.Policy != "lenient" || p.Order == nil || *p.Order != "random" {
		t.Fatalf("unexpected policies: %+v", p)
	}
	if p.WeakFactor == nil || *p.WeakFactor != 1.5 {
		t.Fatalf("unexpected weak factor: %v", p.WeakFactor)
	}
	if p.Bell == nil || !*p.Bell {
		t.Fatalf("unexpected bell: %v", p.Bell)
	}
	if cfg.Ranges.TrebleMin == nil || *cfg.Ranges.TrebleMin != 64 || cfg.Ranges.TrebleMax != nil {
		t.Fatalf("unexpected ranges: %+v", cfg.Ranges)
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level: %v", cfg.Log.Level)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[practice]\nwords = 25\n")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "practice.words") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestRangesResolve(t *testing.T) {
	base := map[theory.Clef]model.Range{
		theory.Treble: {Min: 60, Max: 72},
		theory.Bass:   {Min: 48, Max: 60},
	}
	lo, hi := 55, 79
	got, err := RangesConfig{TrebleMin: &lo, TrebleMax: &hi}.Resolve(base)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got[theory.Treble] != (model.Range{Min: 55, Max: 79}) || got[theory.Bass] != base[theory.Bass] {
		t.Fatalf("unexpected ranges: %+v", got)
	}
	if base[theory.Treble].Min != 60 {
		t.Fatalf("base map must not be modified")
	}

	bad := 40
	if _, err := (RangesConfig{BassMax: &bad}).Resolve(base); err == nil {
		t.Fatalf("expected error when min > max")
	}
	tooHigh := 128
	if _, err := (RangesConfig{TrebleMax: &tooHigh}).Resolve(base); err == nil {
		t.Fatalf("expected error for pitch above 127")
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "cfg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	if got := DefaultConfigPath(); got != filepath.Join(dir, "cfg", "tuinote", "config.toml") {
		t.Fatalf("config path = %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join(dir, "data", "tuinote", "tuinote.db") {
		t.Fatalf("db path = %s", got)
	}
	if got := DefaultLogPath(); got != filepath.Join(dir, "state", "tuinote", "tuinote.log") {
		t.Fatalf("log path = %s", got)
	}
}
