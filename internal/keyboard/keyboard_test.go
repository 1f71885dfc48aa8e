package keyboard

import (
	"testing"
	"time"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/theory"
)

func TestPressMapsLayout(t *testing.T) {
	kb := New(theory.MiddleC)
	at := time.Unix(1, 0)
	tests := []struct {
		key   string
		pitch int
	}{
		{"a", 60},
		{"w", 61},
		{"s", 62},
		{"f", 65},
		{"k", 72},
		{"'", 77},
	}
	for _, tt := range tests {
		ev, isNote, handled := kb.Press(tt.key, at)
		if !isNote || !handled {
			t.Fatalf("%q: expected a note", tt.key)
		}
		want := model.NoteEvent{Kind: model.NoteOn, Pitch: tt.pitch, Velocity: DefaultVelocity, At: at, Source: Source}
		if ev != want {
			t.Fatalf("%q: got %+v, want %+v", tt.key, ev, want)
		}
	}
	if _, isNote, handled := kb.Press("q", at); isNote || handled {
		t.Fatalf("unbound key should not be handled")
	}
}

func TestOctaveShiftClamps(t *testing.T) {
	kb := New(ForClef(theory.Bass))
	if kb.Base() != 48 {
		t.Fatalf("bass base = %d", kb.Base())
	}
	if _, isNote, handled := kb.Press("x", time.Time{}); isNote || !handled {
		t.Fatalf("x should shift octave")
	}
	if kb.Base() != 60 {
		t.Fatalf("after x base = %d", kb.Base())
	}
	for i := 0; i < 20; i++ {
		kb.Press("z", time.Time{})
	}
	if kb.Base() != 0 {
		t.Fatalf("base should clamp at 0, got %d", kb.Base())
	}
	for i := 0; i < 20; i++ {
		kb.Press("x", time.Time{})
	}
	ev, _, _ := kb.Press("'", time.Time{})
	if ev.Pitch != 127 {
		t.Fatalf("top key should clamp to 127, got %d", ev.Pitch)
	}
}

func TestLegendSpellsInKey(t *testing.T) {
	flat, err := theory.KeyByName("F")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	legend := New(theory.MiddleC).Legend(flat)
	if legend[10] != [2]string{"u", "Bb4"} {
		t.Fatalf("unexpected legend entry: %v", legend[10])
	}
}
