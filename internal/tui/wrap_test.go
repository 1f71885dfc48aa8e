package tui

import (
	"strings"
	"testing"
)

func TestBuildStaffTokensCursor(t *testing.T) {
	tokens := buildStaffTokens([]string{"C4", "E4"}, 1, -1)
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
	if tokens[0].s != correctStyle.Render("C4") {
		t.Fatalf("expected correct style for played note")
	}
	if !tokens[1].isSpace || tokens[1].width != len(noteGap) {
		t.Fatalf("expected gap token between notes")
	}
	if tokens[2].s != cursorStyle.Render("E4") {
		t.Fatalf("expected cursor style for next note")
	}
}

func TestBuildStaffTokensNoCursorWhenComplete(t *testing.T) {
	tokens := buildStaffTokens([]string{"C4"}, 1, -1)
	if tokens[0].s != correctStyle.Render("C4") {
		t.Fatalf("expected correct style for completed note")
	}
}

func TestBuildStaffTokensMarksWrongNote(t *testing.T) {
	// Lenient: the wrong position is the cursor.
	tokens := buildStaffTokens([]string{"D4", "F#4", "A4"}, 1, 1)
	if tokens[2].s != incorrectStyle.Underline(true).Render("F#4") {
		t.Fatalf("expected wrong style with cursor underline")
	}
	// Strict: cursor went back to the start, the wrong note stays red.
	tokens = buildStaffTokens([]string{"D4", "F#4", "A4"}, 0, 1)
	if tokens[0].s != cursorStyle.Render("D4") {
		t.Fatalf("expected cursor on first note after strict restart")
	}
	if tokens[2].s != incorrectStyle.Render("F#4") {
		t.Fatalf("expected wrong style to persist")
	}
	if tokens[4].s != pendingStyle.Render("A4") {
		t.Fatalf("expected pending style for later note")
	}
}

func TestWrapTokensBreaksAtGaps(t *testing.T) {
	names := []string{"C4", "D4", "E4", "F4", "G4"}
	tokens := make([]styledToken, 0, len(names)*2)
	for i, n := range names {
		if i > 0 {
			tokens = append(tokens, styledToken{s: noteGap, width: len(noteGap), isSpace: true})
		}
		tokens = append(tokens, styledToken{s: n, width: len(n)})
	}
	out := wrapTokens(tokens, 10)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out)
	}
	if lines[0] != "C4  D4  E4" || lines[1] != "F4  G4" {
		t.Fatalf("unexpected wrap: %q", lines)
	}
}

func TestWrapTokensNoWidth(t *testing.T) {
	tokens := []styledToken{{s: "C4", width: 2}, {s: noteGap, width: 2, isSpace: true}, {s: "D4", width: 2}}
	if got := wrapTokens(tokens, 0); got != "C4  D4" {
		t.Fatalf("unexpected output %q", got)
	}
}
