package statsui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/stats"
)

type fakeSource struct {
	report stats.Report
	err    error
	cfgs   []model.StatsConfig
}

func (f *fakeSource) Report(_ context.Context, cfg model.StatsConfig) (stats.Report, error) {
	f.cfgs = append(f.cfgs, cfg)
	return f.report, f.err
}

func sampleReport() stats.Report {
	sessions := []model.SessionAggregate{
		{SessionID: 1, EndedAt: time.Unix(60, 0), Key: "G", Clef: "treble", Correct: 6, Attempted: 8, Accuracy: 75, DurationMs: 12000},
		{SessionID: 2, EndedAt: time.Unix(120, 0), Key: "G", Clef: "treble", Correct: 6, Attempted: 6, Accuracy: 100, DurationMs: 8000},
	}
	aggs := []model.NoteAggregate{
		{Pitch: 66, Correct: 2, Incorrect: 2},
		{Pitch: 67, Correct: 4},
	}
	return stats.Report{
		Sessions:         sessions,
		WindowSessionIDs: []int64{1, 2},
		NoteAggsAll:      aggs,
		NoteAggsWindow:   aggs,
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelRendersTabs(t *testing.T) {
	src := &fakeSource{report: sampleReport()}
	m := NewModel(src, model.StatsConfig{CurveWindow: 5})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	view := m.View()
	if !strings.Contains(view, "Exercises") || !strings.Contains(view, "87.5%") {
		t.Fatalf("overview missing summary:\n%s", view)
	}

	m.Update(key("l"))
	if m.activeTab != tabNoteTable {
		t.Fatalf("expected note table tab, got %d", m.activeTab)
	}
	if view := m.View(); !strings.Contains(view, "F#4 (66)") {
		t.Fatalf("note table missing F#4:\n%s", view)
	}

	m.Update(key("l"))
	if view := m.View(); !strings.Contains(view, "Weakest notes") {
		t.Fatalf("weak notes tab missing header:\n%s", view)
	}
	m.Update(key("l"))
	if m.activeTab != tabOverview {
		t.Fatalf("tabs should wrap around")
	}
}

func TestCurveWindowKeysReload(t *testing.T) {
	src := &fakeSource{report: sampleReport()}
	m := NewModel(src, model.StatsConfig{CurveWindow: 7})
	m.Update(key("="))
	if m.cfg.CurveWindow != 10 {
		t.Fatalf("window = %d, want 10", m.cfg.CurveWindow)
	}
	m.Update(key("-"))
	m.Update(key("-"))
	if m.cfg.CurveWindow != 1 {
		t.Fatalf("window = %d, want 1", m.cfg.CurveWindow)
	}
	if got := src.cfgs[len(src.cfgs)-1].CurveWindow; got != 1 {
		t.Fatalf("last report request used window %d", got)
	}
}

func TestParseFilterNormalizesKeyAndClef(t *testing.T) {
	m := NewModel(&fakeSource{}, model.StatsConfig{CurveWindow: 20})
	m.filterInputs[filterKey].SetValue("bb")
	m.filterInputs[filterClef].SetValue("F")
	m.filterInputs[filterSince].SetValue("2026-01-02")
	m.filterInputs[filterLast].SetValue("3")
	m.filterInputs[filterWindow].SetValue("")
	cfg, err := m.parseFilter()
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cfg.Key != "Bb" || cfg.Clef != "bass" || cfg.Last != 3 || cfg.CurveWindow != 20 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Since == nil || cfg.Since.Day() != 2 {
		t.Fatalf("unexpected since: %v", cfg.Since)
	}

	m.filterInputs[filterKey].SetValue("H")
	if _, err := m.parseFilter(); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestReportErrorShown(t *testing.T) {
	m := NewModel(&fakeSource{err: errors.New("db locked")}, model.StatsConfig{CurveWindow: 5})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	if view := m.View(); !strings.Contains(view, "db locked") {
		t.Fatalf("expected error in footer:\n%s", view)
	}
}

func TestCurveWindowSteps(t *testing.T) {
	tests := []struct{ in, next, prev int }{
		{1, 5, 1},
		{5, 10, 1},
		{7, 10, 5},
		{20, 25, 15},
	}
	for _, tt := range tests {
		if got := nextCurveWindow(tt.in); got != tt.next {
			t.Fatalf("next(%d) = %d, want %d", tt.in, got, tt.next)
		}
		if got := prevCurveWindow(tt.in); got != tt.prev {
			t.Fatalf("prev(%d) = %d, want %d", tt.in, got, tt.prev)
		}
	}
}
