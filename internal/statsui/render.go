package statsui

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/stats"
)

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	key := valueOr(m.cfg.Key, "any")
	clef := valueOr(m.cfg.Clef, "any")
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Settings: key=%s  clef=%s  since=%s  last=%s  window=%d", key, clef, since, last, m.cfg.CurveWindow)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabNoteTable {
		switch {
		case len(m.report.Sessions) == 0:
			return fitLines("No sessions found.", m.width, height)
		case len(m.report.NoteAggsAll) == 0:
			return fitLines("No note stats found.", m.width, height)
		default:
			return fitLines(tableMutedStyle.Render(m.noteTable.View()), m.width, height)
		}
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func renderOverview(sessions []model.SessionAggregate, window, width int) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}
	summary := renderSummaryCards(stats.Summarize(sessions), width)
	var buf bytes.Buffer
	if err := stats.RenderCurvesWithSize(&buf, sessions, window, width, plotHeight, true); err != nil {
		return summary + "\n\n" + fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(summary+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(s stats.Summary, width int) string {
	cards := []string{
		metricCard("Exercises", fmt.Sprintf("%d", s.Sessions)),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", s.AvgAccuracy)),
		metricCard("Best Acc", fmt.Sprintf("%.1f%%", s.BestAccuracy)),
		metricCard("Avg Time", fmt.Sprintf("%.1fs", s.AvgSeconds)),
		metricCard("Best Time", fmt.Sprintf("%.1fs", s.BestSeconds)),
		metricCard("Notes/min", fmt.Sprintf("%.1f", s.AvgNPM)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

// renderWeakNotes lists the notes the generator would focus on, computed over
// the curve window.
func renderWeakNotes(report stats.Report, window int) string {
	if len(report.Sessions) == 0 {
		return "No sessions found."
	}
	weak := stats.SelectWeakPitches(report.NoteAggsWindow, weakListTop)
	if len(weak) == 0 {
		return "No note stats found."
	}
	byPitch := make(map[int]model.NoteAggregate, len(report.NoteAggsWindow))
	for _, agg := range report.NoteAggsWindow {
		byPitch[agg.Pitch] = agg
	}
	pitches := make([]int, 0, len(weak))
	for p := range weak {
		pitches = append(pitches, int(p))
	}
	sort.Ints(pitches)

	lines := []string{headerStyle.Render(fmt.Sprintf("Weakest notes over the last %d exercises", len(report.WindowSessionIDs)))}
	focus := make([]model.NoteAggregate, 0, len(pitches))
	for _, p := range pitches {
		focus = append(focus, byPitch[p])
	}
	var buf bytes.Buffer
	if err := stats.RenderNoteTable(&buf, focus); err != nil {
		return fmt.Sprintf("Failed to render weak notes: %v", err)
	}
	lines = append(lines, strings.TrimRight(buf.String(), "\n"))
	if window > 0 {
		lines = append(lines, "", headerStyle.Render("Use -/= to change the window."))
	}
	return strings.Join(lines, "\n")
}

func noteColumns() []table.Column {
	return []table.Column{
		{Title: "Note", Width: 10},
		{Title: "Accuracy", Width: 9},
		{Title: "Avg Latency (ms)", Width: 17},
		{Title: "Correct", Width: 7},
		{Title: "Incorrect", Width: 9},
		{Title: "Total", Width: 6},
	}
}

func buildNoteRows(aggs []model.NoteAggregate) []table.Row {
	rows := make([]table.Row, 0, len(aggs))
	for _, r := range stats.NoteRows(aggs) {
		rows = append(rows, table.Row{
			r.Name,
			fmt.Sprintf("%.2f%%", r.Accuracy),
			fmt.Sprintf("%.1f", r.LatencyMs),
			strconv.Itoa(r.Correct),
			strconv.Itoa(r.Incorrect),
			strconv.Itoa(r.Correct + r.Incorrect),
		})
	}
	return rows
}

func buildNoteTable(aggs []model.NoteAggregate, width, height int) table.Model {
	t := table.New(
		table.WithColumns(noteColumns()),
		table.WithRows(buildNoteRows(aggs)),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(noteTableStyles())
	return t
}

func noteTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
