package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuinote/internal/model"
	"github.com/verte-zerg/tuinote/internal/theory"
)

const noteGap = "  "

type styledToken struct {
	s       string
	width   int
	isSpace bool
}

// buildStaffTokens styles every target note by its state: played notes are
// correct, the last wrong position is marked until it is passed and the
// cursor note is underlined.
func buildStaffTokens(names []string, cursor, lastWrong int) []styledToken {
	out := make([]styledToken, 0, len(names)*2)
	for i, name := range names {
		if i > 0 {
			out = append(out, styledToken{s: noteGap, width: runewidth.StringWidth(noteGap), isSpace: true})
		}
		style := pendingStyle
		switch {
		case i < cursor:
			style = correctStyle
		case i == lastWrong:
			style = incorrectStyle
		case i == cursor:
			style = currentStyle
		}
		if i == cursor {
			style = style.Underline(true)
		}
		out = append(out, styledToken{
			s:     style.Render(name),
			width: runewidth.StringWidth(name),
		})
	}
	return out
}

func spelledNames(ex model.Exercise) []string {
	spellings := ex.Spellings()
	names := make([]string, len(spellings))
	for i, sp := range spellings {
		names[i] = sp.String()
	}
	return names
}

func playedName(pitch int, key theory.Key) string {
	return theory.Spell(theory.Pitch(pitch), key).String()
}

func renderTokens(tokens []styledToken) string {
	var b strings.Builder
	for _, item := range tokens {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapTokens(tokens []styledToken, width int) string {
	if width <= 0 {
		return renderTokens(tokens)
	}
	var out strings.Builder
	line := make([]styledToken, 0, len(tokens))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(tokens); {
		item := tokens[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderTokens(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledToken{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderTokens(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderTokens(line))
	return out.String()
}

func lineWidthOf(line []styledToken) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledToken) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
