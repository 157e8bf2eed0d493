package diagfmt

import (
	"strings"

	"fortio.org/safecast"
	"github.com/mattn/go-runewidth"

	"wirec/internal/source"
)

// sourceLine is one numbered line of a snippet.
type sourceLine struct {
	num  uint32
	text string
}

// snippet returns up to context lines before line plus line itself.
func snippet(f *source.File, line uint32, context int8) []sourceLine {
	if line == 0 {
		return nil
	}
	first := line
	if context > 0 {
		back, err := safecast.Conv[uint32](context)
		if err == nil && back < line {
			first = line - back
		} else {
			first = 1
		}
	}
	out := make([]sourceLine, 0, line-first+1)
	for n := first; n <= line; n++ {
		out = append(out, sourceLine{num: n, text: strings.TrimRight(f.GetLine(n), "\r")})
	}
	return out
}

// underline builds the marker line for bytes [startCol, endCol) of text
// (1-based columns). Tabs are kept so the marker lines up in a terminal.
func underline(text string, startCol, endCol uint32) string {
	start := clampCol(text, startCol)
	end := clampCol(text, endCol)
	if end <= start {
		end = start
	}

	var sb strings.Builder
	for _, r := range text[:start] {
		if r == '\t' {
			sb.WriteByte('\t')
			continue
		}
		sb.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	width := max(runewidth.StringWidth(text[start:end]), 1)
	sb.WriteByte('^')
	sb.WriteString(strings.Repeat("~", width-1))
	return sb.String()
}

func clampCol(text string, col uint32) int {
	if col == 0 {
		return 0
	}
	i := int(col - 1)
	if i > len(text) {
		return len(text)
	}
	return i
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
