package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"wirec/internal/manifest"
)

// TableOpts configures LayoutTable.
type TableOpts struct {
	Color bool
	// Members lists each member under its type.
	Members bool
	// MaxName truncates type and member names, 0 means no limit.
	MaxName int
}

type tableStyles struct {
	on                     bool
	header, name, ref, dim lipgloss.Style
}

func newTableStyles(enabled bool) tableStyles {
	return tableStyles{
		on:     enabled,
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")),
		name:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		ref:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (s tableStyles) render(style lipgloss.Style, v string) string {
	if !s.on {
		return v
	}
	return style.Render(v)
}

// LayoutTable prints one row per type of m with its own and wire layouts.
// Generic templates have no layout and are listed with their parameters.
func LayoutTable(w io.Writer, m *manifest.Manifest, opts TableOpts) error {
	st := newTableStyles(opts.Color)
	header := []string{"TYPE", "KIND", "SIZE", "ALIGN", "WIRE", "REF"}

	rows := make([][]string, 0, len(m.Types))
	for _, t := range m.Types {
		name := truncate(t.Name, opts.MaxName)
		if t.Generic {
			rows = append(rows, []string{name, t.Kind + " template", "-", "-", "-", paramList(t.Params)})
			continue
		}
		ref := ""
		if t.IsReference {
			ref = "yes"
		}
		rows = append(rows, []string{
			name, t.Kind,
			fmt.Sprint(t.Layout.Size), fmt.Sprint(t.Layout.Align),
			fmt.Sprintf("%d/%d", t.Wire.Size, t.Wire.Align), ref,
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, r := range rows {
		for i, cell := range r {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var sb strings.Builder
	sb.WriteString(st.render(st.header, joinRow(header, widths)))
	sb.WriteByte('\n')
	for i, r := range rows {
		sb.WriteString(st.render(st.name, runewidth.FillRight(r[0], widths[0])))
		sb.WriteString("  ")
		rest := joinRow(r[1:], widths[1:])
		if r[5] == "yes" {
			sb.WriteString(strings.TrimSuffix(rest, "yes"))
			sb.WriteString(st.render(st.ref, "yes"))
		} else {
			sb.WriteString(rest)
		}
		sb.WriteByte('\n')

		t := m.Types[i]
		if opts.Members && len(t.Members) > 0 {
			for _, line := range memberLines(t, opts.MaxName) {
				sb.WriteString(st.render(st.dim, line))
				sb.WriteByte('\n')
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// joinRow pads every cell but the last to its column width.
func joinRow(cells []string, widths []int) string {
	var sb strings.Builder
	for i, c := range cells {
		if i == len(cells)-1 {
			sb.WriteString(c)
			break
		}
		sb.WriteString(runewidth.FillRight(c, widths[i]))
		sb.WriteString("  ")
	}
	return strings.TrimRight(sb.String(), " ")
}

func memberLines(t manifest.Type, maxName int) []string {
	nameW, typeW := 0, 0
	for _, mem := range t.Members {
		nameW = max(nameW, runewidth.StringWidth(truncate(mem.Name, maxName)))
		typeW = max(typeW, runewidth.StringWidth(truncate(mem.Type, maxName)))
	}
	out := make([]string, 0, len(t.Members))
	for _, mem := range t.Members {
		line := fmt.Sprintf("  %s  %s  @%-4d %d/%d",
			runewidth.FillRight(truncate(mem.Name, maxName), nameW),
			runewidth.FillRight(truncate(mem.Type, maxName), typeW),
			mem.Offset, mem.Wire.Size, mem.Wire.Align)
		if mem.Nullable {
			line += "  nullable"
		}
		out = append(out, line)
	}
	return out
}

func paramList(params []manifest.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + ": " + p.Kind
	}
	return "<" + strings.Join(parts, ", ") + ">"
}
