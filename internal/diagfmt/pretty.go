package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"wirec/internal/diag"
	"wirec/internal/source"
)

type palette struct {
	err, warn, info, note, gutter, marker, path *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgBlue, color.Bold),
		gutter: color.New(color.FgBlue),
		marker: color.New(color.FgRed),
		path:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.gutter, p.marker, p.path} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes each diagnostic of bag as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//	   |
//	12 |   bar: strin
//	   |        ^~~~~
//
// followed by its notes. Call bag.Sort first for a stable order.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, p)
	}
}

func prettyOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	sev := p.severity(d.Severity)
	loc := location(d.Primary, fs, opts.PathMode)
	if loc != "" {
		p.path.Fprint(w, loc+": ")
	}
	sev.Fprintf(w, "%s %s", d.Severity, d.Code.ID())
	fmt.Fprintf(w, ": %s\n", d.Message)

	printSnippet(w, d.Primary, fs, opts, p, p.marker)

	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		p.note.Fprint(w, "  note")
		if nl := location(n.Span, fs, opts.PathMode); nl != "" && !n.Span.Empty() {
			fmt.Fprintf(w, " (%s)", nl)
		}
		fmt.Fprintf(w, ": %s\n", n.Msg)
	}
}

func location(span source.Span, fs *source.FileSet, mode PathMode) string {
	if fs == nil {
		return ""
	}
	f := fs.Get(span.File)
	if f == nil {
		return ""
	}
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", formatPath(f, fs, mode), start.Line, start.Col)
}

func printSnippet(w io.Writer, span source.Span, fs *source.FileSet, opts PrettyOpts, p palette, marker *color.Color) {
	if fs == nil {
		return
	}
	f := fs.Get(span.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	start, end := fs.Resolve(span)
	lines := snippet(f, start.Line, opts.Context)
	if len(lines) == 0 {
		return
	}

	numWidth := len(strconv.FormatUint(uint64(start.Line), 10))
	blank := strings.Repeat(" ", numWidth)
	p.gutter.Fprintf(w, "%s |\n", blank)
	for _, l := range lines {
		p.gutter.Fprintf(w, "%*d |", numWidth, l.num)
		fmt.Fprintf(w, " %s\n", truncate(l.text, int(opts.Width)))
	}

	primary := lines[len(lines)-1].text
	endCol := end.Col
	if end.Line != start.Line {
		endCol = uint32(len(primary)) + 1 // #nosec G115 -- a line is shorter than its file
	}
	p.gutter.Fprintf(w, "%s |", blank)
	marker.Fprintf(w, " %s\n", underline(primary, start.Col, endCol))
}
