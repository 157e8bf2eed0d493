package schema

import (
	"fmt"
	"strconv"

	"fortio.org/safecast"

	"wirec/internal/source"
)

// TypeRefError reports a malformed type reference at a byte position within
// the text.
type TypeRefError struct {
	Text string
	Pos  int
	Msg  string
}

func (e *TypeRefError) Error() string {
	return fmt.Sprintf("bad type reference %q at %d: %s", e.Text, e.Pos, e.Msg)
}

// ParseTypeRef parses text as name or name<arg, ...>. Spans of the result
// are offsets into base, which should cover text.
func ParseTypeRef(text string, base source.Span) (*TypeRef, error) {
	p := &refParser{text: text, base: base}
	p.skipSpace()
	ref, err := p.parseRef()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.text) {
		return nil, p.errorf("unexpected %q", p.text[p.pos])
	}
	return ref, nil
}

type refParser struct {
	text string
	pos  int
	base source.Span
}

func (p *refParser) errorf(format string, args ...any) error {
	return &TypeRefError{Text: p.text, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *refParser) span(start, end int) source.Span {
	s, errS := safecast.Conv[uint32](start)
	e, errE := safecast.Conv[uint32](end)
	if errS != nil || errE != nil || p.base.Start+e > p.base.End {
		return p.base
	}
	return source.Span{File: p.base.File, Start: p.base.Start + s, End: p.base.Start + e}
}

func (p *refParser) skipSpace() {
	for p.pos < len(p.text) && (p.text[p.pos] == ' ' || p.text[p.pos] == '\t') {
		p.pos++
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (p *refParser) parseRef() (*TypeRef, error) {
	start := p.pos
	if p.pos >= len(p.text) || !isIdentStart(p.text[p.pos]) {
		return nil, p.errorf("expected a type name")
	}
	for p.pos < len(p.text) && isIdentPart(p.text[p.pos]) {
		p.pos++
	}
	ref := &TypeRef{Name: p.text[start:p.pos]}
	p.skipSpace()
	if p.pos < len(p.text) && p.text[p.pos] == '<' {
		p.pos++
		for {
			p.skipSpace()
			arg, err := p.parseArg()
			if err != nil {
				return nil, err
			}
			ref.Args = append(ref.Args, arg)
			p.skipSpace()
			if p.pos >= len(p.text) {
				return nil, p.errorf("unclosed '<'")
			}
			if p.text[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.text[p.pos] == '>' {
				p.pos++
				break
			}
			return nil, p.errorf("expected ',' or '>'")
		}
	}
	ref.Span = p.span(start, p.pos)
	return ref, nil
}

func (p *refParser) parseArg() (TypeArg, error) {
	start := p.pos
	if p.pos < len(p.text) && (p.text[p.pos] == '-' || (p.text[p.pos] >= '0' && p.text[p.pos] <= '9')) {
		p.pos++
		for p.pos < len(p.text) && p.text[p.pos] >= '0' && p.text[p.pos] <= '9' {
			p.pos++
		}
		v, err := strconv.ParseInt(p.text[start:p.pos], 10, 64)
		if err != nil {
			p.pos = start
			return TypeArg{}, p.errorf("bad integer argument")
		}
		return TypeArg{Int: v, IsInt: true, Span: p.span(start, p.pos)}, nil
	}
	ref, err := p.parseRef()
	if err != nil {
		return TypeArg{}, err
	}
	return TypeArg{Type: ref, Span: ref.Span}, nil
}
