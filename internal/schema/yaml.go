package schema

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"wirec/internal/diag"
	"wirec/internal/source"
)

// LoadYAML decodes a schema document of the form
//
//	module: telemetry
//	types:
//	  Point: {kind: struct, members: {x: f32, y: f32}}
//	  Color: {kind: enum, underlying: u8, values: [red, green]}
//	services:
//	  Sensors:
//	    procedures:
//	      read: {params: {id: u32}, returns: [Point]}
//
// Problems are reported to r; the returned tree holds every declaration that
// could be read. It is nil only when the document is not YAML at all.
func LoadYAML(fs *source.FileSet, id source.FileID, r diag.Reporter) *File {
	f := fs.Get(id)
	if f == nil {
		return nil
	}
	l := &loader{file: f, reporter: r}
	whole := source.Span{File: id, End: uint32(len(f.Content))} // #nosec G115 -- FileSet bounds content size

	var doc yaml.Node
	if err := yaml.Unmarshal(f.Content, &doc); err != nil {
		diag.ReportError(r, diag.SchSyntax, whole, err.Error()).Emit()
		return nil
	}
	out := &File{ID: id, Span: whole}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return out
	}
	root := doc.Content[0]
	if !l.expect(root, yaml.MappingNode, "schema document") {
		return out
	}
	for _, kv := range l.pairs(root) {
		switch kv.key.Value {
		case "module":
			if l.expect(kv.val, yaml.ScalarNode, "module name") {
				out.Module = l.ident(kv.val)
			}
		case "types":
			if l.expect(kv.val, yaml.MappingNode, "types") {
				for _, t := range l.pairs(kv.val) {
					if d := l.decl(t); d != nil {
						out.Decls = append(out.Decls, d)
					}
				}
			}
		case "services":
			if l.expect(kv.val, yaml.MappingNode, "services") {
				for _, s := range l.pairs(kv.val) {
					if svc := l.service(s); svc != nil {
						out.Services = append(out.Services, svc)
					}
				}
			}
		default:
			l.errorf(diag.SchSyntax, kv.key, "unknown top-level key %q", kv.key.Value)
		}
	}
	return out
}

type loader struct {
	file     *source.File
	reporter diag.Reporter
}

type pair struct {
	key, val *yaml.Node
}

func (l *loader) span(n *yaml.Node) source.Span {
	if n == nil {
		return source.Span{File: l.file.ID}
	}
	width := len(n.Value)
	if n.Kind != yaml.ScalarNode {
		width = 0
	}
	return l.file.SpanAt(source.LineCol{Line: uint32(n.Line), Col: uint32(n.Column)}, uint32(width)) // #nosec G115 -- yaml positions are small
}

func (l *loader) errorf(code diag.Code, n *yaml.Node, format string, args ...any) {
	diag.ReportError(l.reporter, code, l.span(n), fmt.Sprintf(format, args...)).Emit()
}

func (l *loader) expect(n *yaml.Node, kind yaml.Kind, what string) bool {
	if n.Kind == kind {
		return true
	}
	want := map[yaml.Kind]string{
		yaml.MappingNode:  "a mapping",
		yaml.SequenceNode: "a sequence",
		yaml.ScalarNode:   "a scalar",
	}[kind]
	l.errorf(diag.SchSyntax, n, "%s must be %s", what, want)
	return false
}

// pairs returns the entries of a mapping in document order, dropping
// repeated keys.
func (l *loader) pairs(n *yaml.Node) []pair {
	out := make([]pair, 0, len(n.Content)/2)
	seen := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		name := norm.NFC.String(key.Value)
		if prev, dup := seen[name]; dup {
			diag.ReportError(l.reporter, diag.SchDuplicateKey, l.span(key), fmt.Sprintf("duplicate key %q", name)).
				WithNote(l.span(prev), "first occurrence here").
				Emit()
			continue
		}
		seen[name] = key
		out = append(out, pair{key: key, val: val})
	}
	return out
}

// ident returns the NFC form of a scalar that must be an identifier.
func (l *loader) ident(n *yaml.Node) string {
	name := norm.NFC.String(n.Value)
	if !isIdentifier(name) {
		l.errorf(diag.SchSyntax, n, "%q is not a valid identifier", name)
	}
	return name
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func (l *loader) typeRef(n *yaml.Node) *TypeRef {
	if !l.expect(n, yaml.ScalarNode, "type reference") {
		return nil
	}
	ref, err := ParseTypeRef(norm.NFC.String(n.Value), l.span(n))
	if err != nil {
		l.errorf(diag.SchBadTypeRef, n, "%v", err)
		return nil
	}
	return ref
}

func (l *loader) decl(kv pair) *Decl {
	d := &Decl{Name: l.ident(kv.key), Span: l.span(kv.key)}
	if !l.expect(kv.val, yaml.MappingNode, "declaration "+d.Name) {
		return nil
	}
	fields := l.pairs(kv.val)
	var kindNode *yaml.Node
	for _, f := range fields {
		if f.key.Value == "kind" {
			kindNode = f.val
		}
	}
	if kindNode == nil {
		l.errorf(diag.SchMissingField, kv.key, "declaration %s has no kind", d.Name)
		return nil
	}
	switch kindNode.Value {
	case "struct", "structure":
		d.Kind = DeclStruct
	case "union":
		d.Kind = DeclUnion
	case "enum", "enumeration":
		d.Kind = DeclEnum
	default:
		l.errorf(diag.SchUnknownKind, kindNode, "unknown declaration kind %q", kindNode.Value)
		return nil
	}

	for _, f := range fields {
		switch f.key.Value {
		case "kind":
		case "params":
			if d.Kind == DeclEnum {
				l.errorf(diag.SchBadGenericParams, f.key, "enums cannot be generic")
				continue
			}
			d.Params = l.params(f.val)
		case "members":
			if d.Kind == DeclEnum {
				l.errorf(diag.SchSyntax, f.key, "enums list values, not members")
				continue
			}
			if l.expect(f.val, yaml.MappingNode, "members") {
				for _, m := range l.pairs(f.val) {
					if mem, ok := l.member(m); ok {
						d.Members = append(d.Members, mem)
					}
				}
			}
		case "underlying":
			if d.Kind != DeclEnum {
				l.errorf(diag.SchSyntax, f.key, "only enums have an underlying type")
				continue
			}
			d.Underlying = l.typeRef(f.val)
		case "values":
			if d.Kind != DeclEnum {
				l.errorf(diag.SchSyntax, f.key, "only enums have values")
				continue
			}
			d.Values = l.enumValues(f.val)
		case "extends":
			if d.Kind != DeclUnion {
				l.errorf(diag.SchSyntax, f.key, "only unions can extend another union")
				continue
			}
			d.Extends = l.typeRef(f.val)
		case "attributes":
			if d.Kind != DeclUnion {
				l.errorf(diag.SchSyntax, f.key, "%s %s takes no attributes", d.Kind, d.Name)
				continue
			}
			l.attributes(d, f.val)
		default:
			l.errorf(diag.SchSyntax, f.key, "unknown field %q in %s %s", f.key.Value, d.Kind, d.Name)
		}
	}
	return d
}

// attributes reads the attribute mapping of a union. raw drops the
// discriminant from the layout.
func (l *loader) attributes(d *Decl, n *yaml.Node) {
	if !l.expect(n, yaml.MappingNode, "attributes") {
		return
	}
	for _, kv := range l.pairs(n) {
		if kv.key.Value != "raw" {
			l.errorf(diag.SchSyntax, kv.key, "unknown attribute %q on %s", kv.key.Value, d.Name)
			continue
		}
		b, err := strconv.ParseBool(kv.val.Value)
		if err != nil || kv.val.Kind != yaml.ScalarNode {
			l.errorf(diag.SchSyntax, kv.val, "attribute raw must be a boolean")
			continue
		}
		d.Raw = b
	}
}

// params accepts either a sequence of names (all type parameters) or an
// ordered mapping of name to parameter kind.
func (l *loader) params(n *yaml.Node) []Param {
	var out []Param
	switch n.Kind {
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if l.expect(item, yaml.ScalarNode, "generic parameter") {
				out = append(out, Param{Name: l.ident(item), Kind: "type", Span: l.span(item)})
			}
		}
	case yaml.MappingNode:
		for _, kv := range l.pairs(n) {
			if l.expect(kv.val, yaml.ScalarNode, "generic parameter kind") {
				out = append(out, Param{Name: l.ident(kv.key), Kind: strings.TrimSpace(kv.val.Value), Span: l.span(kv.key)})
			}
		}
	default:
		l.errorf(diag.SchBadGenericParams, n, "params must be a sequence or a mapping")
	}
	return out
}

// member accepts `name: type` or `name: {type: T, nullable: true}`.
func (l *loader) member(kv pair) (Member, bool) {
	m := Member{Name: l.ident(kv.key), Span: l.span(kv.key)}
	switch kv.val.Kind {
	case yaml.ScalarNode:
		m.Type = l.typeRef(kv.val)
	case yaml.MappingNode:
		for _, f := range l.pairs(kv.val) {
			switch f.key.Value {
			case "type":
				m.Type = l.typeRef(f.val)
			case "nullable":
				b, err := strconv.ParseBool(f.val.Value)
				if err != nil {
					l.errorf(diag.SchBadMemberShape, f.val, "nullable must be a boolean")
					continue
				}
				m.Nullable = b
			default:
				l.errorf(diag.SchBadMemberShape, f.key, "unknown member field %q", f.key.Value)
			}
		}
		if m.Type == nil {
			l.errorf(diag.SchMissingField, kv.key, "member %s has no type", m.Name)
		}
	default:
		l.errorf(diag.SchBadMemberShape, kv.val, "member %s must be a type string or a mapping", m.Name)
	}
	return m, m.Type != nil
}

func (l *loader) enumValues(n *yaml.Node) []EnumValue {
	var out []EnumValue
	switch n.Kind {
	case yaml.SequenceNode:
		for i, item := range n.Content {
			if l.expect(item, yaml.ScalarNode, "enum value") {
				out = append(out, EnumValue{Name: l.ident(item), Value: int64(i), Span: l.span(item)})
			}
		}
	case yaml.MappingNode:
		for _, kv := range l.pairs(n) {
			v, err := strconv.ParseInt(kv.val.Value, 0, 64)
			if err != nil {
				l.errorf(diag.SchBadEnumValue, kv.val, "enum value %s must be an integer", kv.key.Value)
				continue
			}
			out = append(out, EnumValue{Name: l.ident(kv.key), Value: v, Explicit: true, Span: l.span(kv.key)})
		}
	default:
		l.errorf(diag.SchSyntax, n, "values must be a sequence or a mapping")
	}
	return out
}

func (l *loader) service(kv pair) *Service {
	s := &Service{Name: l.ident(kv.key), Span: l.span(kv.key)}
	if !l.expect(kv.val, yaml.MappingNode, "service "+s.Name) {
		return nil
	}
	for _, f := range l.pairs(kv.val) {
		switch f.key.Value {
		case "extends":
			s.Extends = l.typeRef(f.val)
		case "procedures":
			if !l.expect(f.val, yaml.MappingNode, "procedures") {
				continue
			}
			for _, p := range l.pairs(f.val) {
				s.Procedures = append(s.Procedures, l.procedure(p))
			}
		default:
			l.errorf(diag.SchSyntax, f.key, "unknown field %q in service %s", f.key.Value, s.Name)
		}
	}
	return s
}

func (l *loader) procedure(kv pair) Procedure {
	p := Procedure{Name: l.ident(kv.key), Span: l.span(kv.key)}
	if kv.val.Kind == yaml.ScalarNode && kv.val.Tag == "!!null" {
		return p
	}
	if !l.expect(kv.val, yaml.MappingNode, "procedure "+p.Name) {
		return p
	}
	for _, f := range l.pairs(kv.val) {
		switch f.key.Value {
		case "params":
			if l.expect(f.val, yaml.MappingNode, "params") {
				for _, m := range l.pairs(f.val) {
					if mem, ok := l.member(m); ok {
						p.Params = append(p.Params, mem)
					}
				}
			}
		case "returns":
			switch f.val.Kind {
			case yaml.ScalarNode:
				if ref := l.typeRef(f.val); ref != nil {
					p.Returns = append(p.Returns, ref)
				}
			case yaml.SequenceNode:
				for _, item := range f.val.Content {
					if ref := l.typeRef(item); ref != nil {
						p.Returns = append(p.Returns, ref)
					}
				}
			default:
				l.errorf(diag.SchSyntax, f.val, "returns must be a type or a sequence of types")
			}
		default:
			l.errorf(diag.SchSyntax, f.key, "unknown field %q in procedure %s", f.key.Value, p.Name)
		}
	}
	return p
}
