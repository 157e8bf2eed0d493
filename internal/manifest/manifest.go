// Package manifest exports a checked module for code generators: every
// declared type with its wire layout, reference classification, members in
// storage form with their offsets, and the generated service messages.
package manifest

import (
	"errors"
	"fmt"

	"wirec/internal/layout"
	"wirec/internal/schema"
	"wirec/internal/sema"
	"wirec/internal/types"
)

// Version is bumped whenever the serialized shape changes.
const Version uint16 = 1

// ErrNotChecked is returned for modules that failed or skipped a pass.
var ErrNotChecked = errors.New("module has not completed checking")

// Manifest is the export of one module.
type Manifest struct {
	Version  uint16    `msgpack:"version" json:"version"`
	Module   string    `msgpack:"module" json:"module"`
	Source   string    `msgpack:"source,omitempty" json:"source,omitempty"`
	Types    []Type    `msgpack:"types" json:"types"`
	Services []Service `msgpack:"services,omitempty" json:"services,omitempty"`
}

// Type is one declaration or instantiation.
type Type struct {
	Name      string `msgpack:"name" json:"name"`
	Kind      string `msgpack:"kind" json:"kind"`
	Generated bool   `msgpack:"generated,omitempty" json:"generated,omitempty"`
	Instance  bool   `msgpack:"instance,omitempty" json:"instance,omitempty"`

	// Generic templates carry only their parameters.
	Generic bool    `msgpack:"generic,omitempty" json:"generic,omitempty"`
	Params  []Param `msgpack:"params,omitempty" json:"params,omitempty"`

	Layout      Layout   `msgpack:"layout" json:"layout"`
	Wire        Layout   `msgpack:"wire" json:"wire"`
	IsReference bool     `msgpack:"is_reference" json:"is_reference"`
	Members     []Member `msgpack:"members,omitempty" json:"members,omitempty"`

	// unions
	Discriminant  string `msgpack:"discriminant,omitempty" json:"discriminant,omitempty"`
	PayloadOffset uint32 `msgpack:"payload_offset,omitempty" json:"payload_offset,omitempty"`
	Raw           bool   `msgpack:"raw,omitempty" json:"raw,omitempty"`
	Extends       string `msgpack:"extends,omitempty" json:"extends,omitempty"`

	// enums
	Underlying string      `msgpack:"underlying,omitempty" json:"underlying,omitempty"`
	Values     []EnumValue `msgpack:"values,omitempty" json:"values,omitempty"`
}

// Layout is a size and alignment in bytes.
type Layout struct {
	Size    uint32 `msgpack:"size" json:"size"`
	Align   uint32 `msgpack:"align" json:"align"`
	Padding uint32 `msgpack:"padding,omitempty" json:"padding,omitempty"`
}

// Member is a struct or union member after reference normalization.
// Offset is meaningless for union members, which all start at the payload.
type Member struct {
	Name        string `msgpack:"name" json:"name"`
	Type        string `msgpack:"type" json:"type"`
	Offset      uint32 `msgpack:"offset" json:"offset"`
	Wire        Layout `msgpack:"wire" json:"wire"`
	Nullable    bool   `msgpack:"nullable,omitempty" json:"nullable,omitempty"`
	IsReference bool   `msgpack:"is_reference,omitempty" json:"is_reference,omitempty"`
}

type Param struct {
	Name string `msgpack:"name" json:"name"`
	Kind string `msgpack:"kind" json:"kind"`
}

type EnumValue struct {
	Name  string `msgpack:"name" json:"name"`
	Value int64  `msgpack:"value" json:"value"`
}

// Service lists the generated message types of a service.
type Service struct {
	Name       string      `msgpack:"name" json:"name"`
	Extends    string      `msgpack:"extends,omitempty" json:"extends,omitempty"`
	Call       string      `msgpack:"call" json:"call"`
	Return     string      `msgpack:"return" json:"return"`
	Procedures []Procedure `msgpack:"procedures" json:"procedures"`
}

type Procedure struct {
	Name    string `msgpack:"name" json:"name"`
	Params  string `msgpack:"params" json:"params"`
	Results string `msgpack:"results" json:"results"`
}

// Build exports m. It requires a module that went through the reference and
// layout passes without errors.
func Build(m *sema.Module, source string) (*Manifest, error) {
	if m == nil || m.Failed() || !m.ReferencePassDone() {
		return nil, ErrNotChecked
	}
	b := builder{m: m}
	out := &Manifest{Version: Version, Module: m.Name, Source: source}

	for _, d := range m.Decls() {
		t, err := b.decl(d)
		if err != nil {
			return nil, err
		}
		out.Types = append(out.Types, t)
	}
	for _, id := range m.Instances() {
		t, err := b.typ(id, kindOf(m.Types, id))
		if err != nil {
			return nil, err
		}
		t.Instance = true
		out.Types = append(out.Types, t)
	}
	for _, svc := range m.Services() {
		out.Services = append(out.Services, b.service(svc))
	}
	return out, nil
}

type builder struct {
	m *sema.Module
}

func (b builder) decl(d sema.Decl) (Type, error) {
	if d.Generic {
		return b.template(d), nil
	}
	t, err := b.typ(d.Type, d.Kind.String())
	if err != nil {
		return Type{}, err
	}
	t.Name = d.Name
	t.Generated = d.Generated
	return t, nil
}

func (b builder) template(d sema.Decl) Type {
	t := Type{Name: d.Name, Kind: d.Kind.String(), Generic: true}
	sym := b.m.Table.Symbols.Get(d.Symbol)
	if sym == nil {
		return t
	}
	if g, ok := b.m.Generic(sym.Generic); ok {
		for _, p := range g.Params {
			t.Params = append(t.Params, Param{Name: p.Name, Kind: p.Kind.String()})
		}
	}
	return t
}

func (b builder) typ(id types.TypeID, kind string) (Type, error) {
	m := b.m
	t := Type{Name: m.TypeName(id), Kind: kind, IsReference: m.Types.IsReference(id)}

	own, err := m.Layouts.LayoutOf(id)
	if err != nil {
		return Type{}, fmt.Errorf("%s: %w", t.Name, err)
	}
	wire, err := m.Layouts.WireLayout(id)
	if err != nil {
		return Type{}, fmt.Errorf("%s: %w", t.Name, err)
	}
	t.Layout = exportLayout(own.RawLayout)
	t.Wire = exportLayout(wire)

	tt := m.Types.MustLookup(id)
	switch tt.Kind {
	case types.KindStruct:
		for i, mem := range m.Types.Members(id) {
			em, err := b.member(mem)
			if err != nil {
				return Type{}, fmt.Errorf("%s.%s: %w", t.Name, mem.Name, err)
			}
			if i < len(own.Members) {
				em.Offset = own.Members[i].Offset
			}
			t.Members = append(t.Members, em)
		}
	case types.KindUnion:
		t.PayloadOffset = own.PayloadOffset
		if info, ok := m.Types.UnionInfo(id); ok {
			t.Raw = info.Raw
			if info.Discriminant != types.NoTypeID {
				t.Discriminant = m.TypeName(info.Discriminant)
			}
			if info.Base != types.NoTypeID {
				t.Extends = m.TypeName(info.Base)
			}
		}
		for _, mem := range m.Types.Members(id) {
			em, err := b.member(mem)
			if err != nil {
				return Type{}, fmt.Errorf("%s.%s: %w", t.Name, mem.Name, err)
			}
			em.Offset = own.PayloadOffset
			t.Members = append(t.Members, em)
		}
	case types.KindEnum:
		if info, ok := m.Types.EnumInfo(id); ok {
			t.Underlying = m.Types.Label(info.Base)
			for _, v := range info.Members {
				t.Values = append(t.Values, EnumValue{Name: v.Name, Value: v.Value})
			}
		}
	default:
	}
	return t, nil
}

func (b builder) member(mem types.Member) (Member, error) {
	wire, err := b.m.Layouts.WireLayout(mem.Type)
	if err != nil {
		return Member{}, err
	}
	return Member{
		Name:        mem.Name,
		Type:        b.m.TypeName(mem.Type),
		Wire:        exportLayout(wire),
		Nullable:    mem.Nullable,
		IsReference: b.m.Types.IsPointer(mem.Type),
	}, nil
}

func (b builder) service(svc sema.Service) Service {
	out := Service{
		Name:    svc.Name,
		Extends: svc.Extends,
		Call:    b.m.TypeName(svc.Call),
		Return:  b.m.TypeName(svc.Return),
	}
	for _, p := range svc.Procedures {
		out.Procedures = append(out.Procedures, Procedure{
			Name:    p.Name,
			Params:  b.m.TypeName(p.Params),
			Results: b.m.TypeName(p.Results),
		})
	}
	return out
}

func exportLayout(l layout.RawLayout) Layout {
	return Layout{Size: l.Size, Align: l.Align, Padding: l.Padding}
}

func kindOf(in *types.Interner, id types.TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return types.KindInvalid.String()
	}
	switch tt.Kind {
	case types.KindStruct:
		return schema.DeclStruct.String()
	case types.KindUnion:
		return schema.DeclUnion.String()
	case types.KindEnum:
		return schema.DeclEnum.String()
	default:
		return tt.Kind.String()
	}
}
