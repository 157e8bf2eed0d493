package sema

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"wirec/internal/schema"
	"wirec/internal/source"
	"wirec/internal/symbols"
	"wirec/internal/types"
)

// Name is a reference to a type: a base symbol plus generic arguments.
// Two names are equal when their bases and arguments are.
type Name struct {
	Base symbols.SymbolID
	Args []GenericArg
	Span source.Span
}

// GenericArg is either a nested Name or an integer literal.
type GenericArg struct {
	Name  *Name
	Int   int64
	IsInt bool
	Span  source.Span
}

// Equal reports structural equality, ignoring spans.
func (n Name) Equal(o Name) bool {
	if n.Base != o.Base || len(n.Args) != len(o.Args) {
		return false
	}
	for i := range n.Args {
		a, b := n.Args[i], o.Args[i]
		if a.IsInt != b.IsInt {
			return false
		}
		if a.IsInt {
			if a.Int != b.Int {
				return false
			}
			continue
		}
		if a.Name == nil || b.Name == nil {
			if a.Name != b.Name {
				return false
			}
			continue
		}
		if !a.Name.Equal(*b.Name) {
			return false
		}
	}
	return true
}

// GenericKind tells built-in generics apart from user templates.
type GenericKind uint8

const (
	GenericPointer GenericKind = iota + 1
	GenericVector
	GenericArray
	GenericStruct
	GenericUnion
)

// ParamKind is the kind of value a generic parameter accepts.
type ParamKind uint8

const (
	ParamUnknown ParamKind = iota
	ParamType
	ParamInt
)

func (k ParamKind) String() string {
	switch k {
	case ParamType:
		return "type"
	case ParamInt:
		return "i32"
	default:
		return "unknown"
	}
}

func paramKindOf(text string) ParamKind {
	switch text {
	case "type":
		return ParamType
	case "i32":
		return ParamInt
	default:
		return ParamUnknown
	}
}

// GenericParam is one formal parameter of a template.
type GenericParam struct {
	Name string
	Kind ParamKind
	Span source.Span
}

// Generic is a template that materializes a type per argument list.
type Generic struct {
	Name   string
	Kind   GenericKind
	Symbol symbols.SymbolID
	Params []GenericParam
	Decl   *schema.Decl // user templates only
	Scope  symbols.ScopeID
	Span   source.Span
}

// Generic returns the template behind id.
func (m *Module) Generic(id symbols.GenericID) (*Generic, bool) {
	if !id.IsValid() || int(id) >= len(m.generics) {
		return nil, false
	}
	return &m.generics[id], true
}

func (m *Module) addGeneric(g Generic) symbols.GenericID {
	value, err := safecast.Conv[uint32](len(m.generics))
	if err != nil {
		panic(fmt.Errorf("generics arena overflow: %w", err))
	}
	m.generics = append(m.generics, g)
	return symbols.GenericID(value)
}

// instKey identifies an instantiation: the template plus its resolved
// arguments, rendered as "t<TypeID>" or "i<value>" and comma separated.
type instKey struct {
	gen  symbols.GenericID
	args string
}

type resolvedArg struct {
	typ   types.TypeID
	value int64
	isInt bool
}

func makeInstKey(gen symbols.GenericID, args []resolvedArg) instKey {
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		if a.isInt {
			sb.WriteByte('i')
			sb.WriteString(strconv.FormatInt(a.value, 10))
			continue
		}
		sb.WriteByte('t')
		sb.WriteString(strconv.FormatUint(uint64(a.typ), 10))
	}
	return instKey{gen: gen, args: sb.String()}
}

// nameFromRef binds a textual reference against scope. Parameters bound to
// integers inside an instance scope turn into integer arguments.
func (m *Module) nameFromRef(ref *schema.TypeRef, scope symbols.ScopeID) (Name, error) {
	sym, ok := m.lookupName(scope, ref.Name)
	if !ok {
		return Name{}, &ResolveError{Kind: ResolveUnknownName, Name: ref.Name, Span: ref.Span}
	}
	name := Name{Base: sym, Span: ref.Span}
	if len(ref.Args) == 0 {
		return name, nil
	}
	name.Args = make([]GenericArg, 0, len(ref.Args))
	for _, a := range ref.Args {
		if a.IsInt {
			name.Args = append(name.Args, GenericArg{Int: a.Int, IsInt: true, Span: a.Span})
			continue
		}
		if len(a.Type.Args) == 0 {
			if id, ok := m.lookupName(scope, a.Type.Name); ok {
				if s := m.Table.Symbols.Get(id); s != nil && s.Kind == symbols.SymbolConst {
					name.Args = append(name.Args, GenericArg{Int: s.Value, IsInt: true, Span: a.Span})
					continue
				}
			}
		}
		inner, err := m.nameFromRef(a.Type, scope)
		if err != nil {
			return Name{}, err
		}
		name.Args = append(name.Args, GenericArg{Name: &inner, Span: a.Span})
	}
	return name, nil
}

func (m *Module) lookupName(scope symbols.ScopeID, text string) (symbols.SymbolID, bool) {
	sid, ok := m.Table.Strings.Find(text)
	if !ok {
		return symbols.NoSymbolID, false
	}
	return m.Table.RecursiveNameLookup(scope, sid)
}
