package codec

import (
	"errors"
	"fmt"
	"strconv"

	"fortio.org/safecast"
	"gopkg.in/yaml.v3"

	"wirec/internal/layout"
	"wirec/internal/types"
)

// noPointee marks a null nullable pointer.
const noPointee = -1

// Encoder writes structured values of storage-form types. Types must have
// been through the reference pass: every reference member is a ptr<T>.
type Encoder struct {
	types   *types.Interner
	layouts *layout.Engine
}

// NewEncoder returns an encoder over the layout engine's types.
func NewEncoder(layouts *layout.Engine) *Encoder {
	return &Encoder{types: layouts.Types, layouts: layouts}
}

// Encode writes v as a value of type t and returns the position the value
// starts at. Out-of-line data is written first (depth first), then the value
// itself aligned to its alignment.
func (e *Encoder) Encode(t types.TypeID, v *yaml.Node, w *Writer) (pos int, err error) {
	return e.encode(t, unwrapDocument(v), w, "")
}

// Marshal encodes a root value into a fresh buffer. A root string or vector
// is followed by a pointer to it so that Decode can find its start from the
// end of the buffer.
func (e *Encoder) Marshal(t types.TypeID, v *yaml.Node) ([]byte, error) {
	w := NewWriter(64)
	pos, err := e.Encode(t, v, w)
	if err != nil {
		return nil, err
	}
	if needsRootPointer(e.types, t) {
		if err := e.writePointer(w, pos, t, ""); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

func needsRootPointer(in *types.Interner, t types.TypeID) bool {
	tt, ok := in.Lookup(t)
	return ok && (tt.Kind == types.KindString || tt.Kind == types.KindVector)
}

func unwrapDocument(v *yaml.Node) *yaml.Node {
	if v != nil && v.Kind == yaml.DocumentNode && len(v.Content) == 1 {
		return v.Content[0]
	}
	return v
}

func (e *Encoder) encode(t types.TypeID, v *yaml.Node, w *Writer, path string) (int, error) {
	tt, ok := e.types.Lookup(t)
	if !ok {
		return 0, e.fail(ErrValueMismatch, t, path, "invalid type")
	}
	switch tt.Kind {
	case types.KindBool, types.KindInt, types.KindUint, types.KindFloat:
		bits, err := scalarBits(tt, v)
		if err != nil {
			return 0, e.wrap(err, t, path)
		}
		size := scalarSize(tt)
		w.Align(int(size))
		pos := w.Tell()
		w.writeUint(bits, size)
		return pos, nil
	case types.KindEnum:
		return e.encodeEnum(t, v, w, path)
	case types.KindString:
		return e.encodeString(t, v, w, path)
	case types.KindArray:
		return e.encodeArray(t, tt, v, w, path)
	case types.KindVector:
		return e.encodeVector(t, tt, v, w, path)
	case types.KindPointer:
		if isNull(v) {
			return 0, e.fail(ErrValueMismatch, t, path, "pointer value is null")
		}
		target, err := e.encode(tt.Elem, v, w, path)
		if err != nil {
			return 0, err
		}
		w.Align(2)
		pos := w.Tell()
		return pos, e.writePointer(w, target, t, path)
	case types.KindStruct:
		return e.encodeStruct(t, v, w, path)
	case types.KindUnion:
		return e.encodeUnion(t, v, w, path)
	case types.KindInvalid:
	}
	return 0, e.fail(ErrValueMismatch, t, path, "unsupported type")
}

// writePointer aligns to 2 and writes the backward distance to target.
// target == noPointee writes a null pointer.
func (e *Encoder) writePointer(w *Writer, target int, t types.TypeID, path string) error {
	w.Align(2)
	if target == noPointee {
		w.writeUint(0, 2)
		return nil
	}
	diff, err := safecast.Conv[uint16](w.Tell() - target)
	if err != nil || diff == 0 {
		if err == nil {
			err = errors.New("pointee does not precede the pointer")
		}
		return &Error{Kind: ErrPointerOverflow, Type: e.types.Label(t), Path: path, Err: err}
	}
	w.writeUint(uint64(diff), 2)
	return nil
}

func (e *Encoder) encodeEnum(t types.TypeID, v *yaml.Node, w *Writer, path string) (int, error) {
	info, _ := e.types.EnumInfo(t)
	if v == nil || v.Kind != yaml.ScalarNode {
		return 0, e.fail(ErrValueMismatch, t, path, "expected an enumerator name")
	}
	member, ok := info.ByName(v.Value)
	if !ok {
		n, err := strconv.ParseInt(v.Value, 0, 64)
		if err != nil {
			return 0, e.fail(ErrUnknownEnum, t, path, fmt.Sprintf("no enumerator %q", v.Value))
		}
		if member, ok = info.ByValue(n); !ok {
			return 0, e.fail(ErrUnknownEnum, t, path, fmt.Sprintf("no enumerator with value %d", n))
		}
	}
	base := e.types.MustLookup(info.Base)
	size := scalarSize(base)
	w.Align(int(size))
	pos := w.Tell()
	w.writeUint(uint64(member.Value), size)
	return pos, nil
}

func (e *Encoder) encodeString(t types.TypeID, v *yaml.Node, w *Writer, path string) (int, error) {
	if v == nil || v.Kind != yaml.ScalarNode || v.Tag == "!!null" {
		return 0, e.fail(ErrValueMismatch, t, path, "expected a string scalar")
	}
	n, err := safecast.Conv[uint16](len(v.Value))
	if err != nil {
		return 0, &Error{Kind: ErrValueMismatch, Type: "string", Path: path, Msg: "string longer than 65535 bytes", Err: err}
	}
	w.Align(2)
	pos := w.Tell()
	w.writeUint(uint64(n), 2)
	w.WriteRaw([]byte(v.Value))
	return pos, nil
}

func (e *Encoder) encodeArray(t types.TypeID, tt types.Type, v *yaml.Node, w *Writer, path string) (int, error) {
	if v == nil || v.Kind != yaml.SequenceNode {
		return 0, e.fail(ErrValueMismatch, t, path, "expected a sequence")
	}
	if uint64(len(v.Content)) != uint64(tt.Count) {
		return 0, e.fail(ErrValueMismatch, t, path, fmt.Sprintf("expected %d elements, got %d", tt.Count, len(v.Content)))
	}
	l, err := e.layouts.LayoutOf(t)
	if err != nil {
		return 0, e.wrap(err, t, path)
	}
	w.Align(int(l.Align))
	pos := w.Tell()
	for i, item := range v.Content {
		if _, err := e.encode(tt.Elem, item, w, index(path, i)); err != nil {
			return 0, err
		}
	}
	return pos, nil
}

// encodeVector writes a u16 count followed by the elements aligned to the
// element alignment. Pointer elements write every pointee before the count.
func (e *Encoder) encodeVector(t types.TypeID, tt types.Type, v *yaml.Node, w *Writer, path string) (int, error) {
	if v == nil || v.Kind != yaml.SequenceNode {
		return 0, e.fail(ErrValueMismatch, t, path, "expected a sequence")
	}
	count, err := safecast.Conv[uint16](len(v.Content))
	if err != nil {
		return 0, &Error{Kind: ErrValueMismatch, Type: e.types.Label(t), Path: path, Msg: "vector longer than 65535 elements", Err: err}
	}
	elem, err := e.layouts.WireLayout(tt.Elem)
	if err != nil {
		return 0, e.wrap(err, t, path)
	}

	var targets []int
	elemType := e.types.MustLookup(tt.Elem)
	if elemType.Kind == types.KindPointer {
		targets = make([]int, len(v.Content))
		for i, item := range v.Content {
			if isNull(item) {
				targets[i] = noPointee
				continue
			}
			if targets[i], err = e.encode(elemType.Elem, item, w, index(path, i)); err != nil {
				return 0, err
			}
		}
	}

	w.Align(2)
	pos := w.Tell()
	w.writeUint(uint64(count), 2)
	for i, item := range v.Content {
		w.Align(int(elem.Align))
		if targets != nil {
			if err := e.writePointer(w, targets[i], tt.Elem, index(path, i)); err != nil {
				return 0, err
			}
			continue
		}
		if _, err := e.encode(tt.Elem, item, w, index(path, i)); err != nil {
			return 0, err
		}
	}
	return pos, nil
}

// encodeStruct writes pointees of all pointer members, then the members in
// declaration order at their layout offsets, then the trailing padding.
func (e *Encoder) encodeStruct(t types.TypeID, v *yaml.Node, w *Writer, path string) (int, error) {
	info, _ := e.types.StructInfo(t)
	values, err := e.mapping(t, v, path, info.Members)
	if err != nil {
		return 0, err
	}
	l, err := e.layouts.LayoutOf(t)
	if err != nil {
		return 0, e.wrap(err, t, path)
	}

	targets := make([]int, len(info.Members))
	for i, m := range info.Members {
		mv := values[m.Name]
		optional := m.Nullable && e.types.IsPointer(m.Type)
		switch {
		case mv == nil && !optional:
			return 0, e.fail(ErrValueMismatch, t, field(path, m.Name), "missing member")
		case isNull(mv) && !optional:
			return 0, e.fail(ErrValueMismatch, t, field(path, m.Name), "member is null")
		case isNull(mv):
			targets[i] = noPointee
			continue
		case !e.types.IsPointer(m.Type):
			continue
		}
		pointee := e.types.MustLookup(m.Type).Elem
		if targets[i], err = e.encode(pointee, mv, w, field(path, m.Name)); err != nil {
			return 0, err
		}
	}

	w.Align(int(l.Align))
	start := w.Tell()
	for i, m := range info.Members {
		ml, err := e.layouts.WireLayout(m.Type)
		if err != nil {
			return 0, e.wrap(err, t, path)
		}
		w.Align(int(ml.Align))
		e.checkOffset(t, m.Name, int(l.Members[i].Offset), w.Tell()-start)
		if e.types.IsPointer(m.Type) {
			if err := e.writePointer(w, targets[i], m.Type, field(path, m.Name)); err != nil {
				return 0, err
			}
			continue
		}
		if _, err := e.encode(m.Type, values[m.Name], w, field(path, m.Name)); err != nil {
			return 0, err
		}
	}
	e.checkSize(t, int(l.Size), w.Tell()-start)
	w.PadTo(start + int(l.Size))
	return start, nil
}

// encodeUnion writes the active member's pointee if any, then the
// discriminant and the payload at its layout offset. A raw union has no
// discriminant.
func (e *Encoder) encodeUnion(t types.TypeID, v *yaml.Node, w *Writer, path string) (int, error) {
	info, _ := e.types.UnionInfo(t)
	values, err := e.mapping(t, v, path, info.Members)
	if err != nil {
		return 0, err
	}
	active := -1
	for i, m := range info.Members {
		mv, ok := values[m.Name]
		if !ok {
			continue
		}
		if isNull(mv) && !(m.Nullable && e.types.IsPointer(m.Type)) {
			return 0, e.fail(ErrUnionActive, t, field(path, m.Name), fmt.Sprintf("member %s is null", m.Name))
		}
		if active >= 0 {
			return 0, e.fail(ErrUnionActive, t, path, fmt.Sprintf("both %s and %s are set", info.Members[active].Name, m.Name))
		}
		active = i
	}
	if active < 0 {
		return 0, e.fail(ErrUnionActive, t, path, "no member is set")
	}
	l, err := e.layouts.LayoutOf(t)
	if err != nil {
		return 0, e.wrap(err, t, path)
	}
	member := info.Members[active]
	mv := values[member.Name]
	mpath := field(path, member.Name)

	target := noPointee
	if e.types.IsPointer(member.Type) && !isNull(mv) {
		if target, err = e.encode(e.types.MustLookup(member.Type).Elem, mv, w, mpath); err != nil {
			return 0, err
		}
	}

	w.Align(int(l.Align))
	start := w.Tell()
	if !info.Raw {
		tag, _ := e.types.EnumInfo(info.Discriminant)
		alt, ok := tag.ByName(member.Name)
		if !ok {
			panic(&InvariantError{Type: info.Name, Member: member.Name, Want: active, Got: -1})
		}
		w.writeUint(uint64(alt.Value), l.Tag.Size)
	}
	w.Align(int(l.Payload.Align))
	e.checkOffset(t, layout.UnionPayloadMember, int(l.PayloadOffset), w.Tell()-start)
	if e.types.IsPointer(member.Type) {
		if target == noPointee && !member.Nullable {
			return 0, e.fail(ErrValueMismatch, t, mpath, "pointer value is null")
		}
		if err := e.writePointer(w, target, member.Type, mpath); err != nil {
			return 0, err
		}
	} else if _, err := e.encode(member.Type, mv, w, mpath); err != nil {
		return 0, err
	}
	e.checkSize(t, int(l.Size), w.Tell()-start)
	w.PadTo(start + int(l.Size))
	return start, nil
}

// mapping indexes a mapping node by member name, rejecting unknown keys.
// An explicit null is kept so callers can tell it from an absent key.
func (e *Encoder) mapping(t types.TypeID, v *yaml.Node, path string, members []types.Member) (map[string]*yaml.Node, error) {
	if v == nil || v.Kind != yaml.MappingNode {
		return nil, e.fail(ErrValueMismatch, t, path, "expected a mapping")
	}
	known := make(map[string]bool, len(members))
	for _, m := range members {
		known[m.Name] = true
	}
	out := make(map[string]*yaml.Node, len(v.Content)/2)
	for i := 0; i+1 < len(v.Content); i += 2 {
		key := v.Content[i].Value
		if !known[key] {
			return nil, e.fail(ErrValueMismatch, t, field(path, key), "no such member")
		}
		out[key] = v.Content[i+1]
	}
	return out, nil
}

func (e *Encoder) checkOffset(t types.TypeID, member string, want, got int) {
	if want != got {
		panic(&InvariantError{Type: e.types.Label(t), Member: member, Want: want, Got: got})
	}
}

// checkSize panics when a value ran past its layout size.
func (e *Encoder) checkSize(t types.TypeID, size, wrote int) {
	if wrote > size {
		panic(&InvariantError{Type: e.types.Label(t), Want: size, Got: wrote})
	}
}

func (e *Encoder) fail(kind ErrorKind, t types.TypeID, path, msg string) *Error {
	return &Error{Kind: kind, Type: e.types.Label(t), Path: path, Msg: msg}
}

// wrap attaches type and path to an error from a helper or the layout
// engine.
func (e *Encoder) wrap(err error, t types.TypeID, path string) error {
	var ce *Error
	if errors.As(err, &ce) {
		if ce.Type == "" {
			ce.Type = e.types.Label(t)
		}
		if ce.Path == "" {
			ce.Path = path
		}
		return ce
	}
	return fmt.Errorf("%s: %w", e.types.Label(t), err)
}

func scalarSize(tt types.Type) uint32 {
	if tt.Kind == types.KindBool {
		return 1
	}
	return tt.Width.Bytes()
}

func isNull(v *yaml.Node) bool {
	return v == nil || (v.Kind == yaml.ScalarNode && v.Tag == "!!null")
}

func errMismatch(format string, args ...any) *Error {
	return &Error{Kind: ErrValueMismatch, Msg: fmt.Sprintf(format, args...)}
}

func field(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
