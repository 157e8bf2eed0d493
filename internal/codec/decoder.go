package codec

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"wirec/internal/layout"
	"wirec/internal/types"
)

// Decoder reads buffers produced by Encoder.Marshal back into structured
// values.
type Decoder struct {
	types   *types.Interner
	layouts *layout.Engine
}

// NewDecoder returns a decoder over the layout engine's types.
func NewDecoder(layouts *layout.Engine) *Decoder {
	return &Decoder{types: layouts.Types, layouts: layouts}
}

// Decode reads a root value of type t. The root is anchored at the end of
// data: a struct, union or scalar occupies the last size bytes, and a root
// string, vector or pointer is found through the trailing pointer.
func (d *Decoder) Decode(t types.TypeID, data []byte) (*yaml.Node, error) {
	tt, ok := d.types.Lookup(t)
	if !ok {
		return nil, &Error{Kind: ErrValueMismatch, Msg: "invalid type"}
	}
	switch tt.Kind {
	case types.KindString, types.KindVector:
		slot := len(data) - 2
		if slot < 0 {
			return nil, d.fail(ErrOutOfBounds, t, "", "buffer too short for the root pointer")
		}
		target, err := d.follow(data, slot, t, "")
		if err != nil {
			return nil, err
		}
		return d.decode(t, data[:slot], target, "")
	case types.KindPointer:
		return d.decode(t, data, len(data)-2, "")
	default:
		l, err := d.layouts.LayoutOf(t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.types.Label(t), err)
		}
		start := len(data) - int(l.Size)
		if start < 0 {
			return nil, d.fail(ErrOutOfBounds, t, "", fmt.Sprintf("buffer holds %d bytes, value needs %d", len(data), l.Size))
		}
		return d.decode(t, data, start, "")
	}
}

// decode reads a value of type t starting at pos. Everything the value
// refers to lies inside buf, which ends where the value's valid region ends.
func (d *Decoder) decode(t types.TypeID, buf []byte, pos int, path string) (*yaml.Node, error) {
	tt := d.types.MustLookup(t)
	switch tt.Kind {
	case types.KindBool, types.KindInt, types.KindUint, types.KindFloat:
		size := scalarSize(tt)
		if err := d.check(buf, pos, int(size), t, path); err != nil {
			return nil, err
		}
		return scalarNode(tt, readUint(buf, pos, size)), nil
	case types.KindEnum:
		return d.decodeEnum(t, buf, pos, path)
	case types.KindString:
		if err := d.check(buf, pos, 2, t, path); err != nil {
			return nil, err
		}
		n := int(readUint(buf, pos, 2))
		if err := d.check(buf, pos+2, n, t, path); err != nil {
			return nil, err
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(buf[pos+2 : pos+2+n])}, nil
	case types.KindArray:
		elem, err := d.layouts.WireLayout(tt.Elem)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.types.Label(t), err)
		}
		return d.sequence(tt.Elem, buf, pos, int(tt.Count), int(elem.Size), path)
	case types.KindVector:
		if err := d.check(buf, pos, 2, t, path); err != nil {
			return nil, err
		}
		count := int(readUint(buf, pos, 2))
		elem, err := d.layouts.WireLayout(tt.Elem)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.types.Label(t), err)
		}
		begin := alignUp(pos+2, int(elem.Align))
		return d.sequence(tt.Elem, buf, begin, count, int(elem.Size), path)
	case types.KindPointer:
		if err := d.check(buf, pos, 2, t, path); err != nil {
			return nil, err
		}
		if readUint(buf, pos, 2) == 0 {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
		}
		target, err := d.follow(buf, pos, t, path)
		if err != nil {
			return nil, err
		}
		return d.decode(tt.Elem, buf[:pos], target, path)
	case types.KindStruct:
		return d.decodeStruct(t, buf, pos, path)
	case types.KindUnion:
		return d.decodeUnion(t, buf, pos, path)
	case types.KindInvalid:
	}
	return nil, d.fail(ErrValueMismatch, t, path, "unsupported type")
}

// follow reads the pointer at slot and returns the position it refers to.
func (d *Decoder) follow(buf []byte, slot int, t types.TypeID, path string) (int, error) {
	if err := d.check(buf, slot, 2, t, path); err != nil {
		return 0, err
	}
	diff := int(readUint(buf, slot, 2))
	if diff == 0 || diff > slot {
		return 0, d.fail(ErrOutOfBounds, t, path, fmt.Sprintf("pointer at %d refers to %d", slot, slot-diff))
	}
	return slot - diff, nil
}

func (d *Decoder) sequence(elem types.TypeID, buf []byte, begin, count, stride int, path string) (*yaml.Node, error) {
	out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for i := range count {
		at := begin + i*stride
		// elements and their pointees end before the next element
		item, err := d.decode(elem, buf[:min(len(buf), at+stride)], at, index(path, i))
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, item)
	}
	return out, nil
}

func (d *Decoder) decodeEnum(t types.TypeID, buf []byte, pos int, path string) (*yaml.Node, error) {
	info, _ := d.types.EnumInfo(t)
	base := d.types.MustLookup(info.Base)
	size := scalarSize(base)
	if err := d.check(buf, pos, int(size), t, path); err != nil {
		return nil, err
	}
	raw := readUint(buf, pos, size)
	v := int64(raw) //nolint:gosec // G115
	if base.Kind == types.KindInt {
		v = signExtend(raw, base.Width)
	}
	member, ok := info.ByValue(v)
	if !ok {
		return nil, d.fail(ErrUnknownEnum, t, path, fmt.Sprintf("no enumerator with value %d", v))
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: member.Name}, nil
}

// decodeStruct walks members last to first, each with the buffer trimmed
// to the end of that member. Members that decode to null are left out.
func (d *Decoder) decodeStruct(t types.TypeID, buf []byte, pos int, path string) (*yaml.Node, error) {
	info, _ := d.types.StructInfo(t)
	l, err := d.layouts.LayoutOf(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.types.Label(t), err)
	}
	if err := d.check(buf, pos, int(l.Size), t, path); err != nil {
		return nil, err
	}
	values := make([]*yaml.Node, len(info.Members))
	for i := len(info.Members) - 1; i >= 0; i-- {
		m := info.Members[i]
		ml, err := d.layouts.WireLayout(m.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.types.Label(t), err)
		}
		at := pos + int(l.Members[i].Offset)
		v, err := d.decode(m.Type, buf[:at+int(ml.Size)], at, field(path, m.Name))
		if err != nil {
			return nil, err
		}
		if d.types.IsPointer(m.Type) && !m.Nullable && readUint(buf, at, 2) == 0 {
			return nil, d.fail(ErrValueMismatch, t, field(path, m.Name), "null pointer in a non-nullable member")
		}
		values[i] = v
	}

	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i, m := range info.Members {
		if values[i].Tag == "!!null" {
			continue
		}
		out.Content = append(out.Content, keyNode(m.Name), values[i])
	}
	return out, nil
}

func (d *Decoder) decodeUnion(t types.TypeID, buf []byte, pos int, path string) (*yaml.Node, error) {
	info, _ := d.types.UnionInfo(t)
	l, err := d.layouts.LayoutOf(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.types.Label(t), err)
	}
	if err := d.check(buf, pos, int(l.Size), t, path); err != nil {
		return nil, err
	}
	if info.Raw {
		// nothing records the active member; the value is skipped
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	tag, _ := d.types.EnumInfo(info.Discriminant)
	raw := readUint(buf, pos, l.Tag.Size)
	alt, ok := tag.ByValue(int64(raw)) //nolint:gosec // G115
	if !ok {
		return nil, d.fail(ErrUnknownEnum, t, path, fmt.Sprintf("discriminant %d selects no member", raw))
	}
	var member types.Member
	found := false
	for _, m := range info.Members {
		if m.Name == alt.Name {
			member, found = m, true
			break
		}
	}
	if !found {
		return nil, d.fail(ErrUnknownEnum, t, path, fmt.Sprintf("discriminant %s selects no member", alt.Name))
	}
	ml, err := d.layouts.WireLayout(member.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.types.Label(t), err)
	}
	at := pos + int(l.PayloadOffset)
	v, err := d.decode(member.Type, buf[:at+int(ml.Size)], at, field(path, member.Name))
	if err != nil {
		return nil, err
	}
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{keyNode(member.Name), v}}, nil
}

func (d *Decoder) check(buf []byte, pos, n int, t types.TypeID, path string) error {
	if pos < 0 || n < 0 || pos+n > len(buf) {
		return d.fail(ErrOutOfBounds, t, path, fmt.Sprintf("%d bytes at %d exceed %d", n, pos, len(buf)))
	}
	return nil
}

func (d *Decoder) fail(kind ErrorKind, t types.TypeID, path, msg string) *Error {
	return &Error{Kind: kind, Type: d.types.Label(t), Path: path, Msg: msg}
}

// IsCodecError reports whether err carries a *Error of the given kind.
func IsCodecError(err error, kind ErrorKind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

func keyNode(name string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
}

func alignUp(pos, align int) int {
	if align <= 1 {
		return pos
	}
	return (pos + align - 1) / align * align
}
