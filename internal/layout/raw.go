package layout

import "fmt"

// RawLayout is the inline footprint of a value. Size is always a multiple
// of Align; Padding counts the bytes added to get there.
type RawLayout struct {
	Size    uint32
	Align   uint32
	Padding uint32
}

// PointerLayout is the footprint of every reference site: one 16-bit
// backward offset.
var PointerLayout = RawLayout{Size: 2, Align: 2}

// NewRawLayout rounds size up to a multiple of align and records the
// inserted padding. An alignment of 0 is treated as 1.
func NewRawLayout(size, align uint32) RawLayout {
	if align == 0 {
		align = 1
	}
	padded := padTo(size, align)
	return RawLayout{Size: padded, Align: align, Padding: padded - size}
}

func (l RawLayout) String() string {
	if l.Padding == 0 {
		return fmt.Sprintf("{%d,%d}", l.Size, l.Align)
	}
	return fmt.Sprintf("{%d,%d pad %d}", l.Size, l.Align, l.Padding)
}

// Overlay combines alternatives sharing one slot: max size, lcm alignment.
func Overlay(layouts ...RawLayout) RawLayout {
	var size uint32
	align := uint32(1)
	for _, l := range layouts {
		size = max(size, l.Size)
		align = lcm(align, max(l.Align, 1))
	}
	return NewRawLayout(size, align)
}

func padTo(n, align uint32) uint32 {
	if align <= 1 {
		return n
	}
	if r := n % align; r != 0 {
		return n + (align - r)
	}
	return n
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b uint32) uint32 {
	if a == 0 || b == 0 {
		return max(a, b)
	}
	return a / gcd(a, b) * b
}
