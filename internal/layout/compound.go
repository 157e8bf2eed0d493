package layout

// MemberLayout is one placed member of a compound.
type MemberLayout struct {
	Name   string
	Offset uint32
	Layout RawLayout
}

// CompoundLayout incrementally packs members in C-struct order. After every
// AddMember the running layout describes the struct as if it ended right
// after that member, trailing padding included. Offsets never move.
type CompoundLayout struct {
	members []MemberLayout
	index   map[string]int
	end     uint32 // size without trailing padding
	current RawLayout
}

// NewCompoundLayout starts an empty compound with layout {0,1}.
func NewCompoundLayout() *CompoundLayout {
	return &CompoundLayout{
		index:   make(map[string]int),
		current: RawLayout{Size: 0, Align: 1},
	}
}

// AddMember places name after the previous member and returns its offset.
func (c *CompoundLayout) AddMember(name string, member RawLayout) (uint32, error) {
	if _, dup := c.index[name]; dup {
		return 0, &LayoutError{Kind: LayoutErrDuplicateMember, Member: name}
	}
	memberAlign := max(member.Align, 1)
	alignTo := lcm(c.current.Align, memberAlign)
	offset := padTo(c.end, memberAlign)
	end := offset + member.Size
	trailing := padTo(end, alignTo) - end

	c.index[name] = len(c.members)
	c.members = append(c.members, MemberLayout{Name: name, Offset: offset, Layout: member})
	c.end = end
	c.current = RawLayout{Size: end + trailing, Align: alignTo, Padding: trailing}
	return offset, nil
}

// Layout returns the running layout.
func (c *CompoundLayout) Layout() RawLayout { return c.current }

// Offset returns the offset assigned to name.
func (c *CompoundLayout) Offset(name string) (uint32, bool) {
	i, ok := c.index[name]
	if !ok {
		return 0, false
	}
	return c.members[i].Offset, true
}

// Members returns a copy of the placed members in insertion order.
func (c *CompoundLayout) Members() []MemberLayout {
	return append([]MemberLayout(nil), c.members...)
}
