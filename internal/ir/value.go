package ir

import "fmt"

// Value carries a type, an optional display name, an optional defining
// instruction (nil for region parameters), and the head of an intrusive
// use list. Values are created when their defining instruction is
// created, or when a region parameter is added; writes to
// a Value after construction are not permitted other than through the
// use-list splice operations below.
type Value struct {
	typ      Type
	name     string
	autoName string // "%N" assigned at creation, used when name == ""
	def      *Inst  // nil for region parameters
	firstUse *Use
}

// NewValue constructs a detached value of the given type. Builders attach
// it to a defining instruction or region parameter list immediately after
// construction.
func newValue(ctx *Context, typ Type) *Value {
	return &Value{typ: typ, autoName: fmt.Sprintf("%%%d", ctx.freshID())}
}

func (v *Value) Type() Type { return v.typ }

// Name returns the display name if one was set via SetName, else the
// auto-assigned "%N" slot name.
func (v *Value) Name() string {
	if v.name != "" {
		return v.name
	}
	return v.autoName
}

func (v *Value) SetName(name string) { v.name = name }

// DefiningInst returns the instruction that produced this value, or nil
// if it is a region parameter.
func (v *Value) DefiningInst() *Inst { return v.def }

// Uses iterates the value's use list in link order.
func (v *Value) Uses() []*Use {
	var out []*Use
	for u := v.firstUse; u != nil; u = u.next {
		out = append(out, u)
	}
	return out
}

// HasUses reports whether any instruction still references this value.
func (v *Value) HasUses() bool { return v.firstUse != nil }

func (v *Value) addUse(u *Use) {
	u.value = v
	u.prev = nil
	u.next = v.firstUse
	if v.firstUse != nil {
		v.firstUse.prev = u
	}
	v.firstUse = u
}

func (v *Value) removeUse(u *Use) {
	if u.prev != nil {
		u.prev.next = u.next
	} else if v.firstUse == u {
		v.firstUse = u.next
	}
	if u.next != nil {
		u.next.prev = u.prev
	}
	u.prev, u.next, u.value = nil, nil, nil
}

// Use is a single operand slot, owned by its Inst and linked into the
// doubly-linked use list of the Value it references.
// A Use does not own the Value it refers to.
type Use struct {
	owner *Inst
	value *Value
	prev  *Use
	next  *Use
}

// Value returns the operand this use slot currently refers to.
func (u *Use) Value() *Value { return u.value }

// Owner returns the instruction that owns this operand slot.
func (u *Use) Owner() *Inst { return u.owner }

// newUse creates a Use owned by owner, referencing value, and links it
// into value's use list.
func newUse(owner *Inst, value *Value) *Use {
	u := &Use{owner: owner}
	if value != nil {
		value.addUse(u)
	}
	return u
}

// Set re-points this use at a different value, splicing out of the old
// value's use list and into the new one's. Passing nil detaches the use.
func (u *Use) Set(value *Value) {
	if u.value == value {
		return
	}
	if u.value != nil {
		u.value.removeUse(u)
	}
	if value != nil {
		value.addUse(u)
	}
}

// release detaches this use from its value without reassigning it;
// called when the owning instruction is destroyed.
func (u *Use) release() {
	if u.value != nil {
		u.value.removeUse(u)
	}
}
