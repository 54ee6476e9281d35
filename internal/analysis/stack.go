package analysis

import "tinytc/internal/ir"

// slotSize returns the byte footprint of a memref type, used by the
// stack pass to size an alloca's slot. Dynamic dimensions are not legal
// on an alloca's shape (allocas always have fully static shape); a
// Dynamic entry here is a verifier bug, not a
// case the allocator needs to handle gracefully.
func slotSize(t ir.Type) int64 {
	elemBits := int64(8)
	switch {
	case t.Element().IsFloat():
		elemBits = int64(t.Element().FloatKind().Bits())
	case t.Element().IsInteger():
		elemBits = int64(t.Element().IntWidth())
	case t.Element().IsComplex():
		elemBits = int64(t.Element().FloatKind().Bits()) * 2
	case t.Element().IsIndex():
		elemBits = 64
	}
	elemBytes := (elemBits + 7) / 8
	shape := t.Shape()
	if len(shape) == 0 {
		return elemBytes
	}
	stride := t.Stride()
	// Footprint is the highest element offset reachable (the sum over
	// modes of (extent-1)*stride) plus one element, in bytes.
	extent := int64(1)
	for i, s := range shape {
		reach := (s - 1) * stride[i]
		if s == 0 {
			reach = 0
		}
		extent += reach
	}
	return extent * elemBytes
}

// slot is one allocated region of the function's scratch stack.
type slot struct {
	offset int64
	size   int64
	free   bool
}

// Stack is a first-fit free-list allocator over a function's local
// scratch memory: allocas draw from the lowest
// free slot big enough to hold them, and lifetime_stop returns a slot to
// the free list so a later alloca in a disjoint lifetime can reuse the
// same bytes.
type Stack struct {
	slots []slot
	high  int64
}

// NewStack creates an empty allocator.
func NewStack() *Stack { return &Stack{} }

// HighWaterMark is the total scratch-memory footprint required, i.e. the
// function's local memref allocation size.
func (s *Stack) HighWaterMark() int64 { return s.high }

// Alloc reserves size bytes, first-fit among free slots, growing the
// high-water mark if none are large enough, and returns the byte offset.
func (s *Stack) Alloc(size int64) int64 {
	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.free || sl.size < size {
			continue
		}
		offset := sl.offset
		if sl.size > size {
			remainder := slot{offset: sl.offset + size, size: sl.size - size, free: true}
			sl.size = size
			sl.free = false
			s.slots = append(s.slots, slot{})
			copy(s.slots[i+2:], s.slots[i+1:])
			s.slots[i+1] = remainder
		} else {
			sl.free = false
		}
		return offset
	}
	offset := s.high
	s.slots = append(s.slots, slot{offset: offset, size: size, free: false})
	s.high += size
	return offset
}

// Free returns the slot at offset to the free list, merging with an
// adjacent free slot when possible to reduce fragmentation.
func (s *Stack) Free(offset int64) {
	for i := range s.slots {
		if s.slots[i].offset != offset {
			continue
		}
		s.slots[i].free = true
		s.coalesce()
		return
	}
}

func (s *Stack) coalesce() {
	for i := 0; i < len(s.slots)-1; i++ {
		if s.slots[i].free && s.slots[i+1].free {
			s.slots[i].size += s.slots[i+1].size
			s.slots = append(s.slots[:i+1], s.slots[i+2:]...)
			i--
		}
	}
}

// AssignStackOffsets runs the allocator over body, consuming
// alloca/lifetime_stop pairs in program order (InsertLifetimeStops must
// have already run) and writing each alloca's chosen offset into
// Inst.Attrs.StackOffset. Returns the function's high-water mark.
func AssignStackOffsets(body *ir.Region) int64 {
	s := NewStack()
	assignRegion(s, body)
	return s.HighWaterMark()
}

func assignRegion(s *Stack, region *ir.Region) {
	offsetOf := make(map[*ir.Value]int64)
	for _, inst := range region.Insts() {
		switch inst.Op {
		case ir.OpAlloca:
			size := slotSize(inst.Result(0).Type())
			offset := s.Alloc(size)
			inst.Attrs.StackOffset = offset
			inst.Attrs.LiveStart = offset
			inst.Attrs.LiveEnd = offset + size
			offsetOf[inst.Result(0)] = offset
		case ir.OpLifetimeStop:
			if v := inst.Operand(0); v != nil {
				if offset, ok := offsetOf[v]; ok {
					s.Free(offset)
				}
			}
		}
		for _, child := range inst.Regions() {
			assignRegion(s, child)
		}
	}
}
