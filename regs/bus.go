// Package regs provides 32-bit register access for memory-mapped peripherals,
// plus the masks and fields needed to share a register with bits owned by
// someone else.
package regs

import (
	"fmt"
)

// Bus reads and writes 32-bit registers at byte offsets from a base address.
// Window implements it for real hardware, Mem for tests and simulation.
type Bus interface {
	Read32(off uint32) (uint32, error)
	Write32(off uint32, val uint32) error
}

// Mask is the set of bits in a register that a driver owns. Everything
// outside the mask belongs to someone else and must survive our writes.
type Mask uint32

// Merge returns old with the owned bits replaced by those of val.
func (m Mask) Merge(old, val uint32) uint32 {
	return old&^uint32(m) | val&uint32(m)
}

// Foreign returns the bits of v that the mask doesn't own.
func (m Mask) Foreign(v uint32) uint32 {
	return v &^ uint32(m)
}

// Update does a read-modify-write of the register at off, replacing only the
// bits in m. It returns the value written.
func Update(b Bus, off uint32, m Mask, val uint32) (uint32, error) {
	old, err := b.Read32(off)
	if err != nil {
		return 0, fmt.Errorf("couldn't read %#x for update: %w", off, err)
	}
	nv := m.Merge(old, val)
	if err := b.Write32(off, nv); err != nil {
		return 0, fmt.Errorf("couldn't write %#x: %w", off, err)
	}
	return nv, nil
}

// Field is a run of bits inside a register.
type Field struct {
	Shift uint
	Width uint
}

// Max is the largest value the field can hold.
func (f Field) Max() uint32 {
	return 1<<f.Width - 1
}

// Mask returns the field's bits in register position.
func (f Field) Mask() Mask {
	return Mask(f.Max() << f.Shift)
}

// Put returns v shifted into position. Values that don't fit are an error
// rather than being truncated.
func (f Field) Put(v uint32) (uint32, error) {
	if v > f.Max() {
		return 0, fmt.Errorf("value %d doesn't fit %d-bit field at bit %d", v, f.Width, f.Shift)
	}
	return v << f.Shift, nil
}

// Get extracts the field from a register value.
func (f Field) Get(reg uint32) uint32 {
	return (reg >> f.Shift) & f.Max()
}
