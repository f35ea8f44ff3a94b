package mmcme

import (
	"fmt"

	"github.com/Jon-Bright/mmcmectl/regs"
)

// Register is one of the MMCME2 dynamic reconfiguration registers we touch.
// Addr is the DRP word address; the bridge exposes each word at Addr*4.
// Owned is the set of bits this driver writes; the rest belong to
// configuration we don't manage (phase mux, edge and no-count bits, ...) and
// are carried over from the value read before the update.
type Register struct {
	Name  string
	Addr  uint32
	Owned regs.Mask
}

// Offset is the register's byte offset from the window base.
func (r Register) Offset() uint32 {
	return r.Addr * 4
}

func (r Register) String() string {
	return fmt.Sprintf("%s(%#02x)", r.Name, r.Addr)
}

var (
	ClkOut0  = Register{"CLKOUT0_R1", 0x08, ^regs.Mask(0xf000)}
	ClkFbOut = Register{"CLKFBOUT_R1", 0x14, ^regs.Mask(0xf000)}
	// Bit 12 (edge) is ours too. PreDiv is always even, so it's always 0.
	DivIn = Register{"DIVIN", 0x16, ^regs.Mask(0xe000)}
)

var (
	lowTime  = regs.Field{Shift: 0, Width: 6}
	highTime = regs.Field{Shift: 6, Width: 6}
)

// safeDuty is written to the output and input dividers before the new ratio
// goes in. With both halves at their maximum count the outputs run slow and
// glitch-free while the feedback divider changes underneath them.
var safeDuty = uint32(63)<<highTime.Shift | uint32(63)<<lowTime.Shift

// encodeDuty turns a divide ratio into high and low half-period counts, giving
// a 50% duty cycle, or as near as an odd ratio allows.
func encodeDuty(v uint32) (uint32, error) {
	h, err := highTime.Put(v / 2)
	if err != nil {
		return 0, fmt.Errorf("ratio %d: %v: %w", v, err, ErrFieldOverflow)
	}
	l, err := lowTime.Put(v/2 + v%2)
	if err != nil {
		return 0, fmt.Errorf("ratio %d: %v: %w", v, err, ErrFieldOverflow)
	}
	return h | l, nil
}

// decodeDuty recovers the divide ratio from a register's duty-cycle fields.
func decodeDuty(reg uint32) uint32 {
	return highTime.Get(reg) + lowTime.Get(reg)
}

type regWrite struct {
	reg Register
	val uint32
}

// writeSequence returns the register writes that install c, in the order
// they must happen: the transitional safe value on the output and input
// dividers, then feedback, output and input dividers. The feedback path
// settles before the output taps are finalized.
// All three ratios are encoded up front so nothing is written for a config
// that can't be represented.
func writeSequence(c Config) ([]regWrite, error) {
	fb, err := encodeDuty(c.Mul)
	if err != nil {
		return nil, fmt.Errorf("couldn't encode mul: %w", err)
	}
	out, err := encodeDuty(c.PostDiv)
	if err != nil {
		return nil, fmt.Errorf("couldn't encode postdiv: %w", err)
	}
	in, err := encodeDuty(c.PreDiv)
	if err != nil {
		return nil, fmt.Errorf("couldn't encode prediv: %w", err)
	}
	return []regWrite{
		{ClkOut0, safeDuty},
		{DivIn, safeDuty},
		{ClkFbOut, fb},
		{ClkOut0, out},
		{DivIn, in},
	}, nil
}
