package regs

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// Write is one recorded store to a Mem.
type Write struct {
	Off uint32
	Val uint32
}

// Mem is a register file held in ordinary memory. It records every write in
// order and can be told to fail a particular write, which makes it useful for
// checking write sequences without hardware. The daemon also uses it as a
// simulated device.
type Mem struct {
	mu      sync.Mutex
	size    uint32
	regs    map[uint32]uint32
	writes  []Write
	failAt  int // 1-based index of the write to fail, 0 for never
	nWrites int
}

// NewMem returns a zeroed register file of size bytes.
func NewMem(size uint32) *Mem {
	return &Mem{size: size, regs: make(map[uint32]uint32)}
}

func (m *Mem) check(off uint32) error {
	if off%4 != 0 {
		return fmt.Errorf("offset %#x isn't 32-bit aligned", off)
	}
	if m.size < 4 || off > m.size-4 {
		return fmt.Errorf("offset %#x outside %d byte register file", off, m.size)
	}
	return nil
}

// Read32 implements Bus.
func (m *Mem) Read32(off uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(off); err != nil {
		return 0, err
	}
	return m.regs[off], nil
}

// Write32 implements Bus.
func (m *Mem) Write32(off uint32, val uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(off); err != nil {
		return err
	}
	m.nWrites++
	if m.failAt != 0 && m.nWrites == m.failAt {
		return fmt.Errorf("injected failure on write %d to %#x", m.nWrites, off)
	}
	glog.V(2).Infof("mem write %#03x = %08X", off, val)
	m.regs[off] = val
	m.writes = append(m.writes, Write{off, val})
	return nil
}

// Set stores val without recording it as a write, for seeding state.
func (m *Mem) Set(off uint32, val uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[off] = val
}

// Get returns the current value at off.
func (m *Mem) Get(off uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[off]
}

// Writes returns the successful writes so far, oldest first.
func (m *Mem) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := make([]Write, len(m.writes))
	copy(w, m.writes)
	return w
}

// ResetWrites forgets the write log and any pending failure.
func (m *Mem) ResetWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = nil
	m.nWrites = 0
	m.failAt = 0
}

// FailWrite makes the nth write from now fail. n must be at least 1.
func (m *Mem) FailWrite(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAt = m.nWrites + n
}
