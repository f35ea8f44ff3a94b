package mmcme

import (
	"fmt"
	"sync"

	"github.com/Jon-Bright/mmcmectl/regs"
	"github.com/golang/glog"
)

const DefaultName = "spinal_mmcme2"

// Clock is the MMCME2's CLKOUT0 output. It owns the register window and the
// last configuration it applied. The parent rate is passed in on every call
// since the parent may be reconfigured between calls.
//
// All methods are safe for concurrent use. SetRate, Sync and RecalcRate are
// serialized with each other; RoundRate doesn't touch shared state.
type Clock struct {
	name   string
	parent string
	bus    regs.Bus

	mu         sync.Mutex
	cur        Config
	configured bool
}

// New returns a clock driving the registers on bus. Its configuration is
// unknown until SetRate or Sync succeeds.
func New(name, parentName string, bus regs.Bus) *Clock {
	if name == "" {
		name = DefaultName
	}
	return &Clock{name: name, parent: parentName, bus: bus}
}

func (c *Clock) Name() string {
	return c.name
}

func (c *Clock) ParentName() string {
	return c.parent
}

// Config returns the cached configuration and whether there is one.
func (c *Clock) Config() (Config, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur, c.configured
}

// RoundRate returns the rate SetRate would achieve for target, without
// touching hardware. Configs the registers can't hold fail here as they would
// in SetRate.
func (c *Clock) RoundRate(target, parent uint64) (uint64, error) {
	cfg, err := Solve(target, parent)
	if err != nil {
		return 0, err
	}
	if _, err := writeSequence(cfg); err != nil {
		return 0, err
	}
	return cfg.Rate, nil
}

// SetRate solves for target, programs the result and returns the rate
// actually achieved. On failure the cached configuration is unchanged; if
// the failure came part way through the register writes, the hardware may
// be left between configurations and the error says which write failed.
func (c *Clock) SetRate(target, parent uint64) (uint64, error) {
	glog.Infof("%s: set frequency as %d Hz (parent %s at %d Hz)", c.name, target, c.parent, parent)
	cfg, err := Solve(target, parent)
	if err != nil {
		return 0, fmt.Errorf("couldn't solve for %d Hz: %w", target, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.apply(cfg); err != nil {
		return 0, err
	}
	glog.Infof("%s: now %v", c.name, cfg)
	return cfg.Rate, nil
}

// apply writes cfg to the hardware and caches it. c.mu must be held.
func (c *Clock) apply(cfg Config) error {
	seq, err := writeSequence(cfg)
	if err != nil {
		return fmt.Errorf("couldn't apply %v: %w", cfg, err)
	}

	// Snapshot the registers first: the foreign bits written back all come
	// from these values, not from our own intermediate writes.
	old := make(map[Register]uint32, 3)
	for _, r := range []Register{DivIn, ClkOut0, ClkFbOut} {
		v, err := c.bus.Read32(r.Offset())
		if err != nil {
			return fmt.Errorf("couldn't read %v: %w", r, err)
		}
		old[r] = v
	}

	for i, w := range seq {
		v := w.reg.Owned.Merge(old[w.reg], w.val)
		if err := c.bus.Write32(w.reg.Offset(), v); err != nil {
			if i > 0 {
				glog.Warningf("%s: write %d of %d (%v) failed, hardware partially reconfigured", c.name, i+1, len(seq), w.reg)
			}
			return fmt.Errorf("couldn't write %v = %08X: %w", w.reg, v, err)
		}
	}
	c.cur = cfg
	c.configured = true
	return nil
}

// RecalcRate returns the current output rate given the live parent rate.
func (c *Clock) RecalcRate(parent uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return 0, ErrNotConfigured
	}
	return c.cur.OutputRate(parent), nil
}

// RegValue is a register and its current contents.
type RegValue struct {
	Reg Register
	Val uint32
}

// Registers reads the raw contents of the registers the clock uses.
func (c *Clock) Registers() ([]RegValue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readRegisters()
}

func (c *Clock) readRegisters() ([]RegValue, error) {
	var rv []RegValue
	for _, r := range []Register{ClkFbOut, ClkOut0, DivIn} {
		v, err := c.bus.Read32(r.Offset())
		if err != nil {
			return nil, fmt.Errorf("couldn't read %v: %w", r, err)
		}
		rv = append(rv, RegValue{r, v})
	}
	return rv, nil
}

// Sync reads the dividers back from hardware and adopts them as the cached
// configuration, for when something else programmed the clock. The
// returned config's Rate is computed for parent.
func (c *Clock) Sync(parent uint64) (Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rv, err := c.readRegisters()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Mul:     decodeDuty(rv[0].Val),
		PostDiv: decodeDuty(rv[1].Val),
		PreDiv:  decodeDuty(rv[2].Val),
	}
	if err := cfg.Valid(parent); err != nil {
		return Config{}, fmt.Errorf("hardware holds unusable config (%v): %v", cfg, err)
	}
	if parent != 0 {
		cfg.Rate = cfg.OutputRate(parent)
	}
	c.cur = cfg
	c.configured = true
	glog.Infof("%s: synced from hardware, %v", c.name, cfg)
	return cfg, nil
}
