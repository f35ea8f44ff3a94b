// Package mmcme drives the output clock of a Xilinx MMCME2 clock generator
// exposed through SpinalHDL's dynamic reconfiguration registers.
//
// The generator divides its parent clock by a pre-divider, multiplies the
// result up into the VCO and divides the VCO down to the output:
//
//	out = parent / PreDiv * Mul / PostDiv
//
// Solve finds the best Mul/PreDiv/PostDiv for a target rate, and Clock
// programs them into hardware.
package mmcme

import (
	"fmt"

	"github.com/golang/glog"
)

const MHz = 1000000

// Hardware limits. The VCO has to stay within [VCOMin, VCOMax] and its
// reference input (parent / PreDiv) mustn't drop below ClkInMin.
const (
	VCOMin   = 600 * MHz
	VCOMax   = 1200 * MHz
	ClkInMin = 10 * MHz

	MinMul     = 2
	MaxMul     = 62
	MinPreDiv  = 2
	MaxPreDiv  = 104 // Even values only
	MinPostDiv = 2
	MaxPostDiv = 127
)

// Config is a solved set of divider parameters and the output rate they
// produce from the parent rate they were solved for.
type Config struct {
	Mul     uint32
	PreDiv  uint32
	PostDiv uint32
	Rate    uint64
}

func (c Config) String() string {
	return fmt.Sprintf("mul %d, prediv %d, postdiv %d (%d Hz)", c.Mul, c.PreDiv, c.PostDiv, c.Rate)
}

// VCO returns the VCO frequency this config runs at for the given parent.
func (c Config) VCO(parent uint64) uint64 {
	return parent / uint64(c.PreDiv) * uint64(c.Mul)
}

// OutputRate computes the output rate for parent. Division happens before
// multiplication, exactly as the solver quantizes, so OutputRate(parent)
// equals Rate for the parent the config was solved with.
func (c Config) OutputRate(parent uint64) uint64 {
	return c.VCO(parent) / uint64(c.PostDiv)
}

// Valid checks the divider ranges and, for a non-zero parent, the VCO window.
func (c Config) Valid(parent uint64) error {
	if c.Mul < MinMul || c.Mul > MaxMul {
		return fmt.Errorf("mul %d outside [%d, %d]", c.Mul, MinMul, MaxMul)
	}
	if c.PreDiv < MinPreDiv || c.PreDiv > MaxPreDiv || c.PreDiv%2 != 0 {
		return fmt.Errorf("prediv %d not even in [%d, %d]", c.PreDiv, MinPreDiv, MaxPreDiv)
	}
	if c.PostDiv < MinPostDiv || c.PostDiv > MaxPostDiv {
		return fmt.Errorf("postdiv %d outside [%d, %d]", c.PostDiv, MinPostDiv, MaxPostDiv)
	}
	if parent == 0 {
		return nil
	}
	if clkin := parent / uint64(c.PreDiv); clkin > VCOMax {
		return fmt.Errorf("vco input %d Hz above %d", clkin, uint64(VCOMax))
	}
	if vco := c.VCO(parent); vco < VCOMin || vco > VCOMax {
		return fmt.Errorf("vco %d Hz outside [%d, %d]", vco, uint64(VCOMin), uint64(VCOMax))
	}
	return nil
}

func absDiff(a, b uint64) uint64 {
	if a >= b {
		return a - b
	}
	return b - a
}

// Solve searches every PreDiv/Mul pair for the config whose output is
// closest to target. Ties go to the first candidate found, searching PreDiv
// upwards and Mul upwards within each PreDiv.
func Solve(target, parent uint64) (Config, error) {
	c, _, err := solve(target, parent)
	return c, err
}

// solve also reports how many pre-divider values were tried.
func solve(target, parent uint64) (Config, int, error) {
	if target == 0 || parent == 0 {
		return Config{}, 0, fmt.Errorf("target %d Hz, parent %d Hz: %w", target, parent, ErrInvalidArgument)
	}
	var (
		best      Config
		bestScore uint64
		found     bool
		outer     int
	)
	for div := uint32(MinPreDiv); div <= MaxPreDiv; div += 2 {
		clkin := parent / uint64(div)
		// clkin only falls as div grows, so nothing further can qualify.
		if clkin < ClkInMin {
			break
		}
		outer++
		// Even the smallest multiplier would overshoot the VCO, and the
		// product could wrap.
		if clkin > VCOMax {
			continue
		}
		for mul := uint32(MinMul); mul <= MaxMul; mul++ {
			vco := clkin * uint64(mul)
			if vco < VCOMin || vco > VCOMax {
				continue
			}
			post := vco * 2 / target
			post += post & 1
			post >>= 1
			if post < MinPostDiv || post > MaxPostDiv {
				continue
			}
			rate := vco / post
			score := absDiff(rate, target)
			if !found || score < bestScore {
				best = Config{Mul: mul, PreDiv: div, PostDiv: uint32(post), Rate: rate}
				bestScore = score
				found = true
			}
		}
	}
	if !found {
		return Config{}, outer, fmt.Errorf("target %d Hz from parent %d Hz: %w", target, parent, ErrNoSolution)
	}
	glog.V(1).Infof("solved %d Hz from %d Hz: %v, error %d Hz", target, parent, best, bestScore)
	return best, outer, nil
}
