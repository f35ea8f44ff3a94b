package main

import (
	"fmt"
	"math/big"
	"strings"
)

var hzSuffixes = map[byte]int64{
	'k': 1000,
	'K': 1000,
	'M': 1000000,
	'G': 1000000000,
}

// parseHz parses a frequency like "100000000", "148.5M" or "12.288MHz".
// The result must be a whole, non-zero number of Hz.
func parseHz(s string) (uint64, error) {
	t := strings.TrimSuffix(strings.TrimSpace(s), "Hz")
	if t == "" {
		return 0, fmt.Errorf("empty frequency %q", s)
	}
	mult := int64(1)
	if m, ok := hzSuffixes[t[len(t)-1]]; ok {
		mult = m
		t = t[:len(t)-1]
	}
	r, ok := new(big.Rat).SetString(t)
	if !ok {
		return 0, fmt.Errorf("couldn't parse frequency %q", s)
	}
	r.Mul(r, new(big.Rat).SetInt64(mult))
	if !r.IsInt() || r.Sign() <= 0 || !r.Num().IsUint64() {
		return 0, fmt.Errorf("frequency %q isn't a positive whole number of Hz", s)
	}
	return r.Num().Uint64(), nil
}
