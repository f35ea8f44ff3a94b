package main

import (
	"testing"
)

func TestParseHz(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"100000000", 100000000},
		{"100M", 100000000},
		{"148.5M", 148500000},
		{"25.175MHz", 25175000},
		{"12.288M", 12288000},
		{"44.1k", 44100},
		{"44.1K", 44100},
		{"1.2G", 1200000000},
		{" 65M ", 65000000},
		{"10GHz", 10000000000},
	}
	for _, test := range tests {
		got, err := parseHz(test.in)
		if err != nil {
			t.Errorf("parseHz(%q) failed: %v", test.in, err)
			continue
		}
		if got != test.want {
			t.Errorf("parseHz(%q) got: %d, want: %d", test.in, got, test.want)
		}
	}
}

func TestParseHzErrors(t *testing.T) {
	for _, in := range []string{"", "Hz", "M", "abc", "0", "-5M", "1.5", "0.0001k", "1/3M", "100000000000000000000G"} {
		if got, err := parseHz(in); err == nil {
			t.Errorf("parseHz(%q) got: %d, want error", in, got)
		}
	}
}
