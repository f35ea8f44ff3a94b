package regs

import (
	"os"
	"path/filepath"
	"testing"
)

// A regular file stands in for /dev/mem: mmap treats them the same way.
func tempMem(t *testing.T, pages int) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "mem")
	if err := os.WriteFile(name, make([]byte, pages*os.Getpagesize()), 0600); err != nil {
		t.Fatalf("couldn't create backing file: %v", err)
	}
	return name
}

func TestWindowReadWrite(t *testing.T) {
	name := tempMem(t, 4)
	phys := uintptr(os.Getpagesize()) + 0x10 // Not page aligned on purpose
	w, err := mapFile(name, phys, 0x80)
	if err != nil {
		t.Fatalf("mapFile failed: %v", err)
	}
	defer w.Close()

	if err := w.Write32(0x58, 0x0000e30c); err != nil {
		t.Fatalf("Write32 failed: %v", err)
	}
	got, err := w.Read32(0x58)
	if err != nil {
		t.Fatalf("Read32 failed: %v", err)
	}
	if got != 0x0000e30c {
		t.Errorf("Read32 got: %08X, want: %08X", got, 0x0000e30c)
	}

	// Reopen the same range to check the write landed at phys+0x58.
	w2, err := mapFile(name, phys+0x58, 4)
	if err != nil {
		t.Fatalf("second mapFile failed: %v", err)
	}
	defer w2.Close()
	if got, _ := w2.Read32(0); got != 0x0000e30c {
		t.Errorf("second window got: %08X, want: %08X", got, 0x0000e30c)
	}
}

func TestWindowBounds(t *testing.T) {
	w, err := mapFile(tempMem(t, 1), 0, 0x20)
	if err != nil {
		t.Fatalf("mapFile failed: %v", err)
	}
	if _, err := w.Read32(0x20); err == nil {
		t.Errorf("Read32 past the end succeeded")
	}
	if err := w.Write32(0x1, 0); err == nil {
		t.Errorf("unaligned Write32 succeeded")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := w.Read32(0); err == nil {
		t.Errorf("Read32 after Close succeeded")
	}
}

func TestMapBadSize(t *testing.T) {
	if _, err := mapFile(tempMem(t, 1), 0, 6); err == nil {
		t.Errorf("mapFile with size 6 succeeded")
	}
}
