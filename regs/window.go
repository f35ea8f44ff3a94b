package regs

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/golang/glog"
)

const MEM_FILE = "/dev/mem"

// Window is a range of physical address space mapped from /dev/mem.
type Window struct {
	phys uintptr
	size uint32
	buf  mmap.MMap
	offs uintptr
}

// Map opens /dev/mem and uses mmap to map size bytes at physAddr into our
// address space. Since the mapping has to start at a page boundary, the
// physical address is rounded down to the nearest page boundary and the
// remainder is kept as the offset to the first register.
func Map(physAddr uintptr, size int) (*Window, error) {
	return mapFile(MEM_FILE, physAddr, size)
}

func mapFile(name string, physAddr uintptr, size int) (*Window, error) {
	if size <= 0 || size%4 != 0 {
		return nil, fmt.Errorf("window size %d isn't a positive multiple of 4", size)
	}
	f, err := os.OpenFile(name, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s: %v", name, err)
	}
	defer f.Close() // The mapping survives the close

	pageSize := uintptr(os.Getpagesize())
	pagemask := ^(pageSize - 1)
	mapAddr := physAddr & pagemask
	mapSize := size + int(physAddr-mapAddr)
	glog.V(1).Infof("MapRegion(%s, %d, RDWR, 0, %08X), physAddr %08X, mask %08X", name, mapSize, mapAddr, physAddr, pagemask)
	mm, err := mmap.MapRegion(f, mapSize, mmap.RDWR, 0, int64(mapAddr))
	if err != nil {
		return nil, fmt.Errorf("couldn't map region (%08X, %d): %v", physAddr, size, err)
	}
	w := &Window{
		phys: physAddr,
		size: uint32(size),
		buf:  mm,
		offs: physAddr - mapAddr,
	}
	glog.Infof("Mapped %d bytes at %08X, offset %d", size, physAddr, w.offs)
	return w, nil
}

// Close unmaps the window. Further accesses fail.
func (w *Window) Close() error {
	if w.buf == nil {
		return nil
	}
	err := w.buf.Unmap()
	w.buf = nil
	return err
}

func (w *Window) reg(off uint32) (*uint32, error) {
	if w.buf == nil {
		return nil, errors.New("window not mapped")
	}
	if off%4 != 0 {
		return nil, fmt.Errorf("offset %#x isn't 32-bit aligned", off)
	}
	if off > w.size-4 {
		return nil, fmt.Errorf("offset %#x outside %d byte window at %08X", off, w.size, w.phys)
	}
	return (*uint32)(unsafe.Pointer(&w.buf[w.offs+uintptr(off)])), nil
}

// Read32 loads the register at off in a single 32-bit access.
func (w *Window) Read32(off uint32) (uint32, error) {
	r, err := w.reg(off)
	if err != nil {
		return 0, err
	}
	v := atomic.LoadUint32(r)
	glog.V(2).Infof("read  %08X+%#03x = %08X", w.phys, off, v)
	return v, nil
}

// Write32 stores val to the register at off in a single 32-bit access.
func (w *Window) Write32(off uint32, val uint32) error {
	r, err := w.reg(off)
	if err != nil {
		return err
	}
	glog.V(2).Infof("write %08X+%#03x = %08X", w.phys, off, val)
	atomic.StoreUint32(r, val)
	return nil
}
