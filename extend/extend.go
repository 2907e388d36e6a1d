// Package extend implements component H, the timeslice-extension
// interface: a one-page shared-memory region holding a single 64-bit
// flag word. Bit 0 ("extending") is set by the library before entering
// a short critical region it does not want the kernel to preempt; bit 1
// ("yield requested") is set by the kernel when it wants the thread to
// give up its slice anyway. On exit the library atomically swaps the
// word to zero and yields if bit 1 had been set.
package extend

import (
	"os"
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	bitExtending      = 1 << 0
	bitYieldRequested = 1 << 1
)

// DefaultPath is the well-known shared file spec §6 names.
const DefaultPath = "/sys/kernel/extend_sched"

// Page is the component-H handle. The zero value behaves as the "file
// not present" no-op fallback.
type Page struct {
	word *uint64
	mmap []byte
}

// Open mmaps path for one page and returns a Page backed by it. If path
// does not exist, Open returns a Page that is a pure no-op, matching
// spec §4.H's "if the extension file is not present, the whole mechanism
// is a no-op."
func Open(path string) (*Page, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return &Page{}, nil
		}
		return nil, err
	}
	defer f.Close()

	pageSize := os.Getpagesize()
	data, err := unix.Mmap(int(f.Fd()), 0, pageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	return &Page{
		word: (*uint64)(unsafe.Pointer(&data[0])),
		mmap: data,
	}, nil
}

// Local returns a process-local Page (no mmap), useful for tests and for
// any platform where component H has no kernel counterpart at all.
func Local() *Page {
	var w uint64
	return &Page{word: &w}
}

// Close unmaps the backing page, if any.
func (p *Page) Close() error {
	if p.mmap == nil {
		return nil
	}
	return unix.Munmap(p.mmap)
}

// Begin marks the start of a critical region the caller would like the
// kernel to avoid preempting. A no-op Page (word == nil) does nothing.
func (p *Page) Begin() {
	if p.word == nil {
		return
	}
	atomic.StoreUint64(p.word, bitExtending)
}

// End marks the end of the critical region, clearing the word, and
// voluntarily yields if the kernel had set the yield-requested bit while
// the region was active.
func (p *Page) End() {
	if p.word == nil {
		return
	}
	prev := atomic.SwapUint64(p.word, 0)
	if prev&bitYieldRequested != 0 {
		runtime.Gosched()
	}
}

// YieldRequested reports whether the kernel has asked the current
// extension to end early, without clearing the word.
func (p *Page) YieldRequested() bool {
	if p.word == nil {
		return false
	}
	return atomic.LoadUint64(p.word)&bitYieldRequested != 0
}
