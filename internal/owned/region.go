//go:build linux && amd64

package owned

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/zhangyunhao116/jailkit/internal/rawsys"
)

// ErrSealed is returned when writable access is requested on a sealed region.
var ErrSealed = errors.New("owned: region is sealed")

// Function variables for the mapping calls, overridden in tests.
var (
	mmapFn     = rawsys.Mmap
	mprotectFn = rawsys.Mprotect
	munmapFn   = rawsys.Munmap
)

// Region owns one private anonymous mapping. A nil base with zero length is
// the sentinel for "nothing owned"; the zero value is therefore empty.
type Region struct {
	base   uintptr
	length uintptr
	sealed bool
}

// Map creates a read-write private anonymous mapping of at least size bytes.
func Map(size int) (Region, error) {
	if size <= 0 {
		return Region{}, unix.EINVAL
	}
	addr := mmapFn(0, uintptr(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS, -1, 0)
	if rawsys.IsError(addr) {
		return Region{}, rawsys.Err(addr)
	}
	return Region{base: uintptr(addr), length: uintptr(size)}, nil
}

// Valid reports whether the region owns a mapping.
func (r *Region) Valid() bool {
	return r.base != 0 && r.length != 0
}

// Len returns the mapping length in bytes.
func (r *Region) Len() int {
	return int(r.length)
}

// Addr returns the base address of the mapping.
func (r *Region) Addr() uintptr {
	return r.base
}

// Sealed reports whether write access has been revoked.
func (r *Region) Sealed() bool {
	return r.sealed
}

// Bytes returns a writable view of the mapping. It fails once the region has
// been sealed, and returns nil for an empty region.
func (r *Region) Bytes() ([]byte, error) {
	if !r.Valid() {
		return nil, nil
	}
	if r.sealed {
		return nil, ErrSealed
	}
	// base came from mmap, not the Go heap: the garbage collector never moves
	// or frees it, and it stays valid until Close unmaps it. x/sys converts
	// its own mappings to []byte the same way.
	return unsafe.Slice((*byte)(unsafe.Pointer(r.base)), r.length), nil //nolint:govet // unsafeptr: mmap'd address
}

// Seal makes the mapping read-only. After Seal succeeds the contents can no
// longer be modified through this process's address space.
func (r *Region) Seal() error {
	if !r.Valid() {
		return unix.EINVAL
	}
	if ret := mprotectFn(r.base, r.length, unix.PROT_READ); ret != 0 {
		return rawsys.Err(ret)
	}
	r.sealed = true
	return nil
}

// Disown empties the region and returns the address and length it owned.
// The caller becomes responsible for unmapping.
func (r *Region) Disown() (addr, length uintptr) {
	addr, length = r.base, r.length
	*r = Region{}
	return addr, length
}

// Move transfers ownership to the returned region and empties r.
func (r *Region) Move() Region {
	moved := *r
	*r = Region{}
	return moved
}

// Close unmaps the region. Closing an empty region is a no-op.
func (r *Region) Close() error {
	if !r.Valid() {
		return nil
	}
	addr, length := r.Disown()
	return rawsys.Err(munmapFn(addr, length))
}
