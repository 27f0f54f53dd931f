//go:build linux

// Package shm implements named shared-memory regions backed by POSIX
// shared memory objects (shm_open + mmap). The engine (creator) and the
// plugin subprocess (opener) map the same region by name; both sides see
// the same bytes with no copying across the process boundary.
package shm

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Region is a named, size-fixed block of memory mapped into this process,
// backed by a /dev/shm object so it is visible to a plugin subprocess that
// opens the same name.
type Region struct {
	name string
	size int
	data []byte
	file *os.File
	owner bool
}

// shmPath returns the /dev/shm path for a region name. Region names follow
// the "<app-prefix>.process.data.<slot_id>" convention (see pkg/audiotransport).
func shmPath(name string) string {
	return "/dev/shm/" + name
}

// Create allocates a new region of the given size, truncating any stale
// region left over from a previous run under the same name. The caller
// owns the region and is responsible for calling Unlink when the slot is
// torn down.
func Create(name string, size int) (*Region, error) {
	path := shmPath(name)
	_ = unix.Unlink(path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("shm: create %s: %w", name, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: truncate %s: %w", name, err)
	}
	return mapRegion(name, f, size, true)
}

// Open maps an existing region created by another process.
func Open(name string, size int) (*Region, error) {
	f, err := os.OpenFile(shmPath(name), os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", name, err)
	}
	return mapRegion(name, f, size, false)
}

func mapRegion(name string, f *os.File, size int, owner bool) (*Region, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap %s: %w", name, err)
	}
	return &Region{name: name, size: size, data: data, file: f, owner: owner}, nil
}

// Bytes returns the mapped memory. Callers reinterpret it as a fixed-layout
// struct (see pkg/processdata) via unsafe.Pointer - the region is never
// grown or copied.
func (r *Region) Bytes() []byte {
	return r.data
}

// Ptr returns a pointer to the start of the mapped memory, for placing a
// POD struct directly over the region.
func (r *Region) Ptr() unsafe.Pointer {
	if len(r.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&r.data[0])
}

// Close unmaps the region (and closes the descriptor) without removing the
// backing object - the counterpart process may still have it open.
func (r *Region) Close() error {
	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("shm: munmap %s: %w", r.name, err)
	}
	return r.file.Close()
}

// Unlink removes the named backing object. Only the creator should call
// this, once all processes have closed their mapping.
func (r *Region) Unlink() error {
	if !r.owner {
		return nil
	}
	return unix.Unlink(shmPath(r.name))
}
