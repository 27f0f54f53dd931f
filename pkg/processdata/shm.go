package processdata

import "unsafe"

// Size is the byte size of one Block, used to size the shared-memory region
// that backs a plugin slot (see pkg/shm, pkg/audiotransport).
const Size = unsafe.Sizeof(Block{})

// Overlay reinterprets a raw mapped-memory pointer as a *Block. The caller
// must guarantee ptr references at least Size bytes (true for any region
// created with shm.Create(name, processdata.Size)).
func Overlay(ptr unsafe.Pointer) *Block {
	return (*Block)(ptr)
}
