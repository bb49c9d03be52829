// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memory defines the address-space contract the kernel core consumes.
// Page-table construction, ELF parsing, and lazy fault handling live behind
// the Space interface; the core only switches, clones, and allocates.
package memory

// KernelSatp is the page-table root of the kernel address space, installed
// whenever no user task is mounted on a hart.
const KernelSatp uint64 = 1

// AuxEntry is one auxiliary-vector pair pushed onto a new user stack.
type AuxEntry struct {
	Tag uint64
	Val uint64
}

// Auxiliary vector tags, from linux/auxvec.h.
const (
	AuxNull      = 0
	AuxPhdr      = 3
	AuxPhent     = 4
	AuxPhnum     = 5
	AuxPagesz    = 6
	AuxEntryAddr = 9
	AuxRandom    = 25
)

// Space is an opaque, shareable user address space.
type Space interface {
	// Switch installs the space's page table on the current hart.
	Switch()

	// CloneCOW returns a copy-on-write duplicate of the space.
	CloneCOW() Space

	// AllocStack maps a user stack of the given size and returns its top.
	AllocStack(size uint64) uint64

	// AllocHeapLazy reserves the heap region; pages are faulted in on use.
	AllocHeapLazy()

	// ParseAndMapELF replaces the contents of the space with the given
	// image and returns its entry point and auxiliary vector.
	ParseAndMapELF(image []byte) (entry uint64, auxv []AuxEntry, err error)

	// Brk adjusts the program break, returning the new break. A zero addr
	// queries the current break.
	Brk(addr uint64) uint64

	// Mmap maps an anonymous region of the given length and returns its
	// address.
	Mmap(addr, length uint64, prot, flags uint32) (uint64, error)

	// Munmap unmaps the given region.
	Munmap(addr, length uint64) error

	// CopyIn reads len(dst) bytes of user memory at addr, faulting pages
	// in as needed. Returns EFAULT on an unmapped address.
	CopyIn(addr uint64, dst []byte) error

	// CopyOut writes src to user memory at addr.
	CopyOut(addr uint64, src []byte) error
}

// Provider constructs address spaces. It is installed once at boot by the
// platform.
type Provider interface {
	// NewUserSpace returns an empty user address space.
	NewUserSpace() (Space, error)

	// FromELF builds a space from an ELF image, mapping its segments and
	// an initial stack. It returns the space, the top of the stack, the
	// entry point, and the auxiliary vector.
	FromELF(image []byte) (s Space, stackTop, entry uint64, auxv []AuxEntry, err error)
}

var provider Provider

// SetProvider installs the address-space provider. Must be called exactly
// once, at boot, before any task exists.
func SetProvider(p Provider) {
	if provider != nil {
		panic("memory provider already installed")
	}
	provider = p
}

// ResetProviderForTesting clears the installed provider.
func ResetProviderForTesting() {
	provider = nil
}

// NewUserSpace returns an empty user space from the installed provider.
func NewUserSpace() (Space, error) {
	return provider.NewUserSpace()
}

// FromELF builds a space from an ELF image via the installed provider.
func FromELF(image []byte) (Space, uint64, uint64, []AuxEntry, error) {
	return provider.FromELF(image)
}
