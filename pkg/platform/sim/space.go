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

package sim

import (
	"sync"

	"golang.org/x/sys/unix"

	"phoenix.dev/phoenix/pkg/memory"
	"phoenix.dev/phoenix/pkg/riscv"
)

// region is a half-open mapped range of user addresses.
type region struct {
	start, end uint64
}

// Space is a hosted user address space: a sparse byte store over a set of
// mapped regions. Unmapped access faults with EFAULT, mapped-but-unwritten
// bytes read as zero.
type Space struct {
	p    *Platform
	satp uint64

	mu          sync.Mutex
	data        map[uint64]byte
	regions     []region
	brkStart    uint64
	brk         uint64
	nextMmap    uint64
	nextScratch uint64
}

func (p *Platform) newSpace() *Space {
	s := &Space{
		p:           p,
		data:        make(map[uint64]byte),
		nextMmap:    mmapBase,
		nextScratch: scratchBase,
	}
	p.registerSpace(s)
	// The scratch window backs start-up argument blocks.
	s.regions = append(s.regions, region{scratchBase, scratchBase + (64 << 20)})
	return s
}

// Switch implements memory.Space.Switch.
func (s *Space) Switch() {
	riscv.SetSatp(s.satp)
}

// CloneCOW implements memory.Space.CloneCOW.
func (s *Space) CloneCOW() memory.Space {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := &Space{
		p:           s.p,
		data:        make(map[uint64]byte, len(s.data)),
		regions:     append([]region(nil), s.regions...),
		brkStart:    s.brkStart,
		brk:         s.brk,
		nextMmap:    s.nextMmap,
		nextScratch: s.nextScratch,
	}
	for k, v := range s.data {
		dup.data[k] = v
	}
	s.p.registerSpace(dup)
	return dup
}

// AllocStack implements memory.Space.AllocStack.
func (s *Space) AllocStack(size uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapLocked(stackTopAddr-size, stackTopAddr)
	return stackTopAddr
}

// AllocHeapLazy implements memory.Space.AllocHeapLazy.
func (s *Space) AllocHeapLazy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brkStart = heapBase
	s.brk = heapBase
	s.mapLocked(heapBase, heapLimit)
}

// ParseAndMapELF implements memory.Space.ParseAndMapELF. Images here are
// program names resolved against the platform's registry.
func (s *Space) ParseAndMapELF(image []byte) (uint64, []memory.AuxEntry, error) {
	entry, ok := s.p.entryFor(string(image))
	if !ok {
		return 0, nil, unix.ENOEXEC
	}
	s.mu.Lock()
	s.mapLocked(entry, entry+entryStride)
	s.mu.Unlock()
	auxv := []memory.AuxEntry{
		{Tag: memory.AuxPhdr, Val: entry},
		{Tag: memory.AuxPagesz, Val: 4096},
		{Tag: memory.AuxEntryAddr, Val: entry},
	}
	return entry, auxv, nil
}

// Brk implements memory.Space.Brk.
func (s *Space) Brk(addr uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr == 0 || addr < s.brkStart || addr >= heapLimit {
		return s.brk
	}
	s.brk = addr
	return s.brk
}

// Mmap implements memory.Space.Mmap.
func (s *Space) Mmap(addr, length uint64, prot, flags uint32) (uint64, error) {
	if length == 0 {
		return 0, unix.EINVAL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	length = (length + 4095) &^ 4095
	if addr == 0 {
		addr = s.nextMmap
		s.nextMmap += length
	}
	s.mapLocked(addr, addr+length)
	return addr, nil
}

// Munmap implements memory.Space.Munmap.
func (s *Space) Munmap(addr, length uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	end := addr + length
	kept := s.regions[:0]
	for _, r := range s.regions {
		if r.start >= addr && r.end <= end {
			for a := r.start; a < r.end; a++ {
				delete(s.data, a)
			}
			continue
		}
		kept = append(kept, r)
	}
	s.regions = kept
	return nil
}

// CopyIn implements memory.Space.CopyIn.
func (s *Space) CopyIn(addr uint64, dst []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mappedLocked(addr, addr+uint64(len(dst))) {
		return unix.EFAULT
	}
	for i := range dst {
		dst[i] = s.data[addr+uint64(i)]
	}
	return nil
}

// CopyOut implements memory.Space.CopyOut.
func (s *Space) CopyOut(addr uint64, src []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mappedLocked(addr, addr+uint64(len(src))) {
		return unix.EFAULT
	}
	for i, b := range src {
		s.data[addr+uint64(i)] = b
	}
	return nil
}

// scratchAlloc carves a 16-byte-aligned block out of the scratch window for
// a user thread's argument staging.
func (s *Space) scratchAlloc(n uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextScratch = (s.nextScratch + 15) &^ 15
	addr := s.nextScratch
	s.nextScratch += n
	return addr
}

func (s *Space) mapLocked(start, end uint64) {
	s.regions = append(s.regions, region{start, end})
}

func (s *Space) mappedLocked(start, end uint64) bool {
	for a := start; a < end; {
		advanced := false
		for _, r := range s.regions {
			if a >= r.start && a < r.end {
				if r.end >= end {
					return true
				}
				a = r.end
				advanced = true
				break
			}
		}
		if !advanced {
			return false
		}
	}
	return start >= end
}
