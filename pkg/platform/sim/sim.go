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

// Package sim is the hosted machine platform: user programs are Go
// functions that trap into the kernel through the same resume/trap contract
// hardware provides. The boot shim and the end-to-end tests run on it.
package sim

import (
	"fmt"
	"sync"

	"phoenix.dev/phoenix/pkg/arch"
	"phoenix.dev/phoenix/pkg/kernel"
	"phoenix.dev/phoenix/pkg/loader"
	"phoenix.dev/phoenix/pkg/memory"
	"phoenix.dev/phoenix/pkg/riscv"
	"phoenix.dev/phoenix/pkg/vfs"
)

// Program is the body of a user thread.
type Program func(u *Proc)

// User address layout. Program text entries are entryStride bytes apart and
// each trap advances the pc by 4, so a pc advanced by fewer than 1024 traps
// stays short of the neighboring entry.
const (
	entryBase   = 0x10000
	entryStride = 0x1000

	stackTopAddr = 0x7f_ffff_f000
	heapBase     = 0x3000_0000
	heapLimit    = 0x4000_0000
	mmapBase     = 0x5000_0000
	scratchBase  = 0x6000_0000

	defaultStackSize = 8 << 20
)

// Platform simulates user-mode execution for the kernel. It implements the
// kernel's resume contract and the address-space provider.
type Platform struct {
	mu sync.Mutex

	programs  map[string]uint64  // name -> entry
	byEntry   map[uint64]Program // entry -> body
	nextEntry uint64

	spaces   map[uint64]*Space // satp -> space
	nextSatp uint64

	threads map[*arch.TrapContext]*Proc

	// pendingChildren queues the bodies of clone children, in clone
	// order, until their first resume binds them to a trap context.
	pendingChildren []Program

	hartUp [riscv.MaxHarts]bool
}

// New returns an empty platform.
func New() *Platform {
	return &Platform{
		programs:  make(map[string]uint64),
		byEntry:   make(map[uint64]Program),
		nextEntry: entryBase,
		spaces:    make(map[uint64]*Space),
		nextSatp:  memory.KernelSatp + 1,
		threads:   make(map[*arch.TrapContext]*Proc),
	}
}

// Install wires the platform into the kernel's collaborator seams: resume,
// address spaces, and descriptor tables.
func (p *Platform) Install() {
	kernel.SetPlatform(p)
	memory.SetProvider(p)
	vfs.NewTable = func() vfs.FDTable { return &fdTable{} }
}

// Register bundles prog as a loadable image under name.
func (p *Platform) Register(name string, prog Program) {
	p.mu.Lock()
	entry := p.nextEntry
	p.nextEntry += entryStride
	p.programs[name] = entry
	p.byEntry[entry] = prog
	p.mu.Unlock()
	loader.Register(name, []byte(name))
}

// HartStart models the firmware hart-state-management start call.
func (p *Platform) HartStart(id int) error {
	if id < 0 || id >= riscv.MaxHarts {
		return fmt.Errorf("hart %d out of range", id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hartUp[id] = true
	return nil
}

// Resume enters user mode with tc and returns at the next trap. The binding
// between trap contexts and program bodies is established here: a context
// at a known program entry begins that program; an unknown context
// continues the oldest un-started clone child; a known context whose pc was
// reinitialized abandons its old body and begins the new image.
func (p *Platform) Resume(hart int, tc *arch.TrapContext) {
	p.mu.Lock()
	proc, ok := p.threads[tc]
	switch {
	case !ok:
		if prog, isEntry := p.byEntry[tc.Sepc]; isEntry {
			proc = newProc(p, tc, prog)
		} else if len(p.pendingChildren) > 0 {
			prog := p.pendingChildren[0]
			p.pendingChildren = p.pendingChildren[1:]
			proc = newProc(p, tc, prog)
		} else {
			p.mu.Unlock()
			panic(fmt.Sprintf("resume of unknown user context at pc %#x", tc.Sepc))
		}
		p.threads[tc] = proc
	case tc.Sepc != proc.expectedSepc:
		// The context was reinitialized under this thread: a new
		// image took over.
		prog, isEntry := p.byEntry[tc.Sepc]
		if !isEntry {
			p.mu.Unlock()
			panic(fmt.Sprintf("user context resumed at unexpected pc %#x", tc.Sepc))
		}
		close(proc.abandoned)
		proc = newProc(p, tc, prog)
		p.threads[tc] = proc
	}
	space := p.spaces[riscv.Satp()]
	p.mu.Unlock()
	if space == nil {
		panic("no user address space installed on the resuming hart")
	}
	proc.space = space

	if !proc.started {
		proc.started = true
		go proc.run()
	} else {
		proc.resumed <- struct{}{}
	}
	<-proc.trapped
}

func (p *Platform) registerSpace(s *Space) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s.satp = p.nextSatp
	p.nextSatp++
	p.spaces[s.satp] = s
}

func (p *Platform) entryFor(name string) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.programs[name]
	return entry, ok
}

// NewUserSpace implements memory.Provider.NewUserSpace.
func (p *Platform) NewUserSpace() (memory.Space, error) {
	return p.newSpace(), nil
}

// FromELF implements memory.Provider.FromELF.
func (p *Platform) FromELF(image []byte) (memory.Space, uint64, uint64, []memory.AuxEntry, error) {
	s := p.newSpace()
	entry, auxv, err := s.ParseAndMapELF(image)
	if err != nil {
		return nil, 0, 0, nil, err
	}
	stackTop := s.AllocStack(defaultStackSize)
	return s, stackTop, entry, auxv, nil
}

// fdTable is the trivial descriptor table of a rootless image. Identity is
// what the kernel core cares about: shared tables are the same pointer.
type fdTable struct{}

func (*fdTable) Fork() vfs.FDTable { return &fdTable{} }
func (*fdTable) CloseOnExec()      {}
func (*fdTable) Release()          {}
