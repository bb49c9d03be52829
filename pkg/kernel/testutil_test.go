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

package kernel

import (
	"phoenix.dev/phoenix/pkg/arch"
	"phoenix.dev/phoenix/pkg/memory"
	"phoenix.dev/phoenix/pkg/riscv"
	"phoenix.dev/phoenix/pkg/signal"
	"phoenix.dev/phoenix/pkg/vfs"
)

// fakeSpace is an address space accepting any address, for tests that
// exercise task state without a platform.
type fakeSpace struct {
	satp uint64
	data map[uint64]byte
}

func newFakeSpace(satp uint64) *fakeSpace {
	return &fakeSpace{satp: satp, data: make(map[uint64]byte)}
}

func (s *fakeSpace) Switch() { riscv.SetSatp(s.satp) }

func (s *fakeSpace) CloneCOW() memory.Space {
	dup := newFakeSpace(s.satp + 1000)
	for k, v := range s.data {
		dup.data[k] = v
	}
	return dup
}

func (s *fakeSpace) AllocStack(size uint64) uint64 { return 0x7fff0000 }

func (s *fakeSpace) AllocHeapLazy() {}

func (s *fakeSpace) ParseAndMapELF(image []byte) (uint64, []memory.AuxEntry, error) {
	return 0x10000, nil, nil
}

func (s *fakeSpace) Brk(addr uint64) uint64 { return addr }

func (s *fakeSpace) Mmap(addr, length uint64, prot, flags uint32) (uint64, error) {
	return addr, nil
}

func (s *fakeSpace) Munmap(addr, length uint64) error { return nil }

func (s *fakeSpace) CopyIn(addr uint64, dst []byte) error {
	for i := range dst {
		dst[i] = s.data[addr+uint64(i)]
	}
	return nil
}

func (s *fakeSpace) CopyOut(addr uint64, src []byte) error {
	for i, b := range src {
		s.data[addr+uint64(i)] = b
	}
	return nil
}

type fakeFDTable struct{}

func (*fakeFDTable) Fork() vfs.FDTable { return &fakeFDTable{} }
func (*fakeFDTable) CloseOnExec()      {}
func (*fakeFDTable) Release()          {}

// newTestTask assembles a leader task over a fake space, registered in the
// manager.
func newTestTask(satp uint64) *Task {
	t := newTask(TaskConfig{
		TIDHandle:   allocTID(),
		IsLeader:    true,
		TrapContext: *arch.NewTrapContext(0x10000, 0x7fff0000),
		Space:       newSharedSpace(newFakeSpace(satp)),
		Parent:      newSharedParent(nil),
		Children:    newSharedChildren(),
		ThreadGroup: newThreadGroup(),
		SigHandlers: signal.NewHandlers(),
		FDTable:     &fakeFDTable{},
	})
	t.tg.PushLeader(t)
	Manager().Add(t)
	return t
}
