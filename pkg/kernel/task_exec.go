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

// A thread executes an execve by killing all other threads in its thread
// group and switching process images, the design Linux mandates: at
// completion of the call it appears as though the execve occurred in the
// thread group leader alone.

import (
	"encoding/binary"

	"phoenix.dev/phoenix/pkg/memory"
)

// UserStackSize is the size of the stack execve maps for the new image.
const UserStackSize = 8 << 20

// Execve replaces t's process image with the given ELF image.
//
// Ordering here is load-bearing:
//
//  1. Every non-leader member of the group is marked Zombie before the page
//     table changes, so a sibling that traps mid-switch observes the kill
//     flag before it can run under the new map.
//  2. The new page table is installed before the old space is dropped;
//     between the two there is never a hart without a page table.
func (t *Task) Execve(image []byte, argv, envp []string) error {
	taskLog(t).Debug("execve: parsing image")
	newSpace, err := memory.NewUserSpace()
	if err != nil {
		return err
	}
	entry, auxv, err := newSpace.ParseAndMapELF(image)
	if err != nil {
		return err
	}

	taskLog(t).Debug("execve: terminating sibling threads")
	for _, sibling := range t.tg.Members() {
		if !sibling.IsLeader() {
			sibling.SetZombie()
		}
	}

	taskLog(t).Debug("execve: switching address space")
	newSpace.Switch()
	t.space.mu.Lock()
	t.space.s = newSpace
	t.space.mu.Unlock()

	stackTop := newSpace.AllocStack(UserStackSize)
	newSpace.AllocHeapLazy()

	sp, err := pushUserStack(newSpace, stackTop, argv, envp, auxv)
	if err != nil {
		return err
	}

	t.fdTable.CloseOnExec()
	t.sigHandlers = t.sigHandlers.CopyForExec()
	t.sigStack = nil

	t.trapContext.InitUser(sp, entry, 0, 0, 0)
	return nil
}

// pushUserStack writes the System-V process start-up block below stackTop:
// the argument and environment strings, then argc, the argv pointers, a
// null, the envp pointers, a null, the auxiliary vector, and a terminator.
// It returns the resulting stack pointer, which points at argc.
func pushUserStack(s memory.Space, stackTop uint64, argv, envp []string, auxv []memory.AuxEntry) (uint64, error) {
	sp := stackTop

	pushString := func(str string) (uint64, error) {
		b := append([]byte(str), 0)
		sp -= uint64(len(b))
		if err := s.CopyOut(sp, b); err != nil {
			return 0, err
		}
		return sp, nil
	}

	argvAddrs := make([]uint64, len(argv))
	for i := len(argv) - 1; i >= 0; i-- {
		addr, err := pushString(argv[i])
		if err != nil {
			return 0, err
		}
		argvAddrs[i] = addr
	}
	envpAddrs := make([]uint64, len(envp))
	for i := len(envp) - 1; i >= 0; i-- {
		addr, err := pushString(envp[i])
		if err != nil {
			return 0, err
		}
		envpAddrs[i] = addr
	}

	// One word for argc, the two pointer vectors with their null
	// terminators, and the auxv pairs plus the AT_NULL pair.
	words := make([]uint64, 0, 1+len(argv)+1+len(envp)+1+2*len(auxv)+2)
	words = append(words, uint64(len(argv)))
	words = append(words, argvAddrs...)
	words = append(words, 0)
	words = append(words, envpAddrs...)
	words = append(words, 0)
	for _, a := range auxv {
		words = append(words, a.Tag, a.Val)
	}
	words = append(words, memory.AuxNull, 0)

	sp -= uint64(8 * len(words))
	sp &^= 0xf // 16-byte stack alignment
	buf := make([]byte, 8*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[8*i:], w)
	}
	if err := s.CopyOut(sp, buf); err != nil {
		return 0, err
	}
	return sp, nil
}
