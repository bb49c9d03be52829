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

package linux

import (
	"encoding/binary"
	"sync"

	"golang.org/x/sys/unix"

	"phoenix.dev/phoenix/pkg/arch"
	"phoenix.dev/phoenix/pkg/kernel"
	"phoenix.dev/phoenix/pkg/memory"
)

// Futex operations, from linux/futex.h.
const (
	futexWait = 0
	futexWake = 1

	futexPrivateFlag   = 128
	futexClockRealtime = 256
	futexOpMask        = ^uintptr(futexPrivateFlag | futexClockRealtime)
)

// futexBucket holds the tasks blocked on one futex word.
type futexBucket struct {
	waiters []*kernel.Task
}

// futexTable maps futex addresses to their waiters. Addresses are keyed per
// user virtual address; separate address spaces that share no memory simply
// never mix waiters for the same key in practice.
var futexTable = struct {
	sync.Mutex
	buckets map[uint64]*futexBucket
	// woken marks tasks released by FUTEX_WAKE so their re-executed wait
	// completes instead of re-sleeping.
	woken map[*kernel.Task]struct{}
}{
	buckets: make(map[uint64]*futexBucket),
	woken:   make(map[*kernel.Task]struct{}),
}

// Futex implements the FUTEX_WAIT and FUTEX_WAKE cases of futex(2).
func Futex(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0]
	op := uintptr(args[1]) & futexOpMask
	val := uint32(args[2])

	switch op {
	case futexWait:
		return futexDoWait(t, addr, val)
	case futexWake:
		return futexDoWake(addr, val), nil, nil
	default:
		return 0, nil, unix.ENOSYS
	}
}

func futexDoWait(t *kernel.Task, addr uint64, val uint32) (uintptr, *kernel.SyscallControl, error) {
	futexTable.Lock()
	if _, ok := futexTable.woken[t]; ok {
		delete(futexTable.woken, t)
		futexTable.Unlock()
		return 0, nil, nil
	}
	futexTable.Unlock()

	if t.PendingOutside(t.SigMask()) {
		futexRemoveWaiter(t, addr)
		return 0, nil, unix.EINTR
	}

	var buf [4]byte
	if err := memory.UserReadPtr(addr).ReadBytes(taskSpace(t), buf[:]); err != nil {
		futexRemoveWaiter(t, addr)
		return 0, nil, err
	}
	if binary.LittleEndian.Uint32(buf[:]) != val {
		futexRemoveWaiter(t, addr)
		return 0, nil, unix.EAGAIN
	}

	futexTable.Lock()
	b := futexTable.buckets[addr]
	if b == nil {
		b = &futexBucket{}
		futexTable.buckets[addr] = b
	}
	registered := false
	for _, w := range b.waiters {
		if w == t {
			registered = true
			break
		}
	}
	if !registered {
		b.waiters = append(b.waiters, t)
	}
	futexTable.Unlock()
	return 0, kernel.CtlBlock, nil
}

func futexDoWake(addr uint64, count uint32) uintptr {
	futexTable.Lock()
	b := futexTable.buckets[addr]
	var woken []*kernel.Task
	if b != nil {
		n := int(count)
		if n > len(b.waiters) {
			n = len(b.waiters)
		}
		woken = b.waiters[:n]
		b.waiters = b.waiters[n:]
		if len(b.waiters) == 0 {
			delete(futexTable.buckets, addr)
		}
		for _, w := range woken {
			futexTable.woken[w] = struct{}{}
		}
	}
	futexTable.Unlock()
	for _, w := range woken {
		w.Wake()
	}
	return uintptr(len(woken))
}

func futexRemoveWaiter(t *kernel.Task, addr uint64) {
	futexTable.Lock()
	defer futexTable.Unlock()
	b := futexTable.buckets[addr]
	if b == nil {
		return
	}
	for i, w := range b.waiters {
		if w == t {
			b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
			break
		}
	}
	if len(b.waiters) == 0 {
		delete(futexTable.buckets, addr)
	}
}

// SetRobustList implements linux syscall set_robust_list(2).
func SetRobustList(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	if args[1] != 24 { // sizeof(struct robust_list_head)
		return 0, nil, unix.EINVAL
	}
	t.SetRobustList(args[0])
	return 0, nil, nil
}

// GetRobustList implements linux syscall get_robust_list(2).
func GetRobustList(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	target := t
	if pid := kernel.ThreadID(int32(args[0])); pid != 0 {
		if target = kernel.Manager().Find(pid); target == nil {
			return 0, nil, unix.ESRCH
		}
	}
	s := taskSpace(t)
	if err := memory.UserWritePtr(args[1]).WriteUint64(s, target.RobustList()); err != nil {
		return 0, nil, err
	}
	if err := memory.UserWritePtr(args[2]).WriteUint64(s, 24); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}
