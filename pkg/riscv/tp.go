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

package riscv

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
)

// On hardware the tp register of each hart points at its hart-local block.
// The host analogue is an OS-thread-local: BindHart locks the calling
// goroutine to its OS thread and records the binding keyed by thread ID.
// Reading the binding is side-effect free and a thread is never rebound.

var (
	tpMu sync.RWMutex
	tp   = make(map[int]int) // OS thread ID -> hart ID
)

// BindHart pins the calling goroutine to its OS thread and binds that thread
// to the given hart. It panics if the thread is already bound to a different
// hart.
func BindHart(hart int) {
	if hart < 0 || hart >= MaxHarts {
		panic(fmt.Sprintf("hart %d out of range", hart))
	}
	runtime.LockOSThread()
	tid := unix.Gettid()
	tpMu.Lock()
	defer tpMu.Unlock()
	if old, ok := tp[tid]; ok && old != hart {
		panic(fmt.Sprintf("thread %d already bound to hart %d", tid, old))
	}
	tp[tid] = hart
}

// HartID returns the hart bound to the calling thread, panicking if the
// thread is unbound.
func HartID() int {
	id, ok := hartID()
	if !ok {
		panic("calling thread is not bound to a hart")
	}
	return id
}

// Bound returns whether the calling thread is bound to a hart.
func Bound() bool {
	_, ok := hartID()
	return ok
}

func hartID() (int, bool) {
	tid := unix.Gettid()
	tpMu.RLock()
	defer tpMu.RUnlock()
	id, ok := tp[tid]
	return id, ok
}
