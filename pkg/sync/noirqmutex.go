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

// Package sync provides synchronization primitives safe to take from trap
// context.
package sync

import (
	gosync "sync"

	"phoenix.dev/phoenix/pkg/riscv"
)

// NoIRQMutex is a mutex that disables interrupts on the local hart for the
// duration of the critical section. It may be acquired from trap context;
// the interrupt-enable state at Lock time is restored by Unlock.
type NoIRQMutex struct {
	mu gosync.Mutex

	// savedSIE is the interrupt-enable state captured by Lock; protected
	// by mu itself.
	savedSIE bool
}

// Lock acquires m with interrupts disabled.
func (m *NoIRQMutex) Lock() {
	sie := riscv.DisableInterrupts()
	m.mu.Lock()
	m.savedSIE = sie
}

// Unlock releases m and restores the interrupt-enable state captured by the
// matching Lock.
func (m *NoIRQMutex) Unlock() {
	sie := m.savedSIE
	m.mu.Unlock()
	if sie {
		riscv.EnableInterrupts()
	}
}
