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

// Package riscv models the RV64 supervisor-mode machine state the kernel
// manipulates: the sstatus register, per-hart CSR files, and the tp register
// that pins a hart control block to a logical processor.
//
// On bare metal these operations are single CSR instructions. Here they
// operate on an explicit per-hart CSR file so that the kernel proper is
// identical in both settings and fully exercisable on a host. The fields
// are atomics only because hosted tests observe a hart from outside it;
// hardware CSRs are hart-private by construction.
package riscv

import (
	"sync/atomic"
)

// MaxHarts is the compile-time maximum number of logical processors.
const MaxHarts = 8

// Cause is the value of the scause CSR after a trap.
type Cause uint64

// interruptBit is set in scause when the trap is an interrupt rather than an
// exception.
const interruptBit Cause = 1 << 63

// Exception causes.
const (
	CauseInstructionMisaligned Cause = 0
	CauseIllegalInstruction    Cause = 2
	CauseBreakpoint            Cause = 3
	CauseECallUser             Cause = 8
	CauseInstructionPageFault  Cause = 12
	CauseLoadPageFault         Cause = 13
	CauseStorePageFault        Cause = 15
)

// Interrupt causes.
const (
	CauseSupervisorSoft     = interruptBit | 1
	CauseSupervisorTimer    = interruptBit | 5
	CauseSupervisorExternal = interruptBit | 9
)

// IsInterrupt returns true if c is an interrupt rather than an exception.
func (c Cause) IsInterrupt() bool {
	return c&interruptBit != 0
}

// IsPageFault returns true if c is one of the demand-paging exceptions.
func (c Cause) IsPageFault() bool {
	switch c {
	case CauseInstructionPageFault, CauseLoadPageFault, CauseStorePageFault:
		return true
	}
	return false
}

// csrFile is the supervisor CSR state of one hart.
type csrFile struct {
	sstatus atomic.Uint64
	satp    atomic.Uint64

	// sfenceCount counts address-translation fences issued on this hart.
	sfenceCount atomic.Uint64
}

var csrFiles [MaxHarts]csrFile

// localCSRs returns the CSR file of the hart bound to the calling thread.
func localCSRs() *csrFile {
	return &csrFiles[HartID()]
}

// updateSstatus applies f to the local hart's sstatus and returns the prior
// value.
func updateSstatus(f func(*Sstatus)) Sstatus {
	c := localCSRs()
	for {
		old := c.sstatus.Load()
		s := Sstatus(old)
		f(&s)
		if c.sstatus.CompareAndSwap(old, uint64(s)) {
			return Sstatus(old)
		}
	}
}

// DisableInterrupts clears sstatus.SIE on the local hart and returns the
// previous value of the bit. It is a no-op returning false on an unbound
// thread, which only happens in tests exercising state without a hart.
func DisableInterrupts() bool {
	if !Bound() {
		return false
	}
	old := updateSstatus(func(s *Sstatus) { s.SetSIE(false) })
	return old.SIE()
}

// EnableInterrupts sets sstatus.SIE on the local hart.
func EnableInterrupts() {
	if !Bound() {
		return
	}
	updateSstatus(func(s *Sstatus) { s.SetSIE(true) })
}

// InterruptsEnabled returns the current sstatus.SIE of the local hart.
func InterruptsEnabled() bool {
	return Sstatus(localCSRs().sstatus.Load()).SIE()
}

// SetSUM sets the permit-supervisor-user-memory-access bit on the local
// hart.
func SetSUM(enabled bool) {
	if !Bound() {
		return
	}
	updateSstatus(func(s *Sstatus) { s.SetSUM(enabled) })
}

// SetSatp installs a page-table root on the local hart.
func SetSatp(v uint64) {
	localCSRs().satp.Store(v)
}

// Satp returns the page-table root installed on the local hart.
func Satp() uint64 {
	return localCSRs().satp.Load()
}

// SFenceVMAAll flushes all non-global address-translation state on the
// local hart.
func SFenceVMAAll() {
	if !Bound() {
		return
	}
	localCSRs().sfenceCount.Add(1)
}

// SFenceCount returns the number of fences issued on the given hart. It
// exists so the fence-on-address-space-duplication contract is observable.
func SFenceCount(hart int) uint64 {
	return csrFiles[hart].sfenceCount.Load()
}
