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

// Package arch provides the architecture-dependent execution state of a user
// thread: the saved register file and the supervisor CSR snapshot that
// survive kernel re-entry, plus the syscall calling-convention accessors.
package arch

import (
	"phoenix.dev/phoenix/pkg/riscv"
)

// Register indices into Registers.Regs, by RV64 ABI name.
const (
	RegRA = 1
	RegSP = 2
	RegGP = 3
	RegTP = 4
	RegA0 = 10
	RegA1 = 11
	RegA2 = 12
	RegA3 = 13
	RegA4 = 14
	RegA5 = 15
	RegA6 = 16
	RegA7 = 17
)

// Registers is the general-purpose user register file. Regs[0] (zero) is
// kept for layout fidelity and is never written.
type Registers struct {
	Regs [32]uint64
}

// SyscallArguments is the six machine-word arguments of one syscall.
type SyscallArguments [6]uint64

// TrapContext is the per-thread state saved by trap entry and restored by
// trap return: the user register file, the user pc, and the supervisor
// status snapshot. scause and stval describe the most recent trap.
type TrapContext struct {
	Regs    Registers
	Sepc    uint64
	Sstatus riscv.Sstatus
	Scause  riscv.Cause
	Stval   uint64
}

// NewTrapContext returns the trap context of a brand-new user thread that
// will begin execution at entry with the given stack pointer. The thread
// enters user mode with interrupts enabled and a fresh FPU.
func NewTrapContext(entry, userSP uint64) *TrapContext {
	tc := &TrapContext{}
	tc.InitUser(userSP, entry, 0, 0, 0)
	return tc
}

// InitUser reinitializes tc in place for a thread that is assuming a new
// process image: all registers are cleared except the stack pointer and the
// first three argument registers.
func (tc *TrapContext) InitUser(userSP, entry, a0, a1, a2 uint64) {
	tc.Regs = Registers{}
	tc.Regs.Regs[RegSP] = userSP
	tc.Regs.Regs[RegA0] = a0
	tc.Regs.Regs[RegA1] = a1
	tc.Regs.Regs[RegA2] = a2
	tc.Sepc = entry
	tc.Sstatus = 0
	tc.Sstatus.SetSPP(riscv.PrivUser)
	tc.Sstatus.SetSPIE(true)
	tc.Sstatus.SetFS(riscv.FSInitial)
	tc.Scause = 0
	tc.Stval = 0
}

// SyscallNo returns the syscall number register (a7).
func (tc *TrapContext) SyscallNo() uint64 {
	return tc.Regs.Regs[RegA7]
}

// SyscallArgs returns the syscall argument registers (a0..a5).
func (tc *TrapContext) SyscallArgs() SyscallArguments {
	var args SyscallArguments
	copy(args[:], tc.Regs.Regs[RegA0:RegA0+6])
	return args
}

// SetReturn sets the syscall return register (a0).
func (tc *TrapContext) SetReturn(v uint64) {
	tc.Regs.Regs[RegA0] = v
}

// Return returns the syscall return register (a0).
func (tc *TrapContext) Return() uint64 {
	return tc.Regs.Regs[RegA0]
}

// SetStack sets the user stack pointer.
func (tc *TrapContext) SetStack(sp uint64) {
	tc.Regs.Regs[RegSP] = sp
}

// SetTLS sets the user thread-pointer register.
func (tc *TrapContext) SetTLS(tp uint64) {
	tc.Regs.Regs[RegTP] = tp
}
