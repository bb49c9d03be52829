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
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"

	"phoenix.dev/phoenix/pkg/arch"
)

// SyscallFn is the body of one syscall. It receives the raw machine-word
// arguments; sign- and zero-extension is its responsibility. A non-nil
// SyscallControl changes how the dispatcher resumes the task.
type SyscallFn func(t *Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *SyscallControl, error)

// Syscall is one entry of a SyscallTable.
type Syscall struct {
	Name string
	Fn   SyscallFn
}

// SyscallControl alters the return path of a syscall.
type SyscallControl struct {
	// Yield reschedules the task and surrenders the hart once before the
	// syscall returns to user mode.
	Yield bool

	// Block suspends the task; the handler has registered the task's
	// waker with an event source and will be re-executed in full when it
	// fires. Blocking handlers must tolerate re-execution.
	Block bool
}

// CtlYield is the control returned by handlers that yield the hart.
var CtlYield = &SyscallControl{Yield: true}

// CtlBlock is the control returned by handlers that block.
var CtlBlock = &SyscallControl{Block: true}

// SyscallTable maps syscall numbers to handlers.
type SyscallTable struct {
	table map[uintptr]Syscall
}

// NewSyscallTable returns a table over the given entries.
func NewSyscallTable(entries map[uintptr]Syscall) *SyscallTable {
	return &SyscallTable{table: entries}
}

// Lookup returns the entry for sysno.
func (st *SyscallTable) Lookup(sysno uintptr) (Syscall, bool) {
	s, ok := st.table[sysno]
	return s, ok
}

var syscallTable *SyscallTable

// RegisterSyscallTable installs the kernel's syscall table. Called once,
// from the syscall package's init.
func RegisterSyscallTable(st *SyscallTable) {
	if syscallTable != nil {
		panic("syscall table already registered")
	}
	syscallTable = st
}

// unknownSyscallLimiter keeps a misbehaving program from flooding the log.
var unknownSyscallLimiter = rate.NewLimiter(rate.Limit(10), 20)

// encodeSyscallReturn translates a handler result into the kernel ABI:
// success is the value itself, failure is -errno as an unsigned two's
// complement.
func encodeSyscallReturn(val uintptr, err error) uint64 {
	if err == nil {
		return uint64(val)
	}
	errno, ok := err.(unix.Errno)
	if !ok {
		errno = unix.EIO
	}
	return uint64(-int64(errno))
}
