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
	"golang.org/x/sys/unix"

	"phoenix.dev/phoenix/pkg/arch"
	"phoenix.dev/phoenix/pkg/kernel"
	"phoenix.dev/phoenix/pkg/memory"
	"phoenix.dev/phoenix/pkg/riscv"
)

// The executor provides no priorities; every task runs under the one
// normal policy at priority zero.
const (
	onlyScheduler = 0 // SCHED_NORMAL
	onlyPriority  = 0
)

func schedTargetExists(t *kernel.Task, rawPID uint64) error {
	pid := kernel.ThreadID(int32(rawPID))
	if pid < 0 {
		return unix.EINVAL
	}
	if pid != 0 && kernel.Manager().Find(pid) == nil {
		return unix.ESRCH
	}
	return nil
}

// SchedGetscheduler implements linux syscall sched_getscheduler(2).
func SchedGetscheduler(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	if err := schedTargetExists(t, args[0]); err != nil {
		return 0, nil, err
	}
	return onlyScheduler, nil, nil
}

// SchedSetscheduler implements linux syscall sched_setscheduler(2).
func SchedSetscheduler(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	if err := schedTargetExists(t, args[0]); err != nil {
		return 0, nil, err
	}
	if int32(args[1]) != onlyScheduler {
		return 0, nil, unix.EINVAL
	}
	return 0, nil, nil
}

// SchedGetparam implements linux syscall sched_getparam(2).
func SchedGetparam(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	if err := schedTargetExists(t, args[0]); err != nil {
		return 0, nil, err
	}
	paramPtr := memory.UserWritePtr(args[1])
	if paramPtr.IsNull() {
		return 0, nil, unix.EINVAL
	}
	if err := paramPtr.WriteUint32(taskSpace(t), onlyPriority); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}

// SchedSetaffinity implements linux syscall sched_setaffinity(2). Tasks are
// pinned to whichever hart polls them next, so the mask is accepted and
// ignored.
func SchedSetaffinity(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	if err := schedTargetExists(t, args[0]); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}

// SchedGetaffinity implements linux syscall sched_getaffinity(2): every
// task may run on every hart.
func SchedGetaffinity(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	if err := schedTargetExists(t, args[0]); err != nil {
		return 0, nil, err
	}
	size := args[1]
	maskPtr := memory.UserWritePtr(args[2])
	if size < 8 || maskPtr.IsNull() {
		return 0, nil, unix.EINVAL
	}
	if err := maskPtr.WriteUint64(taskSpace(t), 1<<riscv.MaxHarts-1); err != nil {
		return 0, nil, err
	}
	return 8, nil, nil
}
