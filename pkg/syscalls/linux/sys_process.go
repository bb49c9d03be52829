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

	linux "phoenix.dev/phoenix/pkg/abi/linux"
	"phoenix.dev/phoenix/pkg/arch"
	"phoenix.dev/phoenix/pkg/kernel"
	"phoenix.dev/phoenix/pkg/loader"
	"phoenix.dev/phoenix/pkg/memory"
)

// Exit implements linux syscall exit(2). The task loop observes the zombie
// transition after the handler returns and runs the exit path.
func Exit(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	t.SetExitCode(int32(args[0]))
	t.SetZombie()
	return 0, nil, nil
}

// ExitGroup implements linux syscall exit_group(2): every task in the
// caller's thread group terminates.
func ExitGroup(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	code := int32(args[0])
	for _, member := range t.ThreadGroup().Members() {
		member.SetExitCode(code)
		member.SetZombie()
	}
	return 0, nil, nil
}

// Clone implements linux syscall clone(2).
func Clone(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	// The low byte selects the child's termination signal; the rest are
	// clone flags.
	flags := linux.CloneFlags(args[0] &^ 0xff)
	stack := args[1]
	parentTIDPtr := memory.UserWritePtr(args[2])
	tls := args[3]
	childTIDPtr := args[4]

	if flags.Contains(linux.CLONE_THREAD) && !flags.Contains(linux.CLONE_VM) {
		return 0, nil, unix.EINVAL
	}

	child := t.Clone(flags, stack, tls)
	child.TrapContext().SetReturn(0)

	if flags.Contains(linux.CLONE_PARENT_SETTID) && !parentTIDPtr.IsNull() {
		if err := parentTIDPtr.WriteUint32(taskSpace(t), uint32(child.TID())); err != nil {
			return 0, nil, err
		}
	}
	if flags.Contains(linux.CLONE_CHILD_CLEARTID) {
		child.SetClearChildTID(childTIDPtr)
	}

	kernel.SpawnUserTask(child)
	return uintptr(child.TID()), nil, nil
}

// Execve implements linux syscall execve(2).
func Execve(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	s := taskSpace(t)
	path, err := memory.UserReadPtr(args[0]).ReadCString(s)
	if err != nil {
		return 0, nil, err
	}
	argv, err := memory.UserReadPtr(args[1]).ReadCStringVector(s)
	if err != nil {
		return 0, nil, err
	}
	envp, err := memory.UserReadPtr(args[2]).ReadCStringVector(s)
	if err != nil {
		return 0, nil, err
	}

	image, ok := loader.AppData(path)
	if !ok {
		return 0, nil, unix.ENOENT
	}
	if err := t.Execve(image, argv, envp); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}

// Wait4 implements linux syscall wait4(2) for exited children. The caller
// blocks until a zombie child leader is available unless WNOHANG is given.
func Wait4(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	pid := int64(int32(args[0]))
	statusPtr := memory.UserWritePtr(args[1])
	options := args[2]

	children := t.Children()
	selected := children[:0:0]
	for _, c := range children {
		if pid == -1 || (pid > 0 && int64(c.TID()) == pid) {
			selected = append(selected, c)
		}
	}
	if len(selected) == 0 {
		return 0, nil, unix.ECHILD
	}

	for _, c := range selected {
		if !c.IsZombie() {
			continue
		}
		if !statusPtr.IsNull() {
			status := linux.WaitStatusExit(c.ExitCode())
			if err := statusPtr.WriteUint32(taskSpace(t), status); err != nil {
				return 0, nil, err
			}
		}
		tid := c.TID()
		t.ReapChild(c)
		return uintptr(tid), nil, nil
	}

	if options&linux.WNOHANG != 0 {
		return 0, nil, nil
	}
	t.ChildEvents().Register(t.Waker())
	return 0, kernel.CtlBlock, nil
}

// SchedYield implements linux syscall sched_yield(2) by surrendering the
// hart for one scheduling round.
func SchedYield(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return 0, kernel.CtlYield, nil
}

// Gettid implements linux syscall gettid(2).
func Gettid(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return uintptr(t.TID()), nil, nil
}

// Getpid implements linux syscall getpid(2).
func Getpid(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return uintptr(t.PID()), nil, nil
}

// Getppid implements linux syscall getppid(2).
func Getppid(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return uintptr(t.PPID()), nil, nil
}

// Getpgid implements linux syscall getpgid(2).
func Getpgid(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	pid := kernel.ThreadID(int32(args[0]))
	if pid == 0 {
		return uintptr(t.ThreadGroup().PGID()), nil, nil
	}
	target := kernel.Manager().Find(pid)
	if target == nil {
		return 0, nil, unix.ESRCH
	}
	return uintptr(target.ThreadGroup().PGID()), nil, nil
}

// Setpgid implements linux syscall setpgid(2).
func Setpgid(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	pid := kernel.ThreadID(int32(args[0]))
	pgid := kernel.ThreadID(int32(args[1]))
	if pgid < 0 {
		return 0, nil, unix.EINVAL
	}
	target := t
	if pid != 0 {
		if target = kernel.Manager().Find(pid); target == nil {
			return 0, nil, unix.ESRCH
		}
	}
	if pgid == 0 {
		pgid = target.PID()
	}
	target.ThreadGroup().SetPGID(pgid)
	return 0, nil, nil
}

// Getuid implements linux syscall getuid(2). There is a single user.
func Getuid(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return 0, nil, nil
}

// Geteuid implements linux syscall geteuid(2).
func Geteuid(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return 0, nil, nil
}

// SetTidAddress implements linux syscall set_tid_address(2).
func SetTidAddress(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	t.SetClearChildTID(args[0])
	return uintptr(t.TID()), nil, nil
}
