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
	"phoenix.dev/phoenix/pkg/kernel"
	"phoenix.dev/phoenix/pkg/syscalls"
)

// riscv64Table is the riscv64 syscall table. Numbers absent here are logged
// and return 0 by the dispatcher.
var riscv64Table = map[uintptr]kernel.Syscall{
	// Process.
	linux.SYS_EXIT:            syscalls.Supported("exit", Exit),
	linux.SYS_EXIT_GROUP:      syscalls.Supported("exit_group", ExitGroup),
	linux.SYS_EXECVE:          syscalls.Supported("execve", Execve),
	linux.SYS_CLONE:           syscalls.Supported("clone", Clone),
	linux.SYS_WAIT4:           syscalls.Supported("wait4", Wait4),
	linux.SYS_SCHED_YIELD:     syscalls.Supported("sched_yield", SchedYield),
	linux.SYS_GETTID:          syscalls.Supported("gettid", Gettid),
	linux.SYS_GETPID:          syscalls.Supported("getpid", Getpid),
	linux.SYS_GETPPID:         syscalls.Supported("getppid", Getppid),
	linux.SYS_GETPGID:         syscalls.Supported("getpgid", Getpgid),
	linux.SYS_SETPGID:         syscalls.Supported("setpgid", Setpgid),
	linux.SYS_GETUID:          syscalls.Supported("getuid", Getuid),
	linux.SYS_GETEUID:         syscalls.Supported("geteuid", Geteuid),
	linux.SYS_SET_TID_ADDRESS: syscalls.Supported("set_tid_address", SetTidAddress),

	// Memory.
	linux.SYS_BRK:    syscalls.Supported("brk", Brk),
	linux.SYS_MMAP:   syscalls.Supported("mmap", Mmap),
	linux.SYS_MUNMAP: syscalls.Supported("munmap", Munmap),

	// Filesystem. Leaf I/O lives behind the descriptor table; only the
	// console path is native.
	linux.SYS_READ:       syscalls.Supported("read", Read),
	linux.SYS_WRITE:      syscalls.Supported("write", Write),
	linux.SYS_WRITEV:     syscalls.Supported("writev", Writev),
	linux.SYS_CLOSE:      syscalls.Supported("close", Close),
	linux.SYS_GETCWD:     syscalls.Supported("getcwd", Getcwd),
	linux.SYS_IOCTL:      syscalls.Supported("ioctl", Ioctl),
	linux.SYS_OPENAT:     syscalls.Error("openat", unix.ENOSYS),
	linux.SYS_MKDIRAT:    syscalls.Error("mkdirat", unix.ENOSYS),
	linux.SYS_CHDIR:      syscalls.Error("chdir", unix.ENOSYS),
	linux.SYS_DUP:        syscalls.Error("dup", unix.ENOSYS),
	linux.SYS_DUP3:       syscalls.Error("dup3", unix.ENOSYS),
	linux.SYS_FSTAT:      syscalls.Error("fstat", unix.ENOSYS),
	linux.SYS_FSTATAT:    syscalls.Error("fstatat", unix.ENOSYS),
	linux.SYS_GETDENTS64: syscalls.Error("getdents64", unix.ENOSYS),
	linux.SYS_UNLINKAT:   syscalls.Error("unlinkat", unix.ENOSYS),
	linux.SYS_MOUNT:      syscalls.Error("mount", unix.ENOSYS),
	linux.SYS_UMOUNT2:    syscalls.Error("umount2", unix.ENOSYS),
	linux.SYS_PIPE2:      syscalls.Error("pipe2", unix.ENOSYS),
	linux.SYS_FCNTL:      syscalls.Error("fcntl", unix.ENOSYS),
	linux.SYS_READV:      syscalls.Error("readv", unix.ENOSYS),
	linux.SYS_PPOLL:      syscalls.Error("ppoll", unix.ENOSYS),
	linux.SYS_SENDFILE:   syscalls.Error("sendfile", unix.ENOSYS),

	// Signals.
	linux.SYS_RT_SIGPROCMASK: syscalls.Supported("rt_sigprocmask", RtSigprocmask),
	linux.SYS_RT_SIGACTION:   syscalls.Supported("rt_sigaction", RtSigaction),
	linux.SYS_RT_SIGRETURN:   syscalls.Supported("rt_sigreturn", RtSigreturn),
	linux.SYS_RT_SIGSUSPEND:  syscalls.Supported("rt_sigsuspend", RtSigsuspend),
	linux.SYS_KILL:           syscalls.Supported("kill", Kill),
	linux.SYS_TKILL:          syscalls.Supported("tkill", Tkill),
	linux.SYS_TGKILL:         syscalls.Supported("tgkill", Tgkill),

	// Time.
	linux.SYS_GETTIMEOFDAY:  syscalls.Supported("gettimeofday", Gettimeofday),
	linux.SYS_TIMES:         syscalls.Supported("times", Times),
	linux.SYS_NANOSLEEP:     syscalls.Supported("nanosleep", Nanosleep),
	linux.SYS_CLOCK_GETTIME: syscalls.Supported("clock_gettime", ClockGettime),
	linux.SYS_CLOCK_SETTIME: syscalls.Supported("clock_settime", ClockSettime),
	linux.SYS_CLOCK_GETRES:  syscalls.Supported("clock_getres", ClockGetres),
	linux.SYS_GETITIMER:     syscalls.Supported("getitimer", Getitimer),
	linux.SYS_SETITIMER:     syscalls.Supported("setitimer", Setitimer),

	// Futex.
	linux.SYS_FUTEX:           syscalls.Supported("futex", Futex),
	linux.SYS_SET_ROBUST_LIST: syscalls.Supported("set_robust_list", SetRobustList),
	linux.SYS_GET_ROBUST_LIST: syscalls.Supported("get_robust_list", GetRobustList),

	// Scheduling.
	linux.SYS_SCHED_SETSCHEDULER: syscalls.Supported("sched_setscheduler", SchedSetscheduler),
	linux.SYS_SCHED_GETSCHEDULER: syscalls.Supported("sched_getscheduler", SchedGetscheduler),
	linux.SYS_SCHED_GETPARAM:     syscalls.Supported("sched_getparam", SchedGetparam),
	linux.SYS_SCHED_SETAFFINITY:  syscalls.Supported("sched_setaffinity", SchedSetaffinity),
	linux.SYS_SCHED_GETAFFINITY:  syscalls.Supported("sched_getaffinity", SchedGetaffinity),

	// Miscellaneous.
	linux.SYS_UNAME:     syscalls.Supported("uname", Uname),
	linux.SYS_GETRUSAGE: syscalls.Supported("getrusage", Getrusage),
	linux.SYS_SYSLOG:    syscalls.Supported("syslog", Syslog),
}

func init() {
	kernel.RegisterSyscallTable(kernel.NewSyscallTable(riscv64Table))
}
