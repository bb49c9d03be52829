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

// Package linux contains the constants and types needed to interface with a
// Linux userland. The riscv64 syscall numbers are the generic 64-bit table.
package linux

// Syscall numbers (riscv64).
const (
	SYS_GETCWD             = 17
	SYS_DUP                = 23
	SYS_DUP3               = 24
	SYS_FCNTL              = 25
	SYS_IOCTL              = 29
	SYS_MKDIRAT            = 34
	SYS_UNLINKAT           = 35
	SYS_UMOUNT2            = 39
	SYS_MOUNT              = 40
	SYS_CHDIR              = 49
	SYS_OPENAT             = 56
	SYS_CLOSE              = 57
	SYS_PIPE2              = 59
	SYS_GETDENTS64         = 61
	SYS_READ               = 63
	SYS_WRITE              = 64
	SYS_READV              = 65
	SYS_WRITEV             = 66
	SYS_SENDFILE           = 71
	SYS_PPOLL              = 73
	SYS_FSTATAT            = 79
	SYS_FSTAT              = 80
	SYS_EXIT               = 93
	SYS_EXIT_GROUP         = 94
	SYS_SET_TID_ADDRESS    = 96
	SYS_FUTEX              = 98
	SYS_SET_ROBUST_LIST    = 99
	SYS_GET_ROBUST_LIST    = 100
	SYS_NANOSLEEP          = 101
	SYS_GETITIMER          = 102
	SYS_SETITIMER          = 103
	SYS_CLOCK_SETTIME      = 112
	SYS_CLOCK_GETTIME      = 113
	SYS_CLOCK_GETRES       = 114
	SYS_SYSLOG             = 116
	SYS_SCHED_SETSCHEDULER = 119
	SYS_SCHED_GETSCHEDULER = 120
	SYS_SCHED_GETPARAM     = 121
	SYS_SCHED_SETAFFINITY  = 122
	SYS_SCHED_GETAFFINITY  = 123
	SYS_SCHED_YIELD        = 124
	SYS_KILL               = 129
	SYS_TKILL              = 130
	SYS_TGKILL             = 131
	SYS_RT_SIGSUSPEND      = 133
	SYS_RT_SIGACTION       = 134
	SYS_RT_SIGPROCMASK     = 135
	SYS_RT_SIGRETURN       = 139
	SYS_TIMES              = 153
	SYS_SETPGID            = 154
	SYS_GETPGID            = 155
	SYS_UNAME              = 160
	SYS_GETRUSAGE          = 165
	SYS_GETTIMEOFDAY       = 169
	SYS_GETPID             = 172
	SYS_GETPPID            = 173
	SYS_GETUID             = 174
	SYS_GETEUID            = 175
	SYS_GETTID             = 178
	SYS_BRK                = 214
	SYS_MUNMAP             = 215
	SYS_CLONE              = 220
	SYS_EXECVE             = 221
	SYS_MMAP               = 222
	SYS_WAIT4              = 260
)
