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
	"time"

	"golang.org/x/sys/unix"

	"phoenix.dev/phoenix/pkg/arch"
	"phoenix.dev/phoenix/pkg/kernel"
	"phoenix.dev/phoenix/pkg/memory"
)

// utsname fields, each a fixed 65-byte NUL-padded string.
const utsFieldLen = 65

var utsFields = []string{
	"Linux",          // sysname
	"phoenix",        // nodename
	"6.1.0-phoenix",  // release
	"#1 SMP phoenix", // version
	"riscv64",        // machine
	"",               // domainname
}

// Uname implements linux syscall uname(2).
func Uname(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	bufPtr := memory.UserWritePtr(args[0])
	if bufPtr.IsNull() {
		return 0, nil, unix.EFAULT
	}
	buf := make([]byte, utsFieldLen*len(utsFields))
	for i, f := range utsFields {
		copy(buf[i*utsFieldLen:(i+1)*utsFieldLen-1], f)
	}
	if err := bufPtr.WriteBytes(taskSpace(t), buf); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}

// Getrusage implements linux syscall getrusage(2) for the time fields.
func Getrusage(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	who := int32(args[0])
	bufPtr := memory.UserWritePtr(args[1])
	const (
		rusageSelf     = 0
		rusageChildren = -1
		rusageThread   = 1
	)
	if who != rusageSelf && who != rusageChildren && who != rusageThread {
		return 0, nil, unix.EINVAL
	}
	if bufPtr.IsNull() {
		return 0, nil, unix.EFAULT
	}
	// struct rusage: two timevals followed by 14 longs.
	buf := make([]byte, 2*16+14*8)
	if who != rusageChildren {
		ts := t.TimeStat()
		putTimeval(buf[0:], ts.UserTime())
		putTimeval(buf[16:], ts.SystemTime())
	}
	if err := bufPtr.WriteBytes(taskSpace(t), buf); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}

func putTimeval(b []byte, d time.Duration) {
	binary.LittleEndian.PutUint64(b[0:], uint64(d/time.Second))
	binary.LittleEndian.PutUint64(b[8:], uint64((d%time.Second)/time.Microsecond))
}

// Syslog implements linux syscall syslog(2) as a silent sink; the kernel
// log is not readable from userspace.
func Syslog(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return 0, nil, nil
}
