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

// The filesystem proper lives behind the descriptor-table contract; the
// bodies here cover only what the kernel core owes userspace directly: the
// console descriptors and the working-directory fiction of a rootless
// image. Everything else reports ENOSYS through the table.

import (
	"encoding/binary"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"phoenix.dev/phoenix/pkg/arch"
	"phoenix.dev/phoenix/pkg/kernel"
	"phoenix.dev/phoenix/pkg/memory"
)

// Console is where the console descriptors write. Boot may redirect it.
var Console io.Writer = os.Stdout

const (
	fdStdin  = 0
	fdStdout = 1
	fdStderr = 2
)

// maxRWSize bounds a single read or write.
const maxRWSize = 1 << 20

// Write implements linux syscall write(2) for the console descriptors.
func Write(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := int32(args[0])
	buf := memory.UserReadPtr(args[1])
	count := args[2]
	if fd != fdStdout && fd != fdStderr {
		return 0, nil, unix.EBADF
	}
	if count > maxRWSize {
		count = maxRWSize
	}
	data := make([]byte, count)
	if err := buf.ReadBytes(taskSpace(t), data); err != nil {
		return 0, nil, err
	}
	n, err := Console.Write(data)
	if err != nil {
		return 0, nil, unix.EIO
	}
	return uintptr(n), nil, nil
}

// Writev implements linux syscall writev(2) for the console descriptors.
func Writev(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := int32(args[0])
	iovPtr := args[1]
	iovcnt := int(int32(args[2]))
	if fd != fdStdout && fd != fdStderr {
		return 0, nil, unix.EBADF
	}
	if iovcnt < 0 || iovcnt > 1024 {
		return 0, nil, unix.EINVAL
	}
	s := taskSpace(t)
	var total uintptr
	for i := 0; i < iovcnt; i++ {
		var iov [16]byte
		if err := memory.UserReadPtr(iovPtr + uint64(16*i)).ReadBytes(s, iov[:]); err != nil {
			return 0, nil, err
		}
		base := binary.LittleEndian.Uint64(iov[0:])
		length := binary.LittleEndian.Uint64(iov[8:])
		if length == 0 {
			continue
		}
		if length > maxRWSize {
			length = maxRWSize
		}
		data := make([]byte, length)
		if err := memory.UserReadPtr(base).ReadBytes(s, data); err != nil {
			return 0, nil, err
		}
		n, err := Console.Write(data)
		total += uintptr(n)
		if err != nil {
			return total, nil, nil
		}
	}
	return total, nil, nil
}

// Read implements linux syscall read(2): the console has no input here, so
// stdin is at end-of-file.
func Read(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	if int32(args[0]) != fdStdin {
		return 0, nil, unix.EBADF
	}
	return 0, nil, nil
}

// Close implements linux syscall close(2) for the console descriptors.
func Close(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := int32(args[0])
	if fd < 0 {
		return 0, nil, unix.EBADF
	}
	return 0, nil, nil
}

// Getcwd implements linux syscall getcwd(2). The image has a single root.
func Getcwd(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	bufPtr := memory.UserWritePtr(args[0])
	size := args[1]
	cwd := []byte("/\x00")
	if size < uint64(len(cwd)) {
		return 0, nil, unix.ERANGE
	}
	if err := bufPtr.WriteBytes(taskSpace(t), cwd); err != nil {
		return 0, nil, err
	}
	return uintptr(len(cwd)), nil, nil
}

// Ioctl implements linux syscall ioctl(2): the console descriptors accept
// nothing, and nothing else is open.
func Ioctl(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := int32(args[0])
	if fd >= fdStdin && fd <= fdStderr {
		return 0, nil, unix.ENOTTY
	}
	return 0, nil, unix.EBADF
}
