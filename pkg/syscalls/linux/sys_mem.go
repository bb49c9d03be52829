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
	"phoenix.dev/phoenix/pkg/arch"
	"phoenix.dev/phoenix/pkg/kernel"
	"phoenix.dev/phoenix/pkg/memory"
)

// Brk implements linux syscall brk(2).
func Brk(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	var brk uint64
	t.WithSpace(func(s memory.Space) {
		brk = s.Brk(args[0])
	})
	return uintptr(brk), nil, nil
}

// Mmap implements linux syscall mmap(2) for anonymous mappings.
func Mmap(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	var (
		addr uint64
		err  error
	)
	t.WithSpace(func(s memory.Space) {
		addr, err = s.Mmap(args[0], args[1], uint32(args[2]), uint32(args[3]))
	})
	if err != nil {
		return 0, nil, err
	}
	return uintptr(addr), nil, nil
}

// Munmap implements linux syscall munmap(2).
func Munmap(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	var err error
	t.WithSpace(func(s memory.Space) {
		err = s.Munmap(args[0], args[1])
	})
	if err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}
