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

// CloneFlags is the flags argument to clone(2).
type CloneFlags uint64

// Clone flags, from linux/sched.h.
const (
	CLONE_VM             CloneFlags = 0x100
	CLONE_FS             CloneFlags = 0x200
	CLONE_FILES          CloneFlags = 0x400
	CLONE_SIGHAND        CloneFlags = 0x800
	CLONE_PTRACE         CloneFlags = 0x2000
	CLONE_VFORK          CloneFlags = 0x4000
	CLONE_PARENT         CloneFlags = 0x8000
	CLONE_THREAD         CloneFlags = 0x10000
	CLONE_NEWNS          CloneFlags = 0x20000
	CLONE_SYSVSEM        CloneFlags = 0x40000
	CLONE_SETTLS         CloneFlags = 0x80000
	CLONE_PARENT_SETTID  CloneFlags = 0x100000
	CLONE_CHILD_CLEARTID CloneFlags = 0x200000
	CLONE_CHILD_SETTID   CloneFlags = 0x1000000
)

// Contains returns true if all bits of other are set in f.
func (f CloneFlags) Contains(other CloneFlags) bool {
	return f&other == other
}

// Wait options, from linux/wait.h.
const (
	WNOHANG   = 0x1
	WUNTRACED = 0x2
)

// WaitStatusExit encodes an exit code as a wait status, as returned in the
// status word of wait4(2).
func WaitStatusExit(code int32) uint32 {
	return uint32(code&0xff) << 8
}
