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

package sim

import (
	"encoding/binary"
	"time"

	"golang.org/x/sys/unix"

	linux "phoenix.dev/phoenix/pkg/abi/linux"
	"phoenix.dev/phoenix/pkg/arch"
	"phoenix.dev/phoenix/pkg/riscv"
)

// Proc is one simulated user thread. Program bodies run on their own
// goroutine and hand control to the kernel by trapping; the kernel hands it
// back by resuming. A body must end by calling Exit, ExitGroup, or Exec, or
// by returning (which exits with status 0).
type Proc struct {
	plat *Platform
	tc   *arch.TrapContext
	prog Program

	// space is the address space installed on the hart that last resumed
	// this thread. Valid while the body runs.
	space *Space

	// expectedSepc is the pc the kernel will resume this thread at; a
	// resume elsewhere means the context was given a new image.
	expectedSepc uint64

	resumed   chan struct{}
	trapped   chan struct{}
	abandoned chan struct{}

	started bool
	execed  bool
	exited  bool
}

func newProc(p *Platform, tc *arch.TrapContext, prog Program) *Proc {
	return &Proc{
		plat:         p,
		tc:           tc,
		prog:         prog,
		expectedSepc: tc.Sepc,
		resumed:      make(chan struct{}),
		trapped:      make(chan struct{}),
		abandoned:    make(chan struct{}),
	}
}

func (u *Proc) run() {
	u.prog(u)
	if !u.execed && !u.exited {
		u.Exit(0)
	}
}

// trap records an environment call in the trap context and hands the hart
// back to the kernel.
func (u *Proc) trap(nr uint64, args ...uint64) {
	regs := &u.tc.Regs.Regs
	for i := 0; i < 6; i++ {
		var v uint64
		if i < len(args) {
			v = args[i]
		}
		regs[arch.RegA0+i] = v
	}
	regs[arch.RegA7] = nr
	u.tc.Scause = riscv.CauseECallUser
	u.tc.Stval = 0
	u.expectedSepc = u.tc.Sepc + 4
	u.trapped <- struct{}{}
}

// Syscall performs one syscall and returns its raw result register.
func (u *Proc) Syscall(nr uint64, args ...uint64) uint64 {
	u.trap(nr, args...)
	<-u.resumed
	return u.tc.Return()
}

// SyscallErr performs one syscall and splits the kernel ABI result into a
// value and an errno.
func (u *Proc) SyscallErr(nr uint64, args ...uint64) (uint64, error) {
	ret := u.Syscall(nr, args...)
	if v := int64(ret); v < 0 && v >= -4095 {
		return 0, unix.Errno(-v)
	}
	return ret, nil
}

// Exit performs exit(2). It returns to the body without waiting for a
// resume; the kernel never resumes the thread again.
func (u *Proc) Exit(code uint64) {
	u.exited = true
	u.trap(uint64(linux.SYS_EXIT), code)
}

// ExitGroup performs exit_group(2).
func (u *Proc) ExitGroup(code uint64) {
	u.exited = true
	u.trap(uint64(linux.SYS_EXIT_GROUP), code)
}

// Yield performs sched_yield(2).
func (u *Proc) Yield() {
	u.Syscall(uint64(linux.SYS_SCHED_YIELD))
}

// Fork clones a child process running child and returns its thread ID.
func (u *Proc) Fork(child Program) int64 {
	u.plat.mu.Lock()
	u.plat.pendingChildren = append(u.plat.pendingChildren, child)
	u.plat.mu.Unlock()
	ret := u.Syscall(uint64(linux.SYS_CLONE), uint64(linux.SIGCHLD))
	return int64(ret)
}

// CloneThread clones a sibling thread running child and returns its thread
// ID.
func (u *Proc) CloneThread(child Program) int64 {
	u.plat.mu.Lock()
	u.plat.pendingChildren = append(u.plat.pendingChildren, child)
	u.plat.mu.Unlock()
	flags := linux.CLONE_VM | linux.CLONE_THREAD | linux.CLONE_SIGHAND | linux.CLONE_FILES
	ret := u.Syscall(uint64(linux.SYS_CLONE), uint64(flags))
	return int64(ret)
}

// Wait4 performs wait4(2) and returns the reaped thread ID and its status
// word.
func (u *Proc) Wait4(pid int64) (int64, uint32, error) {
	statusAddr := u.space.scratchAlloc(4)
	ret, err := u.SyscallErr(uint64(linux.SYS_WAIT4), uint64(pid), statusAddr, 0, 0)
	if err != nil {
		return 0, 0, err
	}
	var buf [4]byte
	if err := u.space.CopyIn(statusAddr, buf[:]); err != nil {
		return 0, 0, err
	}
	return int64(ret), binary.LittleEndian.Uint32(buf[:]), nil
}

// Exec performs execve(2) on the named image. On success the body is
// replaced and Exec returns nil; the caller must return immediately. On
// failure the errno is returned and the body continues.
func (u *Proc) Exec(name string, argv, envp []string) error {
	pathAddr := u.PushString(name)
	argvAddr := u.pushPtrVector(argv)
	envpAddr := u.pushPtrVector(envp)
	u.execed = true
	u.trap(uint64(linux.SYS_EXECVE), pathAddr, argvAddr, envpAddr)
	select {
	case <-u.resumed:
		u.execed = false
		ret := int64(u.tc.Return())
		return unix.Errno(-ret)
	case <-u.abandoned:
		return nil
	}
}

// Pause performs rt_sigsuspend(2) with every blockable signal masked: the
// thread parks until it is killed.
func (u *Proc) Pause() {
	mask := u.PushWords([]uint64{^uint64(0)})
	u.Syscall(uint64(linux.SYS_RT_SIGSUSPEND), mask, 8)
}

// WriteString performs write(2) of s to standard output.
func (u *Proc) WriteString(s string) {
	u.Syscall(uint64(linux.SYS_WRITE), 1, u.PushString(s), uint64(len(s)))
}

// Sleep performs nanosleep(2) for d.
func (u *Proc) Sleep(d time.Duration) {
	ts := u.PushWords([]uint64{uint64(d / time.Second), uint64(d % time.Second)})
	u.Syscall(uint64(linux.SYS_NANOSLEEP), ts, 0)
}

// PushString stages a NUL-terminated string in the thread's address space
// and returns its address.
func (u *Proc) PushString(s string) uint64 {
	b := append([]byte(s), 0)
	addr := u.space.scratchAlloc(uint64(len(b)))
	if err := u.space.CopyOut(addr, b); err != nil {
		panic(err)
	}
	return addr
}

// PushWords stages a vector of machine words and returns its address.
func (u *Proc) PushWords(words []uint64) uint64 {
	buf := make([]byte, 8*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[8*i:], w)
	}
	addr := u.space.scratchAlloc(uint64(len(buf)))
	if err := u.space.CopyOut(addr, buf); err != nil {
		panic(err)
	}
	return addr
}

func (u *Proc) pushPtrVector(strs []string) uint64 {
	words := make([]uint64, 0, len(strs)+1)
	for _, s := range strs {
		words = append(words, u.PushString(s))
	}
	words = append(words, 0)
	return u.PushWords(words)
}
