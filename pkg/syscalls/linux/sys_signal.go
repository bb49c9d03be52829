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

	"golang.org/x/sys/unix"

	linux "phoenix.dev/phoenix/pkg/abi/linux"
	"phoenix.dev/phoenix/pkg/arch"
	"phoenix.dev/phoenix/pkg/kernel"
	"phoenix.dev/phoenix/pkg/memory"
	"phoenix.dev/phoenix/pkg/signal"
)

// sigsetSize is the only sigset size the rt_ signal calls accept.
const sigsetSize = 8

// sigactionSize is the size of struct sigaction on the wire: handler,
// flags, restorer, mask.
const sigactionSize = 32

// RtSigprocmask implements linux syscall rt_sigprocmask(2).
func RtSigprocmask(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	how := args[0]
	setPtr := memory.UserReadPtr(args[1])
	oldsetPtr := memory.UserWritePtr(args[2])
	if args[3] != sigsetSize {
		return 0, nil, unix.EINVAL
	}

	s := taskSpace(t)
	old := t.SigMask()
	if !setPtr.IsNull() {
		raw, err := setPtr.ReadUint64(s)
		if err != nil {
			return 0, nil, err
		}
		set := signal.Set(raw)
		var mask signal.Set
		switch how {
		case linux.SIG_BLOCK:
			mask = old | set
		case linux.SIG_UNBLOCK:
			mask = old &^ set
		case linux.SIG_SETMASK:
			mask = set
		default:
			return 0, nil, unix.EINVAL
		}
		t.SigMaskReplace(mask)
	}
	if !oldsetPtr.IsNull() {
		if err := oldsetPtr.WriteUint64(s, uint64(old)); err != nil {
			return 0, nil, err
		}
	}
	return 0, nil, nil
}

// RtSigaction implements linux syscall rt_sigaction(2).
func RtSigaction(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	sig := linux.Signal(int32(args[0]))
	actPtr := memory.UserReadPtr(args[1])
	oldactPtr := memory.UserWritePtr(args[2])
	if !sig.IsValid() || sig == linux.SIGKILL || sig == linux.SIGSTOP {
		return 0, nil, unix.EINVAL
	}

	s := taskSpace(t)
	old := t.SigHandlers().Actions[sig]
	if !oldactPtr.IsNull() {
		var buf [sigactionSize]byte
		binary.LittleEndian.PutUint64(buf[0:], old.Handler)
		binary.LittleEndian.PutUint64(buf[8:], old.Flags)
		binary.LittleEndian.PutUint64(buf[16:], old.Restorer)
		binary.LittleEndian.PutUint64(buf[24:], uint64(old.Mask))
		if err := oldactPtr.WriteBytes(s, buf[:]); err != nil {
			return 0, nil, err
		}
	}
	if !actPtr.IsNull() {
		var buf [sigactionSize]byte
		if err := actPtr.ReadBytes(s, buf[:]); err != nil {
			return 0, nil, err
		}
		t.SigHandlers().Actions[sig] = signal.Action{
			Handler:  binary.LittleEndian.Uint64(buf[0:]),
			Flags:    binary.LittleEndian.Uint64(buf[8:]),
			Restorer: binary.LittleEndian.Uint64(buf[16:]),
			Mask:     signal.Set(binary.LittleEndian.Uint64(buf[24:])),
		}
	}
	return 0, nil, nil
}

// RtSigreturn implements linux syscall rt_sigreturn(2). The saved user
// context pointer is consumed; full frame restoration belongs to the signal
// delivery path.
func RtSigreturn(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	t.SetSigUContextPtr(0)
	return uintptr(t.TrapContext().Return()), nil, nil
}

// RtSigsuspend implements linux syscall rt_sigsuspend(2): the caller's mask
// is replaced and the task blocks until a deliverable signal is pending,
// after which the original mask is restored and EINTR returned.
func RtSigsuspend(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	if t.SuspendedMask() == nil {
		raw, err := memory.UserReadPtr(args[0]).ReadUint64(taskSpace(t))
		if err != nil {
			return 0, nil, err
		}
		old := t.SigMaskReplace(signal.Set(raw))
		t.SaveSuspendedMask(old)
	}
	if t.PendingOutside(t.SigMask()) {
		t.SigMaskReplace(*t.TakeSuspendedMask())
		return 0, nil, unix.EINTR
	}
	// A signal send wakes the task directly; re-execution re-checks.
	return 0, kernel.CtlBlock, nil
}

// Kill implements linux syscall kill(2) for positive pids.
func Kill(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	pid := int64(int32(args[0]))
	sig := linux.Signal(int32(args[1]))
	if pid <= 0 {
		return 0, nil, unix.EINVAL
	}
	target := kernel.Manager().Find(kernel.ThreadID(pid))
	if target == nil {
		return 0, nil, unix.ESRCH
	}
	if sig == 0 {
		return 0, nil, nil
	}
	if !sig.IsValid() {
		return 0, nil, unix.EINVAL
	}
	target.SendSignal(sig)
	return 0, nil, nil
}

// Tkill implements linux syscall tkill(2).
func Tkill(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	tid := kernel.ThreadID(int32(args[0]))
	sig := linux.Signal(int32(args[1]))
	if tid <= 0 {
		return 0, nil, unix.EINVAL
	}
	target := kernel.Manager().Find(tid)
	if target == nil {
		return 0, nil, unix.ESRCH
	}
	if sig != 0 {
		if !sig.IsValid() {
			return 0, nil, unix.EINVAL
		}
		target.SendSignal(sig)
	}
	return 0, nil, nil
}

// Tgkill implements linux syscall tgkill(2).
func Tgkill(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	tgid := kernel.ThreadID(int32(args[0]))
	tid := kernel.ThreadID(int32(args[1]))
	sig := linux.Signal(int32(args[2]))
	if tgid <= 0 || tid <= 0 {
		return 0, nil, unix.EINVAL
	}
	target := kernel.Manager().Find(tid)
	if target == nil || target.PID() != tgid {
		return 0, nil, unix.ESRCH
	}
	if sig != 0 {
		if !sig.IsValid() {
			return 0, nil, unix.EINVAL
		}
		target.SendSignal(sig)
	}
	return 0, nil, nil
}
