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

// clockTick is the userspace-visible scheduler tick used by times(2).
const clockTick = 100

var bootTime = time.Now()

func writeTimespec(s memory.Space, ptr memory.UserWritePtr, d time.Duration) error {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(d/time.Second))
	binary.LittleEndian.PutUint64(buf[8:], uint64(d%time.Second))
	return ptr.WriteBytes(s, buf[:])
}

func readTimespec(s memory.Space, ptr memory.UserReadPtr) (time.Duration, error) {
	var buf [16]byte
	if err := ptr.ReadBytes(s, buf[:]); err != nil {
		return 0, err
	}
	sec := binary.LittleEndian.Uint64(buf[0:])
	nsec := binary.LittleEndian.Uint64(buf[8:])
	if nsec >= uint64(time.Second) {
		return 0, unix.EINVAL
	}
	return time.Duration(sec)*time.Second + time.Duration(nsec), nil
}

// Gettimeofday implements linux syscall gettimeofday(2).
func Gettimeofday(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	tvPtr := memory.UserWritePtr(args[0])
	if tvPtr.IsNull() {
		return 0, nil, nil
	}
	now := time.Now()
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(now.Unix()))
	binary.LittleEndian.PutUint64(buf[8:], uint64(now.Nanosecond()/1000))
	if err := tvPtr.WriteBytes(taskSpace(t), buf[:]); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}

// ClockGettime implements linux syscall clock_gettime(2).
func ClockGettime(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	clockID := int32(args[0])
	tsPtr := memory.UserWritePtr(args[1])
	var d time.Duration
	switch clockID {
	case unix.CLOCK_REALTIME:
		d = time.Duration(time.Now().UnixNano())
	case unix.CLOCK_MONOTONIC, unix.CLOCK_BOOTTIME:
		d = time.Since(bootTime)
	default:
		return 0, nil, unix.EINVAL
	}
	if err := writeTimespec(taskSpace(t), tsPtr, d); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}

// ClockSettime implements linux syscall clock_settime(2). The wall clock is
// firmware-owned.
func ClockSettime(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	return 0, nil, unix.EPERM
}

// ClockGetres implements linux syscall clock_getres(2).
func ClockGetres(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	tsPtr := memory.UserWritePtr(args[1])
	if tsPtr.IsNull() {
		return 0, nil, nil
	}
	if err := writeTimespec(taskSpace(t), tsPtr, time.Nanosecond); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}

// Nanosleep implements linux syscall nanosleep(2). The first execution arms
// a timer against the task's waker; re-execution after the wake completes
// the sleep, or reports EINTR if a signal arrived first.
func Nanosleep(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	s := taskSpace(t)
	if t.SleepDeadline().IsZero() {
		d, err := readTimespec(s, memory.UserReadPtr(args[0]))
		if err != nil {
			return 0, nil, err
		}
		if d == 0 {
			return 0, nil, nil
		}
		deadline := time.Now().Add(d)
		t.SetSleepDeadline(deadline)
		time.AfterFunc(d, t.Wake)
		return 0, kernel.CtlBlock, nil
	}

	remaining := time.Until(t.SleepDeadline())
	if t.PendingOutside(t.SigMask()) && remaining > 0 {
		t.ClearSleepDeadline()
		if remPtr := memory.UserWritePtr(args[1]); !remPtr.IsNull() {
			if err := writeTimespec(s, remPtr, remaining); err != nil {
				return 0, nil, err
			}
		}
		return 0, nil, unix.EINTR
	}
	if remaining > 0 {
		// Spurious wake; the timer has not fired yet.
		return 0, kernel.CtlBlock, nil
	}
	t.ClearSleepDeadline()
	return 0, nil, nil
}

// Times implements linux syscall times(2).
func Times(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	bufPtr := memory.UserWritePtr(args[0])
	elapsed := uintptr(time.Since(bootTime) * clockTick / time.Second)
	if bufPtr.IsNull() {
		return elapsed, nil, nil
	}
	ts := t.TimeStat()
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(ts.UserTime()*clockTick/time.Second))
	binary.LittleEndian.PutUint64(buf[8:], uint64(ts.SystemTime()*clockTick/time.Second))
	// Reaped-children times are not accumulated.
	if err := bufPtr.WriteBytes(taskSpace(t), buf[:]); err != nil {
		return 0, nil, err
	}
	return elapsed, nil, nil
}

// Getitimer implements linux syscall getitimer(2). No interval timers are
// armed by this kernel, so the result is always zero.
func Getitimer(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	bufPtr := memory.UserWritePtr(args[1])
	if bufPtr.IsNull() {
		return 0, nil, unix.EFAULT
	}
	var buf [32]byte
	if err := bufPtr.WriteBytes(taskSpace(t), buf[:]); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}

// Setitimer implements linux syscall setitimer(2): the value is accepted
// and the previous (always zero) value returned.
func Setitimer(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	if oldPtr := memory.UserWritePtr(args[2]); !oldPtr.IsNull() {
		var buf [32]byte
		if err := oldPtr.WriteBytes(taskSpace(t), buf[:]); err != nil {
			return 0, nil, err
		}
	}
	return 0, nil, nil
}
