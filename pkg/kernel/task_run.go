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

package kernel

import (
	linux "phoenix.dev/phoenix/pkg/abi/linux"
	"phoenix.dev/phoenix/pkg/arch"
	"phoenix.dev/phoenix/pkg/executor"
	"phoenix.dev/phoenix/pkg/riscv"
	"phoenix.dev/phoenix/pkg/signal"
)

// A taskRunState is a reified state in the task loop. The set of states is
// small and fixed: return to user, handle the trap, execute a syscall,
// handle a page fault, exit. Data-free states are typecast nils to avoid
// allocation.
type taskRunState interface {
	// execute runs the state over t and returns the following state. A
	// nil next state completes the loop. pending reports that the task
	// has suspended: its waker is registered and the same state must be
	// re-entered when it fires.
	execute(t *Task) (next taskRunState, pending bool)
}

// taskLoop drives one user thread: return to user, come back on the next
// trap, handle it, and loop until the task is a zombie. It implements
// executor.Future; a suspension inside trap handling unwinds through Poll
// so the wrapping future can unmount the task from the hart.
type taskLoop struct {
	t     *Task
	state taskRunState
}

func newTaskLoop(t *Task) *taskLoop {
	return &taskLoop{t: t, state: (*runTrapReturn)(nil)}
}

// Poll implements executor.Future.Poll.
func (l *taskLoop) Poll(cx *executor.Context) bool {
	// The waker is taken anew each poll; killing a task between polls
	// still reaches a live waker.
	l.t.SetWaker(cx.Waker())
	for {
		next, pending := l.state.execute(l.t)
		if pending {
			l.state = next
			return false
		}
		if next == nil {
			return true
		}
		l.state = next
	}
}

// afterTrapState picks the loop continuation after a trap has been fully
// handled: back to user, or into the exit path once the task is a zombie.
func afterTrapState(t *Task) taskRunState {
	if t.IsZombie() {
		return (*runExit)(nil)
	}
	return (*runTrapReturn)(nil)
}

// runTrapReturn resumes user execution. It never suspends: control comes
// back only when the user traps again.
type runTrapReturn struct{}

func (*runTrapReturn) execute(t *Task) (taskRunState, bool) {
	trapReturn(t)
	return (*runTrapHandle)(nil), false
}

// runTrapHandle dispatches the trap recorded in the task's trap context.
type runTrapHandle struct{}

func (*runTrapHandle) execute(t *Task) (taskRunState, bool) {
	tc := t.TrapContext()
	switch cause := tc.Scause; {
	case cause == riscv.CauseECallUser:
		// The syscall resumes at the instruction after ecall.
		tc.Sepc += 4
		return &runSyscall{sysno: uintptr(tc.SyscallNo()), args: tc.SyscallArgs()}, false
	case cause.IsPageFault():
		return (*runPageFault)(nil), false
	case cause.IsInterrupt():
		// Interrupt work (timer ticks, IPIs) completes in the trap
		// path; nothing to do here but go back to user.
		return afterTrapState(t), false
	default:
		taskLog(t).WithField("scause", tc.Scause).Warn("unhandled exception, killing task")
		t.SetExitCode(128 + int32(linux.SIGILL))
		t.SetZombie()
		return (*runExit)(nil), false
	}
}

// runSyscall executes one syscall. A blocking handler suspends the task in
// this state and is re-executed in full on wake-up.
type runSyscall struct {
	sysno uintptr
	args  arch.SyscallArguments
}

func (r *runSyscall) execute(t *Task) (taskRunState, bool) {
	// A kill that raced with the suspension wins: the body is not
	// re-entered for a zombie.
	if t.IsZombie() {
		return (*runExit)(nil), false
	}

	var sc Syscall
	ok := syscallTable != nil
	if ok {
		sc, ok = syscallTable.Lookup(r.sysno)
	}
	if !ok {
		if unknownSyscallLimiter.Allow() {
			taskLog(t).WithField("sysno", r.sysno).Warn("unknown syscall")
		}
		t.TrapContext().SetReturn(0)
		return afterTrapState(t), false
	}

	taskLog(t).WithField("syscall", sc.Name).Trace("handling syscall")
	val, ctl, err := sc.Fn(t, r.sysno, r.args)
	if ctl != nil {
		if ctl.Block {
			return r, true
		}
		if ctl.Yield {
			t.TrapContext().SetReturn(encodeSyscallReturn(val, err))
			t.Wake()
			return afterTrapState(t), true
		}
	}
	t.TrapContext().SetReturn(encodeSyscallReturn(val, err))
	return afterTrapState(t), false
}

// runPageFault handles a user page fault. The address space is not asked to
// resolve it: every fault that reaches here raises SIGSEGV, and with no
// handler installed that kills the task.
type runPageFault struct{}

func (*runPageFault) execute(t *Task) (taskRunState, bool) {
	tc := t.TrapContext()
	taskLog(t).WithField("stval", tc.Stval).WithField("sepc", tc.Sepc).Debug("user page fault")
	t.SendSignal(linux.SIGSEGV)
	if t.SigHandlers().Actions[linux.SIGSEGV].Handler == signal.HandlerDefault {
		t.SetExitCode(128 + int32(linux.SIGSEGV))
		t.SetZombie()
	}
	return afterTrapState(t), false
}

// runExit finishes the task after its loop breaks.
type runExit struct{}

func (*runExit) execute(t *Task) (taskRunState, bool) {
	taskLog(t).Debug("thread terminated")
	t.handleExit()
	return nil, false
}

// UserTaskFuture binds a task's loop to a hart for the duration of each
// poll. Because every poll remounts the task, the executor may move the
// future between harts across suspensions without the inner code noticing.
type UserTaskFuture struct {
	t     *Task
	env   EnvContext
	inner executor.Future
}

// NewUserTaskFuture wraps the task's loop.
func NewUserTaskFuture(t *Task) *UserTaskFuture {
	return &UserTaskFuture{t: t, env: NewTaskEnv(), inner: newTaskLoop(t)}
}

// Poll implements executor.Future.Poll.
func (f *UserTaskFuture) Poll(cx *executor.Context) bool {
	h := LocalHart()
	h.EnterUserTask(f.t, &f.env)
	done := f.inner.Poll(cx)
	h.LeaveUserTask(&f.env)
	return done
}

// KernelTaskFuture runs a kernel-only future under the env-swap discipline,
// leaving the task slot and address space alone.
type KernelTaskFuture struct {
	env   EnvContext
	inner executor.Future
}

// NewKernelTaskFuture wraps f.
func NewKernelTaskFuture(f executor.Future) *KernelTaskFuture {
	return &KernelTaskFuture{env: NewTaskEnv(), inner: f}
}

// Poll implements executor.Future.Poll.
func (f *KernelTaskFuture) Poll(cx *executor.Context) bool {
	h := LocalHart()
	h.KernelTaskSwitch(&f.env)
	done := f.inner.Poll(cx)
	h.KernelTaskSwitch(&f.env)
	return done
}

// SpawnUserTask schedules t's loop on the executor.
func SpawnUserTask(t *Task) {
	runnable, handle := executor.Spawn(NewUserTaskFuture(t))
	runnable.Schedule()
	handle.Detach()
}

// SpawnKernelTask schedules a kernel future (init work, timed work) on the
// executor.
func SpawnKernelTask(f executor.Future) {
	runnable, handle := executor.Spawn(NewKernelTaskFuture(f))
	runnable.Schedule()
	handle.Detach()
}

// YieldFuture completes on its second poll, rescheduling itself in between.
type YieldFuture struct {
	yielded bool
}

// Poll implements executor.Future.Poll.
func (y *YieldFuture) Poll(cx *executor.Context) bool {
	if y.yielded {
		return true
	}
	y.yielded = true
	cx.Waker()()
	return false
}
