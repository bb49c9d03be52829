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
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/google/btree"

	linux "phoenix.dev/phoenix/pkg/abi/linux"
	"phoenix.dev/phoenix/pkg/arch"
	"phoenix.dev/phoenix/pkg/executor"
	"phoenix.dev/phoenix/pkg/memory"
	"phoenix.dev/phoenix/pkg/signal"
	"phoenix.dev/phoenix/pkg/sync"
	"phoenix.dev/phoenix/pkg/vfs"
)

// TaskState is the lifecycle state of a task. It only ever moves forward.
type TaskState int32

// Task states.
const (
	TaskRunning TaskState = iota
	TaskZombie
)

// Slots shared between the tasks of a thread group. CLONE_THREAD shares the
// pointer; fork allocates a fresh one.
type (
	sharedSpace struct {
		mu sync.NoIRQMutex
		s  memory.Space
	}
	sharedParent struct {
		mu sync.NoIRQMutex
		p  *Task
	}
	sharedChildren struct {
		mu sync.NoIRQMutex
		m  *btree.BTree
	}
)

func newSharedSpace(s memory.Space) *sharedSpace {
	return &sharedSpace{s: s}
}

func newSharedParent(p *Task) *sharedParent {
	return &sharedParent{p: p}
}

func newSharedChildren() *sharedChildren {
	return &sharedChildren{m: btree.New(8)}
}

// waiterSet is the set of wakers a task's children notify when they exit.
type waiterSet struct {
	mu     gosync.Mutex
	wakers []executor.Waker
}

// Register adds w to the set.
func (ws *waiterSet) Register(w executor.Waker) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.wakers = append(ws.wakers, w)
}

// Notify fires and drops every registered waker.
func (ws *waiterSet) Notify() {
	ws.mu.Lock()
	wakers := ws.wakers
	ws.wakers = nil
	ws.mu.Unlock()
	for _, w := range wakers {
		w()
	}
}

// Task is the control block of one user thread. A task that leads its
// thread group is a process.
//
// Field discipline mirrors who may touch what:
//
//   - tid and isLeader are immutable.
//   - exitCode and sigUContextPtr are atomic scalars.
//   - trapContext, sigMask, sigStack, timeStat, robustList, and the syscall
//     restart fields belong exclusively to the future that owns the task's
//     execution; the executor never polls one future on two workers, so no
//     lock is needed.
//   - state, space, parent, children, tg, and sigPending may be touched by
//     other tasks and sit behind no-IRQ locks.
type Task struct {
	tid      *TIDHandle
	isLeader bool

	exitCode       atomic.Int32
	sigUContextPtr atomic.Uint64

	// Owner-exclusive state.
	trapContext   arch.TrapContext
	sigHandlers   *signal.Handlers
	sigMask       signal.Set
	sigStack      *signal.Stack
	timeStat      TimeStat
	robustList    uint64
	clearChildTID uint64
	sleepDeadline time.Time
	suspendedMask *signal.Set

	// waker resumes the task's future. Written by the owning future on
	// every poll and read by any task that kills or signals this one.
	waker atomic.Value // of executor.Waker

	stateMu sync.NoIRQMutex
	state   TaskState

	space    *sharedSpace
	parent   *sharedParent
	children *sharedChildren
	tg       *ThreadGroup
	fdTable  vfs.FDTable

	sigPendingMu sync.NoIRQMutex
	sigPending   signal.Pending

	// childEvents is notified when a child of this task exits.
	childEvents waiterSet
}

// TID returns the task's thread ID.
func (t *Task) TID() ThreadID {
	return t.tid.TID()
}

// PID returns the task's process ID: its thread group's identity.
func (t *Task) PID() ThreadID {
	return t.tg.TGID()
}

// IsLeader returns whether the task leads its thread group.
func (t *Task) IsLeader() bool {
	return t.isLeader
}

// ThreadGroup returns the group the task belongs to.
func (t *Task) ThreadGroup() *ThreadGroup {
	return t.tg
}

// Parent returns the task's parent, or nil for the init process.
func (t *Task) Parent() *Task {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	return t.parent.p
}

func (t *Task) setParent(p *Task) {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	t.parent.p = p
}

// PPID returns the parent's process ID, or 0 for the init process.
func (t *Task) PPID() ThreadID {
	p := t.Parent()
	if p == nil {
		return 0
	}
	return p.PID()
}

// Children returns a snapshot of the task's children in thread-ID order.
func (t *Task) Children() []*Task {
	t.children.mu.Lock()
	defer t.children.mu.Unlock()
	out := make([]*Task, 0, t.children.m.Len())
	t.children.m.Ascend(func(i btree.Item) bool {
		out = append(out, i.(taskEntry).t)
		return true
	})
	return out
}

// AddChild records c as a child of t. A duplicate thread ID is fatal.
func (t *Task) AddChild(c *Task) {
	t.children.mu.Lock()
	defer t.children.mu.Unlock()
	if t.children.m.Has(taskEntry{tid: c.TID()}) {
		panic("child with duplicate tid")
	}
	t.children.m.ReplaceOrInsert(taskEntry{tid: c.TID(), t: c})
}

// RemoveChild forgets the child with the given thread ID, dropping the last
// long-lived strong reference to a reaped leader.
func (t *Task) RemoveChild(tid ThreadID) {
	t.children.mu.Lock()
	defer t.children.mu.Unlock()
	t.children.m.Delete(taskEntry{tid: tid})
}

// ExitCode returns the task's exit code.
func (t *Task) ExitCode() int32 {
	return t.exitCode.Load()
}

// SetExitCode records the task's exit code.
func (t *Task) SetExitCode(code int32) {
	t.exitCode.Store(code)
}

// State returns the task's lifecycle state.
func (t *Task) State() TaskState {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.state
}

// IsZombie returns whether the task has terminated.
func (t *Task) IsZombie() bool {
	return t.State() == TaskZombie
}

// SetZombie marks the task terminated and wakes its future so the task loop
// can observe the transition at its next poll boundary. The transition is
// one-way.
func (t *Task) SetZombie() {
	t.stateMu.Lock()
	t.state = TaskZombie
	t.stateMu.Unlock()
	t.Wake()
}

// TrapContext returns the task's saved user execution state. Only the
// owning future and the task's own syscall handlers may use it, except for
// the initial register setup a cloning parent performs before the child is
// scheduled.
func (t *Task) TrapContext() *arch.TrapContext {
	return &t.trapContext
}

// SetWaker records the waker that resumes the task's future.
func (t *Task) SetWaker(w executor.Waker) {
	t.waker.Store(w)
}

// Wake schedules the task's future if a waker has been taken.
func (t *Task) Wake() {
	if w, ok := t.waker.Load().(executor.Waker); ok {
		w()
	}
}

// Waker returns the waker that resumes the task's future, for registration
// with event sources. Nil before the first poll.
func (t *Task) Waker() executor.Waker {
	w, _ := t.waker.Load().(executor.Waker)
	return w
}

// SleepDeadline returns the deadline of an in-progress nanosleep, or the
// zero time.
func (t *Task) SleepDeadline() time.Time {
	return t.sleepDeadline
}

// SetSleepDeadline records the deadline of a blocking sleep.
func (t *Task) SetSleepDeadline(d time.Time) {
	t.sleepDeadline = d
}

// ClearSleepDeadline forgets a completed sleep.
func (t *Task) ClearSleepDeadline() {
	t.sleepDeadline = time.Time{}
}

// SaveSuspendedMask records the mask rt_sigsuspend displaced.
func (t *Task) SaveSuspendedMask(old signal.Set) {
	t.suspendedMask = &old
}

// TakeSuspendedMask returns and clears the mask saved by a suspended
// rt_sigsuspend, or nil if none is in progress.
func (t *Task) TakeSuspendedMask() *signal.Set {
	m := t.suspendedMask
	t.suspendedMask = nil
	return m
}

// SuspendedMask returns the saved mask without clearing it.
func (t *Task) SuspendedMask() *signal.Set {
	return t.suspendedMask
}

// WithSpace runs f with the task's address space.
func (t *Task) WithSpace(f func(s memory.Space)) {
	t.space.mu.Lock()
	defer t.space.mu.Unlock()
	f(t.space.s)
}

// SwitchPageTable installs the task's page table on the current hart.
func (t *Task) SwitchPageTable() {
	t.space.mu.Lock()
	defer t.space.mu.Unlock()
	t.space.s.Switch()
}

// FDTable returns the task's file-descriptor table.
func (t *Task) FDTable() vfs.FDTable {
	return t.fdTable
}

// SigHandlers returns the task's signal disposition table.
func (t *Task) SigHandlers() *signal.Handlers {
	return t.sigHandlers
}

// SigMask returns the task's blocked-signal mask.
func (t *Task) SigMask() signal.Set {
	return t.sigMask
}

// SigMaskReplace installs a new blocked-signal mask and returns the old one.
// SIGKILL and SIGSTOP can never be blocked and are silently stripped.
func (t *Task) SigMaskReplace(new signal.Set) signal.Set {
	new.Remove(signal.UnblockableSet)
	old := t.sigMask
	t.sigMask = new
	return old
}

// SignalStack returns the task's alternate signal stack, if set.
func (t *Task) SignalStack() *signal.Stack {
	return t.sigStack
}

// SetSignalStack installs an alternate signal stack.
func (t *Task) SetSignalStack(s *signal.Stack) {
	t.sigStack = s
}

// SigUContextPtr returns the saved user context pointer of an in-progress
// signal handler.
func (t *Task) SigUContextPtr() uint64 {
	return t.sigUContextPtr.Load()
}

// SetSigUContextPtr records the user context pointer of a signal handler.
func (t *Task) SetSigUContextPtr(ptr uint64) {
	t.sigUContextPtr.Store(ptr)
}

// SendSignal queues sig for the task and wakes it so a blocked syscall can
// observe the delivery.
func (t *Task) SendSignal(sig linux.Signal) {
	t.sigPendingMu.Lock()
	t.sigPending.Add(sig)
	t.sigPendingMu.Unlock()
	t.Wake()
}

// PendingOutside reports whether any signal outside mask is pending.
func (t *Task) PendingOutside(mask signal.Set) bool {
	t.sigPendingMu.Lock()
	defer t.sigPendingMu.Unlock()
	return t.sigPending.Any(mask)
}

// TakePending dequeues the oldest deliverable pending signal, or 0.
func (t *Task) TakePending(mask signal.Set) linux.Signal {
	t.sigPendingMu.Lock()
	defer t.sigPendingMu.Unlock()
	return t.sigPending.Take(mask)
}

// RobustList returns the registered robust-futex list head.
func (t *Task) RobustList() uint64 {
	return t.robustList
}

// SetRobustList records the robust-futex list head.
func (t *Task) SetRobustList(addr uint64) {
	t.robustList = addr
}

// SetClearChildTID records the clear-child-tid address from
// set_tid_address(2).
func (t *Task) SetClearChildTID(addr uint64) {
	t.clearChildTID = addr
}

// TimeStat returns the task's time accounting. Owner-exclusive.
func (t *Task) TimeStat() *TimeStat {
	return &t.timeStat
}

// ChildEvents returns the waiter set the task's children notify on exit.
func (t *Task) ChildEvents() *waiterSet {
	return &t.childEvents
}
