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

// Package executor is a work-stealing pool of futures. Each worker is a
// candidate logical processor; a spawned future is polled by exactly one
// worker at a time, but may be polled by different workers across
// suspensions. Wakers are the only resumption mechanism.
package executor

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Waker reschedules the future it was handed to. Safe to call from any
// goroutine, any number of times; calls after completion are no-ops.
type Waker func()

// Context is passed to each poll.
type Context struct {
	wake Waker
}

// Waker returns the waker that reschedules the polled future.
func (cx *Context) Waker() Waker {
	return cx.wake
}

// Future is a resumable computation. Poll runs it until it either completes
// (true) or suspends (false). A future that suspends must have arranged for
// its waker to fire, or it will never be polled again.
type Future interface {
	Poll(cx *Context) bool
}

// Task lifecycle states.
const (
	taskIdle int32 = iota
	taskQueued
	taskRunning
	taskNotified // running, and woken while running
	taskDone
)

type task struct {
	state atomic.Int32
	fut   Future
}

// Runnable schedules its task for polling.
type Runnable struct {
	t *task
}

// Schedule queues the task on the pool. Scheduling an already-queued or
// completed task is a no-op; scheduling a task mid-poll defers the queueing
// to the end of that poll.
func (r Runnable) Schedule() {
	r.t.wake()
}

// Handle detaches or observes a spawned task.
type Handle struct {
	t *task
}

// Detach lets the task run to completion unobserved.
func (h Handle) Detach() {}

// IsDone returns whether the task has completed.
func (h Handle) IsDone() bool {
	return h.t.state.Load() == taskDone
}

// Spawn wraps f in a task. The task does not run until its Runnable is
// scheduled.
func Spawn(f Future) (Runnable, Handle) {
	t := &task{fut: f}
	return Runnable{t}, Handle{t}
}

func (t *task) wake() {
	for {
		switch s := t.state.Load(); s {
		case taskIdle:
			if t.state.CompareAndSwap(taskIdle, taskQueued) {
				defaultPool.push(t)
				return
			}
		case taskRunning:
			if t.state.CompareAndSwap(taskRunning, taskNotified) {
				return
			}
		default:
			// Queued, notified, or done: the wake is already
			// covered.
			return
		}
	}
}

// runOnce polls t once on the calling worker.
func (t *task) runOnce() {
	t.state.Store(taskRunning)
	cx := &Context{wake: t.wake}
	if t.fut.Poll(cx) {
		t.state.Store(taskDone)
		return
	}
	for {
		switch s := t.state.Load(); s {
		case taskRunning:
			if t.state.CompareAndSwap(taskRunning, taskIdle) {
				return
			}
		case taskNotified:
			if t.state.CompareAndSwap(taskNotified, taskQueued) {
				defaultPool.push(t)
				return
			}
		default:
			return
		}
	}
}

type pool struct {
	mu   sync.Mutex
	cond *sync.Cond

	// locals[i] is worker i's run queue; a worker pops its own tail and
	// steals from the head of its siblings.
	locals   [][]*task
	next     int
	stopping bool

	g *errgroup.Group
}

var defaultPool = &pool{}

func (p *pool) push(t *task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.locals) == 0 {
		// Not started yet; queue for the first worker.
		p.locals = append(p.locals, nil)
	}
	i := p.next % len(p.locals)
	p.next++
	p.locals[i] = append(p.locals[i], t)
	p.cond.Broadcast()
}

// take returns the next task for worker id, blocking until one is available
// or the pool is stopping.
func (p *pool) take(id int) *task {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.stopping {
			return nil
		}
		if q := p.locals[id]; len(q) > 0 {
			t := q[len(q)-1]
			p.locals[id] = q[:len(q)-1]
			return t
		}
		for i, q := range p.locals {
			if i == id || len(q) == 0 {
				continue
			}
			t := q[0]
			p.locals[i] = q[1:]
			return t
		}
		p.cond.Wait()
	}
}

// Start brings up workers goroutines. Each worker first runs init with its
// worker index, then polls tasks until Stop. Tasks scheduled before Start
// are taken by the first worker to come up.
func Start(workers int, init func(worker int)) {
	p := defaultPool
	p.mu.Lock()
	if p.g != nil {
		p.mu.Unlock()
		panic("executor already started")
	}
	for len(p.locals) < workers {
		p.locals = append(p.locals, nil)
	}
	p.g = &errgroup.Group{}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		id := i
		p.g.Go(func() error {
			if init != nil {
				init(id)
			}
			for {
				t := p.take(id)
				if t == nil {
					return nil
				}
				t.runOnce()
			}
		})
	}
}

// Wait blocks until the workers exit (that is, until Stop).
func Wait() error {
	p := defaultPool
	p.mu.Lock()
	g := p.g
	p.mu.Unlock()
	if g != nil {
		return g.Wait()
	}
	return nil
}

// Stop asks all workers to exit once their current poll finishes and waits
// for them.
func Stop() {
	p := defaultPool
	p.mu.Lock()
	p.stopping = true
	p.cond.Broadcast()
	g := p.g
	p.mu.Unlock()
	if g != nil {
		g.Wait()
	}
}

// ResetForTesting tears the pool down so a test can start a fresh one.
// Callers must Stop first.
func ResetForTesting() {
	defaultPool = &pool{}
	defaultPool.cond = sync.NewCond(&defaultPool.mu)
}

func init() {
	defaultPool.cond = sync.NewCond(&defaultPool.mu)
}
