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

package executor

import (
	"sync/atomic"
	"testing"
	"time"
)

func startPool(t *testing.T, workers int) {
	t.Helper()
	ResetForTesting()
	Start(workers, nil)
	t.Cleanup(func() {
		Stop()
		ResetForTesting()
	})
}

// countdownFuture suspends itself n times, waking itself each time, then
// completes.
type countdownFuture struct {
	n     int32
	polls atomic.Int32
	done  chan struct{}
}

func (f *countdownFuture) Poll(cx *Context) bool {
	f.polls.Add(1)
	if f.n <= 0 {
		close(f.done)
		return true
	}
	f.n--
	cx.Waker()()
	return false
}

func TestSpawnRunsToCompletion(t *testing.T) {
	startPool(t, 1)
	f := &countdownFuture{n: 3, done: make(chan struct{})}
	runnable, handle := Spawn(f)
	runnable.Schedule()
	handle.Detach()

	select {
	case <-f.done:
	case <-time.After(5 * time.Second):
		t.Fatal("future did not complete")
	}
	if got := f.polls.Load(); got != 4 {
		t.Errorf("future polled %d times, want 4", got)
	}
	if !handle.IsDone() {
		t.Error("handle does not observe completion")
	}
}

// externalWakeFuture suspends until an external waker call.
type externalWakeFuture struct {
	wake chan Waker
	done chan struct{}
	once bool
}

func (f *externalWakeFuture) Poll(cx *Context) bool {
	if !f.once {
		f.once = true
		f.wake <- cx.Waker()
		return false
	}
	close(f.done)
	return true
}

func TestExternalWake(t *testing.T) {
	startPool(t, 1)
	f := &externalWakeFuture{wake: make(chan Waker, 1), done: make(chan struct{})}
	runnable, _ := Spawn(f)
	runnable.Schedule()

	w := <-f.wake
	select {
	case <-f.done:
		t.Fatal("future completed before wake")
	case <-time.After(20 * time.Millisecond):
	}
	w()
	select {
	case <-f.done:
	case <-time.After(5 * time.Second):
		t.Fatal("future not polled after wake")
	}
	// Waking a completed task must be a no-op.
	w()
	w()
}

// exclusionFuture fails the test if two polls overlap.
type exclusionFuture struct {
	t       *testing.T
	running atomic.Int32
	rounds  int32
	done    chan struct{}
}

func (f *exclusionFuture) Poll(cx *Context) bool {
	if f.running.Add(1) != 1 {
		f.t.Error("future polled on two workers at once")
	}
	// Wake mid-poll: the pool must defer the re-poll, not run it
	// concurrently.
	cx.Waker()()
	time.Sleep(time.Millisecond)
	f.running.Add(-1)
	f.rounds--
	if f.rounds <= 0 {
		close(f.done)
		return true
	}
	return false
}

func TestSinglePollerAtATime(t *testing.T) {
	startPool(t, 4)
	f := &exclusionFuture{t: t, rounds: 20, done: make(chan struct{})}
	runnable, _ := Spawn(f)
	runnable.Schedule()
	select {
	case <-f.done:
	case <-time.After(10 * time.Second):
		t.Fatal("future did not finish")
	}
}

func TestManyTasksAcrossWorkers(t *testing.T) {
	startPool(t, 4)
	const n = 64
	var completed atomic.Int32
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		f := &countdownFuture{n: 2, done: make(chan struct{})}
		runnable, _ := Spawn(f)
		go func() {
			<-f.done
			if completed.Add(1) == n {
				close(done)
			}
		}()
		runnable.Schedule()
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("only %d of %d tasks completed", completed.Load(), n)
	}
}
