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

package kernel_test

import (
	"testing"
	"time"

	linux "phoenix.dev/phoenix/pkg/abi/linux"
	"phoenix.dev/phoenix/pkg/executor"
	"phoenix.dev/phoenix/pkg/kernel"
	"phoenix.dev/phoenix/pkg/loader"
	"phoenix.dev/phoenix/pkg/memory"
	"phoenix.dev/phoenix/pkg/platform/sim"
	_ "phoenix.dev/phoenix/pkg/syscalls/linux" // registers the syscall table
)

// startKernel brings up a fresh kernel on a simulated machine with the
// given number of harts.
func startKernel(t *testing.T, harts int) *sim.Platform {
	t.Helper()
	kernel.ResetForTesting()
	memory.ResetProviderForTesting()
	executor.ResetForTesting()
	plat := sim.New()
	plat.Install()
	executor.Start(harts, kernel.SetLocalHart)
	t.Cleanup(executor.Stop)
	return plat
}

func spawnInit(t *testing.T) *kernel.Task {
	t.Helper()
	initTask, err := loader.AddInitProc("init")
	if err != nil {
		t.Fatalf("AddInitProc: %v", err)
	}
	return initTask
}

func recvIn(t *testing.T, ch <-chan uint64, desc string) uint64 {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(10 * time.Second):
		t.Fatalf("timed out waiting for %s", desc)
		return 0
	}
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func TestBootInit(t *testing.T) {
	plat := startKernel(t, 1)
	pidCh := make(chan uint64, 1)
	plat.Register("init", func(u *sim.Proc) {
		pidCh <- u.Syscall(uint64(linux.SYS_GETPID))
		u.Pause()
	})
	initTask := spawnInit(t)

	if pid := recvIn(t, pidCh, "init's getpid"); pid != 1 {
		t.Fatalf("init pid = %d, want 1", pid)
	}
	if initTask.TID() != kernel.InitPID {
		t.Fatalf("init tid = %d, want %d", initTask.TID(), kernel.InitPID)
	}
	if kernel.Manager().Find(kernel.InitPID) != initTask {
		t.Fatal("init not findable in the manager")
	}
	if n := kernel.Manager().Len(); n != 1 {
		t.Fatalf("manager holds %d tasks, want 1", n)
	}
	if len(initTask.Children()) != 0 {
		t.Fatal("fresh init has children")
	}
	if initTask.Parent() != nil {
		t.Fatal("init has a parent")
	}
}

func TestForkWait(t *testing.T) {
	plat := startKernel(t, 2)
	retCh := make(chan uint64, 2)
	plat.Register("init", func(u *sim.Proc) {
		u.Fork(func(c *sim.Proc) {
			c.Exit(42)
		})
		pid, status, err := u.Wait4(-1)
		if err != nil {
			t.Errorf("wait4: %v", err)
		}
		retCh <- uint64(pid)
		retCh <- uint64(status)
		u.Pause()
	})
	initTask := spawnInit(t)

	if pid := recvIn(t, retCh, "wait4 pid"); pid != 2 {
		t.Fatalf("wait4 returned pid %d, want 2", pid)
	}
	if status := recvIn(t, retCh, "wait4 status"); status != uint64(linux.WaitStatusExit(42)) {
		t.Fatalf("wait4 status = %#x, want %#x", status, linux.WaitStatusExit(42))
	}
	if kernel.Manager().Find(2) != nil {
		t.Fatal("reaped child still in the manager")
	}
	if len(initTask.Children()) != 0 {
		t.Fatal("reaped child still among init's children")
	}
}

func TestThreadCloneAndExit(t *testing.T) {
	plat := startKernel(t, 2)
	tidCh := make(chan uint64, 2)
	plat.Register("init", func(u *sim.Proc) {
		tid := u.CloneThread(func(c *sim.Proc) {
			tidCh <- c.Syscall(uint64(linux.SYS_GETTID))
			c.Exit(0)
		})
		tidCh <- uint64(tid)
		u.Pause()
	})
	initTask := spawnInit(t)

	cloneRet := recvIn(t, tidCh, "clone return value")
	childTid := recvIn(t, tidCh, "child gettid")
	if cloneRet != childTid {
		t.Fatalf("clone returned %d but child sees tid %d", cloneRet, childTid)
	}
	if cloneRet != 2 {
		t.Fatalf("thread tid = %d, want 2", cloneRet)
	}

	// While both run they share the address-space handle and the group.
	child := kernel.Manager().Find(kernel.ThreadID(childTid))
	if child != nil {
		if child.IsLeader() {
			t.Fatal("CLONE_THREAD child is a leader")
		}
		var a, b memory.Space
		initTask.WithSpace(func(s memory.Space) { a = s })
		child.WithSpace(func(s memory.Space) { b = s })
		if a != b {
			t.Fatal("thread does not share the leader's address space")
		}
	}

	// A terminating non-leader removes itself immediately.
	waitFor(t, "thread to leave group and manager", func() bool {
		return kernel.Manager().Find(kernel.ThreadID(childTid)) == nil &&
			initTask.ThreadGroup().Count() == 1
	})
	if kernel.Manager().Find(kernel.InitPID) != initTask {
		t.Fatal("leader gone from manager after thread exit")
	}
}

func TestExecveKillsSiblings(t *testing.T) {
	plat := startKernel(t, 2)
	ready := make(chan uint64, 2)
	execDone := make(chan uint64, 1)

	plat.Register("after-exec", func(u *sim.Proc) {
		execDone <- u.Syscall(uint64(linux.SYS_GETPID))
		u.Pause()
	})
	plat.Register("init", func(u *sim.Proc) {
		u.Fork(func(leader *sim.Proc) {
			leader.CloneThread(func(c *sim.Proc) {
				ready <- c.Syscall(uint64(linux.SYS_GETTID))
				c.Pause()
			})
			leader.CloneThread(func(c *sim.Proc) {
				ready <- c.Syscall(uint64(linux.SYS_GETTID))
				c.Pause()
			})
			<-ready
			<-ready
			if err := leader.Exec("after-exec", []string{"after-exec"}, nil); err != nil {
				leader.Exit(127)
			}
		})
		u.Wait4(-1)
		u.Pause()
	})
	spawnInit(t)

	if pid := recvIn(t, execDone, "post-exec program"); pid != 2 {
		t.Fatalf("post-exec pid = %d, want 2", pid)
	}
	leader := kernel.Manager().Find(2)
	if leader == nil {
		t.Fatal("exec survivor missing from manager")
	}
	waitFor(t, "siblings to drain from the group", func() bool {
		return leader.ThreadGroup().Count() == 1 &&
			kernel.Manager().Find(3) == nil &&
			kernel.Manager().Find(4) == nil
	})
	if !leader.IsLeader() || leader.IsZombie() {
		t.Fatal("exec survivor is not a running leader")
	}
}

func TestUnknownSyscallReturnsZero(t *testing.T) {
	plat := startKernel(t, 1)
	retCh := make(chan uint64, 2)
	plat.Register("init", func(u *sim.Proc) {
		retCh <- u.Syscall(0xDEAD)
		// The task must still be fully functional afterwards.
		retCh <- u.Syscall(uint64(linux.SYS_GETPID))
		u.Pause()
	})
	initTask := spawnInit(t)

	if ret := recvIn(t, retCh, "unknown syscall return"); ret != 0 {
		t.Fatalf("unknown syscall returned %#x, want 0", ret)
	}
	if pid := recvIn(t, retCh, "follow-up getpid"); pid != 1 {
		t.Fatalf("getpid after unknown syscall = %d, want 1", pid)
	}
	if initTask.IsZombie() {
		t.Fatal("unknown syscall killed the task")
	}
}

func TestNanosleepBlocks(t *testing.T) {
	plat := startKernel(t, 1)
	doneCh := make(chan uint64, 1)
	const d = 50 * time.Millisecond
	start := time.Now()
	plat.Register("init", func(u *sim.Proc) {
		u.Sleep(d)
		doneCh <- 1
		u.Pause()
	})
	spawnInit(t)

	recvIn(t, doneCh, "sleep completion")
	if elapsed := time.Since(start); elapsed < d {
		t.Fatalf("nanosleep returned after %v, want at least %v", elapsed, d)
	}
}

func TestExecveMissingImage(t *testing.T) {
	plat := startKernel(t, 1)
	errCh := make(chan uint64, 1)
	plat.Register("init", func(u *sim.Proc) {
		if err := u.Exec("no-such-image", nil, nil); err != nil {
			errCh <- 1
		}
		u.Pause()
	})
	spawnInit(t)
	recvIn(t, errCh, "execve failure")
}
