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
	"testing"

	linux "phoenix.dev/phoenix/pkg/abi/linux"
	"phoenix.dev/phoenix/pkg/riscv"
)

func TestManagerFindLive(t *testing.T) {
	ResetForTesting()
	task := newTestTask(100)
	if got := Manager().Find(task.TID()); got != task {
		t.Fatalf("Find(%d) = %v, want %v", task.TID(), got, task)
	}
	Manager().Remove(task.TID())
	if got := Manager().Find(task.TID()); got != nil {
		t.Fatalf("Find(%d) after remove = %v, want nil", task.TID(), got)
	}
}

func TestManagerDuplicateTIDPanics(t *testing.T) {
	ResetForTesting()
	task := newTestTask(100)
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate Add did not panic")
		}
	}()
	Manager().Add(task)
}

func TestLeaderIdentity(t *testing.T) {
	ResetForTesting()
	leader := newTestTask(100)
	if !leader.IsLeader() {
		t.Fatal("spawned task is not a leader")
	}
	if leader.PID() != leader.TID() {
		t.Fatalf("leader pid %d != tid %d", leader.PID(), leader.TID())
	}

	thread := leader.Clone(linux.CLONE_THREAD|linux.CLONE_VM|linux.CLONE_FILES|linux.CLONE_SIGHAND, 0, 0)
	if thread.IsLeader() {
		t.Fatal("CLONE_THREAD child is a leader")
	}
	if thread.PID() != leader.TID() {
		t.Fatalf("thread pid %d, want leader tid %d", thread.PID(), leader.TID())
	}
	tids := make([]ThreadID, 0, 2)
	for _, m := range leader.ThreadGroup().Members() {
		tids = append(tids, m.TID())
	}
	if len(tids) != 2 || tids[0] != leader.TID() || tids[1] != thread.TID() {
		t.Fatalf("group members %v, want [%d %d]", tids, leader.TID(), thread.TID())
	}
}

func TestCloneVMSharesSpace(t *testing.T) {
	ResetForTesting()
	SetLocalHart(0)
	leader := newTestTask(100)

	thread := leader.Clone(linux.CLONE_THREAD|linux.CLONE_VM, 0, 0)
	if leader.space != thread.space {
		t.Fatal("CLONE_VM child does not share the address-space slot")
	}

	fences := riscv.SFenceCount(0)
	forked := leader.Clone(0, 0, 0)
	if leader.space == forked.space {
		t.Fatal("fork child shares the address-space slot")
	}
	if riscv.SFenceCount(0) == fences {
		t.Fatal("address-space duplication did not fence the TLB")
	}
	if !forked.IsLeader() {
		t.Fatal("fork child is not a leader")
	}
	if forked.Parent() != leader {
		t.Fatal("fork child's parent is not the caller")
	}
	found := false
	for _, c := range leader.Children() {
		if c == forked {
			found = true
		}
	}
	if !found {
		t.Fatal("fork child missing from caller's children")
	}
}

func TestExitReparentsToInit(t *testing.T) {
	ResetForTesting()
	initProc := newTestTask(100) // tid 1
	parent := initProc.Clone(0, 0, 0)
	child := parent.Clone(0, 0, 0)

	parent.SetZombie()
	parent.handleExit()

	if child.Parent() != initProc {
		t.Fatalf("orphan's parent = %v, want init", child.Parent())
	}
	if !child.IsZombie() {
		t.Fatal("orphan not marked zombie on reparent")
	}
	adopted := false
	for _, c := range initProc.Children() {
		if c == child {
			adopted = true
		}
	}
	if !adopted {
		t.Fatal("orphan missing from init's children")
	}
}

func TestNonLeaderExitLeavesGroupAndManager(t *testing.T) {
	ResetForTesting()
	leader := newTestTask(100)
	thread := leader.Clone(linux.CLONE_THREAD|linux.CLONE_VM, 0, 0)
	tid := thread.TID()

	thread.SetZombie()
	thread.handleExit()

	if Manager().Find(tid) != nil {
		t.Fatal("exited thread still in manager")
	}
	if n := leader.ThreadGroup().Count(); n != 1 {
		t.Fatalf("group count = %d after thread exit, want 1", n)
	}
	if Manager().Find(leader.TID()) != leader {
		t.Fatal("leader missing from manager after thread exit")
	}
}

func TestInitExitFatal(t *testing.T) {
	ResetForTesting()
	initProc := newTestTask(100) // tid 1 == InitPID
	initProc.SetZombie()
	defer func() {
		if recover() == nil {
			t.Fatal("init exit did not panic")
		}
	}()
	initProc.handleExit()
}
