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
	"fmt"

	linux "phoenix.dev/phoenix/pkg/abi/linux"
)

// handleExit finishes a terminated task after its loop breaks: the task is
// made Zombie if a racing kill has not already done so, and the exit path
// runs.
func (t *Task) handleExit() {
	if !t.IsZombie() {
		t.SetZombie()
	}
	t.doExit()
}

// doExit tears down t's position in the process tree.
//
// Children are marked Zombie and handed to init. A leader stays in its
// group and in the manager until the parent reaps it with a wait; it owes
// the parent a SIGCHLD and a wait-queue notification now. A non-leader
// leaves the group and the manager immediately and releases its thread ID.
func (t *Task) doExit() {
	taskLog(t).Info("task exiting")
	if t.TID() == InitPID {
		panic(fmt.Sprintf("init process exiting, sepc %#x", t.trapContext.Sepc))
	}

	children := t.Children()
	if len(children) > 0 {
		initProc := Manager().InitProc()
		for _, c := range children {
			c.SetZombie()
			c.setParent(initProc)
			initProc.AddChild(c)
		}
		t.children.mu.Lock()
		t.children.m.Clear(false)
		t.children.mu.Unlock()
	}

	if t.isLeader {
		if p := t.Parent(); p != nil {
			p.SendSignal(linux.SIGCHLD)
			p.childEvents.Notify()
		}
		t.fdTable.Release()
	} else {
		t.tg.Remove(t)
		Manager().Remove(t.TID())
		t.tid.Release()
	}
}

// ReapChild removes a zombie child leader from t's children and from the
// manager, releasing its thread ID. The wait-family syscalls are the only
// callers; after this the child is unreachable and dies with its last
// in-flight waker.
func (t *Task) ReapChild(c *Task) {
	t.RemoveChild(c.TID())
	Manager().Remove(c.TID())
	c.tid.Release()
	taskLog(c).Debug("task reaped")
}
