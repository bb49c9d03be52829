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
	"phoenix.dev/phoenix/pkg/memory"
	"phoenix.dev/phoenix/pkg/riscv"
)

// Clone creates a new task from t according to flags.
//
// With CLONE_THREAD the new task joins t's thread group, sharing its parent
// and children; otherwise it becomes the leader of a new group and a child
// of t. With CLONE_VM the address-space slot is shared; otherwise the space
// is duplicated copy-on-write and a TLB-wide fence is issued.
//
// The new task starts Running with a copy of t's trap context. The caller
// sets the child's return register and schedules it; Clone itself does not.
func (t *Task) Clone(flags linux.CloneFlags, userStack, tls uint64) *Task {
	var (
		isLeader bool
		parent   *sharedParent
		children *sharedChildren
		tg       *ThreadGroup
	)
	if flags.Contains(linux.CLONE_THREAD) {
		isLeader = false
		parent = t.parent
		children = t.children
		tg = t.tg
	} else {
		isLeader = true
		parent = newSharedParent(t)
		children = newSharedChildren()
		tg = newThreadGroup()
	}

	var space *sharedSpace
	if flags.Contains(linux.CLONE_VM) {
		space = t.space
	} else {
		var dup memory.Space
		t.WithSpace(func(s memory.Space) {
			dup = s.CloneCOW()
		})
		space = newSharedSpace(dup)
		// The duplicate shares frames with the original until either
		// side writes; stale translations must not outlive the split.
		riscv.SFenceVMAAll()
	}

	handlers := t.sigHandlers
	if !flags.Contains(linux.CLONE_SIGHAND) {
		handlers = t.sigHandlers.Fork()
	}

	fdTable := t.fdTable
	if !flags.Contains(linux.CLONE_FILES) {
		fdTable = t.fdTable.Fork()
	}

	tc := t.trapContext
	if userStack != 0 {
		tc.SetStack(userStack)
	}
	if flags.Contains(linux.CLONE_SETTLS) {
		tc.SetTLS(tls)
	}

	nt := newTask(TaskConfig{
		TIDHandle:   allocTID(),
		IsLeader:    isLeader,
		TrapContext: tc,
		Space:       space,
		Parent:      parent,
		Children:    children,
		ThreadGroup: tg,
		SigHandlers: handlers,
		FDTable:     fdTable,
	})
	nt.sigMask = t.sigMask

	if flags.Contains(linux.CLONE_THREAD) {
		tg.Push(nt)
	} else {
		tg.PushLeader(nt)
		t.AddChild(nt)
	}
	Manager().Add(nt)
	taskLog(nt).WithField("parent", t.TID()).Debug("task cloned")
	return nt
}
