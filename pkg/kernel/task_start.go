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
	"phoenix.dev/phoenix/pkg/arch"
	"phoenix.dev/phoenix/pkg/memory"
	"phoenix.dev/phoenix/pkg/signal"
	"phoenix.dev/phoenix/pkg/vfs"
)

// TaskConfig defines the configuration of a new Task.
type TaskConfig struct {
	// TIDHandle is the new task's identity. Ownership transfers to the
	// task.
	TIDHandle *TIDHandle

	// IsLeader is whether the task leads ThreadGroup.
	IsLeader bool

	// TrapContext is the initial user execution state.
	TrapContext arch.TrapContext

	// Space is the address-space slot, possibly shared with siblings.
	Space *sharedSpace

	// Parent is the parent slot, shared among the tasks of one group.
	Parent *sharedParent

	// Children is the children slot, shared among the tasks of one group.
	Children *sharedChildren

	// ThreadGroup is the group the task joins.
	ThreadGroup *ThreadGroup

	// SigHandlers is the signal disposition table.
	SigHandlers *signal.Handlers

	// FDTable is the descriptor table.
	FDTable vfs.FDTable
}

// newTask assembles a task from cfg. The caller is responsible for
// inserting it into its thread group, registering it with the task manager
// and scheduling it.
func newTask(cfg TaskConfig) *Task {
	t := &Task{
		tid:         cfg.TIDHandle,
		isLeader:    cfg.IsLeader,
		trapContext: cfg.TrapContext,
		sigHandlers: cfg.SigHandlers,
		space:       cfg.Space,
		parent:      cfg.Parent,
		children:    cfg.Children,
		tg:          cfg.ThreadGroup,
		fdTable:     cfg.FDTable,
	}
	return t
}

// SpawnFromELF builds a process from an ELF image and hands it to the
// executor: a fresh address space, a trap context at the image's entry
// point, and a new single-member thread group with no parent. The first
// process spawned this way is init.
func SpawnFromELF(image []byte) (*Task, error) {
	s, stackTop, entry, _, err := memory.FromELF(image)
	if err != nil {
		return nil, err
	}
	t := newTask(TaskConfig{
		TIDHandle:   allocTID(),
		IsLeader:    true,
		TrapContext: *arch.NewTrapContext(entry, stackTop),
		Space:       newSharedSpace(s),
		Parent:      newSharedParent(nil),
		Children:    newSharedChildren(),
		ThreadGroup: newThreadGroup(),
		SigHandlers: signal.NewHandlers(),
		FDTable:     vfs.NewTable(),
	})
	t.tg.PushLeader(t)
	Manager().Add(t)
	taskLog(t).Debug("new process")
	SpawnUserTask(t)
	return t, nil
}
