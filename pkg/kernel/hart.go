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

	"phoenix.dev/phoenix/pkg/memory"
	"phoenix.dev/phoenix/pkg/riscv"
)

// Hart is the control block of one logical processor. At any instant exactly
// one execution context owns a hart block: the one whose thread binding
// names it.
type Hart struct {
	id int

	// task is the task currently mounted on the hart, if any.
	task *Task

	// env is the env context resident on the hart.
	env EnvContext
}

var harts [riscv.MaxHarts]Hart

// SetLocalHart binds the calling thread to the given hart and initializes
// its control block. It must be called once per worker, before any task is
// polled there.
func SetLocalHart(id int) {
	riscv.BindHart(id)
	h := &harts[id]
	h.id = id
	memory.ActivateKernel()
	log().WithField("hart", id).Debug("hart online")
}

// LocalHart returns the hart bound to the calling thread.
func LocalHart() *Hart {
	return &harts[riscv.HartID()]
}

// ID returns the hart's index.
func (h *Hart) ID() int {
	return h.id
}

// Mounted returns whether a task is mounted on the hart.
func (h *Hart) Mounted() bool {
	return h.task != nil
}

// CurrentTask returns the task mounted on the hart, panicking if there is
// none.
func (h *Hart) CurrentTask() *Task {
	if h.task == nil {
		panic(fmt.Sprintf("no task mounted on hart %d", h.id))
	}
	return h.task
}

// CurrentTask returns the task mounted on the local hart.
func CurrentTask() *Task {
	return LocalHart().CurrentTask()
}

// EnterUserTask mounts t on the hart: with interrupts disabled, the task's
// env context is swapped in (parking the hart's own in env), the task's page
// table is installed, and the task becomes current. Interrupts are re-enabled
// only if the incoming env wants them.
func (h *Hart) EnterUserTask(t *Task, env *EnvContext) {
	riscv.DisableInterrupts()
	sie := envSwap(&h.env, env)
	t.SwitchPageTable()
	h.task = t
	if sie {
		riscv.EnableInterrupts()
	}
}

// LeaveUserTask unmounts the current task, restoring the env context parked
// in env by the matching EnterUserTask. The kernel address space is
// installed before the task slot is cleared, so no user mapping outlives the
// mount.
func (h *Hart) LeaveUserTask(env *EnvContext) {
	riscv.DisableInterrupts()
	sie := envSwap(&h.env, env)
	memory.ActivateKernel()
	h.task = nil
	if sie {
		riscv.EnableInterrupts()
	}
}

// KernelTaskSwitch swaps env contexts for a kernel-only future, leaving the
// task slot and address space untouched. Called once on entry to a poll and
// once on exit.
func (h *Hart) KernelTaskSwitch(env *EnvContext) {
	riscv.DisableInterrupts()
	sie := envSwap(&h.env, env)
	if sie {
		riscv.EnableInterrupts()
	}
}
