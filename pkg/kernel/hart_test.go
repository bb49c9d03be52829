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

	"phoenix.dev/phoenix/pkg/memory"
	"phoenix.dev/phoenix/pkg/riscv"
)

func TestMountRoundTrip(t *testing.T) {
	ResetForTesting()
	SetLocalHart(0)
	h := LocalHart()
	// The interrupt-enable bit tracks the resident env context; establish
	// the idle state the env swap will restore.
	riscv.DisableInterrupts()

	task := newTestTask(100)
	sieBefore := riscv.InterruptsEnabled()

	env := NewTaskEnv()
	h.EnterUserTask(task, &env)
	if got := h.CurrentTask(); got != task {
		t.Fatalf("CurrentTask() = %v, want %v", got, task)
	}
	if !riscv.InterruptsEnabled() {
		t.Error("interrupts disabled while a task wanting them is mounted")
	}
	if riscv.Satp() != 100 {
		t.Errorf("satp = %d, want task page table 100", riscv.Satp())
	}

	h.LeaveUserTask(&env)
	if h.Mounted() {
		t.Error("task still mounted after leave")
	}
	if riscv.Satp() != memory.KernelSatp {
		t.Errorf("satp = %d, want kernel space %d", riscv.Satp(), memory.KernelSatp)
	}
	if got := riscv.InterruptsEnabled(); got != sieBefore {
		t.Errorf("interrupt enable = %v after mount pair, want %v", got, sieBefore)
	}
}

func TestCurrentTaskPanicsUnmounted(t *testing.T) {
	ResetForTesting()
	SetLocalHart(0)
	defer func() {
		if recover() == nil {
			t.Fatal("CurrentTask() on an idle hart did not panic")
		}
	}()
	LocalHart().CurrentTask()
}

// TestEnvSwapInterruptPreservation runs two tasks with opposite interrupt
// intents on one hart and checks each mount sees its own state and each
// unmount restores the hart's.
func TestEnvSwapInterruptPreservation(t *testing.T) {
	ResetForTesting()
	SetLocalHart(0)
	h := LocalHart()
	riscv.DisableInterrupts()

	taskA := newTestTask(100)
	taskB := newTestTask(200)
	envA := EnvContext{InterruptsOn: true, FPU: riscv.FSInitial}
	envB := EnvContext{InterruptsOn: false, FPU: riscv.FSInitial}

	h.EnterUserTask(taskA, &envA)
	if !riscv.InterruptsEnabled() {
		t.Error("interrupts off while task A mounted, want on")
	}
	h.LeaveUserTask(&envA)

	h.EnterUserTask(taskB, &envB)
	if riscv.InterruptsEnabled() {
		t.Error("interrupts on while task B mounted, want off")
	}
	h.LeaveUserTask(&envB)
	if riscv.InterruptsEnabled() {
		t.Error("interrupts on after task B unmounted, want off")
	}

	h.EnterUserTask(taskA, &envA)
	if !riscv.InterruptsEnabled() {
		t.Error("interrupts off when task A remounted, want on")
	}
	h.LeaveUserTask(&envA)
}

func TestKernelTaskSwitchLeavesTaskSlot(t *testing.T) {
	ResetForTesting()
	SetLocalHart(0)
	h := LocalHart()

	task := newTestTask(100)
	taskEnv := NewTaskEnv()
	h.EnterUserTask(task, &taskEnv)

	kernEnv := NewTaskEnv()
	h.KernelTaskSwitch(&kernEnv)
	if got := h.CurrentTask(); got != task {
		t.Fatalf("kernel switch changed the task slot: got %v", got)
	}
	h.KernelTaskSwitch(&kernEnv)
	h.LeaveUserTask(&taskEnv)
}
