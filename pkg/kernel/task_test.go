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
	"phoenix.dev/phoenix/pkg/signal"
)

func TestSigMaskReplaceStripsUnblockable(t *testing.T) {
	ResetForTesting()
	task := newTestTask(100)

	mask := signal.MakeSet(linux.SIGKILL, linux.SIGSTOP, linux.SIGUSR1)
	old := task.SigMaskReplace(mask)
	if old != 0 {
		t.Fatalf("initial mask = %#x, want empty", old)
	}
	got := task.SigMask()
	if got.Contains(linux.SIGKILL) || got.Contains(linux.SIGSTOP) {
		t.Fatalf("mask %#x retains SIGKILL or SIGSTOP", got)
	}
	if !got.Contains(linux.SIGUSR1) {
		t.Fatalf("mask %#x lost SIGUSR1", got)
	}

	// Masking the unblockable pair is equivalent to not masking it.
	same := task.SigMaskReplace(signal.MakeSet(linux.SIGUSR1))
	if same != got {
		t.Fatalf("masks diverge: %#x vs %#x", same, got)
	}
}

func TestStateMonotonic(t *testing.T) {
	ResetForTesting()
	task := newTestTask(100)
	if task.State() != TaskRunning {
		t.Fatal("fresh task not running")
	}
	task.SetZombie()
	if !task.IsZombie() {
		t.Fatal("task not zombie after SetZombie")
	}
	// There is no way back.
	task.SetZombie()
	if task.State() != TaskZombie {
		t.Fatal("zombie state regressed")
	}
}

func TestSetZombieWakes(t *testing.T) {
	ResetForTesting()
	task := newTestTask(100)
	woken := false
	task.SetWaker(func() { woken = true })
	task.SetZombie()
	if !woken {
		t.Fatal("SetZombie did not wake the task")
	}
}

func TestSendSignalQueuesAndWakes(t *testing.T) {
	ResetForTesting()
	task := newTestTask(100)
	wakes := 0
	task.SetWaker(func() { wakes++ })
	task.SendSignal(linux.SIGUSR1)
	if !task.PendingOutside(0) {
		t.Fatal("no signal pending after SendSignal")
	}
	if task.PendingOutside(signal.MakeSet(linux.SIGUSR1)) {
		t.Fatal("masked signal reported deliverable")
	}
	if wakes == 0 {
		t.Fatal("SendSignal did not wake the task")
	}
	if sig := task.TakePending(0); sig != linux.SIGUSR1 {
		t.Fatalf("TakePending = %d, want %d", sig, linux.SIGUSR1)
	}
}
