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

package riscv

import (
	"testing"
)

func TestSstatusBits(t *testing.T) {
	var s Sstatus
	if s.SIE() {
		t.Error("fresh sstatus has SIE set")
	}
	s.SetSIE(true)
	if !s.SIE() {
		t.Error("SIE not set")
	}
	s.SetSPIE(true)
	s.SetSPP(PrivSupervisor)
	s.SetSUM(true)
	s.SetFS(FSDirty)
	if !s.SPIE() || s.SPP() != PrivSupervisor || !s.SUM() || s.FS() != FSDirty {
		t.Errorf("sstatus bits lost: %#x", uint64(s))
	}
	s.SetSIE(false)
	if s.SIE() {
		t.Error("SIE not cleared")
	}
	if !s.SPIE() || !s.SUM() {
		t.Error("clearing SIE disturbed other bits")
	}
	s.SetSPP(PrivUser)
	if s.SPP() != PrivUser {
		t.Error("SPP not cleared")
	}
	s.SetFS(FSInitial)
	if s.FS() != FSInitial {
		t.Errorf("FS = %d, want %d", s.FS(), FSInitial)
	}
}

func TestCauseClassification(t *testing.T) {
	if CauseECallUser.IsInterrupt() {
		t.Error("ecall classified as interrupt")
	}
	if !CauseSupervisorTimer.IsInterrupt() {
		t.Error("timer not classified as interrupt")
	}
	for _, c := range []Cause{CauseInstructionPageFault, CauseLoadPageFault, CauseStorePageFault} {
		if !c.IsPageFault() {
			t.Errorf("cause %d not classified as page fault", c)
		}
	}
	if CauseECallUser.IsPageFault() {
		t.Error("ecall classified as page fault")
	}
}

func TestHartBindingAndInterrupts(t *testing.T) {
	BindHart(0)
	if !Bound() {
		t.Fatal("thread not bound after BindHart")
	}
	if HartID() != 0 {
		t.Fatalf("HartID() = %d, want 0", HartID())
	}
	// Binding the same hart again is a no-op.
	BindHart(0)

	EnableInterrupts()
	if !InterruptsEnabled() {
		t.Fatal("interrupts not enabled")
	}
	if old := DisableInterrupts(); !old {
		t.Fatal("DisableInterrupts did not report the previous state")
	}
	if InterruptsEnabled() {
		t.Fatal("interrupts still enabled")
	}
	if old := DisableInterrupts(); old {
		t.Fatal("second disable reported interrupts on")
	}
}

func TestSFenceCounter(t *testing.T) {
	BindHart(0)
	before := SFenceCount(0)
	SFenceVMAAll()
	if got := SFenceCount(0); got != before+1 {
		t.Fatalf("SFenceCount = %d, want %d", got, before+1)
	}
}
