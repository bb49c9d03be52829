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

package sim

import (
	"bytes"
	"testing"

	"golang.org/x/sys/unix"
)

func TestSpaceFaultsOnUnmapped(t *testing.T) {
	p := New()
	s := p.newSpace()
	var b [4]byte
	if err := s.CopyIn(0xdead0000, b[:]); err != unix.EFAULT {
		t.Fatalf("CopyIn of unmapped address: %v, want EFAULT", err)
	}
	if err := s.CopyOut(0xdead0000, b[:]); err != unix.EFAULT {
		t.Fatalf("CopyOut to unmapped address: %v, want EFAULT", err)
	}
}

func TestSpaceStackRoundTrip(t *testing.T) {
	p := New()
	s := p.newSpace()
	top := s.AllocStack(1 << 20)
	payload := []byte("start-up block")
	addr := top - uint64(len(payload))
	if err := s.CopyOut(addr, payload); err != nil {
		t.Fatalf("CopyOut: %v", err)
	}
	got := make([]byte, len(payload))
	if err := s.CopyIn(addr, got); err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("read back %q, want %q", got, payload)
	}
	// Mapped but never written reads as zero.
	var zero [8]byte
	if err := s.CopyIn(top-(1<<20), zero[:]); err != nil {
		t.Fatalf("CopyIn of zero page: %v", err)
	}
	for _, b := range zero {
		if b != 0 {
			t.Fatal("fresh stack memory not zero")
		}
	}
}

func TestCloneCOWIsIndependent(t *testing.T) {
	p := New()
	s := p.newSpace()
	s.AllocStack(1 << 20)
	addr := uint64(stackTopAddr - 64)
	if err := s.CopyOut(addr, []byte{1, 2, 3}); err != nil {
		t.Fatalf("CopyOut: %v", err)
	}

	dup := s.CloneCOW().(*Space)
	if dup.satp == s.satp {
		t.Fatal("duplicate shares the original's page-table root")
	}
	if err := dup.CopyOut(addr, []byte{9}); err != nil {
		t.Fatalf("CopyOut to duplicate: %v", err)
	}
	var b [1]byte
	if err := s.CopyIn(addr, b[:]); err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	if b[0] != 1 {
		t.Fatalf("write to duplicate visible in original: %d", b[0])
	}
}

func TestBrkGrowsWithinHeap(t *testing.T) {
	p := New()
	s := p.newSpace()
	s.AllocHeapLazy()
	base := s.Brk(0)
	if base == 0 {
		t.Fatal("no heap after AllocHeapLazy")
	}
	if got := s.Brk(base + 4096); got != base+4096 {
		t.Fatalf("Brk grow = %#x, want %#x", got, base+4096)
	}
	// An address below the heap base is refused, returning the current
	// break.
	if got := s.Brk(base - 1); got != base+4096 {
		t.Fatalf("Brk shrink below base = %#x, want unchanged %#x", got, base+4096)
	}
}
