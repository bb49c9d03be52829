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
	"encoding/binary"
	"testing"

	"phoenix.dev/phoenix/pkg/memory"
)

func readWord(t *testing.T, s memory.Space, addr uint64) uint64 {
	t.Helper()
	var buf [8]byte
	if err := s.CopyIn(addr, buf[:]); err != nil {
		t.Fatalf("CopyIn(%#x): %v", addr, err)
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func readString(t *testing.T, s memory.Space, addr uint64) string {
	t.Helper()
	var out []byte
	var b [1]byte
	for {
		if err := s.CopyIn(addr, b[:]); err != nil {
			t.Fatalf("CopyIn(%#x): %v", addr, err)
		}
		if b[0] == 0 {
			return string(out)
		}
		out = append(out, b[0])
		addr++
	}
}

func TestPushUserStackLayout(t *testing.T) {
	s := newFakeSpace(100)
	argv := []string{"init", "-x"}
	envp := []string{"TERM=dumb"}
	auxv := []memory.AuxEntry{{Tag: memory.AuxPagesz, Val: 4096}}

	sp, err := pushUserStack(s, 0x7fff0000, argv, envp, auxv)
	if err != nil {
		t.Fatalf("pushUserStack: %v", err)
	}
	if sp%16 != 0 {
		t.Errorf("stack pointer %#x not 16-byte aligned", sp)
	}

	if argc := readWord(t, s, sp); argc != 2 {
		t.Fatalf("argc = %d, want 2", argc)
	}
	for i, want := range argv {
		ptr := readWord(t, s, sp+8+uint64(8*i))
		if got := readString(t, s, ptr); got != want {
			t.Errorf("argv[%d] = %q, want %q", i, got, want)
		}
	}
	if nullv := readWord(t, s, sp+8+16); nullv != 0 {
		t.Errorf("argv terminator = %#x, want 0", nullv)
	}

	envBase := sp + 8 + 16 + 8
	if got := readString(t, s, readWord(t, s, envBase)); got != envp[0] {
		t.Errorf("envp[0] = %q, want %q", got, envp[0])
	}
	if nullv := readWord(t, s, envBase+8); nullv != 0 {
		t.Errorf("envp terminator = %#x, want 0", nullv)
	}

	auxBase := envBase + 16
	if tag := readWord(t, s, auxBase); tag != memory.AuxPagesz {
		t.Errorf("auxv[0].tag = %d, want %d", tag, memory.AuxPagesz)
	}
	if val := readWord(t, s, auxBase+8); val != 4096 {
		t.Errorf("auxv[0].val = %d, want 4096", val)
	}
	if tag := readWord(t, s, auxBase+16); tag != memory.AuxNull {
		t.Errorf("auxv terminator tag = %d, want AT_NULL", tag)
	}
}
