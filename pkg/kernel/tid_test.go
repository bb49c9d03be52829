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
)

func TestTIDAllocMonotonic(t *testing.T) {
	ResetForTesting()
	for want := ThreadID(1); want <= 5; want++ {
		h := allocTID()
		if h.TID() != want {
			t.Fatalf("allocTID() = %d, want %d", h.TID(), want)
		}
	}
}

func TestTIDReuseSmallestFreed(t *testing.T) {
	ResetForTesting()
	handles := make([]*TIDHandle, 6)
	for i := range handles {
		handles[i] = allocTID()
	}
	// Free 4, 2, 5; the allocator must hand back 2, then 4, then 5,
	// then a fresh 7.
	handles[3].Release()
	handles[1].Release()
	handles[4].Release()
	for _, want := range []ThreadID{2, 4, 5, 7} {
		h := allocTID()
		if h.TID() != want {
			t.Fatalf("allocTID() = %d, want %d", h.TID(), want)
		}
	}
}

func TestTIDNeverLiveTwice(t *testing.T) {
	ResetForTesting()
	live := make(map[ThreadID]bool)
	var handles []*TIDHandle
	for i := 0; i < 100; i++ {
		h := allocTID()
		if live[h.TID()] {
			t.Fatalf("tid %d allocated while live", h.TID())
		}
		live[h.TID()] = true
		handles = append(handles, h)
		if i%3 == 2 {
			victim := handles[0]
			handles = handles[1:]
			live[victim.TID()] = false
			victim.Release()
		}
	}
}

func TestTIDDoubleReleasePanics(t *testing.T) {
	ResetForTesting()
	h := allocTID()
	h.Release()
	defer func() {
		if recover() == nil {
			t.Fatal("double release did not panic")
		}
	}()
	h.Release()
}
