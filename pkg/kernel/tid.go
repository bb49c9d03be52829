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

	"github.com/google/btree"

	"phoenix.dev/phoenix/pkg/sync"
)

// ThreadID is a thread identifier. A process's ID is the ThreadID of its
// thread-group leader.
type ThreadID int32

// InitPID is the reserved process ID of the init process, which adopts
// orphaned children and must outlive every other process.
const InitPID ThreadID = 1

// TIDHandle is the ownership token of one allocated ThreadID. Exactly one
// live task holds each handle; Release returns the ID to the allocator for
// reuse.
type TIDHandle struct {
	tid      ThreadID
	released bool
}

// TID returns the owned thread ID.
func (h *TIDHandle) TID() ThreadID {
	return h.tid
}

// Release returns the thread ID to the allocator. Releasing twice is a
// kernel bug.
func (h *TIDHandle) Release() {
	tidAllocator.mu.Lock()
	defer tidAllocator.mu.Unlock()
	if h.released {
		panic(fmt.Sprintf("tid %d released twice", h.tid))
	}
	h.released = true
	tidAllocator.free.ReplaceOrInsert(btree.Int(h.tid))
}

// tidAllocator hands out thread IDs, preferring the smallest previously
// released ID and falling back to a fresh monotonic one. The set of live
// handles is always the complement of the free list within [1, next).
var tidAllocator = struct {
	mu   sync.NoIRQMutex
	next ThreadID
	free *btree.BTree
}{
	next: 1,
	free: btree.New(8),
}

// allocTID allocates a thread ID unique among live tasks.
func allocTID() *TIDHandle {
	tidAllocator.mu.Lock()
	defer tidAllocator.mu.Unlock()
	if tidAllocator.free.Len() > 0 {
		tid := tidAllocator.free.DeleteMin().(btree.Int)
		return &TIDHandle{tid: ThreadID(tid)}
	}
	tid := tidAllocator.next
	tidAllocator.next++
	return &TIDHandle{tid: tid}
}
