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
	"github.com/google/btree"
)

// ResetForTesting returns the kernel's global state to its boot-time
// emptiness so a test can build a fresh process tree. It must not run while
// tasks are live.
func ResetForTesting() {
	taskManager.mu.Lock()
	taskManager.tasks = make(map[ThreadID]*Task)
	taskManager.mu.Unlock()

	tidAllocator.mu.Lock()
	tidAllocator.next = 1
	tidAllocator.free = btree.New(8)
	tidAllocator.mu.Unlock()

	for i := range harts {
		harts[i].task = nil
		harts[i].env = EnvContext{}
	}

	platform = nil
}
