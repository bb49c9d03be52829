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

// Package linux provides the Linux-compatible syscall bodies over the
// kernel's task model.
package linux

import (
	"phoenix.dev/phoenix/pkg/kernel"
	"phoenix.dev/phoenix/pkg/memory"
)

// taskSpace snapshots t's current address space for user memory access.
func taskSpace(t *kernel.Task) memory.Space {
	var s memory.Space
	t.WithSpace(func(sp memory.Space) {
		s = sp
	})
	return s
}
