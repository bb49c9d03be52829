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
	"phoenix.dev/phoenix/pkg/arch"
)

// Platform performs the privilege transition the kernel cannot express
// itself: Resume restores tc onto the given hart, returns to user mode, and
// comes back at the next trap with tc's registers saved and scause, stval,
// and sepc describing the trap.
type Platform interface {
	Resume(hart int, tc *arch.TrapContext)
}

var platform Platform

// SetPlatform installs the machine platform. Must be called once at boot,
// before any task runs.
func SetPlatform(p Platform) {
	if platform != nil {
		panic("platform already installed")
	}
	platform = p
}

// trapReturn resumes user execution of the current task and returns at its
// next trap. It never suspends.
func trapReturn(t *Task) {
	h := LocalHart()
	t.TimeStat().EnteringUser()
	platform.Resume(h.ID(), t.TrapContext())
	t.TimeStat().LeavingUser()
}
