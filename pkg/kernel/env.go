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
	"phoenix.dev/phoenix/pkg/riscv"
)

// EnvContext is the supervisor state that must be swapped onto a hart when a
// task runs there: whether supervisor access to user pages is permitted,
// whether interrupts should be enabled while the task is mounted, and the
// FPU state field.
type EnvContext struct {
	// SUMEnabled permits supervisor access to user pages.
	SUMEnabled bool

	// InterruptsOn is the intended interrupt-enable state while this
	// context is resident on a hart.
	InterruptsOn bool

	// FPU is the floating-point unit state.
	FPU riscv.FS
}

// NewTaskEnv returns the env context a fresh task future carries: interrupts
// deliverable, FPU initial, no user-page access until a trap path needs it.
func NewTaskEnv() EnvContext {
	return EnvContext{InterruptsOn: true, FPU: riscv.FSInitial}
}

// envSwap exchanges the hart-resident context with the incoming one, applies
// the incoming SUM intent to the hart, and reports whether the incoming
// context wants interrupts enabled. It must run with interrupts disabled.
func envSwap(resident, incoming *EnvContext) bool {
	*resident, *incoming = *incoming, *resident
	riscv.SetSUM(resident.SUMEnabled)
	return resident.InterruptsOn
}
