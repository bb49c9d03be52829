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

// Package signal holds the per-task signal state: masks, pending queues,
// handler tables, and the alternate signal stack. Delivery mechanics live
// elsewhere; this package is only the state those mechanics read and write.
package signal

import (
	"github.com/mohae/deepcopy"

	"phoenix.dev/phoenix/pkg/abi/linux"
)

// Set is a signal mask: bit N-1 represents signal N.
type Set uint64

// UnblockableSet contains the signals that can never be masked.
const UnblockableSet = Set(1<<(linux.SIGKILL-1) | 1<<(linux.SIGSTOP-1))

// MakeSet returns a Set containing the given signals.
func MakeSet(sigs ...linux.Signal) Set {
	var s Set
	for _, sig := range sigs {
		s |= 1 << (sig - 1)
	}
	return s
}

// Contains returns true if sig is in s.
func (s Set) Contains(sig linux.Signal) bool {
	return s&(1<<(sig-1)) != 0
}

// Add adds sig to s.
func (s *Set) Add(sig linux.Signal) {
	*s |= 1 << (sig - 1)
}

// Remove removes the signals of other from s.
func (s *Set) Remove(other Set) {
	*s &^= other
}

// Action is the disposition of one signal, mirroring struct sigaction.
type Action struct {
	Handler  uint64
	Flags    uint64
	Restorer uint64
	Mask     Set
}

// Default dispositions for Action.Handler.
const (
	HandlerDefault uint64 = 0
	HandlerIgnore  uint64 = 1
)

// Handlers is a table of signal dispositions. Index 0 is unused.
type Handlers struct {
	Actions [linux.SignalMaximum + 1]Action
}

// NewHandlers returns a table with every signal at its default disposition.
func NewHandlers() *Handlers {
	return &Handlers{}
}

// Fork returns a deep copy of h for a new task.
func (h *Handlers) Fork() *Handlers {
	return deepcopy.Copy(h).(*Handlers)
}

// CopyForExec returns a copy of h with handled signals reset to the default
// disposition. Ignored signals keep their disposition, per execve(2).
func (h *Handlers) CopyForExec() *Handlers {
	nh := h.Fork()
	for i := range nh.Actions {
		if nh.Actions[i].Handler != HandlerIgnore {
			nh.Actions[i] = Action{}
		}
	}
	return nh
}

// Pending is the set and FIFO of signals delivered to a task but not yet
// taken.
type Pending struct {
	set   Set
	queue []linux.Signal
}

// Add queues sig if it is not already pending. Standard signals are not
// queued more than once.
func (p *Pending) Add(sig linux.Signal) {
	if p.set.Contains(sig) {
		return
	}
	p.set.Add(sig)
	p.queue = append(p.queue, sig)
}

// Contains returns true if sig is pending.
func (p *Pending) Contains(sig linux.Signal) bool {
	return p.set.Contains(sig)
}

// Any returns true if any signal outside mask is pending.
func (p *Pending) Any(mask Set) bool {
	return p.set&^mask != 0
}

// Take dequeues the oldest pending signal not in mask, or 0 if none.
func (p *Pending) Take(mask Set) linux.Signal {
	for i, sig := range p.queue {
		if mask.Contains(sig) {
			continue
		}
		p.queue = append(p.queue[:i], p.queue[i+1:]...)
		p.set &^= 1 << (sig - 1)
		return sig
	}
	return 0
}

// Stack is an alternate signal stack installed with sigaltstack(2).
type Stack struct {
	Base  uint64
	Size  uint64
	Flags uint32
}
