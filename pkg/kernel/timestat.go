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
	"time"
)

// TimeStat accounts one task's time split between user and kernel mode.
// It belongs exclusively to the future driving the task, so no locking.
type TimeStat struct {
	user   time.Duration
	system time.Duration

	// stamp is the start of the current accounting interval.
	stamp time.Time
}

// EnteringUser closes a kernel interval and opens a user one. Called just
// before trap return.
func (ts *TimeStat) EnteringUser() {
	now := time.Now()
	if !ts.stamp.IsZero() {
		ts.system += now.Sub(ts.stamp)
	}
	ts.stamp = now
}

// LeavingUser closes a user interval and opens a kernel one. Called at trap
// entry.
func (ts *TimeStat) LeavingUser() {
	now := time.Now()
	if !ts.stamp.IsZero() {
		ts.user += now.Sub(ts.stamp)
	}
	ts.stamp = now
}

// UserTime returns the accumulated user-mode time.
func (ts *TimeStat) UserTime() time.Duration {
	return ts.user
}

// SystemTime returns the accumulated kernel-mode time.
func (ts *TimeStat) SystemTime() time.Duration {
	return ts.system
}
