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
	"sync/atomic"

	"github.com/google/btree"

	"phoenix.dev/phoenix/pkg/sync"
)

// taskEntry orders tasks by thread ID inside btree-backed maps.
type taskEntry struct {
	tid ThreadID
	t   *Task
}

// Less implements btree.Item.Less.
func (e taskEntry) Less(other btree.Item) bool {
	return e.tid < other.(taskEntry).tid
}

// ThreadGroup is the set of tasks sharing one process identity. The leader's
// thread ID names the group.
type ThreadGroup struct {
	mu sync.NoIRQMutex

	// members maps thread IDs to the group's live tasks. The leader is
	// always present while the group exists.
	members *btree.BTree

	leader *Task

	// pgid is the process group the thread group belongs to.
	pgid atomic.Int32
}

func newThreadGroup() *ThreadGroup {
	return &ThreadGroup{members: btree.New(8)}
}

// PushLeader installs t as the group's leader and first member. The group
// must be empty.
func (tg *ThreadGroup) PushLeader(t *Task) {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	if tg.leader != nil || tg.members.Len() != 0 {
		panic("thread group already has a leader")
	}
	tg.leader = t
	tg.members.ReplaceOrInsert(taskEntry{tid: t.TID(), t: t})
	tg.pgid.Store(int32(t.TID()))
}

// Push adds a non-leader member to the group.
func (tg *ThreadGroup) Push(t *Task) {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	if tg.leader == nil {
		panic("thread group has no leader")
	}
	tg.members.ReplaceOrInsert(taskEntry{tid: t.TID(), t: t})
}

// Remove takes t out of the group.
func (tg *ThreadGroup) Remove(t *Task) {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	tg.members.Delete(taskEntry{tid: t.TID()})
}

// TGID returns the group's identity: its leader's thread ID.
func (tg *ThreadGroup) TGID() ThreadID {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	if tg.leader == nil {
		panic("thread group has no leader")
	}
	return tg.leader.TID()
}

// Leader returns the group's leader.
func (tg *ThreadGroup) Leader() *Task {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	return tg.leader
}

// Members returns a snapshot of the group's tasks in thread-ID order.
func (tg *ThreadGroup) Members() []*Task {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	out := make([]*Task, 0, tg.members.Len())
	tg.members.Ascend(func(i btree.Item) bool {
		out = append(out, i.(taskEntry).t)
		return true
	})
	return out
}

// Count returns the number of tasks in the group.
func (tg *ThreadGroup) Count() int {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	return tg.members.Len()
}

// PGID returns the group's process-group ID.
func (tg *ThreadGroup) PGID() ThreadID {
	return ThreadID(tg.pgid.Load())
}

// SetPGID moves the group to the given process group.
func (tg *ThreadGroup) SetPGID(pgid ThreadID) {
	tg.pgid.Store(int32(pgid))
}

// TaskManager is the process-wide registry of live tasks, keyed by thread
// ID. A task appears here exactly while it is alive: entries are removed on
// non-leader exit and on leader reap, so lookups never see the dead.
type TaskManager struct {
	mu    sync.NoIRQMutex
	tasks map[ThreadID]*Task
}

var taskManager = &TaskManager{tasks: make(map[ThreadID]*Task)}

// Manager returns the global task registry.
func Manager() *TaskManager {
	return taskManager
}

// Add registers t.
func (m *TaskManager) Add(t *Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.TID()]; ok {
		panic(fmt.Sprintf("duplicate tid %d in task manager", t.TID()))
	}
	m.tasks[t.TID()] = t
}

// Remove unregisters the given thread ID.
func (m *TaskManager) Remove(tid ThreadID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, tid)
}

// Find returns the live task with the given thread ID, or nil.
func (m *TaskManager) Find(tid ThreadID) *Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[tid]
}

// InitProc returns the init process. The init process must remain live while
// any process exists; its absence is fatal.
func (m *TaskManager) InitProc() *Task {
	t := m.Find(InitPID)
	if t == nil {
		panic("init process is gone")
	}
	return t
}

// Len returns the number of live tasks.
func (m *TaskManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
