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

// Package vfs defines the file-descriptor-table contract the kernel core
// consumes. The filesystem layer itself lives behind it.
package vfs

// FDTable is an opaque table of open file descriptors shared or duplicated
// across tasks.
type FDTable interface {
	// Fork returns an independent copy of the table for a child that did
	// not request descriptor sharing.
	Fork() FDTable

	// CloseOnExec closes every descriptor carrying the close-on-exec
	// flag. Called during execve.
	CloseOnExec()

	// Release drops the table's descriptors when its last task exits.
	Release()
}

// NewTable constructs a fresh descriptor table for a new process. The
// filesystem layer installs it at boot.
var NewTable func() FDTable
