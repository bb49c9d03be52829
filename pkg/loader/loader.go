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

// Package loader is the registry of program images bundled with the boot
// image, keyed by name. execve resolves paths against it.
package loader

import (
	"sync"

	"golang.org/x/sys/unix"

	"phoenix.dev/phoenix/pkg/kernel"
)

var registry = struct {
	sync.RWMutex
	images map[string][]byte
}{
	images: make(map[string][]byte),
}

// Register bundles an image under the given name.
func Register(name string, image []byte) {
	registry.Lock()
	defer registry.Unlock()
	registry.images[name] = image
}

// AppData returns the image registered under name.
func AppData(name string) ([]byte, bool) {
	registry.RLock()
	defer registry.RUnlock()
	image, ok := registry.images[name]
	return image, ok
}

// AddInitProc spawns the named image as the init process.
func AddInitProc(name string) (*kernel.Task, error) {
	image, ok := AppData(name)
	if !ok {
		return nil, unix.ENOENT
	}
	return kernel.SpawnFromELF(image)
}
