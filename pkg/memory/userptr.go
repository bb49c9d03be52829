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

package memory

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// Limits on user-supplied string vectors, matching Linux's MAX_ARG_STRINGS
// spirit at a scale appropriate here.
const (
	MaxCStringLen = 4096
	MaxVectorLen  = 256
)

// UserReadPtr is a user virtual address the kernel reads through. Reads may
// fault pages in and fail with EFAULT.
type UserReadPtr uint64

// UserWritePtr is a user virtual address the kernel writes through.
type UserWritePtr uint64

// IsNull returns true for the null user pointer.
func (p UserReadPtr) IsNull() bool { return p == 0 }

// IsNull returns true for the null user pointer.
func (p UserWritePtr) IsNull() bool { return p == 0 }

// ReadBytes reads len(dst) bytes from p.
func (p UserReadPtr) ReadBytes(s Space, dst []byte) error {
	return s.CopyIn(uint64(p), dst)
}

// ReadUint64 reads one machine word from p.
func (p UserReadPtr) ReadUint64(s Space) (uint64, error) {
	var buf [8]byte
	if err := s.CopyIn(uint64(p), buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// ReadCString reads a NUL-terminated string of at most MaxCStringLen bytes
// from p.
func (p UserReadPtr) ReadCString(s Space) (string, error) {
	var out []byte
	var buf [1]byte
	for addr := uint64(p); ; addr++ {
		if len(out) > MaxCStringLen {
			return "", unix.ENAMETOOLONG
		}
		if err := s.CopyIn(addr, buf[:]); err != nil {
			return "", err
		}
		if buf[0] == 0 {
			return string(out), nil
		}
		out = append(out, buf[0])
	}
}

// ReadCStringVector reads a null-terminated vector of string pointers (the
// argv/envp layout) from p. A null p yields an empty vector.
func (p UserReadPtr) ReadCStringVector(s Space) ([]string, error) {
	if p.IsNull() {
		return nil, nil
	}
	var out []string
	for addr := uint64(p); ; addr += 8 {
		if len(out) > MaxVectorLen {
			return nil, unix.E2BIG
		}
		ptr, err := UserReadPtr(addr).ReadUint64(s)
		if err != nil {
			return nil, err
		}
		if ptr == 0 {
			return out, nil
		}
		str, err := UserReadPtr(ptr).ReadCString(s)
		if err != nil {
			return nil, err
		}
		out = append(out, str)
	}
}

// WriteBytes writes src to p.
func (p UserWritePtr) WriteBytes(s Space, src []byte) error {
	return s.CopyOut(uint64(p), src)
}

// WriteUint64 writes one machine word to p.
func (p UserWritePtr) WriteUint64(s Space, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return s.CopyOut(uint64(p), buf[:])
}

// WriteUint32 writes one 32-bit word to p.
func (p UserWritePtr) WriteUint32(s Space, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return s.CopyOut(uint64(p), buf[:])
}
