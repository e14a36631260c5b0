// Copyright 2025 Edgeo SCADA
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

// Package keylist provides an ordered associative container keyed by a
// 32-bit instance number. Keys iterate in ascending order and lookups
// are O(log n). The list provides no locking: callers serialize access.
package keylist

import "sort"

// List holds values of type T sorted by ascending key. The zero value
// is not usable; call New.
type List[T any] struct {
	keys []uint32
	data []T
}

// New creates an empty list
func New[T any]() *List[T] {
	return &List[T]{}
}

// Count returns the number of entries
func (l *List[T]) Count() int {
	return len(l.keys)
}

// search returns the insertion index for key and whether it is present
func (l *List[T]) search(key uint32) (int, bool) {
	i := sort.Search(len(l.keys), func(i int) bool { return l.keys[i] >= key })
	return i, i < len(l.keys) && l.keys[i] == key
}

// Add inserts value under key, keeping the list sorted. It reports
// false if the key is already present; the existing entry is kept.
func (l *List[T]) Add(key uint32, value T) bool {
	i, found := l.search(key)
	if found {
		return false
	}
	var zero T
	l.keys = append(l.keys, 0)
	copy(l.keys[i+1:], l.keys[i:])
	l.keys[i] = key
	l.data = append(l.data, zero)
	copy(l.data[i+1:], l.data[i:])
	l.data[i] = value
	return true
}

// Data returns the value stored under key. The value is a borrowed
// view, valid only until the next mutating call.
func (l *List[T]) Data(key uint32) (T, bool) {
	i, found := l.search(key)
	if !found {
		var zero T
		return zero, false
	}
	return l.data[i], true
}

// Delete removes and returns the value stored under key. Deleting an
// absent key is a no-op reported as not found.
func (l *List[T]) Delete(key uint32) (T, bool) {
	i, found := l.search(key)
	if !found {
		var zero T
		return zero, false
	}
	v := l.data[i]
	l.keys = append(l.keys[:i], l.keys[i+1:]...)
	var zero T
	l.data[len(l.data)-1], l.data = zero, append(l.data[:i], l.data[i+1:]...)
	return v, true
}

// Pop removes and returns the first (lowest-keyed) entry
func (l *List[T]) Pop() (uint32, T, bool) {
	if len(l.keys) == 0 {
		var zero T
		return 0, zero, false
	}
	key := l.keys[0]
	v, _ := l.Delete(key)
	return key, v, true
}

// Key returns the key at the given iteration index
func (l *List[T]) Key(index int) (uint32, bool) {
	if index < 0 || index >= len(l.keys) {
		return 0, false
	}
	return l.keys[index], true
}

// Index returns the iteration index of key
func (l *List[T]) Index(key uint32) (int, bool) {
	i, found := l.search(key)
	if !found {
		return 0, false
	}
	return i, true
}

// At returns the value at the given iteration index
func (l *List[T]) At(index int) (T, bool) {
	if index < 0 || index >= len(l.data) {
		var zero T
		return zero, false
	}
	return l.data[index], true
}

// NextEmptyKey returns the lowest unused key greater than or equal to
// start, filling gaps left by prior deletions before appending past the
// maximum.
func (l *List[T]) NextEmptyKey(start uint32) uint32 {
	i, _ := l.search(start)
	key := start
	for ; i < len(l.keys); i++ {
		if l.keys[i] != key {
			break
		}
		key++
	}
	return key
}

// Clear removes every entry, invalidating all indices
func (l *List[T]) Clear() {
	l.keys = nil
	l.data = nil
}
