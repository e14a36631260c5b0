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

package keylist

import (
	"testing"

	"github.com/matryer/is"
)

func TestAddKeepsKeyOrder(t *testing.T) {
	is := is.New(t)

	l := New[string]()
	is.True(l.Add(30, "c"))
	is.True(l.Add(10, "a"))
	is.True(l.Add(20, "b"))
	is.Equal(l.Count(), 3)

	for i, want := range []uint32{10, 20, 30} {
		key, ok := l.Key(i)
		is.True(ok)
		is.Equal(key, want)
	}

	v, ok := l.Data(20)
	is.True(ok)
	is.Equal(v, "b")
}

func TestAddDuplicateKey(t *testing.T) {
	is := is.New(t)

	l := New[int]()
	is.True(l.Add(5, 1))
	is.True(!l.Add(5, 2))
	is.Equal(l.Count(), 1)

	v, _ := l.Data(5)
	is.Equal(v, 1)
}

func TestIndexMapping(t *testing.T) {
	is := is.New(t)

	l := New[int]()
	l.Add(100, 0)
	l.Add(7, 0)
	l.Add(4194302, 0)

	idx, ok := l.Index(100)
	is.True(ok)
	is.Equal(idx, 1)

	_, ok = l.Index(8)
	is.True(!ok)

	key, ok := l.Key(2)
	is.True(ok)
	is.Equal(key, uint32(4194302))
}

func TestDelete(t *testing.T) {
	is := is.New(t)

	l := New[int]()
	l.Add(1, 10)
	l.Add(2, 20)

	v, ok := l.Delete(1)
	is.True(ok)
	is.Equal(v, 10)
	is.Equal(l.Count(), 1)

	_, ok = l.Delete(1)
	is.True(!ok)
	is.Equal(l.Count(), 1)
}

func TestPopLowestKey(t *testing.T) {
	is := is.New(t)

	l := New[string]()
	l.Add(9, "nine")
	l.Add(3, "three")

	key, v, ok := l.Pop()
	is.True(ok)
	is.Equal(key, uint32(3))
	is.Equal(v, "three")
	is.Equal(l.Count(), 1)
}

func TestNextEmptyKeyFillsGaps(t *testing.T) {
	is := is.New(t)

	l := New[int]()
	is.Equal(l.NextEmptyKey(1), uint32(1))

	l.Add(1, 0)
	l.Add(2, 0)
	l.Add(3, 0)
	is.Equal(l.NextEmptyKey(1), uint32(4))

	l.Delete(2)
	is.Equal(l.NextEmptyKey(1), uint32(2))

	l.Add(2, 0)
	is.Equal(l.NextEmptyKey(1), uint32(4))
}
