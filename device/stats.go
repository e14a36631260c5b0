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

package device

import "sync/atomic"

// Stats counts dispatched requests. The counters are atomic so a
// monitoring goroutine can read them while the server goroutine
// serves.
type Stats struct {
	ReadRequests  atomic.Uint64
	ReadErrors    atomic.Uint64
	WriteRequests atomic.Uint64
	WriteErrors   atomic.Uint64
}

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	ReadRequests  uint64
	ReadErrors    uint64
	WriteRequests uint64
	WriteErrors   uint64
}

// Snapshot copies the counters
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		ReadRequests:  s.ReadRequests.Load(),
		ReadErrors:    s.ReadErrors.Load(),
		WriteRequests: s.WriteRequests.Load(),
		WriteErrors:   s.WriteErrors.Load(),
	}
}
