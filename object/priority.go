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

package object

import "github.com/edgeo-scada/bacnetd/bacnet"

// PriorityArray arbitrates a commandable Real value across 16 write
// priorities. Priority 1 is the most urgent. An empty array falls back
// to the owning object's relinquish default.
type PriorityArray struct {
	active [MaxPriority]bool
	value  [MaxPriority]float32
}

// Set commands the value at the given priority (1..16)
func (pa *PriorityArray) Set(priority uint8, value float32) error {
	if priority < MinPriority || priority > MaxPriority {
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeValueOutOfRange)
	}
	if priority == ReservedPriority {
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeWriteAccessDenied)
	}
	pa.active[priority-1] = true
	pa.value[priority-1] = value
	return nil
}

// Relinquish clears the slot at the given priority (1..16)
func (pa *PriorityArray) Relinquish(priority uint8) error {
	if priority < MinPriority || priority > MaxPriority {
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeValueOutOfRange)
	}
	if priority == ReservedPriority {
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeWriteAccessDenied)
	}
	pa.active[priority-1] = false
	pa.value[priority-1] = 0
	return nil
}

// Active returns the highest-priority commanded value, its priority,
// and whether any slot is commanded at all.
func (pa *PriorityArray) Active() (float32, uint8, bool) {
	for i := range pa.active {
		if pa.active[i] {
			return pa.value[i], uint8(i + 1), true
		}
	}
	return 0, NoPriority, false
}

// Slot returns the commanded value at priority (1..16), reporting
// false for a relinquished slot.
func (pa *PriorityArray) Slot(priority uint8) (float32, bool) {
	if priority < MinPriority || priority > MaxPriority {
		return 0, false
	}
	return pa.value[priority-1], pa.active[priority-1]
}

// EncodeSlot writes one priority-array element: Null when the slot is
// relinquished, the Real value otherwise.
func (pa *PriorityArray) EncodeSlot(buf []byte, priority uint8) (int, error) {
	if v, ok := pa.Slot(priority); ok {
		return bacnet.EncodeApplicationReal(buf, v)
	}
	return bacnet.EncodeApplicationNull(buf)
}

// Encode writes the whole 16-element array
func (pa *PriorityArray) Encode(buf []byte) (int, error) {
	pos := 0
	for p := MinPriority; p <= MaxPriority; p++ {
		n, err := pa.EncodeSlot(buf[pos:], p)
		if err != nil {
			return 0, err
		}
		pos += n
	}
	return pos, nil
}
