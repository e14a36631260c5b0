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

// Package object defines the capability surface every BACnet object
// type plugs into the device dispatch engine, along with the property
// rules shared by all of them.
package object

import (
	"errors"

	"github.com/edgeo-scada/bacnetd/bacnet"
)

// ArrayAll requests the whole property rather than one array element
const ArrayAll uint32 = 0xFFFFFFFF

// Write priorities for commandable properties
const (
	NoPriority       uint8 = 0
	MinPriority      uint8 = 1
	MaxPriority      uint8 = 16
	ReservedPriority uint8 = 6
)

// ErrInstanceRange reports a create with an instance past the 22-bit
// space, the "max instance" resource failure of the instance space.
var ErrInstanceRange = errors.New("object: instance out of range")

// ReadRequest identifies one property read, already parsed from the
// service layer.
type ReadRequest struct {
	ObjectType bacnet.ObjectType
	Instance   uint32
	Property   bacnet.PropertyIdentifier
	ArrayIndex uint32
}

// WriteRequest identifies one property write. Data holds the encoded
// application value; Priority is NoPriority for non-commandable writes.
type WriteRequest struct {
	ObjectType bacnet.ObjectType
	Instance   uint32
	Property   bacnet.PropertyIdentifier
	ArrayIndex uint32
	Priority   uint8
	Data       []byte
}

// Type is the capability table one object type registers with the
// device: property enumeration, instance bookkeeping, lifecycle, and
// the read/write accessors. Implementations provide no locking; the
// device serializes requests.
type Type interface {
	ObjectType() bacnet.ObjectType

	// PropertyLists returns the required, optional, and proprietary
	// property identifier lists used by ReadPropertyMultiple and the
	// engine's known-property check.
	PropertyLists() (required, optional, proprietary []bacnet.PropertyIdentifier)

	ValidInstance(instance uint32) bool
	Count() int
	IndexToInstance(index int) (uint32, bool)
	InstanceToIndex(instance uint32) (int, bool)

	ObjectName(instance uint32) (string, bool)
	SetObjectName(instance uint32, name string) bool

	// Create makes a new instance; bacnet.WildcardInstance allocates
	// the lowest unused instance. Creating an existing instance
	// returns it unchanged.
	Create(instance uint32) (uint32, error)
	Delete(instance uint32) bool
	Cleanup()

	// ReadProperty encodes the property into buf and returns bytes
	// written, or a *bacnet.Error pair.
	ReadProperty(req *ReadRequest, buf []byte) (int, error)
	// WriteProperty decodes and applies the value, or returns a
	// *bacnet.Error pair. Validation precedes mutation.
	WriteProperty(req *WriteRequest) error
}

// ChangeNotifier is invoked after a structural mutation (create,
// delete, name write) so the owning device can bump its database
// revision.
type ChangeNotifier func()

// KnownProperty reports whether p appears in any of the type's
// property lists.
func KnownProperty(t Type, p bacnet.PropertyIdentifier) bool {
	required, optional, proprietary := t.PropertyLists()
	for _, list := range [][]bacnet.PropertyIdentifier{required, optional, proprietary} {
		for _, q := range list {
			if q == p {
				return true
			}
		}
	}
	return false
}

// IsArrayProperty reports whether p is array-typed. Only these may
// carry a concrete array index in a request.
func IsArrayProperty(p bacnet.PropertyIdentifier) bool {
	switch p {
	case bacnet.PropertyPriorityArray, bacnet.PropertyEventTimeStamps, bacnet.PropertyObjectList:
		return true
	}
	return false
}

// CheckArrayIndex applies the engine-wide array-index rule: a concrete
// index on a non-array property is an error pair, never a fallthrough.
func CheckArrayIndex(p bacnet.PropertyIdentifier, arrayIndex uint32) error {
	if arrayIndex != ArrayAll && !IsArrayProperty(p) {
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodePropertyIsNotAnArray)
	}
	return nil
}

// DecodeWriteValue decodes the encoded value of a write request. A
// malformed encoding maps to (Property, ValueOutOfRange), keeping the
// decode-failure contract of the write path in one place.
func DecodeWriteValue(req *WriteRequest) (bacnet.ApplicationValue, error) {
	v, _, err := bacnet.DecodeApplicationValue(req.Data)
	if err != nil {
		return v, bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeValueOutOfRange)
	}
	return v, nil
}

// WritePropertyTypeValid checks the decoded value carries the expected
// application tag before it is applied.
func WritePropertyTypeValid(v *bacnet.ApplicationValue, expected bacnet.ApplicationTag) error {
	if v.Tag != expected {
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeInvalidDataType)
	}
	return nil
}
