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

// Package analogvalue implements the commandable Analog Value object.
// Network writes land in a 16-slot priority array; the present value
// is the highest-priority active slot, falling back to the relinquish
// default when every slot is relinquished.
package analogvalue

import (
	"fmt"

	"github.com/edgeo-scada/bacnetd/bacnet"
	"github.com/edgeo-scada/bacnetd/internal/keylist"
	"github.com/edgeo-scada/bacnetd/object"
)

// WriteCallback is invoked after a network write changes the present value
type WriteCallback func(instance uint32, oldValue, newValue float32)

type record struct {
	priority          object.PriorityArray
	relinquishDefault float32
	shadowValue       float32
	outOfService      bool
	units             bacnet.EngineeringUnits
	name              string
	description       string
}

// Store owns every Analog Value instance; callers serialize access
type Store struct {
	list    *keylist.List[*record]
	notify  object.ChangeNotifier
	onWrite WriteCallback
}

// Option configures a Store
type Option func(*Store)

// WithChangeNotifier sets the callback run after create, delete, and
// name writes.
func WithChangeNotifier(fn object.ChangeNotifier) Option {
	return func(s *Store) { s.notify = fn }
}

// WithWriteCallback sets the callback run after a present-value write
func WithWriteCallback(fn WriteCallback) Option {
	return func(s *Store) { s.onWrite = fn }
}

// NewStore creates an empty Analog Value store
func NewStore(opts ...Option) *Store {
	s := &Store{list: keylist.New[*record]()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) changed() {
	if s.notify != nil {
		s.notify()
	}
}

// ObjectType returns the analog-value type tag
func (s *Store) ObjectType() bacnet.ObjectType {
	return bacnet.ObjectTypeAnalogValue
}

var (
	requiredProperties = []bacnet.PropertyIdentifier{
		bacnet.PropertyObjectIdentifier, bacnet.PropertyObjectName,
		bacnet.PropertyObjectType, bacnet.PropertyPresentValue,
		bacnet.PropertyStatusFlags, bacnet.PropertyEventState,
		bacnet.PropertyOutOfService, bacnet.PropertyUnits,
		bacnet.PropertyPriorityArray, bacnet.PropertyRelinquishDefault,
	}
	optionalProperties = []bacnet.PropertyIdentifier{
		bacnet.PropertyDescription,
	}
)

// PropertyLists returns the required, optional, and proprietary
// property lists for this object type.
func (s *Store) PropertyLists() (required, optional, proprietary []bacnet.PropertyIdentifier) {
	return requiredProperties, optionalProperties, nil
}

// ValidInstance reports whether the instance exists
func (s *Store) ValidInstance(instance uint32) bool {
	_, ok := s.list.Data(instance)
	return ok
}

// Count returns the number of instances
func (s *Store) Count() int {
	return s.list.Count()
}

// IndexToInstance maps a 0..Count-1 index to its instance number
func (s *Store) IndexToInstance(index int) (uint32, bool) {
	return s.list.Key(index)
}

// InstanceToIndex maps an instance number to its 0..Count-1 index
func (s *Store) InstanceToIndex(instance uint32) (int, bool) {
	return s.list.Index(instance)
}

// PresentValue resolves the present value: the shadow value while out
// of service, else the highest-priority active slot, else the
// relinquish default.
func (s *Store) PresentValue(instance uint32) float32 {
	r, ok := s.list.Data(instance)
	if !ok {
		return 0
	}
	if r.outOfService {
		return r.shadowValue
	}
	if v, _, ok := r.priority.Active(); ok {
		return v
	}
	return r.relinquishDefault
}

// ActivePriority returns the controlling slot, or 0 when relinquished
func (s *Store) ActivePriority(instance uint32) uint8 {
	if r, ok := s.list.Data(instance); ok {
		if _, p, ok := r.priority.Active(); ok {
			return p
		}
	}
	return object.NoPriority
}

// SetPresentValue commands a value at a priority (local writes bypass
// the reserved-slot check by going through the same array).
func (s *Store) SetPresentValue(instance uint32, value float32, priority uint8) error {
	r, ok := s.list.Data(instance)
	if !ok {
		return bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
	}
	if r.outOfService {
		r.shadowValue = value
		return nil
	}
	old := s.PresentValue(instance)
	if err := r.priority.Set(priority, value); err != nil {
		return err
	}
	if s.onWrite != nil {
		s.onWrite(instance, old, s.PresentValue(instance))
	}
	return nil
}

// Relinquish releases a priority slot
func (s *Store) Relinquish(instance uint32, priority uint8) error {
	r, ok := s.list.Data(instance)
	if !ok {
		return bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
	}
	old := s.PresentValue(instance)
	if err := r.priority.Relinquish(priority); err != nil {
		return err
	}
	if s.onWrite != nil {
		s.onWrite(instance, old, s.PresentValue(instance))
	}
	return nil
}

// RelinquishDefault returns the value used when every slot is released
func (s *Store) RelinquishDefault(instance uint32) float32 {
	if r, ok := s.list.Data(instance); ok {
		return r.relinquishDefault
	}
	return 0
}

// SetRelinquishDefault sets the all-relinquished fallback value
func (s *Store) SetRelinquishDefault(instance uint32, value float32) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.relinquishDefault = value
	return true
}

// OutOfService reports whether the object is decoupled from its input
func (s *Store) OutOfService(instance uint32) bool {
	if r, ok := s.list.Data(instance); ok {
		return r.outOfService
	}
	return false
}

// SetOutOfService couples or decouples the object from its input
func (s *Store) SetOutOfService(instance uint32, value bool) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	if value && !r.outOfService {
		r.shadowValue = s.PresentValue(instance)
	}
	r.outOfService = value
	return true
}

// Units returns the engineering units
func (s *Store) Units(instance uint32) bacnet.EngineeringUnits {
	if r, ok := s.list.Data(instance); ok {
		return r.units
	}
	return bacnet.UnitsNoUnits
}

// SetUnits sets the engineering units
func (s *Store) SetUnits(instance uint32, units bacnet.EngineeringUnits) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.units = units
	return true
}

// ObjectName returns the object name, generating a default from the
// instance when none has been assigned.
func (s *Store) ObjectName(instance uint32) (string, bool) {
	r, ok := s.list.Data(instance)
	if !ok {
		return "", false
	}
	if r.name != "" {
		return r.name, true
	}
	return fmt.Sprintf("ANALOG-VALUE-%d", instance), true
}

// SetObjectName sets the object name. The device-wide uniqueness check
// happens in the dispatch engine before this commits.
func (s *Store) SetObjectName(instance uint32, name string) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.name = name
	s.changed()
	return true
}

// Description returns the description text
func (s *Store) Description(instance uint32) string {
	if r, ok := s.list.Data(instance); ok {
		return r.description
	}
	return ""
}

// SetDescription sets the description text
func (s *Store) SetDescription(instance uint32, description string) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.description = description
	return true
}

// Create makes a new instance, allocating the lowest unused instance
// for bacnet.WildcardInstance.
func (s *Store) Create(instance uint32) (uint32, error) {
	if instance > bacnet.WildcardInstance {
		return 0, object.ErrInstanceRange
	}
	if instance == bacnet.WildcardInstance {
		instance = s.list.NextEmptyKey(1)
		if instance > bacnet.MaxInstance {
			return 0, object.ErrInstanceRange
		}
	}
	if _, ok := s.list.Data(instance); ok {
		return instance, nil
	}
	s.list.Add(instance, &record{units: bacnet.UnitsNoUnits})
	s.changed()
	return instance, nil
}

// Delete removes an instance and its record
func (s *Store) Delete(instance uint32) bool {
	if _, ok := s.list.Delete(instance); ok {
		s.changed()
		return true
	}
	return false
}

// Cleanup removes every instance
func (s *Store) Cleanup() {
	for s.list.Count() > 0 {
		s.list.Pop()
		s.changed()
	}
}

func (s *Store) statusFlags(instance uint32) bacnet.StatusFlags {
	return bacnet.StatusFlags{OutOfService: s.OutOfService(instance)}
}

// ReadProperty encodes the requested property into buf. Priority-array
// reads honor the resolved array index: 0 for the size, 1..16 for a
// slot.
func (s *Store) ReadProperty(req *object.ReadRequest, buf []byte) (int, error) {
	r, ok := s.list.Data(req.Instance)
	if !ok {
		return 0, bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
	}
	switch req.Property {
	case bacnet.PropertyObjectIdentifier:
		return bacnet.EncodeApplicationObjectID(buf, s.ObjectType(), req.Instance)
	case bacnet.PropertyObjectName:
		name, _ := s.ObjectName(req.Instance)
		return bacnet.EncodeApplicationCharacterString(buf, name)
	case bacnet.PropertyObjectType:
		return bacnet.EncodeApplicationEnumerated(buf, uint32(s.ObjectType()))
	case bacnet.PropertyPresentValue:
		return bacnet.EncodeApplicationReal(buf, s.PresentValue(req.Instance))
	case bacnet.PropertyStatusFlags:
		return bacnet.EncodeApplicationBitString(buf, s.statusFlags(req.Instance).BitString())
	case bacnet.PropertyEventState:
		return bacnet.EncodeApplicationEnumerated(buf, uint32(bacnet.EventStateNormal))
	case bacnet.PropertyOutOfService:
		return bacnet.EncodeApplicationBoolean(buf, r.outOfService)
	case bacnet.PropertyUnits:
		return bacnet.EncodeApplicationEnumerated(buf, uint32(r.units))
	case bacnet.PropertyPriorityArray:
		switch req.ArrayIndex {
		case object.ArrayAll:
			return r.priority.Encode(buf)
		case 0:
			return bacnet.EncodeApplicationUnsigned(buf, uint32(object.MaxPriority))
		default:
			if req.ArrayIndex > uint32(object.MaxPriority) {
				return 0, bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeInvalidArrayIndex)
			}
			return r.priority.EncodeSlot(buf, uint8(req.ArrayIndex))
		}
	case bacnet.PropertyRelinquishDefault:
		return bacnet.EncodeApplicationReal(buf, r.relinquishDefault)
	case bacnet.PropertyDescription:
		return bacnet.EncodeApplicationCharacterString(buf, r.description)
	default:
		return 0, bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
	}
}

// WriteProperty decodes and applies a write. A Real at present-value
// commands the priority slot; a Null relinquishes it. Out-of-service
// is writable for commissioning.
func (s *Store) WriteProperty(req *object.WriteRequest) error {
	value, err := object.DecodeWriteValue(req)
	if err != nil {
		return err
	}
	switch req.Property {
	case bacnet.PropertyPresentValue:
		// An absent priority parameter commands the lowest slot
		priority := req.Priority
		if priority == object.NoPriority {
			priority = object.MaxPriority
		}
		if value.Tag == bacnet.TagNull {
			return s.Relinquish(req.Instance, priority)
		}
		if err := object.WritePropertyTypeValid(&value, bacnet.TagReal); err != nil {
			return err
		}
		return s.SetPresentValue(req.Instance, value.Real, priority)
	case bacnet.PropertyOutOfService:
		if err := object.WritePropertyTypeValid(&value, bacnet.TagBoolean); err != nil {
			return err
		}
		if !s.SetOutOfService(req.Instance, value.Boolean) {
			return bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
		}
		return nil
	case bacnet.PropertyRelinquishDefault:
		if err := object.WritePropertyTypeValid(&value, bacnet.TagReal); err != nil {
			return err
		}
		if !s.SetRelinquishDefault(req.Instance, value.Real) {
			return bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
		}
		return nil
	case bacnet.PropertyObjectIdentifier, bacnet.PropertyObjectType,
		bacnet.PropertyObjectName, bacnet.PropertyStatusFlags,
		bacnet.PropertyEventState, bacnet.PropertyUnits,
		bacnet.PropertyPriorityArray, bacnet.PropertyDescription:
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeWriteAccessDenied)
	default:
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
	}
}
