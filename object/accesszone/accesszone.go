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

// Package accesszone implements the Access Zone object: an occupancy
// state with an adjustable occupant count.
package accesszone

import (
	"fmt"

	"github.com/edgeo-scada/bacnetd/bacnet"
	"github.com/edgeo-scada/bacnetd/internal/keylist"
	"github.com/edgeo-scada/bacnetd/object"
)

// OccupancyState is the occupancy classification of a zone
type OccupancyState uint8

const (
	StateNormal OccupancyState = iota
	StateBelowLowerLimit
	StateAtLowerLimit
	StateAtUpperLimit
	StateAboveUpperLimit
	StateDisabled
	StateNotSupported
	stateMax
)

func (o OccupancyState) String() string {
	names := map[OccupancyState]string{
		StateNormal:          "normal",
		StateBelowLowerLimit: "below-lower-limit",
		StateAtLowerLimit:    "at-lower-limit",
		StateAtUpperLimit:    "at-upper-limit",
		StateAboveUpperLimit: "above-upper-limit",
		StateDisabled:        "disabled",
		StateNotSupported:    "not-supported",
	}
	if name, ok := names[o]; ok {
		return name
	}
	return fmt.Sprintf("occupancy-state-%d", uint8(o))
}

type record struct {
	state        OccupancyState
	count        uint32
	lastAdjust   int32
	countEnable  bool
	outOfService bool
	name         string
	description  string
}

// Store owns every Access Zone instance; callers serialize access
type Store struct {
	list   *keylist.List[*record]
	notify object.ChangeNotifier
}

// Option configures a Store
type Option func(*Store)

// WithChangeNotifier sets the callback run after create, delete, and
// name writes.
func WithChangeNotifier(fn object.ChangeNotifier) Option {
	return func(s *Store) { s.notify = fn }
}

// NewStore creates an empty Access Zone store
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

// ObjectType returns the access-zone type tag
func (s *Store) ObjectType() bacnet.ObjectType {
	return bacnet.ObjectTypeAccessZone
}

var (
	requiredProperties = []bacnet.PropertyIdentifier{
		bacnet.PropertyObjectIdentifier, bacnet.PropertyObjectName,
		bacnet.PropertyObjectType, bacnet.PropertyStatusFlags,
		bacnet.PropertyEventState, bacnet.PropertyOutOfService,
		bacnet.PropertyOccupancyState,
	}
	optionalProperties = []bacnet.PropertyIdentifier{
		bacnet.PropertyDescription, bacnet.PropertyOccupancyCount,
		bacnet.PropertyOccupancyCountEnable, bacnet.PropertyOccupancyCountAdjust,
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

// State returns the occupancy state of a zone
func (s *Store) State(instance uint32) OccupancyState {
	if r, ok := s.list.Data(instance); ok {
		return r.state
	}
	return StateNotSupported
}

// SetState sets the occupancy state of a zone
func (s *Store) SetState(instance uint32, state OccupancyState) bool {
	r, ok := s.list.Data(instance)
	if ok && state < stateMax {
		r.state = state
		return true
	}
	return false
}

// OccupancyCount returns the occupant count of a zone
func (s *Store) OccupancyCount(instance uint32) uint32 {
	if r, ok := s.list.Data(instance); ok {
		return r.count
	}
	return 0
}

// SetOccupancyCount sets the occupant count of a zone
func (s *Store) SetOccupancyCount(instance uint32, count uint32) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.count = count
	return true
}

// CountEnabled reports whether occupant counting is active
func (s *Store) CountEnabled(instance uint32) bool {
	if r, ok := s.list.Data(instance); ok {
		return r.countEnable
	}
	return false
}

// SetCountEnabled activates or suspends occupant counting
func (s *Store) SetCountEnabled(instance uint32, enable bool) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.countEnable = enable
	return true
}

// adjust applies a signed delta to the occupant count, clamping at zero
func (s *Store) adjust(instance uint32, delta int32) error {
	r, ok := s.list.Data(instance)
	if !ok {
		return bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
	}
	if !r.countEnable {
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeWriteAccessDenied)
	}
	r.lastAdjust = delta
	if delta < 0 && uint32(-delta) > r.count {
		r.count = 0
		return nil
	}
	r.count = uint32(int64(r.count) + int64(delta))
	return nil
}

// OutOfService reports whether the zone is decoupled
func (s *Store) OutOfService(instance uint32) bool {
	if r, ok := s.list.Data(instance); ok {
		return r.outOfService
	}
	return false
}

// SetOutOfService sets the decoupled state
func (s *Store) SetOutOfService(instance uint32, value bool) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.outOfService = value
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
	return fmt.Sprintf("ACCESS-ZONE-%d", instance), true
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
	s.list.Add(instance, &record{state: StateNormal})
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

// ReadProperty encodes the requested property into buf
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
	case bacnet.PropertyStatusFlags:
		flags := bacnet.StatusFlags{OutOfService: r.outOfService}
		return bacnet.EncodeApplicationBitString(buf, flags.BitString())
	case bacnet.PropertyEventState:
		return bacnet.EncodeApplicationEnumerated(buf, uint32(bacnet.EventStateNormal))
	case bacnet.PropertyOutOfService:
		return bacnet.EncodeApplicationBoolean(buf, r.outOfService)
	case bacnet.PropertyOccupancyState:
		return bacnet.EncodeApplicationEnumerated(buf, uint32(r.state))
	case bacnet.PropertyOccupancyCount:
		return bacnet.EncodeApplicationUnsigned(buf, r.count)
	case bacnet.PropertyOccupancyCountEnable:
		return bacnet.EncodeApplicationBoolean(buf, r.countEnable)
	case bacnet.PropertyOccupancyCountAdjust:
		return bacnet.EncodeApplicationSigned(buf, r.lastAdjust)
	case bacnet.PropertyDescription:
		return bacnet.EncodeApplicationCharacterString(buf, r.description)
	default:
		return 0, bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
	}
}

// WriteProperty decodes and applies a write. The count adjustment
// property takes a signed delta and is the only occupancy write path;
// it requires counting to be enabled.
func (s *Store) WriteProperty(req *object.WriteRequest) error {
	value, err := object.DecodeWriteValue(req)
	if err != nil {
		return err
	}
	switch req.Property {
	case bacnet.PropertyOccupancyCountAdjust:
		if err := object.WritePropertyTypeValid(&value, bacnet.TagSignedInt); err != nil {
			return err
		}
		return s.adjust(req.Instance, value.Signed)
	case bacnet.PropertyOccupancyCountEnable:
		if err := object.WritePropertyTypeValid(&value, bacnet.TagBoolean); err != nil {
			return err
		}
		if !s.SetCountEnabled(req.Instance, value.Boolean) {
			return bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
		}
		return nil
	case bacnet.PropertyOutOfService:
		if err := object.WritePropertyTypeValid(&value, bacnet.TagBoolean); err != nil {
			return err
		}
		if !s.SetOutOfService(req.Instance, value.Boolean) {
			return bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
		}
		return nil
	case bacnet.PropertyObjectIdentifier, bacnet.PropertyObjectType,
		bacnet.PropertyObjectName, bacnet.PropertyStatusFlags,
		bacnet.PropertyEventState, bacnet.PropertyOccupancyState,
		bacnet.PropertyOccupancyCount, bacnet.PropertyDescription:
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeWriteAccessDenied)
	default:
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
	}
}
