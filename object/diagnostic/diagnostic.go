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

// Package diagnostic implements the Network Port object used for link
// diagnostics: reliability, network number, MAC address, and link
// speed for the port carrying this device.
package diagnostic

import (
	"fmt"

	"github.com/edgeo-scada/bacnetd/bacnet"
	"github.com/edgeo-scada/bacnetd/internal/keylist"
	"github.com/edgeo-scada/bacnetd/object"
)

// NetworkNumberQuality reports how the network number was obtained
type NetworkNumberQuality uint8

const (
	QualityUnknown NetworkNumberQuality = iota
	QualityLearned
	QualityLearnedConfigured
	QualityConfigured
)

type record struct {
	reliability    bacnet.Reliability
	outOfService   bool
	networkNumber  uint16
	quality        NetworkNumberQuality
	macAddress     []byte
	apduLength     uint32
	linkSpeed      float32
	changesPending bool
	name           string
	description    string
}

// Store owns every Network Port instance; callers serialize access
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

// NewStore creates an empty Network Port store
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

// ObjectType returns the network-port type tag
func (s *Store) ObjectType() bacnet.ObjectType {
	return bacnet.ObjectTypeNetworkPort
}

var (
	requiredProperties = []bacnet.PropertyIdentifier{
		bacnet.PropertyObjectIdentifier, bacnet.PropertyObjectName,
		bacnet.PropertyObjectType, bacnet.PropertyStatusFlags,
		bacnet.PropertyReliability, bacnet.PropertyOutOfService,
		bacnet.PropertyNetworkNumber, bacnet.PropertyNetworkNumberQuality,
		bacnet.PropertyMacAddress, bacnet.PropertyApduLength,
		bacnet.PropertyLinkSpeed, bacnet.PropertyChangesPending,
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

// Reliability returns the port fault state
func (s *Store) Reliability(instance uint32) bacnet.Reliability {
	if r, ok := s.list.Data(instance); ok {
		return r.reliability
	}
	return bacnet.ReliabilityNoFaultDetected
}

// SetReliability sets the port fault state
func (s *Store) SetReliability(instance uint32, value bacnet.Reliability) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.reliability = value
	return true
}

// OutOfService reports whether the port is decoupled
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

// NetworkNumber returns the BACnet network number of the port
func (s *Store) NetworkNumber(instance uint32) uint16 {
	if r, ok := s.list.Data(instance); ok {
		return r.networkNumber
	}
	return 0
}

// SetNetworkNumber sets the network number and its quality
func (s *Store) SetNetworkNumber(instance uint32, value uint16, quality NetworkNumberQuality) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.networkNumber = value
	r.quality = quality
	return true
}

// Quality returns how the network number was obtained
func (s *Store) Quality(instance uint32) NetworkNumberQuality {
	if r, ok := s.list.Data(instance); ok {
		return r.quality
	}
	return QualityUnknown
}

// MACAddress returns the port MAC address octets
func (s *Store) MACAddress(instance uint32) []byte {
	if r, ok := s.list.Data(instance); ok {
		return r.macAddress
	}
	return nil
}

// SetMACAddress sets the port MAC address octets
func (s *Store) SetMACAddress(instance uint32, mac []byte) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.macAddress = append([]byte(nil), mac...)
	return true
}

// APDULength returns the maximum APDU length of the port
func (s *Store) APDULength(instance uint32) uint32 {
	if r, ok := s.list.Data(instance); ok {
		return r.apduLength
	}
	return 0
}

// SetAPDULength sets the maximum APDU length of the port
func (s *Store) SetAPDULength(instance uint32, value uint32) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.apduLength = value
	return true
}

// LinkSpeed returns the port link speed in bits per second
func (s *Store) LinkSpeed(instance uint32) float32 {
	if r, ok := s.list.Data(instance); ok {
		return r.linkSpeed
	}
	return 0
}

// SetLinkSpeed sets the port link speed in bits per second
func (s *Store) SetLinkSpeed(instance uint32, value float32) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.linkSpeed = value
	return true
}

// ChangesPending reports whether edited port settings await activation
func (s *Store) ChangesPending(instance uint32) bool {
	if r, ok := s.list.Data(instance); ok {
		return r.changesPending
	}
	return false
}

// SetChangesPending marks edited port settings as awaiting activation
func (s *Store) SetChangesPending(instance uint32, value bool) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.changesPending = value
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
	return fmt.Sprintf("NETWORK-PORT-%d", instance), true
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
	r := &record{
		reliability: bacnet.ReliabilityNoFaultDetected,
		apduLength:  bacnet.MaxAPDULength,
	}
	s.list.Add(instance, r)
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
	r, _ := s.list.Data(instance)
	if r == nil {
		return bacnet.StatusFlags{}
	}
	return bacnet.StatusFlags{
		Fault:        r.reliability != bacnet.ReliabilityNoFaultDetected,
		OutOfService: r.outOfService,
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
		return bacnet.EncodeApplicationBitString(buf, s.statusFlags(req.Instance).BitString())
	case bacnet.PropertyReliability:
		return bacnet.EncodeApplicationEnumerated(buf, uint32(r.reliability))
	case bacnet.PropertyOutOfService:
		return bacnet.EncodeApplicationBoolean(buf, r.outOfService)
	case bacnet.PropertyNetworkNumber:
		return bacnet.EncodeApplicationUnsigned(buf, uint32(r.networkNumber))
	case bacnet.PropertyNetworkNumberQuality:
		return bacnet.EncodeApplicationEnumerated(buf, uint32(r.quality))
	case bacnet.PropertyMacAddress:
		return bacnet.EncodeApplicationOctetString(buf, r.macAddress)
	case bacnet.PropertyApduLength:
		return bacnet.EncodeApplicationUnsigned(buf, r.apduLength)
	case bacnet.PropertyLinkSpeed:
		return bacnet.EncodeApplicationReal(buf, r.linkSpeed)
	case bacnet.PropertyChangesPending:
		return bacnet.EncodeApplicationBoolean(buf, r.changesPending)
	case bacnet.PropertyDescription:
		return bacnet.EncodeApplicationCharacterString(buf, r.description)
	default:
		return 0, bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
	}
}

// WriteProperty decodes and applies a write. Only out-of-service is
// writable over the network; the rest of the port state comes from
// local configuration.
func (s *Store) WriteProperty(req *object.WriteRequest) error {
	value, err := object.DecodeWriteValue(req)
	if err != nil {
		return err
	}
	switch req.Property {
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
		bacnet.PropertyReliability, bacnet.PropertyNetworkNumber,
		bacnet.PropertyNetworkNumberQuality, bacnet.PropertyMacAddress,
		bacnet.PropertyApduLength, bacnet.PropertyLinkSpeed,
		bacnet.PropertyChangesPending, bacnet.PropertyDescription:
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeWriteAccessDenied)
	default:
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
	}
}
