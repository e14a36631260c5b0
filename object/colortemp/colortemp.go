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

// Package colortemp implements the Color Temperature object: a
// present-value in Kelvin with command, fade, ramp, and step defaults.
package colortemp

import (
	"fmt"

	"github.com/edgeo-scada/bacnetd/bacnet"
	"github.com/edgeo-scada/bacnetd/internal/keylist"
	"github.com/edgeo-scada/bacnetd/object"
)

// Operation is a color command operation
type Operation uint8

const (
	OperationNone Operation = iota
	OperationFadeToColor
	OperationFadeToCCT
	OperationRampToCCT
	OperationStepUpCCT
	OperationStepDownCCT
	OperationStop
)

// InProgress reports what a color operation is currently doing
type InProgress uint8

const (
	InProgressIdle InProgress = iota
	InProgressFadeActive
	InProgressRampActive
	InProgressNotControlled
	InProgressOther
	inProgressMax
)

// Transition selects the default write transition
type Transition uint8

const (
	TransitionNone Transition = iota
	TransitionFade
	TransitionRamp
	transitionMax
)

// Fade time bounds, in milliseconds
const (
	FadeTimeMin = 100
	FadeTimeMax = 86400000
)

// Command is a BACnetColorCommand: an operation with its optional
// targets.
type Command struct {
	Operation     Operation
	TargetValue   uint32
	FadeTime      uint32
	RampRate      uint32
	StepIncrement uint32
}

// WriteCallback is invoked after a present-value write from the network
type WriteCallback func(instance uint32, oldValue, newValue uint32)

type record struct {
	presentValue    uint32
	trackingValue   uint32
	command         Command
	inProgress      InProgress
	defaultTemp     uint32
	defaultFadeTime uint32
	defaultRampRate uint32
	defaultStep     uint32
	transition      Transition
	minPresValue    uint32
	maxPresValue    uint32
	name            string
	description     string
	writeEnabled    bool
}

// Store owns every Color Temperature instance. It is created at device
// startup and torn down with Cleanup; callers serialize access.
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

// NewStore creates an empty Color Temperature store
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

// ObjectType returns the color-temperature type tag
func (s *Store) ObjectType() bacnet.ObjectType {
	return bacnet.ObjectTypeColorTemperature
}

var (
	requiredProperties = []bacnet.PropertyIdentifier{
		bacnet.PropertyObjectIdentifier, bacnet.PropertyObjectName,
		bacnet.PropertyObjectType, bacnet.PropertyPresentValue,
		bacnet.PropertyTrackingValue, bacnet.PropertyColorCommand,
		bacnet.PropertyInProgress, bacnet.PropertyDefaultColorTemperature,
		bacnet.PropertyDefaultFadeTime, bacnet.PropertyDefaultRampRate,
		bacnet.PropertyDefaultStepIncrement,
	}
	optionalProperties = []bacnet.PropertyIdentifier{
		bacnet.PropertyDescription, bacnet.PropertyTransition,
		bacnet.PropertyMinPresValue, bacnet.PropertyMaxPresValue,
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

// PresentValue returns the present color temperature in Kelvin
func (s *Store) PresentValue(instance uint32) uint32 {
	if r, ok := s.list.Data(instance); ok {
		return r.presentValue
	}
	return 0
}

// SetPresentValue sets the present value directly, bypassing the
// write-enable gate (local writes).
func (s *Store) SetPresentValue(instance uint32, value uint32) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.presentValue = value
	return true
}

// writePresentValue applies a network write, honoring the gate
func (s *Store) writePresentValue(instance uint32, value uint32, priority uint8) error {
	_ = priority
	r, ok := s.list.Data(instance)
	if !ok {
		return bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
	}
	if !r.writeEnabled {
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeWriteAccessDenied)
	}
	old := r.presentValue
	r.presentValue = value
	if s.onWrite != nil {
		s.onWrite(instance, old, value)
	}
	return nil
}

// TrackingValue returns the actual tracked color temperature
func (s *Store) TrackingValue(instance uint32) uint32 {
	if r, ok := s.list.Data(instance); ok {
		return r.trackingValue
	}
	return 0
}

// SetTrackingValue sets the tracked color temperature
func (s *Store) SetTrackingValue(instance uint32, value uint32) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.trackingValue = value
	return true
}

// Command returns the last color command
func (s *Store) Command(instance uint32) (Command, bool) {
	if r, ok := s.list.Data(instance); ok {
		return r.command, true
	}
	return Command{}, false
}

// SetCommand stores a color command
func (s *Store) SetCommand(instance uint32, value Command) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.command = value
	return true
}

// InProgress returns the operation-in-progress state
func (s *Store) InProgress(instance uint32) InProgress {
	if r, ok := s.list.Data(instance); ok {
		return r.inProgress
	}
	return InProgressOther
}

// SetInProgress sets the operation-in-progress state
func (s *Store) SetInProgress(instance uint32, value InProgress) bool {
	r, ok := s.list.Data(instance)
	if ok && value < inProgressMax {
		r.inProgress = value
		return true
	}
	return false
}

// DefaultColorTemperature returns the default color temperature in Kelvin
func (s *Store) DefaultColorTemperature(instance uint32) uint32 {
	if r, ok := s.list.Data(instance); ok {
		return r.defaultTemp
	}
	return 0
}

// SetDefaultColorTemperature sets the default color temperature
func (s *Store) SetDefaultColorTemperature(instance uint32, value uint32) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.defaultTemp = value
	return true
}

// DefaultFadeTime returns the default fade time in milliseconds
func (s *Store) DefaultFadeTime(instance uint32) uint32 {
	if r, ok := s.list.Data(instance); ok {
		return r.defaultFadeTime
	}
	return 0
}

// SetDefaultFadeTime sets the default fade time; zero or a value in
// the standard's fade range is accepted.
func (s *Store) SetDefaultFadeTime(instance uint32, value uint32) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	if value == 0 || (value >= FadeTimeMin && value <= FadeTimeMax) {
		r.defaultFadeTime = value
	}
	return true
}

// DefaultRampRate returns the default ramp rate
func (s *Store) DefaultRampRate(instance uint32) uint32 {
	if r, ok := s.list.Data(instance); ok {
		return r.defaultRampRate
	}
	return 0
}

// SetDefaultRampRate sets the default ramp rate
func (s *Store) SetDefaultRampRate(instance uint32, value uint32) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.defaultRampRate = value
	return true
}

// DefaultStepIncrement returns the default step increment
func (s *Store) DefaultStepIncrement(instance uint32) uint32 {
	if r, ok := s.list.Data(instance); ok {
		return r.defaultStep
	}
	return 0
}

// SetDefaultStepIncrement sets the default step increment
func (s *Store) SetDefaultStepIncrement(instance uint32, value uint32) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.defaultStep = value
	return true
}

// Transition returns the default write transition
func (s *Store) Transition(instance uint32) Transition {
	if r, ok := s.list.Data(instance); ok {
		return r.transition
	}
	return TransitionNone
}

// SetTransition sets the default write transition
func (s *Store) SetTransition(instance uint32, value Transition) bool {
	r, ok := s.list.Data(instance)
	if ok && value < transitionMax {
		r.transition = value
		return true
	}
	return false
}

// MinPresValue returns the lowest supported color temperature
func (s *Store) MinPresValue(instance uint32) uint32 {
	if r, ok := s.list.Data(instance); ok {
		return r.minPresValue
	}
	return 0
}

// SetMinPresValue sets the lowest supported color temperature
func (s *Store) SetMinPresValue(instance uint32, value uint32) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.minPresValue = value
	return true
}

// MaxPresValue returns the highest supported color temperature
func (s *Store) MaxPresValue(instance uint32) uint32 {
	if r, ok := s.list.Data(instance); ok {
		return r.maxPresValue
	}
	return 0
}

// SetMaxPresValue sets the highest supported color temperature
func (s *Store) SetMaxPresValue(instance uint32, value uint32) bool {
	r, ok := s.list.Data(instance)
	if !ok {
		return false
	}
	r.maxPresValue = value
	return true
}

// ObjectName returns the object name, generating a default from the
// instance when none has been assigned. Names are unique within the
// owning device.
func (s *Store) ObjectName(instance uint32) (string, bool) {
	r, ok := s.list.Data(instance)
	if !ok {
		return "", false
	}
	if r.name != "" {
		return r.name, true
	}
	return fmt.Sprintf("COLOR-TEMPERATURE-%d", instance), true
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

// WriteEnabled reports the write-enable gate state
func (s *Store) WriteEnabled(instance uint32) bool {
	if r, ok := s.list.Data(instance); ok {
		return r.writeEnabled
	}
	return false
}

// WriteEnable opens the gate for network present-value writes
func (s *Store) WriteEnable(instance uint32) {
	if r, ok := s.list.Data(instance); ok {
		r.writeEnabled = true
	}
}

// WriteDisable closes the gate for network present-value writes
func (s *Store) WriteDisable(instance uint32) {
	if r, ok := s.list.Data(instance); ok {
		r.writeEnabled = false
	}
}

// Create makes a new instance, allocating the lowest unused instance
// for bacnet.WildcardInstance. Creating an existing instance returns
// it unchanged.
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
		inProgress:  InProgressIdle,
		defaultTemp: 5000,
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

// encodeCommand writes a BACnetColorCommand: the operation with only
// the option fields that operation uses.
func encodeCommand(buf []byte, cmd Command) (int, error) {
	pos, err := bacnet.EncodeContextEnumerated(buf, 0, uint32(cmd.Operation))
	if err != nil {
		return 0, err
	}
	appendCtx := func(tagNum uint8, v uint32) error {
		n, err := bacnet.EncodeContextUnsigned(buf[pos:], tagNum, v)
		if err != nil {
			return err
		}
		pos += n
		return nil
	}
	switch cmd.Operation {
	case OperationFadeToCCT:
		if err = appendCtx(1, cmd.TargetValue); err == nil && cmd.FadeTime > 0 {
			err = appendCtx(2, cmd.FadeTime)
		}
	case OperationRampToCCT:
		if err = appendCtx(1, cmd.TargetValue); err == nil && cmd.RampRate > 0 {
			err = appendCtx(3, cmd.RampRate)
		}
	case OperationStepUpCCT, OperationStepDownCCT:
		if cmd.StepIncrement > 0 {
			err = appendCtx(4, cmd.StepIncrement)
		}
	}
	if err != nil {
		return 0, err
	}
	return pos, nil
}

// ReadProperty encodes the requested property into buf. Array-index
// legality and the known-property pre-check happen in the dispatch
// engine before this is called.
func (s *Store) ReadProperty(req *object.ReadRequest, buf []byte) (int, error) {
	if !s.ValidInstance(req.Instance) {
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
		return bacnet.EncodeApplicationUnsigned(buf, s.PresentValue(req.Instance))
	case bacnet.PropertyTrackingValue:
		return bacnet.EncodeApplicationUnsigned(buf, s.TrackingValue(req.Instance))
	case bacnet.PropertyColorCommand:
		cmd, _ := s.Command(req.Instance)
		return encodeCommand(buf, cmd)
	case bacnet.PropertyInProgress:
		return bacnet.EncodeApplicationEnumerated(buf, uint32(s.InProgress(req.Instance)))
	case bacnet.PropertyDefaultColorTemperature:
		return bacnet.EncodeApplicationUnsigned(buf, s.DefaultColorTemperature(req.Instance))
	case bacnet.PropertyDefaultFadeTime:
		return bacnet.EncodeApplicationUnsigned(buf, s.DefaultFadeTime(req.Instance))
	case bacnet.PropertyDefaultRampRate:
		return bacnet.EncodeApplicationUnsigned(buf, s.DefaultRampRate(req.Instance))
	case bacnet.PropertyDefaultStepIncrement:
		return bacnet.EncodeApplicationUnsigned(buf, s.DefaultStepIncrement(req.Instance))
	case bacnet.PropertyTransition:
		return bacnet.EncodeApplicationEnumerated(buf, uint32(s.Transition(req.Instance)))
	case bacnet.PropertyMinPresValue:
		return bacnet.EncodeApplicationUnsigned(buf, s.MinPresValue(req.Instance))
	case bacnet.PropertyMaxPresValue:
		return bacnet.EncodeApplicationUnsigned(buf, s.MaxPresValue(req.Instance))
	case bacnet.PropertyDescription:
		return bacnet.EncodeApplicationCharacterString(buf, s.Description(req.Instance))
	default:
		return 0, bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
	}
}

// WriteProperty decodes and applies a write. Only present-value is
// writable; identity and description writes are denied.
func (s *Store) WriteProperty(req *object.WriteRequest) error {
	value, err := object.DecodeWriteValue(req)
	if err != nil {
		return err
	}
	switch req.Property {
	case bacnet.PropertyPresentValue:
		if err := object.WritePropertyTypeValid(&value, bacnet.TagUnsignedInt); err != nil {
			return err
		}
		return s.writePresentValue(req.Instance, value.Unsigned, req.Priority)
	case bacnet.PropertyObjectIdentifier, bacnet.PropertyObjectType,
		bacnet.PropertyObjectName, bacnet.PropertyDescription:
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeWriteAccessDenied)
	default:
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
	}
}
