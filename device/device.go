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

// Package device holds the object database of one BACnet device and
// dispatches property reads and writes to the registered object types.
//
// The device provides no internal locking. The server goroutine owns
// the database; anything else touching it must serialize through the
// same goroutine.
package device

import (
	"fmt"
	"log/slog"

	"github.com/edgeo-scada/bacnetd/bacnet"
	"github.com/edgeo-scada/bacnetd/object"
)

// Device identity defaults, overridable through options
const (
	defaultVendorName      = "Edgeo SCADA"
	defaultVendorID        = 1472
	defaultModelName       = "bacnetd"
	defaultFirmware        = "1.0"
	defaultSoftwareVersion = "1.0"

	protocolVersion  = 1
	protocolRevision = 24
)

// Device is one BACnet device: its own Device object plus the
// registered object type stores, dispatched to by object type.
type Device struct {
	instance uint32
	name     string

	vendorName      string
	vendorID        uint16
	modelName       string
	firmware        string
	softwareVersion string
	description     string

	systemStatus     bacnet.DeviceStatus
	databaseRevision uint32

	types  map[bacnet.ObjectType]object.Type
	order  []object.Type
	logger *slog.Logger
	stats  Stats
}

// New creates a device with the given instance number
func New(instance uint32, opts ...Option) (*Device, error) {
	if instance > bacnet.MaxInstance {
		return nil, object.ErrInstanceRange
	}
	d := &Device{
		instance:        instance,
		name:            fmt.Sprintf("DEVICE-%d", instance),
		vendorName:      defaultVendorName,
		vendorID:        defaultVendorID,
		modelName:       defaultModelName,
		firmware:        defaultFirmware,
		softwareVersion: defaultSoftwareVersion,
		systemStatus:    bacnet.DeviceStatusOperational,
		types:           make(map[bacnet.ObjectType]object.Type),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Register adds an object type store to the database. Registering the
// same type twice replaces the earlier store.
func (d *Device) Register(t object.Type) {
	ot := t.ObjectType()
	if _, ok := d.types[ot]; !ok {
		d.order = append(d.order, t)
	} else {
		for i, existing := range d.order {
			if existing.ObjectType() == ot {
				d.order[i] = t
			}
		}
	}
	d.types[ot] = t
	d.logger.Debug("registered object type", "type", ot.String())
}

// Type returns the registered store for an object type
func (d *Device) Type(ot bacnet.ObjectType) (object.Type, bool) {
	t, ok := d.types[ot]
	return t, ok
}

// Instance returns the device instance number
func (d *Device) Instance() uint32 {
	return d.instance
}

// Name returns the device object name
func (d *Device) Name() string {
	return d.name
}

// VendorID returns the vendor identifier
func (d *Device) VendorID() uint16 {
	return d.vendorID
}

// DatabaseRevision returns the revision counter. It increments once
// per structural change: object create, object delete, or name write.
func (d *Device) DatabaseRevision() uint32 {
	return d.databaseRevision
}

// IncrementRevision bumps the database revision. Object stores call
// this through their change notifier; the dispatch engine never bumps
// directly, so each mutation counts exactly once.
func (d *Device) IncrementRevision() {
	d.databaseRevision++
}

// Stats returns the request counters
func (d *Device) Stats() *Stats {
	return &d.stats
}

// ObjectCount returns the number of objects in the database, the
// device object included.
func (d *Device) ObjectCount() int {
	count := 1
	for _, t := range d.order {
		count += t.Count()
	}
	return count
}

// ObjectListElement resolves a 1-based object-list index. Element 1 is
// the device object; registered types follow in registration order,
// each ordered by instance.
func (d *Device) ObjectListElement(index int) (bacnet.ObjectIdentifier, bool) {
	if index < 1 {
		return bacnet.ObjectIdentifier{}, false
	}
	if index == 1 {
		return bacnet.NewObjectIdentifier(bacnet.ObjectTypeDevice, d.instance), true
	}
	index -= 2
	for _, t := range d.order {
		if index < t.Count() {
			instance, ok := t.IndexToInstance(index)
			if !ok {
				return bacnet.ObjectIdentifier{}, false
			}
			return bacnet.NewObjectIdentifier(t.ObjectType(), instance), true
		}
		index -= t.Count()
	}
	return bacnet.ObjectIdentifier{}, false
}

// ValidObjectName scans the whole database for a name and returns the
// object carrying it.
func (d *Device) ValidObjectName(name string) (bacnet.ObjectIdentifier, bool) {
	if name == d.name {
		return bacnet.NewObjectIdentifier(bacnet.ObjectTypeDevice, d.instance), true
	}
	for _, t := range d.order {
		for i := 0; i < t.Count(); i++ {
			instance, ok := t.IndexToInstance(i)
			if !ok {
				continue
			}
			if n, ok := t.ObjectName(instance); ok && n == name {
				return bacnet.NewObjectIdentifier(t.ObjectType(), instance), true
			}
		}
	}
	return bacnet.ObjectIdentifier{}, false
}

// ValidObjectInstance reports whether an object exists in the database
func (d *Device) ValidObjectInstance(ot bacnet.ObjectType, instance uint32) bool {
	if ot == bacnet.ObjectTypeDevice {
		return instance == d.instance || instance == bacnet.WildcardInstance
	}
	t, ok := d.types[ot]
	return ok && t.ValidInstance(instance)
}

// CreateObject makes a new object of a registered type, allocating the
// lowest unused instance for bacnet.WildcardInstance. The store bumps
// the database revision.
func (d *Device) CreateObject(ot bacnet.ObjectType, instance uint32) (uint32, error) {
	t, ok := d.types[ot]
	if !ok {
		return 0, bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnsupportedObjectType)
	}
	created, err := t.Create(instance)
	if err != nil {
		return 0, bacnet.NewError(bacnet.ErrorClassResources, bacnet.ErrorCodeNoSpaceForObject)
	}
	d.logger.Info("object created",
		"type", ot.String(), "instance", created, "revision", d.databaseRevision)
	return created, nil
}

// DeleteObject removes an object. The store bumps the database
// revision.
func (d *Device) DeleteObject(ot bacnet.ObjectType, instance uint32) error {
	t, ok := d.types[ot]
	if !ok || !t.Delete(instance) {
		return bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
	}
	d.logger.Info("object deleted",
		"type", ot.String(), "instance", instance, "revision", d.databaseRevision)
	return nil
}

// Cleanup tears down every registered store
func (d *Device) Cleanup() {
	for _, t := range d.order {
		t.Cleanup()
	}
}

// ReadProperty dispatches a property read, encoding the value into
// buf. Pre-checks run in a fixed order: object existence, known
// property, array-index legality, then the type's own encoder.
func (d *Device) ReadProperty(req *object.ReadRequest, buf []byte) (int, error) {
	d.stats.ReadRequests.Add(1)
	n, err := d.readProperty(req, buf)
	if err != nil {
		d.stats.ReadErrors.Add(1)
	}
	return n, err
}

func (d *Device) readProperty(req *object.ReadRequest, buf []byte) (int, error) {
	if req.ObjectType == bacnet.ObjectTypeDevice {
		if req.Instance != d.instance && req.Instance != bacnet.WildcardInstance {
			return 0, bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
		}
		if !deviceKnownProperty(req.Property) {
			return 0, bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
		}
		if err := object.CheckArrayIndex(req.Property, req.ArrayIndex); err != nil {
			return 0, err
		}
		return d.readDeviceProperty(req, buf)
	}
	t, ok := d.types[req.ObjectType]
	if !ok || !t.ValidInstance(req.Instance) {
		return 0, bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
	}
	if !object.KnownProperty(t, req.Property) {
		return 0, bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
	}
	if err := object.CheckArrayIndex(req.Property, req.ArrayIndex); err != nil {
		return 0, err
	}
	return t.ReadProperty(req, buf)
}

// WriteProperty dispatches a property write. The engine owns the
// cross-object rules: identity properties are read-only everywhere,
// and a name write commits only when the name is unique across the
// database. Everything else is the type's decision.
func (d *Device) WriteProperty(req *object.WriteRequest) error {
	d.stats.WriteRequests.Add(1)
	err := d.writeProperty(req)
	if err != nil {
		d.stats.WriteErrors.Add(1)
	}
	return err
}

func (d *Device) writeProperty(req *object.WriteRequest) error {
	if req.ObjectType == bacnet.ObjectTypeDevice {
		if req.Instance != d.instance && req.Instance != bacnet.WildcardInstance {
			return bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
		}
		if !deviceKnownProperty(req.Property) {
			return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
		}
		if err := object.CheckArrayIndex(req.Property, req.ArrayIndex); err != nil {
			return err
		}
		return d.writeDeviceProperty(req)
	}
	t, ok := d.types[req.ObjectType]
	if !ok || !t.ValidInstance(req.Instance) {
		return bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
	}
	if !object.KnownProperty(t, req.Property) {
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
	}
	if err := object.CheckArrayIndex(req.Property, req.ArrayIndex); err != nil {
		return err
	}
	switch req.Property {
	case bacnet.PropertyObjectIdentifier, bacnet.PropertyObjectType:
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeWriteAccessDenied)
	case bacnet.PropertyObjectName:
		return d.writeObjectName(t, req)
	}
	return t.WriteProperty(req)
}

// writeObjectName applies the name-uniqueness rule: renaming to a name
// held elsewhere in the database fails, renaming an object to its own
// current name is a no-op success, and a committed rename bumps the
// revision through the store's notifier.
func (d *Device) writeObjectName(t object.Type, req *object.WriteRequest) error {
	value, err := object.DecodeWriteValue(req)
	if err != nil {
		return err
	}
	if err := object.WritePropertyTypeValid(&value, bacnet.TagCharacterString); err != nil {
		return err
	}
	name := value.CharacterString
	if name == "" {
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeValueOutOfRange)
	}
	if current, ok := t.ObjectName(req.Instance); ok && current == name {
		return nil
	}
	if holder, ok := d.ValidObjectName(name); ok {
		d.logger.Warn("name collision on write",
			"name", name, "holder_type", holder.Type.String(), "holder_instance", holder.Instance)
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeDuplicateName)
	}
	if !t.SetObjectName(req.Instance, name) {
		return bacnet.NewError(bacnet.ErrorClassObject, bacnet.ErrorCodeUnknownObject)
	}
	return nil
}
