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

import (
	"github.com/edgeo-scada/bacnetd/bacnet"
	"github.com/edgeo-scada/bacnetd/object"
)

var deviceRequiredProperties = []bacnet.PropertyIdentifier{
	bacnet.PropertyObjectIdentifier, bacnet.PropertyObjectName,
	bacnet.PropertyObjectType, bacnet.PropertySystemStatus,
	bacnet.PropertyVendorName, bacnet.PropertyVendorIdentifier,
	bacnet.PropertyModelName, bacnet.PropertyFirmwareRevision,
	bacnet.PropertyApplicationSoftwareVersion, bacnet.PropertyProtocolVersion,
	bacnet.PropertyProtocolRevision, bacnet.PropertySegmentationSupported,
	bacnet.PropertyMaxApduLengthAccepted, bacnet.PropertyObjectList,
	bacnet.PropertyDatabaseRevision,
}

var deviceOptionalProperties = []bacnet.PropertyIdentifier{
	bacnet.PropertyDescription,
}

func deviceKnownProperty(p bacnet.PropertyIdentifier) bool {
	for _, list := range [][]bacnet.PropertyIdentifier{deviceRequiredProperties, deviceOptionalProperties} {
		for _, q := range list {
			if q == p {
				return true
			}
		}
	}
	return false
}

// readDeviceProperty encodes the device object's own properties.
// Object-list reads honor the resolved array index: 0 for the count,
// 1..N for an element.
func (d *Device) readDeviceProperty(req *object.ReadRequest, buf []byte) (int, error) {
	switch req.Property {
	case bacnet.PropertyObjectIdentifier:
		return bacnet.EncodeApplicationObjectID(buf, bacnet.ObjectTypeDevice, d.instance)
	case bacnet.PropertyObjectName:
		return bacnet.EncodeApplicationCharacterString(buf, d.name)
	case bacnet.PropertyObjectType:
		return bacnet.EncodeApplicationEnumerated(buf, uint32(bacnet.ObjectTypeDevice))
	case bacnet.PropertySystemStatus:
		return bacnet.EncodeApplicationEnumerated(buf, uint32(d.systemStatus))
	case bacnet.PropertyVendorName:
		return bacnet.EncodeApplicationCharacterString(buf, d.vendorName)
	case bacnet.PropertyVendorIdentifier:
		return bacnet.EncodeApplicationUnsigned(buf, uint32(d.vendorID))
	case bacnet.PropertyModelName:
		return bacnet.EncodeApplicationCharacterString(buf, d.modelName)
	case bacnet.PropertyFirmwareRevision:
		return bacnet.EncodeApplicationCharacterString(buf, d.firmware)
	case bacnet.PropertyApplicationSoftwareVersion:
		return bacnet.EncodeApplicationCharacterString(buf, d.softwareVersion)
	case bacnet.PropertyProtocolVersion:
		return bacnet.EncodeApplicationUnsigned(buf, protocolVersion)
	case bacnet.PropertyProtocolRevision:
		return bacnet.EncodeApplicationUnsigned(buf, protocolRevision)
	case bacnet.PropertySegmentationSupported:
		return bacnet.EncodeApplicationEnumerated(buf, uint32(bacnet.SegmentationNone))
	case bacnet.PropertyMaxApduLengthAccepted:
		return bacnet.EncodeApplicationUnsigned(buf, bacnet.MaxAPDULength)
	case bacnet.PropertyObjectList:
		return d.readObjectList(req.ArrayIndex, buf)
	case bacnet.PropertyDatabaseRevision:
		return bacnet.EncodeApplicationUnsigned(buf, d.databaseRevision)
	case bacnet.PropertyDescription:
		return bacnet.EncodeApplicationCharacterString(buf, d.description)
	default:
		return 0, bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
	}
}

func (d *Device) readObjectList(arrayIndex uint32, buf []byte) (int, error) {
	count := d.ObjectCount()
	switch arrayIndex {
	case 0:
		return bacnet.EncodeApplicationUnsigned(buf, uint32(count))
	case object.ArrayAll:
		pos := 0
		for i := 1; i <= count; i++ {
			id, ok := d.ObjectListElement(i)
			if !ok {
				return 0, bacnet.NewError(bacnet.ErrorClassDevice, bacnet.ErrorCodeOther)
			}
			n, err := bacnet.EncodeApplicationObjectID(buf[pos:], id.Type, id.Instance)
			if err != nil {
				return 0, bacnet.NewError(bacnet.ErrorClassServices, bacnet.ErrorCodeNoSpaceToWriteProperty)
			}
			pos += n
		}
		return pos, nil
	default:
		id, ok := d.ObjectListElement(int(arrayIndex))
		if !ok {
			return 0, bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeInvalidArrayIndex)
		}
		return bacnet.EncodeApplicationObjectID(buf, id.Type, id.Instance)
	}
}

// writeDeviceProperty applies writes to the device object. Only the
// object name is writable, under the same uniqueness rule as every
// other object.
func (d *Device) writeDeviceProperty(req *object.WriteRequest) error {
	switch req.Property {
	case bacnet.PropertyObjectName:
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
		if name == d.name {
			return nil
		}
		if _, ok := d.ValidObjectName(name); ok {
			return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeDuplicateName)
		}
		d.name = name
		d.IncrementRevision()
		return nil
	case bacnet.PropertyObjectIdentifier, bacnet.PropertyObjectType,
		bacnet.PropertySystemStatus, bacnet.PropertyVendorName,
		bacnet.PropertyVendorIdentifier, bacnet.PropertyModelName,
		bacnet.PropertyFirmwareRevision, bacnet.PropertyApplicationSoftwareVersion,
		bacnet.PropertyProtocolVersion, bacnet.PropertyProtocolRevision,
		bacnet.PropertySegmentationSupported, bacnet.PropertyMaxApduLengthAccepted,
		bacnet.PropertyObjectList, bacnet.PropertyDatabaseRevision,
		bacnet.PropertyDescription:
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeWriteAccessDenied)
	default:
		return bacnet.NewError(bacnet.ErrorClassProperty, bacnet.ErrorCodeUnknownProperty)
	}
}
