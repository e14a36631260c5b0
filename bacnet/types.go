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

// Package bacnet provides the BACnet application-layer types and the
// tagged binary codec used by every object in a device.
package bacnet

import "fmt"

// MaxAPDULength is the maximum APDU length for BACnet/IP
const MaxAPDULength = 1476

// Object identifier packing: a 10-bit object type and a 22-bit instance.
const (
	InstanceBits = 22

	// MaxInstance is the largest assignable object instance number.
	MaxInstance uint32 = 0x3FFFFE

	// WildcardInstance requests allocation of the next unused instance
	// on object creation.
	WildcardInstance uint32 = 0x3FFFFF
)

// ObjectType represents BACnet object types
type ObjectType uint16

const (
	ObjectTypeAnalogInput       ObjectType = 0
	ObjectTypeAnalogOutput      ObjectType = 1
	ObjectTypeAnalogValue       ObjectType = 2
	ObjectTypeBinaryInput       ObjectType = 3
	ObjectTypeBinaryOutput      ObjectType = 4
	ObjectTypeBinaryValue       ObjectType = 5
	ObjectTypeCalendar          ObjectType = 6
	ObjectTypeCommand           ObjectType = 7
	ObjectTypeDevice            ObjectType = 8
	ObjectTypeEventEnrollment   ObjectType = 9
	ObjectTypeFile              ObjectType = 10
	ObjectTypeGroup             ObjectType = 11
	ObjectTypeLoop              ObjectType = 12
	ObjectTypeMultiStateInput   ObjectType = 13
	ObjectTypeMultiStateOutput  ObjectType = 14
	ObjectTypeNotificationClass ObjectType = 15
	ObjectTypeProgram           ObjectType = 16
	ObjectTypeSchedule          ObjectType = 17
	ObjectTypeMultiStateValue   ObjectType = 19
	ObjectTypeTrendLog          ObjectType = 20
	ObjectTypeAccessDoor        ObjectType = 30
	ObjectTypeAccessCredential  ObjectType = 32
	ObjectTypeAccessPoint       ObjectType = 33
	ObjectTypeAccessZone        ObjectType = 36
	ObjectTypeNetworkPort       ObjectType = 56
	ObjectTypeColor             ObjectType = 62
	ObjectTypeColorTemperature  ObjectType = 63
)

func (o ObjectType) String() string {
	names := map[ObjectType]string{
		ObjectTypeAnalogInput:       "analog-input",
		ObjectTypeAnalogOutput:      "analog-output",
		ObjectTypeAnalogValue:       "analog-value",
		ObjectTypeBinaryInput:       "binary-input",
		ObjectTypeBinaryOutput:      "binary-output",
		ObjectTypeBinaryValue:       "binary-value",
		ObjectTypeCalendar:          "calendar",
		ObjectTypeCommand:           "command",
		ObjectTypeDevice:            "device",
		ObjectTypeEventEnrollment:   "event-enrollment",
		ObjectTypeFile:              "file",
		ObjectTypeGroup:             "group",
		ObjectTypeLoop:              "loop",
		ObjectTypeMultiStateInput:   "multi-state-input",
		ObjectTypeMultiStateOutput:  "multi-state-output",
		ObjectTypeNotificationClass: "notification-class",
		ObjectTypeProgram:           "program",
		ObjectTypeSchedule:          "schedule",
		ObjectTypeMultiStateValue:   "multi-state-value",
		ObjectTypeTrendLog:          "trend-log",
		ObjectTypeAccessDoor:        "access-door",
		ObjectTypeAccessCredential:  "access-credential",
		ObjectTypeAccessPoint:       "access-point",
		ObjectTypeAccessZone:        "access-zone",
		ObjectTypeNetworkPort:       "network-port",
		ObjectTypeColor:             "color",
		ObjectTypeColorTemperature:  "color-temperature",
	}
	if name, ok := names[o]; ok {
		return name
	}
	return fmt.Sprintf("vendor-specific(%d)", uint16(o))
}

// ParseObjectType parses a string to ObjectType
func ParseObjectType(s string) (ObjectType, bool) {
	types := map[string]ObjectType{
		"analog-value":      ObjectTypeAnalogValue,
		"av":                ObjectTypeAnalogValue,
		"device":            ObjectTypeDevice,
		"dev":               ObjectTypeDevice,
		"access-zone":       ObjectTypeAccessZone,
		"az":                ObjectTypeAccessZone,
		"network-port":      ObjectTypeNetworkPort,
		"color-temperature": ObjectTypeColorTemperature,
		"ct":                ObjectTypeColorTemperature,
	}
	if t, ok := types[s]; ok {
		return t, true
	}
	return 0, false
}

// PropertyIdentifier represents BACnet property identifiers
type PropertyIdentifier uint32

const (
	PropertyDescription                PropertyIdentifier = 28
	PropertyDeviceAddressBinding       PropertyIdentifier = 30
	PropertyEventState                 PropertyIdentifier = 36
	PropertyFirmwareRevision           PropertyIdentifier = 44
	PropertyMaxApduLengthAccepted      PropertyIdentifier = 62
	PropertyMaxPresValue               PropertyIdentifier = 65
	PropertyMinPresValue               PropertyIdentifier = 69
	PropertyModelName                  PropertyIdentifier = 70
	PropertyObjectIdentifier           PropertyIdentifier = 75
	PropertyObjectList                 PropertyIdentifier = 76
	PropertyObjectName                 PropertyIdentifier = 77
	PropertyObjectType                 PropertyIdentifier = 79
	PropertyOutOfService               PropertyIdentifier = 81
	PropertyPresentValue               PropertyIdentifier = 85
	PropertyPriorityArray              PropertyIdentifier = 87
	PropertyProtocolVersion            PropertyIdentifier = 98
	PropertyReliability                PropertyIdentifier = 103
	PropertyRelinquishDefault          PropertyIdentifier = 104
	PropertySegmentationSupported      PropertyIdentifier = 107
	PropertyStatusFlags                PropertyIdentifier = 111
	PropertySystemStatus               PropertyIdentifier = 112
	PropertyUnits                      PropertyIdentifier = 117
	PropertyVendorIdentifier           PropertyIdentifier = 120
	PropertyVendorName                 PropertyIdentifier = 121
	PropertyEventTimeStamps            PropertyIdentifier = 130
	PropertyProtocolRevision           PropertyIdentifier = 139
	PropertyDatabaseRevision           PropertyIdentifier = 155
	PropertyTrackingValue              PropertyIdentifier = 164
	PropertyApplicationSoftwareVersion PropertyIdentifier = 12

	// Access Zone
	PropertyOccupancyCount       PropertyIdentifier = 288
	PropertyOccupancyCountAdjust PropertyIdentifier = 289
	PropertyOccupancyCountEnable PropertyIdentifier = 290
	PropertyOccupancyState       PropertyIdentifier = 296

	// Color / Color Temperature
	PropertyInProgress              PropertyIdentifier = 378
	PropertyColorCommand            PropertyIdentifier = 515
	PropertyDefaultColorTemperature PropertyIdentifier = 519
	PropertyDefaultFadeTime         PropertyIdentifier = 520
	PropertyDefaultRampRate         PropertyIdentifier = 521
	PropertyDefaultStepIncrement    PropertyIdentifier = 522
	PropertyTransition              PropertyIdentifier = 523

	// Network port diagnostics
	PropertyApduLength           PropertyIdentifier = 399
	PropertyChangesPending       PropertyIdentifier = 416
	PropertyLinkSpeed            PropertyIdentifier = 420
	PropertyMacAddress           PropertyIdentifier = 423
	PropertyNetworkNumber        PropertyIdentifier = 425
	PropertyNetworkNumberQuality PropertyIdentifier = 427
)

func (p PropertyIdentifier) String() string {
	names := map[PropertyIdentifier]string{
		PropertyObjectIdentifier:           "object-identifier",
		PropertyObjectName:                 "object-name",
		PropertyObjectType:                 "object-type",
		PropertyPresentValue:               "present-value",
		PropertyDescription:                "description",
		PropertyStatusFlags:                "status-flags",
		PropertyEventState:                 "event-state",
		PropertyReliability:                "reliability",
		PropertyOutOfService:               "out-of-service",
		PropertyUnits:                      "units",
		PropertyPriorityArray:              "priority-array",
		PropertyRelinquishDefault:          "relinquish-default",
		PropertyVendorName:                 "vendor-name",
		PropertyVendorIdentifier:           "vendor-identifier",
		PropertyModelName:                  "model-name",
		PropertyFirmwareRevision:           "firmware-revision",
		PropertyApplicationSoftwareVersion: "application-software-version",
		PropertyProtocolVersion:            "protocol-version",
		PropertyProtocolRevision:           "protocol-revision",
		PropertySystemStatus:               "system-status",
		PropertyMaxApduLengthAccepted:      "max-apdu-length-accepted",
		PropertySegmentationSupported:      "segmentation-supported",
		PropertyObjectList:                 "object-list",
		PropertyDatabaseRevision:           "database-revision",
		PropertyTrackingValue:              "tracking-value",
		PropertyEventTimeStamps:            "event-time-stamps",
		PropertyMinPresValue:               "min-pres-value",
		PropertyMaxPresValue:               "max-pres-value",
		PropertyOccupancyCount:             "occupancy-count",
		PropertyOccupancyCountAdjust:       "occupancy-count-adjust",
		PropertyOccupancyCountEnable:       "occupancy-count-enable",
		PropertyOccupancyState:             "occupancy-state",
		PropertyInProgress:                 "in-progress",
		PropertyColorCommand:               "color-command",
		PropertyDefaultColorTemperature:    "default-color-temperature",
		PropertyDefaultFadeTime:            "default-fade-time",
		PropertyDefaultRampRate:            "default-ramp-rate",
		PropertyDefaultStepIncrement:       "default-step-increment",
		PropertyTransition:                 "transition",
		PropertyApduLength:                 "apdu-length",
		PropertyChangesPending:             "changes-pending",
		PropertyLinkSpeed:                  "link-speed",
		PropertyMacAddress:                 "mac-address",
		PropertyNetworkNumber:              "network-number",
		PropertyNetworkNumberQuality:       "network-number-quality",
	}
	if name, ok := names[p]; ok {
		return name
	}
	return fmt.Sprintf("property(%d)", uint32(p))
}

// ObjectIdentifier represents a BACnet object identifier (type + instance)
type ObjectIdentifier struct {
	Type     ObjectType
	Instance uint32
}

// NewObjectIdentifier creates a new ObjectIdentifier
func NewObjectIdentifier(objectType ObjectType, instance uint32) ObjectIdentifier {
	return ObjectIdentifier{
		Type:     objectType,
		Instance: instance,
	}
}

// Pack packs the object identifier into its 32-bit wire form
func (o ObjectIdentifier) Pack() uint32 {
	return (uint32(o.Type) << InstanceBits) | (o.Instance & WildcardInstance)
}

// UnpackObjectIdentifier unpacks a 32-bit wire value to an ObjectIdentifier
func UnpackObjectIdentifier(value uint32) ObjectIdentifier {
	return ObjectIdentifier{
		Type:     ObjectType((value >> InstanceBits) & 0x3FF),
		Instance: value & WildcardInstance,
	}
}

func (o ObjectIdentifier) String() string {
	return fmt.Sprintf("%s:%d", o.Type.String(), o.Instance)
}

// StatusFlags represents the BACnet status flags
type StatusFlags struct {
	InAlarm      bool
	Fault        bool
	Overridden   bool
	OutOfService bool
}

// BitString returns the status flags as a 4-bit bit string
func (s StatusFlags) BitString() BitString {
	var b BitString
	b.SetBit(0, s.InAlarm)
	b.SetBit(1, s.Fault)
	b.SetBit(2, s.Overridden)
	b.SetBit(3, s.OutOfService)
	return b
}

func (s StatusFlags) String() string {
	return fmt.Sprintf("{in-alarm:%v, fault:%v, overridden:%v, out-of-service:%v}",
		s.InAlarm, s.Fault, s.Overridden, s.OutOfService)
}

// BitString is a BACnet bit string: up to 255 bits, packed MSB first.
type BitString struct {
	Length uint8
	Bits   []byte
}

// SetBit sets or clears bit i, growing the string as needed
func (b *BitString) SetBit(i uint8, value bool) {
	byteIndex := int(i / 8)
	for len(b.Bits) <= byteIndex {
		b.Bits = append(b.Bits, 0)
	}
	mask := byte(1 << (7 - i%8))
	if value {
		b.Bits[byteIndex] |= mask
	} else {
		b.Bits[byteIndex] &^= mask
	}
	if i+1 > b.Length {
		b.Length = i + 1
	}
}

// Bit reports whether bit i is set
func (b *BitString) Bit(i uint8) bool {
	if i >= b.Length {
		return false
	}
	return b.Bits[i/8]&(1<<(7-i%8)) != 0
}

// Date is a BACnet date. Year is the full year (wire form is year-1900).
// The value 0xFF in any field (or 0xFFFF for Year) is the "any" wildcard.
type Date struct {
	Year    uint16
	Month   uint8
	Day     uint8
	WeekDay uint8
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time is a BACnet time of day. 0xFF in any field is the "any" wildcard.
type Time struct {
	Hour       uint8
	Minute     uint8
	Second     uint8
	Hundredths uint8
}

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%02d", t.Hour, t.Minute, t.Second, t.Hundredths)
}

// EventState represents the BACnet event state
type EventState uint8

const (
	EventStateNormal    EventState = 0
	EventStateFault     EventState = 1
	EventStateOffNormal EventState = 2
	EventStateHighLimit EventState = 3
	EventStateLowLimit  EventState = 4
)

// Reliability represents the BACnet reliability
type Reliability uint16

const (
	ReliabilityNoFaultDetected      Reliability = 0
	ReliabilityNoSensor             Reliability = 1
	ReliabilityOverRange            Reliability = 2
	ReliabilityUnderRange           Reliability = 3
	ReliabilityOpenLoop             Reliability = 4
	ReliabilityShortedLoop          Reliability = 5
	ReliabilityNoOutput             Reliability = 6
	ReliabilityUnreliableOther      Reliability = 7
	ReliabilityProcessError         Reliability = 8
	ReliabilityConfigurationError   Reliability = 10
	ReliabilityCommunicationFailure Reliability = 12
)

func (r Reliability) String() string {
	names := map[Reliability]string{
		ReliabilityNoFaultDetected:      "no-fault-detected",
		ReliabilityNoSensor:             "no-sensor",
		ReliabilityOverRange:            "over-range",
		ReliabilityUnderRange:           "under-range",
		ReliabilityOpenLoop:             "open-loop",
		ReliabilityShortedLoop:          "shorted-loop",
		ReliabilityNoOutput:             "no-output",
		ReliabilityUnreliableOther:      "unreliable-other",
		ReliabilityProcessError:         "process-error",
		ReliabilityConfigurationError:   "configuration-error",
		ReliabilityCommunicationFailure: "communication-failure",
	}
	if name, ok := names[r]; ok {
		return name
	}
	return fmt.Sprintf("reliability(%d)", uint16(r))
}

// EngineeringUnits represents BACnet engineering units
type EngineeringUnits uint16

const (
	UnitsVolts                   EngineeringUnits = 5
	UnitsHertz                   EngineeringUnits = 27
	UnitsPercentRelativeHumidity EngineeringUnits = 29
	UnitsWatts                   EngineeringUnits = 41
	UnitsKilowatts               EngineeringUnits = 42
	UnitsPascals                 EngineeringUnits = 47
	UnitsDegreesCelsius          EngineeringUnits = 62
	UnitsDegreesKelvin           EngineeringUnits = 63
	UnitsDegreesFahrenheit       EngineeringUnits = 64
	UnitsSeconds                 EngineeringUnits = 73
	UnitsNoUnits                 EngineeringUnits = 95
	UnitsPercent                 EngineeringUnits = 98
)

// Segmentation represents the BACnet segmentation capability
type Segmentation uint8

const (
	SegmentationBoth     Segmentation = 0
	SegmentationTransmit Segmentation = 1
	SegmentationReceive  Segmentation = 2
	SegmentationNone     Segmentation = 3
)

func (s Segmentation) String() string {
	switch s {
	case SegmentationBoth:
		return "segmented-both"
	case SegmentationTransmit:
		return "segmented-transmit"
	case SegmentationReceive:
		return "segmented-receive"
	case SegmentationNone:
		return "no-segmentation"
	default:
		return fmt.Sprintf("segmentation(%d)", uint8(s))
	}
}

// DeviceStatus represents the BACnet device status
type DeviceStatus uint8

const (
	DeviceStatusOperational         DeviceStatus = 0
	DeviceStatusOperationalReadOnly DeviceStatus = 1
	DeviceStatusDownloadRequired    DeviceStatus = 2
	DeviceStatusDownloadInProgress  DeviceStatus = 3
	DeviceStatusNonOperational      DeviceStatus = 4
)

type ApplicationTag uint8

const (
	TagNull            ApplicationTag = 0
	TagBoolean         ApplicationTag = 1
	TagUnsignedInt     ApplicationTag = 2
	TagSignedInt       ApplicationTag = 3
	TagReal            ApplicationTag = 4
	TagDouble          ApplicationTag = 5
	TagOctetString     ApplicationTag = 6
	TagCharacterString ApplicationTag = 7
	TagBitString       ApplicationTag = 8
	TagEnumerated      ApplicationTag = 9
	TagDate            ApplicationTag = 10
	TagTime            ApplicationTag = 11
	TagObjectID        ApplicationTag = 12
)

func (t ApplicationTag) String() string {
	names := map[ApplicationTag]string{
		TagNull:            "null",
		TagBoolean:         "boolean",
		TagUnsignedInt:     "unsigned",
		TagSignedInt:       "signed",
		TagReal:            "real",
		TagDouble:          "double",
		TagOctetString:     "octet-string",
		TagCharacterString: "character-string",
		TagBitString:       "bit-string",
		TagEnumerated:      "enumerated",
		TagDate:            "date",
		TagTime:            "time",
		TagObjectID:        "object-identifier",
	}
	if name, ok := names[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}
