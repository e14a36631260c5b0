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
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/edgeo-scada/bacnetd/bacnet"
	"github.com/edgeo-scada/bacnetd/object"
	"github.com/edgeo-scada/bacnetd/object/analogvalue"
	"github.com/edgeo-scada/bacnetd/object/colortemp"
)

func newTestDevice(t *testing.T) (*Device, *colortemp.Store, *analogvalue.Store) {
	t.Helper()
	dev, err := New(1234, WithName("srv-1"))
	if err != nil {
		t.Fatal(err)
	}
	notify := object.ChangeNotifier(dev.IncrementRevision)
	ct := colortemp.NewStore(colortemp.WithChangeNotifier(notify))
	av := analogvalue.NewStore(analogvalue.WithChangeNotifier(notify))
	dev.Register(ct)
	dev.Register(av)
	return dev, ct, av
}

func encodeReal(t *testing.T, v float32) []byte {
	t.Helper()
	buf := make([]byte, 8)
	n, err := bacnet.EncodeApplicationReal(buf, v)
	if err != nil {
		t.Fatal(err)
	}
	return buf[:n]
}

func encodeString(t *testing.T, s string) []byte {
	t.Helper()
	buf := make([]byte, 64)
	n, err := bacnet.EncodeApplicationCharacterString(buf, s)
	if err != nil {
		t.Fatal(err)
	}
	return buf[:n]
}

func asPair(t *testing.T, err error) *bacnet.Error {
	t.Helper()
	var pair *bacnet.Error
	if !errors.As(err, &pair) {
		t.Fatalf("expected error pair, got %v", err)
	}
	return pair
}

func TestReadUnknownObject(t *testing.T) {
	is := is.New(t)
	dev, ct, _ := newTestDevice(t)
	_, err := ct.Create(1)
	is.NoErr(err)

	buf := make([]byte, 64)

	// unregistered type
	_, err = dev.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeBinaryValue,
		Instance:   1,
		Property:   bacnet.PropertyPresentValue,
		ArrayIndex: object.ArrayAll,
	}, buf)
	pair := asPair(t, err)
	is.Equal(pair.Class, bacnet.ErrorClassObject)
	is.Equal(pair.Code, bacnet.ErrorCodeUnknownObject)

	// registered type, absent instance
	_, err = dev.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeColorTemperature,
		Instance:   99,
		Property:   bacnet.PropertyPresentValue,
		ArrayIndex: object.ArrayAll,
	}, buf)
	pair = asPair(t, err)
	is.Equal(pair.Code, bacnet.ErrorCodeUnknownObject)
}

func TestReadUnknownProperty(t *testing.T) {
	is := is.New(t)
	dev, ct, _ := newTestDevice(t)
	_, err := ct.Create(1)
	is.NoErr(err)

	buf := make([]byte, 64)
	_, err = dev.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeColorTemperature,
		Instance:   1,
		Property:   bacnet.PropertyUnits,
		ArrayIndex: object.ArrayAll,
	}, buf)
	pair := asPair(t, err)
	is.Equal(pair.Class, bacnet.ErrorClassProperty)
	is.Equal(pair.Code, bacnet.ErrorCodeUnknownProperty)
}

func TestArrayIndexOnScalarProperty(t *testing.T) {
	is := is.New(t)
	dev, ct, _ := newTestDevice(t)
	_, err := ct.Create(1)
	is.NoErr(err)

	buf := make([]byte, 64)
	_, err = dev.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeColorTemperature,
		Instance:   1,
		Property:   bacnet.PropertyPresentValue,
		ArrayIndex: 1,
	}, buf)
	pair := asPair(t, err)
	is.Equal(pair.Class, bacnet.ErrorClassProperty)
	is.Equal(pair.Code, bacnet.ErrorCodePropertyIsNotAnArray)

	// the same rule applies to writes
	err = dev.WriteProperty(&object.WriteRequest{
		ObjectType: bacnet.ObjectTypeColorTemperature,
		Instance:   1,
		Property:   bacnet.PropertyPresentValue,
		ArrayIndex: 2,
		Data:       encodeReal(t, 1.0),
	})
	pair = asPair(t, err)
	is.Equal(pair.Code, bacnet.ErrorCodePropertyIsNotAnArray)
}

func TestWriteDecodeFailure(t *testing.T) {
	is := is.New(t)
	dev, _, av := newTestDevice(t)
	_, err := av.Create(1)
	is.NoErr(err)

	err = dev.WriteProperty(&object.WriteRequest{
		ObjectType: bacnet.ObjectTypeAnalogValue,
		Instance:   1,
		Property:   bacnet.PropertyPresentValue,
		ArrayIndex: object.ArrayAll,
		Priority:   8,
		Data:       []byte{0x44, 0x01}, // truncated real
	})
	pair := asPair(t, err)
	is.Equal(pair.Class, bacnet.ErrorClassProperty)
	is.Equal(pair.Code, bacnet.ErrorCodeValueOutOfRange)
}

func TestIdentityPropertiesReadOnly(t *testing.T) {
	is := is.New(t)
	dev, ct, _ := newTestDevice(t)
	_, err := ct.Create(1)
	is.NoErr(err)

	for _, p := range []bacnet.PropertyIdentifier{
		bacnet.PropertyObjectIdentifier, bacnet.PropertyObjectType,
	} {
		err = dev.WriteProperty(&object.WriteRequest{
			ObjectType: bacnet.ObjectTypeColorTemperature,
			Instance:   1,
			Property:   p,
			ArrayIndex: object.ArrayAll,
			Data:       encodeReal(t, 1.0),
		})
		pair := asPair(t, err)
		is.Equal(pair.Class, bacnet.ErrorClassProperty)
		is.Equal(pair.Code, bacnet.ErrorCodeWriteAccessDenied)
	}
}

func TestNameUniqueness(t *testing.T) {
	is := is.New(t)
	dev, ct, _ := newTestDevice(t)
	_, err := ct.Create(1)
	is.NoErr(err)
	_, err = ct.Create(2)
	is.NoErr(err)

	rev := dev.DatabaseRevision()

	// claim a name
	err = dev.WriteProperty(&object.WriteRequest{
		ObjectType: bacnet.ObjectTypeColorTemperature,
		Instance:   1,
		Property:   bacnet.PropertyObjectName,
		ArrayIndex: object.ArrayAll,
		Data:       encodeString(t, "lobby"),
	})
	is.NoErr(err)
	is.Equal(dev.DatabaseRevision(), rev+1)

	// the same name on another object collides
	err = dev.WriteProperty(&object.WriteRequest{
		ObjectType: bacnet.ObjectTypeColorTemperature,
		Instance:   2,
		Property:   bacnet.PropertyObjectName,
		ArrayIndex: object.ArrayAll,
		Data:       encodeString(t, "lobby"),
	})
	pair := asPair(t, err)
	is.Equal(pair.Class, bacnet.ErrorClassProperty)
	is.Equal(pair.Code, bacnet.ErrorCodeDuplicateName)
	is.Equal(dev.DatabaseRevision(), rev+1) // failed write bumps nothing

	// renaming an object to its own name is a no-op success
	err = dev.WriteProperty(&object.WriteRequest{
		ObjectType: bacnet.ObjectTypeColorTemperature,
		Instance:   1,
		Property:   bacnet.PropertyObjectName,
		ArrayIndex: object.ArrayAll,
		Data:       encodeString(t, "lobby"),
	})
	is.NoErr(err)
	is.Equal(dev.DatabaseRevision(), rev+1)
}

func TestDeviceNameCollision(t *testing.T) {
	is := is.New(t)
	dev, ct, _ := newTestDevice(t)
	instance, err := ct.Create(1)
	is.NoErr(err)
	is.True(ct.SetObjectName(instance, "shared"))

	err = dev.WriteProperty(&object.WriteRequest{
		ObjectType: bacnet.ObjectTypeDevice,
		Instance:   1234,
		Property:   bacnet.PropertyObjectName,
		ArrayIndex: object.ArrayAll,
		Data:       encodeString(t, "shared"),
	})
	pair := asPair(t, err)
	is.Equal(pair.Code, bacnet.ErrorCodeDuplicateName)
	is.Equal(dev.Name(), "srv-1")
}

func TestRevisionCountsStructuralChanges(t *testing.T) {
	is := is.New(t)
	dev, ct, _ := newTestDevice(t)

	rev := dev.DatabaseRevision()
	_, err := dev.CreateObject(bacnet.ObjectTypeColorTemperature, 7)
	is.NoErr(err)
	is.Equal(dev.DatabaseRevision(), rev+1)

	is.NoErr(dev.DeleteObject(bacnet.ObjectTypeColorTemperature, 7))
	is.Equal(dev.DatabaseRevision(), rev+2)

	// reads never bump
	buf := make([]byte, 64)
	_, err = ct.Create(8)
	is.NoErr(err)
	before := dev.DatabaseRevision()
	_, err = dev.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeColorTemperature,
		Instance:   8,
		Property:   bacnet.PropertyObjectName,
		ArrayIndex: object.ArrayAll,
	}, buf)
	is.NoErr(err)
	is.Equal(dev.DatabaseRevision(), before)
}

func TestWildcardCreateFillsGaps(t *testing.T) {
	is := is.New(t)
	dev, _, _ := newTestDevice(t)

	for _, want := range []uint32{1, 2, 3} {
		got, err := dev.CreateObject(bacnet.ObjectTypeColorTemperature, bacnet.WildcardInstance)
		is.NoErr(err)
		is.Equal(got, want)
	}

	is.NoErr(dev.DeleteObject(bacnet.ObjectTypeColorTemperature, 2))

	got, err := dev.CreateObject(bacnet.ObjectTypeColorTemperature, bacnet.WildcardInstance)
	is.NoErr(err)
	is.Equal(got, uint32(2))
}

func TestObjectListReads(t *testing.T) {
	is := is.New(t)
	dev, ct, av := newTestDevice(t)
	_, err := ct.Create(1)
	is.NoErr(err)
	_, err = av.Create(3)
	is.NoErr(err)

	buf := make([]byte, 256)

	// index 0 is the element count
	n, err := dev.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeDevice,
		Instance:   1234,
		Property:   bacnet.PropertyObjectList,
		ArrayIndex: 0,
	}, buf)
	is.NoErr(err)
	count, _, err := bacnet.DecodeApplicationUnsigned(buf[:n])
	is.NoErr(err)
	is.Equal(count, uint32(3))

	// element 1 is the device object
	n, err = dev.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeDevice,
		Instance:   1234,
		Property:   bacnet.PropertyObjectList,
		ArrayIndex: 1,
	}, buf)
	is.NoErr(err)
	id, _, err := bacnet.DecodeApplicationObjectID(buf[:n])
	is.NoErr(err)
	is.Equal(id.Type, bacnet.ObjectTypeDevice)
	is.Equal(id.Instance, uint32(1234))

	// past the end
	_, err = dev.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeDevice,
		Instance:   1234,
		Property:   bacnet.PropertyObjectList,
		ArrayIndex: 9,
	}, buf)
	pair := asPair(t, err)
	is.Equal(pair.Code, bacnet.ErrorCodeInvalidArrayIndex)
}

func TestCommandablePresentValue(t *testing.T) {
	is := is.New(t)
	dev, _, av := newTestDevice(t)
	_, err := av.Create(1)
	is.NoErr(err)
	is.True(av.SetRelinquishDefault(1, 20.0))

	write := func(data []byte, priority uint8) error {
		return dev.WriteProperty(&object.WriteRequest{
			ObjectType: bacnet.ObjectTypeAnalogValue,
			Instance:   1,
			Property:   bacnet.PropertyPresentValue,
			ArrayIndex: object.ArrayAll,
			Priority:   priority,
			Data:       data,
		})
	}

	is.NoErr(write(encodeReal(t, 30.0), 8))
	is.Equal(av.PresentValue(1), float32(30.0))

	is.NoErr(write(encodeReal(t, 99.0), 2))
	is.Equal(av.PresentValue(1), float32(99.0))

	// the reserved slot is never writable
	err = write(encodeReal(t, 1.0), object.ReservedPriority)
	pair := asPair(t, err)
	is.Equal(pair.Code, bacnet.ErrorCodeWriteAccessDenied)

	// relinquish with Null
	null := []byte{0x00}
	is.NoErr(write(null, 2))
	is.Equal(av.PresentValue(1), float32(30.0))
	is.NoErr(write(null, 8))
	is.Equal(av.PresentValue(1), float32(20.0)) // relinquish default
}

func TestDeviceObjectProperties(t *testing.T) {
	is := is.New(t)
	dev, _, _ := newTestDevice(t)

	buf := make([]byte, 64)
	n, err := dev.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeDevice,
		Instance:   1234,
		Property:   bacnet.PropertyObjectName,
		ArrayIndex: object.ArrayAll,
	}, buf)
	is.NoErr(err)
	name, _, err := bacnet.DecodeApplicationCharacterString(buf[:n])
	is.NoErr(err)
	is.Equal(name, "srv-1")

	n, err = dev.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeDevice,
		Instance:   bacnet.WildcardInstance, // wildcard addresses this device
		Property:   bacnet.PropertyMaxApduLengthAccepted,
		ArrayIndex: object.ArrayAll,
	}, buf)
	is.NoErr(err)
	apdu, _, err := bacnet.DecodeApplicationUnsigned(buf[:n])
	is.NoErr(err)
	is.Equal(apdu, uint32(bacnet.MaxAPDULength))
}

func TestStatsCountDispatchedRequests(t *testing.T) {
	is := is.New(t)
	dev, ct, _ := newTestDevice(t)
	_, err := ct.Create(1)
	is.NoErr(err)

	buf := make([]byte, 64)
	_, err = dev.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeColorTemperature,
		Instance:   1,
		Property:   bacnet.PropertyPresentValue,
		ArrayIndex: object.ArrayAll,
	}, buf)
	is.NoErr(err)

	// a failed read counts as both a request and an error
	_, err = dev.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeColorTemperature,
		Instance:   99,
		Property:   bacnet.PropertyPresentValue,
		ArrayIndex: object.ArrayAll,
	}, buf)
	is.True(err != nil)

	err = dev.WriteProperty(&object.WriteRequest{
		ObjectType: bacnet.ObjectTypeColorTemperature,
		Instance:   1,
		Property:   bacnet.PropertyPresentValue,
		ArrayIndex: object.ArrayAll,
		Data:       encodeReal(t, 1.0), // unsigned expected: decode-type failure
	})
	is.True(err != nil)

	snap := dev.Stats().Snapshot()
	is.Equal(snap.ReadRequests, uint64(2))
	is.Equal(snap.ReadErrors, uint64(1))
	is.Equal(snap.WriteRequests, uint64(1))
	is.Equal(snap.WriteErrors, uint64(1))
}
