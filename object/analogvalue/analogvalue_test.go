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

package analogvalue

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/edgeo-scada/bacnetd/bacnet"
	"github.com/edgeo-scada/bacnetd/object"
)

func TestPresentValueResolution(t *testing.T) {
	is := is.New(t)

	s := NewStore()
	_, err := s.Create(1)
	is.NoErr(err)
	is.True(s.SetRelinquishDefault(1, 18.0))

	// fully relinquished: the default rules
	is.Equal(s.PresentValue(1), float32(18.0))
	is.Equal(s.ActivePriority(1), object.NoPriority)

	is.NoErr(s.SetPresentValue(1, 22.5, 12))
	is.Equal(s.PresentValue(1), float32(22.5))
	is.Equal(s.ActivePriority(1), uint8(12))

	is.NoErr(s.SetPresentValue(1, 30.0, 4))
	is.Equal(s.PresentValue(1), float32(30.0))

	is.NoErr(s.Relinquish(1, 4))
	is.Equal(s.PresentValue(1), float32(22.5))

	is.NoErr(s.Relinquish(1, 12))
	is.Equal(s.PresentValue(1), float32(18.0))
}

func TestWriteWithoutPriorityCommandsLowestSlot(t *testing.T) {
	is := is.New(t)

	s := NewStore()
	_, err := s.Create(1)
	is.NoErr(err)
	is.True(s.SetRelinquishDefault(1, 18.0))

	buf := make([]byte, 8)
	n, err := bacnet.EncodeApplicationReal(buf, 42.5)
	is.NoErr(err)

	req := &object.WriteRequest{
		ObjectType: bacnet.ObjectTypeAnalogValue,
		Instance:   1,
		Property:   bacnet.PropertyPresentValue,
		ArrayIndex: object.ArrayAll,
		Priority:   object.NoPriority,
		Data:       buf[:n],
	}
	is.NoErr(s.WriteProperty(req))
	is.Equal(s.PresentValue(1), float32(42.5))
	is.Equal(s.ActivePriority(1), object.MaxPriority)

	// a Null with no priority relinquishes the same slot
	n, err = bacnet.EncodeApplicationNull(buf)
	is.NoErr(err)
	req.Data = buf[:n]
	is.NoErr(s.WriteProperty(req))
	is.Equal(s.PresentValue(1), float32(18.0))
	is.Equal(s.ActivePriority(1), object.NoPriority)
}

func TestOutOfServiceShadowsValue(t *testing.T) {
	is := is.New(t)

	s := NewStore()
	_, err := s.Create(1)
	is.NoErr(err)
	is.True(s.SetRelinquishDefault(1, 10.0))

	is.True(s.SetOutOfService(1, true))
	is.Equal(s.PresentValue(1), float32(10.0)) // shadow seeded from live value

	is.NoErr(s.SetPresentValue(1, 55.0, 8))
	is.Equal(s.PresentValue(1), float32(55.0))

	// priority array untouched while decoupled
	is.True(s.SetOutOfService(1, false))
	is.Equal(s.PresentValue(1), float32(10.0))
}

func TestPriorityArrayReads(t *testing.T) {
	is := is.New(t)

	s := NewStore()
	_, err := s.Create(1)
	is.NoErr(err)
	is.NoErr(s.SetPresentValue(1, 71.5, 9))

	buf := make([]byte, 128)

	// index 0 is the array size
	n, err := s.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeAnalogValue,
		Instance:   1,
		Property:   bacnet.PropertyPriorityArray,
		ArrayIndex: 0,
	}, buf)
	is.NoErr(err)
	size, _, err := bacnet.DecodeApplicationUnsigned(buf[:n])
	is.NoErr(err)
	is.Equal(size, uint32(16))

	// an active slot reads as Real
	n, err = s.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeAnalogValue,
		Instance:   1,
		Property:   bacnet.PropertyPriorityArray,
		ArrayIndex: 9,
	}, buf)
	is.NoErr(err)
	v, _, err := bacnet.DecodeApplicationReal(buf[:n])
	is.NoErr(err)
	is.Equal(v, float32(71.5))

	// a released slot reads as Null
	n, err = s.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeAnalogValue,
		Instance:   1,
		Property:   bacnet.PropertyPriorityArray,
		ArrayIndex: 1,
	}, buf)
	is.NoErr(err)
	consumed, err := bacnet.DecodeApplicationNull(buf[:n])
	is.NoErr(err)
	is.Equal(consumed, n)

	// past the sixteenth slot
	_, err = s.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeAnalogValue,
		Instance:   1,
		Property:   bacnet.PropertyPriorityArray,
		ArrayIndex: 17,
	}, buf)
	var pair *bacnet.Error
	is.True(errors.As(err, &pair))
	is.Equal(pair.Code, bacnet.ErrorCodeInvalidArrayIndex)
}

func TestWholePriorityArrayRead(t *testing.T) {
	is := is.New(t)

	s := NewStore()
	_, err := s.Create(1)
	is.NoErr(err)
	is.NoErr(s.SetPresentValue(1, 3.5, 16))

	buf := make([]byte, 128)
	n, err := s.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeAnalogValue,
		Instance:   1,
		Property:   bacnet.PropertyPriorityArray,
		ArrayIndex: object.ArrayAll,
	}, buf)
	is.NoErr(err)

	// fifteen Nulls then one Real
	pos := 0
	for slot := 1; slot <= 15; slot++ {
		consumed, err := bacnet.DecodeApplicationNull(buf[pos:n])
		is.NoErr(err)
		pos += consumed
	}
	v, consumed, err := bacnet.DecodeApplicationReal(buf[pos:n])
	is.NoErr(err)
	is.Equal(v, float32(3.5))
	is.Equal(pos+consumed, n)
}

func TestStatusFlagsTrackOutOfService(t *testing.T) {
	is := is.New(t)

	s := NewStore()
	_, err := s.Create(1)
	is.NoErr(err)
	is.True(s.SetOutOfService(1, true))

	buf := make([]byte, 16)
	n, err := s.ReadProperty(&object.ReadRequest{
		ObjectType: bacnet.ObjectTypeAnalogValue,
		Instance:   1,
		Property:   bacnet.PropertyStatusFlags,
		ArrayIndex: object.ArrayAll,
	}, buf)
	is.NoErr(err)

	flags, _, err := bacnet.DecodeApplicationBitString(buf[:n])
	is.NoErr(err)
	is.Equal(flags.Length, uint8(4))
	is.True(!flags.Bit(0)) // in-alarm
	is.True(!flags.Bit(1)) // fault
	is.True(!flags.Bit(2)) // overridden
	is.True(flags.Bit(3))  // out-of-service
}
