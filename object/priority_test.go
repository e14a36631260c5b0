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

package object

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/edgeo-scada/bacnetd/bacnet"
)

func TestPriorityArrayHighestWins(t *testing.T) {
	is := is.New(t)

	var pa PriorityArray
	_, _, ok := pa.Active()
	is.True(!ok)

	is.NoErr(pa.Set(10, 25.0))
	v, p, ok := pa.Active()
	is.True(ok)
	is.Equal(v, float32(25.0))
	is.Equal(p, uint8(10))

	// a numerically lower slot outranks
	is.NoErr(pa.Set(3, 50.0))
	v, p, ok = pa.Active()
	is.True(ok)
	is.Equal(v, float32(50.0))
	is.Equal(p, uint8(3))

	is.NoErr(pa.Relinquish(3))
	v, p, ok = pa.Active()
	is.True(ok)
	is.Equal(v, float32(25.0))
	is.Equal(p, uint8(10))

	is.NoErr(pa.Relinquish(10))
	_, _, ok = pa.Active()
	is.True(!ok)
}

func TestPriorityArrayReservedSlot(t *testing.T) {
	is := is.New(t)

	var pa PriorityArray
	err := pa.Set(ReservedPriority, 1.0)
	var pair *bacnet.Error
	is.True(errors.As(err, &pair))
	is.Equal(pair.Class, bacnet.ErrorClassProperty)
	is.Equal(pair.Code, bacnet.ErrorCodeWriteAccessDenied)

	err = pa.Relinquish(ReservedPriority)
	is.True(errors.As(err, &pair))
	is.Equal(pair.Code, bacnet.ErrorCodeWriteAccessDenied)
}

func TestPriorityArrayRange(t *testing.T) {
	is := is.New(t)

	var pa PriorityArray
	var pair *bacnet.Error

	is.True(errors.As(pa.Set(0, 1.0), &pair))
	is.Equal(pair.Code, bacnet.ErrorCodeValueOutOfRange)

	is.True(errors.As(pa.Set(17, 1.0), &pair))
	is.Equal(pair.Code, bacnet.ErrorCodeValueOutOfRange)
}

func TestPriorityArrayEncodeSlots(t *testing.T) {
	is := is.New(t)

	var pa PriorityArray
	is.NoErr(pa.Set(16, 10.5))

	buf := make([]byte, 8)
	// relinquished slot encodes as Null
	n, err := pa.EncodeSlot(buf, 1)
	is.NoErr(err)
	is.Equal(n, 1)
	is.Equal(buf[0], byte(0x00))

	n, err = pa.EncodeSlot(buf, 16)
	is.NoErr(err)
	v, _, err := bacnet.DecodeApplicationReal(buf[:n])
	is.NoErr(err)
	is.Equal(v, float32(10.5))
}

func TestCheckArrayIndex(t *testing.T) {
	is := is.New(t)

	is.NoErr(CheckArrayIndex(bacnet.PropertyPresentValue, ArrayAll))
	is.NoErr(CheckArrayIndex(bacnet.PropertyPriorityArray, 3))

	err := CheckArrayIndex(bacnet.PropertyPresentValue, 1)
	var pair *bacnet.Error
	is.True(errors.As(err, &pair))
	is.Equal(pair.Class, bacnet.ErrorClassProperty)
	is.Equal(pair.Code, bacnet.ErrorCodePropertyIsNotAnArray)
}

func TestDecodeWriteValueMapsFailures(t *testing.T) {
	is := is.New(t)

	req := &WriteRequest{Data: []byte{0x44, 0x01}} // real tag, truncated payload
	_, err := DecodeWriteValue(req)
	var pair *bacnet.Error
	is.True(errors.As(err, &pair))
	is.Equal(pair.Class, bacnet.ErrorClassProperty)
	is.Equal(pair.Code, bacnet.ErrorCodeValueOutOfRange)
}
