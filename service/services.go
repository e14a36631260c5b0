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

package service

import (
	"github.com/edgeo-scada/bacnetd/bacnet"
	"github.com/edgeo-scada/bacnetd/object"
)

// ReadPropertyRequest is a decoded ReadProperty-Request
type ReadPropertyRequest struct {
	ObjectID   bacnet.ObjectIdentifier
	Property   bacnet.PropertyIdentifier
	ArrayIndex uint32
}

// DecodeReadPropertyRequest decodes the service data of a
// ReadProperty-Request: [0] object identifier, [1] property
// identifier, [2] optional array index.
func DecodeReadPropertyRequest(data []byte) (*ReadPropertyRequest, error) {
	req := &ReadPropertyRequest{ArrayIndex: object.ArrayAll}
	pos := 0

	id, n, err := bacnet.DecodeContextObjectID(data, 0)
	if err != nil {
		return nil, err
	}
	pos += n

	prop, n, err := bacnet.DecodeContextUnsigned(data[pos:], 1)
	if err != nil {
		return nil, err
	}
	pos += n

	req.ObjectID = id
	req.Property = bacnet.PropertyIdentifier(prop)

	if pos < len(data) {
		index, _, err := bacnet.DecodeContextUnsigned(data[pos:], 2)
		if err != nil {
			return nil, err
		}
		req.ArrayIndex = index
	}
	return req, nil
}

// EncodeReadPropertyRequest encodes a ReadProperty-Request
func EncodeReadPropertyRequest(req *ReadPropertyRequest) ([]byte, error) {
	buf := make([]byte, 16)
	pos, err := bacnet.EncodeContextObjectID(buf, 0, req.ObjectID.Type, req.ObjectID.Instance)
	if err != nil {
		return nil, err
	}
	n, err := bacnet.EncodeContextUnsigned(buf[pos:], 1, uint32(req.Property))
	if err != nil {
		return nil, err
	}
	pos += n
	if req.ArrayIndex != object.ArrayAll {
		n, err = bacnet.EncodeContextUnsigned(buf[pos:], 2, req.ArrayIndex)
		if err != nil {
			return nil, err
		}
		pos += n
	}
	return buf[:pos], nil
}

// EncodeReadPropertyAck encodes the service data of a
// ReadProperty-ACK: the request echo plus the value wrapped in a [3]
// constructed tag.
func EncodeReadPropertyAck(req *ReadPropertyRequest, value []byte) ([]byte, error) {
	buf := make([]byte, 20+len(value))
	pos, err := bacnet.EncodeContextObjectID(buf, 0, req.ObjectID.Type, req.ObjectID.Instance)
	if err != nil {
		return nil, err
	}
	n, err := bacnet.EncodeContextUnsigned(buf[pos:], 1, uint32(req.Property))
	if err != nil {
		return nil, err
	}
	pos += n
	if req.ArrayIndex != object.ArrayAll {
		n, err = bacnet.EncodeContextUnsigned(buf[pos:], 2, req.ArrayIndex)
		if err != nil {
			return nil, err
		}
		pos += n
	}
	n, err = bacnet.EncodeOpeningTag(buf[pos:], 3)
	if err != nil {
		return nil, err
	}
	pos += n
	pos += copy(buf[pos:], value)
	n, err = bacnet.EncodeClosingTag(buf[pos:], 3)
	if err != nil {
		return nil, err
	}
	pos += n
	return buf[:pos], nil
}

// DecodeReadPropertyAck decodes a ReadProperty-ACK, returning the
// request echo and the raw encoded value.
func DecodeReadPropertyAck(data []byte) (*ReadPropertyRequest, []byte, error) {
	req := &ReadPropertyRequest{ArrayIndex: object.ArrayAll}
	pos := 0

	id, n, err := bacnet.DecodeContextObjectID(data, 0)
	if err != nil {
		return nil, nil, err
	}
	pos += n
	req.ObjectID = id

	prop, n, err := bacnet.DecodeContextUnsigned(data[pos:], 1)
	if err != nil {
		return nil, nil, err
	}
	pos += n
	req.Property = bacnet.PropertyIdentifier(prop)

	if index, n, err := bacnet.DecodeContextUnsigned(data[pos:], 2); err == nil {
		req.ArrayIndex = index
		pos += n
	}

	n, err = bacnet.DecodeOpeningTag(data[pos:], 3)
	if err != nil {
		return nil, nil, err
	}
	pos += n
	end, err := findClosingTag(data[pos:], 3)
	if err != nil {
		return nil, nil, err
	}
	return req, data[pos : pos+end], nil
}

// WritePropertyRequest is a decoded WriteProperty-Request. Value holds
// the raw encoding between the [3] tags; Priority is
// object.NoPriority when absent.
type WritePropertyRequest struct {
	ObjectID   bacnet.ObjectIdentifier
	Property   bacnet.PropertyIdentifier
	ArrayIndex uint32
	Value      []byte
	Priority   uint8
}

// DecodeWritePropertyRequest decodes the service data of a
// WriteProperty-Request: [0] object identifier, [1] property, [2]
// optional array index, [3] value, [4] optional priority.
func DecodeWritePropertyRequest(data []byte) (*WritePropertyRequest, error) {
	req := &WritePropertyRequest{
		ArrayIndex: object.ArrayAll,
		Priority:   object.NoPriority,
	}
	pos := 0

	id, n, err := bacnet.DecodeContextObjectID(data, 0)
	if err != nil {
		return nil, err
	}
	pos += n
	req.ObjectID = id

	prop, n, err := bacnet.DecodeContextUnsigned(data[pos:], 1)
	if err != nil {
		return nil, err
	}
	pos += n
	req.Property = bacnet.PropertyIdentifier(prop)

	if index, n, err := bacnet.DecodeContextUnsigned(data[pos:], 2); err == nil {
		req.ArrayIndex = index
		pos += n
	}

	n, err = bacnet.DecodeOpeningTag(data[pos:], 3)
	if err != nil {
		return nil, err
	}
	pos += n
	end, err := findClosingTag(data[pos:], 3)
	if err != nil {
		return nil, err
	}
	req.Value = data[pos : pos+end]
	pos += end
	n, err = bacnet.DecodeClosingTag(data[pos:], 3)
	if err != nil {
		return nil, err
	}
	pos += n

	if pos < len(data) {
		priority, _, err := bacnet.DecodeContextUnsigned(data[pos:], 4)
		if err != nil {
			return nil, err
		}
		if priority < uint32(object.MinPriority) || priority > uint32(object.MaxPriority) {
			return nil, bacnet.ErrValueRange
		}
		req.Priority = uint8(priority)
	}
	return req, nil
}

// EncodeWritePropertyRequest encodes a WriteProperty-Request
func EncodeWritePropertyRequest(req *WritePropertyRequest) ([]byte, error) {
	buf := make([]byte, 24+len(req.Value))
	pos, err := bacnet.EncodeContextObjectID(buf, 0, req.ObjectID.Type, req.ObjectID.Instance)
	if err != nil {
		return nil, err
	}
	n, err := bacnet.EncodeContextUnsigned(buf[pos:], 1, uint32(req.Property))
	if err != nil {
		return nil, err
	}
	pos += n
	if req.ArrayIndex != object.ArrayAll {
		n, err = bacnet.EncodeContextUnsigned(buf[pos:], 2, req.ArrayIndex)
		if err != nil {
			return nil, err
		}
		pos += n
	}
	n, err = bacnet.EncodeOpeningTag(buf[pos:], 3)
	if err != nil {
		return nil, err
	}
	pos += n
	pos += copy(buf[pos:], req.Value)
	n, err = bacnet.EncodeClosingTag(buf[pos:], 3)
	if err != nil {
		return nil, err
	}
	pos += n
	if req.Priority != object.NoPriority {
		n, err = bacnet.EncodeContextUnsigned(buf[pos:], 4, uint32(req.Priority))
		if err != nil {
			return nil, err
		}
		pos += n
	}
	return buf[:pos], nil
}

// WhoIsRequest holds the optional instance range of a Who-Is. A nil
// request means every device answers.
type WhoIsRequest struct {
	Low  uint32
	High uint32
}

// DecodeWhoIsRequest decodes a Who-Is service payload. Empty payload
// means no range filter.
func DecodeWhoIsRequest(data []byte) (*WhoIsRequest, error) {
	if len(data) == 0 {
		return nil, nil
	}
	low, n, err := bacnet.DecodeContextUnsigned(data, 0)
	if err != nil {
		return nil, err
	}
	high, _, err := bacnet.DecodeContextUnsigned(data[n:], 1)
	if err != nil {
		return nil, err
	}
	return &WhoIsRequest{Low: low, High: high}, nil
}

// Matches reports whether a device instance falls in the Who-Is range
func (w *WhoIsRequest) Matches(instance uint32) bool {
	if w == nil {
		return true
	}
	return instance >= w.Low && instance <= w.High
}

// EncodeIAm encodes an I-Am service payload for a device
func EncodeIAm(instance uint32, maxAPDU uint32, segmentation bacnet.Segmentation, vendorID uint16) ([]byte, error) {
	buf := make([]byte, 16)
	pos, err := bacnet.EncodeApplicationObjectID(buf, bacnet.ObjectTypeDevice, instance)
	if err != nil {
		return nil, err
	}
	n, err := bacnet.EncodeApplicationUnsigned(buf[pos:], maxAPDU)
	if err != nil {
		return nil, err
	}
	pos += n
	n, err = bacnet.EncodeApplicationEnumerated(buf[pos:], uint32(segmentation))
	if err != nil {
		return nil, err
	}
	pos += n
	n, err = bacnet.EncodeApplicationUnsigned(buf[pos:], uint32(vendorID))
	if err != nil {
		return nil, err
	}
	pos += n
	return buf[:pos], nil
}

// CreateObjectRequest asks for a new object. Wildcard instance lets
// the device pick the instance.
type CreateObjectRequest struct {
	ObjectID bacnet.ObjectIdentifier
}

// DecodeCreateObjectRequest decodes the object specifier of a
// CreateObject-Request: the [0] constructed specifier holding a [1]
// object identifier.
func DecodeCreateObjectRequest(data []byte) (*CreateObjectRequest, error) {
	pos, err := bacnet.DecodeOpeningTag(data, 0)
	if err != nil {
		return nil, err
	}
	id, n, err := bacnet.DecodeContextObjectID(data[pos:], 1)
	if err != nil {
		return nil, err
	}
	pos += n
	if _, err := bacnet.DecodeClosingTag(data[pos:], 0); err != nil {
		return nil, err
	}
	return &CreateObjectRequest{ObjectID: id}, nil
}

// EncodeCreateObjectRequest encodes a CreateObject-Request specifier
func EncodeCreateObjectRequest(req *CreateObjectRequest) ([]byte, error) {
	buf := make([]byte, 12)
	pos, err := bacnet.EncodeOpeningTag(buf, 0)
	if err != nil {
		return nil, err
	}
	n, err := bacnet.EncodeContextObjectID(buf[pos:], 1, req.ObjectID.Type, req.ObjectID.Instance)
	if err != nil {
		return nil, err
	}
	pos += n
	n, err = bacnet.EncodeClosingTag(buf[pos:], 0)
	if err != nil {
		return nil, err
	}
	pos += n
	return buf[:pos], nil
}

// EncodeCreateObjectAck encodes the resulting object identifier of a
// successful CreateObject.
func EncodeCreateObjectAck(id bacnet.ObjectIdentifier) ([]byte, error) {
	buf := make([]byte, 8)
	n, err := bacnet.EncodeApplicationObjectID(buf, id.Type, id.Instance)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// DecodeDeleteObjectRequest decodes the object identifier of a
// DeleteObject-Request.
func DecodeDeleteObjectRequest(data []byte) (bacnet.ObjectIdentifier, error) {
	id, _, err := bacnet.DecodeApplicationObjectID(data)
	return id, err
}

// EncodeDeleteObjectRequest encodes a DeleteObject-Request
func EncodeDeleteObjectRequest(id bacnet.ObjectIdentifier) ([]byte, error) {
	buf := make([]byte, 8)
	n, err := bacnet.EncodeApplicationObjectID(buf, id.Type, id.Instance)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// findClosingTag returns the offset of the closing tag with the given
// number at the current nesting depth.
func findClosingTag(data []byte, tagNum uint8) (int, error) {
	pos := 0
	depth := 0
	for pos < len(data) {
		t, n, err := bacnet.DecodeTag(data[pos:])
		if err != nil {
			return 0, err
		}
		switch {
		case t.Closing && depth == 0 && t.Number == tagNum:
			return pos, nil
		case t.Closing:
			depth--
			pos += n
		case t.Opening:
			depth++
			pos += n
		default:
			pos += n
			if !(t.Number == uint8(bacnet.TagBoolean) && !t.Context) {
				pos += int(t.Value)
			}
		}
	}
	return 0, ErrInvalidAPDU
}
