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

package bacnet

import (
	"encoding/binary"
	"math"
)

// Tag is a decoded tag octet with its extensions. For most tags Value
// is the payload length in bytes; for the boolean application tag it is
// the boolean value itself.
type Tag struct {
	Number  uint8
	Context bool
	Opening bool
	Closing bool
	Value   uint32
}

// DecodeTag decodes one tag from the front of buf and returns the bytes
// consumed. The claimed payload length is validated against the
// remaining buffer, and non-canonical extended-length escalations are
// rejected rather than accepted leniently.
func DecodeTag(buf []byte) (Tag, int, error) {
	var t Tag
	if len(buf) < 1 {
		return t, 0, ErrTruncated
	}
	first := buf[0]
	t.Number = first >> 4
	t.Context = first&0x08 != 0
	pos := 1

	if t.Number == 0x0F {
		if len(buf) < 2 {
			return t, 0, ErrTruncated
		}
		t.Number = buf[1]
		pos = 2
	}

	switch first & 0x07 {
	case 0x06:
		// Opening markers only exist in the context class
		if !t.Context {
			return t, 0, ErrBadTag
		}
		t.Opening = true
		return t, pos, nil
	case 0x07:
		if !t.Context {
			return t, 0, ErrBadTag
		}
		t.Closing = true
		return t, pos, nil
	}

	lenValue := uint32(first & 0x07)
	if lenValue == 5 {
		if len(buf) < pos+1 {
			return t, 0, ErrTruncated
		}
		switch ext := buf[pos]; {
		case ext < 0xFE:
			lenValue = uint32(ext)
			pos++
			if lenValue < 5 {
				return t, 0, ErrNonCanonical
			}
		case ext == 0xFE:
			if len(buf) < pos+3 {
				return t, 0, ErrTruncated
			}
			lenValue = uint32(binary.BigEndian.Uint16(buf[pos+1:]))
			pos += 3
			if lenValue < 254 {
				return t, 0, ErrNonCanonical
			}
		default:
			if len(buf) < pos+5 {
				return t, 0, ErrTruncated
			}
			lenValue = binary.BigEndian.Uint32(buf[pos+1:])
			pos += 5
			if lenValue <= 0xFFFF {
				return t, 0, ErrNonCanonical
			}
		}
	}
	t.Value = lenValue

	// Boolean application tags carry the value inline; everything else
	// claims a payload that must fit the remaining buffer.
	if t.Context || t.Number != uint8(TagBoolean) {
		if uint64(t.Value) > uint64(len(buf)-pos) {
			return t, 0, ErrTruncated
		}
	}
	return t, pos, nil
}

// decodeApplicationTag decodes a tag and checks it is the expected
// application tag.
func decodeApplicationTag(buf []byte, expected ApplicationTag) (Tag, int, error) {
	t, n, err := DecodeTag(buf)
	if err != nil {
		return t, 0, err
	}
	if t.Context || t.Opening || t.Closing || t.Number != uint8(expected) {
		return t, 0, ErrBadTag
	}
	return t, n, nil
}

// decodeUnsignedPayload decodes a 1..4 byte big-endian unsigned value
func decodeUnsignedPayload(buf []byte) (uint32, error) {
	switch len(buf) {
	case 1:
		return uint32(buf[0]), nil
	case 2:
		return uint32(binary.BigEndian.Uint16(buf)), nil
	case 3:
		return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2]), nil
	case 4:
		return binary.BigEndian.Uint32(buf), nil
	default:
		return 0, ErrValueRange
	}
}

// decodeSignedPayload decodes a 1..4 byte big-endian two's-complement value
func decodeSignedPayload(buf []byte) (int32, error) {
	switch len(buf) {
	case 1:
		return int32(int8(buf[0])), nil
	case 2:
		return int32(int16(binary.BigEndian.Uint16(buf))), nil
	case 3:
		v := uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
		if buf[0]&0x80 != 0 {
			v |= 0xFF000000
		}
		return int32(v), nil
	case 4:
		return int32(binary.BigEndian.Uint32(buf)), nil
	default:
		return 0, ErrValueRange
	}
}

// DecodeApplicationNull decodes a Null application value
func DecodeApplicationNull(buf []byte) (int, error) {
	t, n, err := decodeApplicationTag(buf, TagNull)
	if err != nil {
		return 0, err
	}
	if t.Value != 0 {
		return 0, ErrValueRange
	}
	return n, nil
}

// DecodeApplicationBoolean decodes a boolean application value
func DecodeApplicationBoolean(buf []byte) (bool, int, error) {
	t, n, err := decodeApplicationTag(buf, TagBoolean)
	if err != nil {
		return false, 0, err
	}
	if t.Value > 1 {
		return false, 0, ErrValueRange
	}
	return t.Value == 1, n, nil
}

// DecodeApplicationUnsigned decodes an unsigned integer application value
func DecodeApplicationUnsigned(buf []byte) (uint32, int, error) {
	t, n, err := decodeApplicationTag(buf, TagUnsignedInt)
	if err != nil {
		return 0, 0, err
	}
	v, err := decodeUnsignedPayload(buf[n : n+int(t.Value)])
	if err != nil {
		return 0, 0, err
	}
	return v, n + int(t.Value), nil
}

// DecodeApplicationSigned decodes a signed integer application value
func DecodeApplicationSigned(buf []byte) (int32, int, error) {
	t, n, err := decodeApplicationTag(buf, TagSignedInt)
	if err != nil {
		return 0, 0, err
	}
	v, err := decodeSignedPayload(buf[n : n+int(t.Value)])
	if err != nil {
		return 0, 0, err
	}
	return v, n + int(t.Value), nil
}

// DecodeApplicationReal decodes a float32 application value
func DecodeApplicationReal(buf []byte) (float32, int, error) {
	t, n, err := decodeApplicationTag(buf, TagReal)
	if err != nil {
		return 0, 0, err
	}
	if t.Value != 4 {
		return 0, 0, ErrValueRange
	}
	return math.Float32frombits(binary.BigEndian.Uint32(buf[n:])), n + 4, nil
}

// DecodeApplicationDouble decodes a float64 application value
func DecodeApplicationDouble(buf []byte) (float64, int, error) {
	t, n, err := decodeApplicationTag(buf, TagDouble)
	if err != nil {
		return 0, 0, err
	}
	if t.Value != 8 {
		return 0, 0, ErrValueRange
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[n:])), n + 8, nil
}

// DecodeApplicationOctetString decodes an octet string application
// value. The returned slice is a copy; it does not alias buf.
func DecodeApplicationOctetString(buf []byte) ([]byte, int, error) {
	t, n, err := decodeApplicationTag(buf, TagOctetString)
	if err != nil {
		return nil, 0, err
	}
	out := make([]byte, t.Value)
	copy(out, buf[n:n+int(t.Value)])
	return out, n + int(t.Value), nil
}

// DecodeApplicationCharacterString decodes a character string
// application value. Only character set 0 (UTF-8) is supported.
func DecodeApplicationCharacterString(buf []byte) (string, int, error) {
	t, n, err := decodeApplicationTag(buf, TagCharacterString)
	if err != nil {
		return "", 0, err
	}
	if t.Value < 1 {
		return "", 0, ErrValueRange
	}
	if buf[n] != 0 {
		return "", 0, NewError(ErrorClassProperty, ErrorCodeCharacterSetNotSupported)
	}
	return string(buf[n+1 : n+int(t.Value)]), n + int(t.Value), nil
}

// DecodeApplicationBitString decodes a bit string application value
func DecodeApplicationBitString(buf []byte) (BitString, int, error) {
	var bs BitString
	t, n, err := decodeApplicationTag(buf, TagBitString)
	if err != nil {
		return bs, 0, err
	}
	if t.Value < 1 {
		return bs, 0, ErrValueRange
	}
	unused := buf[n]
	dataLen := int(t.Value) - 1
	if unused > 7 || (dataLen == 0 && unused != 0) {
		return bs, 0, ErrValueRange
	}
	if dataLen*8-int(unused) > 255 {
		return bs, 0, ErrValueRange
	}
	bs.Bits = make([]byte, dataLen)
	copy(bs.Bits, buf[n+1:n+1+dataLen])
	bs.Length = uint8(dataLen*8) - unused
	return bs, n + int(t.Value), nil
}

// DecodeApplicationEnumerated decodes an enumerated application value
func DecodeApplicationEnumerated(buf []byte) (uint32, int, error) {
	t, n, err := decodeApplicationTag(buf, TagEnumerated)
	if err != nil {
		return 0, 0, err
	}
	v, err := decodeUnsignedPayload(buf[n : n+int(t.Value)])
	if err != nil {
		return 0, 0, err
	}
	return v, n + int(t.Value), nil
}

// DecodeApplicationDate decodes a date application value
func DecodeApplicationDate(buf []byte) (Date, int, error) {
	var d Date
	t, n, err := decodeApplicationTag(buf, TagDate)
	if err != nil {
		return d, 0, err
	}
	if t.Value != 4 {
		return d, 0, ErrValueRange
	}
	if buf[n] == 0xFF {
		d.Year = 0xFFFF
	} else {
		d.Year = uint16(buf[n]) + 1900
	}
	d.Month = buf[n+1]
	d.Day = buf[n+2]
	d.WeekDay = buf[n+3]
	return d, n + 4, nil
}

// DecodeApplicationTime decodes a time application value
func DecodeApplicationTime(buf []byte) (Time, int, error) {
	var tm Time
	t, n, err := decodeApplicationTag(buf, TagTime)
	if err != nil {
		return tm, 0, err
	}
	if t.Value != 4 {
		return tm, 0, ErrValueRange
	}
	tm.Hour = buf[n]
	tm.Minute = buf[n+1]
	tm.Second = buf[n+2]
	tm.Hundredths = buf[n+3]
	return tm, n + 4, nil
}

// DecodeApplicationObjectID decodes an object identifier application value
func DecodeApplicationObjectID(buf []byte) (ObjectIdentifier, int, error) {
	var oid ObjectIdentifier
	t, n, err := decodeApplicationTag(buf, TagObjectID)
	if err != nil {
		return oid, 0, err
	}
	if t.Value != 4 {
		return oid, 0, ErrValueRange
	}
	return UnpackObjectIdentifier(binary.BigEndian.Uint32(buf[n:])), n + 4, nil
}

// DecodeContextUnsigned decodes an unsigned integer carried under the
// given context tag number.
func DecodeContextUnsigned(buf []byte, tagNum uint8) (uint32, int, error) {
	t, n, err := DecodeTag(buf)
	if err != nil {
		return 0, 0, err
	}
	if !t.Context || t.Opening || t.Closing || t.Number != tagNum {
		return 0, 0, ErrBadTag
	}
	v, err := decodeUnsignedPayload(buf[n : n+int(t.Value)])
	if err != nil {
		return 0, 0, err
	}
	return v, n + int(t.Value), nil
}

// DecodeContextObjectID decodes an object identifier carried under the
// given context tag number.
func DecodeContextObjectID(buf []byte, tagNum uint8) (ObjectIdentifier, int, error) {
	var oid ObjectIdentifier
	t, n, err := DecodeTag(buf)
	if err != nil {
		return oid, 0, err
	}
	if !t.Context || t.Opening || t.Closing || t.Number != tagNum {
		return oid, 0, ErrBadTag
	}
	if t.Value != 4 {
		return oid, 0, ErrValueRange
	}
	return UnpackObjectIdentifier(binary.BigEndian.Uint32(buf[n:])), n + 4, nil
}

// DecodeOpeningTag consumes an opening tag with the given number
func DecodeOpeningTag(buf []byte, tagNum uint8) (int, error) {
	t, n, err := DecodeTag(buf)
	if err != nil {
		return 0, err
	}
	if !t.Opening || t.Number != tagNum {
		return 0, ErrBadTag
	}
	return n, nil
}

// DecodeClosingTag consumes a closing tag with the given number
func DecodeClosingTag(buf []byte, tagNum uint8) (int, error) {
	t, n, err := DecodeTag(buf)
	if err != nil {
		return 0, err
	}
	if !t.Closing || t.Number != tagNum {
		return 0, ErrBadTag
	}
	return n, nil
}
