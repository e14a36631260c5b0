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

// Tag encoders. Every encoder writes into the caller's buffer and
// returns the number of bytes written; on ErrBufferFull nothing past
// the buffer bound has been touched. Callers size buffers to
// MaxAPDULength.

// EncodeTag encodes a tag octet (with extensions) for the given tag
// number, class, and length/value field.
func EncodeTag(buf []byte, tagNum uint8, contextSpecific bool, lenValue uint32) (int, error) {
	n := 1
	if tagNum >= 15 {
		n++
	}
	switch {
	case lenValue < 5:
	case lenValue < 254:
		n++
	case lenValue <= 0xFFFF:
		n += 3
	default:
		n += 5
	}
	if len(buf) < n {
		return 0, ErrBufferFull
	}

	var first byte
	if contextSpecific {
		first = 0x08
	}
	if lenValue < 5 {
		first |= byte(lenValue)
	} else {
		first |= 0x05
	}
	pos := 1
	if tagNum >= 15 {
		buf[0] = first | 0xF0
		buf[1] = tagNum
		pos = 2
	} else {
		buf[0] = first | tagNum<<4
	}

	switch {
	case lenValue < 5:
	case lenValue < 254:
		buf[pos] = byte(lenValue)
		pos++
	case lenValue <= 0xFFFF:
		buf[pos] = 0xFE
		binary.BigEndian.PutUint16(buf[pos+1:], uint16(lenValue))
		pos += 3
	default:
		buf[pos] = 0xFF
		binary.BigEndian.PutUint32(buf[pos+1:], lenValue)
		pos += 5
	}
	return pos, nil
}

// EncodeOpeningTag encodes an opening tag for constructed data
func EncodeOpeningTag(buf []byte, tagNum uint8) (int, error) {
	return encodePairedTag(buf, tagNum, 0x0E)
}

// EncodeClosingTag encodes a closing tag for constructed data
func EncodeClosingTag(buf []byte, tagNum uint8) (int, error) {
	return encodePairedTag(buf, tagNum, 0x0F)
}

func encodePairedTag(buf []byte, tagNum uint8, marker byte) (int, error) {
	if tagNum < 15 {
		if len(buf) < 1 {
			return 0, ErrBufferFull
		}
		buf[0] = tagNum<<4 | marker
		return 1, nil
	}
	if len(buf) < 2 {
		return 0, ErrBufferFull
	}
	buf[0] = 0xF0 | marker
	buf[1] = tagNum
	return 2, nil
}

// unsignedLength is the minimal byte count for an unsigned value
func unsignedLength(v uint32) int {
	switch {
	case v < 0x100:
		return 1
	case v < 0x10000:
		return 2
	case v < 0x1000000:
		return 3
	default:
		return 4
	}
}

// signedLength is the minimal two's-complement byte count for a signed
// value, such that the top bit still carries the sign unambiguously.
func signedLength(v int32) int {
	switch {
	case v >= -128 && v < 128:
		return 1
	case v >= -32768 && v < 32768:
		return 2
	case v >= -8388608 && v < 8388608:
		return 3
	default:
		return 4
	}
}

// putIntBE writes the low `length` bytes of v big-endian. buf is
// pre-sized by the caller.
func putIntBE(buf []byte, v uint32, length int) {
	for i := length - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
}

// EncodeApplicationNull encodes a Null application value
func EncodeApplicationNull(buf []byte) (int, error) {
	return EncodeTag(buf, uint8(TagNull), false, 0)
}

// EncodeApplicationBoolean encodes a boolean application value. The
// boolean is the one primitive whose value lives in the tag's
// length/value field with no payload bytes.
func EncodeApplicationBoolean(buf []byte, value bool) (int, error) {
	v := uint32(0)
	if value {
		v = 1
	}
	return EncodeTag(buf, uint8(TagBoolean), false, v)
}

// EncodeApplicationUnsigned encodes an unsigned integer with minimal width
func EncodeApplicationUnsigned(buf []byte, value uint32) (int, error) {
	length := unsignedLength(value)
	n, err := EncodeTag(buf, uint8(TagUnsignedInt), false, uint32(length))
	if err != nil {
		return 0, err
	}
	if len(buf) < n+length {
		return 0, ErrBufferFull
	}
	putIntBE(buf[n:], value, length)
	return n + length, nil
}

// EncodeApplicationSigned encodes a signed integer with minimal width
func EncodeApplicationSigned(buf []byte, value int32) (int, error) {
	length := signedLength(value)
	n, err := EncodeTag(buf, uint8(TagSignedInt), false, uint32(length))
	if err != nil {
		return 0, err
	}
	if len(buf) < n+length {
		return 0, ErrBufferFull
	}
	putIntBE(buf[n:], uint32(value), length)
	return n + length, nil
}

// EncodeApplicationReal encodes a float32 application value
func EncodeApplicationReal(buf []byte, value float32) (int, error) {
	n, err := EncodeTag(buf, uint8(TagReal), false, 4)
	if err != nil {
		return 0, err
	}
	if len(buf) < n+4 {
		return 0, ErrBufferFull
	}
	binary.BigEndian.PutUint32(buf[n:], math.Float32bits(value))
	return n + 4, nil
}

// EncodeApplicationDouble encodes a float64 application value
func EncodeApplicationDouble(buf []byte, value float64) (int, error) {
	n, err := EncodeTag(buf, uint8(TagDouble), false, 8)
	if err != nil {
		return 0, err
	}
	if len(buf) < n+8 {
		return 0, ErrBufferFull
	}
	binary.BigEndian.PutUint64(buf[n:], math.Float64bits(value))
	return n + 8, nil
}

// EncodeApplicationOctetString encodes an octet string application value
func EncodeApplicationOctetString(buf []byte, value []byte) (int, error) {
	n, err := EncodeTag(buf, uint8(TagOctetString), false, uint32(len(value)))
	if err != nil {
		return 0, err
	}
	if len(buf) < n+len(value) {
		return 0, ErrBufferFull
	}
	copy(buf[n:], value)
	return n + len(value), nil
}

// EncodeApplicationCharacterString encodes a character string
// application value. Character set 0 = UTF-8.
func EncodeApplicationCharacterString(buf []byte, value string) (int, error) {
	n, err := EncodeTag(buf, uint8(TagCharacterString), false, uint32(1+len(value)))
	if err != nil {
		return 0, err
	}
	if len(buf) < n+1+len(value) {
		return 0, ErrBufferFull
	}
	buf[n] = 0 // UTF-8
	copy(buf[n+1:], value)
	return n + 1 + len(value), nil
}

// EncodeApplicationBitString encodes a bit string application value.
// The first payload byte counts the unused trailing bits.
func EncodeApplicationBitString(buf []byte, value BitString) (int, error) {
	n, err := EncodeTag(buf, uint8(TagBitString), false, uint32(1+len(value.Bits)))
	if err != nil {
		return 0, err
	}
	if len(buf) < n+1+len(value.Bits) {
		return 0, ErrBufferFull
	}
	unused := uint8(0)
	if len(value.Bits) > 0 {
		unused = uint8(len(value.Bits)*8) - value.Length
	}
	buf[n] = unused
	copy(buf[n+1:], value.Bits)
	return n + 1 + len(value.Bits), nil
}

// EncodeApplicationEnumerated encodes an enumerated application value
func EncodeApplicationEnumerated(buf []byte, value uint32) (int, error) {
	length := unsignedLength(value)
	n, err := EncodeTag(buf, uint8(TagEnumerated), false, uint32(length))
	if err != nil {
		return 0, err
	}
	if len(buf) < n+length {
		return 0, ErrBufferFull
	}
	putIntBE(buf[n:], value, length)
	return n + length, nil
}

// EncodeApplicationDate encodes a date application value. The wire year
// octet is the year minus 1900; 0xFF means "any".
func EncodeApplicationDate(buf []byte, value Date) (int, error) {
	n, err := EncodeTag(buf, uint8(TagDate), false, 4)
	if err != nil {
		return 0, err
	}
	if len(buf) < n+4 {
		return 0, ErrBufferFull
	}
	if value.Year == 0xFFFF {
		buf[n] = 0xFF
	} else {
		buf[n] = byte(value.Year - 1900)
	}
	buf[n+1] = value.Month
	buf[n+2] = value.Day
	buf[n+3] = value.WeekDay
	return n + 4, nil
}

// EncodeApplicationTime encodes a time application value
func EncodeApplicationTime(buf []byte, value Time) (int, error) {
	n, err := EncodeTag(buf, uint8(TagTime), false, 4)
	if err != nil {
		return 0, err
	}
	if len(buf) < n+4 {
		return 0, ErrBufferFull
	}
	buf[n] = value.Hour
	buf[n+1] = value.Minute
	buf[n+2] = value.Second
	buf[n+3] = value.Hundredths
	return n + 4, nil
}

// EncodeApplicationObjectID encodes an object identifier application value
func EncodeApplicationObjectID(buf []byte, objectType ObjectType, instance uint32) (int, error) {
	n, err := EncodeTag(buf, uint8(TagObjectID), false, 4)
	if err != nil {
		return 0, err
	}
	if len(buf) < n+4 {
		return 0, ErrBufferFull
	}
	binary.BigEndian.PutUint32(buf[n:], ObjectIdentifier{Type: objectType, Instance: instance}.Pack())
	return n + 4, nil
}

// EncodeContextUnsigned encodes an unsigned integer with a context tag
func EncodeContextUnsigned(buf []byte, tagNum uint8, value uint32) (int, error) {
	length := unsignedLength(value)
	n, err := EncodeTag(buf, tagNum, true, uint32(length))
	if err != nil {
		return 0, err
	}
	if len(buf) < n+length {
		return 0, ErrBufferFull
	}
	putIntBE(buf[n:], value, length)
	return n + length, nil
}

// EncodeContextEnumerated encodes an enumerated value with a context tag
func EncodeContextEnumerated(buf []byte, tagNum uint8, value uint32) (int, error) {
	return EncodeContextUnsigned(buf, tagNum, value)
}

// EncodeContextObjectID encodes an object identifier with a context tag
func EncodeContextObjectID(buf []byte, tagNum uint8, objectType ObjectType, instance uint32) (int, error) {
	n, err := EncodeTag(buf, tagNum, true, 4)
	if err != nil {
		return 0, err
	}
	if len(buf) < n+4 {
		return 0, ErrBufferFull
	}
	binary.BigEndian.PutUint32(buf[n:], ObjectIdentifier{Type: objectType, Instance: instance}.Pack())
	return n + 4, nil
}
