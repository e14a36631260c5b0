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
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return b
}

func TestEncodeTag(t *testing.T) {
	ttc := []struct {
		name     string
		tagNum   uint8
		context  bool
		lenValue uint32
		expected string
	}{
		{name: "inline length", tagNum: 2, lenValue: 4, expected: "24"},
		{name: "smallest extended", tagNum: 2, lenValue: 5, expected: "2505"},
		{name: "largest single byte", tagNum: 2, lenValue: 253, expected: "25fd"},
		{name: "smallest two byte", tagNum: 2, lenValue: 254, expected: "25fe00fe"},
		{name: "largest two byte", tagNum: 2, lenValue: 65535, expected: "25feffff"},
		{name: "smallest four byte", tagNum: 2, lenValue: 65536, expected: "25ff00010000"},
		{name: "context tag", tagNum: 1, context: true, lenValue: 2, expected: "1a"},
		{name: "extended tag number", tagNum: 20, context: true, lenValue: 1, expected: "f914"},
		{name: "extended tag and length", tagNum: 20, context: true, lenValue: 9, expected: "fd1409"},
	}
	for _, tc := range ttc {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			buf := make([]byte, 8)
			n, err := EncodeTag(buf, tc.tagNum, tc.context, tc.lenValue)
			is.NoErr(err)
			is.Equal(hex.EncodeToString(buf[:n]), tc.expected)
		})
	}
}

func TestEncodeTagBufferFull(t *testing.T) {
	is := is.New(t)

	backing := [4]byte{0xAA, 0xAA, 0xAA, 0xAA}
	_, err := EncodeTag(backing[:1], 2, false, 5)
	is.True(errors.Is(err, ErrBufferFull))
	is.Equal(backing[1], byte(0xAA)) // past the bound stays untouched
}

func TestDecodeTag(t *testing.T) {
	ttc := []struct {
		data     string
		expected Tag
		consumed int
	}{
		{data: "24aabbccdd", expected: Tag{Number: 2, Value: 4}, consumed: 1},
		{data: "09aa", expected: Tag{Number: 0, Context: true, Value: 1}, consumed: 1},
		{data: "2505" + strings.Repeat("00", 5), expected: Tag{Number: 2, Value: 5}, consumed: 2},
		{data: "25fe00fe" + strings.Repeat("00", 254), expected: Tag{Number: 2, Value: 254}, consumed: 4},
		{data: "25ff00010000" + strings.Repeat("00", 65536), expected: Tag{Number: 2, Value: 65536}, consumed: 6},
		{data: "3e", expected: Tag{Number: 3, Context: true, Opening: true}, consumed: 1},
		{data: "3f", expected: Tag{Number: 3, Context: true, Closing: true}, consumed: 1},
		{data: "f914aa", expected: Tag{Number: 20, Context: true, Value: 1}, consumed: 2},
		{data: "11", expected: Tag{Number: 1, Value: 1}, consumed: 1}, // boolean: no payload
	}
	for _, tc := range ttc {
		t.Run(fmt.Sprintf("decode %.12s", tc.data), func(t *testing.T) {
			is := is.New(t)
			got, n, err := DecodeTag(mustHex(t, tc.data))
			is.NoErr(err)
			is.Equal(got, tc.expected)
			is.Equal(n, tc.consumed)
		})
	}
}

func TestDecodeTagNonCanonical(t *testing.T) {
	ttc := []struct {
		name string
		data string
	}{
		{name: "extended byte below five", data: "2504" + strings.Repeat("00", 4)},
		{name: "two byte escalation below 254", data: "25fe0020" + strings.Repeat("00", 32)},
		{name: "four byte escalation below 65536", data: "25ff0000ffff" + strings.Repeat("00", 65535)},
	}
	for _, tc := range ttc {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			_, _, err := DecodeTag(mustHex(t, tc.data))
			is.True(errors.Is(err, ErrNonCanonical))
		})
	}
}

func TestDecodeTagTruncated(t *testing.T) {
	ttc := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "payload short of claim", data: "2506000000"},
		{name: "missing extended length", data: "25"},
		{name: "missing escalated length", data: "25fe00"},
		{name: "missing extended tag number", data: "f5"},
		{name: "object id payload cut", data: "c4112233"},
	}
	for _, tc := range ttc {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			_, _, err := DecodeTag(mustHex(t, tc.data))
			is.True(errors.Is(err, ErrTruncated))
		})
	}
}

func TestDecodeTagReservedApplicationMarkers(t *testing.T) {
	// 6 and 7 in the length field mark opening and closing tags, which
	// only exist in the context class
	ttc := []struct {
		name string
		data string
	}{
		{name: "application opening marker", data: "26" + strings.Repeat("00", 6)},
		{name: "application closing marker", data: "27" + strings.Repeat("00", 7)},
	}
	for _, tc := range ttc {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			_, _, err := DecodeTag(mustHex(t, tc.data))
			is.True(errors.Is(err, ErrBadTag))
		})
	}
}

func TestUnsignedRoundTrip(t *testing.T) {
	ttc := []struct {
		value    uint32
		expected string
	}{
		{value: 0, expected: "2100"},
		{value: 255, expected: "21ff"},
		{value: 256, expected: "220100"},
		{value: 65535, expected: "22ffff"},
		{value: 65536, expected: "23010000"},
		{value: 0xFFFFFFFF, expected: "24ffffffff"},
	}
	for _, tc := range ttc {
		t.Run(tc.expected, func(t *testing.T) {
			is := is.New(t)
			buf := make([]byte, 8)
			n, err := EncodeApplicationUnsigned(buf, tc.value)
			is.NoErr(err)
			is.Equal(hex.EncodeToString(buf[:n]), tc.expected)

			got, consumed, err := DecodeApplicationUnsigned(buf[:n])
			is.NoErr(err)
			is.Equal(got, tc.value)
			is.Equal(consumed, n)
		})
	}
}

func TestSignedRoundTrip(t *testing.T) {
	ttc := []struct {
		value    int32
		expected string
	}{
		{value: 0, expected: "3100"},
		{value: -1, expected: "31ff"},
		{value: 127, expected: "317f"},
		{value: 128, expected: "320080"},
		{value: -128, expected: "3180"},
		{value: -129, expected: "32ff7f"},
		{value: 8388608, expected: "3400800000"},
	}
	for _, tc := range ttc {
		t.Run(tc.expected, func(t *testing.T) {
			is := is.New(t)
			buf := make([]byte, 8)
			n, err := EncodeApplicationSigned(buf, tc.value)
			is.NoErr(err)
			is.Equal(hex.EncodeToString(buf[:n]), tc.expected)

			got, consumed, err := DecodeApplicationSigned(buf[:n])
			is.NoErr(err)
			is.Equal(got, tc.value)
			is.Equal(consumed, n)
		})
	}
}

func TestBooleanRoundTrip(t *testing.T) {
	is := is.New(t)

	buf := make([]byte, 2)
	n, err := EncodeApplicationBoolean(buf, true)
	is.NoErr(err)
	is.Equal(hex.EncodeToString(buf[:n]), "11")

	v, consumed, err := DecodeApplicationBoolean(buf[:n])
	is.NoErr(err)
	is.True(v)
	is.Equal(consumed, 1)

	n, err = EncodeApplicationBoolean(buf, false)
	is.NoErr(err)
	is.Equal(hex.EncodeToString(buf[:n]), "10")

	v, _, err = DecodeApplicationBoolean(buf[:n])
	is.NoErr(err)
	is.True(!v)
}

func TestRealRoundTrip(t *testing.T) {
	is := is.New(t)

	buf := make([]byte, 8)
	n, err := EncodeApplicationReal(buf, 72.0)
	is.NoErr(err)
	is.Equal(hex.EncodeToString(buf[:n]), "4442900000")

	v, consumed, err := DecodeApplicationReal(buf[:n])
	is.NoErr(err)
	is.Equal(v, float32(72.0))
	is.Equal(consumed, n)
}

func TestCharacterStringRoundTrip(t *testing.T) {
	is := is.New(t)

	buf := make([]byte, 32)
	n, err := EncodeApplicationCharacterString(buf, "Hello")
	is.NoErr(err)
	is.Equal(hex.EncodeToString(buf[:n]), "75060048656c6c6f")

	s, consumed, err := DecodeApplicationCharacterString(buf[:n])
	is.NoErr(err)
	is.Equal(s, "Hello")
	is.Equal(consumed, n)
}

func TestCharacterStringUnsupportedCharset(t *testing.T) {
	is := is.New(t)

	// charset 4 = UCS-2
	data := mustHex(t, "75060448656c6c6f")
	_, _, err := DecodeApplicationCharacterString(data)
	var pair *Error
	is.True(errors.As(err, &pair))
	is.Equal(pair.Class, ErrorClassProperty)
	is.Equal(pair.Code, ErrorCodeCharacterSetNotSupported)
}

func TestBitStringRoundTrip(t *testing.T) {
	is := is.New(t)

	var bs BitString
	bs.SetBit(0, false)
	bs.SetBit(1, true)
	bs.SetBit(2, false)
	bs.SetBit(3, true)

	buf := make([]byte, 8)
	n, err := EncodeApplicationBitString(buf, bs)
	is.NoErr(err)
	// 4 unused bits, payload 0101....
	is.Equal(hex.EncodeToString(buf[:n]), "820450")

	got, consumed, err := DecodeApplicationBitString(buf[:n])
	is.NoErr(err)
	is.Equal(got.Length, uint8(4))
	is.True(!got.Bit(0))
	is.True(got.Bit(1))
	is.True(!got.Bit(2))
	is.True(got.Bit(3))
	is.Equal(consumed, n)
}

func TestBitStringBadUnusedCount(t *testing.T) {
	is := is.New(t)

	_, _, err := DecodeApplicationBitString(mustHex(t, "820850"))
	is.True(errors.Is(err, ErrValueRange))
}

func TestBitStringLengthBounds(t *testing.T) {
	is := is.New(t)

	// 33 payload bytes claim 264 bits, past what Length can hold
	_, _, err := DecodeApplicationBitString(mustHex(t, "852200"+strings.Repeat("ff", 33)))
	is.True(errors.Is(err, ErrValueRange))

	// 32 payload bytes with one unused bit is exactly 255 bits
	got, _, err := DecodeApplicationBitString(mustHex(t, "852101"+strings.Repeat("ff", 32)))
	is.NoErr(err)
	is.Equal(got.Length, uint8(255))
}

func TestDateRoundTrip(t *testing.T) {
	is := is.New(t)

	buf := make([]byte, 8)
	d := Date{Year: 2024, Month: 6, Day: 15, WeekDay: 6}
	n, err := EncodeApplicationDate(buf, d)
	is.NoErr(err)
	// 2024 - 1900 = 124 = 0x7c
	is.Equal(hex.EncodeToString(buf[:n]), "a47c060f06")

	got, consumed, err := DecodeApplicationDate(buf[:n])
	is.NoErr(err)
	is.Equal(got, d)
	is.Equal(consumed, n)
}

func TestDateWildcardYear(t *testing.T) {
	is := is.New(t)

	buf := make([]byte, 8)
	n, err := EncodeApplicationDate(buf, Date{Year: 0xFFFF, Month: 0xFF, Day: 0xFF, WeekDay: 0xFF})
	is.NoErr(err)
	is.Equal(hex.EncodeToString(buf[:n]), "a4ffffffff")

	got, _, err := DecodeApplicationDate(buf[:n])
	is.NoErr(err)
	is.Equal(got.Year, uint16(0xFFFF))
}

func TestObjectIDRoundTrip(t *testing.T) {
	is := is.New(t)

	buf := make([]byte, 8)
	n, err := EncodeApplicationObjectID(buf, ObjectTypeAnalogValue, 5)
	is.NoErr(err)
	// analog-value(2) << 22 | 5
	is.Equal(hex.EncodeToString(buf[:n]), "c400800005")

	got, consumed, err := DecodeApplicationObjectID(buf[:n])
	is.NoErr(err)
	is.Equal(got.Type, ObjectTypeAnalogValue)
	is.Equal(got.Instance, uint32(5))
	is.Equal(consumed, n)
}

func TestObjectIDInstanceBounds(t *testing.T) {
	is := is.New(t)

	id := ObjectIdentifier{Type: ObjectTypeDevice, Instance: MaxInstance}
	got := UnpackObjectIdentifier(id.Pack())
	is.Equal(got, id)

	wild := ObjectIdentifier{Type: ObjectTypeDevice, Instance: WildcardInstance}
	is.Equal(UnpackObjectIdentifier(wild.Pack()).Instance, WildcardInstance)
}

func TestContextUnsignedRoundTrip(t *testing.T) {
	is := is.New(t)

	buf := make([]byte, 8)
	n, err := EncodeContextUnsigned(buf, 2, 1)
	is.NoErr(err)
	is.Equal(hex.EncodeToString(buf[:n]), "2901")

	v, consumed, err := DecodeContextUnsigned(buf[:n], 2)
	is.NoErr(err)
	is.Equal(v, uint32(1))
	is.Equal(consumed, n)

	// wrong tag number is a tag error, not a silent match
	_, _, err = DecodeContextUnsigned(buf[:n], 3)
	is.True(errors.Is(err, ErrBadTag))
}

func TestOpeningClosingTags(t *testing.T) {
	is := is.New(t)

	buf := make([]byte, 4)
	n, err := EncodeOpeningTag(buf, 3)
	is.NoErr(err)
	is.Equal(hex.EncodeToString(buf[:n]), "3e")

	n2, err := EncodeClosingTag(buf[n:], 3)
	is.NoErr(err)
	is.Equal(hex.EncodeToString(buf[n:n+n2]), "3f")

	consumed, err := DecodeOpeningTag(buf, 3)
	is.NoErr(err)
	is.Equal(consumed, 1)
	_, err = DecodeClosingTag(buf[1:], 3)
	is.NoErr(err)
}

func TestApplicationValueMixedStream(t *testing.T) {
	is := is.New(t)

	// unsigned 42, then real 1.5, then a character string
	buf := make([]byte, 64)
	pos, err := EncodeApplicationUnsigned(buf, 42)
	is.NoErr(err)
	n, err := EncodeApplicationReal(buf[pos:], 1.5)
	is.NoErr(err)
	pos += n
	n, err = EncodeApplicationCharacterString(buf[pos:], "zone-1")
	is.NoErr(err)
	pos += n

	v1, c1, err := DecodeApplicationValue(buf[:pos])
	is.NoErr(err)
	is.Equal(v1.Tag, TagUnsignedInt)
	is.Equal(v1.Unsigned, uint32(42))

	v2, c2, err := DecodeApplicationValue(buf[c1:pos])
	is.NoErr(err)
	is.Equal(v2.Tag, TagReal)
	is.Equal(v2.Real, float32(1.5))

	v3, _, err := DecodeApplicationValue(buf[c1+c2 : pos])
	is.NoErr(err)
	is.Equal(v3.Tag, TagCharacterString)
	is.Equal(v3.CharacterString, "zone-1")
}
