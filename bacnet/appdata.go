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

// ApplicationValue is a decoded application-tagged value: a
// discriminated union over the primitive kinds, with Tag selecting the
// populated field.
type ApplicationValue struct {
	Tag ApplicationTag

	Boolean         bool
	Unsigned        uint32
	Signed          int32
	Real            float32
	Double          float64
	OctetString     []byte
	CharacterString string
	BitString       BitString
	Enumerated      uint32
	Date            Date
	Time            Time
	ObjectID        ObjectIdentifier
}

// DecodeApplicationValue decodes the next application-tagged value from
// buf. Context-tagged data is rejected with ErrBadTag.
func DecodeApplicationValue(buf []byte) (ApplicationValue, int, error) {
	var v ApplicationValue
	t, _, err := DecodeTag(buf)
	if err != nil {
		return v, 0, err
	}
	if t.Context || t.Opening || t.Closing {
		return v, 0, ErrBadTag
	}

	v.Tag = ApplicationTag(t.Number)
	var n int
	switch v.Tag {
	case TagNull:
		n, err = DecodeApplicationNull(buf)
	case TagBoolean:
		v.Boolean, n, err = DecodeApplicationBoolean(buf)
	case TagUnsignedInt:
		v.Unsigned, n, err = DecodeApplicationUnsigned(buf)
	case TagSignedInt:
		v.Signed, n, err = DecodeApplicationSigned(buf)
	case TagReal:
		v.Real, n, err = DecodeApplicationReal(buf)
	case TagDouble:
		v.Double, n, err = DecodeApplicationDouble(buf)
	case TagOctetString:
		v.OctetString, n, err = DecodeApplicationOctetString(buf)
	case TagCharacterString:
		v.CharacterString, n, err = DecodeApplicationCharacterString(buf)
	case TagBitString:
		v.BitString, n, err = DecodeApplicationBitString(buf)
	case TagEnumerated:
		v.Enumerated, n, err = DecodeApplicationEnumerated(buf)
	case TagDate:
		v.Date, n, err = DecodeApplicationDate(buf)
	case TagTime:
		v.Time, n, err = DecodeApplicationTime(buf)
	case TagObjectID:
		v.ObjectID, n, err = DecodeApplicationObjectID(buf)
	default:
		return v, 0, ErrBadTag
	}
	if err != nil {
		return ApplicationValue{}, 0, err
	}
	return v, n, nil
}

// Encode writes the value back in its application-tagged form
func (v *ApplicationValue) Encode(buf []byte) (int, error) {
	switch v.Tag {
	case TagNull:
		return EncodeApplicationNull(buf)
	case TagBoolean:
		return EncodeApplicationBoolean(buf, v.Boolean)
	case TagUnsignedInt:
		return EncodeApplicationUnsigned(buf, v.Unsigned)
	case TagSignedInt:
		return EncodeApplicationSigned(buf, v.Signed)
	case TagReal:
		return EncodeApplicationReal(buf, v.Real)
	case TagDouble:
		return EncodeApplicationDouble(buf, v.Double)
	case TagOctetString:
		return EncodeApplicationOctetString(buf, v.OctetString)
	case TagCharacterString:
		return EncodeApplicationCharacterString(buf, v.CharacterString)
	case TagBitString:
		return EncodeApplicationBitString(buf, v.BitString)
	case TagEnumerated:
		return EncodeApplicationEnumerated(buf, v.Enumerated)
	case TagDate:
		return EncodeApplicationDate(buf, v.Date)
	case TagTime:
		return EncodeApplicationTime(buf, v.Time)
	case TagObjectID:
		return EncodeApplicationObjectID(buf, v.ObjectID.Type, v.ObjectID.Instance)
	default:
		return 0, ErrBadTag
	}
}
