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

// Package service frames BACnet/IP traffic for the server: BVLC and
// NPDU headers, APDU framing, and the request/response encodings of
// the supported services.
package service

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/edgeo-scada/bacnetd/bacnet"
)

var (
	ErrInvalidBVLC = errors.New("service: invalid BVLC header")
	ErrInvalidNPDU = errors.New("service: invalid NPDU")
	ErrInvalidAPDU = errors.New("service: invalid APDU")
)

// BVLCType identifies the BACnet/IP virtual link layer
type BVLCType uint8

const BVLCTypeBACnetIP BVLCType = 0x81

// BVLCFunction identifies the BVLC message kind
type BVLCFunction uint8

const (
	BVLCResult                BVLCFunction = 0x00
	BVLCForwardedNPDU         BVLCFunction = 0x04
	BVLCOriginalUnicastNPDU   BVLCFunction = 0x0A
	BVLCOriginalBroadcastNPDU BVLCFunction = 0x0B
)

// BVLCHeader is the 4-byte BACnet/IP link header
type BVLCHeader struct {
	Type     BVLCType
	Function BVLCFunction
	Length   uint16
}

// EncodeBVLC encodes a BVLC header for an NPDU of the given length
func EncodeBVLC(function BVLCFunction, npduLength int) []byte {
	buf := make([]byte, 4)
	buf[0] = byte(BVLCTypeBACnetIP)
	buf[1] = byte(function)
	binary.BigEndian.PutUint16(buf[2:], uint16(4+npduLength))
	return buf
}

// DecodeBVLC decodes and validates a BVLC header
func DecodeBVLC(data []byte) (*BVLCHeader, error) {
	if len(data) < 4 {
		return nil, ErrInvalidBVLC
	}
	h := &BVLCHeader{
		Type:     BVLCType(data[0]),
		Function: BVLCFunction(data[1]),
		Length:   binary.BigEndian.Uint16(data[2:4]),
	}
	if h.Type != BVLCTypeBACnetIP {
		return nil, fmt.Errorf("%w: type %02x", ErrInvalidBVLC, data[0])
	}
	if int(h.Length) != len(data) {
		return nil, fmt.Errorf("%w: length %d for %d bytes", ErrInvalidBVLC, h.Length, len(data))
	}
	return h, nil
}

// NPDUControl holds the NPDU control octet flags
type NPDUControl uint8

const (
	NPDUControlNetworkLayerMessage NPDUControl = 0x80
	NPDUControlDestSpecifier       NPDUControl = 0x20
	NPDUControlSourceSpecifier     NPDUControl = 0x08
	NPDUControlExpectingReply      NPDUControl = 0x04
	NPDUControlPriorityNormal      NPDUControl = 0x00
)

// NPDU is the network layer header
type NPDU struct {
	Version      uint8
	Control      NPDUControl
	DestNet      uint16
	DestAddr     []byte
	DestHopCount uint8
	SrcNet       uint16
	SrcAddr      []byte
	Data         []byte
}

// EncodeNPDU encodes a local unicast NPDU header
func EncodeNPDU(expectingReply bool) []byte {
	control := NPDUControlPriorityNormal
	if expectingReply {
		control |= NPDUControlExpectingReply
	}
	return []byte{0x01, byte(control)}
}

// DecodeNPDU decodes an NPDU, skipping any routing specifiers
func DecodeNPDU(data []byte) (*NPDU, error) {
	if len(data) < 2 {
		return nil, ErrInvalidNPDU
	}
	npdu := &NPDU{
		Version: data[0],
		Control: NPDUControl(data[1]),
	}
	if npdu.Version != 0x01 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidNPDU, npdu.Version)
	}
	offset := 2
	if npdu.Control&NPDUControlDestSpecifier != 0 {
		if len(data) < offset+3 {
			return nil, ErrInvalidNPDU
		}
		npdu.DestNet = binary.BigEndian.Uint16(data[offset:])
		offset += 2
		addrLen := int(data[offset])
		offset++
		if len(data) < offset+addrLen+1 {
			return nil, ErrInvalidNPDU
		}
		npdu.DestAddr = append([]byte(nil), data[offset:offset+addrLen]...)
		offset += addrLen
		npdu.DestHopCount = data[offset]
		offset++
	}
	if npdu.Control&NPDUControlSourceSpecifier != 0 {
		if len(data) < offset+3 {
			return nil, ErrInvalidNPDU
		}
		npdu.SrcNet = binary.BigEndian.Uint16(data[offset:])
		offset += 2
		addrLen := int(data[offset])
		offset++
		if len(data) < offset+addrLen {
			return nil, ErrInvalidNPDU
		}
		npdu.SrcAddr = append([]byte(nil), data[offset:offset+addrLen]...)
		offset += addrLen
	}
	if npdu.Control&NPDUControlNetworkLayerMessage != 0 {
		// Network layer messages are for routers, not this server
		return nil, fmt.Errorf("%w: network layer message", ErrInvalidNPDU)
	}
	npdu.Data = data[offset:]
	return npdu, nil
}

// PDUType is the APDU frame kind
type PDUType uint8

const (
	PDUTypeConfirmedRequest   PDUType = 0x00
	PDUTypeUnconfirmedRequest PDUType = 0x10
	PDUTypeSimpleAck          PDUType = 0x20
	PDUTypeComplexAck         PDUType = 0x30
	PDUTypeError              PDUType = 0x50
	PDUTypeReject             PDUType = 0x60
	PDUTypeAbort              PDUType = 0x70
)

// ConfirmedServiceChoice identifies a confirmed service
type ConfirmedServiceChoice uint8

const (
	ServiceConfirmedCreateObject  ConfirmedServiceChoice = 10
	ServiceConfirmedDeleteObject  ConfirmedServiceChoice = 11
	ServiceConfirmedReadProperty  ConfirmedServiceChoice = 12
	ServiceConfirmedWriteProperty ConfirmedServiceChoice = 15
)

func (c ConfirmedServiceChoice) String() string {
	names := map[ConfirmedServiceChoice]string{
		ServiceConfirmedCreateObject:  "CreateObject",
		ServiceConfirmedDeleteObject:  "DeleteObject",
		ServiceConfirmedReadProperty:  "ReadProperty",
		ServiceConfirmedWriteProperty: "WriteProperty",
	}
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("ConfirmedService(%d)", uint8(c))
}

// UnconfirmedServiceChoice identifies an unconfirmed service
type UnconfirmedServiceChoice uint8

const (
	ServiceUnconfirmedIAm   UnconfirmedServiceChoice = 0
	ServiceUnconfirmedWhoIs UnconfirmedServiceChoice = 8
)

// APDU is one application layer frame
type APDU struct {
	Type        PDUType
	Segmented   bool
	MoreFollows bool
	MaxSegments uint8
	MaxAPDU     uint8
	InvokeID    uint8
	Service     uint8
	Data        []byte
}

// DecodeAPDU decodes the frames a server receives: confirmed and
// unconfirmed requests.
func DecodeAPDU(data []byte) (*APDU, error) {
	if len(data) < 1 {
		return nil, ErrInvalidAPDU
	}
	switch PDUType(data[0] & 0xF0) {
	case PDUTypeConfirmedRequest:
		return decodeConfirmedRequest(data)
	case PDUTypeUnconfirmedRequest:
		if len(data) < 2 {
			return nil, ErrInvalidAPDU
		}
		return &APDU{
			Type:    PDUTypeUnconfirmedRequest,
			Service: data[1],
			Data:    data[2:],
		}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PDU type %02x", ErrInvalidAPDU, data[0]&0xF0)
	}
}

func decodeConfirmedRequest(data []byte) (*APDU, error) {
	if len(data) < 4 {
		return nil, ErrInvalidAPDU
	}
	apdu := &APDU{
		Type:        PDUTypeConfirmedRequest,
		Segmented:   data[0]&0x08 != 0,
		MoreFollows: data[0]&0x04 != 0,
		MaxSegments: (data[1] >> 4) & 0x07,
		MaxAPDU:     data[1] & 0x0F,
		InvokeID:    data[2],
		Service:     data[3],
		Data:        data[4:],
	}
	if apdu.Segmented {
		// Segmentation is not supported; the caller aborts
		if len(data) < 6 {
			return nil, ErrInvalidAPDU
		}
		apdu.Data = data[6:]
	}
	return apdu, nil
}

// EncodeSimpleAck encodes a SimpleACK for a confirmed request
func EncodeSimpleAck(invokeID uint8, service ConfirmedServiceChoice) []byte {
	return []byte{byte(PDUTypeSimpleAck), invokeID, byte(service)}
}

// EncodeComplexAck encodes a ComplexACK carrying service data
func EncodeComplexAck(invokeID uint8, service ConfirmedServiceChoice, data []byte) []byte {
	buf := make([]byte, 0, 3+len(data))
	buf = append(buf, byte(PDUTypeComplexAck), invokeID, byte(service))
	buf = append(buf, data...)
	return buf
}

// EncodeError encodes an Error PDU carrying the class and code pair
// as two enumerated values.
func EncodeError(invokeID uint8, service ConfirmedServiceChoice, e *bacnet.Error) []byte {
	buf := make([]byte, 3, 7)
	buf[0] = byte(PDUTypeError)
	buf[1] = invokeID
	buf[2] = byte(service)
	tail := make([]byte, 4)
	n, _ := bacnet.EncodeApplicationEnumerated(tail, uint32(e.Class))
	buf = append(buf, tail[:n]...)
	n, _ = bacnet.EncodeApplicationEnumerated(tail, uint32(e.Code))
	buf = append(buf, tail[:n]...)
	return buf
}

// EncodeReject encodes a Reject PDU for a malformed confirmed request
func EncodeReject(invokeID uint8, reason bacnet.RejectReason) []byte {
	return []byte{byte(PDUTypeReject), invokeID, byte(reason)}
}

// EncodeAbort encodes an Abort PDU
func EncodeAbort(invokeID uint8, reason bacnet.AbortReason) []byte {
	return []byte{byte(PDUTypeAbort) | 0x01, invokeID, byte(reason)}
}

// EncodeUnconfirmedRequest encodes an unconfirmed request APDU
func EncodeUnconfirmedRequest(service UnconfirmedServiceChoice, data []byte) []byte {
	buf := make([]byte, 0, 2+len(data))
	buf = append(buf, byte(PDUTypeUnconfirmedRequest), byte(service))
	buf = append(buf, data...)
	return buf
}
