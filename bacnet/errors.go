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
	"errors"
	"fmt"
)

// Codec sentinel errors. Decode failures never leave a partial result
// in the caller's value, and encode failures never write past the
// caller's buffer.
var (
	ErrBufferFull   = errors.New("bacnet: buffer too small for encoding")
	ErrTruncated    = errors.New("bacnet: truncated encoding")
	ErrBadTag       = errors.New("bacnet: unexpected tag")
	ErrNonCanonical = errors.New("bacnet: non-canonical length encoding")
	ErrValueRange   = errors.New("bacnet: value out of range")
)

// ErrorClass represents BACnet error classes
type ErrorClass uint8

const (
	ErrorClassDevice        ErrorClass = 0
	ErrorClassObject        ErrorClass = 1
	ErrorClassProperty      ErrorClass = 2
	ErrorClassResources     ErrorClass = 3
	ErrorClassSecurity      ErrorClass = 4
	ErrorClassServices      ErrorClass = 5
	ErrorClassVT            ErrorClass = 6
	ErrorClassCommunication ErrorClass = 7
)

func (e ErrorClass) String() string {
	names := map[ErrorClass]string{
		ErrorClassDevice:        "device",
		ErrorClassObject:        "object",
		ErrorClassProperty:      "property",
		ErrorClassResources:     "resources",
		ErrorClassSecurity:      "security",
		ErrorClassServices:      "services",
		ErrorClassVT:            "vt",
		ErrorClassCommunication: "communication",
	}
	if name, ok := names[e]; ok {
		return name
	}
	return fmt.Sprintf("error-class(%d)", uint8(e))
}

// ErrorCode represents BACnet error codes
type ErrorCode uint8

const (
	ErrorCodeOther                             ErrorCode = 0
	ErrorCodeConfigurationInProgress           ErrorCode = 2
	ErrorCodeDeviceBusy                        ErrorCode = 3
	ErrorCodeDynamicCreationNotSupported       ErrorCode = 4
	ErrorCodeInconsistentParameters            ErrorCode = 7
	ErrorCodeInvalidDataType                   ErrorCode = 9
	ErrorCodeMissingRequiredParameter          ErrorCode = 16
	ErrorCodeNoObjectsOfSpecifiedType          ErrorCode = 17
	ErrorCodeNoSpaceForObject                  ErrorCode = 18
	ErrorCodeNoSpaceToWriteProperty            ErrorCode = 20
	ErrorCodePropertyIsNotAList                ErrorCode = 22
	ErrorCodeObjectDeletionNotPermitted        ErrorCode = 23
	ErrorCodeObjectIdentifierAlreadyExists     ErrorCode = 24
	ErrorCodeReadAccessDenied                  ErrorCode = 27
	ErrorCodeServiceRequestDenied              ErrorCode = 29
	ErrorCodeUnknownObject                     ErrorCode = 31
	ErrorCodeUnknownProperty                   ErrorCode = 32
	ErrorCodeUnsupportedObjectType             ErrorCode = 36
	ErrorCodeValueOutOfRange                   ErrorCode = 37
	ErrorCodeWriteAccessDenied                 ErrorCode = 40
	ErrorCodeCharacterSetNotSupported          ErrorCode = 41
	ErrorCodeInvalidArrayIndex                 ErrorCode = 42
	ErrorCodeOptionalFunctionalityNotSupported ErrorCode = 45
	ErrorCodeDatatypeNotSupported              ErrorCode = 47
	ErrorCodeDuplicateName                     ErrorCode = 48
	ErrorCodeDuplicateObjectID                 ErrorCode = 49
	ErrorCodePropertyIsNotAnArray              ErrorCode = 50
)

func (e ErrorCode) String() string {
	names := map[ErrorCode]string{
		ErrorCodeOther:                             "other",
		ErrorCodeConfigurationInProgress:           "configuration-in-progress",
		ErrorCodeDeviceBusy:                        "device-busy",
		ErrorCodeDynamicCreationNotSupported:       "dynamic-creation-not-supported",
		ErrorCodeInconsistentParameters:            "inconsistent-parameters",
		ErrorCodeInvalidDataType:                   "invalid-data-type",
		ErrorCodeMissingRequiredParameter:          "missing-required-parameter",
		ErrorCodeNoObjectsOfSpecifiedType:          "no-objects-of-specified-type",
		ErrorCodeNoSpaceForObject:                  "no-space-for-object",
		ErrorCodeNoSpaceToWriteProperty:            "no-space-to-write-property",
		ErrorCodePropertyIsNotAList:                "property-is-not-a-list",
		ErrorCodeObjectDeletionNotPermitted:        "object-deletion-not-permitted",
		ErrorCodeObjectIdentifierAlreadyExists:     "object-identifier-already-exists",
		ErrorCodeReadAccessDenied:                  "read-access-denied",
		ErrorCodeServiceRequestDenied:              "service-request-denied",
		ErrorCodeUnknownObject:                     "unknown-object",
		ErrorCodeUnknownProperty:                   "unknown-property",
		ErrorCodeUnsupportedObjectType:             "unsupported-object-type",
		ErrorCodeValueOutOfRange:                   "value-out-of-range",
		ErrorCodeWriteAccessDenied:                 "write-access-denied",
		ErrorCodeCharacterSetNotSupported:          "character-set-not-supported",
		ErrorCodeInvalidArrayIndex:                 "invalid-array-index",
		ErrorCodeOptionalFunctionalityNotSupported: "optional-functionality-not-supported",
		ErrorCodeDatatypeNotSupported:              "datatype-not-supported",
		ErrorCodeDuplicateName:                     "duplicate-name",
		ErrorCodeDuplicateObjectID:                 "duplicate-object-id",
		ErrorCodePropertyIsNotAnArray:              "property-is-not-an-array",
	}
	if name, ok := names[e]; ok {
		return name
	}
	return fmt.Sprintf("error-code(%d)", uint8(e))
}

// Error is a BACnet (error-class, error-code) pair. The codec and the
// dispatch engine always populate the two together, never one alone.
type Error struct {
	Class ErrorClass
	Code  ErrorCode
}

func (e *Error) Error() string {
	return fmt.Sprintf("bacnet error: class=%s, code=%s", e.Class, e.Code)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewError creates a new (error-class, error-code) pair
func NewError(class ErrorClass, code ErrorCode) *Error {
	return &Error{
		Class: class,
		Code:  code,
	}
}

// RejectReason represents BACnet reject reasons
type RejectReason uint8

const (
	RejectReasonOther                    RejectReason = 0
	RejectReasonBufferOverflow           RejectReason = 1
	RejectReasonInconsistentParameters   RejectReason = 2
	RejectReasonInvalidParameterDataType RejectReason = 3
	RejectReasonInvalidTag               RejectReason = 4
	RejectReasonMissingRequiredParameter RejectReason = 5
	RejectReasonParameterOutOfRange      RejectReason = 6
	RejectReasonTooManyArguments         RejectReason = 7
	RejectReasonUndefinedEnumeration     RejectReason = 8
	RejectReasonUnrecognizedService      RejectReason = 9
)

func (r RejectReason) String() string {
	names := map[RejectReason]string{
		RejectReasonOther:                    "other",
		RejectReasonBufferOverflow:           "buffer-overflow",
		RejectReasonInconsistentParameters:   "inconsistent-parameters",
		RejectReasonInvalidParameterDataType: "invalid-parameter-data-type",
		RejectReasonInvalidTag:               "invalid-tag",
		RejectReasonMissingRequiredParameter: "missing-required-parameter",
		RejectReasonParameterOutOfRange:      "parameter-out-of-range",
		RejectReasonTooManyArguments:         "too-many-arguments",
		RejectReasonUndefinedEnumeration:     "undefined-enumeration",
		RejectReasonUnrecognizedService:      "unrecognized-service",
	}
	if name, ok := names[r]; ok {
		return name
	}
	return fmt.Sprintf("reject-reason(%d)", uint8(r))
}

// AbortReason represents BACnet abort reasons
type AbortReason uint8

const (
	AbortReasonOther                    AbortReason = 0
	AbortReasonBufferOverflow           AbortReason = 1
	AbortReasonInvalidApduInThisState   AbortReason = 2
	AbortReasonSegmentationNotSupported AbortReason = 4
	AbortReasonOutOfResources           AbortReason = 9
	AbortReasonApduTooLong              AbortReason = 11
)

func (a AbortReason) String() string {
	names := map[AbortReason]string{
		AbortReasonOther:                    "other",
		AbortReasonBufferOverflow:           "buffer-overflow",
		AbortReasonInvalidApduInThisState:   "invalid-apdu-in-this-state",
		AbortReasonSegmentationNotSupported: "segmentation-not-supported",
		AbortReasonOutOfResources:           "out-of-resources",
		AbortReasonApduTooLong:              "apdu-too-long",
	}
	if name, ok := names[a]; ok {
		return name
	}
	return fmt.Sprintf("abort-reason(%d)", uint8(a))
}
