package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/lifxctl/internal/protocol/bitfield"
	"github.com/danmuck/lifxctl/internal/protocol/schema"
)

var (
	ErrUnknownTypeID      = errors.New("protocol: unknown type id")
	ErrUnknownField       = errors.New("protocol: unknown field")
	ErrReadOnlyField      = errors.New("protocol: read-only field")
	ErrParse              = errors.New("protocol: parse error")
	ErrInvariantViolation = errors.New("protocol: invariant violation")
)

// Errors raised below this package, re-exported so callers need one import.
var (
	ErrTruncatedBuffer  = bitfield.ErrTruncatedBuffer
	ErrValueType        = bitfield.ErrValueType
	ErrValueOutOfRange  = bitfield.ErrValueOutOfRange
	ErrInvalidEncoding  = schema.ErrInvalidEncoding
	ErrUnknownEnumName  = schema.ErrUnknownEnumName
	ErrUnknownEnumValue = schema.ErrUnknownEnumValue
)

// ParseError reports a buffer too short for the header or the payload its
// type requires. It matches both ErrParse and ErrTruncatedBuffer.
type ParseError struct {
	Section string
	Need    int
	Have    int
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("protocol: parse %s: need %d bytes, have %d: %v", e.Section, e.Need, e.Have, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// FieldError ties a get/set failure to the field name.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("protocol: field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// InvariantError means the declared size disagrees with the encoded length.
// It indicates a defect in this package and is never recoverable.
type InvariantError struct {
	Declared int
	Actual   int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("protocol: size field says %d bytes, encoded %d", e.Declared, e.Actual)
}

func (e *InvariantError) Is(target error) bool { return target == ErrInvariantViolation }
