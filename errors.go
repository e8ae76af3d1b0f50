package ihex

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Call sites wrap these with fmt.Errorf("...: %w", ...)
// to attach context; callers test the kind with errors.Is.
var (
	// ErrMalformed indicates record text could not be parsed: missing the
	// leading ':', a non-hex character, a length mismatch, or a byte count
	// above 255.
	ErrMalformed = errors.New("malformed record")

	// ErrChecksumMismatch indicates a record parsed correctly but its stored
	// checksum disagrees with the computed one.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrOutOfRange indicates a numeric argument fell outside its accepted
	// interval: a relative address above 0xFFFF, an absolute address outside
	// the dialect's space, a zero-size range where a nonzero one is
	// required, a write crossing the dialect's top boundary, a
	// default_block_size below 2, or an index above the sequence length.
	ErrOutOfRange = errors.New("value out of range")

	// ErrDomainMismatch indicates an operation that is meaningful only for
	// certain section or group kinds was invoked on another.
	ErrDomainMismatch = errors.New("operation not valid for this kind")

	// ErrInvariantViolation indicates an operation could not preserve a
	// required invariant.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrSegmentAlignment indicates create_section could not find an
	// aligned EXTENDED_SEGMENT address that avoids intersecting an existing
	// section, even after retrying at ±0x1000 offsets.
	ErrSegmentAlignment = errors.New("no segment alignment avoids existing sections")
)

// InvalidRecordTypeError reports that a record or section is not of the kind
// a typed payload accessor (Segment, Linear, StartSegmentAddress,
// StartLinearAddress) expects; InvalidKind is the kind actually found.
type InvalidRecordTypeError struct {
	InvalidKind RecordKind
	Dialect     DialectKind
}

// Error returns the error message for this error.
func (e *InvalidRecordTypeError) Error() string {
	return fmt.Sprintf("record kind %02X is not valid for %s", byte(e.InvalidKind), e.Dialect)
}

// Unwrap allows errors.Is(err, ErrDomainMismatch) to succeed for this error.
func (e *InvalidRecordTypeError) Unwrap() error {
	return ErrDomainMismatch
}

// IndexedRecordError reports an error that occurred while processing one
// record of an input stream, as produced by ihexfile.LoadGroup, which sets
// Index to the record's 1-based line number.
type IndexedRecordError struct {
	RecordError error
	Index       int
}

// Error returns the error message for this error.
func (e *IndexedRecordError) Error() string {
	return fmt.Sprintf("error at record index %d: %s", e.Index, e.RecordError.Error())
}

// Unwrap allows errors.Is/errors.As to see through to the underlying error.
func (e *IndexedRecordError) Unwrap() error {
	return e.RecordError
}
