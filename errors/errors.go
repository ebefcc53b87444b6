package errors

import (
	"fmt"
)

type ErrorCode int

const (
	InternalError = iota
	InvalidConfiguration
	CorruptRowData
	ValueOutOfRange
	VarcharTooBig
	WrongNumberOfValues
	BufferTooSmall
	InvalidFieldWidth
	UnknownRowDef
	RowDefAlreadyExists
	RowDefMismatch
	InvalidDescriptor
)

func NewInternalError(ref string) RowStoreError {
	return NewRowStoreErrorf(InternalError, "Internal error - reference: %s please consult logs for details", ref)
}

func NewInvalidConfigurationError(msg string) RowStoreError {
	return NewRowStoreErrorf(InvalidConfiguration, "Invalid configuration: %s", msg)
}

// NewCorruptRowDataError is returned whenever the framing of a record does not validate. Callers must not
// attempt to decode any field of such a record.
func NewCorruptRowDataError(offset int, msgFormat string, args ...interface{}) RowStoreError {
	return NewRowStoreErrorf(CorruptRowData, "Corrupt row data at offset %d: %s", offset, fmt.Sprintf(msgFormat, args...))
}

func NewValueOutOfRangeError(msg string) RowStoreError {
	return NewRowStoreErrorf(ValueOutOfRange, "Value out of range. %s", msg)
}

func NewVarcharTooBigError(fieldName string, length int, maxLength int) RowStoreError {
	return NewRowStoreErrorf(VarcharTooBig, "Value for column %s has length %d, maximum is %d", fieldName, length, maxLength)
}

func NewWrongNumberOfValuesError(expected int, actual int) RowStoreError {
	return NewRowStoreErrorf(WrongNumberOfValues, "Expected %d values, got %d", expected, actual)
}

func NewBufferTooSmallError(required int, available int) RowStoreError {
	return NewRowStoreErrorf(BufferTooSmall, "Row requires %d bytes but only %d are available", required, available)
}

func NewInvalidFieldWidthError(fieldName string, width int, minWidth int, maxWidth int) RowStoreError {
	return NewRowStoreErrorf(InvalidFieldWidth, "Column %s width %d must be in the range %d to %d", fieldName, width, minWidth, maxWidth)
}

func NewUnknownRowDefError(id int32) RowStoreError {
	return NewRowStoreErrorf(UnknownRowDef, "Unknown row def: %d", id)
}

func NewRowDefAlreadyExistsError(id int32) RowStoreError {
	return NewRowStoreErrorf(RowDefAlreadyExists, "Row def already exists: %d", id)
}

func NewRowDefMismatchError(expectedID int32, actualID int32, expectedFields int, actualFields int) RowStoreError {
	return NewRowStoreErrorf(RowDefMismatch, "Row was written with row def %d (%d fields), not %d (%d fields)",
		actualID, actualFields, expectedID, expectedFields)
}

func NewInvalidDescriptorError(msg string) RowStoreError {
	return NewRowStoreErrorf(InvalidDescriptor, "Invalid row descriptor: %s", msg)
}

func NewRowStoreErrorf(errorCode ErrorCode, msgFormat string, args ...interface{}) RowStoreError {
	msg := fmt.Sprintf(fmt.Sprintf("RS%04d - %s", errorCode, msgFormat), args...)
	return RowStoreError{Code: errorCode, Msg: msg}
}

func NewRowStoreError(errorCode ErrorCode, msg string) RowStoreError {
	return RowStoreError{Code: errorCode, Msg: msg}
}

// RowStoreError is any kind of error that is exposed to the user via external interfaces like the CLI
type RowStoreError struct {
	Code ErrorCode
	Msg  string
}

func (u RowStoreError) Error() string {
	return u.Msg
}

// HasCode reports whether err, or any error it wraps, is a RowStoreError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var rerr RowStoreError
	if !As(err, &rerr) {
		return false
	}
	return rerr.Code == code
}
