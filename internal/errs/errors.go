// Package errs provides the unified error type used across all of tabula.
//
// The database pool, its dialect drivers and the download store all return
// *errs.Error. Driver-native failures (MySQL error numbers, Postgres
// SQLSTATE codes, SQLite result codes, S3 error codes) are classified into
// one ErrKind before they leave the package that produced them, so callers
// branch on a stable category instead of driver-specific strings.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindNoSuchTable, "query table", mysqlErr)
//
//	// In a handler, check the error kind:
//	if errs.IsValidation(err) {
//	    http.Error(w, "bad request", http.StatusBadRequest)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing driver-specific codes.
type ErrKind int

const (
	ErrKindUnknown             ErrKind = iota
	ErrKindConfig                      // configuration missing or malformed
	ErrKindNotInitialized              // pool used before Init or after Close
	ErrKindAlreadyInitialized          // Init called on a used pool
	ErrKindConnection                  // cannot reach or open the backend
	ErrKindPoolExhausted               // no connection within the acquire timeout / queue full
	ErrKindIdentifier                  // table or column name failed validation
	ErrKindValidation                  // caller-supplied values rejected
	ErrKindNoSuchTable                 // table does not exist
	ErrKindColumnAlreadyExists         // ADD COLUMN on an existing column
	ErrKindDuplicateEntry              // unique constraint violation
	ErrKindAccessDenied                // backend refused the credentials or privilege
	ErrKindQuery                       // catch-all statement failure
	ErrKindNoSuchObject                // missing object in the download store
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindConfig:
		return "config_error"
	case ErrKindNotInitialized:
		return "not_initialized"
	case ErrKindAlreadyInitialized:
		return "already_initialized"
	case ErrKindConnection:
		return "connection_error"
	case ErrKindPoolExhausted:
		return "pool_exhausted"
	case ErrKindIdentifier:
		return "identifier_error"
	case ErrKindValidation:
		return "validation_error"
	case ErrKindNoSuchTable:
		return "no_such_table"
	case ErrKindColumnAlreadyExists:
		return "column_already_exists"
	case ErrKindDuplicateEntry:
		return "duplicate_entry"
	case ErrKindAccessDenied:
		return "access_denied"
	case ErrKindQuery:
		return "query_error"
	case ErrKindNoSuchObject:
		return "no_such_object"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all tabula subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// KindOf extracts the ErrKind from the first *Error in err's chain.
// Errors that were never classified report ErrKindUnknown.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind ErrKind) bool {
	return err != nil && KindOf(err) == kind
}

// --- Predicates ---

func IsConfig(err error) bool              { return Is(err, ErrKindConfig) }
func IsNotInitialized(err error) bool      { return Is(err, ErrKindNotInitialized) }
func IsAlreadyInitialized(err error) bool  { return Is(err, ErrKindAlreadyInitialized) }
func IsConnection(err error) bool          { return Is(err, ErrKindConnection) }
func IsPoolExhausted(err error) bool       { return Is(err, ErrKindPoolExhausted) }
func IsIdentifier(err error) bool          { return Is(err, ErrKindIdentifier) }
func IsValidation(err error) bool          { return Is(err, ErrKindValidation) }
func IsNoSuchTable(err error) bool         { return Is(err, ErrKindNoSuchTable) }
func IsColumnAlreadyExists(err error) bool { return Is(err, ErrKindColumnAlreadyExists) }
func IsDuplicateEntry(err error) bool      { return Is(err, ErrKindDuplicateEntry) }
func IsAccessDenied(err error) bool        { return Is(err, ErrKindAccessDenied) }
func IsQuery(err error) bool               { return Is(err, ErrKindQuery) }
func IsNoSuchObject(err error) bool        { return Is(err, ErrKindNoSuchObject) }

// IsClientError reports whether the caller can fix err by changing the
// request (bad identifiers or values, missing table, conflicting row).
func IsClientError(err error) bool {
	switch KindOf(err) {
	case ErrKindIdentifier, ErrKindValidation, ErrKindNoSuchTable,
		ErrKindColumnAlreadyExists, ErrKindDuplicateEntry, ErrKindNoSuchObject:
		return true
	}
	return false
}
