package store

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// StoreFactory is a function type that creates a new property store.
// This is used to abstract the creation of the store from its consumers (tests, cmd).
type StoreFactory func() IPropertyStore

// IPropertyStore is the interface of the host-provided property storage.
// Every property is a named string value. Implementations must make single
// reads and writes atomic: a reader never observes a partially written value.
type IPropertyStore interface {
	// ReadProperty returns the value stored under key.
	// The boolean return value indicates whether the property exists.
	ReadProperty(key string) (value string, found bool, err error)
	// WriteProperty creates or replaces the property under key.
	// On failure (e.g. a size quota is exceeded) it returns an *Error with code RetCStorageWrite
	// and the previous value stays in place.
	WriteProperty(key, value string) (err error)
	// ClearAllProperties removes every property. Intended for tests and resets only.
	ClearAllProperties() (err error)
	// Keys returns all property keys starting with prefix, sorted ascending.
	Keys(prefix string) (keys []string, err error)
	// Close releases all resources held by the store.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and an optional cause.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Err  error   // The underlying cause (may be nil)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("PropDBError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("PropDBError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
// This makes errors.Is(err, store.ErrCorruptData) work for every error of that class.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new *Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new *Error with the given code and message wrapping cause.
func WrapError(code RetCode, msg string, cause error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  cause,
	}
}

// Sentinels for errors.Is checks. Only the Code is compared.
var (
	ErrCorruptData  = NewError(RetCCorruptData, "corrupt data")
	ErrStorageWrite = NewError(RetCStorageWrite, "storage write failed")
	ErrKeyNotFound  = NewError(RetCKeyNotFound, "key not found")
	ErrEvicted      = NewError(RetCEvicted, "database instance was evicted")
	ErrInvalidValue = NewError(RetCInvalidValue, "invalid value")
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCCorruptData                         // 4: Persisted text could not be decoded.
	RetCStorageWrite                        // 5: Writing a property failed.
	RetCKeyNotFound                         // 6: Strict lookup of a missing key.
	RetCEvicted                             // 7: Operation on an evicted database instance.
	RetCInvalidValue                        // 8: Value cannot be represented in the text format.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCCorruptData:
		return "CorruptData"
	case RetCStorageWrite:
		return "StorageWrite"
	case RetCKeyNotFound:
		return "KeyNotFound"
	case RetCEvicted:
		return "Evicted"
	case RetCInvalidValue:
		return "InvalidValue"
	default:
		return "Unknown"
	}
}
