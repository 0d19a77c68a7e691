package store

import (
	"bytes"
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory is a function type that opens (or creates) a store at a backend specific location.
// This is used to abstract the creation of the backend from the server and the cli.
type Factory func(location string) (IStore, error)

// Pair is a single key–value entry of the store.
type Pair struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// IStore is the ordered key–value contract every backend implements.
// Keys are compared with bytes.Compare, ranges are half-open [start, end).
// A nil key and an empty key denote the same key.
// All operations return a non-nil error if they were not applied.
type IStore interface {
	// Add inserts or overwrites the value for a key.
	Add(key, value []byte) (err error)
	// Select returns the value for a key. The boolean return value indicates whether a value for the key was found.
	// A missing key is not an error.
	Select(key []byte) (value []byte, loaded bool, err error)
	// Remove deletes the entry for a key. Removing a missing key is a no-op.
	Remove(key []byte) (err error)
	// SelectRange returns all entries with start <= key < end in ascending key order.
	// An empty or inverted range returns no entries.
	SelectRange(start, end []byte) (pairs []Pair, err error)
	// RemoveRange removes all entries with start <= key < end and returns the removed
	// entries in ascending key order.
	RemoveRange(start, end []byte) (pairs []Pair, err error)
	// Flush makes all previous writes durable. Backends without buffering return nil.
	Flush() (err error)
	// Close releases all resources of the store. Further calls return an error with RetCStoreClosed.
	Close() (err error)
}

// EmptyRange reports whether the half-open range [start, end) can not contain any key.
func EmptyRange(start, end []byte) bool {
	return bytes.Compare(start, end) >= 0
}

// InRange reports whether key lies in the half-open range [start, end).
func InRange(key, start, end []byte) bool {
	return bytes.Compare(key, start) >= 0 && bytes.Compare(key, end) < 0
}

// Clone returns a copy of b. The copy of an empty slice is a non-nil empty slice.
func Clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Wrap turns a backend failure into an Error with RetCInternalError.
// A nil error stays nil, an existing *Error is returned unchanged.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return NewError(RetCInternalError, fmt.Sprintf("%s: %v", msg, err))
}

// ErrClosed returns the error reported by every operation on a closed store.
func ErrClosed() *Error {
	return NewError(RetCStoreClosed, "store is closed")
}

// IsCode reports whether err (or any error it wraps) is an *Error with the given code.
func IsCode(err error, code RetCode) bool {
	var storeErr *Error
	if !errors.As(err, &storeErr) {
		return false
	}
	return storeErr.Code == code
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint8

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal (backend) error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying backend.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCStoreClosed                         // 4: The store was already closed.
)

// String returns the name of the return code.
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
	case RetCStoreClosed:
		return "StoreClosed"
	default:
		return "Unknown"
	}
}
