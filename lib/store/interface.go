package store

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the blocking interface for interacting with the remote key–value store.
// Calling code should depend on this interface instead of a concrete client.
// All failures are returned as *Error (see below), nothing is retried.
type IStore interface {
	// Put inserts or updates a key–value pair.
	Put(key, value []byte) (err error)
	// BulkPut loads a set of keys (with empty values). The keys are written in batches,
	// each batch is atomic but the call as a whole is not. If a batch fails, the earlier
	// batches stay committed and the later ones are not attempted (see BulkPutError).
	BulkPut(keys [][]byte) (err error)
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key []byte) (value []byte, loaded bool, err error)
	// GetPrefix returns all key–value pairs whose key starts with prefix.
	// The map is keyed by the raw key bytes.
	GetPrefix(prefix []byte) (kvs map[string][]byte, err error)
	// Delete removes all given keys atomically.
	Delete(keys [][]byte) (err error)
	// DeletePrefix removes all keys starting with prefix atomically.
	DeletePrefix(prefix []byte) (err error)
	// Swap replaces the value of key with newValue if the current value equals oldValue.
	// If the comparison does not hold (also if the key does not exist) an Error with code
	// RetCSwapFailed is returned.
	Swap(key, oldValue, newValue []byte) (err error)
	// Close releases all resources held by the store client.
	Close() error
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and the underlying cause.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Key  []byte  // The key the error refers to (only set for RetCSwapFailed)
	Err  error   // The underlying error (if any)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code == RetCSwapFailed {
		return fmt.Sprintf("StoreError (code %s): compare and swap failed for key `%s`", e.Code, e.Key)
	}
	if e.Err != nil {
		return fmt.Sprintf("StoreError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a code-only *Error (ErrTransport, ErrRemote,
// ErrSwapFailed) with the same code. Errors carrying a message, such as
// ErrClientClosed, only match themselves.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Msg != "" || t.Err != nil || t.Key != nil {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// NewSwapFailedError creates the error returned if a compare and swap was rejected
func NewSwapFailedError(key []byte) *Error {
	return &Error{
		Code: RetCSwapFailed,
		Msg:  "compare and swap failed",
		Key:  append([]byte(nil), key...),
	}
}

// Sentinel errors for use with errors.Is
var (
	ErrTransport  = &Error{Code: RetCTransportError}
	ErrRemote     = &Error{Code: RetCRemoteError}
	ErrSwapFailed = &Error{Code: RetCSwapFailed}
	// ErrClientClosed is returned by clients that have been closed
	ErrClientClosed = NewError(RetCTransportError, "client is closed", nil)
)

// IsTransportError reports whether err is a connection / channel failure
func IsTransportError(err error) bool {
	return codeOf(err) == RetCTransportError
}

// IsRemoteError reports whether the store rejected the request with a failure status
func IsRemoteError(err error) bool {
	return codeOf(err) == RetCRemoteError
}

// IsSwapFailed reports whether err is a rejected compare and swap
func IsSwapFailed(err error) bool {
	return codeOf(err) == RetCSwapFailed
}

func codeOf(err error) RetCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCSuccess
}

// --------------------------------------------------------------------------
// Bulk Error Type
// --------------------------------------------------------------------------

// BulkPutError is returned by BulkPut if one of the batches failed.
// It reports how much of the call was committed before the failure.
// It unwraps to the *Error of the failed batch.
type BulkPutError struct {
	CommittedBatches int // Number of batches committed before the failure
	CommittedKeys    int // Number of keys committed before the failure
	TotalKeys        int // Number of keys passed to BulkPut
	Err              error
}

// Error implements the error interface.
func (e *BulkPutError) Error() string {
	return fmt.Sprintf("bulk put failed after %d of %d keys (%d batches committed): %v",
		e.CommittedKeys, e.TotalKeys, e.CommittedBatches, e.Err)
}

// Unwrap returns the error of the failed batch
func (e *BulkPutError) Unwrap() error {
	return e.Err
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess        RetCode = iota // 0: Operation executed successfully.
	RetCTransportError                // 1: Connection or channel failure, the request may not have reached the store.
	RetCRemoteError                   // 2: The store returned a failure status for the request.
	RetCSwapFailed                    // 3: The compare and swap predicate did not hold.
)

// String returns the name of the return code
func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCTransportError:
		return "TransportError"
	case RetCRemoteError:
		return "RemoteError"
	case RetCSwapFailed:
		return "SwapFailed"
	default:
		return "Unknown"
	}
}
