package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorIs(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(RetCTransportError, "put", cause)

	if !errors.Is(err, ErrTransport) {
		t.Error("Expected transport error to match ErrTransport")
	}
	if errors.Is(err, ErrRemote) || errors.Is(err, ErrSwapFailed) {
		t.Error("Transport error must not match other codes")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected the error to unwrap to its cause")
	}
	if !IsTransportError(err) || IsRemoteError(err) || IsSwapFailed(err) {
		t.Error("Unexpected classification of a transport error")
	}
}

func TestErrorWrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError(RetCRemoteError, "txn", errors.New("too many operations")))

	if !IsRemoteError(err) {
		t.Error("Expected wrapped remote error to be classified as remote")
	}

	var storeErr *Error
	if !errors.As(err, &storeErr) {
		t.Fatal("Expected errors.As to find the *Error")
	}
	if storeErr.Code != RetCRemoteError {
		t.Errorf("Expected code %s, got %s", RetCRemoteError, storeErr.Code)
	}

	if IsTransportError(errors.New("plain")) || IsTransportError(nil) {
		t.Error("Errors without code must not be classified")
	}
}

func TestSwapFailedError(t *testing.T) {
	key := []byte("k")
	err := NewSwapFailedError(key)
	key[0] = 'x'

	if string(err.Key) != "k" {
		t.Errorf("Expected key to be copied, got %q", err.Key)
	}
	if !errors.Is(err, ErrSwapFailed) {
		t.Error("Expected swap error to match ErrSwapFailed")
	}
	if !strings.Contains(err.Error(), "compare and swap failed for key `k`") {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestBulkPutError(t *testing.T) {
	inner := NewError(RetCTransportError, "bulk put", errors.New("unavailable"))
	err := error(&BulkPutError{
		CommittedBatches: 1,
		CommittedKeys:    1000,
		TotalKeys:        2500,
		Err:              inner,
	})

	if !IsTransportError(err) {
		t.Error("Expected BulkPutError to unwrap to the transport error")
	}

	var bulkErr *BulkPutError
	if !errors.As(err, &bulkErr) {
		t.Fatal("Expected errors.As to find the *BulkPutError")
	}
	if bulkErr.CommittedKeys != 1000 || bulkErr.TotalKeys != 2500 {
		t.Errorf("Unexpected counts: %d/%d", bulkErr.CommittedKeys, bulkErr.TotalKeys)
	}
	if !strings.Contains(err.Error(), "after 1000 of 2500 keys") {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestRetCodeString(t *testing.T) {
	codes := map[RetCode]string{
		RetCSuccess:        "Success",
		RetCTransportError: "TransportError",
		RetCRemoteError:    "RemoteError",
		RetCSwapFailed:     "SwapFailed",
		RetCode(42):        "Unknown",
	}
	for code, want := range codes {
		if got := code.String(); got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}
}

func TestClientClosedIsDistinct(t *testing.T) {
	if !errors.Is(ErrClientClosed, ErrClientClosed) {
		t.Error("Expected ErrClientClosed to match itself")
	}
	if !errors.Is(ErrClientClosed, ErrTransport) || !IsTransportError(ErrClientClosed) {
		t.Error("Expected ErrClientClosed to be a transport error")
	}

	networkErr := NewError(RetCTransportError, "put", errors.New("network down"))
	if errors.Is(networkErr, ErrClientClosed) {
		t.Error("A connection failure must not match ErrClientClosed")
	}
	if errors.Is(fmt.Errorf("wrapped: %w", networkErr), ErrClientClosed) {
		t.Error("A wrapped connection failure must not match ErrClientClosed")
	}

	// errors with a message are not code sentinels
	if errors.Is(NewSwapFailedError([]byte("a")), NewSwapFailedError([]byte("a"))) {
		t.Error("Expected two distinct swap errors not to match each other")
	}
}
