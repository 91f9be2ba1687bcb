// Package store defines the capability contract of an eKV client and the helpers
// that do not depend on the wire protocol.
//
// The package focuses on:
//   - A unified blocking interface (IStore) for key-value operations
//   - A typed error taxonomy shared by all client implementations
//   - Key range arithmetic for prefix queries and prefix deletes
//
// Key Components:
//
//   - IStore Interface: The seven operations every client offers (Put, BulkPut, Get,
//     GetPrefix, Delete, DeletePrefix, Swap). Code that depends on IStore works with
//     every client implementation, e.g. the synchronous client in the rpc/client
//     package.
//
//   - Error System: Every failure is an *Error carrying a RetCode. RetCTransportError
//     and RetCRemoteError are systemic failures the caller may retry, RetCSwapFailed
//     is an expected outcome of a compare and swap. The codes can be tested with
//     errors.Is (ErrTransport, ErrRemote, ErrSwapFailed) or the Is* helpers.
//     BulkPutError additionally reports how many keys were committed.
//
//   - Range / PrefixRange: The half-open range [prefix, prefix+1) used by etcd to
//     select all keys sharing a prefix.
//
// A conformance suite for IStore implementations lives in the
// "github.com/ValentinKolb/eKV/lib/store/testing" package.
package store
