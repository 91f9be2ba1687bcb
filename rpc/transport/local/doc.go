// Package local implements the IRPCClientTransport interface for a KV server
// running in the same process. No serialization or network is involved, the
// client calls the etcdserverpb.KVServer methods directly.
//
// This is useful to embed a client into programs that host the KV service
// themselves and for tests (see the in-memory server in lib/store/testing).
package local
