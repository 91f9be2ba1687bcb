// Package testing provides test utilities for store.IStore implementations and
// for code that talks to the etcd KV service.
//
// Key Components:
//
//   - RunStoreTests: A conformance suite every IStore implementation should pass.
//     It covers put/get, (prefix) deletes, prefix queries including the 0xFF
//     overflow of the range end, compare and swap, bulk loads and concurrent use.
//
//   - MemoryKV: An in-memory etcdserverpb.KVServer backed by a B-tree. It implements
//     etcd's range conventions, transactions with value/version/revision compares
//     and revisions, counts calls per method and can inject failures through a
//     FailureHook.
//
// Usage Example:
//
//	func TestMyClient(t *testing.T) {
//	  storetesting.RunStoreTests(t, "MyClient", func() store.IStore {
//	    kv := storetesting.NewMemoryKV()
//	    c, _ := client.NewSyncClient(common.DefaultClientConfig(), local.NewLocalClientTransport(kv))
//	    return c
//	  })
//	}
package testing
