// Package client implements the eKV clients. They offer put, get, delete, compare
// and swap and prefix operations and translate them into the etcd KV service's
// requests (Put, Range, DeleteRange and Txn).
//
// The package focuses on:
//   - Hiding the transaction protocol (compare predicates + conditional operation lists)
//   - Chunking bulk operations into transactions of bounded size
//   - Classifying failures into transport, remote and swap errors (see store.Error)
//
// Key Components:
//
//   - Client: The context based client. Every operation takes a context.Context and
//     runs on the calling goroutine; cancellation and deadlines of the context are
//     honored by the transport.
//
//   - SyncClient: A blocking client implementing store.IStore. It owns one executor
//     goroutine that runs the Client operations one at a time. The executor is
//     created with the client and stopped by Close.
//
// Operations:
//
//   - Put:          one Put RPC
//   - BulkPut:      one transaction without predicates per batch of keys (sequential,
//     atomic per batch only)
//   - Get:          one Range RPC for the exact key
//   - GetPrefix:    one Range RPC over [prefix, prefix+1)
//   - Delete:       one transaction without predicates deleting every key
//   - DeletePrefix: one DeleteRange RPC over [prefix, prefix+1)
//   - Swap:         one transaction comparing the current value with the expected one
//
// Usage Example:
//
//	// Connect to a local etcd member
//	c, err := client.NewLocalhostSyncClient()
//	if err != nil {
//	  return err
//	}
//	defer c.Close()
//
//	// Use the store
//	c.Put([]byte("mykey"), []byte("myvalue"))
//	value, exists, _ := c.Get([]byte("mykey"))
//
//	// Compare and swap
//	err = c.Swap([]byte("mykey"), []byte("myvalue"), []byte("next"))
//	if store.IsSwapFailed(err) {
//	  // somebody else changed the value
//	}
//
// No operation is retried. Every failure is returned to the caller.
package client
