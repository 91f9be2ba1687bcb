// Package rpc contains everything needed to talk to the etcd KV service.
//
// The package is organized into several subpackages:
//
//   - common: The transaction builder (mutations, predicates, request factories),
//     the client configuration and the logger setup.
//
//   - transport: Connection abstraction with a gRPC implementation for real clusters
//     and a local implementation that calls an in-process KV server.
//
//   - client: The context based Client and the blocking SyncClient that implements
//     store.IStore.
package rpc
