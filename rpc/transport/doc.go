// Package transport defines the contract between the eKV client and the
// connection to the store. The client only talks to the etcd KV service stub
// handed out by a transport, which keeps connection handling (dialing, TLS,
// load balancing, deadlines) out of the client logic.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and hands out the KV service stub.
//
// Implementations:
//
//   - grpc: Connects to etcd endpoints over gRPC (the production transport).
//   - local: Binds the client to an in-process etcdserverpb.KVServer, used for
//     embedding and testing.
package transport
