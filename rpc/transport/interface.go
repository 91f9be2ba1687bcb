package transport

import (
	"context"

	"github.com/ValentinKolb/eKV/rpc/common"
	pb "go.etcd.io/etcd/api/v3/etcdserverpb"
)

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport.
// A transport owns exactly one logical connection to the store and exposes the
// store's KV service stub (Put, Range, DeleteRange, Txn) over it.
type IRPCClientTransport interface {
	// Connect establishes the connection with the given configuration.
	// It returns an error if the store can not be reached.
	Connect(ctx context.Context, config common.ClientConfig) error
	// KV returns the stub of the KV service. It is nil before Connect and after Close.
	KV() pb.KVClient
	// Close closes the transport connection
	Close() error
}
