package client

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/eKV/lib/store"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport"
	grpctransport "github.com/ValentinKolb/eKV/rpc/transport/grpc"
	pb "go.etcd.io/etcd/api/v3/etcdserverpb"
)

// Client is the context based (asynchronous) eKV client.
// Every method performs its RPCs on the calling goroutine and returns as soon as
// the store answered or ctx is done, so callers decide about concurrency and
// cancellation themselves.
//
// The client holds no state besides the transport. It may be used from multiple
// goroutines if the transport allows it (the grpc and local transports do).
type Client struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
	kv        pb.KVClient
}

// NewClient connects the transport and creates a new client.
// A failing connection is returned as a transport error.
func NewClient(
	ctx context.Context,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
) (*Client, error) {

	// Connect the transport
	if err := transport.Connect(ctx, config); err != nil {
		return nil, store.NewError(store.RetCTransportError, "connect", err)
	}

	kv := transport.KV()
	if kv == nil {
		return nil, store.NewError(store.RetCTransportError, "connect", fmt.Errorf("transport returned no kv stub"))
	}

	return &Client{
		config:    config,
		transport: transport,
		kv:        kv,
	}, nil
}

// NewLocalhostClient creates a client for the etcd member on localhost:2379
func NewLocalhostClient(ctx context.Context) (*Client, error) {
	return NewClient(ctx, common.DefaultClientConfig(), grpctransport.NewGRPCClientTransport())
}

// Put stores a value.
// A single put needs no transaction and is sent as a plain Put RPC.
func (c *Client) Put(ctx context.Context, key, value []byte) error {
	_, err := c.kv.Put(ctx, common.NewPutRequest(key, value))
	return wrapRPCError("put", err)
}

// BulkPut loads a set of keys with empty values.
//
// etcd limits the size of a transaction, so the keys are chunked into batches of
// config.BatchSize keys. Each batch is one atomic transaction, the batches are sent
// one after another. If a batch fails the earlier batches stay committed, the later
// ones are not attempted and a *store.BulkPutError is returned.
func (c *Client) BulkPut(ctx context.Context, keys [][]byte) error {
	batchSize := c.config.GetBatchSize()
	batches := 0
	committed := 0

	for start := 0; start < len(keys); start += batchSize {
		end := min(start+batchSize, len(keys))

		mutations := make([]common.Mutation, 0, end-start)
		for _, key := range keys[start:end] {
			mutations = append(mutations, common.NewPutMutation(key, nil))
		}

		Logger.Debugf("Bulk put batch %d with %d keys", batches+1, len(mutations))
		if _, err := c.kv.Txn(ctx, common.BuildUnconditional(mutations)); err != nil {
			return &store.BulkPutError{
				CommittedBatches: batches,
				CommittedKeys:    committed,
				TotalKeys:        len(keys),
				Err:              wrapRPCError("bulk put", err),
			}
		}

		batches++
		committed = end
	}

	Logger.Debugf("Bulk put of %d keys in %d batches complete", committed, batches)
	return nil
}

// Get retrieves a single value. The boolean indicates whether the key exists.
func (c *Client) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	resp, err := c.kv.Range(ctx, common.NewRangeRequest(key, nil))
	if err != nil {
		return nil, false, wrapRPCError("get", err)
	}

	// an exact key query yields at most one kv, the last one is taken
	if n := len(resp.Kvs); n > 0 {
		return resp.Kvs[n-1].Value, true, nil
	}
	return nil, false, nil
}

// GetPrefix returns all key/value pairs for the given prefix.
// The returned map is never nil.
func (c *Client) GetPrefix(ctx context.Context, prefix []byte) (map[string][]byte, error) {
	r := store.PrefixRange(prefix)

	resp, err := c.kv.Range(ctx, common.NewRangeRequest(r.Start, r.End))
	if err != nil {
		return nil, wrapRPCError("get prefix", err)
	}

	kvs := make(map[string][]byte, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		kvs[string(kv.Key)] = kv.Value
	}

	Logger.Debugf("Range for prefix %q returned %d keys", prefix, len(kvs))
	return kvs, nil
}

// Delete deletes a set of keys atomically
func (c *Client) Delete(ctx context.Context, keys [][]byte) error {
	Logger.Debugf("Deleting %d keys", len(keys))

	mutations := make([]common.Mutation, 0, len(keys))
	for _, key := range keys {
		mutations = append(mutations, common.NewDeleteMutation(key))
	}

	if _, err := c.kv.Txn(ctx, common.BuildUnconditional(mutations)); err != nil {
		return wrapRPCError("delete", err)
	}

	Logger.Debugf("Delete transaction complete")
	return nil
}

// DeletePrefix deletes all keys underneath a prefix atomically.
// A single range delete is atomic in the store and needs no transaction.
func (c *Client) DeletePrefix(ctx context.Context, prefix []byte) error {
	r := store.PrefixRange(prefix)
	_, err := c.kv.DeleteRange(ctx, common.NewDeleteRangeRequest(r.Start, r.End))
	return wrapRPCError("delete prefix", err)
}

// Swap performs an atomic compare and swap for a key.
// newValue is written only if the current value equals oldValue. Otherwise
// (including a missing key) an error with code store.RetCSwapFailed is returned.
func (c *Client) Swap(ctx context.Context, key, oldValue, newValue []byte) error {
	txn := common.BuildConditional(
		[]common.Predicate{common.NewValueEquals(key, oldValue)},
		[]common.Mutation{common.NewPutMutation(key, newValue)},
		nil,
	)

	resp, err := c.kv.Txn(ctx, txn)
	if err != nil {
		return wrapRPCError("swap", err)
	}

	if !common.Interpret(resp) {
		return store.NewSwapFailedError(key)
	}
	return nil
}

// Close closes the underlying transport
func (c *Client) Close() error {
	return c.transport.Close()
}
