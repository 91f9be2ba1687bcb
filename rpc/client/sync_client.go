package client

import (
	"context"

	"github.com/ValentinKolb/eKV/lib/store"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport"
	grpctransport "github.com/ValentinKolb/eKV/rpc/transport/grpc"
)

// SyncClient is a blocking version of the Client.
//
// It wraps a Client and pairs it with an executor (one dedicated goroutine) that is
// owned by this instance. Every method hands the operation to the executor and
// blocks until it completed, so operations of one SyncClient never overlap.
// Close stops the executor and closes the connection.
type SyncClient struct {
	inner *Client
	exec  *executor
}

var _ store.IStore = (*SyncClient)(nil)

// NewSyncClient creates a new blocking client.
// The connection is established on the client's executor.
func NewSyncClient(config common.ClientConfig, transport transport.IRPCClientTransport) (*SyncClient, error) {
	exec := newExecutor()

	var inner *Client
	err := exec.run(func() (err error) {
		inner, err = NewClient(context.Background(), config, transport)
		return err
	})
	if err != nil {
		exec.shutdown()
		return nil, err
	}

	return &SyncClient{
		inner: inner,
		exec:  exec,
	}, nil
}

// NewLocalhostSyncClient creates a blocking client for the etcd member on localhost:2379
func NewLocalhostSyncClient() (*SyncClient, error) {
	return NewSyncClient(common.DefaultClientConfig(), grpctransport.NewGRPCClientTransport())
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (c *SyncClient) Put(key, value []byte) error {
	return c.exec.run(func() error {
		return c.inner.Put(context.Background(), key, value)
	})
}

func (c *SyncClient) BulkPut(keys [][]byte) error {
	return c.exec.run(func() error {
		return c.inner.BulkPut(context.Background(), keys)
	})
}

func (c *SyncClient) Get(key []byte) (value []byte, loaded bool, err error) {
	err = c.exec.run(func() (err error) {
		value, loaded, err = c.inner.Get(context.Background(), key)
		return err
	})
	return value, loaded, err
}

func (c *SyncClient) GetPrefix(prefix []byte) (kvs map[string][]byte, err error) {
	err = c.exec.run(func() (err error) {
		kvs, err = c.inner.GetPrefix(context.Background(), prefix)
		return err
	})
	return kvs, err
}

func (c *SyncClient) Delete(keys [][]byte) error {
	return c.exec.run(func() error {
		return c.inner.Delete(context.Background(), keys)
	})
}

func (c *SyncClient) DeletePrefix(prefix []byte) error {
	return c.exec.run(func() error {
		return c.inner.DeletePrefix(context.Background(), prefix)
	})
}

func (c *SyncClient) Swap(key, oldValue, newValue []byte) error {
	return c.exec.run(func() error {
		return c.inner.Swap(context.Background(), key, oldValue, newValue)
	})
}

// Close closes the connection and tears down the executor.
// It waits until the executor's goroutine has exited. Closing twice is a no-op.
func (c *SyncClient) Close() error {
	err := c.exec.run(c.inner.Close)
	if err == store.ErrClientClosed {
		return nil
	}
	c.exec.shutdown()
	return err
}
