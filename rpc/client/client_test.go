package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ValentinKolb/eKV/lib/store"
	storetesting "github.com/ValentinKolb/eKV/lib/store/testing"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// newTestClient creates a client connected to a fresh in-memory KV server
func newTestClient(t *testing.T) (*Client, *storetesting.MemoryKV) {
	t.Helper()

	kv := storetesting.NewMemoryKV()
	c, err := NewClient(context.Background(), common.DefaultClientConfig(), local.NewLocalClientTransport(kv))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, kv
}

func bulkKeys(prefix string, n int) [][]byte {
	keys := make([][]byte, n)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("%s%05d", prefix, i))
	}
	return keys
}

func TestClientConnectFailure(t *testing.T) {
	_, err := NewClient(context.Background(), common.DefaultClientConfig(), local.NewLocalClientTransport(nil))
	require.Error(t, err)
	assert.True(t, store.IsTransportError(err))
}

func TestClientPutGet(t *testing.T) {
	c, kv := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, []byte("k"), []byte("v")))
	assert.Equal(t, uint64(1), kv.Calls(storetesting.MethodPut))

	value, loaded, err := c.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, []byte("v"), value)
	assert.Equal(t, uint64(1), kv.Calls(storetesting.MethodRange))

	_, loaded, err = c.Get(ctx, []byte("missing"))
	require.NoError(t, err)
	assert.False(t, loaded)
}

func TestClientBulkPutBatches(t *testing.T) {
	c, kv := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.BulkPut(ctx, bulkKeys("bulk/", 2500)))

	// 1000 + 1000 + 500
	assert.Equal(t, uint64(3), kv.Calls(storetesting.MethodTxn))
	assert.Equal(t, 2500, kv.Len())

	kvs, err := c.GetPrefix(ctx, []byte("bulk/"))
	require.NoError(t, err)
	assert.Len(t, kvs, 2500)
}

func TestClientBulkPutCustomBatchSize(t *testing.T) {
	kv := storetesting.NewMemoryKV()
	config := common.DefaultClientConfig()
	config.BatchSize = 10

	c, err := NewClient(context.Background(), config, local.NewLocalClientTransport(kv))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.BulkPut(context.Background(), bulkKeys("k", 25)))
	assert.Equal(t, uint64(3), kv.Calls(storetesting.MethodTxn))
	assert.Equal(t, 25, kv.Len())
}

func TestClientBulkPutEmpty(t *testing.T) {
	c, kv := newTestClient(t)

	require.NoError(t, c.BulkPut(context.Background(), nil))
	assert.Equal(t, uint64(0), kv.Calls(storetesting.MethodTxn))
}

func TestClientBulkPutPartialFailure(t *testing.T) {
	c, kv := newTestClient(t)
	ctx := context.Background()

	kv.SetFailureHook(storetesting.FailOnCall(storetesting.MethodTxn, 2, status.Error(codes.Unavailable, "connection lost")))

	err := c.BulkPut(ctx, bulkKeys("bulk/", 2500))
	require.Error(t, err)

	var bulkErr *store.BulkPutError
	require.True(t, errors.As(err, &bulkErr))
	assert.Equal(t, 1, bulkErr.CommittedBatches)
	assert.Equal(t, 1000, bulkErr.CommittedKeys)
	assert.Equal(t, 2500, bulkErr.TotalKeys)
	assert.True(t, store.IsTransportError(err))

	// the first batch stays, the third one was never sent
	assert.Equal(t, uint64(2), kv.Calls(storetesting.MethodTxn))
	assert.Equal(t, 1000, kv.Len())

	_, loaded, err := c.Get(ctx, []byte("bulk/00999"))
	require.NoError(t, err)
	assert.True(t, loaded)
	_, loaded, err = c.Get(ctx, []byte("bulk/01000"))
	require.NoError(t, err)
	assert.False(t, loaded)
}

func TestClientRemoteError(t *testing.T) {
	c, kv := newTestClient(t)
	ctx := context.Background()

	// the store rejects empty keys
	err := c.Put(ctx, nil, []byte("v"))
	require.Error(t, err)
	assert.True(t, store.IsRemoteError(err))
	assert.Equal(t, codes.InvalidArgument, status.Code(errors.Unwrap(err)))

	// and transactions that are too large
	kv.MaxTxnOps = 2
	err = c.Delete(ctx, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	require.Error(t, err)
	assert.True(t, store.IsRemoteError(err))
}

func TestClientTransportErrors(t *testing.T) {
	c, kv := newTestClient(t)

	for _, code := range []codes.Code{codes.Unavailable, codes.Canceled, codes.DeadlineExceeded} {
		kv.SetFailureHook(func(storetesting.Method, uint64) error {
			return status.Error(code, "injected")
		})
		err := c.Put(context.Background(), []byte("k"), []byte("v"))
		assert.True(t, store.IsTransportError(err), "code %s", code)
		assert.NotErrorIs(t, err, store.ErrClientClosed, "code %s", code)
	}

	kv.SetFailureHook(func(storetesting.Method, uint64) error {
		return status.Error(codes.PermissionDenied, "injected")
	})
	err := c.Put(context.Background(), []byte("k"), []byte("v"))
	assert.True(t, store.IsRemoteError(err))
}

func TestClientCancelledContext(t *testing.T) {
	c, _ := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.Get(ctx, []byte("k"))
	require.Error(t, err)
	assert.True(t, store.IsTransportError(err))
}

func TestClientSwap(t *testing.T) {
	c, kv := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, []byte("k"), []byte("old")))
	require.NoError(t, c.Swap(ctx, []byte("k"), []byte("old"), []byte("new")))
	assert.Equal(t, uint64(1), kv.Calls(storetesting.MethodTxn))

	err := c.Swap(ctx, []byte("k"), []byte("old"), []byte("newer"))
	assert.True(t, store.IsSwapFailed(err))
	assert.ErrorIs(t, err, store.ErrSwapFailed)

	value, _, err := c.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), value)

	// a missing key never matches
	err = c.Swap(ctx, []byte("missing"), nil, []byte("v"))
	assert.True(t, store.IsSwapFailed(err))
}

func TestClientPrefixOperations(t *testing.T) {
	c, kv := newTestClient(t)
	ctx := context.Background()

	for k, v := range map[string]string{"a/1": "x", "a/2": "y", "b/1": "z"} {
		require.NoError(t, c.Put(ctx, []byte(k), []byte(v)))
	}

	kvs, err := c.GetPrefix(ctx, []byte("a/"))
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a/1": []byte("x"), "a/2": []byte("y")}, kvs)

	require.NoError(t, c.DeletePrefix(ctx, []byte("a/")))
	assert.Equal(t, uint64(1), kv.Calls(storetesting.MethodDeleteRange))
	assert.Equal(t, 1, kv.Len())

	kvs, err = c.GetPrefix(ctx, []byte("a/"))
	require.NoError(t, err)
	assert.NotNil(t, kvs)
	assert.Empty(t, kvs)
}

func TestClientDeleteIsOneTransaction(t *testing.T) {
	c, kv := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.BulkPut(ctx, bulkKeys("d/", 10)))
	revision := kv.Revision()

	require.NoError(t, c.Delete(ctx, bulkKeys("d/", 5)))
	assert.Equal(t, uint64(2), kv.Calls(storetesting.MethodTxn))
	assert.Equal(t, 5, kv.Len())
	assert.Equal(t, revision+1, kv.Revision())
}
