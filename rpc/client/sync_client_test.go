package client

import (
	"sync"
	"testing"

	"github.com/ValentinKolb/eKV/lib/store"
	storetesting "github.com/ValentinKolb/eKV/lib/store/testing"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSyncClient(t *testing.T) (*SyncClient, *storetesting.MemoryKV) {
	t.Helper()

	kv := storetesting.NewMemoryKV()
	c, err := NewSyncClient(common.DefaultClientConfig(), local.NewLocalClientTransport(kv))
	require.NoError(t, err)
	return c, kv
}

func TestSyncClientStore(t *testing.T) {
	storetesting.RunStoreTests(t, "SyncClient", func() store.IStore {
		c, _ := newTestSyncClient(t)
		return c
	})
}

func TestSyncClientConnectFailure(t *testing.T) {
	c, err := NewSyncClient(common.DefaultClientConfig(), local.NewLocalClientTransport(nil))
	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, store.IsTransportError(err))
}

func TestSyncClientClose(t *testing.T) {
	c, _ := newTestSyncClient(t)

	require.NoError(t, c.Put([]byte("k"), []byte("v")))
	require.NoError(t, c.Close())

	// closing twice is fine
	require.NoError(t, c.Close())

	// every operation fails after close
	err := c.Put([]byte("k"), []byte("v"))
	assert.ErrorIs(t, err, store.ErrClientClosed)
	assert.True(t, store.IsTransportError(err))

	_, _, err = c.Get([]byte("k"))
	assert.ErrorIs(t, err, store.ErrClientClosed)

	_, err = c.GetPrefix([]byte("k"))
	assert.ErrorIs(t, err, store.ErrClientClosed)
}

func TestSyncClientConcurrentClose(t *testing.T) {
	c, _ := newTestSyncClient(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Close())
		}()
	}
	wg.Wait()
}

func TestSyncClientBulkPutFailure(t *testing.T) {
	c, kv := newTestSyncClient(t)
	defer c.Close()

	kv.SetFailureHook(storetesting.FailOnCall(storetesting.MethodTxn, 1, store.NewError(store.RetCRemoteError, "injected", nil)))

	err := c.BulkPut(bulkKeys("k", 10))
	var bulkErr *store.BulkPutError
	require.ErrorAs(t, err, &bulkErr)
	assert.Equal(t, 0, bulkErr.CommittedKeys)
	assert.Equal(t, 0, kv.Len())
}
