package local

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	pb "go.etcd.io/etcd/api/v3/etcdserverpb"
	"google.golang.org/grpc"
)

var Logger = logger.GetLogger("transport/rpc")

// NewLocalClientTransport creates a transport that calls the given KV server
// directly in the same process
func NewLocalClientTransport(server pb.KVServer) transport.IRPCClientTransport {
	return &localClientTransport{server: server}
}

type localClientTransport struct {
	server pb.KVServer
	kv     pb.KVClient
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *localClientTransport) Connect(_ context.Context, config common.ClientConfig) error {
	if t.server == nil {
		return fmt.Errorf("no server provided")
	}
	t.kv = &serverClient{
		server:  t.server,
		timeout: time.Duration(config.TimeoutSecond) * time.Second,
	}
	Logger.Infof("Connected to local server")
	return nil
}

func (t *localClientTransport) KV() pb.KVClient {
	return t.kv
}

func (t *localClientTransport) Close() error {
	t.kv = nil
	return nil
}

// --------------------------------------------------------------------------
// KVServer -> KVClient adapter
// --------------------------------------------------------------------------

// serverClient implements pb.KVClient by calling a pb.KVServer.
// Call options are ignored.
type serverClient struct {
	server  pb.KVServer
	timeout time.Duration
}

// withTimeout applies the request timeout to contexts without a deadline
func (c *serverClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *serverClient) Range(ctx context.Context, in *pb.RangeRequest, _ ...grpc.CallOption) (*pb.RangeResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.server.Range(ctx, in)
}

func (c *serverClient) Put(ctx context.Context, in *pb.PutRequest, _ ...grpc.CallOption) (*pb.PutResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.server.Put(ctx, in)
}

func (c *serverClient) DeleteRange(ctx context.Context, in *pb.DeleteRangeRequest, _ ...grpc.CallOption) (*pb.DeleteRangeResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.server.DeleteRange(ctx, in)
}

func (c *serverClient) Txn(ctx context.Context, in *pb.TxnRequest, _ ...grpc.CallOption) (*pb.TxnResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.server.Txn(ctx, in)
}

func (c *serverClient) Compact(ctx context.Context, in *pb.CompactionRequest, _ ...grpc.CallOption) (*pb.CompactionResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.server.Compact(ctx, in)
}
