package grpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	pb "go.etcd.io/etcd/api/v3/etcdserverpb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/resolver"
	"google.golang.org/grpc/resolver/manual"
)

var Logger = logger.GetLogger("transport/rpc")

const (
	// resolverScheme is used for the manual resolver if more than one endpoint is configured
	resolverScheme = "ekv-endpoints"
	// roundRobinServiceConfig balances requests over all endpoints
	roundRobinServiceConfig = `{"loadBalancingConfig":[{"round_robin":{}}]}`
)

// NewGRPCClientTransport creates a new gRPC client transport.
// Additional dial options are appended to the ones derived from the configuration
// (e.g. a custom dialer or transport credentials).
func NewGRPCClientTransport(opts ...grpc.DialOption) transport.IRPCClientTransport {
	return &grpcClientTransport{
		extraOpts: opts,
	}
}

type grpcClientTransport struct {
	extraOpts []grpc.DialOption
	conn      *grpc.ClientConn
	kv        pb.KVClient
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *grpcClientTransport) Connect(ctx context.Context, config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Close an existing connection
	_ = t.Close()

	// Resolve the endpoints to a gRPC target
	target, secure, opts, err := resolveEndpoints(config.Endpoints)
	if err != nil {
		return err
	}

	// Transport security
	if secure {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	// Deadlines and metrics for every request
	opts = append(opts, grpc.WithChainUnaryInterceptor(
		timeoutInterceptor(time.Duration(config.TimeoutSecond)*time.Second),
		metricsInterceptor,
	))

	// Request size limit
	if config.MaxCallSendMsgSizeKB > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(config.MaxCallSendMsgSizeKB*1024)))
	}

	// User supplied options are applied last so they can override the defaults
	opts = append(opts, t.extraOpts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client for %s: %w", target, err)
	}

	// Wait until the connection is established
	dialCtx := ctx
	if config.DialTimeoutSecond > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, time.Duration(config.DialTimeoutSecond)*time.Second)
		defer cancel()
	}
	if err := waitForReady(dialCtx, conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to connect to %s: %w", strings.Join(config.Endpoints, ","), err)
	}

	t.conn = conn
	t.kv = pb.NewKVClient(conn)

	Logger.Infof("Connected to %d endpoint(s) using grpc transport (tls=%t)", len(config.Endpoints), secure)

	return nil
}

func (t *grpcClientTransport) KV() pb.KVClient {
	return t.kv
}

func (t *grpcClientTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.kv = nil
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// waitForReady triggers the connection and blocks until it is ready or ctx is done
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return fmt.Errorf("connection is shut down")
		}
		if !conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("connection not ready (state %s): %w", state, ctx.Err())
		}
	}
}

// parseEndpoint converts an etcd client URL into a gRPC target.
// http:// and https:// URLs are reduced to host:port, everything else is
// passed through as a raw gRPC target (e.g. dns:///etcd:2379, passthrough:///name).
func parseEndpoint(endpoint string) (target string, secure bool, err error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, false, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return endpoint, false, nil
	}
}

// resolveEndpoints returns the dial target for the given endpoints.
// A single endpoint is dialed directly, multiple endpoints are served by a
// manual resolver and balanced round robin.
func resolveEndpoints(endpoints []string) (string, bool, []grpc.DialOption, error) {
	if len(endpoints) == 1 {
		target, secure, err := parseEndpoint(endpoints[0])
		return target, secure, nil, err
	}

	addrs := make([]resolver.Address, 0, len(endpoints))
	secure := false
	for i, endpoint := range endpoints {
		addr, s, err := parseEndpoint(endpoint)
		if err != nil {
			return "", false, nil, err
		}
		if i > 0 && s != secure {
			return "", false, nil, fmt.Errorf("endpoints must either all use tls or none")
		}
		secure = s
		addrs = append(addrs, resolver.Address{Addr: addr})
	}

	r := manual.NewBuilderWithScheme(resolverScheme)
	r.InitialState(resolver.State{Addresses: addrs})

	opts := []grpc.DialOption{
		grpc.WithResolvers(r),
		grpc.WithDefaultServiceConfig(roundRobinServiceConfig),
	}
	return r.Scheme() + ":///etcd", secure, opts, nil
}

// timeoutInterceptor applies the request timeout to calls without a deadline
func timeoutInterceptor(timeout time.Duration) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if timeout > 0 {
			if _, ok := ctx.Deadline(); !ok {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
