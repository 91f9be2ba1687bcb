package client

import (
	"github.com/ValentinKolb/eKV/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	Logger = logger.GetLogger("rpc")
)

// wrapRPCError converts an error returned by the KV stub into a *store.Error.
// Failures of the channel (unavailable, cancelled, deadline exceeded, or errors
// without a gRPC status) are transport errors, every other status returned by
// the store is a remote error.
func wrapRPCError(op string, err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return store.NewError(store.RetCTransportError, op, err)
	}

	switch st.Code() {
	case codes.Unavailable, codes.Canceled, codes.DeadlineExceeded:
		return store.NewError(store.RetCTransportError, op, err)
	default:
		return store.NewError(store.RetCRemoteError, op, err)
	}
}
