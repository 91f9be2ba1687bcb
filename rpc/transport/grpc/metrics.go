package grpc

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
	"google.golang.org/grpc"
)

// methodMetrics holds the metrics of one RPC method
type methodMetrics struct {
	requests *metrics.Counter
	errors   *metrics.Counter
	duration *metrics.Histogram
}

// methodMetricsCache avoids formatting metric names on every request
var methodMetricsCache = xsync.NewMapOf[string, *methodMetrics]()

// getMethodMetrics returns the metrics for a full gRPC method name (e.g. /etcdserverpb.KV/Range)
func getMethodMetrics(fullMethod string) *methodMetrics {
	m, _ := methodMetricsCache.LoadOrCompute(fullMethod, func() *methodMetrics {
		name := path.Base(fullMethod)
		return &methodMetrics{
			requests: metrics.GetOrCreateCounter(fmt.Sprintf(`ekv_client_requests_total{method=%q}`, name)),
			errors:   metrics.GetOrCreateCounter(fmt.Sprintf(`ekv_client_errors_total{method=%q}`, name)),
			duration: metrics.GetOrCreateHistogram(fmt.Sprintf(`ekv_client_request_duration_seconds{method=%q}`, name)),
		}
	})
	return m
}

// metricsInterceptor counts requests and errors and records the latency per method
func metricsInterceptor(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	m := getMethodMetrics(method)
	start := time.Now()

	err := invoker(ctx, method, req, reply, cc, opts...)

	m.requests.Inc()
	m.duration.UpdateDuration(start)
	if err != nil {
		m.errors.Inc()
	}
	return err
}

// WriteMetrics writes all client request metrics in Prometheus text format to w
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
}
