// Package grpc implements the IRPCClientTransport interface on top of gRPC, the
// wire protocol of the etcd v3 API.
//
// Endpoints are given as etcd client URLs. http://host:port connects without
// transport security, https://host:port uses TLS with the system roots. Any
// other string is used as a raw gRPC target, which allows custom resolvers
// (e.g. passthrough:///name together with a context dialer in tests).
// If multiple endpoints are configured, requests are balanced round robin.
//
// Connect blocks until the connection is ready or DialTimeoutSecond has passed.
// Every request gets a deadline of TimeoutSecond unless the caller's context
// already carries one. Request counts, error counts and latencies are recorded
// per RPC method with the VictoriaMetrics metrics package and can be exported with
// WriteMetrics.
//
// The transport does not retry failed requests.
package grpc
