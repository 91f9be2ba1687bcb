// Package cmd implements the command-line interface of eKV. It provides a
// hierarchical command structure for talking to an etcd cluster through the
// eKV client.
//
// The package is organized into subpackages:
//
//   - kv: Commands for key-value operations (put, get, get-prefix, del, del-prefix, swap, bulk-put, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See ekv -help for a list of all commands.
package cmd
