package common

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultEndpoint is the well known client URL of a local etcd member
	DefaultEndpoint = "http://localhost:2379"
	// DefaultBatchSize is the number of puts sent in one transaction by BulkPut.
	// etcd limits the number of operations per transaction (--max-txn-ops).
	DefaultBatchSize = 1000
	// DefaultDialTimeoutSecond bounds connection establishment
	DefaultDialTimeoutSecond = 5
)

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	// Endpoints are etcd client URLs (http://host:port, https://host:port) or raw gRPC targets.
	// Multiple endpoints are load balanced round robin.
	Endpoints []string
	// DialTimeoutSecond bounds how long connecting may take, 0 waits forever
	DialTimeoutSecond int
	// TimeoutSecond is applied to every single RPC, 0 disables the deadline
	TimeoutSecond int
	// BatchSize is the number of keys per BulkPut transaction
	BatchSize int
	// MaxCallSendMsgSizeKB limits the size of a single request, 0 keeps the gRPC default
	MaxCallSendMsgSizeKB int
	// LogLevel of the client loggers (debug, info, warn, error)
	LogLevel string
}

// DefaultClientConfig returns a configuration for a single local etcd member
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoints:         []string{DefaultEndpoint},
		DialTimeoutSecond: DefaultDialTimeoutSecond,
		BatchSize:         DefaultBatchSize,
		LogLevel:          "warn",
	}
}

// GetBatchSize returns the configured batch size or the default if unset
func (c *ClientConfig) GetBatchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Dial Timeout", fmt.Sprintf("%d sec", c.DialTimeoutSecond))
	addField("Request Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Batch Size", strconv.Itoa(c.GetBatchSize()))
	if c.MaxCallSendMsgSizeKB > 0 {
		addField("Max Request Size", fmt.Sprintf("%d KB", c.MaxCallSendMsgSizeKB))
	}
	addField("Log Level", c.LogLevel)

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
