package util

import (
	"strings"

	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds the etcd connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "endpoints"
	cmd.PersistentFlags().String(key, common.DefaultEndpoint, WrapString("The etcd client URLs (http:// or https://) or gRPC targets. Multiple endpoints can be specified as a comma-separated list and are load balanced"))

	key = "dial-timeout"
	cmd.PersistentFlags().Int(key, common.DefaultDialTimeoutSecond, WrapString("How long to wait for the connection in seconds (0 waits forever)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of a single request (0 disables it)"))

	key = "batch-size"
	cmd.PersistentFlags().Int(key, common.DefaultBatchSize, WrapString("Number of keys per transaction for bulk puts (must not exceed the server's --max-txn-ops)"))

	key = "max-request-size"
	cmd.PersistentFlags().Int(key, 0, WrapString("Maximum size of a single request in KB (0 keeps the gRPC default)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("The log level of the client (debug, info, warn, error)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("ekv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() *common.ClientConfig {
	var endpoints []string
	for _, endpoint := range strings.Split(viper.GetString("endpoints"), ",") {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			endpoints = append(endpoints, endpoint)
		}
	}

	return &common.ClientConfig{
		Endpoints:            endpoints,
		DialTimeoutSecond:    viper.GetInt("dial-timeout"),
		TimeoutSecond:        viper.GetInt("timeout"),
		BatchSize:            viper.GetInt("batch-size"),
		MaxCallSendMsgSizeKB: viper.GetInt("max-request-size"),
		LogLevel:             viper.GetString("log-level"),
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
