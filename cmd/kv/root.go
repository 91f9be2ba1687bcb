package kv

import (
	"github.com/ValentinKolb/eKV/cmd/util"
	"github.com/ValentinKolb/eKV/lib/store"
	"github.com/ValentinKolb/eKV/rpc/client"
	"github.com/ValentinKolb/eKV/rpc/common"
	grpctransport "github.com/ValentinKolb/eKV/rpc/transport/grpc"
	"github.com/spf13/cobra"
)

var (
	rpcStore store.IStore

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value operations against etcd",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add the connection flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(getPrefixCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(delPrefixCmd)
	KeyValueCommands.AddCommand(swapCmd)
	KeyValueCommands.AddCommand(bulkPutCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the blocking etcd client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()

	if err := common.InitLoggers(config.LogLevel); err != nil {
		return err
	}

	// Create the KV store client
	var err error
	rpcStore, err = client.NewSyncClient(*config, grpctransport.NewGRPCClientTransport())

	return err
}

// closeKVClient closes the client after the command ran
func closeKVClient(_ *cobra.Command, _ []string) error {
	if rpcStore == nil {
		return nil
	}
	return rpcStore.Close()
}
