package kv

import (
	"github.com/ValentinKolb/versedb/cmd/util"
	"github.com/ValentinKolb/versedb/rpc/client"
	"github.com/ValentinKolb/versedb/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rpcStore client.IRemoteStore
	asHex    bool

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value store operations",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	KeyValueCommands.PersistentFlags().Bool("hex", false, util.WrapString("Keys and values are given and printed as hex strings"))
	KeyValueCommands.PersistentFlags().String("log-level", "warn", util.WrapString("LogLevel of the client (debug, info, warn, error)"))

	// Add subcommands
	KeyValueCommands.AddCommand(addCmd)
	KeyValueCommands.AddCommand(selectCmd)
	KeyValueCommands.AddCommand(removeCmd)
	KeyValueCommands.AddCommand(selectRangeCmd)
	KeyValueCommands.AddCommand(removeRangeCmd)
	KeyValueCommands.AddCommand(flushCmd)
	KeyValueCommands.AddCommand(echoCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the RPC store client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}
	asHex = viper.GetBool("hex")

	// Get client configuration components
	config := util.GetClientConfig()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the KV store client
	rpcStore, err = client.NewRPCStore(
		*config,
		t,
		s,
	)

	return err
}

// closeKVClient closes the connection to the server, the remote store stays open
func closeKVClient(_ *cobra.Command, _ []string) error {
	if rpcStore == nil {
		return nil
	}
	return rpcStore.Close()
}
