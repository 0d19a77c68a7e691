package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/versedb/cmd/kv"
	"github.com/ValentinKolb/versedb/cmd/serve"
	"github.com/ValentinKolb/versedb/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "versedb",
		Short: "ordered key-value store server",
		Long: fmt.Sprintf(`versedb (v%s)

An ordered key-value store that serves one pluggable backend
(memory, flat files, leveldb, bbolt, pebble, sqlite) to many
clients over a simple RPC protocol.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of versedb",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("versedb v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (binary, json, gob, cbor)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix, http)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
