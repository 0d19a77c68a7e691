package kv

import (
	"fmt"

	"github.com/ValentinKolb/versedb/cmd/util"
	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/spf13/cobra"
)

// parseArgs decodes all arguments according to the --hex flag
func parseArgs(args []string) ([][]byte, error) {
	out := make([][]byte, len(args))
	for i, arg := range args {
		b, err := util.ParseBytes(arg, asHex)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// printPairs prints one line per pair followed by the number of pairs
func printPairs(pairs []store.Pair) {
	for _, p := range pairs {
		fmt.Printf("%s=%s\n", util.FormatBytes(p.Key, asHex), util.FormatBytes(p.Value, asHex))
	}
	fmt.Printf("(%d pairs)\n", len(pairs))
}

var (
	addCmd = &cobra.Command{
		Use:   "add [key] [value]",
		Short: "Sets the value for a key, an existing value is overwritten",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseArgs(args)
			if err != nil {
				return err
			}
			if err := rpcStore.Add(parsed[0], parsed[1]); err != nil {
				return err
			}
			fmt.Println("added successfully")
			return nil
		},
	}
	selectCmd = &cobra.Command{
		Use:   "select [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseArgs(args)
			if err != nil {
				return err
			}
			value, ok, err := rpcStore.Select(parsed[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, value=%s\n", args[0], ok, util.FormatBytes(value, asHex))
			return nil
		},
	}
	removeCmd = &cobra.Command{
		Use:   "remove [key]",
		Short: "Removes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseArgs(args)
			if err != nil {
				return err
			}
			if err := rpcStore.Remove(parsed[0]); err != nil {
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}
	selectRangeCmd = &cobra.Command{
		Use:   "select-range [start] [end]",
		Short: "Reads all pairs with start <= key < end",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseArgs(args)
			if err != nil {
				return err
			}
			pairs, err := rpcStore.SelectRange(parsed[0], parsed[1])
			if err != nil {
				return err
			}
			printPairs(pairs)
			return nil
		},
	}
	removeRangeCmd = &cobra.Command{
		Use:   "remove-range [start] [end]",
		Short: "Removes and prints all pairs with start <= key < end",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseArgs(args)
			if err != nil {
				return err
			}
			pairs, err := rpcStore.RemoveRange(parsed[0], parsed[1])
			if err != nil {
				return err
			}
			printPairs(pairs)
			return nil
		},
	}
	flushCmd = &cobra.Command{
		Use:   "flush",
		Short: "Makes all previous writes durable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Flush(); err != nil {
				return err
			}
			fmt.Println("flushed successfully")
			return nil
		},
	}
	echoCmd = &cobra.Command{
		Use:   "echo [text]",
		Short: "Asks the server for a greeting, useful to check that it is alive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			greeting, err := rpcStore.Echo(args[0])
			if err != nil {
				return err
			}
			fmt.Println(greeting)
			return nil
		},
	}
)
