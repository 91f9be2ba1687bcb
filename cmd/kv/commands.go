package kv

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/ValentinKolb/eKV/cmd/util"
	"github.com/ValentinKolb/eKV/lib/store"
	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Put([]byte(args[0]), []byte(args[1])); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, ok, err := rpcStore.Get([]byte(key))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t, value=%s\n", key, ok, value)
			return nil
		},
	}
	getPrefixCmd = &cobra.Command{
		Use:   "get-prefix [prefix]",
		Short: "Reads all key value pairs with the given prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kvs, err := rpcStore.GetPrefix([]byte(args[0]))
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(kvs))
			for k := range kvs {
				keys = append(keys, k)
			}
			slices.Sort(keys)

			for _, k := range keys {
				fmt.Printf("%s=%s\n", k, kvs[k])
			}
			fmt.Printf("found %d keys\n", len(kvs))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]...",
		Short: "Deletes one or more keys atomically",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Delete(toKeys(args)); err != nil {
				return err
			}
			fmt.Printf("deleted %d keys successfully\n", len(args))
			return nil
		},
	}
	delPrefixCmd = &cobra.Command{
		Use:   "del-prefix [prefix]",
		Short: "Deletes all keys with the given prefix atomically",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.DeletePrefix([]byte(args[0])); err != nil {
				return err
			}
			fmt.Println("delete prefix successfully")
			return nil
		},
	}
	swapCmd = &cobra.Command{
		Use:   "swap [key] [old value] [new value]",
		Short: "Sets the value for a key if its current value equals the old value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := rpcStore.Swap([]byte(args[0]), []byte(args[1]), []byte(args[2]))
			if store.IsSwapFailed(err) {
				fmt.Printf("key=%s, swapped=false\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, swapped=true\n", args[0])
			return nil
		},
	}
	bulkPutCmd = &cobra.Command{
		Use:   "bulk-put [key]...",
		Short: "Creates keys with empty values in batched transactions",
		Long: `Creates keys with empty values in batched transactions.

Each batch (see --batch-size) is committed atomically, the batches are sent one
after another. If a batch fails, the earlier batches stay committed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := toKeys(args)

			if path, _ := cmd.Flags().GetString("from-file"); path != "" {
				fileKeys, err := readKeys(path)
				if err != nil {
					return err
				}
				keys = append(keys, fileKeys...)
			}
			if len(keys) == 0 {
				return fmt.Errorf("no keys given")
			}

			err := rpcStore.BulkPut(keys)
			var bulkErr *store.BulkPutError
			if errors.As(err, &bulkErr) {
				fmt.Printf("committed %d of %d keys before the failure\n", bulkErr.CommittedKeys, bulkErr.TotalKeys)
			}
			if err != nil {
				return err
			}
			fmt.Printf("put %d keys successfully\n", len(keys))
			return nil
		},
	}
)

func init() {
	bulkPutCmd.Flags().String("from-file", "", util.WrapString("Read additional keys from a file (one key per line)"))
}

// toKeys converts command line arguments to keys
func toKeys(args []string) [][]byte {
	keys := make([][]byte, len(args))
	for i, arg := range args {
		keys[i] = []byte(arg)
	}
	return keys
}

// readKeys reads one key per non-empty line from a file
func readKeys(path string) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer file.Close()

	var keys [][]byte
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Bytes(); len(line) > 0 {
			keys = append(keys, append([]byte(nil), line...))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return keys, nil
}
