package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store [did]",
	Short: "Inspect a DID's queued connection in the message store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, configDir)
		if err != nil {
			return err
		}
		conn, ok, err := a.store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("no connection known for %s\n", args[0])
			return nil
		}
		out, err := json.MarshalIndent(conn, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
}
