package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var diddocCmd = &cobra.Command{
	Use:   "diddoc",
	Short: "Print the mediator's own DID document",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(context.Background(), configDir)
		if err != nil {
			return err
		}
		doc, err := a.wallet.Document(a.cfg.Identity.ExtService)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diddocCmd)
}
