package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chriamue/didcomm-mediator/pkg/invitation"
)

var invitationCmd = &cobra.Command{
	Use:   "invitation",
	Short: "Print a fresh out-of-band invitation",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(context.Background(), configDir)
		if err != nil {
			return err
		}
		inv, err := invitation.Build(invitation.Input{
			Wallet:     a.wallet,
			ExtService: a.cfg.Identity.ExtService,
			Goal:       "to-establish-a-didcomm-connection-with-" + a.cfg.Identity.Ident,
			GoalCode:   "request-mediate",
		})
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(inv, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(invitationCmd)
}
