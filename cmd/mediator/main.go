// Command mediator runs the DIDComm v2 mediator HTTP server, or prints
// its DID document / a fresh out-of-band invitation for inspection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mediator",
	Short: "DIDComm v2 mediator",
	Long: `mediator relays end-to-end encrypted DIDComm v2 messages between
peers and queues them for offline recipients. It authenticates and
decrypts inbound envelopes, dispatches them through a fixed protocol
handler chain, and serves them back over the same encrypted channel
when the recipient polls for pickup.`,
}

var configDir string

func main() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "directory holding <env>.yaml/default.yaml configuration files")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
