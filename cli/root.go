// Package cli implements the js8msg commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"js8msg/config"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "js8msg",
	Short: "JS8 message plane",
	Long:  "Automatic replies, relay forwarding and transmit control for a JS8 decoder/encoder engine.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Configuration file")
}

func loadConfig() (config.Config, error) {
	return config.LoadConfig(configPath)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
