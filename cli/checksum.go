package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"js8msg/js8"
)

func init() {
	cmd := &cobra.Command{
		Use:   "checksum BODY...",
		Short: "Append or check a relay checksum",
		Args:  cobra.MinimumNArgs(1),
		Run:   runChecksum,
	}
	cmd.Flags().Bool("validate", false, "Check the trailing checksum of a message instead")
	RootCmd.AddCommand(cmd)
}

func runChecksum(cmd *cobra.Command, args []string) {
	validate, _ := cmd.Flags().GetBool("validate")
	text := strings.Join(args, " ")

	if !validate {
		fmt.Fprintln(cmd.OutOrStdout(), js8.AppendChecksum(text))
		return
	}

	ok, body := js8.ValidateChecksum(text)
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "invalid: %s (expected %s)\n", body, js8.Checksum(body))
		os.Exit(1)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "valid: %s\n", body)
}
