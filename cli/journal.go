package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"js8msg/journal"
)

func init() {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recent journal entries",
		Run:   runJournal,
	}
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().String("kind", "", "Filter by kind (rx, rx_partial, tx, tx_failed, relay, error)")
	cmd.Flags().Bool("json", false, "Print entries as JSON")
	RootCmd.AddCommand(cmd)
}

func runJournal(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	kind, _ := cmd.Flags().GetString("kind")
	asJSON, _ := cmd.Flags().GetBool("json")

	conf, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	path := conf.Journal.Path
	if path == "" {
		exitErr("journal", fmt.Errorf("no [journal] path configured"))
	}

	s, err := journal.Open(path)
	if err != nil {
		exitErr("open journal", err)
	}
	defer s.Close()

	entries, err := s.Recent(cmd.Context(), kind, limit)
	if err != nil {
		exitErr("journal", err)
	}

	if asJSON {
		b, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return
	}
	for _, e := range entries {
		fmt.Fprintln(cmd.OutOrStdout(), formatEntry(e))
	}
}

func formatEntry(e journal.Entry) string {
	line := fmt.Sprintf("%s  %-10s", e.At.Local().Format("2006-01-02 15:04:05"), e.Kind)
	switch {
	case e.From != "":
		line += "  " + e.From + " →"
	case e.To != "":
		line += "  → " + e.To
	}
	line += "  " + e.Text
	if e.Detail != "" {
		line += "  [" + e.Detail + "]"
	}
	return line
}
