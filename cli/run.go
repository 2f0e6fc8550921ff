package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the station headless until interrupted",
		Run:   runStation,
	})
}

func runStation(cmd *cobra.Command, args []string) {
	conf, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	n, err := openNode(conf, os.Stderr)
	if err != nil {
		exitErr("start station", err)
	}
	defer n.close()

	ctx, stop := signalContext()
	defer stop()

	if err := n.run(ctx, nil); err != nil {
		n.log.Error().Err(err).Msg("station stopped")
		n.close()
		os.Exit(1)
	}
	n.log.Info().Msg("station stopped")
}
