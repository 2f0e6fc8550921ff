package cli

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"js8msg/config"
	"js8msg/ui"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "monitor",
		Short: "Run the station with the terminal monitor",
		Run:   runMonitor,
	})
}

func runMonitor(cmd *cobra.Command, args []string) {
	conf, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	n, err := openNode(conf, io.Discard)
	if err != nil {
		exitErr("start station", err)
	}
	defer n.close()

	feed := ui.NewFeed(256)
	n.events.Add(feed)

	ctx, stop := signalContext()
	defer stop()

	p := tea.NewProgram(ui.New(conf.Settings(), n.station, feed), tea.WithAltScreen(), tea.WithContext(ctx))

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := n.run(ctx, func(s config.Settings) { p.Send(s) }); err != nil {
			n.log.Error().Err(err).Msg("station stopped")
		}
		feed.Close()
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		stop()
		<-stopped
		exitErr("monitor", err)
	}
	stop()
	<-stopped
}
