package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"js8msg/journal"
	"js8msg/js8"
)

func TestChecksumCommand(t *testing.T) {
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"checksum", "GRID?"})
	t.Cleanup(func() { RootCmd.SetOut(nil); RootCmd.SetArgs(nil) })

	require.NoError(t, RootCmd.Execute())
	assert.Equal(t, js8.AppendChecksum("GRID?")+"\n", out.String())

	out.Reset()
	RootCmd.SetArgs([]string{"checksum", "--validate", js8.AppendChecksum("HELLO WORLD")})
	require.NoError(t, RootCmd.Execute())
	assert.Equal(t, "valid: HELLO WORLD\n", out.String())
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[station]\ncallsign = \"w1aw\"\n[journal]\nenabled = true\n"), 0o644))
	configPath = path
	t.Cleanup(func() { configPath = "config.toml" })

	conf, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "W1AW", conf.Station.Callsign)
	assert.NotEmpty(t, conf.Journal.Path)
}

func TestFormatEntry(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	assert.Equal(t, "2024-05-01 12:00:00  rx          K1ABC →  K1ABC: W1AW SNR?",
		formatEntry(journal.Entry{Kind: journal.KindReceived, At: at, From: "K1ABC", Text: "K1ABC: W1AW SNR?"}))
	assert.Equal(t, "2024-05-01 12:00:00  relay       K1ABC →  K1ABC GRID FN31  [answered]",
		formatEntry(journal.Entry{Kind: journal.KindRelay, At: at, From: "K1ABC", Text: "K1ABC GRID FN31", Detail: "answered"}))
	assert.Equal(t, "2024-05-01 12:00:00  tx          → K1ABC  SNR -12",
		formatEntry(journal.Entry{Kind: journal.KindSent, At: at, To: "K1ABC", Text: "SNR -12"}))
}
