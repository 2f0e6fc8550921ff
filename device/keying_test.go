package device

import (
	"bufio"
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"js8msg/config"
)

func TestConnectKeyingNone(t *testing.T) {
	k, err := ConnectKeying(config.KeyingConfig{Type: config.KeyingNone}, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, k.SetKeying(true))
	k.Close()
}

func TestConnectKeyingRigctl(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		for {
			if _, err := r.ReadString('\n'); err != nil {
				return
			}
			conn.Write([]byte("RPRT 0\n"))
		}
	}()

	k, err := ConnectKeying(config.KeyingConfig{Type: config.KeyingRigctl, Device: ln.Addr().String()}, zerolog.Nop())
	require.NoError(t, err)
	defer k.Close()
	assert.True(t, k.SetKeying(true))
}

func TestConnectKeyingErrors(t *testing.T) {
	_, err := ConnectKeying(config.KeyingConfig{Type: "vox"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = ConnectKeying(config.KeyingConfig{Type: config.KeyingSerial}, zerolog.Nop())
	assert.Error(t, err)
}
