package rigctl

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRigctld answers T commands with the configured report code and
// records what it was sent.
type fakeRigctld struct {
	ln net.Listener

	mu       sync.Mutex
	code     string
	commands []string
}

func newFakeRigctld(t *testing.T) *fakeRigctld {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeRigctld{ln: ln, code: "0"}
	t.Cleanup(func() { ln.Close() })
	go f.serve()
	return f
}

func (f *fakeRigctld) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeRigctld) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		f.mu.Lock()
		f.commands = append(f.commands, strings.TrimSpace(line))
		code := f.code
		f.mu.Unlock()
		if code == "hangup" {
			return
		}
		conn.Write([]byte("RPRT " + code + "\n"))
	}
}

func (f *fakeRigctld) setCode(code string) {
	f.mu.Lock()
	f.code = code
	f.mu.Unlock()
}

func (f *fakeRigctld) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func TestSetKeying(t *testing.T) {
	rig := newFakeRigctld(t)
	c, err := Connect(rig.ln.Addr().String(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.SetKeying(true))
	assert.True(t, c.SetKeying(false))
	assert.Equal(t, []string{"T 1", "T 0"}, rig.sent())

	rig.setCode("-9")
	assert.False(t, c.SetKeying(true))
}

func TestReconnectAfterHangup(t *testing.T) {
	rig := newFakeRigctld(t)
	c, err := Connect(rig.ln.Addr().String(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	rig.setCode("hangup")
	assert.False(t, c.SetKeying(true))

	rig.setCode("0")
	assert.True(t, c.SetKeying(false), "dials again on the next command")
}

func TestConnectFails(t *testing.T) {
	_, err := Connect("", zerolog.Nop())
	assert.Error(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	_, err = Connect(addr, zerolog.Nop())
	assert.Error(t, err)
}
