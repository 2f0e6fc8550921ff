// Package rigctl keys the transmitter through a Hamlib rigctld daemon.
package rigctl

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	dialTimeout = 10 * time.Second
	// DefaultTimeout bounds one command/response exchange.
	DefaultTimeout = 3 * time.Second
)

// Client sends PTT commands to rigctld. A failed exchange drops the
// connection; the next command dials again.
type Client struct {
	Timeout time.Duration

	address string
	log     zerolog.Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// Connect dials rigctld at address (host:port).
func Connect(address string, log zerolog.Logger) (*Client, error) {
	if address == "" {
		return nil, fmt.Errorf("no rigctld address (host:port) provided")
	}
	c := &Client{
		Timeout: DefaultTimeout,
		address: address,
		log:     log.With().Str("component", "rigctl").Logger(),
	}
	if err := c.dial(); err != nil {
		return nil, err
	}
	c.log.Info().Str("address", address).Msg("connected to rigctld")
	return c, nil
}

// SetKeying asserts (T 1) or releases (T 0) PTT.
func (c *Client) SetKeying(enabled bool) bool {
	cmd := "T 0"
	if enabled {
		cmd = "T 1"
	}
	if err := c.command(cmd); err != nil {
		c.log.Warn().Err(err).Str("cmd", cmd).Msg("rigctld command failed")
		return false
	}
	return true
}

// Close disconnects from rigctld.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop()
}

func (c *Client) command(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.dial(); err != nil {
			return err
		}
	}

	c.conn.SetDeadline(time.Now().Add(c.Timeout))
	defer func() {
		if c.conn != nil {
			c.conn.SetDeadline(time.Time{})
		}
	}()

	if _, err := c.conn.Write([]byte(cmd + "\n")); err != nil {
		c.drop()
		return fmt.Errorf("failed to send %q: %w", cmd, err)
	}

	for {
		lineBytes, err := c.reader.ReadBytes('\n')
		if err != nil {
			c.drop()
			return fmt.Errorf("error reading rigctld response: %w", err)
		}
		line := strings.TrimSpace(string(lineBytes))
		if !strings.HasPrefix(line, "RPRT ") {
			continue
		}
		code, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "RPRT ")))
		if err != nil {
			return fmt.Errorf("malformed rigctld response %q", line)
		}
		if code != 0 {
			return fmt.Errorf("rigctld returned error %d for %q", code, cmd)
		}
		return nil
	}
}

func (c *Client) dial() error {
	conn, err := net.DialTimeout("tcp", c.address, dialTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to rigctld at %s: %w", c.address, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

func (c *Client) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
}
