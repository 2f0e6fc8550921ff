// Package enginelink talks to the external JS8 decoder/encoder engine over a
// TCP link carrying one JSON object per line. The client is both the
// station's frame source and its transmit sink.
package enginelink

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"js8msg/frame"
	"js8msg/txgate"
)

const (
	dialTimeout = 10 * time.Second
	// DefaultTransmitTimeout bounds the wait for the engine to accept or
	// refuse a transmit request.
	DefaultTransmitTimeout = 5 * time.Second
)

var ErrClosed = errors.New("engine link closed")

// Client is an active link to the engine.
type Client struct {
	TransmitTimeout time.Duration

	conn   io.ReadWriteCloser
	reader *bufio.Reader
	log    zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan bool

	transmitting atomic.Bool
	audio        atomic.Bool

	closeOnce sync.Once
	closed    chan struct{}
}

// Connect dials the engine at address (host:port).
func Connect(address string, log zerolog.Logger) (*Client, error) {
	if address == "" {
		return nil, fmt.Errorf("no engine address (host:port) provided")
	}
	log.Info().Str("address", address).Msg("connecting to engine")
	conn, err := net.DialTimeout("tcp", address, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to engine at %s: %w", address, err)
	}
	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("connected to engine")
	return NewClient(conn, log), nil
}

// NewClient wraps an established connection.
func NewClient(conn io.ReadWriteCloser, log zerolog.Logger) *Client {
	return &Client{
		TransmitTimeout: DefaultTransmitTimeout,
		conn:            conn,
		reader:          bufio.NewReader(conn),
		log:             log.With().Str("component", "enginelink").Logger(),
		pending:         make(map[uint64]chan bool),
		closed:          make(chan struct{}),
	}
}

// Start reads engine lines until the link fails, delivering frame-source
// events on out. out is closed when the link ends.
func (c *Client) Start(out chan<- frame.Inbound) {
	defer close(out)
	defer c.failPending()

	for {
		lineBytes, err := c.reader.ReadBytes('\n')
		if len(lineBytes) > 0 {
			if in, ok := c.handleLine(lineBytes); ok {
				select {
				case out <- in:
				case <-c.closed:
					return
				}
			}
		}
		if err != nil {
			select {
			case <-c.closed:
			default:
				if errors.Is(err, io.EOF) {
					c.log.Warn().Msg("engine closed the link")
				} else {
					c.log.Error().Err(err).Msg("error reading engine link")
				}
			}
			return
		}
	}
}

func (c *Client) handleLine(raw []byte) (frame.Inbound, bool) {
	var line engineLine
	if err := json.Unmarshal(raw, &line); err != nil {
		c.log.Debug().Err(err).Bytes("line", raw).Msg("unparseable engine line")
		return frame.Inbound{}, false
	}

	switch line.Type {
	case typeTxStatus:
		c.transmitting.Store(line.Transmitting)
		c.audio.Store(line.Audio)
		return frame.Inbound{}, false
	case typeTxResult:
		c.resolve(line.ID, line.OK)
		return frame.Inbound{}, false
	}

	in, ok := line.inbound()
	if !ok {
		c.log.Debug().Str("type", line.Type).Msg("ignoring engine line")
	}
	return in, ok
}

// Transmit sends r to the engine and waits for its verdict. It blocks for
// up to TransmitTimeout and must not be called from the station loop.
func (c *Client) Transmit(r txgate.Request) bool {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	result := make(chan bool, 1)
	c.pending[id] = result
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(newTransmitLine(id, r)); err != nil {
		c.log.Error().Err(err).Msg("failed to send transmit request")
		return false
	}

	timer := time.NewTimer(c.TransmitTimeout)
	defer timer.Stop()
	select {
	case ok := <-result:
		if ok {
			// The engine reports the session on its next status line; assume
			// it started so the first poll does not see it idle.
			c.transmitting.Store(true)
		}
		return ok
	case <-timer.C:
		c.log.Warn().Uint64("id", id).Msg("timeout waiting for transmit result")
		return false
	case <-c.closed:
		return false
	}
}

func (c *Client) IsTransmitting() bool      { return c.transmitting.Load() }
func (c *Client) IsTransmittingAudio() bool { return c.audio.Load() }

// Close disconnects from the engine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.conn != nil {
			c.log.Info().Msg("closing engine link")
			c.conn.Close()
		}
	})
}

func (c *Client) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	_, err = c.conn.Write(data)
	return err
}

func (c *Client) resolve(id uint64, ok bool) {
	c.mu.Lock()
	ch, found := c.pending[id]
	c.mu.Unlock()
	if !found {
		c.log.Debug().Uint64("id", id).Msg("transmit result for unknown request")
		return
	}
	select {
	case ch <- ok:
	default:
	}
}

func (c *Client) failPending() {
	c.transmitting.Store(false)
	c.audio.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.pending {
		select {
		case ch <- false:
		default:
		}
	}
}
