package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/kobzarvs/qmark/internal/logger"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("protocol: connection closed")

// Conn is one ordered message channel over a reader/writer pair.
// Sends are serialized and preserve FIFO order. Received messages come
// out of Events, fed by an internal goroutine; the channel is closed
// when the peer goes away.
type Conn struct {
	raw    io.Reader
	reader *bufio.Reader
	w      io.Writer

	events chan Message
	done   chan struct{}
	once   sync.Once

	mu             sync.Mutex
	closed         bool
	droppedScrolls int
}

func NewConn(r io.Reader, w io.Writer) *Conn {
	c := &Conn{
		raw:    r,
		reader: bufio.NewReader(r),
		w:      w,
		events: make(chan Message, 32),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) Events() <-chan Message {
	return c.events
}

func (c *Conn) Send(m Message) error {
	payload, err := encode(m)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(payload))
	if _, err := io.WriteString(c.w, header); err != nil {
		return err
	}
	_, err = c.w.Write(payload)
	return err
}

func (c *Conn) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
		if rc, ok := c.raw.(io.Closer); ok {
			_ = rc.Close()
		}
		if wc, ok := c.w.(io.Closer); ok {
			_ = wc.Close()
		}
	})
	return nil
}

func (c *Conn) readLoop() {
	defer close(c.events)
	for {
		frame, err := readFrame(c.reader)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				logger.Warn("protocol read failed", "error", err)
			}
			return
		}
		msg, err := decode(frame)
		if err != nil {
			logger.Warn("skipping malformed frame", "error", err)
			continue
		}
		c.deliver(msg)
	}
}

// deliver hands a message to the consumer. Sync-critical kinds block
// so nothing is lost; scroll updates are dropped when the consumer
// lags, they carry no state the next one does not replace.
func (c *Conn) deliver(m Message) {
	if _, ok := m.(*ScrollChanged); ok {
		select {
		case c.events <- m:
		default:
			c.mu.Lock()
			c.droppedScrolls++
			c.mu.Unlock()
			logger.Debug("dropped scrollChanged, consumer busy")
		}
		return
	}
	select {
	case c.events <- m:
	case <-c.done:
	}
}

// DroppedScrolls reports how many scrollChanged messages were shed.
func (c *Conn) DroppedScrolls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.droppedScrolls
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	length := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.ToLower(strings.TrimSpace(parts[0])) == "content-length" {
			val := strings.TrimSpace(parts[1])
			if n, err := strconv.Atoi(val); err == nil {
				length = n
			}
		}
	}
	if length < 0 {
		return nil, errors.New("missing content-length")
	}
	buf := make([]byte, length)
	_, err := io.ReadFull(r, buf)
	return buf, err
}
