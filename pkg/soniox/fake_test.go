package soniox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"
)

// fakeConn is an in-memory Conn. Tests feed inbound messages with push and
// inspect what the session sent.
type fakeConn struct {
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	sent   []Frame
	onSend func(Frame)
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 256),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) Send(ctx context.Context, f Frame) error {
	select {
	case <-c.closed:
		return errors.New("fake: send on closed connection")
	default:
	}
	c.mu.Lock()
	c.sent = append(c.sent, Frame{Type: f.Type, Data: slices.Clone(f.Data)})
	hook := c.onSend
	c.mu.Unlock()
	if hook != nil {
		hook(f)
	}
	return nil
}

func (c *fakeConn) Receive() ([]byte, error) {
	select {
	case <-c.closed:
		return nil, errors.New("fake: use of closed connection")
	default:
	}
	select {
	case data, ok := <-c.inbound:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-c.closed:
		return nil, errors.New("fake: use of closed connection")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) setOnSend(fn func(Frame)) {
	c.mu.Lock()
	c.onSend = fn
	c.mu.Unlock()
}

// push queues an inbound message; strings are sent verbatim.
func (c *fakeConn) push(v any) {
	switch m := v.(type) {
	case string:
		c.inbound <- []byte(m)
	default:
		data, err := json.Marshal(m)
		if err != nil {
			panic(err)
		}
		c.inbound <- data
	}
}

func (c *fakeConn) frames() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sent)
}

func (c *fakeConn) audio() [][]byte {
	var out [][]byte
	for _, f := range c.frames() {
		if f.Type == BinaryFrame {
			out = append(out, f.Data)
		}
	}
	return out
}

func (c *fakeConn) texts() []string {
	var out []string
	for _, f := range c.frames() {
		if f.Type == TextFrame {
			out = append(out, string(f.Data))
		}
	}
	return out
}

func isEndOfAudio(f Frame) bool {
	return f.Type == TextFrame && len(f.Data) == 0
}

type fakeTransport struct {
	conn  *fakeConn
	err   error
	block bool

	mu    sync.Mutex
	dials int
}

func (t *fakeTransport) Dial(ctx context.Context) (Conn, error) {
	t.mu.Lock()
	t.dials++
	t.mu.Unlock()
	if t.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if t.err != nil {
		return nil, t.err
	}
	return t.conn, nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(tr Transport, opts ...Option) *Client {
	all := []Option{WithTransport(tr), WithLogger(discardLogger())}
	return NewClient("test-key", append(all, opts...)...)
}

func tok(text string, final bool) Token {
	return Token{Text: text, StartMs: 0, EndMs: 100, Confidence: 0.9, IsFinal: final}
}

func tokens(ts ...Token) *Response {
	return &Response{Tokens: ts}
}

func texts(ts []Token) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Text
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// collect drains the session and returns the updates and the terminal error.
func collect(t *testing.T, s *Session) ([]*StreamUpdate, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out []*StreamUpdate
	for {
		u, err := s.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, u)
	}
}
