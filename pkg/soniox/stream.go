package soniox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session defaults.
const (
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultDrainTimeout       = 10 * time.Second
	DefaultInactivityTimeout  = 30 * time.Second
	DefaultUpdateBuffer       = 64
	DefaultMalformedTolerance = 3
)

// StreamService opens real-time transcription sessions.
type StreamService struct {
	client *Client
}

type sessionOptions struct {
	handshakeTimeout   time.Duration
	drainTimeout       time.Duration
	inactivityTimeout  time.Duration
	keepAlive          time.Duration
	updateBuffer       int
	malformedTolerance int
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

// WithHandshakeTimeout bounds connecting and sending the session config.
func WithHandshakeTimeout(d time.Duration) SessionOption {
	return func(o *sessionOptions) {
		if d > 0 {
			o.handshakeTimeout = d
		}
	}
}

// WithDrainTimeout bounds the wait for trailing updates after end of audio.
func WithDrainTimeout(d time.Duration) SessionOption {
	return func(o *sessionOptions) {
		if d > 0 {
			o.drainTimeout = d
		}
	}
}

// WithInactivityTimeout fails the session when no message is received and
// no audio is sent for d. Zero disables the check.
func WithInactivityTimeout(d time.Duration) SessionOption {
	return func(o *sessionOptions) {
		o.inactivityTimeout = max(d, 0)
	}
}

// WithKeepAlive sends a keepalive control message every d. Keepalives do not
// count as activity. Zero disables them.
func WithKeepAlive(d time.Duration) SessionOption {
	return func(o *sessionOptions) {
		o.keepAlive = max(d, 0)
	}
}

// WithUpdateBuffer sets how many updates are queued for a slow consumer
// before the session stops reading from the connection.
func WithUpdateBuffer(n int) SessionOption {
	return func(o *sessionOptions) {
		o.updateBuffer = max(n, 0)
	}
}

// WithMalformedTolerance sets how many consecutive malformed messages are
// skipped before the session fails.
func WithMalformedTolerance(n int) SessionOption {
	return func(o *sessionOptions) {
		o.malformedTolerance = max(n, 0)
	}
}

// Open connects, sends the session config and starts streaming audio from
// src. Cancelling ctx after Open returns cancels the session.
//
// An invalid config fails with ErrConfiguration before any network call.
func (s *StreamService) Open(ctx context.Context, config *SessionConfig, src AudioSource, opts ...SessionOption) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, configError("audio source is required")
	}

	o := sessionOptions{
		handshakeTimeout:   DefaultHandshakeTimeout,
		drainTimeout:       DefaultDrainTimeout,
		inactivityTimeout:  DefaultInactivityTimeout,
		updateBuffer:       DefaultUpdateBuffer,
		malformedTolerance: DefaultMalformedTolerance,
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := config.withDefaults()
	sess := newSession(s.client, &cfg, src, o)
	if err := sess.handshake(ctx); err != nil {
		return nil, err
	}
	sess.start(ctx)
	return sess, nil
}

// Session is a single-use real-time transcription session.
//
// The session owns its connection. A send goroutine feeds audio from the
// AudioSource while a receive goroutine turns inbound messages into
// StreamUpdates, read by the caller through Next or Updates.
type Session struct {
	id        string
	config    *SessionConfig
	apiKey    string
	transport Transport
	src       AudioSource
	opts      sessionOptions
	logger    *slog.Logger
	observer  Observer

	conn    Conn
	lc      *lifecycle
	asm     *Assembler
	updates chan *StreamUpdate

	// halt is closed on the terminal transition.
	halt chan struct{}
	// cancelled is closed when the session ends by cancellation.
	cancelled chan struct{}

	sendCtx  context.Context
	stopSend context.CancelFunc
	sendDone chan struct{}
	recvDone chan struct{}
	wg       sync.WaitGroup

	startedAt    time.Time
	lastActivity atomic.Int64
	// delivering is set while the receive goroutine waits for the caller to
	// take an update. Neither the drain nor the inactivity clock runs then.
	delivering atomic.Bool

	mu         sync.Mutex
	drainTimer *time.Timer
	stopAfter  func() bool

	endOnce   sync.Once
	closeOnce sync.Once
	connOnce  sync.Once
	closeErr  error
}

func newSession(c *Client, cfg *SessionConfig, src AudioSource, o sessionOptions) *Session {
	id := uuid.NewString()
	sendCtx, stopSend := context.WithCancel(context.Background())
	return &Session{
		id:        id,
		config:    cfg,
		apiKey:    c.config.apiKey,
		transport: c.config.transport,
		src:       src,
		opts:      o,
		logger:    c.config.logger.With("session_id", id),
		observer:  c.config.observer,
		lc:        newLifecycle(),
		asm:       NewAssembler(),
		updates:   make(chan *StreamUpdate, o.updateBuffer),
		halt:      make(chan struct{}),
		cancelled: make(chan struct{}),
		sendCtx:   sendCtx,
		stopSend:  stopSend,
		sendDone:  make(chan struct{}),
		recvDone:  make(chan struct{}),
		startedAt: time.Now(),
	}
}

// handshake dials and sends the start request within the handshake timeout.
func (s *Session) handshake(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, s.opts.handshakeTimeout)
	defer cancel()

	start, err := json.Marshal(newStartRequest(s.apiKey, s.config))
	if err != nil {
		return fmt.Errorf("soniox: marshal start request: %w", err)
	}

	conn, err := s.transport.Dial(hctx)
	if err == nil {
		s.conn = conn
		err = conn.Send(hctx, Frame{Type: TextFrame, Data: start})
	}
	if err == nil {
		s.lc.transition(StateActive, nil)
		return nil
	}

	state := StateFailed
	switch {
	case ctx.Err() != nil:
		err = ctxError("handshake", ctx.Err())
		if errors.Is(err, ErrCancelled) {
			state = StateClosed
		}
	case errors.Is(hctx.Err(), context.DeadlineExceeded):
		err = &Error{Kind: KindTimeout, Op: "handshake",
			Message: fmt.Sprintf("no acknowledgment within %s", s.opts.handshakeTimeout), Err: err}
	default:
		if e, ok := AsError(err); !ok || e.Kind != KindConnection {
			err = &Error{Kind: KindConnection, Op: "handshake", Err: err}
		}
	}
	s.lc.transition(state, err)
	s.stopSend()
	s.closeConn()
	s.logger.Warn("soniox session handshake failed", "error", err)
	return err
}

func (s *Session) start(ctx context.Context) {
	s.touch()
	s.logger.Info("soniox session opened",
		"model", s.config.Model,
		"audio_format", s.config.AudioFormat,
		"sample_rate", s.config.SampleRate)
	s.observer.SessionOpened(s.id)

	// Registered after SessionOpened so an already cancelled ctx cannot end
	// the session before it was reported open.
	s.mu.Lock()
	s.stopAfter = context.AfterFunc(ctx, s.Cancel)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.watchdog()
	go s.sendLoop()
	go s.recvLoop()
}

// ID returns the client-side session id used in logs and metrics.
func (s *Session) ID() string {
	return s.id
}

// Config returns a copy of the session config with defaults applied.
func (s *Session) Config() SessionConfig {
	return *s.config
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return s.lc.State()
}

// Err returns the terminal error: nil while running or after a normal close.
func (s *Session) Err() error {
	return s.lc.Err()
}

// Done is closed when the session reaches Closed or Failed.
func (s *Session) Done() <-chan struct{} {
	return s.lc.Done()
}

// Transcript returns a snapshot of the transcript state. Confirmed tokens
// remain valid whatever the terminal state.
func (s *Session) Transcript() Transcript {
	return s.asm.Snapshot()
}

// Next blocks until the next update is available.
//
// It returns io.EOF after the session closed normally and all queued updates
// were delivered, the failure error after the session failed, and an
// ErrCancelled error as soon as the session is cancelled.
//
// If ctx ends first, Next returns ctx.Err() unwrapped and the session keeps
// running; only session cancellation matches ErrCancelled.
func (s *Session) Next(ctx context.Context) (*StreamUpdate, error) {
	select {
	case <-s.cancelled:
		return nil, s.lc.Err()
	default:
	}

	select {
	case u, ok := <-s.updates:
		if !ok {
			return nil, s.terminalErr()
		}
		select {
		case <-s.cancelled:
			return nil, s.lc.Err()
		default:
		}
		return u, nil
	case <-s.cancelled:
		return nil, s.lc.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) terminalErr() error {
	<-s.lc.Done()
	if err := s.lc.Err(); err != nil {
		return err
	}
	return io.EOF
}

// Updates returns an iterator over the session updates. The sequence ends
// silently after a normal close and with one error otherwise.
func (s *Session) Updates() iter.Seq2[*StreamUpdate, error] {
	return func(yield func(*StreamUpdate, error) bool) {
		for {
			u, err := s.Next(context.Background())
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(u, nil) {
				return
			}
		}
	}
}

// Finalize asks the remote to finalize all pending tokens now.
func (s *Session) Finalize(ctx context.Context) error {
	if state := s.lc.State(); state != StateActive {
		return &Error{Kind: KindConnection, Op: "finalize", Message: "session is " + state.String()}
	}
	if err := s.conn.Send(ctx, Frame{Type: TextFrame, Data: finalizeMessage}); err != nil {
		return &Error{Kind: KindConnection, Op: "finalize", Err: err}
	}
	return nil
}

// Close stops sending audio, signals end of audio and waits, at most for the
// drain timeout, for the trailing updates. It is idempotent and may be called
// from any goroutine. It returns the failure error if the session failed.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.stopSend()
		<-s.sendDone
		s.endAudio()
		<-s.lc.Done()
		<-s.recvDone
		s.wg.Wait()
		if s.lc.State() == StateFailed {
			s.closeErr = s.lc.Err()
		}
	})
	return s.closeErr
}

// Cancel abandons the session immediately without waiting for trailing
// updates. A pending Next returns an ErrCancelled error.
func (s *Session) Cancel() {
	s.finish(StateClosed, &Error{Kind: KindCancelled, Op: "cancel"})
}

// finish moves the session into a terminal state and releases the
// connection. Only the first call has any effect.
func (s *Session) finish(state SessionState, err error) bool {
	if !s.lc.transition(state, err) {
		return false
	}
	if errors.Is(err, ErrCancelled) {
		close(s.cancelled)
	}
	close(s.halt)
	s.stopSend()
	s.mu.Lock()
	if s.drainTimer != nil {
		s.drainTimer.Stop()
	}
	stopAfter := s.stopAfter
	s.mu.Unlock()
	s.closeConn()
	if stopAfter != nil {
		stopAfter()
	}

	d := time.Since(s.startedAt)
	if state == StateFailed {
		s.logger.Error("soniox session failed", "duration", d, "error", err)
	} else {
		s.logger.Info("soniox session closed", "duration", d, "updates", s.asm.Sequence(), "cancelled", err != nil)
	}
	s.observer.SessionEnded(s.id, state, err, d)
	return true
}

func (s *Session) closeConn() {
	s.connOnce.Do(func() {
		if s.conn != nil {
			if err := s.conn.Close(); err != nil {
				s.logger.Debug("soniox close connection", "error", err)
			}
		}
	})
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

func (s *Session) sendLoop() {
	defer close(s.sendDone)
	for {
		chunk, err := s.src.Next(s.sendCtx)
		if s.sendCtx.Err() != nil {
			return
		}
		if errors.Is(err, io.EOF) {
			s.endAudio()
			return
		}
		if err != nil {
			s.finish(StateFailed, &Error{Kind: KindAudioSource, Op: "audio", Err: err})
			return
		}
		if len(chunk) == 0 {
			continue
		}
		if err := s.conn.Send(s.sendCtx, Frame{Type: BinaryFrame, Data: chunk}); err != nil {
			if s.sendCtx.Err() == nil {
				s.finish(StateFailed, &Error{Kind: KindConnection, Op: "send", Err: err})
			}
			return
		}
		s.touch()
		s.observer.AudioSent(s.id, len(chunk))
		s.logger.Debug("soniox audio sent", "bytes", len(chunk))
	}
}

// endAudio sends the end-of-audio marker once and starts the drain timer.
func (s *Session) endAudio() {
	s.endOnce.Do(func() {
		if !s.lc.transitionIf(StateActive, StateDraining, nil) {
			return
		}
		s.logger.Debug("soniox end of audio, draining")
		if err := s.conn.Send(context.Background(), Frame{Type: TextFrame}); err != nil {
			s.finish(StateFailed, &Error{Kind: KindConnection, Op: "send", Message: "end of audio", Err: err})
			return
		}
		s.mu.Lock()
		s.drainTimer = time.AfterFunc(s.opts.drainTimeout, s.drainExpired)
		if s.delivering.Load() {
			s.drainTimer.Stop()
		}
		s.mu.Unlock()
	})
}

// holdDrain stops the drain clock while an update waits for the caller.
func (s *Session) holdDrain() {
	s.mu.Lock()
	s.delivering.Store(true)
	if s.drainTimer != nil {
		s.drainTimer.Stop()
	}
	s.mu.Unlock()
}

// releaseDrain restarts the drain clock with the full timeout once the
// caller took the update.
func (s *Session) releaseDrain() {
	s.mu.Lock()
	s.delivering.Store(false)
	if s.drainTimer != nil && s.lc.State() == StateDraining {
		s.drainTimer.Reset(s.opts.drainTimeout)
	}
	s.mu.Unlock()
	s.touch()
}

func (s *Session) drainExpired() {
	s.mu.Lock()
	held := s.delivering.Load()
	s.mu.Unlock()
	if held || s.lc.State() != StateDraining {
		return
	}
	s.logger.Warn("soniox drain timeout, closing without trailing updates", "timeout", s.opts.drainTimeout)
	s.finish(StateClosed, nil)
}

func (s *Session) recvLoop() {
	defer close(s.recvDone)
	defer close(s.updates)

	malformed := 0
	received := false
	for {
		data, err := s.conn.Receive()
		if err != nil {
			s.receiveFailed(err)
			return
		}
		s.touch()

		resp, err := parseResponse(data)
		if err != nil {
			malformed++
			s.logger.Warn("soniox malformed message", "consecutive", malformed, "error", err)
			if malformed > s.opts.malformedTolerance {
				s.finish(StateFailed, &Error{Kind: KindProtocol, Op: "receive",
					Message: fmt.Sprintf("%d consecutive malformed messages", malformed), Err: err})
				return
			}
			continue
		}
		malformed = 0

		if resp.HasError() {
			op := "receive"
			if !received {
				op = "handshake"
			}
			s.finish(StateFailed, &Error{Kind: KindConnection, Op: op,
				Code: resp.ErrorCode, Message: resp.ErrorMessage})
			return
		}
		received = true

		var u *StreamUpdate
		// Nothing is folded into the transcript once the session ended.
		if !s.lc.whileRunning(func() { u = s.asm.Apply(resp) }) {
			return
		}
		if u != nil {
			if !s.deliver(u) {
				return
			}
			s.observer.UpdateProduced(s.id, u)
			s.logger.Debug("soniox update", "seq", u.Sequence, "tokens", len(u.Tokens), "final", u.IsFinal)
		}

		if resp.Finished {
			s.finish(StateClosed, nil)
			return
		}
	}
}

// deliver hands u to the caller. When the buffer is full it waits with the
// drain and inactivity clocks stopped, so a slow caller never loses an update
// the remote already sent. It reports false if the session ended meanwhile.
func (s *Session) deliver(u *StreamUpdate) bool {
	select {
	case s.updates <- u:
		return true
	default:
	}
	s.holdDrain()
	defer s.releaseDrain()
	select {
	case s.updates <- u:
		return true
	case <-s.halt:
		return false
	}
}

func (s *Session) receiveFailed(err error) {
	switch state := s.lc.State(); {
	case state.Terminal():
	case errors.Is(err, io.EOF) && state == StateDraining:
		s.finish(StateClosed, nil)
	default:
		s.finish(StateFailed, &Error{Kind: KindConnection, Op: "receive", Err: err})
	}
}

func (s *Session) watchdog() {
	defer s.wg.Done()

	var check, keepalive <-chan time.Time
	if s.opts.inactivityTimeout > 0 {
		t := time.NewTicker(max(s.opts.inactivityTimeout/10, 10*time.Millisecond))
		defer t.Stop()
		check = t.C
	}
	if s.opts.keepAlive > 0 {
		t := time.NewTicker(s.opts.keepAlive)
		defer t.Stop()
		keepalive = t.C
	}

	for {
		select {
		case <-s.halt:
			return
		case <-check:
			if s.delivering.Load() {
				continue
			}
			idle := time.Since(time.Unix(0, s.lastActivity.Load()))
			if idle >= s.opts.inactivityTimeout {
				s.finish(StateFailed, &Error{Kind: KindTimeout, Op: "inactivity",
					Message: fmt.Sprintf("no traffic for %s", idle.Round(time.Millisecond))})
				return
			}
		case <-keepalive:
			if err := s.conn.Send(s.sendCtx, Frame{Type: TextFrame, Data: keepaliveMessage}); err != nil {
				s.logger.Debug("soniox keepalive failed", "error", err)
			}
		}
	}
}
