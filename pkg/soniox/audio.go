package soniox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"
)

// AudioSource produces the audio of a streaming session.
//
// Next blocks until a chunk is ready and returns io.EOF once the source is
// exhausted. It must return promptly with ctx.Err() when ctx is done.
// Chunks are sent in the order Next returns them.
type AudioSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// AudioSourceFunc adapts a function to AudioSource.
type AudioSourceFunc func(ctx context.Context) ([]byte, error)

func (f AudioSourceFunc) Next(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// DefaultChunkSize is 100ms of 16kHz mono 16-bit PCM.
const DefaultChunkSize = 3200

// ReaderSource reads fixed-size chunks from an io.Reader. The last chunk may
// be shorter. A blocked Read is not interrupted by ctx.
type ReaderSource struct {
	r         io.Reader
	chunkSize int
	done      bool
}

// NewReaderSource returns a source reading chunkSize bytes per chunk.
// A chunkSize <= 0 uses DefaultChunkSize.
func NewReaderSource(r io.Reader, chunkSize int) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ReaderSource{r: r, chunkSize: chunkSize}
}

func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.done {
		return nil, io.EOF
	}
	buf := make([]byte, s.chunkSize)
	n, err := io.ReadFull(s.r, buf)
	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
		return buf[:n], nil
	case errors.Is(err, io.EOF):
		s.done = true
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("read audio: %w", err)
	}
}

// ChunkSource replays a fixed list of chunks.
type ChunkSource struct {
	chunks [][]byte
	next   int
}

// NewChunkSource returns a source yielding chunks in order.
func NewChunkSource(chunks ...[]byte) *ChunkSource {
	return &ChunkSource{chunks: chunks}
}

func (s *ChunkSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.next]
	s.next++
	return c, nil
}

// Remaining returns the number of chunks not yet returned.
func (s *ChunkSource) Remaining() int {
	return len(s.chunks) - s.next
}

// Paced delays every chunk after the first by interval, replaying recorded
// audio at roughly real-time speed.
func Paced(src AudioSource, interval time.Duration) AudioSource {
	return &pacedSource{src: src, interval: interval}
}

type pacedSource struct {
	src      AudioSource
	interval time.Duration
	last     time.Time
}

func (p *pacedSource) Next(ctx context.Context) ([]byte, error) {
	if !p.last.IsZero() && p.interval > 0 {
		wait := p.interval - time.Since(p.last)
		if wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	chunk, err := p.src.Next(ctx)
	p.last = time.Now()
	return chunk, err
}

// PushSource is an AudioSource fed by a producer, e.g. a microphone
// callback. Pushed chunks are buffered without bound until the session
// pulls them, so audio pushed before the handshake completes is kept.
type PushSource struct {
	notify chan struct{}

	mu         sync.Mutex
	chunks     [][]byte
	closeWrite bool
	closeErr   error
}

// NewPushSource returns an empty PushSource.
func NewPushSource() *PushSource {
	return &PushSource{notify: make(chan struct{}, 1)}
}

// Push appends a copy of chunk. It fails after CloseWrite or CloseWithError.
func (s *PushSource) Push(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeErr != nil {
		return fmt.Errorf("push source: write to closed source: %w", s.closeErr)
	}
	if s.closeWrite {
		return fmt.Errorf("push source: write to closed source: %w", io.ErrClosedPipe)
	}
	s.chunks = append(s.chunks, slices.Clone(chunk))
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

// Write implements io.Writer by pushing p as one chunk.
func (s *PushSource) Write(p []byte) (int, error) {
	if err := s.Push(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// CloseWrite ends the audio. Buffered chunks are still delivered, then Next
// returns io.EOF.
func (s *PushSource) CloseWrite() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeWrite {
		return nil
	}
	s.closeWrite = true
	close(s.notify)
	return nil
}

// CloseWithError discards buffered chunks and makes Next return err.
func (s *PushSource) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeErr != nil {
		return nil
	}
	s.closeErr = err
	s.chunks = nil
	if !s.closeWrite {
		s.closeWrite = true
		close(s.notify)
	}
	return nil
}

// Len returns the number of buffered chunks.
func (s *PushSource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

func (s *PushSource) Next(ctx context.Context) ([]byte, error) {
	for {
		s.mu.Lock()
		if s.closeErr != nil {
			err := s.closeErr
			s.mu.Unlock()
			return nil, err
		}
		if len(s.chunks) > 0 {
			c := s.chunks[0]
			s.chunks[0] = nil
			s.chunks = s.chunks[1:]
			s.mu.Unlock()
			return c, nil
		}
		if s.closeWrite {
			s.mu.Unlock()
			return nil, io.EOF
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.notify:
		}
	}
}
