package soniox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func drain(t *testing.T, src AudioSource) []string {
	t.Helper()
	var out []string
	for {
		c, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next error: %v", err)
		}
		out = append(out, string(c))
	}
}

func TestReaderSource(t *testing.T) {
	tests := []struct {
		name  string
		input string
		size  int
		want  []string
	}{
		{"exact", "abcdef", 3, []string{"abc", "def"}},
		{"short tail", "abcdefg", 3, []string{"abc", "def", "g"}},
		{"empty", "", 3, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := drain(t, NewReaderSource(bytes.NewReader([]byte(tt.input)), tt.size))
			if len(got) != len(tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReaderSource_DefaultChunkSize(t *testing.T) {
	src := NewReaderSource(bytes.NewReader(make([]byte, DefaultChunkSize+1)), 0)
	c, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if len(c) != DefaultChunkSize {
		t.Errorf("len = %d, want %d", len(c), DefaultChunkSize)
	}
}

func TestChunkSource(t *testing.T) {
	src := NewChunkSource([]byte("a"), []byte("b"))
	if got := drain(t, src); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %q, want [a b]", got)
	}
	if src.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", src.Remaining())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewChunkSource([]byte("a")).Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next with cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestPaced(t *testing.T) {
	src := Paced(NewChunkSource([]byte("a"), []byte("b"), []byte("c")), 20*time.Millisecond)
	start := time.Now()
	got := drain(t, src)
	if len(got) != 3 {
		t.Fatalf("got %q, want 3 chunks", got)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 40ms", elapsed)
	}
}

func TestPaced_Cancel(t *testing.T) {
	src := Paced(NewChunkSource([]byte("a"), []byte("b")), time.Hour)
	if _, err := src.Next(context.Background()); err != nil {
		t.Fatalf("first Next error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next = %v, want context.DeadlineExceeded", err)
	}
}

func TestPushSource(t *testing.T) {
	s := NewPushSource()
	s.Push([]byte("a"))
	if _, err := s.Write([]byte("b")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}

	done := make(chan []string)
	go func() {
		var out []string
		for {
			c, err := s.Next(context.Background())
			if err != nil {
				done <- out
				return
			}
			out = append(out, string(c))
		}
	}()
	time.Sleep(5 * time.Millisecond)
	s.Push([]byte("c"))
	s.CloseWrite()

	got := <-done
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("got %q, want [a b c]", got)
	}
	if err := s.Push([]byte("d")); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Push after CloseWrite = %v, want io.ErrClosedPipe", err)
	}
}

func TestPushSource_CopiesChunk(t *testing.T) {
	s := NewPushSource()
	buf := []byte("abc")
	s.Push(buf)
	buf[0] = 'x'
	c, _ := s.Next(context.Background())
	if string(c) != "abc" {
		t.Errorf("chunk = %q, want %q", c, "abc")
	}
}

func TestPushSource_CloseWithError(t *testing.T) {
	s := NewPushSource()
	s.Push([]byte("a"))
	boom := errors.New("boom")
	s.CloseWithError(boom)
	if _, err := s.Next(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Next = %v, want boom", err)
	}
	if err := s.Push([]byte("b")); !errors.Is(err, boom) {
		t.Errorf("Push = %v, want boom", err)
	}
}

func TestPushSource_NextHonoursContext(t *testing.T) {
	s := NewPushSource()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next = %v, want context.DeadlineExceeded", err)
	}
}
