package soniox

import (
	"slices"
	"sync"
	"testing"
)

func TestAssembler_PendingIsReplaced(t *testing.T) {
	a := NewAssembler()
	a.Apply(tokens(tok("He", false)))
	a.Apply(tokens(tok("Hel", false), tok("lo", false)))

	got := a.Snapshot()
	if want := []string{"Hel", "lo"}; !slices.Equal(texts(got.Pending), want) {
		t.Errorf("Pending = %q, want %q", texts(got.Pending), want)
	}
	if len(got.Confirmed) != 0 {
		t.Errorf("Confirmed = %q, want empty", texts(got.Confirmed))
	}
}

func TestAssembler_FinalAppendsAndClearsPending(t *testing.T) {
	a := NewAssembler()
	a.Apply(tokens(tok("Hel", false)))
	u := a.Apply(tokens(tok("Hello", true), tok(" world", true)))

	if !u.IsFinal {
		t.Error("update should be final")
	}
	got := a.Snapshot()
	if want := []string{"Hello", " world"}; !slices.Equal(texts(got.Confirmed), want) {
		t.Errorf("Confirmed = %q, want %q", texts(got.Confirmed), want)
	}
	if len(got.Pending) != 0 {
		t.Errorf("Pending = %q, want empty", texts(got.Pending))
	}
}

func TestAssembler_MixedMessage(t *testing.T) {
	a := NewAssembler()
	u := a.Apply(tokens(tok("Hello", true), tok(" wor", false)))

	if u.IsFinal {
		t.Error("mixed update should not be final")
	}
	if want := []string{"Hello", " wor"}; !slices.Equal(texts(u.Tokens), want) {
		t.Errorf("Tokens = %q, want %q", texts(u.Tokens), want)
	}
	got := a.Snapshot()
	if want := []string{"Hello"}; !slices.Equal(texts(got.Confirmed), want) {
		t.Errorf("Confirmed = %q, want %q", texts(got.Confirmed), want)
	}
	if want := []string{" wor"}; !slices.Equal(texts(got.Pending), want) {
		t.Errorf("Pending = %q, want %q", texts(got.Pending), want)
	}
	if got.Text() != "Hello wor" {
		t.Errorf("Text = %q, want %q", got.Text(), "Hello wor")
	}
}

func TestAssembler_EmptyMessages(t *testing.T) {
	a := NewAssembler()
	if u := a.Apply(nil); u != nil {
		t.Errorf("Apply(nil) = %v, want nil", u)
	}
	if u := a.Apply(&Response{TotalAudioProcMs: 500}); u != nil {
		t.Errorf("Apply(keepalive) = %v, want nil", u)
	}
	if a.Sequence() != 0 {
		t.Errorf("Sequence = %d, want 0", a.Sequence())
	}
	u := a.Apply(tokens(tok("a", false)))
	if u.Sequence != 1 {
		t.Errorf("Sequence = %d, want 1", u.Sequence)
	}
}

func TestAssembler_ConfirmedNeverChanges(t *testing.T) {
	a := NewAssembler()
	msgs := []*Response{
		tokens(tok("a", false)),
		tokens(tok("a", true), tok("b", false)),
		tokens(tok("b", false), tok("c", false)),
		tokens(tok("b", true)),
		tokens(tok("c", false)),
		tokens(tok("c", true), tok("d", true)),
	}

	var prev []Token
	var seq int64
	for i, m := range msgs {
		u := a.Apply(m)
		seq++
		if u.Sequence != seq {
			t.Fatalf("msg %d: Sequence = %d, want %d", i, u.Sequence, seq)
		}
		cur := a.Snapshot().Confirmed
		if len(cur) < len(prev) || !slices.Equal(cur[:len(prev)], prev) {
			t.Fatalf("msg %d: confirmed %q rewrote %q", i, texts(cur), texts(prev))
		}
		prev = cur
	}
	if want := []string{"a", "b", "c", "d"}; !slices.Equal(texts(prev), want) {
		t.Errorf("Confirmed = %q, want %q", texts(prev), want)
	}
}

func TestAssembler_AnnotationsPassThrough(t *testing.T) {
	a := NewAssembler()
	in := Token{Text: "hola", EndMs: 300, Confidence: 0.8, Speaker: "2", Language: "es", IsFinal: true}
	u := a.Apply(tokens(in))
	if u.Tokens[0] != in {
		t.Errorf("token = %+v, want %+v", u.Tokens[0], in)
	}
}

func TestAssembler_UpdateDoesNotAliasMessage(t *testing.T) {
	a := NewAssembler()
	msg := tokens(tok("x", true))
	u := a.Apply(msg)
	msg.Tokens[0].Text = "mutated"

	if u.Tokens[0].Text != "x" {
		t.Errorf("update token = %q, want %q", u.Tokens[0].Text, "x")
	}
	snap := a.Snapshot()
	snap.Confirmed[0].Text = "mutated"
	if got := a.Snapshot().Confirmed[0].Text; got != "x" {
		t.Errorf("confirmed token = %q, want %q", got, "x")
	}
}

func TestAssembler_ConcurrentSnapshot(t *testing.T) {
	a := NewAssembler()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 1000 {
			a.Apply(tokens(tok("w", true), tok("p", false)))
		}
	}()
	for range 1000 {
		s := a.Snapshot()
		for _, tk := range s.Confirmed {
			if !tk.IsFinal {
				t.Fatal("non-final token in confirmed")
			}
		}
	}
	wg.Wait()
	if got := len(a.Snapshot().Confirmed); got != 1000 {
		t.Errorf("len(Confirmed) = %d, want 1000", got)
	}
}
