package soniox

import (
	"slices"
	"sync"
)

// StreamUpdate is one incremental result of a streaming session.
type StreamUpdate struct {
	// Tokens received in this update, in arrival order.
	Tokens []Token `json:"tokens" yaml:"tokens"`

	// IsFinal is true when every token of this update is final.
	IsFinal bool `json:"is_final" yaml:"is_final"`

	// Sequence starts at 1 and increases by one per update.
	Sequence int64 `json:"sequence" yaml:"sequence"`
}

// Text returns the concatenated token text of the update.
func (u *StreamUpdate) Text() string {
	return JoinTokens(u.Tokens)
}

// Transcript is a point-in-time copy of the transcript state of a session.
type Transcript struct {
	// Confirmed tokens are final and never change.
	Confirmed []Token `json:"confirmed" yaml:"confirmed"`

	// Pending tokens are the provisional tail, replaced by every update.
	Pending []Token `json:"pending" yaml:"pending"`
}

// Text returns the confirmed text followed by the pending text.
func (t Transcript) Text() string {
	return JoinTokens(t.Confirmed) + JoinTokens(t.Pending)
}

// ConfirmedText returns the text of the confirmed tokens.
func (t Transcript) ConfirmedText() string {
	return JoinTokens(t.Confirmed)
}

// BySpeaker groups the confirmed tokens by speaker.
func (t Transcript) BySpeaker() map[string][]Token {
	return GroupBySpeaker(t.Confirmed)
}

// Assembler turns inbound messages into StreamUpdates and maintains the
// transcript state. Apply must be called from a single goroutine; Snapshot
// may be called concurrently.
type Assembler struct {
	mu        sync.RWMutex
	confirmed []Token
	pending   []Token
	seq       int64
}

// NewAssembler returns an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Apply folds r into the transcript state. It returns nil for messages
// without tokens.
func (a *Assembler) Apply(r *Response) *StreamUpdate {
	if r == nil || len(r.Tokens) == 0 {
		return nil
	}

	var final, pending []Token
	for _, t := range r.Tokens {
		if t.IsFinal {
			final = append(final, t)
		} else {
			pending = append(pending, t)
		}
	}

	a.mu.Lock()
	a.confirmed = append(a.confirmed, final...)
	a.pending = pending
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	return &StreamUpdate{
		Tokens:   slices.Clone(r.Tokens),
		IsFinal:  len(pending) == 0,
		Sequence: seq,
	}
}

// Snapshot returns a copy of the current transcript state.
func (a *Assembler) Snapshot() Transcript {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Transcript{
		Confirmed: slices.Clone(a.confirmed),
		Pending:   slices.Clone(a.pending),
	}
}

// Sequence returns the sequence number of the last produced update.
func (a *Assembler) Sequence() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.seq
}
