package soniox

import "time"

// Observer receives streaming session events. Implementations must be safe
// for concurrent use and must not block.
type Observer interface {
	SessionOpened(sessionID string)
	AudioSent(sessionID string, bytes int)
	UpdateProduced(sessionID string, u *StreamUpdate)
	SessionEnded(sessionID string, state SessionState, err error, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) SessionOpened(string) {}
func (nopObserver) AudioSent(string, int) {}
func (nopObserver) UpdateProduced(string, *StreamUpdate) {}
func (nopObserver) SessionEnded(string, SessionState, error, time.Duration) {}
