package audio

import (
	"fmt"
	"time"
)

// Format describes 16-bit signed little-endian PCM.
type Format struct {
	// SampleRate is the sample rate in Hz.
	SampleRate int

	// Stereo selects two interleaved channels; otherwise mono.
	Stereo bool
}

// Channels returns 1 or 2.
func (f Format) Channels() int {
	if f.Stereo {
		return 2
	}
	return 1
}

// FrameBytes returns the size of one sample frame across all channels.
func (f Format) FrameBytes() int {
	return 2 * f.Channels()
}

// BytesInDuration returns the number of bytes that hold d of audio, rounded
// down to a whole frame.
func (f Format) BytesInDuration(d time.Duration) int {
	frames := int64(f.SampleRate) * int64(d) / int64(time.Second)
	return int(frames) * f.FrameBytes()
}

// Duration returns the play time of n bytes.
func (f Format) Duration(n int64) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	frames := n / int64(f.FrameBytes())
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

func (f Format) String() string {
	return fmt.Sprintf("pcm_s16le; rate=%d; channels=%d", f.SampleRate, f.Channels())
}
