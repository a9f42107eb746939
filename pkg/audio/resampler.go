package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	resampling "github.com/tphakala/go-audio-resampling"
)

// blockDuration is how much source audio is converted per fill.
const blockDuration = 100 * time.Millisecond

// Resampler reads PCM in one Format and yields it in another. It converts the
// sample rate and mixes between mono and stereo. Close releases the filter.
type Resampler struct {
	src    io.Reader
	srcFmt Format
	dstFmt Format

	mu       sync.Mutex
	filter   resampling.Resampler
	block    []byte
	pending  []byte
	eof      bool
	closeErr error
}

// NewResampler wraps src. When the sample rates match only channel mixing
// is applied.
func NewResampler(src io.Reader, srcFmt, dstFmt Format) (*Resampler, error) {
	if srcFmt.SampleRate <= 0 || dstFmt.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d -> %d", srcFmt.SampleRate, dstFmt.SampleRate)
	}
	r := &Resampler{
		src:    src,
		srcFmt: srcFmt,
		dstFmt: dstFmt,
	}
	if srcFmt.SampleRate != dstFmt.SampleRate {
		filter, err := resampling.New(&resampling.Config{
			InputRate:  float64(srcFmt.SampleRate),
			OutputRate: float64(dstFmt.SampleRate),
			Channels:   dstFmt.Channels(),
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("audio: create resampler: %w", err)
		}
		r.filter = filter
	}
	n := srcFmt.BytesInDuration(blockDuration)
	if n < srcFmt.FrameBytes() {
		n = srcFmt.FrameBytes()
	}
	r.block = make([]byte, n)
	return r, nil
}

// Read fills p with converted PCM. It returns whole frames only.
func (r *Resampler) Read(p []byte) (int, error) {
	fb := r.dstFmt.FrameBytes()
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) < fb {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/fb*fb]

	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.pending) == 0 {
		if r.closeErr != nil {
			return 0, r.closeErr
		}
		if r.eof {
			return 0, io.EOF
		}
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// fill converts one block of source audio into pending.
func (r *Resampler) fill() error {
	n, err := io.ReadFull(r.src, r.block)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		r.eof = true
	case err != nil:
		return err
	}
	// a trailing partial frame is dropped
	n = n / r.srcFmt.FrameBytes() * r.srcFmt.FrameBytes()
	if n == 0 {
		return nil
	}

	samples := decodePCM(r.block[:n])
	switch {
	case r.srcFmt.Stereo && !r.dstFmt.Stereo:
		samples = stereoToMono(samples)
	case !r.srcFmt.Stereo && r.dstFmt.Stereo:
		samples = monoToStereo(samples)
	}

	if r.filter == nil {
		r.pending = appendPCM(r.pending, samples)
		return nil
	}

	in := make([]float64, len(samples))
	for i, s := range samples {
		in[i] = float64(s) / 32768.0
	}
	out, err := r.filter.Process(in)
	if err != nil {
		return fmt.Errorf("audio: resample: %w", err)
	}
	// keep pending aligned to whole destination frames
	out = out[:len(out)/r.dstFmt.Channels()*r.dstFmt.Channels()]
	converted := make([]int16, len(out))
	for i, v := range out {
		converted[i] = clampSample(v)
	}
	r.pending = appendPCM(r.pending, converted)
	return nil
}

// Close releases the filter. Later reads return io.ErrClosedPipe.
func (r *Resampler) Close() error {
	return r.CloseWithError(fmt.Errorf("audio: resampler: %w", io.ErrClosedPipe))
}

// CloseWithError releases the filter. Later reads return err.
func (r *Resampler) CloseWithError(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr == nil {
		r.closeErr = err
	}
	r.filter = nil
	r.pending = nil
	return nil
}

func decodePCM(b []byte) []int16 {
	s := make([]int16, len(b)/2)
	for i := range s {
		s[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return s
}

func appendPCM(dst []byte, s []int16) []byte {
	for _, v := range s {
		dst = append(dst, byte(v), byte(v>>8))
	}
	return dst
}

func clampSample(v float64) int16 {
	switch {
	case v >= 1:
		return 32767
	case v <= -1:
		return -32768
	}
	return int16(v * 32767)
}

// stereoToMono averages each L/R pair.
func stereoToMono(s []int16) []int16 {
	out := make([]int16, len(s)/2)
	for i := range out {
		out[i] = int16((int32(s[2*i]) + int32(s[2*i+1])) / 2)
	}
	return out
}

// monoToStereo duplicates each sample into both channels.
func monoToStereo(s []int16) []int16 {
	out := make([]int16, 2*len(s))
	for i, v := range s {
		out[2*i], out[2*i+1] = v, v
	}
	return out
}
