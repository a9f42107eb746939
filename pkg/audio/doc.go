// Package audio prepares local audio files for real-time streaming.
//
// Streaming sessions expect raw little-endian 16-bit PCM at a fixed sample
// rate and channel count. This package reads WAV headers to discover the
// source format and converts PCM between sample rates and between mono and
// stereo:
//
//	h, err := audio.ReadWAVHeader(f)
//	if err != nil {
//	    return err
//	}
//	src, err := h.Format()
//	if err != nil {
//	    return err
//	}
//	r, err := audio.NewResampler(h.Data(f), src, audio.Format{SampleRate: 16000})
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
// Resampling is pure Go (github.com/tphakala/go-audio-resampling).
package audio
