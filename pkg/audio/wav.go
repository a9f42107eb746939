package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrNotWAV is returned when the input does not start with a RIFF/WAVE header.
var ErrNotWAV = errors.New("audio: not a WAV file")

const wavFormatPCM = 1

// WAVHeader is the format information of a RIFF/WAVE file.
type WAVHeader struct {
	AudioFormat   uint16 `json:"audio_format"`
	NumChannels   uint16 `json:"num_channels"`
	SampleRate    uint32 `json:"sample_rate"`
	BitsPerSample uint16 `json:"bits_per_sample"`

	// DataSize is the declared length of the data chunk. Streaming writers
	// often leave it as 0 or 0xFFFFFFFF.
	DataSize uint32 `json:"data_size"`
}

// ReadWAVHeader reads the RIFF header and walks chunks until the data chunk.
// On success r is positioned at the first PCM byte.
func ReadWAVHeader(r io.Reader) (*WAVHeader, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrNotWAV
		}
		return nil, err
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var h WAVHeader
	var haveFmt bool
	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			return nil, fmt.Errorf("audio: read chunk header: %w", err)
		}
		id := string(ch[0:4])
		size := binary.LittleEndian.Uint32(ch[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("audio: fmt chunk too short: %d bytes", size)
			}
			var b [16]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, fmt.Errorf("audio: read fmt chunk: %w", err)
			}
			h.AudioFormat = binary.LittleEndian.Uint16(b[0:2])
			h.NumChannels = binary.LittleEndian.Uint16(b[2:4])
			h.SampleRate = binary.LittleEndian.Uint32(b[4:8])
			h.BitsPerSample = binary.LittleEndian.Uint16(b[14:16])
			if err := skip(r, int64(size)-16+int64(size&1)); err != nil {
				return nil, err
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, errors.New("audio: data chunk before fmt chunk")
			}
			h.DataSize = size
			return &h, nil
		default:
			// LIST, fact, bext and friends; chunks are padded to even sizes
			if err := skip(r, int64(size)+int64(size&1)); err != nil {
				return nil, err
			}
		}
	}
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("audio: skip chunk: %w", err)
	}
	return nil
}

// Format returns the PCM format of the file. Only 16-bit PCM with one or two
// channels is supported.
func (h *WAVHeader) Format() (Format, error) {
	if h.AudioFormat != wavFormatPCM {
		return Format{}, fmt.Errorf("audio: unsupported WAV encoding %d, want PCM", h.AudioFormat)
	}
	if h.BitsPerSample != 16 {
		return Format{}, fmt.Errorf("audio: unsupported bit depth %d, want 16", h.BitsPerSample)
	}
	if h.NumChannels != 1 && h.NumChannels != 2 {
		return Format{}, fmt.Errorf("audio: unsupported channel count %d", h.NumChannels)
	}
	if h.SampleRate == 0 {
		return Format{}, errors.New("audio: sample rate is 0")
	}
	return Format{SampleRate: int(h.SampleRate), Stereo: h.NumChannels == 2}, nil
}

// Data limits r to the declared data chunk. Unknown sizes read to EOF.
func (h *WAVHeader) Data(r io.Reader) io.Reader {
	if h.DataSize == 0 || h.DataSize == 0xFFFFFFFF {
		return r
	}
	return io.LimitReader(r, int64(h.DataSize))
}

// WriteWAV writes a canonical 44-byte header followed by pcm.
func WriteWAV(w io.Writer, f Format, pcm []byte) error {
	var hdr [44]byte
	channels := uint16(f.Channels())
	blockAlign := channels * 2
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(36+len(pcm)))
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(hdr[22:24], channels)
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(f.SampleRate)*uint32(blockAlign))
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], 16)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], uint32(len(pcm)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}
