package audio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// File is an audio file opened for streaming at a target format.
type File struct {
	// Source is the format stored in the file.
	Source Format
	// Target is the format Read produces.
	Target Format

	f *os.File
	r io.Reader
}

// OpenFile opens a WAV file, or raw PCM in the raw format, and converts it to
// target. raw is only consulted when the file has no RIFF header.
func OpenFile(name string, raw, target Format) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	af, err := NewFile(f, raw, target)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	af.f = f
	return af, nil
}

// NewFile is like OpenFile for an already open stream such as stdin. Close
// does not close r.
func NewFile(r io.Reader, raw, target Format) (*File, error) {
	br := bufio.NewReader(r)
	src := raw
	var data io.Reader = br

	magic, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if string(magic) == "RIFF" {
		h, err := ReadWAVHeader(br)
		if err != nil {
			return nil, err
		}
		if src, err = h.Format(); err != nil {
			return nil, err
		}
		data = h.Data(br)
	} else if src.SampleRate <= 0 {
		return nil, errors.New("audio: raw PCM needs a sample rate")
	}

	af := &File{Source: src, Target: target, r: data}
	if src != target {
		rs, err := NewResampler(data, src, target)
		if err != nil {
			return nil, err
		}
		af.r = rs
	}
	return af, nil
}

func (f *File) Read(p []byte) (int, error) {
	return f.r.Read(p)
}

func (f *File) Close() error {
	if rs, ok := f.r.(*Resampler); ok {
		rs.Close()
	}
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}
