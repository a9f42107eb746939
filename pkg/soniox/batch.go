package soniox

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds TranscribeFiles when no limit is given.
const DefaultConcurrency = 4

// TranscribeFile uploads the file at path, waits for the transcription and
// returns its transcript.
func (c *Client) TranscribeFile(ctx context.Context, path string, opts *TranscriptionOptions) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	f, err := c.Files.UploadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	c.config.logger.Debug("soniox file uploaded", "path", path, "file_id", f.ID, "size", f.Size)

	res, err := c.transcribe(ctx, &CreateTranscriptionRequest{FileID: f.ID, Options: opts})
	if opts != nil && opts.Cleanup {
		c.cleanupFile(f.ID)
	}
	return res, err
}

// TranscribeURL transcribes the audio at a public http(s) URL.
func (c *Client) TranscribeURL(ctx context.Context, audioURL string, opts *TranscriptionOptions) (*Result, error) {
	return c.transcribe(ctx, &CreateTranscriptionRequest{AudioURL: audioURL, Options: opts})
}

func (c *Client) transcribe(ctx context.Context, req *CreateTranscriptionRequest) (*Result, error) {
	job, err := c.Transcriptions.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.Options != nil && req.Options.Cleanup {
		defer c.cleanupTranscription(job.ID)
	}

	job, err = c.Transcriptions.Wait(ctx, job.ID, nil)
	if err != nil {
		return nil, err
	}
	transcript, err := c.Transcriptions.GetTranscript(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return newResult(job, transcript), nil
}

// Cleanup runs on a fresh context so that a cancelled transcription still
// removes its server-side state.
func (c *Client) cleanupTranscription(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultHTTPTimeout)
	defer cancel()
	if err := c.Transcriptions.Delete(ctx, id); err != nil {
		c.config.logger.Warn("soniox cleanup transcription", "id", id, "error", err)
	}
}

func (c *Client) cleanupFile(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultHTTPTimeout)
	defer cancel()
	if err := c.Files.Delete(ctx, id); err != nil {
		c.config.logger.Warn("soniox cleanup file", "id", id, "error", err)
	}
}

// FileResult is the outcome for one path of TranscribeFiles.
type FileResult struct {
	Path   string  `json:"path" yaml:"path"`
	Result *Result `json:"result,omitempty" yaml:"result,omitempty"`
	Err    error   `json:"-" yaml:"-"`
}

// TranscribeFiles transcribes paths with at most concurrency files in
// flight. Results[i] always belongs to paths[i]; one failed file does not
// stop the others.
func (c *Client) TranscribeFiles(ctx context.Context, paths []string, opts *TranscriptionOptions, concurrency int) ([]FileResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range paths {
		results[i].Path = path
		g.Go(func() error {
			res, err := c.TranscribeFile(gctx, path, opts)
			results[i].Result = res
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, ctxError("transcribe_files", err)
	}
	return results, nil
}
