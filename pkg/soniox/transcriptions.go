package soniox

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TranscriptionsService manages asynchronous transcription jobs.
type TranscriptionsService struct {
	client *Client
}

// CreateTranscriptionRequest submits a job for an uploaded file or a remote
// URL. Exactly one of FileID and AudioURL must be set.
type CreateTranscriptionRequest struct {
	FileID   string
	AudioURL string
	Options  *TranscriptionOptions
}

type createTranscriptionBody struct {
	Model                        string             `json:"model"`
	AudioURL                     string             `json:"audio_url,omitempty"`
	FileID                       string             `json:"file_id,omitempty"`
	LanguageHints                []string           `json:"language_hints,omitempty"`
	EnableSpeakerDiarization     bool               `json:"enable_speaker_diarization,omitempty"`
	EnableLanguageIdentification bool               `json:"enable_language_identification,omitempty"`
	Translation                  *translationConfig `json:"translation,omitempty"`
	Context                      string             `json:"context,omitempty"`
	ClientReferenceID            string             `json:"client_reference_id,omitempty"`
	WebhookURL                   string             `json:"webhook_url,omitempty"`
	WebhookAuthHeaderName        string             `json:"webhook_auth_header_name,omitempty"`
	WebhookAuthHeaderValue       string             `json:"webhook_auth_header_value,omitempty"`
}

// Validate checks the request without making a network call.
func (r *CreateTranscriptionRequest) Validate() error {
	if r == nil {
		return configError("request is required")
	}
	switch {
	case r.FileID == "" && r.AudioURL == "":
		return configError("one of file_id and audio_url is required")
	case r.FileID != "" && r.AudioURL != "":
		return configError("file_id and audio_url are mutually exclusive")
	case r.AudioURL != "":
		if err := validateHTTPURL("audio_url", r.AudioURL); err != nil {
			return err
		}
	}
	return r.Options.Validate()
}

func (r *CreateTranscriptionRequest) body() *createTranscriptionBody {
	o := r.Options.withDefaults()
	return &createTranscriptionBody{
		Model:                        o.Model,
		AudioURL:                     r.AudioURL,
		FileID:                       r.FileID,
		LanguageHints:                o.LanguageHints,
		EnableSpeakerDiarization:     o.EnableSpeakerDiarization,
		EnableLanguageIdentification: o.EnableLanguageIdentification,
		Translation:                  newTranslationConfig(o.EnableTranslation, o.TranslationTargetLanguage),
		Context:                      o.Context,
		ClientReferenceID:            o.ClientReferenceID,
		WebhookURL:                   o.WebhookURL,
		WebhookAuthHeaderName:        o.WebhookAuthHeaderName,
		WebhookAuthHeaderValue:       o.WebhookAuthHeaderValue,
	}
}

// Create submits a transcription job.
func (s *TranscriptionsService) Create(ctx context.Context, req *CreateTranscriptionRequest) (*Transcription, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var t Transcription
	if err := s.client.doJSON(ctx, "transcriptions.create", http.MethodPost, "/v1/transcriptions", req.body(), &t); err != nil {
		return nil, err
	}
	s.client.config.logger.Debug("soniox transcription created", "id", t.ID, "status", t.Status)
	return &t, nil
}

// Get returns the job with the given id.
func (s *TranscriptionsService) Get(ctx context.Context, id string) (*Transcription, error) {
	if id == "" {
		return nil, configError("transcription id is required")
	}
	var t Transcription
	if err := s.client.doJSON(ctx, "transcriptions.get", http.MethodGet, "/v1/transcriptions/"+url.PathEscape(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTranscript returns the transcript of a completed job.
func (s *TranscriptionsService) GetTranscript(ctx context.Context, id string) (*TranscriptResult, error) {
	if id == "" {
		return nil, configError("transcription id is required")
	}
	var r TranscriptResult
	path := "/v1/transcriptions/" + url.PathEscape(id) + "/transcript"
	if err := s.client.doJSON(ctx, "transcriptions.transcript", http.MethodGet, path, nil, &r); err != nil {
		return nil, err
	}
	for i := range r.Tokens {
		r.Tokens[i].IsFinal = true
	}
	return &r, nil
}

// List returns one page of jobs.
func (s *TranscriptionsService) List(ctx context.Context, opts *ListOptions) (*TranscriptionList, error) {
	var list TranscriptionList
	req := &request{op: "transcriptions.list", method: http.MethodGet, path: "/v1/transcriptions", query: opts.query()}
	if err := s.client.do(ctx, req, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Delete deletes the job with the given id.
func (s *TranscriptionsService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return configError("transcription id is required")
	}
	return s.client.doJSON(ctx, "transcriptions.delete", http.MethodDelete, "/v1/transcriptions/"+url.PathEscape(id), nil, nil)
}

// WaitOptions bounds Wait.
type WaitOptions struct {
	// Interval between polls. Defaults to the client poll interval.
	Interval time.Duration

	// Timeout bounds the whole wait. Zero means no bound beyond ctx.
	Timeout time.Duration

	// OnPoll is called with every polled job.
	OnPoll func(*Transcription)
}

// Wait polls the job until it is completed or failed. A job that ends with
// status error is returned together with a KindAPI error.
func (s *TranscriptionsService) Wait(ctx context.Context, id string, opts *WaitOptions) (*Transcription, error) {
	var o WaitOptions
	if opts != nil {
		o = *opts
	}
	if o.Interval <= 0 {
		o.Interval = s.client.config.pollInterval
	}
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(o.Interval)
	defer ticker.Stop()

	for {
		t, err := s.Get(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctxError("transcriptions.wait", ctx.Err())
			}
			return nil, err
		}
		if o.OnPoll != nil {
			o.OnPoll(t)
		}
		switch t.Status {
		case TranscriptionStatusCompleted:
			return t, nil
		case TranscriptionStatusError:
			return t, &Error{Kind: KindAPI, Op: "transcriptions.wait",
				Message: fmt.Sprintf("transcription %s failed: %s", t.ID, t.ErrorMessage)}
		}

		select {
		case <-ctx.Done():
			return nil, ctxError("transcriptions.wait", ctx.Err())
		case <-ticker.C:
		}
	}
}
