package soniox

import (
	"encoding/json"
	"fmt"
)

// startRequest is the first frame of a real-time session.
type startRequest struct {
	APIKey                       string             `json:"api_key"`
	Model                        string             `json:"model"`
	AudioFormat                  string             `json:"audio_format"`
	SampleRate                   int                `json:"sample_rate,omitempty"`
	NumChannels                  int                `json:"num_channels,omitempty"`
	LanguageHints                []string           `json:"language_hints,omitempty"`
	EnableSpeakerDiarization     bool               `json:"enable_speaker_diarization,omitempty"`
	EnableLanguageIdentification bool               `json:"enable_language_identification,omitempty"`
	Context                      string             `json:"context,omitempty"`
	ClientReferenceID            string             `json:"client_reference_id,omitempty"`
	Translation                  *translationConfig `json:"translation,omitempty"`
}

func newStartRequest(apiKey string, cfg *SessionConfig) *startRequest {
	return &startRequest{
		APIKey:                       apiKey,
		Model:                        cfg.Model,
		AudioFormat:                  cfg.AudioFormat,
		SampleRate:                   cfg.SampleRate,
		NumChannels:                  cfg.NumChannels,
		LanguageHints:                cfg.LanguageHints,
		EnableSpeakerDiarization:     cfg.EnableSpeakerDiarization,
		EnableLanguageIdentification: cfg.EnableLanguageIdentification,
		Context:                      cfg.Context,
		ClientReferenceID:            cfg.ClientReferenceID,
		Translation:                  newTranslationConfig(cfg.EnableTranslation, cfg.TranslationTargetLanguage),
	}
}

// Control messages.
var (
	keepaliveMessage = []byte(`{"type":"keepalive"}`)
	finalizeMessage  = []byte(`{"type":"finalize"}`)
)

// Response is an inbound real-time message.
type Response struct {
	Tokens           []Token `json:"tokens"`
	FinalAudioProcMs int64   `json:"final_audio_proc_ms"`
	TotalAudioProcMs int64   `json:"total_audio_proc_ms"`
	Finished         bool    `json:"finished"`
	ErrorCode        int     `json:"error_code,omitempty"`
	ErrorMessage     string  `json:"error_message,omitempty"`
}

// HasError reports whether the remote reported a session error.
func (r *Response) HasError() bool {
	return r.ErrorCode != 0 || r.ErrorMessage != ""
}

// parseResponse decodes and validates an inbound message.
func parseResponse(data []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	for _, t := range r.Tokens {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return &r, nil
}
