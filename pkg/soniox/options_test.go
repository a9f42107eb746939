package soniox

import (
	"errors"
	"strings"
	"testing"
)

func TestSessionConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  SessionConfig
		wantErr string
	}{
		{"minimal", SessionConfig{SampleRate: 16000}, ""},
		{"full", SessionConfig{
			Model:                     ModelRealtime,
			AudioFormat:               AudioFormatPCMF32LE,
			SampleRate:                48000,
			NumChannels:               2,
			LanguageHints:             []string{"en"},
			EnableTranslation:         true,
			TranslationTargetLanguage: "de",
		}, ""},
		{"zero sample rate", SessionConfig{}, "sample_rate"},
		{"negative sample rate", SessionConfig{SampleRate: -1}, "sample_rate"},
		{"too many channels", SessionConfig{SampleRate: 16000, NumChannels: 9}, "num_channels"},
		{"empty language hint", SessionConfig{SampleRate: 16000, LanguageHints: []string{"en", ""}}, "language_hints"},
		{"translation without target", SessionConfig{SampleRate: 16000, EnableTranslation: true}, "translation"},
		{"target without translation", SessionConfig{SampleRate: 16000, TranslationTargetLanguage: "fr"}, "translation"},
		{"context too long", SessionConfig{SampleRate: 16000, Context: strings.Repeat("x", 10001)}, "context"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Validate() = %v, want ErrConfiguration", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSessionConfig_Defaults(t *testing.T) {
	in := SessionConfig{SampleRate: 8000, LanguageHints: []string{"en"}}
	got := in.withDefaults()
	if got.Model != ModelRealtime {
		t.Errorf("Model = %q, want %q", got.Model, ModelRealtime)
	}
	if got.AudioFormat != AudioFormatPCMS16LE {
		t.Errorf("AudioFormat = %q, want %q", got.AudioFormat, AudioFormatPCMS16LE)
	}
	if got.NumChannels != 1 {
		t.Errorf("NumChannels = %d, want 1", got.NumChannels)
	}
	got.LanguageHints[0] = "fr"
	if in.LanguageHints[0] != "en" {
		t.Error("withDefaults should copy LanguageHints")
	}
}

func TestTranscriptionOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    *TranscriptionOptions
		wantErr string
	}{
		{"nil", nil, ""},
		{"webhook", &TranscriptionOptions{WebhookURL: "https://example.com/hook"}, ""},
		{"webhook with auth", &TranscriptionOptions{
			WebhookURL:             "https://example.com/hook",
			WebhookAuthHeaderName:  "Authorization",
			WebhookAuthHeaderValue: "secret",
		}, ""},
		{"bad webhook url", &TranscriptionOptions{WebhookURL: "not a url"}, "webhook_url"},
		{"ftp webhook", &TranscriptionOptions{WebhookURL: "ftp://example.com/hook"}, "webhook_url"},
		{"header name only", &TranscriptionOptions{
			WebhookURL:            "https://example.com/hook",
			WebhookAuthHeaderName: "Authorization",
		}, "webhook_auth_header_value"},
		{"header value only", &TranscriptionOptions{
			WebhookURL:             "https://example.com/hook",
			WebhookAuthHeaderValue: "secret",
		}, "webhook_auth_header_name"},
		{"header without webhook", &TranscriptionOptions{
			WebhookAuthHeaderName:  "Authorization",
			WebhookAuthHeaderValue: "secret",
		}, "webhook_url"},
		{"translation without target", &TranscriptionOptions{EnableTranslation: true}, "translation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Validate() = %v, want ErrConfiguration", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateTranscriptionRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  *CreateTranscriptionRequest
		ok   bool
	}{
		{"file", &CreateTranscriptionRequest{FileID: "f1"}, true},
		{"url", &CreateTranscriptionRequest{AudioURL: "https://example.com/a.mp3"}, true},
		{"neither", &CreateTranscriptionRequest{}, false},
		{"both", &CreateTranscriptionRequest{FileID: "f1", AudioURL: "https://example.com/a.mp3"}, false},
		{"relative url", &CreateTranscriptionRequest{AudioURL: "/a.mp3"}, false},
		{"bad options", &CreateTranscriptionRequest{FileID: "f1", Options: &TranscriptionOptions{EnableTranslation: true}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Validate() = %v, want ErrConfiguration", err)
			}
		})
	}
}
