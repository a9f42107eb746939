package soniox

import (
	"fmt"
	"strings"
	"time"
)

// Models.
const (
	ModelRealtime = "stt-rt-v3"
	ModelAsync    = "stt-async-v3"
)

// Audio formats accepted by the real-time endpoint.
const (
	AudioFormatAuto     = "auto"
	AudioFormatPCMS16LE = "pcm_s16le"
	AudioFormatPCMF32LE = "pcm_f32le"
)

// Translation status values carried by tokens when translation is enabled.
const (
	TranslationStatusNone        = "none"
	TranslationStatusOriginal    = "original"
	TranslationStatusTranslation = "translation"
)

// Token is a unit of transcribed speech.
//
// A token is immutable once IsFinal is true.
type Token struct {
	Text       string  `json:"text" yaml:"text"`
	StartMs    int64   `json:"start_ms" yaml:"start_ms"`
	EndMs      int64   `json:"end_ms" yaml:"end_ms"`
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Speaker is set when speaker diarization is enabled.
	Speaker string `json:"speaker,omitempty" yaml:"speaker,omitempty"`

	// Language is set when language identification is enabled.
	Language string `json:"language,omitempty" yaml:"language,omitempty"`

	// TranslationStatus is set when translation is enabled.
	TranslationStatus string `json:"translation_status,omitempty" yaml:"translation_status,omitempty"`

	IsFinal bool `json:"is_final" yaml:"is_final"`
}

// Validate checks the timing and confidence invariants of a token.
func (t Token) Validate() error {
	if t.StartMs < 0 {
		return fmt.Errorf("token %q: start_ms %d is negative", t.Text, t.StartMs)
	}
	if t.EndMs < t.StartMs {
		return fmt.Errorf("token %q: end_ms %d before start_ms %d", t.Text, t.EndMs, t.StartMs)
	}
	if t.Confidence < 0 || t.Confidence > 1 {
		return fmt.Errorf("token %q: confidence %v out of range", t.Text, t.Confidence)
	}
	return nil
}

// JoinTokens concatenates token texts. Tokens carry their own spacing.
func JoinTokens(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// MeanConfidence returns the average token confidence, or 0 for no tokens.
func MeanConfidence(tokens []Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tokens {
		sum += t.Confidence
	}
	return sum / float64(len(tokens))
}

// File is an uploaded audio file.
type File struct {
	ID                string    `json:"id" yaml:"id"`
	Filename          string    `json:"filename" yaml:"filename"`
	Size              int64     `json:"size" yaml:"size"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at"`
	ClientReferenceID string    `json:"client_reference_id,omitempty" yaml:"client_reference_id,omitempty"`
}

// FileList is one page of files.
type FileList struct {
	Files          []File `json:"files" yaml:"files"`
	NextPageCursor string `json:"next_page_cursor,omitempty" yaml:"next_page_cursor,omitempty"`
}

// TranscriptionStatus is the state of an asynchronous transcription job.
type TranscriptionStatus string

const (
	TranscriptionStatusQueued     TranscriptionStatus = "queued"
	TranscriptionStatusProcessing TranscriptionStatus = "processing"
	TranscriptionStatusCompleted  TranscriptionStatus = "completed"
	TranscriptionStatusError      TranscriptionStatus = "error"
)

// Terminal reports whether the job will not change status anymore.
func (s TranscriptionStatus) Terminal() bool {
	return s == TranscriptionStatusCompleted || s == TranscriptionStatusError
}

// Transcription is an asynchronous transcription job.
type Transcription struct {
	ID                           string              `json:"id" yaml:"id"`
	Status                       TranscriptionStatus `json:"status" yaml:"status"`
	CreatedAt                    time.Time           `json:"created_at" yaml:"created_at"`
	Model                        string              `json:"model" yaml:"model"`
	AudioURL                     string              `json:"audio_url,omitempty" yaml:"audio_url,omitempty"`
	FileID                       string              `json:"file_id,omitempty" yaml:"file_id,omitempty"`
	Filename                     string              `json:"filename,omitempty" yaml:"filename,omitempty"`
	AudioDurationMs              int64               `json:"audio_duration_ms,omitempty" yaml:"audio_duration_ms,omitempty"`
	LanguageHints                []string            `json:"language_hints,omitempty" yaml:"language_hints,omitempty"`
	EnableSpeakerDiarization     bool                `json:"enable_speaker_diarization" yaml:"enable_speaker_diarization"`
	EnableLanguageIdentification bool                `json:"enable_language_identification" yaml:"enable_language_identification"`
	Context                      string              `json:"context,omitempty" yaml:"context,omitempty"`
	ClientReferenceID            string              `json:"client_reference_id,omitempty" yaml:"client_reference_id,omitempty"`
	WebhookURL                   string              `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`
	WebhookStatusCode            int                 `json:"webhook_status_code,omitempty" yaml:"webhook_status_code,omitempty"`
	ErrorMessage                 string              `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// TranscriptionList is one page of transcription jobs.
type TranscriptionList struct {
	Transcriptions []Transcription `json:"transcriptions" yaml:"transcriptions"`
	NextPageCursor string          `json:"next_page_cursor,omitempty" yaml:"next_page_cursor,omitempty"`
}

// TranscriptResult is the transcript of a completed job.
type TranscriptResult struct {
	ID     string  `json:"id" yaml:"id"`
	Text   string  `json:"text" yaml:"text"`
	Tokens []Token `json:"tokens" yaml:"tokens"`
}

// Result is the outcome of a batch transcription.
type Result struct {
	Transcription *Transcription `json:"transcription" yaml:"transcription"`
	Text          string         `json:"text" yaml:"text"`
	Tokens        []Token        `json:"tokens" yaml:"tokens"`
	Confidence    float64        `json:"confidence" yaml:"confidence"`
}

// BySpeaker groups the result tokens by speaker.
func (r *Result) BySpeaker() map[string][]Token {
	return GroupBySpeaker(r.Tokens)
}

func newResult(job *Transcription, transcript *TranscriptResult) *Result {
	tokens := make([]Token, len(transcript.Tokens))
	for i, t := range transcript.Tokens {
		t.IsFinal = true
		tokens[i] = t
	}
	return &Result{
		Transcription: job,
		Text:          transcript.Text,
		Tokens:        tokens,
		Confidence:    MeanConfidence(tokens),
	}
}

// ListOptions paginates list calls.
type ListOptions struct {
	Limit  int
	Cursor string
}
