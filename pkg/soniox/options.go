package soniox

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags of v and converts failures into a
// configuration error naming every offending field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Kind: KindConfiguration, Op: "validate", Err: err}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return configError("%s", strings.Join(msgs, "; "))
}

// SessionConfig configures a real-time transcription session. It is copied
// at Open and never changes for the lifetime of the session.
type SessionConfig struct {
	// Model defaults to ModelRealtime.
	Model string `json:"model" yaml:"model" validate:"required"`

	// AudioFormat defaults to AudioFormatPCMS16LE.
	AudioFormat string `json:"audio_format" yaml:"audio_format" validate:"required"`

	// SampleRate of the audio in Hz. Required.
	SampleRate int `json:"sample_rate" yaml:"sample_rate" validate:"gt=0,lte=192000"`

	// NumChannels defaults to 1.
	NumChannels int `json:"num_channels" yaml:"num_channels" validate:"gte=1,lte=8"`

	EnableSpeakerDiarization     bool `json:"enable_speaker_diarization" yaml:"enable_speaker_diarization"`
	EnableLanguageIdentification bool `json:"enable_language_identification" yaml:"enable_language_identification"`

	// EnableTranslation requires TranslationTargetLanguage.
	EnableTranslation         bool   `json:"enable_translation" yaml:"enable_translation"`
	TranslationTargetLanguage string `json:"translation_target_language,omitempty" yaml:"translation_target_language,omitempty"`

	LanguageHints []string `json:"language_hints,omitempty" yaml:"language_hints,omitempty" validate:"dive,required"`

	// Context is free text that biases recognition (domain words, names).
	Context string `json:"context,omitempty" yaml:"context,omitempty" validate:"max=10000"`

	ClientReferenceID string `json:"client_reference_id,omitempty" yaml:"client_reference_id,omitempty" validate:"max=256"`
}

// withDefaults returns a copy of c with unset optional fields filled in.
func (c SessionConfig) withDefaults() SessionConfig {
	if c.Model == "" {
		c.Model = ModelRealtime
	}
	if c.AudioFormat == "" {
		c.AudioFormat = AudioFormatPCMS16LE
	}
	if c.NumChannels == 0 {
		c.NumChannels = 1
	}
	c.LanguageHints = slices.Clone(c.LanguageHints)
	return c
}

// Validate reports a configuration error for invalid or incompatible
// options. Unset optional fields are validated with their defaults.
func (c *SessionConfig) Validate() error {
	if c == nil {
		return configError("session config is required")
	}
	d := c.withDefaults()
	if err := validateStruct(&d); err != nil {
		return err
	}
	return validateTranslation(d.EnableTranslation, d.TranslationTargetLanguage)
}

// TranscriptionOptions configures an asynchronous transcription job.
type TranscriptionOptions struct {
	// Model defaults to ModelAsync.
	Model string `json:"model" yaml:"model" validate:"required"`

	LanguageHints                []string `json:"language_hints,omitempty" yaml:"language_hints,omitempty" validate:"dive,required"`
	EnableSpeakerDiarization     bool     `json:"enable_speaker_diarization" yaml:"enable_speaker_diarization"`
	EnableLanguageIdentification bool     `json:"enable_language_identification" yaml:"enable_language_identification"`

	// EnableTranslation requires TranslationTargetLanguage.
	EnableTranslation         bool   `json:"enable_translation" yaml:"enable_translation"`
	TranslationTargetLanguage string `json:"translation_target_language,omitempty" yaml:"translation_target_language,omitempty"`

	Context           string `json:"context,omitempty" yaml:"context,omitempty" validate:"max=10000"`
	ClientReferenceID string `json:"client_reference_id,omitempty" yaml:"client_reference_id,omitempty" validate:"max=256"`

	// WebhookURL receives a POST when the job reaches a terminal status.
	WebhookURL             string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty" validate:"omitempty,url"`
	WebhookAuthHeaderName  string `json:"webhook_auth_header_name,omitempty" yaml:"webhook_auth_header_name,omitempty" validate:"required_with=WebhookAuthHeaderValue"`
	WebhookAuthHeaderValue string `json:"webhook_auth_header_value,omitempty" yaml:"webhook_auth_header_value,omitempty" validate:"required_with=WebhookAuthHeaderName"`

	// Cleanup deletes the job, and the uploaded file if any, after the
	// transcript of a TranscribeFile/TranscribeURL call has been fetched.
	Cleanup bool `json:"-" yaml:"cleanup"`
}

func (o *TranscriptionOptions) withDefaults() TranscriptionOptions {
	var d TranscriptionOptions
	if o != nil {
		d = *o
	}
	if d.Model == "" {
		d.Model = ModelAsync
	}
	d.LanguageHints = slices.Clone(d.LanguageHints)
	return d
}

// Validate reports a configuration error for invalid or incompatible
// options. A nil receiver is valid and means all defaults.
func (o *TranscriptionOptions) Validate() error {
	d := o.withDefaults()
	if err := validateStruct(&d); err != nil {
		return err
	}
	if d.WebhookURL != "" {
		if err := validateHTTPURL("webhook_url", d.WebhookURL); err != nil {
			return err
		}
	}
	if d.WebhookURL == "" && d.WebhookAuthHeaderName != "" {
		return configError("webhook auth header requires webhook_url")
	}
	return validateTranslation(d.EnableTranslation, d.TranslationTargetLanguage)
}

func validateTranslation(enabled bool, target string) error {
	if enabled && strings.TrimSpace(target) == "" {
		return configError("translation requires translation_target_language")
	}
	if !enabled && target != "" {
		return configError("translation_target_language set but translation is disabled")
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return configError("%s: %v", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return configError("%s: scheme must be http or https, got %q", field, u.Scheme)
	}
	if u.Host == "" {
		return configError("%s: missing host", field)
	}
	return nil
}

// translationConfig is the wire form of translation settings.
type translationConfig struct {
	Type           string `json:"type"`
	TargetLanguage string `json:"target_language"`
}

func newTranslationConfig(enabled bool, target string) *translationConfig {
	if !enabled {
		return nil
	}
	return &translationConfig{Type: "one_way", TargetLanguage: target}
}
