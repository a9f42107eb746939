package soniox

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	// KindConfiguration is an invalid or incompatible option. No network
	// call is made when it is reported.
	KindConfiguration Kind = iota + 1

	// KindConnection is a rejected handshake, an unreachable endpoint, or a
	// transport failure during a session.
	KindConnection

	// KindTimeout is an exceeded handshake, drain, inactivity or polling bound.
	KindTimeout

	// KindCancelled is a caller-initiated cancellation.
	KindCancelled

	// KindProtocol is a malformed or unexpected inbound message.
	KindProtocol

	// KindAPI is a non-2xx response from a REST endpoint.
	KindAPI

	// KindAudioSource is a failure reported by the AudioSource.
	KindAudioSource
)

// Sentinel errors, one per Kind. Use errors.Is to classify:
//
//	if errors.Is(err, soniox.ErrTimeout) { ... }
var (
	ErrConfiguration = errors.New("soniox: configuration error")
	ErrConnection    = errors.New("soniox: connection error")
	ErrTimeout       = errors.New("soniox: timeout")
	ErrCancelled     = errors.New("soniox: cancelled")
	ErrProtocol      = errors.New("soniox: protocol error")
	ErrAPI           = errors.New("soniox: api error")
	ErrAudioSource   = errors.New("soniox: audio source error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindConnection:
		return ErrConnection
	case KindTimeout:
		return ErrTimeout
	case KindCancelled:
		return ErrCancelled
	case KindProtocol:
		return ErrProtocol
	case KindAPI:
		return ErrAPI
	case KindAudioSource:
		return ErrAudioSource
	default:
		return nil
	}
}

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	case KindProtocol:
		return "protocol"
	case KindAPI:
		return "api"
	case KindAudioSource:
		return "audio_source"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the error type returned by this package.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Op is the operation that failed, e.g. "handshake", "receive",
	// "files.upload".
	Op string

	// Code is the remote error code or HTTP status, if any.
	Code int

	// Message is the human readable description.
	Message string

	// Type is the remote error type, if any.
	Type string

	// RequestID identifies the failed REST request, if known.
	RequestID string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("soniox: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " (code=%d", e.Code)
		if e.RequestID != "" {
			fmt.Fprintf(&b, ", request_id=%s", e.RequestID)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// IsAuth reports whether the remote rejected the credentials.
func (e *Error) IsAuth() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// IsRateLimit reports whether the request was throttled.
func (e *Error) IsRateLimit() bool {
	return e.Kind == KindAPI && e.Code == http.StatusTooManyRequests
}

// IsServerError reports whether the remote failed internally.
func (e *Error) IsServerError() bool {
	return e.Kind == KindAPI && e.Code >= http.StatusInternalServerError
}

// Retryable reports whether a REST request may be retried.
// Streaming errors are never retryable.
func (e *Error) Retryable() bool {
	return e.IsRateLimit() || e.IsServerError()
}

// AsError attempts to cast an error to *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return 0
}

func configError(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Op: "validate", Message: fmt.Sprintf(format, args...)}
}

// apiErrorBody is the error payload of the REST API.
type apiErrorBody struct {
	StatusCode int    `json:"status_code"`
	ErrorType  string `json:"error_type"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

// parseAPIError builds an *Error from a non-2xx REST response.
func parseAPIError(op string, statusCode int, body []byte) *Error {
	e := &Error{Kind: KindAPI, Op: op, Code: statusCode}
	var payload apiErrorBody
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		e.Message = strings.TrimSpace(string(body))
		if e.Message == "" {
			e.Message = http.StatusText(statusCode)
		}
		return e
	}
	e.Message = payload.Message
	e.Type = payload.ErrorType
	e.RequestID = payload.RequestID
	return e
}
