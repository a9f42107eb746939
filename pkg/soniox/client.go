package soniox

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/googleapis/gax-go/v2"
)

const (
	// DefaultBaseURL is the default REST endpoint.
	DefaultBaseURL = "https://api.soniox.com"

	// DefaultWebSocketURL is the default real-time transcription endpoint.
	DefaultWebSocketURL = "wss://stt-rt.soniox.com/transcribe-websocket"

	defaultMaxRetries   = 3
	defaultPollInterval = time.Second
	defaultHTTPTimeout  = 60 * time.Second
)

// Client is the Soniox API client.
type Client struct {
	Files          *FilesService
	Transcriptions *TranscriptionsService
	Stream         *StreamService

	config *clientConfig
}

// clientConfig holds the client configuration.
type clientConfig struct {
	apiKey       string
	baseURL      string
	wsURL        string
	httpClient   *http.Client
	logger       *slog.Logger
	maxRetries   int
	backoff      gax.Backoff
	pollInterval time.Duration
	transport    Transport
	observer     Observer
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient creates a new Soniox client.
//
// The apiKey is required. Use FromEnv to read it from SONIOX_API_KEY.
func NewClient(apiKey string, opts ...Option) *Client {
	if apiKey == "" {
		panic("soniox: API key is required")
	}

	cfg := &clientConfig{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		wsURL:        DefaultWebSocketURL,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		logger:       slog.Default(),
		maxRetries:   defaultMaxRetries,
		pollInterval: defaultPollInterval,
		backoff: gax.Backoff{
			Initial:    500 * time.Millisecond,
			Max:        8 * time.Second,
			Multiplier: 2,
		},
		observer: nopObserver{},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.transport == nil {
		cfg.transport = &WebSocketTransport{URL: cfg.wsURL}
	}

	c := &Client{config: cfg}
	c.Files = &FilesService{client: c}
	c.Transcriptions = &TranscriptionsService{client: c}
	c.Stream = &StreamService{client: c}
	return c
}

// EnvConfig is the environment read by FromEnv.
type EnvConfig struct {
	APIKey       string `env:"SONIOX_API_KEY,required,notEmpty"`
	BaseURL      string `env:"SONIOX_API_BASE_URL"`
	WebSocketURL string `env:"SONIOX_WS_URL"`
}

// LoadEnv parses EnvConfig from the process environment.
func LoadEnv() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: "env", Err: err}
	}
	return &cfg, nil
}

// FromEnv creates a client from SONIOX_API_KEY and, when set,
// SONIOX_API_BASE_URL and SONIOX_WS_URL. Explicit opts take precedence.
func FromEnv(opts ...Option) (*Client, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	var all []Option
	if cfg.BaseURL != "" {
		all = append(all, WithBaseURL(cfg.BaseURL))
	}
	if cfg.WebSocketURL != "" {
		all = append(all, WithWebSocketURL(cfg.WebSocketURL))
	}
	return NewClient(cfg.APIKey, append(all, opts...)...), nil
}

// WithBaseURL sets the REST base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithWebSocketURL sets the real-time endpoint used by the default transport.
func WithWebSocketURL(url string) Option {
	return func(c *clientConfig) {
		c.wsURL = url
	}
}

// WithHTTPClient sets a custom HTTP client for REST calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxRetries sets how many times a transient REST failure is retried.
// Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(c *clientConfig) {
		c.maxRetries = max(n, 0)
	}
}

// WithRetryBackoff sets the backoff between REST retries.
func WithRetryBackoff(initial, maxPause time.Duration) Option {
	return func(c *clientConfig) {
		c.backoff = gax.Backoff{Initial: initial, Max: maxPause, Multiplier: 2}
	}
}

// WithPollInterval sets the default interval used by Transcriptions.Wait.
func WithPollInterval(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithTransport replaces the duplex transport used by streaming sessions.
func WithTransport(t Transport) Option {
	return func(c *clientConfig) {
		c.transport = t
	}
}

// WithObserver installs a session observer, e.g. promobserver.
func WithObserver(o Observer) Option {
	return func(c *clientConfig) {
		if o != nil {
			c.observer = o
		}
	}
}
