package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the configuration directory under the user's home.
	DefaultBaseDir = ".soniox"
	// DefaultConfigFile is the configuration filename.
	DefaultConfigFile = "config.yaml"
)

// Config is the CLI configuration file.
type Config struct {
	// CurrentContext is the name of the active context.
	CurrentContext string `yaml:"current_context,omitempty" json:"current_context,omitempty"`

	// Contexts maps context names to credentials and endpoints.
	Contexts map[string]*Context `yaml:"contexts,omitempty" json:"contexts,omitempty"`

	configPath string
}

// Context is one account or environment.
type Context struct {
	Name string `yaml:"name" json:"name"`

	// APIKey authenticates REST and websocket calls.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	// BaseURL overrides the REST endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// WebSocketURL overrides the real-time endpoint.
	WebSocketURL string `yaml:"websocket_url,omitempty" json:"websocket_url,omitempty"`

	// MaxRetries bounds REST retries. Zero uses the client default.
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`

	// DefaultModel is used when a command does not set --model.
	DefaultModel string `yaml:"default_model,omitempty" json:"default_model,omitempty"`

	// LanguageHints are applied when a command does not set --language-hints.
	LanguageHints []string `yaml:"language_hints,omitempty" json:"language_hints,omitempty"`
}

// LoadConfig loads ~/.soniox/config.yaml, creating it when missing.
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath("")
}

// LoadConfigWithPath loads configuration from a custom path. An empty path
// selects the default location.
func LoadConfigWithPath(customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		paths, err := NewPaths()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = paths.ConfigFile()
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	cfg.configPath = configPath
	return cfg, nil
}

// Save writes the configuration with owner-only permissions.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// AddContext adds or replaces a context. The first context added becomes
// current.
func (c *Config) AddContext(name string, ctx *Context) error {
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ResolveContext returns the named context, or the current one when name is
// empty.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		if c.CurrentContext == "" {
			return nil, fmt.Errorf("no current context set")
		}
		name = c.CurrentContext
	}
	return c.GetContext(name)
}

// ListContexts returns context names in sorted order.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := &Config{CurrentContext: c.CurrentContext, Contexts: make(map[string]*Context, len(c.Contexts))}
	for name, ctx := range c.Contexts {
		cp := *ctx
		cp.APIKey = MaskAPIKey(cp.APIKey)
		out.Contexts[name] = &cp
	}
	return out
}

// MaskAPIKey masks all but the first and last four characters.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
