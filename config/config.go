// Package config loads client settings from YAML and turns them into
// [client.Option] values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adamwoolhether/apiman/client"
	"github.com/adamwoolhether/apiman/internal/validate"
)

// Auth types understood by [Config].
const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthBasic  = "basic"
	AuthHeader = "header"
)

// Config defines configuration for an apiman client. The zero value is
// valid: redirects are followed and no authentication is configured.
type Config struct {
	Timeout           time.Duration   `yaml:"timeout" validate:"gte=0"`
	UserAgent         string          `yaml:"user_agent"`
	NoFollowRedirects bool            `yaml:"no_follow_redirects"`
	StatusValidation  bool            `yaml:"status_validation"`
	RequestIDHeader   string          `yaml:"request_id_header"`
	BatchLimit        int             `yaml:"batch_limit" validate:"gte=0"`
	DownloadDir       string          `yaml:"download_dir"`
	Throttle          *ThrottleConfig `yaml:"throttle"`
	Auth              AuthConfig      `yaml:"auth"`
}

// ThrottleConfig defines outbound rate limiting.
type ThrottleConfig struct {
	RPS     int  `yaml:"rps" validate:"gt=0"`
	Burst   int  `yaml:"burst" validate:"gt=0"`
	PerHost bool `yaml:"per_host"`
}

// AuthConfig selects the authentication header source. TokenEnv names an
// environment variable holding the bearer token and is read when the
// options are built. An empty Type is the same as [AuthNone].
type AuthConfig struct {
	Type     string `yaml:"type" validate:"omitempty,oneof=none bearer basic header"`
	Token    string `yaml:"token"`
	TokenEnv string `yaml:"token_env"`
	Username string `yaml:"username" validate:"required_if=Type basic"`
	Password string `yaml:"password"`
	Header   string `yaml:"header" validate:"required_if=Type header"`
	Value    string `yaml:"value" validate:"required_if=Type header"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Auth: AuthConfig{Type: AuthNone},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	Timeout           string          `yaml:"timeout"`
	UserAgent         string          `yaml:"user_agent"`
	NoFollowRedirects bool            `yaml:"no_follow_redirects"`
	StatusValidation  bool            `yaml:"status_validation"`
	RequestIDHeader   string          `yaml:"request_id_header"`
	BatchLimit        int             `yaml:"batch_limit"`
	DownloadDir       string          `yaml:"download_dir"`
	Throttle          *ThrottleConfig `yaml:"throttle"`
	Auth              AuthConfig      `yaml:"auth"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	return Load(bytes.NewReader(data))
}

// Load parses YAML configuration from r, applies defaults for missing
// values and validates the result.
func Load(r io.Reader) (Config, error) {
	var yc yamlConfig

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&yc); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()

	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.Auth.Type == "" {
		yc.Auth.Type = AuthNone
	}
	cfg.Auth = yc.Auth
	cfg.UserAgent = yc.UserAgent
	cfg.NoFollowRedirects = yc.NoFollowRedirects
	cfg.StatusValidation = yc.StatusValidation
	cfg.RequestIDHeader = yc.RequestIDHeader
	cfg.BatchLimit = yc.BatchLimit
	cfg.DownloadDir = yc.DownloadDir
	cfg.Throttle = yc.Throttle

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if err := validate.Check(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Auth.Type == AuthBearer && c.Auth.Token == "" && c.Auth.TokenEnv == "" {
		return errors.New("invalid config: bearer auth requires token or token_env")
	}

	return nil
}

// Options converts the configuration into client options.
func (c Config) Options() ([]client.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var opts []client.Option

	if c.Timeout > 0 {
		opts = append(opts, client.WithTimeout(c.Timeout))
	}
	if c.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(c.UserAgent))
	}
	if c.NoFollowRedirects {
		opts = append(opts, client.WithNoFollowRedirects())
	}
	if c.StatusValidation {
		opts = append(opts, client.WithStatusValidation())
	}
	if c.RequestIDHeader != "" {
		opts = append(opts, client.WithRequestIDHeader(c.RequestIDHeader))
	}
	if c.BatchLimit > 0 {
		opts = append(opts, client.WithBatchLimit(c.BatchLimit))
	}
	if c.DownloadDir != "" {
		opts = append(opts, client.WithDownloadDir(c.DownloadDir))
	}
	if c.Throttle != nil {
		if c.Throttle.PerHost {
			opts = append(opts, client.WithThrottlePerHost(c.Throttle.RPS, c.Throttle.Burst))
		} else {
			opts = append(opts, client.WithThrottle(c.Throttle.RPS, c.Throttle.Burst))
		}
	}

	provider, err := c.Auth.provider()
	if err != nil {
		return nil, err
	}
	if provider != nil {
		opts = append(opts, client.WithAuthProvider(provider))
	}

	return opts, nil
}

func (a AuthConfig) provider() (client.AuthProvider, error) {
	switch a.Type {
	case AuthBearer:
		token := a.Token
		if token == "" {
			token = os.Getenv(a.TokenEnv)
		}
		if token == "" {
			return nil, fmt.Errorf("bearer token env %q is empty", a.TokenEnv)
		}
		return client.BearerToken(token), nil

	case AuthBasic:
		return client.BasicAuth(a.Username, a.Password), nil

	case AuthHeader:
		return client.StaticHeader(a.Header, a.Value), nil
	}

	return nil, nil
}
