// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the settings file when --config is absent.
const EnvironmentVariable = "HOMEWIRE_CONFIG"

// Settings is the complete homewire configuration.
type Settings struct {
	// Endpoint is the controller's base URL, e.g. http://192.168.1.40.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Username and Application identify the session. Application shows
	// up in the controller's session list.
	Username    string `yaml:"username" json:"username"`
	Application string `yaml:"application" json:"application"`

	// PasswordFile holds the password. "-" reads it from stdin. When
	// empty, the CLI prompts on the terminal.
	PasswordFile string `yaml:"password_file" json:"password_file"`

	// LogSensitive allows session cookies and tokens in debug logs.
	// Passwords are redacted regardless.
	LogSensitive bool `yaml:"log_sensitive" json:"log_sensitive"`

	// RequestTimeout bounds each call that has no other deadline.
	// Default: 30s
	RequestTimeout Duration `yaml:"request_timeout" json:"request_timeout"`

	// CookieName is the session cookie the controller issues.
	// Default: session
	CookieName string `yaml:"cookie_name" json:"cookie_name"`

	// Watch tunes the change-watch loop.
	Watch WatchSettings `yaml:"watch" json:"watch"`

	// RedisURL, when set, publishes watched changes to Redis.
	// Schemes: redis, rediss, redis-sentinel, rediss-sentinel. A bare
	// host:port is a single server.
	RedisURL string `yaml:"redis_url" json:"redis_url"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// WatchSettings tunes the change-watch loop. Zero values fall back to
// the loop's defaults.
type WatchSettings struct {
	PollPause            Duration `yaml:"poll_pause" json:"poll_pause"`
	WaitTimeout          Duration `yaml:"wait_timeout" json:"wait_timeout"`
	BackoffUnit          Duration `yaml:"backoff_unit" json:"backoff_unit"`
	MaxConsecutiveErrors int      `yaml:"max_consecutive_errors" json:"max_consecutive_errors"`
	CleanupPause         Duration `yaml:"cleanup_pause" json:"cleanup_pause"`
	CleanupTimeout       Duration `yaml:"cleanup_timeout" json:"cleanup_timeout"`
}

// Duration is a time.Duration written as a Go duration string ("15s")
// in both YAML and JSON settings files.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the settings every file is loaded over. Endpoint and
// Username have no default; the file must supply them.
func Default() *Settings {
	return &Settings{
		Application:    "homewire",
		RequestTimeout: Duration(30 * time.Second),
		CookieName:     "session",
	}
}

// Load loads settings from the file named by HOMEWIRE_CONFIG.
//
// There are no fallbacks: if HOMEWIRE_CONFIG is not set, this fails.
func Load() (*Settings, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your homewire.yaml settings file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads settings from path. The format follows the extension:
// .yaml and .yml are YAML; .json and .jsonc are JSON, with comments and
// trailing commas allowed. ${VAR} and ${VAR:-default} are expanded in
// endpoint and password_file, and a leading ~/ in password_file is the
// home directory. No environment variable overrides a value from the
// file.
func LoadFile(path string) (*Settings, error) {
	settings := Default()
	if err := settings.loadFile(path); err != nil {
		return nil, err
	}
	settings.expandVariables()
	return settings, nil
}

func (s *Settings) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	switch extension := strings.ToLower(filepath.Ext(path)); extension {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, s); err != nil {
			return fmt.Errorf("config: parsing %s: %w", path, err)
		}
	case ".json", ".jsonc":
		// Strip comments and trailing commas before parsing as standard JSON.
		decoder := json.NewDecoder(strings.NewReader(string(jsonc.ToJSON(data))))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(s); err != nil {
			return fmt.Errorf("config: parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config: %s: unsupported extension %q (want .yaml, .yml, .json, or .jsonc)", path, extension)
	}
	return nil
}

func (s *Settings) expandVariables() {
	s.Endpoint = expand(s.Endpoint)
	s.PasswordFile = expand(s.PasswordFile)
	if rest, ok := strings.CutPrefix(s.PasswordFile, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			s.PasswordFile = filepath.Join(home, rest)
		}
	}
}

// variable matches ${NAME} and ${NAME:-fallback}.
var variable = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expand substitutes environment variables into value. An unset or
// empty variable takes its fallback, or nothing.
func expand(value string) string {
	return variable.ReplaceAllStringFunc(value, func(reference string) string {
		groups := variable.FindStringSubmatch(reference)
		if set := os.Getenv(groups[1]); set != "" {
			return set
		}
		return groups[2]
	})
}

// FieldError names one invalid setting.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate checks the settings for structural errors before any
// network traffic. Every problem found is reported; each is a
// *FieldError reachable with errors.As.
func (s *Settings) Validate() error {
	var errs []error
	invalid := func(field, format string, args ...any) {
		errs = append(errs, &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if s.Endpoint == "" {
		invalid("endpoint", "is required")
	} else if parsed, err := url.Parse(s.Endpoint); err != nil {
		invalid("endpoint", "%v", err)
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		invalid("endpoint", "scheme must be http or https, got %q", parsed.Scheme)
	} else if parsed.Host == "" {
		invalid("endpoint", "missing host")
	}

	if s.Username == "" {
		invalid("username", "is required")
	}
	if s.Application == "" {
		invalid("application", "is required")
	}
	if s.CookieName == "" {
		invalid("cookie_name", "is required")
	}
	if s.RequestTimeout <= 0 {
		invalid("request_timeout", "must be positive, got %s", s.RequestTimeout.Std())
	}

	for field, value := range map[string]Duration{
		"watch.poll_pause":      s.Watch.PollPause,
		"watch.wait_timeout":    s.Watch.WaitTimeout,
		"watch.backoff_unit":    s.Watch.BackoffUnit,
		"watch.cleanup_pause":   s.Watch.CleanupPause,
		"watch.cleanup_timeout": s.Watch.CleanupTimeout,
	} {
		if value < 0 {
			invalid(field, "must not be negative, got %s", value.Std())
		}
	}
	if s.Watch.MaxConsecutiveErrors < 0 {
		invalid("watch.max_consecutive_errors", "must not be negative, got %d", s.Watch.MaxConsecutiveErrors)
	}
	if s.Watch.WaitTimeout > 0 && s.Watch.WaitTimeout < Duration(time.Second) {
		invalid("watch.wait_timeout", "must be at least 1s, got %s", s.Watch.WaitTimeout.Std())
	}

	if s.RedisURL != "" && strings.Contains(s.RedisURL, "://") {
		if parsed, err := url.Parse(s.RedisURL); err != nil {
			invalid("redis_url", "%v", err)
		} else if !slices.Contains([]string{"redis", "rediss", "redis-sentinel", "rediss-sentinel"}, parsed.Scheme) {
			invalid("redis_url", "scheme must be redis, rediss, redis-sentinel, or rediss-sentinel, got %q", parsed.Scheme)
		}
	}
	if s.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(s.MetricsAddr); err != nil {
			invalid("metrics_addr", "%v", err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
