// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/pubsub/lib/retry"
)

// EnvironmentVariable names the config file for LoadFromEnv.
const EnvironmentVariable = "PUBSUB_CONFIG"

// Config is the complete client configuration.
type Config struct {
	Keys KeysConfig `yaml:"keys"`

	// UserID identifies this client to the service and to other
	// subscribers' presence events. Required.
	UserID string `yaml:"user_id"`

	// Origin is the service base URL.
	Origin string `yaml:"origin"`

	// StateFile, when set, is where the CLI saves its cursor.
	StateFile string `yaml:"state_file"`

	Subscribe SubscribeConfig `yaml:"subscribe"`
	Retry     RetryConfig     `yaml:"retry"`
	Crypto    CryptoConfig    `yaml:"crypto"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
}

// KeysConfig holds the account keys. They identify the keyset, they
// are not secrets.
type KeysConfig struct {
	PublishKey   string `yaml:"publish_key"`
	SubscribeKey string `yaml:"subscribe_key"`
}

// SubscribeConfig tunes the subscribe and presence engines.
type SubscribeConfig struct {
	// PresenceTimeout is how long the service keeps the user present
	// without a heartbeat. Sent as the heartbeat parameter.
	PresenceTimeout string `yaml:"presence_timeout"`

	// HeartbeatInterval is the gap between presence heartbeats. "0s"
	// disables the presence engine.
	HeartbeatInterval string `yaml:"heartbeat_interval"`

	// RequestTimeout bounds handshake, heartbeat and leave requests.
	RequestTimeout string `yaml:"request_timeout"`

	// LongPollTimeout bounds a receive. It must exceed the service's
	// long-poll hold.
	LongPollTimeout string `yaml:"long_poll_timeout"`

	// FilterExpression is applied server-side to every message.
	FilterExpression string `yaml:"filter_expression"`

	// LeaveOnUnsubscribe announces a presence leave when channels are
	// removed.
	LeaveOnUnsubscribe bool `yaml:"leave_on_unsubscribe"`

	// DedupeCacheSize is how many recent updates are remembered to
	// drop replays. Zero disables de-duplication.
	DedupeCacheSize int `yaml:"dedupe_cache_size"`
}

// RetryConfig selects the reconnection policy.
type RetryConfig struct {
	// Policy is "none", "linear" or "exponential".
	Policy string `yaml:"policy"`

	// Delay is the linear wait.
	Delay string `yaml:"delay"`

	// BaseDelay and MaxDelay bound the exponential curve.
	BaseDelay string `yaml:"base_delay"`
	MaxDelay  string `yaml:"max_delay"`

	MaxRetries int    `yaml:"max_retries"`
	Jitter     string `yaml:"jitter"`

	// Excluded lists endpoint groups that never retry, by name
	// ("subscribe", "presence", ...).
	Excluded []string `yaml:"excluded"`
}

// CryptoConfig enables payload encryption. It is off unless a key is
// given.
type CryptoConfig struct {
	// Cryptor is "aes-cbc", "xchacha20-poly1305" or "legacy".
	Cryptor string `yaml:"cryptor"`

	// KeyFile holds the cipher key. Prefer it to Key, which leaves the
	// key in the config file.
	KeyFile string `yaml:"key_file"`
	Key     string `yaml:"key"`

	// RandomIV selects the random-IV variant of the legacy cryptor.
	RandomIV bool `yaml:"random_iv"`
}

// Enabled reports whether a cipher key is configured.
func (c CryptoConfig) Enabled() bool {
	return c.KeyFile != "" || c.Key != ""
}

// AuthConfig supplies the access token. At most one source may be
// set.
type AuthConfig struct {
	Token string `yaml:"token"`

	// TokenFile is an age-sealed token opened with IdentityFile.
	TokenFile    string `yaml:"token_file"`
	IdentityFile string `yaml:"identity_file"`
}

// LogConfig selects log verbosity and format.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `yaml:"level"`

	// Format is "auto", "text" or "json". Auto picks text on a
	// terminal.
	Format string `yaml:"format"`
}

// Durations are the parsed duration settings.
type Durations struct {
	PresenceTimeout   time.Duration
	HeartbeatInterval time.Duration
	RequestTimeout    time.Duration
	LongPollTimeout   time.Duration
}

// Default returns the configuration every file is layered onto. It
// lacks keys and a user id, so it does not validate on its own.
func Default() *Config {
	return &Config{
		Origin: "https://ps.pndsn.com",
		Subscribe: SubscribeConfig{
			PresenceTimeout:    "300s",
			HeartbeatInterval:  "0s",
			RequestTimeout:     "10s",
			LongPollTimeout:    "310s",
			LeaveOnUnsubscribe: true,
			DedupeCacheSize:    100,
		},
		Retry: RetryConfig{
			Policy:     "exponential",
			Delay:      "2s",
			BaseDelay:  "2s",
			MaxDelay:   "150s",
			MaxRetries: 6,
			Jitter:     "1s",
		},
		Crypto: CryptoConfig{Cryptor: "aes-cbc"},
		Log:    LogConfig{Level: "info", Format: "auto"},
	}
}

// LoadFromEnv loads the file named by PUBSUB_CONFIG. There is no
// fallback when the variable is unset.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("config: %s is not set; point it at a config file or pass --config", EnvironmentVariable)
	}
	return Load(path)
}

// Load reads path over Default and expands path variables. It does not
// validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes data over Default. extension selects the syntax:
// ".json" and ".jsonc" are JSON with comments, anything else is YAML.
func Parse(data []byte, extension string) (*Config, error) {
	switch strings.ToLower(extension) {
	case ".json", ".jsonc":
		converted, err := jsonToYAML(jsonc.ToJSON(data))
		if err != nil {
			return nil, err
		}
		data = converted
	}
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("config: parsing: %w", err)
	}
	config.expandVariables()
	return config, nil
}

// jsonToYAML re-encodes a JSON document as block YAML. JSON is nearly
// a YAML subset, but tab indentation is not, and hand-edited JSONC
// files are often tab-indented.
func jsonToYAML(data []byte) ([]byte, error) {
	var document any
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("config: parsing JSON: %w", err)
	}
	converted, err := yaml.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("config: converting JSON: %w", err)
	}
	return converted, nil
}

func (c *Config) expandVariables() {
	c.StateFile = expandVars(c.StateFile)
	c.Auth.TokenFile = expandVars(c.Auth.TokenFile)
	c.Auth.IdentityFile = expandVars(c.Auth.IdentityFile)
	c.Crypto.KeyFile = expandVars(c.Crypto.KeyFile)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

var (
	retryPolicies = []string{"none", "linear", "exponential"}
	cryptors      = []string{"aes-cbc", "xchacha20-poly1305", "legacy"}
	logFormats    = []string{"auto", "text", "json"}
)

// Validate reports every configuration error, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Keys.SubscribeKey == "" {
		errs = append(errs, errors.New("keys.subscribe_key is required"))
	}
	if c.UserID == "" {
		errs = append(errs, errors.New("user_id is required"))
	} else if strings.TrimSpace(c.UserID) != c.UserID {
		errs = append(errs, errors.New("user_id must not have surrounding whitespace"))
	}
	if c.Origin == "" {
		errs = append(errs, errors.New("origin is required"))
	} else if !strings.HasPrefix(c.Origin, "https://") && !strings.HasPrefix(c.Origin, "http://") {
		errs = append(errs, fmt.Errorf("origin %q must be an http or https URL", c.Origin))
	}

	if _, err := c.Durations(); err != nil {
		errs = append(errs, err)
	}
	if c.Subscribe.DedupeCacheSize < 0 {
		errs = append(errs, errors.New("subscribe.dedupe_cache_size must not be negative"))
	}

	if !slices.Contains(retryPolicies, c.Retry.Policy) {
		errs = append(errs, fmt.Errorf("retry.policy must be one of %v", retryPolicies))
	} else if _, err := c.RetryPolicy(); err != nil {
		errs = append(errs, err)
	}

	if c.Crypto.Enabled() {
		if !slices.Contains(cryptors, c.Crypto.Cryptor) {
			errs = append(errs, fmt.Errorf("crypto.cryptor must be one of %v", cryptors))
		}
		if c.Crypto.Key != "" && c.Crypto.KeyFile != "" {
			errs = append(errs, errors.New("crypto.key and crypto.key_file are mutually exclusive"))
		}
	}

	if c.Auth.Token != "" && c.Auth.TokenFile != "" {
		errs = append(errs, errors.New("auth.token and auth.token_file are mutually exclusive"))
	}
	if c.Auth.TokenFile != "" && c.Auth.IdentityFile == "" {
		errs = append(errs, errors.New("auth.identity_file is required with auth.token_file"))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of %v", logFormats))
	}

	return errors.Join(errs...)
}

// Durations parses the subscribe timing settings.
func (c *Config) Durations() (Durations, error) {
	var (
		durations Durations
		errs      []error
	)
	parse := func(field, value string, target *time.Duration, allowZero bool) {
		parsed, err := time.ParseDuration(value)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("subscribe.%s: %w", field, err))
		case parsed < 0 || (parsed == 0 && !allowZero):
			errs = append(errs, fmt.Errorf("subscribe.%s must be positive, got %s", field, value))
		default:
			*target = parsed
		}
	}
	parse("presence_timeout", c.Subscribe.PresenceTimeout, &durations.PresenceTimeout, false)
	parse("heartbeat_interval", c.Subscribe.HeartbeatInterval, &durations.HeartbeatInterval, true)
	parse("request_timeout", c.Subscribe.RequestTimeout, &durations.RequestTimeout, false)
	parse("long_poll_timeout", c.Subscribe.LongPollTimeout, &durations.LongPollTimeout, false)
	if len(errs) > 0 {
		return Durations{}, errors.Join(errs...)
	}
	if durations.HeartbeatInterval >= durations.PresenceTimeout {
		return Durations{}, fmt.Errorf("subscribe.heartbeat_interval %v must be shorter than presence_timeout %v",
			durations.HeartbeatInterval, durations.PresenceTimeout)
	}
	return durations, nil
}

// RetryPolicy builds the retry.Policy the retry section describes.
func (c *Config) RetryPolicy() (retry.Policy, error) {
	var policy retry.Policy
	switch c.Retry.Policy {
	case "none":
		return retry.Policy{Kind: retry.None}, nil
	case "linear":
		policy.Kind = retry.Linear
	case "exponential":
		policy.Kind = retry.Exponential
	default:
		return retry.Policy{}, fmt.Errorf("retry.policy: unknown policy %q", c.Retry.Policy)
	}

	var errs []error
	parse := func(field, value string) time.Duration {
		if value == "" {
			return 0
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("retry.%s: %w", field, err))
		}
		return parsed
	}
	policy.MaxRetries = c.Retry.MaxRetries
	policy.Jitter = parse("jitter", c.Retry.Jitter)
	if policy.Kind == retry.Linear {
		policy.Delay = parse("delay", c.Retry.Delay)
	} else {
		policy.BaseDelay = parse("base_delay", c.Retry.BaseDelay)
		policy.MaxDelay = parse("max_delay", c.Retry.MaxDelay)
	}
	for _, name := range c.Retry.Excluded {
		endpoint, ok := retry.ParseEndpoint(name)
		if !ok {
			errs = append(errs, fmt.Errorf("retry.excluded: unknown endpoint group %q", name))
			continue
		}
		policy.Excluded = append(policy.Excluded, endpoint)
	}
	if len(errs) > 0 {
		return retry.Policy{}, errors.Join(errs...)
	}
	if err := policy.Validate(); err != nil {
		return retry.Policy{}, err
	}
	return policy, nil
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
