package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportDual  = "dual"
)

// Defaults for the ticket size limits.
const (
	DefaultMaxDescriptionChars = 2000
	DefaultMaxCommentChars     = 500
	DefaultMaxCommentCount     = 5
	DefaultMaxChangelogItems   = 10
	DefaultPort                = 3000
)

// Config defines server configuration. It is read once at startup and never
// modified afterwards.
type Config struct {
	Jira      JiraConfig      `yaml:"jira"`
	Limits    LimitsConfig    `yaml:"limits"`
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Remote    RemoteConfig    `yaml:"remote"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Warnings lists values that were ignored in favour of a default.
	Warnings []string `yaml:"-"`
}

type JiraConfig struct {
	BaseURL string        `yaml:"base_url"`
	Email   string        `yaml:"email"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type LimitsConfig struct {
	MaxDescriptionChars int  `yaml:"max_description_chars"`
	MaxCommentChars     int  `yaml:"max_comment_chars"`
	MaxCommentCount     int  `yaml:"max_comment_count"`
	MaxChangelogItems   int  `yaml:"max_changelog_items"`
	CompactDefault      bool `yaml:"compact_default"`
}

type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	MaxConcurrent int    `yaml:"max_concurrent_requests"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type RemoteConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type RateLimitConfig struct {
	RedisAddr      string        `yaml:"redis_addr"`
	Requests       int           `yaml:"requests"`
	Window         time.Duration `yaml:"window"`
	TrustedProxies []string      `yaml:"trusted_proxies"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Jira: JiraConfig{Timeout: 30 * time.Second},
		Limits: LimitsConfig{
			MaxDescriptionChars: DefaultMaxDescriptionChars,
			MaxCommentChars:     DefaultMaxCommentChars,
			MaxCommentCount:     DefaultMaxCommentCount,
			MaxChangelogItems:   DefaultMaxChangelogItems,
			CompactDefault:      true,
		},
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          DefaultPort,
			MaxConcurrent: 16,
		},
		Transport: TransportConfig{Mode: TransportStdio},
		Remote:    RemoteConfig{Timeout: 10 * time.Second},
		Log:       LogConfig{Level: "info"},
		RateLimit: RateLimitConfig{Requests: 60, Window: time.Minute},
	}
}

// Overrides are command-line values that take precedence over every other
// source. Zero values leave the loaded value in place.
type Overrides struct {
	Transport string
	Port      int
}

func (o Overrides) apply(cfg *Config) {
	if o.Transport != "" {
		cfg.Transport.Mode = o.Transport
	}
	if o.Port != 0 {
		cfg.Server.Port = o.Port
	}
}

// Load reads the configuration without command-line overrides.
func Load() (Config, error) {
	return LoadWith(Overrides{})
}

// LoadWith reads an optional .env file, an optional YAML file, environment
// variables and then the overrides, in that order of increasing precedence.
// Variables already set in the environment win over the .env file. The result
// is validated only after the overrides are applied.
func LoadWith(overrides Overrides) (Config, error) {
	envFile := os.Getenv("ONCALL_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Default()
	if path := os.Getenv("ONCALL_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	envErr := applyEnv(&cfg)
	cfg.normalize()
	overrides.apply(&cfg)
	// An overriding port replaces an unparsable ONCALL_SERVER_PORT.
	if envErr != nil && overrides.Port == 0 {
		return Config{}, envErr
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidTransport reports whether mode names a transport.
func ValidTransport(mode string) bool {
	switch mode {
	case TransportStdio, TransportHTTP, TransportDual:
		return true
	}
	return false
}

// Validate checks the values that have no safe fallback.
func (c Config) Validate() error {
	if !ValidTransport(c.Transport.Mode) {
		return fmt.Errorf("invalid transport %q: want stdio, http or dual", c.Transport.Mode)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var portErr error
	setString("JIRA_BASE_URL", &cfg.Jira.BaseURL)
	setString("JIRA_EMAIL", &cfg.Jira.Email)
	setString("JIRA_TOKEN", &cfg.Jira.Token)
	cfg.setDuration("JIRA_TIMEOUT", &cfg.Jira.Timeout)

	cfg.setPositive("ONCALL_MAX_DESCRIPTION_CHARS", &cfg.Limits.MaxDescriptionChars, DefaultMaxDescriptionChars)
	cfg.setPositive("ONCALL_MAX_COMMENT_CHARS", &cfg.Limits.MaxCommentChars, DefaultMaxCommentChars)
	cfg.setPositive("ONCALL_MAX_COMMENT_COUNT", &cfg.Limits.MaxCommentCount, DefaultMaxCommentCount)
	cfg.setPositive("ONCALL_MAX_CHANGELOG_ITEMS", &cfg.Limits.MaxChangelogItems, DefaultMaxChangelogItems)
	cfg.setBool("ONCALL_COMPACT_DEFAULT", &cfg.Limits.CompactDefault)

	setString("ONCALL_SERVER_HOST", &cfg.Server.Host)
	if portStr := os.Getenv("ONCALL_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(strings.TrimSpace(portStr))
		if err != nil {
			portErr = fmt.Errorf("invalid ONCALL_SERVER_PORT: %w", err)
		} else {
			cfg.Server.Port = port
		}
	}
	cfg.setPositive("ONCALL_MAX_CONCURRENT_REQUESTS", &cfg.Server.MaxConcurrent, 16)

	if mode := os.Getenv("ONCALL_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = strings.ToLower(strings.TrimSpace(mode))
	}

	setString("ONCALL_REMOTE_ENDPOINT", &cfg.Remote.Endpoint)
	cfg.setDuration("ONCALL_REMOTE_TIMEOUT", &cfg.Remote.Timeout)

	setString("ONCALL_LOG_LEVEL", &cfg.Log.Level)
	setString("ONCALL_LOG_PATH", &cfg.Log.Path)

	setString("ONCALL_REDIS_ADDR", &cfg.RateLimit.RedisAddr)
	cfg.setPositive("ONCALL_RATE_LIMIT_REQUESTS", &cfg.RateLimit.Requests, 60)
	cfg.setDuration("ONCALL_RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)
	setList("ONCALL_TRUSTED_PROXIES", &cfg.RateLimit.TrustedProxies)
	return portErr
}

// normalize replaces non-positive file values with defaults.
func (c *Config) normalize() {
	c.fallback("limits.max_description_chars", &c.Limits.MaxDescriptionChars, DefaultMaxDescriptionChars)
	c.fallback("limits.max_comment_chars", &c.Limits.MaxCommentChars, DefaultMaxCommentChars)
	c.fallback("limits.max_comment_count", &c.Limits.MaxCommentCount, DefaultMaxCommentCount)
	c.fallback("limits.max_changelog_items", &c.Limits.MaxChangelogItems, DefaultMaxChangelogItems)
	c.fallback("server.max_concurrent_requests", &c.Server.MaxConcurrent, 16)
	c.fallback("rate_limit.requests", &c.RateLimit.Requests, 60)
	c.Jira.BaseURL = strings.TrimRight(c.Jira.BaseURL, "/")
	c.Log.Level = strings.ToLower(c.Log.Level)
}

func (c *Config) fallback(name string, target *int, def int) {
	if *target <= 0 {
		c.warn("%s=%d is not positive, using %d", name, *target, def)
		*target = def
	}
}

func (c *Config) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func setString(name string, target *string) {
	if v := os.Getenv(name); v != "" {
		*target = strings.TrimSpace(v)
	}
}

func setList(name string, target *[]string) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*target = out
}

func (c *Config) setPositive(name string, target *int, def int) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		c.warn("%s=%q is not a positive integer, using %d", name, raw, def)
		*target = def
		return
	}
	*target = v
}

func (c *Config) setBool(name string, target *bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		c.warn("%s=%q is not a boolean, using %t", name, raw, *target)
		return
	}
	*target = v
}

func (c *Config) setDuration(name string, target *time.Duration) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		c.warn("%s=%q is not a positive duration, using %s", name, raw, *target)
		return
	}
	*target = v
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
