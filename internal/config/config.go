package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/iconidentify/vodgrab/internal/domain"
)

// Configuration keys, as spelled in the config file.
const (
	KeyTwitchClientID     = "twitch_client_id"
	KeyTwitchClientSecret = "twitch_client_secret"
	KeyDownloadPath       = "download_path"
)

// DefaultFileName is the config file looked up in the home directory.
const DefaultFileName = ".vodrc"

// EnvPrefix prefixes every environment override (VOD_DOWNLOAD_PATH, ...).
const EnvPrefix = "VOD"

// Config holds all application configuration.
type Config struct {
	TwitchClientID     string `yaml:"twitch_client_id" envconfig:"TWITCH_CLIENT_ID"`
	TwitchClientSecret string `yaml:"twitch_client_secret" envconfig:"TWITCH_CLIENT_SECRET"`
	DownloadPath       string `yaml:"download_path" envconfig:"DOWNLOAD_PATH"`

	Twitch     TwitchConfig     `yaml:"twitch"`
	Streamlink StreamlinkConfig `yaml:"streamlink"`
	Download   DownloadConfig   `yaml:"download"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Log        LogConfig        `yaml:"log"`
}

// TwitchConfig holds Helix API endpoints.
type TwitchConfig struct {
	BaseURL string        `yaml:"base_url" split_words:"true"`
	AuthURL string        `yaml:"auth_url" split_words:"true"`
	Timeout time.Duration `yaml:"timeout" split_words:"true"` // 0 disables
}

// StreamlinkConfig holds the external downloader invocation.
type StreamlinkConfig struct {
	Binary    string   `yaml:"binary" split_words:"true"`
	Quality   string   `yaml:"quality" split_words:"true"`
	ExtraArgs []string `yaml:"extra_args" split_words:"true"`
}

// DownloadConfig controls output file naming.
type DownloadConfig struct {
	DateFormat string `yaml:"date_format" split_words:"true"`
	Extension  string `yaml:"extension" split_words:"true"`
}

// LedgerConfig selects the dedup ledger backend.
type LedgerConfig struct {
	Backend string `yaml:"backend" split_words:"true"` // json or sqlite
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"` // text or json
}

// Default returns a Config with every optional value filled in.
func Default() *Config {
	return &Config{
		Twitch: TwitchConfig{
			BaseURL: "https://api.twitch.tv/helix/",
			AuthURL: "https://id.twitch.tv/oauth2/token",
		},
		Streamlink: StreamlinkConfig{
			Binary:  "streamlink",
			Quality: "best",
		},
		Download: DownloadConfig{
			DateFormat: domain.DefaultDateLayout,
			Extension:  domain.DefaultExtension,
		},
		Ledger: LedgerConfig{
			Backend: "json",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultPath returns ~/.vodrc.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. A missing file is only an
// error when required is true; otherwise the environment alone may supply
// every value.
func Load(configPath string, required bool) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, &domain.ConfigError{Msg: fmt.Sprintf("Could not load configuration file at %s: %v", configPath, err)}
			}
		case errors.Is(err, os.ErrNotExist) && !required:
		default:
			return nil, &domain.ConfigError{Msg: fmt.Sprintf("Could not load configuration file at %s.", configPath)}
		}
	}

	// Override with environment variables
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, &domain.ConfigError{Msg: fmt.Sprintf("process environment: %v", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.TwitchClientID == "" {
		return &domain.ConfigError{Key: KeyTwitchClientID, Msg: "Twitch Client ID not configured"}
	}
	if c.TwitchClientSecret == "" {
		return &domain.ConfigError{Key: KeyTwitchClientSecret, Msg: "Twitch Client Secret not configured"}
	}
	if c.DownloadPath == "" {
		return &domain.ConfigError{Key: KeyDownloadPath, Msg: "Download Path not configured"}
	}
	switch c.Ledger.Backend {
	case "json", "sqlite":
	default:
		return &domain.ConfigError{Key: "ledger.backend", Msg: fmt.Sprintf("unknown ledger backend %q", c.Ledger.Backend)}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return &domain.ConfigError{Key: "log.format", Msg: fmt.Sprintf("unknown log format %q", c.Log.Format)}
	}
	if c.Streamlink.Binary == "" {
		return &domain.ConfigError{Key: "streamlink.binary", Msg: "Streamlink binary not configured"}
	}
	return nil
}

// Get returns one of the three required string settings by key.
func (c *Config) Get(key string) (string, error) {
	var v string
	switch key {
	case KeyTwitchClientID:
		v = c.TwitchClientID
	case KeyTwitchClientSecret:
		v = c.TwitchClientSecret
	case KeyDownloadPath:
		v = c.DownloadPath
	default:
		return "", &domain.ConfigError{Key: key, Msg: "unknown configuration key"}
	}
	if v == "" {
		return "", &domain.ConfigError{Key: key, Msg: "not configured"}
	}
	return v, nil
}
