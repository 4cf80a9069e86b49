package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Exchange    ExchangeConfig    `toml:"exchange"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Player      PlayerConfig      `toml:"player"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// ExchangeConfig points at the remote authorization code exchange service.
type ExchangeConfig struct {
	URL string `toml:"url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// PlayerConfig holds the playback synchronization tunables.
type PlayerConfig struct {
	PollIntervalMS    int     `toml:"poll_interval_ms"`
	ReconcileDelayMS  int     `toml:"reconcile_delay_ms"`
	SearchDebounceMS  int     `toml:"search_debounce_ms"`
	SearchMaxLength   int     `toml:"search_max_length"`
	RecentLimit       int     `toml:"recent_limit"`
	PlaylistLimit     int     `toml:"playlist_limit"`
	SearchLimit       int     `toml:"search_limit"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// LogConfig controls the log level and the rotating log file used by the TUI.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// PollInterval is the playback poll period, defaulting to 3s.
func (p PlayerConfig) PollInterval() time.Duration {
	return msOr(p.PollIntervalMS, 3000)
}

// ReconcileDelay is the delay before the re-poll that follows a successful command.
func (p PlayerConfig) ReconcileDelay() time.Duration {
	return msOr(p.ReconcileDelayMS, 500)
}

// SearchDebounce is the quiet window before a search query is sent.
func (p PlayerConfig) SearchDebounce() time.Duration {
	return msOr(p.SearchDebounceMS, 500)
}

func msOr(ms, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// Addr returns the host:port the callback server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ApplyEnv overrides credentials with environment variables when they are set.
//
// Call after loading a .env file so its values participate.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REDIRECT_URI"); v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
	if v := os.Getenv("AEROX_EXCHANGE_URL"); v != "" {
		c.Exchange.URL = v
	}
}

// Validate reports whether the configuration can authorize against Spotify.
func (c *Config) Validate() error {
	if c.Exchange.URL != "" {
		return nil
	}
	s := c.Credentials.Spotify
	if s.ClientID == "" || s.ClientSecret == "" {
		return fmt.Errorf("%w: client_id and client_secret are required without an exchange url", ErrMissingCredentials)
	}
	if s.RedirectURI == "" {
		return fmt.Errorf("%w: redirect_uri is required", ErrInvalidConfig)
	}
	return nil
}
