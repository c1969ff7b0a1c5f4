package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Download    DownloadConfig    `toml:"download"`
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify client-credentials settings.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`
	APIURL       string `toml:"api_url"`
}

// YouTubeConfig contains YouTube Music proxy settings.
type YouTubeConfig struct {
	ProxyURL    string `toml:"proxy_url"`
	HeadersPath string `toml:"headers_path"`
}

// DownloadConfig controls the acquisition pipeline.
type DownloadConfig struct {
	Dir         string `toml:"dir"`
	LedgerPath  string `toml:"ledger_path"`
	BitrateKbps int    `toml:"bitrate_kbps"`
	DelayMS     int    `toml:"delay_ms"`
	Retries     int    `toml:"retries"`
	Search      string `toml:"search"`
	Source      string `toml:"source"`
	FFmpegPath  string `toml:"ffmpeg_path"`
	YTDLPPath   string `toml:"ytdlp_path"`
	Tag         bool   `toml:"tag"`
}

// Delay returns the batch-mode pacing delay.
func (d DownloadConfig) Delay() time.Duration {
	return time.Duration(d.DelayMS) * time.Millisecond
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string  `toml:"host"`
	Port          int     `toml:"port"`
	DelayMS       int     `toml:"delay_ms"`
	PersistLedger bool    `toml:"persist_ledger"`
	PublicDir     string  `toml:"public_dir"`
	RateLimit     float64 `toml:"rate_limit"`
	Burst         int     `toml:"burst"`
}

// Delay returns the delivery-mode pacing delay.
func (s ServerConfig) Delay() time.Duration {
	return time.Duration(s.DelayMS) * time.Millisecond
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig contains history database settings.
type DatabaseConfig struct {
	Enabled      bool   `toml:"enabled"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their embedded default values.
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

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] when it does not.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
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

// ApplyEnv overrides credentials and the server port from SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and PORT.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q is not a number", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks the settings the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", ErrMissingCredentials)
	}
	if c.Download.Dir == "" {
		return fmt.Errorf("%w: download.dir is empty", ErrInvalidConfig)
	}
	if c.Download.BitrateKbps <= 0 {
		return fmt.Errorf("%w: download.bitrate_kbps must be positive", ErrInvalidConfig)
	}
	switch c.Download.Search {
	case "ytdlp", "proxy":
	default:
		return fmt.Errorf("%w: unknown download.search %q", ErrInvalidConfig, c.Download.Search)
	}
	switch c.Download.Source {
	case "youtube", "ytdlp":
	default:
		return fmt.Errorf("%w: unknown download.source %q", ErrInvalidConfig, c.Download.Source)
	}
	return nil
}
