package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Server     ServerConfig     `toml:"server"`
	Downloads  DownloadsConfig  `toml:"downloads"`
	Downloader DownloaderConfig `toml:"downloader"`
	Providers  ProvidersConfig  `toml:"providers"`
	Thumbnails ThumbnailsConfig `toml:"thumbnails"`
	Queue      QueueConfig      `toml:"queue"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DownloadsConfig holds the user-default download preferences. These seed
// the default user's preference row; subscriptions may override them
// individually.
type DownloadsConfig struct {
	Dir                  string `toml:"dir"`
	FilePattern          string `toml:"file_pattern"`
	AutoDownload         bool   `toml:"auto_download"`
	GlobalLimit          int    `toml:"global_limit"`
	SubscriptionLimit    int    `toml:"subscription_limit"`
	Order                string `toml:"order"`
	DeleteWatched        bool   `toml:"delete_watched"`
	MarkDeletedAsWatched bool   `toml:"mark_deleted_as_watched"`
	MaxAttempts          int    `toml:"max_attempts"`
	RefreshStats         bool   `toml:"refresh_stats"`
}

// DownloaderConfig contains settings for the external yt-dlp process.
type DownloaderConfig struct {
	Path           string   `toml:"path"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	Format         string   `toml:"format"`
	ExtraArgs      []string `toml:"extra_args"`
}

// ProvidersConfig contains settings shared by every feed provider.
type ProvidersConfig struct {
	RateLimit           float64 `toml:"rate_limit"`
	FetchTimeoutSeconds int     `toml:"fetch_timeout_seconds"`
}

// ThumbnailsConfig contains settings for the thumbnail cache.
type ThumbnailsConfig struct {
	Dir string `toml:"dir"`
}

// QueueConfig contains settings for the background work queue.
type QueueConfig struct {
	Workers int `toml:"workers"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
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
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrDuplicate)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
