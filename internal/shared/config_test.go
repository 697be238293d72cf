package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "ytsm.db" {
			t.Errorf("expected database path ytsm.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8964 {
			t.Errorf("expected server port 8964, got %d", config.Server.Port)
		}

		if config.Downloads.Order != "playlist" {
			t.Errorf("expected download order playlist, got %s", config.Downloads.Order)
		}

		if config.Downloader.Path != "yt-dlp" {
			t.Errorf("expected downloader path yt-dlp, got %s", config.Downloader.Path)
		}

		if config.Queue.Workers != 4 {
			t.Errorf("expected 4 queue workers, got %d", config.Queue.Workers)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Downloads.SubscriptionLimit != 5 {
			t.Errorf("expected subscription limit 5, got %d", config.Downloads.SubscriptionLimit)
		}
	})

	t.Run("CreateConfigFile refuses to overwrite", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}
		if err := CreateConfigFile(configPath); err == nil {
			t.Error("expected an error when the config file already exists")
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("expected an error for a missing config file")
		}
	})

	t.Run("LoadConfig overrides", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		content := `
[database]
path = "/tmp/test.db"

[downloads]
global_limit = 100
delete_watched = true
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Database.Path != "/tmp/test.db" {
			t.Errorf("expected overridden database path, got %s", config.Database.Path)
		}
		if config.Downloads.GlobalLimit != 100 {
			t.Errorf("expected global limit 100, got %d", config.Downloads.GlobalLimit)
		}
		if !config.Downloads.DeleteWatched {
			t.Error("expected delete_watched to be true")
		}
	})
}
