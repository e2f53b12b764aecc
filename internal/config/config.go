package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the application-level configuration (the AI provider settings
// are a separate record owned by the settings store).
type Config struct {
	DataDir        string `json:"data_dir"`
	LogLevel       string `json:"log_level"`
	BackupSchedule string `json:"backup_schedule"`
	BackupKeep     int    `json:"backup_keep"`
}

// Load reads the config file, writing defaults on first run. Environment
// variables take highest precedence.
func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:        filepath.Join(os.Getenv("HOME"), ".mindmirror"),
		LogLevel:       "info",
		BackupSchedule: "@hourly",
		BackupKeep:     10,
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	if dir := os.Getenv("MINDMIRROR_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if level := os.Getenv("MINDMIRROR_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename default config: %w", err)
	}
	return nil
}
