package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoggingSettings mirrors the "logging{…}" sub-object spec.md §6 names in
// settings.json.
type LoggingSettings struct {
	Level       string `json:"level"`
	FileEnabled bool   `json:"file_enabled"`
}

// Settings is the JSON document persisted at <settings_dir>/settings.json,
// spec.md §6: "JSON with keys {provider, rate_limit_rpm, workers, mode,
// fuzzy_enabled, checkpoint_interval, logging{…}}".
type Settings struct {
	Provider           string          `json:"provider"`
	RateLimitRPM       int             `json:"rate_limit_rpm"`
	Workers            int             `json:"workers"`
	Mode               string          `json:"mode"`
	FuzzyEnabled       bool            `json:"fuzzy_enabled"`
	CheckpointInterval int             `json:"checkpoint_interval"`
	Logging            LoggingSettings `json:"logging"`
}

// DefaultSettings mirrors the defaults Load() binds into viper.
func DefaultSettings() Settings {
	return Settings{
		Provider:           "offline_then_online",
		RateLimitRPM:       20,
		Workers:            10,
		Mode:               "normal",
		FuzzyEnabled:       false,
		CheckpointInterval: 50,
		Logging:            LoggingSettings{Level: "info", FileEnabled: false},
	}
}

// LoadSettings reads settings.json from path, returning DefaultSettings
// when the file doesn't exist yet.
func LoadSettings(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return Settings{}, fmt.Errorf("config: reading settings file %s: %w", path, err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(b, &settings); err != nil {
		return Settings{}, fmt.Errorf("config: parsing settings file %s: %w", path, err)
	}
	return settings, nil
}

// SaveSettings writes settings to path atomically (write to a sibling temp
// file, then rename), matching the teacher's lexgen write-then-rename
// pattern used elsewhere in this repo for crash-safe persistence.
func SaveSettings(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating settings directory: %w", err)
	}

	b, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshaling settings: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("config: writing temp settings file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("config: renaming settings file into place: %w", err)
	}
	return nil
}
