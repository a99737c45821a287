// Package config loads the Artist Resolution Core's runtime knobs the way
// the teacher's config package does: .env via godotenv, defaults and
// environment overrides via viper, matching spec.md §6 "Environment
// knobs" and "Persistent state layout".
package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Paths resolves the on-disk layout spec.md §6 describes: the offline
// store and mapping-cache files under data_dir, settings.json under
// settings_dir, and rotated logs under log_dir.
type Paths struct {
	DataDir     string
	SettingsDir string
	LogDir      string
}

// OfflineStorePath is <data_dir>/musicbrainz_optimized.duckdb.
func (p Paths) OfflineStorePath() string {
	return filepath.Join(p.DataDir, "musicbrainz_optimized.duckdb")
}

// MappingStorePath is <data_dir>/mappings.db.
func (p Paths) MappingStorePath() string {
	return filepath.Join(p.DataDir, "mappings.db")
}

// SettingsPath is <settings_dir>/settings.json.
func (p Paths) SettingsPath() string {
	return filepath.Join(p.SettingsDir, "settings.json")
}

// Load initializes viper the way the teacher's config.Load does (.env via
// godotenv, SetDefault/AutomaticEnv/SetEnvKeyReplacer, config file
// optional) and returns the resolved Paths. Unlike the teacher, this core
// has no required-variable check: every knob has a usable default.
func Load() Paths {
	if err := godotenv.Load(); err != nil {
		log.Println("amp-resolver: no .env file found or error loading it, using defaults and environment variables")
	}

	home, _ := os.UserHomeDir()
	viper.SetDefault("data_dir", filepath.Join(home, ".amp-resolver", "data"))
	viper.SetDefault("settings_dir", filepath.Join(home, ".amp-resolver"))
	viper.SetDefault("log_dir", filepath.Join(home, ".amp-resolver", "logs"))

	viper.SetDefault("provider", "offline_then_online")
	viper.SetDefault("rate_limit_rpm", 20)
	viper.SetDefault("workers", 10)
	viper.SetDefault("mode", "normal")
	viper.SetDefault("fuzzy_enabled", false)
	viper.SetDefault("checkpoint_interval", 50)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file_enabled", false)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("amp_resolver")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("amp-resolver: error reading config file: %v", err)
		} else {
			log.Println("amp-resolver: no config file found, using defaults and environment variables")
		}
	} else {
		log.Println("amp-resolver: using config file:", viper.ConfigFileUsed())
	}

	return Paths{
		DataDir:     viper.GetString("data_dir"),
		SettingsDir: viper.GetString("settings_dir"),
		LogDir:      viper.GetString("log_dir"),
	}
}
