package config

import (
	"path/filepath"
	"testing"
)

func TestLoadSettingsMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if got != DefaultSettings() {
		t.Errorf("LoadSettings(missing) = %+v, want defaults %+v", got, DefaultSettings())
	}
}

func TestSaveLoadSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	want := Settings{
		Provider:           "online_only",
		RateLimitRPM:       60,
		Workers:            4,
		Mode:               "high_accuracy",
		FuzzyEnabled:       true,
		CheckpointInterval: 25,
		Logging:            LoggingSettings{Level: "debug", FileEnabled: true},
	}

	if err := SaveSettings(path, want); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}

	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if got != want {
		t.Errorf("LoadSettings() = %+v, want %+v", got, want)
	}
}
