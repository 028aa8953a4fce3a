package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_FlagDefaults(t *testing.T) {
	opts, fs, err := parseFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	cfg, err := loadConfig(opts, fs)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Device.Host != "192.168.0.172" {
		t.Errorf("host: got %s", cfg.Device.Host)
	}
	if cfg.Audio.AmbientDuration != 2*time.Second {
		t.Errorf("ambient: got %s", cfg.Audio.AmbientDuration)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("level: got %s", cfg.Log.Level)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "device:\n  host: 10.1.1.1\naudio:\n  ambient_duration: 3s\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	opts, fs, err := parseFlags([]string{"--config", path, "--ambient", "0.5", "-v"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	cfg, err := loadConfig(opts, fs)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Device.Host != "10.1.1.1" {
		t.Errorf("host: got %s, want value from file", cfg.Device.Host)
	}
	if cfg.Audio.AmbientDuration != 500*time.Millisecond {
		t.Errorf("ambient: got %s, want flag value", cfg.Audio.AmbientDuration)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("level: got %s, want debug", cfg.Log.Level)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	if code := run([]string{"--help"}, io.Discard); code != exitOK {
		t.Errorf("--help: got %d, want %d", code, exitOK)
	}
	if code := run([]string{"--bogus"}, io.Discard); code != exitUsage {
		t.Errorf("unknown flag: got %d, want %d", code, exitUsage)
	}
	if code := run([]string{"--ambient", "soon"}, io.Discard); code != exitUsage {
		t.Errorf("malformed flag value: got %d, want %d", code, exitUsage)
	}
	if code := run([]string{"--ambient", "-1"}, io.Discard); code != exitConfig {
		t.Errorf("negative ambient: got %d, want %d", code, exitConfig)
	}
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	if code := run([]string{"--config", missing}, io.Discard); code != exitConfig {
		t.Errorf("missing config: got %d, want %d", code, exitConfig)
	}
}
