package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voicelab/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	if cfg.Device.Host != "192.168.0.172" {
		t.Errorf("host: got %s", cfg.Device.Host)
	}
	if cfg.Audio.AmbientDuration != 2*time.Second {
		t.Errorf("ambient duration: got %s", cfg.Audio.AmbientDuration)
	}
	if cfg.Device.Retries != 3 || cfg.Device.Timeout != 5*time.Second {
		t.Errorf("retry policy: got %d retries, %s timeout", cfg.Device.Retries, cfg.Device.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("VOICELAB_TOKEN", "s3cret")

	path := writeConfig(t, `
device:
  host: 10.0.0.9:8080
  timeout: 2s
  retries: 5
audio:
  source: http
  auth_token: ${VOICELAB_TOKEN}
recognizer:
  backend: none
controller:
  dispatch_interval: 250ms
log:
  level: debug
  format: json
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Device.Host != "10.0.0.9:8080" {
		t.Errorf("host: got %s", cfg.Device.Host)
	}
	if cfg.Device.Timeout != 2*time.Second || cfg.Device.Retries != 5 {
		t.Errorf("device: got %+v", cfg.Device)
	}
	if cfg.Audio.AuthToken != "s3cret" {
		t.Errorf("auth token: got %q, want env expansion", cfg.Audio.AuthToken)
	}
	if cfg.Controller.DispatchInterval != 250*time.Millisecond {
		t.Errorf("dispatch interval: got %s", cfg.Controller.DispatchInterval)
	}
	if cfg.Controller.IdlePause != 100*time.Millisecond {
		t.Errorf("idle pause default: got %s", cfg.Controller.IdlePause)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format: got %s", cfg.Log.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}

	path := writeConfig(t, "device: [not, a, map]")
	if _, err := config.Load(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"unknown source", func(c *config.Config) { c.Audio.Source = "bluetooth" }, "audio.source"},
		{"unknown backend", func(c *config.Config) { c.Recognizer.Backend = "vosk" }, "recognizer.backend"},
		{"none needs http", func(c *config.Config) { c.Recognizer.Backend = config.BackendNone }, "only valid with the http source"},
		{"whisper needs key", func(c *config.Config) { c.Recognizer.Backend = config.BackendWhisper }, "openai_api_key"},
		{"negative retries", func(c *config.Config) { c.Device.Retries = -1 }, "device.retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error: got %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ExplicitZeroKept(t *testing.T) {
	path := writeConfig(t, `
device:
  retries: 0
  backoff: 0s
audio:
  ambient_duration: 0s
controller:
  idle_pause: 0s
  dispatch_interval: 0s
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Device.Retries != 0 || cfg.Device.Backoff != 0 {
		t.Errorf("device: got %d retries, %s backoff, want zeros", cfg.Device.Retries, cfg.Device.Backoff)
	}
	if cfg.Audio.AmbientDuration != 0 {
		t.Errorf("ambient duration: got %s, want 0", cfg.Audio.AmbientDuration)
	}
	if cfg.Controller.IdlePause != 0 || cfg.Controller.DispatchInterval != 0 {
		t.Errorf("controller: got %+v, want zeros", cfg.Controller)
	}
	if cfg.Device.Timeout != 5*time.Second {
		t.Errorf("timeout: got %s, want default for a missing key", cfg.Device.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_MissingKeysKeepDefaults(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device.Retries != 3 || cfg.Controller.DispatchInterval != 100*time.Millisecond {
		t.Errorf("defaults lost: %d retries, %s interval", cfg.Device.Retries, cfg.Controller.DispatchInterval)
	}
}
