package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device     DeviceConfig     `yaml:"device"`
	Audio      AudioConfig      `yaml:"audio"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Controller ControllerConfig `yaml:"controller"`
	Log        LogConfig        `yaml:"log"`
}

type DeviceConfig struct {
	Host    string        `yaml:"host"`
	Timeout time.Duration `yaml:"timeout"`
	// Retries counts attempts after the first one.
	Retries int           `yaml:"retries"`
	Backoff time.Duration `yaml:"backoff"`
}

type AudioConfig struct {
	Source          string        `yaml:"source"`
	SampleRate      int           `yaml:"sample_rate"`
	AmbientDuration time.Duration `yaml:"ambient_duration"`
	ListenTimeout   time.Duration `yaml:"listen_timeout"`
	PauseThreshold  time.Duration `yaml:"pause_threshold"`
	PhraseLimit     time.Duration `yaml:"phrase_limit"`
	EnergyRatio     float64       `yaml:"energy_ratio"`
	MinEnergy       float64       `yaml:"min_energy"`
	WavDir          string        `yaml:"wav_dir"`
	HTTPAddr        string        `yaml:"http_addr"`
	AuthToken       string        `yaml:"auth_token"`
}

type RecognizerConfig struct {
	Backend         string `yaml:"backend"`
	Language        string `yaml:"language"`
	CredentialsFile string `yaml:"credentials_file"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
}

type ControllerConfig struct {
	IdlePause        time.Duration `yaml:"idle_pause"`
	DispatchInterval time.Duration `yaml:"dispatch_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	SourceMicrophone = "microphone"
	SourceWavDir     = "wav_dir"
	SourceHTTP       = "http"

	BackendGoogle  = "google"
	BackendWhisper = "whisper"
	BackendNone    = "none"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := Config{
		Device: DeviceConfig{
			Retries: 3,
			Backoff: 300 * time.Millisecond,
		},
		Audio: AudioConfig{
			AmbientDuration: 2 * time.Second,
		},
		Controller: ControllerConfig{
			IdlePause:        100 * time.Millisecond,
			DispatchInterval: 100 * time.Millisecond,
		},
	}
	cfg.setDefaults()
	return &cfg
}

// Load decodes path over Default, so keys missing from the file keep their
// default and keys set to zero stay zero where zero is meaningful.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return cfg, nil
}

// setDefaults fills values for which zero or empty is never usable.
func (c *Config) setDefaults() {
	if c.Device.Host == "" {
		c.Device.Host = "192.168.0.172"
	}
	if c.Device.Timeout == 0 {
		c.Device.Timeout = 5 * time.Second
	}
	if c.Audio.Source == "" {
		c.Audio.Source = SourceMicrophone
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.ListenTimeout == 0 {
		c.Audio.ListenTimeout = 5 * time.Second
	}
	if c.Audio.PauseThreshold == 0 {
		c.Audio.PauseThreshold = 800 * time.Millisecond
	}
	if c.Audio.PhraseLimit == 0 {
		c.Audio.PhraseLimit = 10 * time.Second
	}
	if c.Audio.EnergyRatio == 0 {
		c.Audio.EnergyRatio = 1.5
	}
	if c.Audio.MinEnergy == 0 {
		c.Audio.MinEnergy = 300
	}
	if c.Audio.WavDir == "" {
		c.Audio.WavDir = "./recordings"
	}
	if c.Audio.HTTPAddr == "" {
		c.Audio.HTTPAddr = ":8080"
	}
	if c.Recognizer.Backend == "" {
		c.Recognizer.Backend = BackendGoogle
	}
	if c.Recognizer.Language == "" {
		c.Recognizer.Language = "en-US"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Audio.Source {
	case SourceMicrophone, SourceWavDir, SourceHTTP:
	default:
		errs = append(errs, fmt.Errorf("audio.source: unknown source %q", c.Audio.Source))
	}

	switch c.Recognizer.Backend {
	case BackendGoogle, BackendWhisper, BackendNone:
	default:
		errs = append(errs, fmt.Errorf("recognizer.backend: unknown backend %q", c.Recognizer.Backend))
	}

	if c.Recognizer.Backend == BackendNone && c.Audio.Source != SourceHTTP {
		errs = append(errs, errors.New("recognizer.backend: none is only valid with the http source"))
	}
	if c.Recognizer.Backend == BackendWhisper && c.Recognizer.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("recognizer.openai_api_key: required for the whisper backend"))
	}

	if c.Device.Retries < 0 {
		errs = append(errs, errors.New("device.retries: must not be negative"))
	}
	if c.Device.Backoff < 0 {
		errs = append(errs, errors.New("device.backoff: must not be negative"))
	}
	if c.Controller.IdlePause < 0 || c.Controller.DispatchInterval < 0 {
		errs = append(errs, errors.New("controller: pauses must not be negative"))
	}
	if c.Device.Timeout < 0 {
		errs = append(errs, errors.New("device.timeout: must not be negative"))
	}
	if c.Audio.AmbientDuration < 0 {
		errs = append(errs, errors.New("audio.ambient_duration: must not be negative"))
	}
	if c.Audio.SampleRate < 8000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate: %d is too low", c.Audio.SampleRate))
	}

	return errors.Join(errs...)
}
