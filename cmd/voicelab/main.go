package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"voicelab/config"
	"voicelab/internal/application"
	"voicelab/internal/infra"
	"voicelab/internal/infra/audio"
	"voicelab/internal/infra/esp32"
	"voicelab/internal/infra/google"
	"voicelab/internal/infra/openai"
	"voicelab/internal/matcher"
)

// Bad flags exit 2 like any getopt-style CLI; a run error also exits 2.
const (
	exitOK     = 0
	exitConfig = 1
	exitUsage  = 2
	exitRun    = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

type options struct {
	configPath string
	ip         string
	ambient    float64
	verbose    bool
}

func parseFlags(args []string, stderr io.Writer) (options, *pflag.FlagSet, error) {
	var opts options

	fs := pflag.NewFlagSet("voicelab", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to config file")
	fs.StringVar(&opts.ip, "ip", esp32.DefaultHost, "address of the device controller")
	fs.Float64Var(&opts.ambient, "ambient", application.DefaultAmbientDuration.Seconds(), "seconds of ambient noise calibration")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	return opts, fs, nil
}

// loadConfig reads the config file when one is given and lets explicitly
// set flags override it.
func loadConfig(opts options, fs *pflag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if fs.Changed("ip") || opts.configPath == "" {
		cfg.Device.Host = opts.ip
	}
	if fs.Changed("ambient") || opts.configPath == "" {
		if opts.ambient < 0 {
			return nil, fmt.Errorf("--ambient must not be negative, got %g", opts.ambient)
		}
		cfg.Audio.AmbientDuration = time.Duration(opts.ambient * float64(time.Second))
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(args []string, stderr io.Writer) int {
	opts, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := loadConfig(opts, fs)
	if err != nil {
		slog.Error("loading config", "error", err)
		return exitConfig
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go stopOnSignal(sigCh, cancel, logger)

	source, err := createSpeechSource(ctx, cfg, logger)
	if err != nil {
		logger.Error("creating speech source", "error", err)
		return exitConfig
	}
	defer func() {
		if err := source.Close(); err != nil {
			logger.Warn("closing speech source", "error", err)
		}
	}()

	dispatcher := esp32.NewClientWithConfig(esp32.Config{
		Host:    cfg.Device.Host,
		Timeout: cfg.Device.Timeout,
		Retry: infra.RetryConfig{
			MaxAttempts:  cfg.Device.Retries + 1,
			InitialDelay: cfg.Device.Backoff,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
	}, logger)

	controller := application.NewController(
		source,
		matcher.New(),
		dispatcher,
		application.ControllerConfig{
			AmbientDuration:  cfg.Audio.AmbientDuration,
			IdlePause:        cfg.Controller.IdlePause,
			DispatchInterval: cfg.Controller.DispatchInterval,
		},
		logger,
	)

	logger.Info("starting voice lab controller",
		"device", cfg.Device.Host,
		"audio_source", cfg.Audio.Source,
		"recognizer", cfg.Recognizer.Backend,
	)

	if err := controller.Run(ctx); err != nil {
		logger.Error("unexpected error", "error", err)
		return exitRun
	}
	return exitOK
}

// stopOnSignal cancels the run on the first signal and hands later signals
// back to the runtime, so a second Ctrl-C kills a run stuck in dispatch.
func stopOnSignal(sigCh chan os.Signal, cancel context.CancelFunc, logger *slog.Logger) {
	sig := <-sigCh
	signal.Stop(sigCh)
	logger.Info("stop requested, finishing current command", "signal", sig)
	cancel()
}

type speechSource interface {
	application.SpeechSource
	io.Closer
}

func createSpeechSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (speechSource, error) {
	transcriber, err := createTranscriber(ctx, cfg.Recognizer)
	if err != nil {
		return nil, err
	}

	capture := audio.DefaultCaptureConfig()
	capture.SampleRate = cfg.Audio.SampleRate
	capture.ListenTimeout = cfg.Audio.ListenTimeout
	capture.PauseThreshold = cfg.Audio.PauseThreshold
	capture.PhraseLimit = cfg.Audio.PhraseLimit
	capture.EnergyRatio = cfg.Audio.EnergyRatio
	capture.MinEnergy = cfg.Audio.MinEnergy

	switch cfg.Audio.Source {
	case config.SourceHTTP:
		return audio.NewHTTPSource(cfg.Audio.HTTPAddr, cfg.Audio.AuthToken, transcriber, logger), nil
	case config.SourceWavDir:
		return audio.NewListener(audio.NewWavDirSource(afero.NewOsFs(), cfg.Audio.WavDir, logger), transcriber, logger), nil
	default:
		return audio.NewListener(audio.NewMicrophoneSource(capture, logger), transcriber, logger), nil
	}
}

func createTranscriber(ctx context.Context, cfg config.RecognizerConfig) (audio.Transcriber, error) {
	switch cfg.Backend {
	case config.BackendWhisper:
		return openai.NewWhisperClient(cfg.OpenAIAPIKey, cfg.Language), nil
	case config.BackendNone:
		return nil, nil
	default:
		recognizer, err := google.NewRecognizer(ctx, cfg.Language, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return recognizer, nil
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
