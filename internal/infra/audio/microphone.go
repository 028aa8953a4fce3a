//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"voicelab/internal/domain"
)

type MicrophoneSource struct {
	cfg    CaptureConfig
	logger *slog.Logger

	mu        sync.Mutex
	stream    *portaudio.Stream
	buffer    []int16
	threshold float64
}

func NewMicrophoneSource(cfg CaptureConfig, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		cfg:       cfg,
		logger:    logger,
		buffer:    make([]int16, cfg.FramesPerBuffer),
		threshold: cfg.MinEnergy,
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) open() error {
	if m.stream != nil {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.cfg.SampleRate), len(m.buffer), m.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting stream: %w", err)
	}

	m.stream = stream
	m.logger.Info("microphone started", "sample_rate", m.cfg.SampleRate)
	return nil
}

// read fills m.buffer with the next frame and returns a copy of it.
func (m *MicrophoneSource) read() ([]int16, error) {
	if err := m.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}
	frame := make([]int16, len(m.buffer))
	copy(frame, m.buffer)
	return frame, nil
}

func (m *MicrophoneSource) Calibrate(ctx context.Context, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.open(); err != nil {
		return err
	}

	frames := m.cfg.samples(duration) / len(m.buffer)
	if frames < 1 {
		frames = 1
	}

	energies := make([]float64, 0, frames)
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := m.read()
		if err != nil {
			return err
		}
		energies = append(energies, rms(frame))
	}

	m.threshold = ambientThreshold(energies, m.cfg.EnergyRatio, m.cfg.MinEnergy)
	m.logger.Info("microphone calibrated", "energy_threshold", m.threshold)
	return nil
}

func (m *MicrophoneSource) Capture(ctx context.Context) (domain.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.open(); err != nil {
		return domain.Clip{}, err
	}

	seg := newSegmenter(m.cfg, m.threshold)
	for {
		if err := ctx.Err(); err != nil {
			return domain.Clip{}, err
		}

		frame, err := m.read()
		if err != nil {
			return domain.Clip{}, err
		}

		if seg.Feed(frame) {
			return seg.Clip(), nil
		}
	}
}

func (m *MicrophoneSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil
	}
	m.stream.Stop()
	err := m.stream.Close()
	m.stream = nil
	portaudio.Terminate()
	return err
}
