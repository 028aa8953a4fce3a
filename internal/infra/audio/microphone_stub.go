//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voicelab/internal/domain"
)

var ErrMicrophoneUnavailable = errors.New("microphone source not available: rebuild with -tags portaudio")

// MicrophoneSource stub when portaudio is not available
type MicrophoneSource struct {
	logger *slog.Logger
}

func NewMicrophoneSource(_ CaptureConfig, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{logger: logger}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Calibrate(_ context.Context, _ time.Duration) error {
	return ErrMicrophoneUnavailable
}

func (m *MicrophoneSource) Capture(_ context.Context) (domain.Clip, error) {
	return domain.Clip{}, ErrMicrophoneUnavailable
}

func (m *MicrophoneSource) Close() error {
	return nil
}
