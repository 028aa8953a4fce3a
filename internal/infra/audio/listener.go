package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"voicelab/internal/domain"
)

// Capturer produces raw utterances from some audio input.
type Capturer interface {
	Calibrate(ctx context.Context, duration time.Duration) error
	// Capture returns the next utterance. An empty clip means nothing was said.
	Capture(ctx context.Context) (domain.Clip, error)
	Name() string
}

// Transcriber turns a clip into text. An empty string means the audio
// could not be understood; an error means the backend failed.
type Transcriber interface {
	Transcribe(ctx context.Context, clip domain.Clip) (string, error)
}

// Listener pairs a Capturer with a Transcriber.
type Listener struct {
	capturer    Capturer
	transcriber Transcriber
	logger      *slog.Logger
}

func NewListener(capturer Capturer, transcriber Transcriber, logger *slog.Logger) *Listener {
	return &Listener{
		capturer:    capturer,
		transcriber: transcriber,
		logger:      logger,
	}
}

func (l *Listener) Name() string {
	return l.capturer.Name()
}

func (l *Listener) Calibrate(ctx context.Context, duration time.Duration) error {
	return l.capturer.Calibrate(ctx, duration)
}

func (l *Listener) ListenOnce(ctx context.Context) (domain.Outcome, error) {
	clip, err := l.capturer.Capture(ctx)
	if err != nil {
		return domain.Outcome{}, err
	}
	if clip.Empty() {
		return domain.Unintelligible(), nil
	}

	l.logger.Debug("captured utterance", "samples", len(clip.Samples), "sample_rate", clip.SampleRate)

	return transcribe(ctx, l.transcriber, clip)
}

func (l *Listener) Close() error {
	var errs []error
	if c, ok := l.capturer.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := l.transcriber.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// transcribe runs detached from ctx: once speech is captured a stop request
// waits for the text instead of dropping what was said.
func transcribe(ctx context.Context, t Transcriber, clip domain.Clip) (domain.Outcome, error) {
	text, err := t.Transcribe(context.WithoutCancel(ctx), clip)
	if err != nil {
		return domain.ServiceError(err), nil
	}
	return textOutcome(text), nil
}

func textOutcome(text string) domain.Outcome {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return domain.Unintelligible()
	}
	return domain.Heard(text)
}
