package application

import (
	"context"
	"time"

	"voicelab/internal/domain"
)

// SpeechSource yields one recognized utterance per call.
type SpeechSource interface {
	// Calibrate adjusts the input's noise threshold. An error is fatal.
	Calibrate(ctx context.Context, duration time.Duration) error
	// ListenOnce blocks until one utterance has been captured and
	// recognized. Recognition misses are reported through the Outcome;
	// a non-nil error means the input itself failed.
	ListenOnce(ctx context.Context) (domain.Outcome, error)
	Name() string
}
