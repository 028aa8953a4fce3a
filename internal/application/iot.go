package application

import (
	"context"

	"voicelab/internal/domain"
)

// Dispatcher sends one concrete endpoint to the board. Failures are
// reported as false, never as a panic or error.
type Dispatcher interface {
	Dispatch(ctx context.Context, endpoint domain.Endpoint) bool
}
