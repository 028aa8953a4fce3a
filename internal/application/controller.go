package application

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"voicelab/internal/domain"
)

const (
	DefaultAmbientDuration  = 2 * time.Second
	DefaultIdlePause        = 100 * time.Millisecond
	DefaultDispatchInterval = 100 * time.Millisecond
)

type ControllerConfig struct {
	// AmbientDuration is how long the input is sampled for background noise.
	AmbientDuration time.Duration
	// IdlePause is the wait after a listen cycle that produced no text.
	IdlePause time.Duration
	// DispatchInterval paces the members of a composite command.
	DispatchInterval time.Duration
}

func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		AmbientDuration:  DefaultAmbientDuration,
		IdlePause:        DefaultIdlePause,
		DispatchInterval: DefaultDispatchInterval,
	}
}

// Controller runs the listen, match, dispatch loop on a single goroutine.
type Controller struct {
	source     SpeechSource
	matcher    CommandMatcher
	dispatcher Dispatcher
	cfg        ControllerConfig
	logger     *slog.Logger
}

func NewController(
	source SpeechSource,
	matcher CommandMatcher,
	dispatcher Dispatcher,
	cfg ControllerConfig,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		source:     source,
		matcher:    matcher,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run calibrates the source once and then processes utterances until ctx
// is cancelled. Cancellation is observed between cycles, so a cycle that
// has started dispatching always finishes. Run returns nil on a normal
// stop and an error for calibration or input failures.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("calibrating input", "source", c.source.Name(), "duration", c.cfg.AmbientDuration)
	if err := c.source.Calibrate(ctx, c.cfg.AmbientDuration); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("calibrating %s: %w", c.source.Name(), err)
	}

	c.logger.Info("ready, speak a command")

	for {
		if ctx.Err() != nil {
			c.logger.Info("shutting down")
			return nil
		}

		if err := c.processOneUtterance(ctx); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("shutting down")
				return nil
			}
			return err
		}
	}
}

func (c *Controller) processOneUtterance(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in control loop", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("control loop panic: %v", r)
		}
	}()

	outcome, err := c.source.ListenOnce(ctx)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", c.source.Name(), err)
	}

	switch outcome.Kind {
	case domain.OutcomeServiceError:
		c.logger.Error("speech recognition service error", "detail", outcome.Detail)
		c.idle(ctx)
		return nil
	case domain.OutcomeUnintelligible:
		c.logger.Debug("couldn't understand that")
		c.idle(ctx)
		return nil
	}

	if outcome.Text == "" {
		c.idle(ctx)
		return nil
	}

	c.logger.Info("heard", "text", outcome.Text)

	endpoint, ok := c.matcher.Match(outcome.Text)
	if !ok {
		c.logger.Debug("no command matched", "text", outcome.Text)
		return nil
	}

	// Dispatch is never cut short by a stop request.
	c.execute(context.WithoutCancel(ctx), endpoint)
	return nil
}

func (c *Controller) execute(ctx context.Context, endpoint domain.Endpoint) {
	if !endpoint.IsComposite() {
		c.dispatcher.Dispatch(ctx, endpoint)
		return
	}

	if endpoint.State() == domain.StateOn {
		c.logger.Info("activating all devices")
	} else {
		c.logger.Info("deactivating all devices")
	}

	members := domain.Expand(endpoint)
	succeeded := 0
	for i, member := range members {
		if i > 0 && c.cfg.DispatchInterval > 0 {
			time.Sleep(c.cfg.DispatchInterval)
		}
		if c.dispatcher.Dispatch(ctx, member) {
			succeeded++
		}
	}

	if succeeded < len(members) {
		c.logger.Warn("composite command partially applied",
			"endpoint", endpoint,
			"succeeded", succeeded,
			"total", len(members),
		)
	}
}

func (c *Controller) idle(ctx context.Context) {
	if c.cfg.IdlePause <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.cfg.IdlePause):
	}
}
