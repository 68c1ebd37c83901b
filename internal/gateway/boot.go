// Package gateway serves a resolved agent over HTTP: one streaming text route,
// an optional realtime voice socket, health and metrics.
package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dotcommander/blgate/internal/errs"
	"github.com/dotcommander/blgate/internal/logging"
	"github.com/dotcommander/blgate/internal/metrics"
)

// State is the startup state of the gateway.
type State int

// Startup states.
const (
	StateInitializing State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "initializing"
	}
}

// BootOptions bound the startup retry loop.
type BootOptions struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	Backoff    time.Duration
	Logger     *zap.SugaredLogger
	// OnState, when set, observes every state transition.
	OnState func(State)
}

// Boot calls resolve until it succeeds or MaxRetries retries have failed,
// waiting Backoff between attempts. An errs.ErrNotFound failure ends the loop
// at once. The last error is returned wrapped so it matches
// errs.ErrInitialization while still unwrapping to the cause.
func Boot[T any](ctx context.Context, resolve func(context.Context) (T, error), opts BootOptions) (T, error) {
	logger := logging.OrNop(opts.Logger)
	setState := func(s State) {
		if opts.OnState != nil {
			opts.OnState(s)
		}
	}

	var zero T
	for retry := 0; ; retry++ {
		setState(StateInitializing)
		v, err := resolve(ctx)
		metrics.RecordStartupAttempt(err)
		if err == nil {
			setState(StateReady)
			return v, nil
		}

		setState(StateFailed)
		if errors.Is(err, errs.ErrNotFound) {
			logger.Errorw("agent not found", "error", err)
			return zero, initializationError(err)
		}
		if retry >= opts.MaxRetries {
			return zero, initializationError(err)
		}
		logger.Errorw("error running agent", "error", err, "retry", retry)
		logger.Infof("retrying agent... retry number: %d", retry+1)

		select {
		case <-ctx.Done():
			return zero, initializationError(err)
		case <-time.After(opts.Backoff):
		}
	}
}

func initializationError(err error) error {
	if errors.Is(err, errs.ErrInitialization) {
		return err
	}
	return errs.Error{Kind: errs.ErrInitialization, Err: err, Reason: "Agent initialization failed."}
}
