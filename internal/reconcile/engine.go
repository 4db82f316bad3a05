package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/raido/internal/mapper"
	"github.com/starford/raido/internal/store"
)

// Engine reconciles one mapped record against the external store.
//
// An unbound record (no external id) is always created; a bound record is
// always updated. There is no lookup-by-derived-key: two documents whose
// slugs collide produce two remote records, never a merge.
type Engine struct {
	store          store.Client
	maxAttempts    int
	initialBackoff time.Duration
	dryRun         bool
	logger         *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRetry sets the bounded-retry policy for transient store errors.
func WithRetry(maxAttempts int, initialBackoff time.Duration) EngineOption {
	return func(e *Engine) {
		e.maxAttempts = maxAttempts
		e.initialBackoff = initialBackoff
	}
}

// WithDryRun makes the engine log intended operations without calling
// the store.
func WithDryRun(on bool) EngineOption {
	return func(e *Engine) { e.dryRun = on }
}

// NewEngine creates an Engine over the given store client.
func NewEngine(client store.Client, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		store:          client,
		maxAttempts:    3,
		initialBackoff: time.Second,
		logger:         logger,
		sleep:          sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile runs one document's state machine and returns its Outcome.
func (e *Engine) Reconcile(ctx context.Context, locator string, rec *mapper.Record) Outcome {
	if rec.SkipSync {
		e.logger.Info("reconcile: skipped", slog.String("locator", locator), slog.String("reason", "sync disabled"))
		return Outcome{Locator: locator, ExternalID: rec.ExternalID, Operation: OpSkipped, Reason: "sync disabled"}
	}

	op := OpCreated
	if rec.ExternalID != "" {
		op = OpUpdated
	}

	if e.dryRun {
		e.logger.Info("reconcile: dry-run",
			slog.String("locator", locator),
			slog.String("would", string(op)),
			slog.String("external_id", rec.ExternalID))
		return Outcome{Locator: locator, ExternalID: rec.ExternalID, Operation: OpSkipped, Reason: "dry-run (would " + opVerb(op) + ")"}
	}

	item, err := e.callWithRetry(ctx, rec)
	if err != nil {
		var ae *store.APIError
		if errors.As(err, &ae) && ae.Kind == store.KindNotFound && rec.ExternalID != "" {
			err = fmt.Errorf("%w: %s: %v", ErrStaleIdentifier, rec.ExternalID, err)
		}
		e.logger.Error("reconcile: failed", slog.String("locator", locator), slog.String("error", err.Error()))
		return Outcome{Locator: locator, ExternalID: rec.ExternalID, Operation: OpFailed, Err: err}
	}

	e.logger.Info("reconcile: "+string(op),
		slog.String("locator", locator),
		slog.String("external_id", item.ID))
	return Outcome{Locator: locator, ExternalID: item.ID, Operation: op}
}

// callWithRetry issues the create or update, retrying transient store
// errors with doubling backoff up to maxAttempts.
func (e *Engine) callWithRetry(ctx context.Context, rec *mapper.Record) (*store.Item, error) {
	backoff := e.initialBackoff
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		var item *store.Item
		var err error
		if rec.ExternalID == "" {
			item, err = e.store.Create(ctx, rec.Payload, rec.DraftState)
		} else {
			item, err = e.store.Update(ctx, rec.ExternalID, rec.Payload, rec.DraftState)
		}
		if err == nil {
			return item, nil
		}
		lastErr = err

		var ae *store.APIError
		if !errors.As(err, &ae) || !ae.Retryable() || attempt == e.maxAttempts {
			return nil, err
		}
		e.logger.Warn("reconcile: transient store error, retrying",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoff))
		if sleepErr := e.sleep(ctx, backoff); sleepErr != nil {
			return nil, sleepErr
		}
		backoff *= 2
	}
	return nil, lastErr
}

func opVerb(op Operation) string {
	if op == OpUpdated {
		return "update"
	}
	return "create"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
