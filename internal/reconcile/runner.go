package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/changeset"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/document"
	"github.com/starford/raido/internal/mapper"
	"github.com/starford/raido/internal/render"
	"github.com/starford/raido/internal/state"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/store"
)

// Runner executes a full sync pass: resolve the change set, map each
// document, reconcile it, and perform identifier write-back and state
// bookkeeping on success.
type Runner struct {
	corpus      storage.Provider
	states      state.Store
	resolver    *changeset.Resolver
	mapper      *mapper.Mapper
	engine      *Engine
	logger      *slog.Logger
	concurrency int
	idKey       string
	dryRun      bool
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Corpus      storage.Provider
	States      state.Store
	Mapper      *mapper.Mapper
	Engine      *Engine
	Logger      *slog.Logger
	Concurrency int    // bounded parallelism; 1 is the safe default
	IDKey       string // frontmatter key for identifier write-back
	DryRun      bool   // suppress write-back and bookkeeping
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Runner{
		corpus:      cfg.Corpus,
		states:      cfg.States,
		resolver:    changeset.New(cfg.Corpus, cfg.States),
		mapper:      cfg.Mapper,
		engine:      cfg.Engine,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
		idKey:       cfg.IDKey,
		dryRun:      cfg.DryRun,
	}
}

// Run performs one sync pass. The returned error is non-nil only for
// run-fatal conditions: the corpus could not be enumerated, or the store
// rejected the credentials (which would fail every remaining document
// identically). Per-document failures land in the Summary instead.
func (r *Runner) Run(ctx context.Context, mode changeset.Mode, opts changeset.Options) (*Summary, error) {
	set, err := r.resolver.Resolve(mode, opts)
	if err != nil {
		return nil, err
	}

	for _, gone := range set.Removed {
		if r.dryRun {
			continue
		}
		if err := r.states.Forget(gone); err != nil {
			r.logger.Warn("run: forget removed document failed",
				slog.String("locator", gone), slog.String("error", err.Error()))
		} else {
			r.logger.Info("run: dropped state for removed document", slog.String("locator", gone))
		}
	}

	r.logger.Info("run: change set resolved",
		slog.String("mode", mode.String()),
		slog.Int("documents", len(set.Locators)),
		slog.Int("removed", len(set.Removed)))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	summary := &Summary{}
	var fatal error

	g, gCtx := errgroup.WithContext(runCtx)
	g.SetLimit(r.concurrency)

	for _, locator := range set.Locators {
		g.Go(func() error {
			// Cancellation is honored between documents: anything not
			// yet attempted reports as skipped, not failed.
			if gCtx.Err() != nil {
				mu.Lock()
				summary.add(Outcome{Locator: locator, Operation: OpSkipped, Reason: "not attempted"})
				mu.Unlock()
				return nil
			}

			out := r.processDocument(gCtx, locator)

			mu.Lock()
			summary.add(out)
			if out.Err != nil && isAuthError(out.Err) && fatal == nil {
				fatal = fmt.Errorf("run: store rejected credentials: %w", out.Err)
			}
			mu.Unlock()

			if out.Err != nil && isAuthError(out.Err) {
				// A bad credential fails every document identically;
				// stop instead of exhausting the change set.
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Info("run: finished",
		slog.Int("created", summary.Created),
		slog.Int("updated", summary.Updated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failures))

	return summary, fatal
}

// processDocument loads, parses, maps, and reconciles one document, then
// performs write-back and bookkeeping for successful outcomes.
func (r *Runner) processDocument(ctx context.Context, locator string) Outcome {
	raw, err := r.corpus.Read(locator)
	if err != nil {
		return Outcome{Locator: locator, Operation: OpFailed, Err: err}
	}

	doc, err := document.Parse(locator, raw)
	if err != nil {
		return Outcome{Locator: locator, Operation: OpFailed, Err: err}
	}

	rec, err := r.mapper.Map(doc, render.HTML(doc.Body))
	if err != nil {
		return Outcome{Locator: locator, Operation: OpFailed, Err: err}
	}

	// A binding recorded by a prior create is as authoritative as an
	// explicit frontmatter id; it covers the window where write-back has
	// not landed in the source yet.
	if rec.ExternalID == "" {
		bound, bindErr := r.states.Binding(locator)
		if bindErr != nil {
			return Outcome{Locator: locator, Operation: OpFailed, Err: bindErr}
		}
		rec.ExternalID = bound
	}

	out := r.engine.Reconcile(ctx, locator, rec)
	if out.Operation != OpCreated && out.Operation != OpUpdated {
		return out
	}

	cs := checksum.Sum(raw)
	if out.Operation == OpCreated {
		if rewritten, wbErr := document.WriteBackID(raw, r.idKey, out.ExternalID); wbErr != nil {
			r.logger.Warn("run: identifier write-back failed",
				slog.String("locator", locator), slog.String("error", wbErr.Error()))
		} else if writeErr := r.corpus.Write(locator, rewritten); writeErr != nil {
			r.logger.Warn("run: identifier write-back failed",
				slog.String("locator", locator), slog.String("error", writeErr.Error()))
		} else {
			cs = checksum.Sum(rewritten)
		}
	}

	if err := r.states.RecordSync(locator, cs, out.ExternalID, time.Now().UTC()); err != nil {
		r.logger.Warn("run: record sync state failed",
			slog.String("locator", locator), slog.String("error", err.Error()))
	}
	return out
}

func isAuthError(err error) bool {
	var ae *store.APIError
	return errors.As(err, &ae) && ae.Kind == store.KindAuth
}
