package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/metrics"
	"ContentEnricher/internal/ports"
	"ContentEnricher/internal/stage"
)

// EnricherDeps wires all driven adapters into the orchestrator.
type EnricherDeps struct {
	Repository ports.ContentRepository
	Stages     *stage.Registry
	Indexer    ports.SearchIndexer
	Notifier   ports.Notifier
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Outcome describes a finished run.
type Outcome struct {
	ContentID string        `json:"content_id"`
	RunID     string        `json:"run_id,omitempty"`
	Status    domain.Status `json:"status,omitempty"`
	Failed    []stage.Name  `json:"failed_stages,omitempty"`
	Degraded  []stage.Name  `json:"degraded_stages,omitempty"`
	// Skipped is set when nothing ran: record missing, not pending, or superseded.
	Skipped bool `json:"skipped,omitempty"`
}

// Err returns an ErrRequiredStage error naming the failed required stages,
// or nil when the run did not fail.
func (o Outcome) Err() error {
	if len(o.Failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(o.Failed))
	for _, n := range o.Failed {
		names = append(names, string(n))
	}
	return fmt.Errorf("content %s: %w: %s", o.ContentID, domain.ErrRequiredStage, strings.Join(names, ", "))
}

// Enricher drives a content item through its stage plan. It is the only
// component that writes enrichment results to the repository.
type Enricher struct {
	repository ports.ContentRepository
	stages     *stage.Registry
	indexer    ports.SearchIndexer
	notifier   ports.Notifier
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu       sync.Mutex
	inflight map[string]*inflightRun
}

type inflightRun struct {
	runID  string
	cancel context.CancelFunc
}

type stageResult struct {
	patch domain.Patch
	// scope holds the stage's workspace writes; committed only on success.
	scope *stage.Workspace
	err   error
}

// NewEnricher constructs the orchestration component.
func NewEnricher(deps EnricherDeps) *Enricher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	stages := deps.Stages
	if stages == nil {
		stages = stage.NewRegistry()
	}
	return &Enricher{
		repository: deps.Repository,
		stages:     stages,
		indexer:    deps.Indexer,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		logger:     logger,
		inflight:   map[string]*inflightRun{},
	}
}

// Enrich processes a pending record. Stage failures end up in the record's
// status; the returned error is reserved for load/persist failures.
func (e *Enricher) Enrich(ctx context.Context, contentID string) (Outcome, error) {
	item, err := e.repository.Get(ctx, contentID)
	if errors.Is(err, domain.ErrNotFound) {
		e.logger.Info("content not found, skipping", "content_id", contentID)
		return Outcome{ContentID: contentID, Skipped: true}, nil
	}
	if errors.Is(err, domain.ErrUnsupportedType) {
		// Left pending, the record would be resubmitted by every sweep.
		e.logger.Warn("unsupported content type, marking failed", "content_id", contentID, "error", err)
		if serr := e.repository.SetStatus(ctx, contentID, domain.StatusFailed); serr != nil {
			return Outcome{ContentID: contentID}, fmt.Errorf("fail content %s: %w", contentID, serr)
		}
		return Outcome{ContentID: contentID, Status: domain.StatusFailed, Skipped: true}, nil
	}
	if err != nil {
		return Outcome{ContentID: contentID}, fmt.Errorf("load content %s: %w", contentID, err)
	}

	if item.Status != domain.StatusPending {
		e.logger.Debug("content not pending, skipping", "content_id", contentID, "status", item.Status)
		return Outcome{ContentID: contentID, Status: item.Status, Skipped: true}, nil
	}

	return e.run(ctx, item)
}

// Reset moves an item back to pending-analysis. ownerID, when set, must own the item.
func (e *Enricher) Reset(ctx context.Context, contentID, ownerID string) (domain.ContentItem, error) {
	item, err := e.repository.Get(ctx, contentID)
	if err != nil {
		return domain.ContentItem{}, fmt.Errorf("load content %s: %w", contentID, err)
	}
	if ownerID != "" && item.UserID != ownerID {
		return domain.ContentItem{}, fmt.Errorf("content %s: %w", contentID, domain.ErrNotFound)
	}

	next, err := item.Status.Transition(domain.StatusPending)
	if err != nil {
		return domain.ContentItem{}, err
	}
	// A run still in flight must not overwrite the reset record.
	if e.supersede(contentID) {
		e.logger.Info("in-flight enrichment cancelled by reset", "content_id", contentID)
	}
	if err := e.repository.SetStatus(ctx, contentID, next); err != nil {
		return domain.ContentItem{}, fmt.Errorf("reset content %s: %w", contentID, err)
	}

	e.logger.Info("content reset for re-enrichment", "content_id", contentID, "previous_status", item.Status)
	item.Status = next
	return item, nil
}

// Retrigger resets the item and re-runs its whole plan.
func (e *Enricher) Retrigger(ctx context.Context, contentID, ownerID string) (Outcome, error) {
	item, err := e.Reset(ctx, contentID, ownerID)
	if err != nil {
		return Outcome{ContentID: contentID}, err
	}
	return e.run(ctx, item)
}

func (e *Enricher) run(ctx context.Context, item domain.ContentItem) (Outcome, error) {
	runID := uuid.NewString()
	log := e.logger.With("content_id", item.ID, "run_id", runID, "type", item.Type)
	outcome := Outcome{ContentID: item.ID, RunID: runID}

	runCtx, release := e.track(ctx, item.ID, runID)
	defer release()

	plan := PlanFor(item)
	ws := stage.NewWorkspace(item)
	if plan.Empty() {
		log.Info("no stages planned for item type, marking enriched")
	} else {
		log.Info("enrichment started", "stages", plan.Stages())
	}

	var patch domain.Patch
	for _, phase := range plan.Phases {
		results := e.runPhase(runCtx, log, ws, phase)
		for i, step := range phase {
			res := results[i]
			if res.err != nil {
				if step.Required {
					outcome.Failed = append(outcome.Failed, step.Stage)
				} else {
					outcome.Degraded = append(outcome.Degraded, step.Stage)
				}
				continue
			}
			res.scope.Commit()
			patch = patch.Merge(res.patch)
		}
	}

	if runCtx.Err() != nil && ctx.Err() == nil {
		log.Warn("enrichment superseded by a newer run, discarding results")
		outcome.Skipped = true
		return outcome, nil
	}

	outcome.Status = domain.StatusEnriched
	if len(outcome.Failed) > 0 {
		outcome.Status = domain.StatusFailed
	}

	if err := e.repository.SaveEnrichment(ctx, item.ID, patch, outcome.Status); err != nil {
		return outcome, fmt.Errorf("persist content %s: %w", item.ID, err)
	}
	e.metrics.ObserveRun(string(outcome.Status))

	log.Info("enrichment finished",
		"status", outcome.Status,
		"fields_updated", !patch.Empty(),
		"failed", outcome.Failed,
		"degraded", outcome.Degraded,
	)

	final := patch.Apply(item)
	final.Status = outcome.Status
	e.afterPersist(ctx, log, final, outcome)

	return outcome, nil
}

func (e *Enricher) afterPersist(ctx context.Context, log *slog.Logger, item domain.ContentItem, outcome Outcome) {
	if e.indexer != nil {
		if err := e.indexer.Index(ctx, item); err != nil {
			log.Warn("search reindex failed", "error", err)
		}
	}

	if outcome.Status == domain.StatusFailed && e.notifier != nil {
		if err := e.notifier.PublishAlert(ctx, failureAlert(item, outcome)); err != nil {
			log.Warn("failure alert not delivered", "error", err)
		}
	}
}

func failureAlert(item domain.ContentItem, outcome Outcome) string {
	names := make([]string, 0, len(outcome.Failed))
	for _, n := range outcome.Failed {
		names = append(names, string(n))
	}
	return fmt.Sprintf("Enrichment failed for %s (%s)\nStages: %s\nURL: %s",
		item.ID, item.Type, strings.Join(names, ", "), item.URL)
}

// runPhase runs every step of a phase concurrently. Failures never cancel siblings.
func (e *Enricher) runPhase(ctx context.Context, log *slog.Logger, ws *stage.Workspace, phase Phase) []stageResult {
	results := make([]stageResult, len(phase))
	var g errgroup.Group
	for i, step := range phase {
		g.Go(func() error {
			results[i] = e.runStage(ctx, log, ws, step)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// runStage isolates one stage: panics, errors and timeouts become a result error.
// It emits exactly one start and one terminal log event.
func (e *Enricher) runStage(ctx context.Context, log *slog.Logger, ws *stage.Workspace, step Step) stageResult {
	log = log.With("stage", step.Stage)
	log.Info("stage started", "required", step.Required)
	start := time.Now()

	res := e.execute(ctx, ws, step.Stage)
	elapsed := time.Since(start)

	switch {
	case res.err == nil:
		log.Info("stage succeeded", "duration", elapsed)
		e.metrics.ObserveStage(string(step.Stage), metrics.OutcomeSuccess, elapsed)
	case step.Required:
		res.err = fmt.Errorf("%w: %s: %w", domain.ErrRequiredStage, step.Stage, res.err)
		log.Error("stage failed", "error", res.err, "transient", domain.IsTransient(res.err), "duration", elapsed)
		e.metrics.ObserveStage(string(step.Stage), metrics.OutcomeFailed, elapsed)
	default:
		log.Warn("stage degraded", "error", res.err, "transient", domain.IsTransient(res.err), "duration", elapsed)
		e.metrics.ObserveStage(string(step.Stage), metrics.OutcomeDegraded, elapsed)
	}
	return res
}

func (e *Enricher) execute(ctx context.Context, ws *stage.Workspace, name stage.Name) stageResult {
	s, err := e.stages.Resolve(name)
	if err != nil {
		return stageResult{err: err}
	}

	stageCtx := ctx
	if timeout := s.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	scope := ws.Scope()
	done := make(chan stageResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- stageResult{err: fmt.Errorf("stage %s panicked: %v", name, r)}
			}
		}()
		patch, err := s.Run(stageCtx, scope)
		done <- stageResult{patch: patch, scope: scope, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil && stageCtx.Err() != nil {
			res.err = domain.Transient(string(name), stageCtx.Err())
		}
		if res.err != nil {
			res.scope = nil
		}
		return res
	case <-stageCtx.Done():
		return stageResult{err: domain.Transient(string(name), stageCtx.Err())}
	}
}

// track registers the run for contentID and cancels any older in-flight run for it.
func (e *Enricher) track(ctx context.Context, contentID, runID string) (context.Context, func()) {
	runCtx, cancel := context.WithCancel(ctx)

	e.supersede(contentID)
	e.mu.Lock()
	e.inflight[contentID] = &inflightRun{runID: runID, cancel: cancel}
	e.mu.Unlock()

	return runCtx, func() {
		e.mu.Lock()
		if cur, ok := e.inflight[contentID]; ok && cur.runID == runID {
			delete(e.inflight, contentID)
		}
		e.mu.Unlock()
		cancel()
	}
}

// supersede cancels the in-flight run for contentID, if any.
func (e *Enricher) supersede(contentID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev, ok := e.inflight[contentID]
	if !ok {
		return false
	}
	prev.cancel()
	delete(e.inflight, contentID)
	return true
}
