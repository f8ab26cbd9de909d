package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ContentEnricher/internal/metrics"
	"ContentEnricher/internal/ports"
)

const (
	defaultDequeueWait = 5 * time.Second
	dequeueErrorPause  = time.Second
)

// Dispatcher decides whether a trigger is queued or runs inline.
type Dispatcher struct {
	enricher *Enricher
	queue    ports.EnrichmentQueue
	metrics  *metrics.Metrics
}

// NewDispatcher builds a dispatcher. A nil queue makes every trigger synchronous.
func NewDispatcher(enricher *Enricher, queue ports.EnrichmentQueue, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{enricher: enricher, queue: queue, metrics: m}
}

// Submit schedules enrichment of a pending item. It returns queued=true when
// the id was handed to the queue instead of being processed inline.
func (d *Dispatcher) Submit(ctx context.Context, contentID string, sync bool) (Outcome, bool, error) {
	if d.queue == nil || sync {
		out, err := d.enricher.Enrich(ctx, contentID)
		return out, false, err
	}
	if err := d.queue.Enqueue(ctx, contentID); err != nil {
		return Outcome{ContentID: contentID}, false, fmt.Errorf("enqueue %s: %w", contentID, err)
	}
	d.metrics.Enqueued()
	return Outcome{ContentID: contentID}, true, nil
}

// Retrigger resets the item to pending, then submits it.
func (d *Dispatcher) Retrigger(ctx context.Context, contentID, ownerID string, sync bool) (Outcome, bool, error) {
	if _, err := d.enricher.Reset(ctx, contentID, ownerID); err != nil {
		return Outcome{ContentID: contentID}, false, err
	}
	return d.Submit(ctx, contentID, sync)
}

// Worker drains the queue with a fixed number of goroutines.
type Worker struct {
	queue    ports.EnrichmentQueue
	enricher *Enricher
	workers  int
	wait     time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewWorker wires the queue consumer.
func NewWorker(queue ports.EnrichmentQueue, enricher *Enricher, workers int, m *metrics.Metrics, log *slog.Logger) *Worker {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		queue:    queue,
		enricher: enricher,
		workers:  workers,
		wait:     defaultDequeueWait,
		metrics:  m,
		logger:   log,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w.queue == nil || w.enricher == nil {
		return
	}

	w.logger.Info("queue workers started", "workers", w.workers)
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx, i)
		}()
	}
	wg.Wait()
	w.logger.Info("queue workers stopped")
}

func (w *Worker) loop(ctx context.Context, slot int) {
	for ctx.Err() == nil {
		id, err := w.queue.Dequeue(ctx, w.wait)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			w.logger.Error("dequeue failed", "worker", slot, "error", err)
			sleepCtx(ctx, dequeueErrorPause)
			continue
		}
		if id == "" {
			continue
		}
		w.metrics.Dequeued()

		if _, err := w.enricher.Enrich(ctx, id); err != nil {
			w.logger.Error("enrichment run failed", "worker", slot, "content_id", id, "error", err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
