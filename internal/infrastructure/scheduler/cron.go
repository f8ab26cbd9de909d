package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ContentEnricher/internal/ports"
)

// CronScheduler runs a job on a cron expression in a fixed location.
type CronScheduler struct {
	spec       string
	location   *time.Location
	runOnStart bool

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// Option tweaks a CronScheduler.
type Option func(*CronScheduler)

// WithLocation evaluates the expression in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *CronScheduler) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithRunOnStart fires the job once as soon as Start is called.
func WithRunOnStart() Option {
	return func(c *CronScheduler) { c.runOnStart = true }
}

// NewCronScheduler validates a standard five-field cron expression.
func NewCronScheduler(spec string, opts ...Option) (*CronScheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", spec, err)
	}
	c := &CronScheduler{spec: spec, location: time.UTC}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start registers job and begins the cron loop. A second Start is a no-op.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cr := cron.New(cron.WithLocation(c.location), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := cr.AddFunc(c.spec, func() { job(time.Now().In(c.location)) }); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}
	cr.Start()
	c.cron = cr

	if c.runOnStart {
		go job(time.Now().In(c.location))
	}

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts the cron loop and waits for a running job or ctx, whichever
// comes first.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()

	if cr == nil {
		return nil
	}

	done := cr.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports when the job will next fire after t.
func (c *CronScheduler) Next(t time.Time) time.Time {
	sched, err := cron.ParseStandard(c.spec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(t.In(c.location))
}
