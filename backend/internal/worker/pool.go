// Package worker runs conversion requests on a fixed set of goroutines fed
// by a bounded queue.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/itchan-dev/mediable/backend/internal/service"
	"github.com/itchan-dev/mediable/shared/domain"
	"github.com/itchan-dev/mediable/shared/logger"
)

var (
	ErrQueueFull  = errors.New("conversion queue is full")
	ErrPoolClosed = errors.New("conversion pool is shut down")
)

var _ service.ConversionSubmitter = (*Pool)(nil)

// Executor performs one conversion request.
type Executor interface {
	Execute(ctx context.Context, req domain.ConversionRequest) error
}

type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration
}

type Pool struct {
	cfg  Config
	exec Executor
	jobs chan domain.ConversionRequest
	log  *slog.Logger

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
	jobCtx  context.Context
	cancel  context.CancelFunc
}

func New(exec Executor, cfg Config) *Pool {
	cfg.Workers = max(cfg.Workers, 1)
	cfg.QueueSize = max(cfg.QueueSize, 1)
	cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
	return &Pool{
		cfg:  cfg,
		exec: exec,
		jobs: make(chan domain.ConversionRequest, cfg.QueueSize),
		log:  logger.Component("conversion_pool"),
	}
}

// Start launches the workers. Jobs run with a context derived from ctx.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	p.jobCtx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work(i)
	}
	p.log.Info("started", "workers", p.cfg.Workers, "queue_size", p.cfg.QueueSize, "max_attempts", p.cfg.MaxAttempts)
}

// Status is a snapshot of the queue for readiness checks.
type Status struct {
	Depth    int  `json:"depth"`
	Capacity int  `json:"capacity"`
	Closed   bool `json:"closed"`
}

// Saturated reports a queue that would reject the next Submit.
func (s Status) Saturated() bool {
	return s.Depth >= s.Capacity
}

func (p *Pool) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Status{Depth: len(p.jobs), Capacity: cap(p.jobs), Closed: p.closed}
}

// Submit enqueues req without waiting. ctx only bounds the hand-off; the job
// itself outlives the caller's request.
func (p *Pool) Submit(ctx context.Context, req domain.ConversionRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		jobsTotal.WithLabelValues(statusRejected).Inc()
		return ErrPoolClosed
	}

	select {
	case p.jobs <- req:
		queueDepth.Set(float64(len(p.jobs)))
		return nil
	default:
		jobsTotal.WithLabelValues(statusRejected).Inc()
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish. When
// ctx expires first, running jobs are cancelled and ctx.Err() is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	started := p.started
	p.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.log.Info("drained")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		p.log.Warn("shutdown deadline exceeded, pending jobs cancelled")
		return ctx.Err()
	}
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for req := range p.jobs {
		queueDepth.Set(float64(len(p.jobs)))
		if p.jobCtx.Err() != nil {
			p.log.Warn("dropping job", "worker", id, "request_id", req.Id, "media_id", req.Media.Id)
			jobsTotal.WithLabelValues(statusFailed).Inc()
			continue
		}
		p.process(id, req)
	}
}

func (p *Pool) process(workerId int, req domain.ConversionRequest) {
	log := p.log.With("worker", workerId, "request_id", req.Id, "media_id", req.Media.Id)

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		start := time.Now()
		err := p.exec.Execute(p.jobCtx, req)
		jobDuration.Observe(time.Since(start).Seconds())

		if err == nil {
			jobsTotal.WithLabelValues(statusSucceeded).Inc()
			log.Debug("conversion finished", "attempt", attempt, "conversions", req.Conversions)
			return
		}
		if errors.Is(err, domain.ErrUnconvertible) {
			jobsTotal.WithLabelValues(statusFailed).Inc()
			log.Error("conversion failed permanently", "attempt", attempt, "error", err)
			return
		}
		if attempt == p.cfg.MaxAttempts || p.jobCtx.Err() != nil {
			jobsTotal.WithLabelValues(statusFailed).Inc()
			log.Error("conversion failed", "attempt", attempt, "error", err)
			return
		}

		jobsTotal.WithLabelValues(statusRetried).Inc()
		log.Warn("conversion attempt failed, retrying", "attempt", attempt, "retry_in", p.cfg.RetryDelay, "error", err)
		select {
		case <-time.After(p.cfg.RetryDelay):
		case <-p.jobCtx.Done():
			jobsTotal.WithLabelValues(statusFailed).Inc()
			return
		}
	}
}
