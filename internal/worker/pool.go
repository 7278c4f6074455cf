package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// Pool runs a fixed number of workers, each pulling one job at a time from
// the shared queue. Jobs for different reports run fully in parallel; one
// job's failure never stops the pool.
type Pool struct {
	queue      core.JobQueue
	service    *core.AnalysisService
	logger     *zap.Logger
	metrics    *Metrics
	size       int
	jobTimeout time.Duration
	wg         sync.WaitGroup
	stopCh     chan struct{}
}

// NewPool creates a new worker pool
func NewPool(
	queue core.JobQueue,
	service *core.AnalysisService,
	logger *zap.Logger,
	metrics *Metrics,
	size int,
	jobTimeout time.Duration,
) *Pool {
	if size <= 0 {
		size = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	return &Pool{
		queue:      queue,
		service:    service,
		logger:     logger,
		metrics:    metrics,
		size:       size,
		jobTimeout: jobTimeout,
		stopCh:     make(chan struct{}),
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.logger.Info("Worker pool starting", zap.Int("pool_size", p.size))
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
}

// Stop drains the pool: workers finish their current job and exit
func (p *Pool) Stop() {
	close(p.stopCh)
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	logger := p.logger.With(zap.Int("worker", id))

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		reportID, err := p.queue.Dequeue(context.Background())
		if errors.Is(err, core.ErrNoJob) {
			continue
		}
		if err != nil {
			logger.Error("Failed to dequeue job", zap.Error(err))
			// Back off so a dead broker does not spin the worker
			select {
			case <-time.After(time.Second):
			case <-p.stopCh:
				return
			}
			continue
		}

		p.process(logger, reportID)
	}
}

// process runs one job to its terminal state. Every external call inside the
// pipeline inherits the job timeout so a hung dependency cannot stall the
// worker indefinitely.
func (p *Pool) process(logger *zap.Logger, reportID string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
	defer cancel()

	start := time.Now()
	err := p.service.Process(ctx, reportID)
	elapsed := time.Since(start)

	if p.metrics != nil {
		p.metrics.JobsProcessed.Inc()
		p.metrics.JobDuration.Observe(elapsed.Seconds())
		if err != nil {
			p.metrics.JobsFailed.Inc()
		} else {
			p.metrics.JobsSucceeded.Inc()
		}
	}

	if err != nil {
		// Fatal to the job, not to the worker
		logger.Error("Job failed",
			zap.String("report_id", reportID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return
	}
	logger.Debug("Job finished",
		zap.String("report_id", reportID),
		zap.Duration("elapsed", elapsed))
}
