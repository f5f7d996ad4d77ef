package reliability

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// JobMetrics provides centralized background job metrics tracking.
// This interface allows the job to report to the centralized job metrics
// system.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// DefaultRecomputeInterval is the default interval between recompute cycles.
const DefaultRecomputeInterval = 15 * time.Minute

// DefaultRecomputeTimeout is the default timeout for a single recompute cycle.
const DefaultRecomputeTimeout = 5 * time.Minute

// DefaultBatchSize is the default page size for listing active users.
const DefaultBatchSize = 100

const jobType = "reliability_recompute"

// RecomputeJobConfig configures the reliability recompute job.
type RecomputeJobConfig struct {
	// Interval is the duration between recompute cycles.
	Interval time.Duration
	// Timeout for each recompute cycle.
	Timeout time.Duration
	// BatchSize is the page size used when listing active users.
	BatchSize int
	// Logger for job activity.
	Logger *slog.Logger
	// Metrics for performance tracking.
	Metrics *Metrics
	// JobMetrics for centralized background job tracking.
	JobMetrics JobMetrics
}

// RecomputeJob periodically recomputes reliability scores for active users,
// paging through the user list one batch at a time.
type RecomputeJob struct {
	config     RecomputeJobConfig
	aggregator *Aggregator
	source     DataSource

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRecomputeJob creates a new reliability recompute job.
func NewRecomputeJob(config RecomputeJobConfig, aggregator *Aggregator, source DataSource) *RecomputeJob {
	if config.Interval == 0 {
		config.Interval = DefaultRecomputeInterval
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultRecomputeTimeout
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &RecomputeJob{
		config:     config,
		aggregator: aggregator,
		source:     source,
	}
}

// Start begins the periodic recompute job.
// Returns immediately; the job runs in a background goroutine.
func (j *RecomputeJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.run(ctx)
	return nil
}

// Stop signals the recompute job to stop and waits for it to finish.
func (j *RecomputeJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh := j.stopCh
	doneCh := j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// IsRunning returns whether the job is currently running.
func (j *RecomputeJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// run is the main loop for the recompute job.
func (j *RecomputeJob) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("reliability recompute job stopping due to context cancellation")
			return
		case <-j.stopCh:
			j.config.Logger.Info("reliability recompute job stopping due to stop signal")
			return
		case <-ticker.C:
			j.recomputeActiveUsers(ctx)
		}
	}
}

// recomputeActiveUsers pages through active users and recomputes each one.
func (j *RecomputeJob) recomputeActiveUsers(parentCtx context.Context) {
	ctx, cancel := context.WithTimeout(parentCtx, j.config.Timeout)
	defer cancel()

	startTime := time.Now()
	var processed, failed int

	for offset := 0; ; offset += j.config.BatchSize {
		userIDs, err := j.source.ListActiveUserIDs(ctx, j.config.BatchSize, offset)
		if err != nil {
			j.config.Logger.Error("failed to list active users",
				"offset", offset,
				"error", err)
			if j.config.Metrics != nil {
				j.config.Metrics.IncRecomputeErrors()
			}
			if j.config.JobMetrics != nil {
				j.config.JobMetrics.IncJobErrors(jobType, "list_error")
			}
			failed++
			break
		}
		if len(userIDs) == 0 {
			break
		}

		for _, userID := range userIDs {
			select {
			case <-ctx.Done():
				j.config.Logger.Error("reliability recompute timeout exceeded",
					"processed", processed,
					"timeout", j.config.Timeout)
				if j.config.Metrics != nil {
					j.config.Metrics.IncRecomputeErrors()
				}
				if j.config.JobMetrics != nil {
					j.config.JobMetrics.IncJobErrors(jobType, "timeout")
				}
				j.finishCycle(startTime, processed, failed+1)
				return
			default:
			}

			if _, err := j.aggregator.Recompute(ctx, userID); err != nil {
				j.config.Logger.Error("failed to recompute reliability",
					"user_id", userID,
					"error", err)
				if j.config.Metrics != nil {
					j.config.Metrics.IncRecomputeErrors()
				}
				if j.config.JobMetrics != nil {
					j.config.JobMetrics.IncJobErrors(jobType, "recompute_error")
				}
				failed++
				continue
			}
			processed++
		}

		if len(userIDs) < j.config.BatchSize {
			break
		}
	}

	j.finishCycle(startTime, processed, failed)
}

// finishCycle records metrics and logs the outcome of one recompute cycle.
func (j *RecomputeJob) finishCycle(startTime time.Time, processed, failed int) {
	duration := time.Since(startTime).Seconds()

	status := "success"
	if failed > 0 {
		status = "failure"
	}

	if j.config.Metrics != nil {
		j.config.Metrics.IncRecomputeTotal()
		j.config.Metrics.ObserveRecomputeDuration(duration)
		j.config.Metrics.SetLastRecomputeTimestamp(float64(time.Now().Unix()))
		j.config.Metrics.SetLastRecomputeUserCount(float64(processed))
	}
	if j.config.JobMetrics != nil {
		j.config.JobMetrics.IncJobsTotal(jobType, status)
		j.config.JobMetrics.ObserveJobDuration(jobType, duration)
	}

	j.config.Logger.Info("reliability recompute completed",
		"duration_seconds", duration,
		"users_processed", processed,
		"users_failed", failed)
}

// RecomputeNow immediately runs one recompute cycle without waiting for
// the ticker. This is useful for testing or forcing immediate updates.
func (j *RecomputeJob) RecomputeNow() {
	j.recomputeActiveUsers(context.Background())
}
