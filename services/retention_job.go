package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RetentionSummary reports one sweep.
type RetentionSummary struct {
	Cutoff  time.Time `json:"cutoff"`
	Deleted int64     `json:"deleted"`
	Skipped bool      `json:"skipped"`
}

// RetentionJob deletes notifications older than the retention horizon. With a lock set,
// a sweep only runs on the instance that acquires it.
type RetentionJob struct {
	notifications *NotificationService
	horizon       time.Duration
	interval      time.Duration
	lock          Lock
	logger        *zap.Logger
	now           func() time.Time

	mu   sync.Mutex
	stop context.CancelFunc
	done chan struct{}
}

func NewRetentionJob(notifications *NotificationService, horizon, interval time.Duration, logger *zap.Logger) *RetentionJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if horizon <= 0 {
		horizon = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionJob{
		notifications: notifications,
		horizon:       horizon,
		interval:      interval,
		logger:        logger,
		now:           time.Now,
	}
}

// WithLock makes every sweep acquire l first.
func (j *RetentionJob) WithLock(l Lock) *RetentionJob {
	j.lock = l
	return j
}

// Run performs one sweep.
func (j *RetentionJob) Run(ctx context.Context) (*RetentionSummary, error) {
	summary := &RetentionSummary{Cutoff: j.now().Add(-j.horizon)}

	if j.lock != nil {
		ok, err := j.lock.TryLock(ctx)
		if err != nil {
			return nil, fmt.Errorf("retention sweep lock: %w", err)
		}
		if !ok {
			summary.Skipped = true
			j.logger.Info("notification sweep skipped, another instance holds the lock")
			return summary, nil
		}
		defer func() {
			if err := j.lock.Unlock(context.Background()); err != nil {
				j.logger.Warn("failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	deleted, err := j.notifications.DeleteOlderThan(ctx, summary.Cutoff)
	if err != nil {
		return nil, err
	}
	summary.Deleted = deleted
	retentionDeletedTotal.Add(float64(deleted))

	j.logger.Info("notification sweep finished",
		zap.Time("cutoff", summary.Cutoff),
		zap.Int64("deleted", deleted))
	return summary, nil
}

// Start runs a sweep immediately and then every interval until Stop or ctx ends.
func (j *RetentionJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stop != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	j.stop = cancel
	j.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			if _, err := j.Run(runCtx); err != nil && runCtx.Err() == nil {
				j.logger.Error("notification sweep failed", zap.Error(err))
			}
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}(j.done)
}

// Stop cancels the loop and waits for an in-flight sweep to return.
func (j *RetentionJob) Stop() {
	j.mu.Lock()
	stop, done := j.stop, j.done
	j.stop, j.done = nil, nil
	j.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
}
