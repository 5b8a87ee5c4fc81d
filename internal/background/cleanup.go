package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AttemptPurger deletes login attempts past their retention
type AttemptPurger interface {
	DeleteExpiredAttempts(ctx context.Context) (int64, error)
}

// Task is one periodic sweep. Run reports how many rows it removed.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// ExpiredAttempts sweeps the login attempt history
func ExpiredAttempts(p AttemptPurger) Task {
	return Task{Name: "login_attempts", Run: p.DeleteExpiredAttempts}
}

// CleanupManager runs its tasks once at start and then on every tick
type CleanupManager struct {
	tasks    []Task
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewCleanupManager(logger *slog.Logger, interval time.Duration, tasks ...Task) *CleanupManager {
	return &CleanupManager{
		tasks:    tasks,
		logger:   logger.With(slog.String("component", "cleanup")),
		interval: interval,
		timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start blocks until Stop is called or ctx is done
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("stopped", slog.Any("reason", ctx.Err()))
			return
		}
	}
}

// RunOnce runs every task in order. A failing task does not stop the rest.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	for _, task := range cm.tasks {
		taskCtx, cancel := context.WithTimeout(ctx, cm.timeout)
		removed, err := task.Run(taskCtx)
		cancel()

		switch {
		case err != nil:
			cm.logger.ErrorContext(ctx, "sweep failed", slog.String("task", task.Name), slog.Any("error", err))
		case removed > 0:
			cm.logger.InfoContext(ctx, "sweep removed rows", slog.String("task", task.Name), slog.Int64("rows", removed))
		}
	}
}

// Stop is safe to call more than once
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
