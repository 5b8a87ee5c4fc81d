package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) DeleteExpiredAttempts(ctx context.Context) (int64, error) {
	p.calls.Add(1)
	return 2, p.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitStopped(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}
}

func TestCleanupManager_RunsOnStartAndTick(t *testing.T) {
	purger := &countingPurger{}
	cm := NewCleanupManager(discardLogger(), 10*time.Millisecond, ExpiredAttempts(purger))

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return purger.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cm.Stop()
	cm.Stop()
	waitStopped(t, done)
}

func TestCleanupManager_StopsOnContextCancel(t *testing.T) {
	purger := &countingPurger{err: errors.New("db down")}
	cm := NewCleanupManager(discardLogger(), time.Hour, ExpiredAttempts(purger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cm.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return purger.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	waitStopped(t, done)
}

func TestCleanupManager_RunOnceContinuesPastFailure(t *testing.T) {
	var ran []string
	failing := Task{Name: "first", Run: func(context.Context) (int64, error) {
		ran = append(ran, "first")
		return 0, errors.New("boom")
	}}
	second := Task{Name: "second", Run: func(ctx context.Context) (int64, error) {
		ran = append(ran, "second")
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return 1, nil
	}}

	NewCleanupManager(discardLogger(), time.Hour, failing, second).RunOnce(context.Background())

	assert.Equal(t, []string{"first", "second"}, ran)
}
