package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// FailureDelay pads failed logins to a common minimum duration so unknown
// emails, locked accounts and wrong passwords are indistinguishable by timing
type FailureDelay struct {
	Base   time.Duration
	Jitter time.Duration
}

// cryptoRandDuration returns a secure random duration in [0, max)
func cryptoRandDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return time.Duration(binary.BigEndian.Uint64(b[:]) % uint64(max))
}

// WaitFrom sleeps until at least Base plus a random jitter has passed since
// start. It returns early when ctx ends.
func (d FailureDelay) WaitFrom(ctx context.Context, start time.Time) {
	target := d.Base + cryptoRandDuration(d.Jitter)
	remaining := target - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
