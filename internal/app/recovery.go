package app

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/sheetsync/internal/state"
)

const (
	defaultRecoveryInterval = 2 * time.Second
	maxBackoff              = 30 * time.Second
)

// healthChecker reports whether the API is reachable.
type healthChecker interface {
	Health(ctx context.Context) error
}

// recoverable is the slice of the autosave coordinator recovery needs.
type recoverable interface {
	State() state.Snapshot
	SaveNow(ctx context.Context) error
}

// StartRecovery launches a background goroutine that watches for a save
// that gave up on a transient error. Once the API answers a health check
// again it starts one fresh save episode. If that episode fails too, it waits
// for the user to edit or save before trying again. It returns immediately.
func StartRecovery(ctx context.Context, saver recoverable, checker healthChecker, interval time.Duration, log *logrus.Entry) {
	if interval <= 0 {
		interval = defaultRecoveryInterval
	}
	r := &recovery{saver: saver, checker: checker, log: log}
	go func() {
		failures := 0
		for {
			attempted, healthy := r.once(ctx)
			switch {
			case !attempted:
				failures = 0
			case healthy:
				failures = 0
			default:
				failures++
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(calculateBackoff(failures, interval)):
			}
		}
	}()
}

// recovery remembers which save episode it already spent a retry on.
type recovery struct {
	saver   recoverable
	checker healthChecker
	log     *logrus.Entry

	spent   bool
	episode uint64
}

// once checks API health when the last save failed for a reason worth retrying
// and no recovery has been tried for this failure yet. attempted reports
// whether a check was made.
func (r *recovery) once(ctx context.Context) (attempted, healthy bool) {
	snap := r.saver.State()
	if snap.Status != state.StatusError || isPermanent(snap.LastError) {
		return false, false
	}
	if r.spent && snap.Episode == r.episode {
		return false, false
	}

	if err := r.checker.Health(ctx); err != nil {
		r.log.WithError(err).Debug("API still unreachable")
		return true, false
	}

	r.log.Info("API reachable again, retrying save")
	if err := r.saver.SaveNow(ctx); err != nil {
		r.log.WithError(err).Warn("recovery save failed")
	}
	r.spent = true
	r.episode = r.saver.State().Episode
	return true, true
}

func isPermanent(err error) bool {
	var p interface{ Permanent() bool }
	return errors.As(err, &p) && p.Permanent()
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	if failures > 16 {
		return maxBackoff
	}
	d := base << failures
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
