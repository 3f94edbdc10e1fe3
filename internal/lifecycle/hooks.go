package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/sheetsync/internal/logging"
	"github.com/five82/sheetsync/internal/state"
)

// DefaultShutdownDeadline bounds the blocking flush on teardown.
const DefaultShutdownDeadline = 3 * time.Second

// Host reports environment events. Registration order is preserved.
type Host interface {
	// OnVisibilityHidden registers fn to run when the editor loses the
	// user's attention (terminal focus lost, hangup).
	OnVisibilityHidden(fn func())

	// OnBeforeUnload registers fn to run when the user asks to leave.
	// Returning true asks the host to confirm first.
	OnBeforeUnload(fn func() bool)
}

// Saver is the slice of the autosave coordinator the hooks need.
type Saver interface {
	Flush(ctx context.Context) error
	State() state.Snapshot
	Close()
}

// Options configure Hooks.
type Options struct {
	ShutdownDeadline time.Duration
	Logger           *logrus.Entry
}

// Hooks connect a Saver to a Host.
type Hooks struct {
	saver    Saver
	deadline time.Duration
	log      *logrus.Entry

	wg sync.WaitGroup

	mu       sync.Mutex
	shutdown bool
}

// New returns Hooks for saver.
func New(saver Saver, opts Options) *Hooks {
	deadline := opts.ShutdownDeadline
	if deadline <= 0 {
		deadline = DefaultShutdownDeadline
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger("lifecycle")
	}
	return &Hooks{saver: saver, deadline: deadline, log: logger}
}

// Install registers the hooks on host.
func (h *Hooks) Install(host Host) {
	host.OnVisibilityHidden(h.VisibilityHidden)
	host.OnBeforeUnload(h.BeforeUnload)
}

// VisibilityHidden starts a best-effort flush in the background when there
// is unsaved work or the last save failed. It never blocks.
func (h *Hooks) VisibilityHidden() {
	snap := h.saver.State()
	if !snap.ShouldFlushOnHide() {
		return
	}

	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()

	h.log.WithField("status", snap.Status.String()).Debug("editor hidden; flushing")
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.deadline)
		defer cancel()
		if err := h.saver.Flush(ctx); err != nil {
			h.log.WithError(err).Warn("flush on hide failed")
		}
	}()
}

// BeforeUnload reports whether leaving now must be confirmed: a change is
// waiting for its debounce or a save is still in flight.
func (h *Hooks) BeforeUnload() bool {
	return h.saver.State().ShouldWarnOnLeave()
}

// Shutdown flushes outstanding work, bounded by the shutdown deadline and
// ctx, then closes the saver. It returns the flush error, if any; the saver
// is closed either way.
func (h *Hooks) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		return nil
	}
	h.shutdown = true
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, h.deadline)
	defer cancel()

	var err error
	if h.saver.State().HasUnsavedWork() {
		err = h.saver.Flush(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			h.log.WithField("deadline", h.deadline.String()).Warn("shutdown flush timed out; unsaved changes may be lost")
		} else if err != nil {
			h.log.WithError(err).Warn("shutdown flush failed")
		}
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	h.saver.Close()
	return err
}
