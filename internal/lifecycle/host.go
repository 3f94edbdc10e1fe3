package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Callbacks is a reusable Host implementation: hosts embed it and call
// FireHidden and FireBeforeUnload when their environment reports the event.
type Callbacks struct {
	mu     sync.Mutex
	hidden []func()
	unload []func() bool
}

// OnVisibilityHidden implements Host.
func (c *Callbacks) OnVisibilityHidden(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hidden = append(c.hidden, fn)
}

// OnBeforeUnload implements Host.
func (c *Callbacks) OnBeforeUnload(fn func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unload = append(c.unload, fn)
}

// FireHidden runs the hidden callbacks.
func (c *Callbacks) FireHidden() {
	c.mu.Lock()
	fns := append([]func(){}, c.hidden...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// FireBeforeUnload runs every before-unload callback and reports whether any
// of them asked for confirmation.
func (c *Callbacks) FireBeforeUnload() bool {
	c.mu.Lock()
	fns := append([]func() bool{}, c.unload...)
	c.mu.Unlock()

	confirm := false
	for _, fn := range fns {
		if fn() {
			confirm = true
		}
	}
	return confirm
}

// SignalHost treats process signals as visibility events, by default SIGHUP
// (the controlling terminal went away). Termination is handled by the caller
// through Hooks.Shutdown.
type SignalHost struct {
	Callbacks
	signals []os.Signal
}

// NewSignalHost watches sigs, defaulting to SIGHUP.
func NewSignalHost(sigs ...os.Signal) *SignalHost {
	if len(sigs) == 0 {
		sigs = []os.Signal{syscall.SIGHUP}
	}
	return &SignalHost{signals: sigs}
}

// Run fires the hidden callbacks for every watched signal until ctx is done.
func (s *SignalHost) Run(ctx context.Context) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, s.signals...)
	defer signal.Stop(ch)
	s.serve(ctx, ch)
}

func (s *SignalHost) serve(ctx context.Context, ch <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			s.FireHidden()
		}
	}
}
