package autosave

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/five82/sheetsync/internal/logging"
	"github.com/five82/sheetsync/internal/state"
)

// Serializer converts the live document into an opaque, comparable payload.
type Serializer interface {
	Serialize() ([]byte, error)
}

// SerializerFunc adapts a plain function to Serializer.
type SerializerFunc func() ([]byte, error)

// Serialize calls f.
func (f SerializerFunc) Serialize() ([]byte, error) { return f() }

// Persister replaces the stored payload of a document. Implementations must
// be idempotent: the same payload may be submitted more than once.
type Persister interface {
	PersistPayload(ctx context.Context, documentID int64, payload []byte) error
}

// Options configure a Coordinator.
type Options struct {
	DocumentID int64 // zero leaves the coordinator unbound
	Serializer Serializer
	Persister  Persister
	Timing     Timing
	Clock      Clock        // nil uses the system clock
	Store      *state.Store // nil allocates a private store
	Logger     *logrus.Entry

	// Context is the parent for timer-driven saves. Cancelling it aborts an
	// in-flight automatic save but does not stop the coordinator.
	Context context.Context
}

// Coordinator decides when the open document is persisted. There is exactly
// one Coordinator per open document and it owns that document's save state.
type Coordinator struct {
	mu sync.Mutex

	docID      int64
	serializer Serializer
	persister  Persister
	timing     Timing
	clock      Clock
	store      *state.Store
	log        *logrus.Entry
	ctx        context.Context

	status            state.Status
	errorMessage      string
	lastErr           error
	failureCount      int
	retryCount        int
	episode           uint64 // bumped whenever the retry budget is refilled
	serializeFailures int
	lastSavedAt       time.Time

	lastSavedPayload []byte
	hasBaseline      bool

	inFlight           bool
	settled            chan struct{} // closed when the in-flight persist resolves
	pendingWhileSaving bool
	dirtiedInFlight    bool

	// saveTimer carries both the debounce and the retry backoff: scheduling
	// one always cancels the other.
	saveTimer  Timer
	saveGen    uint64
	badgeTimer Timer
	badgeGen   uint64

	throttleTimer Timer
	throttleGen   uint64
	throttled     bool
	checkDeferred bool
	deferredAt    time.Time // latest MarkDirty swallowed by the throttle

	closed bool
}

// New builds a Coordinator in the idle state.
func New(opts Options) (*Coordinator, error) {
	if opts.Serializer == nil {
		return nil, fmt.Errorf("autosave requires a serializer")
	}
	if opts.Persister == nil {
		return nil, fmt.Errorf("autosave requires a persister")
	}

	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	store := opts.Store
	if store == nil {
		store = &state.Store{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger("autosave")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	c := &Coordinator{
		docID:      opts.DocumentID,
		serializer: opts.Serializer,
		persister:  opts.Persister,
		timing:     opts.Timing.withDefaults(),
		clock:      clock,
		store:      store,
		log:        logger.WithField("document_id", opts.DocumentID),
		ctx:        ctx,
		status:     state.StatusIdle,
	}
	c.publishLocked()
	return c, nil
}

// SetInitialSnapshot seeds the baseline payload from the current document
// without a network call. Call it once, right after the document is loaded
// and before any change signal is trusted.
func (c *Coordinator) SetInitialSnapshot() {
	payload, err := c.serializer.Serialize()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.log.WithError(err).Warn("initial snapshot failed; first change check will report dirty")
		c.lastSavedPayload = nil
		c.hasBaseline = false
		return
	}
	c.lastSavedPayload = payload
	c.hasBaseline = true
}

// MarkDirty signals that the document may have changed. It never blocks on
// the network and never fails.
func (c *Coordinator) MarkDirty() {
	c.markDirty(0)
}

// markDirty runs a throttled change check. lag is how long ago the signal
// being checked was raised; the debounce is measured from that moment.
func (c *Coordinator) markDirty(lag time.Duration) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.throttled {
		// Coalesce into one trailing check when the window closes.
		c.checkDeferred = true
		c.deferredAt = c.clock.Now()
		c.mu.Unlock()
		dirtyChecksTotal.WithLabelValues(outcomeThrottled).Inc()
		return
	}
	c.throttled = true
	c.throttleGen++
	gen := c.throttleGen
	c.throttleTimer = c.clock.AfterFunc(c.timing.DirtyCheckThrottle, func() { c.throttleElapsed(gen) })
	c.mu.Unlock()

	c.checkDirty(lag)
}

func (c *Coordinator) checkDirty(lag time.Duration) {
	payload, err := c.serializer.Serialize()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if err == nil && c.matchesBaselineLocked(payload) {
		dirtyChecksTotal.WithLabelValues(outcomeUnchanged).Inc()
		return
	}
	if err != nil {
		c.log.WithError(err).Debug("dirty check could not serialize; treating as changed")
	}
	dirtyChecksTotal.WithLabelValues(outcomeChanged).Inc()

	if c.status == state.StatusError {
		c.retryCount = 0
		c.failureCount = 0
		c.episode++
	}
	c.errorMessage = ""
	c.lastErr = nil
	c.status = state.StatusUnsaved

	if c.inFlight {
		c.pendingWhileSaving = true
		c.dirtiedInFlight = true
	} else {
		c.scheduleLocked(max(c.timing.Debounce-lag, 0))
	}
	c.publishLocked()
}

func (c *Coordinator) throttleElapsed(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.throttleGen {
		c.mu.Unlock()
		return
	}
	c.throttled = false
	c.throttleTimer = nil
	deferred := c.checkDeferred
	lag := c.clock.Now().Sub(c.deferredAt)
	c.checkDeferred = false
	c.mu.Unlock()

	if deferred {
		c.markDirty(lag)
	}
}

// SaveNow cancels any pending debounce or retry and persists immediately.
// From the error state it starts a fresh retry episode. It returns nil when
// the document was saved or was already up to date.
func (c *Coordinator) SaveNow(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.stopSaveTimerLocked()
	if c.status == state.StatusError {
		c.retryCount = 0
		c.episode++
	}
	c.mu.Unlock()

	return c.persist(ctx)
}

// Flush waits for an in-flight save to resolve and then saves whatever is
// still outstanding. It is the blocking counterpart of SaveNow used during
// teardown; ctx bounds the whole operation.
func (c *Coordinator) Flush(ctx context.Context) error {
	for {
		if err := c.waitSettled(ctx); err != nil {
			return err
		}
		err := c.SaveNow(ctx)
		if !errors.Is(err, ErrSaveInProgress) {
			return err
		}
	}
}

func (c *Coordinator) waitSettled(ctx context.Context) error {
	for {
		c.mu.Lock()
		if !c.inFlight {
			c.mu.Unlock()
			return nil
		}
		ch := c.settled
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// persist is the single chokepoint for network writes.
func (c *Coordinator) persist(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.inFlight {
		c.pendingWhileSaving = true
		c.mu.Unlock()
		persistTotal.WithLabelValues(resultCoalesced).Inc()
		return ErrSaveInProgress
	}
	if c.docID <= 0 {
		c.mu.Unlock()
		return ErrNoDocument
	}
	// Claim the slot before serializing so a concurrent trigger defers.
	c.inFlight = true
	c.settled = make(chan struct{})
	timeout := c.timing.PersistTimeout
	c.mu.Unlock()

	payload, err := c.serializer.Serialize()

	c.mu.Lock()
	if err != nil {
		c.serializeFailures++
		c.settleLocked()
		c.drainPendingLocked()
		c.publishLocked()
		c.mu.Unlock()

		persistTotal.WithLabelValues(resultSerializeError).Inc()
		c.log.WithError(err).Warn("serialize failed; save skipped without retry")
		return fmt.Errorf("%w: %w", ErrSerialize, err)
	}

	if c.matchesBaselineLocked(payload) {
		dirtied := c.dirtiedInFlight
		c.settleLocked()
		c.retryCount = 0
		c.failureCount = 0
		c.episode++
		c.errorMessage = ""
		c.lastErr = nil
		if dirtied {
			c.status = state.StatusUnsaved
		} else {
			c.status = state.StatusIdle
		}
		c.drainPendingLocked()
		c.publishLocked()
		c.mu.Unlock()

		persistTotal.WithLabelValues(resultSkipped).Inc()
		c.log.Debug("payload unchanged; save skipped")
		return nil
	}

	c.status = state.StatusSaving
	c.errorMessage = ""
	c.publishLocked()
	c.mu.Unlock()

	log := c.log.WithFields(logrus.Fields{
		"attempt_id": uuid.NewString(),
		"bytes":      len(payload),
	})
	log.Debug("persisting document")

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	start := c.clock.Now()
	err = c.persister.PersistPayload(callCtx, c.docID, payload)
	cancel()
	persistDuration.Observe(c.clock.Now().Sub(start).Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.succeededLocked(payload, log)
		return nil
	}
	return c.failedLocked(err, log)
}

func (c *Coordinator) succeededLocked(payload []byte, log *logrus.Entry) {
	dirtied := c.dirtiedInFlight
	c.settleLocked()

	c.retryCount = 0
	c.failureCount = 0
	c.episode++
	c.lastSavedPayload = payload
	c.hasBaseline = true
	c.lastSavedAt = c.clock.Now()
	c.errorMessage = ""
	c.lastErr = nil

	if dirtied {
		// A newer edit superseded this save; the follow-up below covers it.
		c.status = state.StatusUnsaved
	} else {
		c.status = state.StatusSaved
		c.armBadgeLocked()
	}
	persistTotal.WithLabelValues(resultSuccess).Inc()
	log.Info("document saved")

	c.drainPendingLocked()
	c.publishLocked()
}

// failedLocked records a failed attempt and either schedules the next retry
// or gives up. It returns the error persist reports to its caller.
func (c *Coordinator) failedLocked(err error, log *logrus.Entry) error {
	c.settleLocked()

	c.retryCount++
	c.failureCount++
	c.lastErr = err
	// The next attempt serializes afresh, so queued mutations ride along.
	c.pendingWhileSaving = false
	persistTotal.WithLabelValues(resultFailure).Inc()

	if !isPermanent(err) && c.retryCount < c.timing.MaxRetries && !c.closed {
		delay := retryDelay(c.retryCount, c.timing.RetryBase, c.timing.MaxRetryDelay)
		c.status = state.StatusSaving
		c.scheduleLocked(delay)
		retriesTotal.Inc()
		log.WithError(err).WithFields(logrus.Fields{
			"retry": c.retryCount,
			"delay": delay.String(),
		}).Warn("save failed; retry scheduled")
		c.publishLocked()
		return err
	}

	c.stopSaveTimerLocked()
	c.status = state.StatusError
	c.errorMessage = humanMessage(err)
	log.WithError(err).WithField("failures", c.failureCount).Error("save failed; giving up until next change")
	c.publishLocked()
	if isPermanent(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
}

// settleLocked clears the in-flight claim and wakes Flush waiters.
func (c *Coordinator) settleLocked() {
	c.inFlight = false
	c.dirtiedInFlight = false
	if c.settled != nil {
		close(c.settled)
		c.settled = nil
	}
}

// drainPendingLocked services a request that arrived while the slot was
// claimed by scheduling one debounced follow-up.
func (c *Coordinator) drainPendingLocked() {
	if !c.pendingWhileSaving {
		return
	}
	c.pendingWhileSaving = false
	c.scheduleLocked(c.timing.Debounce)
}

func (c *Coordinator) matchesBaselineLocked(payload []byte) bool {
	return c.hasBaseline && bytes.Equal(payload, c.lastSavedPayload)
}

func (c *Coordinator) scheduleLocked(d time.Duration) {
	if c.closed {
		return
	}
	c.stopSaveTimerLocked()
	c.saveGen++
	gen := c.saveGen
	c.saveTimer = c.clock.AfterFunc(d, func() { c.saveTimerFired(gen) })
}

func (c *Coordinator) stopSaveTimerLocked() {
	if c.saveTimer != nil {
		c.saveTimer.Stop()
		c.saveTimer = nil
	}
	// Invalidate a callback that already fired and is waiting on the lock.
	c.saveGen++
}

func (c *Coordinator) saveTimerFired(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.saveGen {
		c.mu.Unlock()
		return
	}
	c.saveTimer = nil
	ctx := c.ctx
	c.mu.Unlock()

	_ = c.persist(ctx)
}

func (c *Coordinator) armBadgeLocked() {
	if c.closed {
		return
	}
	if c.badgeTimer != nil {
		c.badgeTimer.Stop()
	}
	c.badgeGen++
	gen := c.badgeGen
	c.badgeTimer = c.clock.AfterFunc(c.timing.SavedBadge, func() { c.badgeElapsed(gen) })
}

func (c *Coordinator) badgeElapsed(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.badgeGen {
		return
	}
	c.badgeTimer = nil
	// Only revert if nothing else moved the state machine meanwhile.
	if c.status != state.StatusSaved {
		return
	}
	c.status = state.StatusIdle
	c.publishLocked()
}

// SetTiming replaces the timings used for timers scheduled from now on.
func (c *Coordinator) SetTiming(t Timing) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timing = t.withDefaults()
	c.log.WithFields(logrus.Fields{
		"debounce":    c.timing.Debounce.String(),
		"max_retries": c.timing.MaxRetries,
	}).Info("autosave timing updated")
}

// Timing returns the effective timings.
func (c *Coordinator) Timing() Timing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timing
}

// Close stops all timers. An in-flight save still resolves but schedules
// nothing further.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.stopSaveTimerLocked()
	if c.badgeTimer != nil {
		c.badgeTimer.Stop()
		c.badgeTimer = nil
	}
	if c.throttleTimer != nil {
		c.throttleTimer.Stop()
		c.throttleTimer = nil
	}
	c.throttled = false
	c.checkDeferred = false
}

// State returns the current observable save state.
func (c *Coordinator) State() state.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Status returns the current save status.
func (c *Coordinator) Status() state.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Store returns the store the coordinator publishes into.
func (c *Coordinator) Store() *state.Store {
	return c.store
}

func (c *Coordinator) snapshotLocked() state.Snapshot {
	return state.Snapshot{
		DocumentID:        c.docID,
		Status:            c.status,
		ErrorMessage:      c.errorMessage,
		FailureCount:      c.failureCount,
		Episode:           c.episode,
		SerializeFailures: c.serializeFailures,
		LastSavedAt:       c.lastSavedAt,
		LastError:         c.lastErr,
	}
}

func (c *Coordinator) publishLocked() {
	c.store.Publish(c.snapshotLocked())
}
