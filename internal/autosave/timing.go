package autosave

import "time"

const (
	defaultDebounce           = 1500 * time.Millisecond
	defaultSavedBadge         = 2500 * time.Millisecond
	defaultDirtyCheckThrottle = 300 * time.Millisecond
	defaultMaxRetries         = 3
	defaultRetryBase          = time.Second
	defaultMaxRetryDelay      = 30 * time.Second
	defaultPersistTimeout     = 15 * time.Second
)

// Timing holds the coordinator's tunable delays. Zero fields take defaults.
type Timing struct {
	// Debounce is the quiet period after the last mutation before an
	// automatic save fires.
	Debounce time.Duration

	// SavedBadge is how long the "saved" status is shown before reverting
	// to idle.
	SavedBadge time.Duration

	// DirtyCheckThrottle bounds how often MarkDirty serializes the document.
	DirtyCheckThrottle time.Duration

	// MaxRetries is the number of failed attempts in one episode before the
	// coordinator gives up and reports an error.
	MaxRetries int

	// RetryBase is the first retry delay; it doubles on each further failure.
	RetryBase     time.Duration
	MaxRetryDelay time.Duration

	// PersistTimeout bounds a single network write.
	PersistTimeout time.Duration
}

// DefaultTiming returns the stock timings.
func DefaultTiming() Timing {
	return Timing{
		Debounce:           defaultDebounce,
		SavedBadge:         defaultSavedBadge,
		DirtyCheckThrottle: defaultDirtyCheckThrottle,
		MaxRetries:         defaultMaxRetries,
		RetryBase:          defaultRetryBase,
		MaxRetryDelay:      defaultMaxRetryDelay,
		PersistTimeout:     defaultPersistTimeout,
	}
}

func (t Timing) withDefaults() Timing {
	d := DefaultTiming()
	if t.Debounce <= 0 {
		t.Debounce = d.Debounce
	}
	if t.SavedBadge <= 0 {
		t.SavedBadge = d.SavedBadge
	}
	if t.DirtyCheckThrottle <= 0 {
		t.DirtyCheckThrottle = d.DirtyCheckThrottle
	}
	if t.MaxRetries <= 0 {
		t.MaxRetries = d.MaxRetries
	}
	if t.RetryBase <= 0 {
		t.RetryBase = d.RetryBase
	}
	if t.MaxRetryDelay <= 0 {
		t.MaxRetryDelay = d.MaxRetryDelay
	}
	if t.PersistTimeout <= 0 {
		t.PersistTimeout = d.PersistTimeout
	}
	return t
}

// retryDelay returns the backoff before retry number attempt (1-based):
// base, 2*base, 4*base, ... capped at max.
func retryDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		return base
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if max > 0 && delay >= max {
			return max
		}
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}
