package autosave

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	persistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheetsync_autosave_persist_total",
		Help: "Persist attempts by outcome",
	}, []string{"result"})

	persistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sheetsync_autosave_persist_duration_seconds",
		Help:    "Time spent in the persistence call",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
	})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sheetsync_autosave_retries_total",
		Help: "Retries scheduled after transient failures",
	})

	dirtyChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheetsync_autosave_dirty_checks_total",
		Help: "MarkDirty evaluations by outcome",
	}, []string{"outcome"})
)

const (
	resultSuccess        = "success"
	resultFailure        = "failure"
	resultSkipped        = "skipped"
	resultSerializeError = "serialize_error"
	resultCoalesced      = "coalesced"

	outcomeChanged   = "changed"
	outcomeUnchanged = "unchanged"
	outcomeThrottled = "throttled"
)
