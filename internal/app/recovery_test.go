package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/sheetsync/internal/autosave"
	"github.com/five82/sheetsync/internal/gridapi"
	"github.com/five82/sheetsync/internal/state"
	"github.com/five82/sheetsync/internal/testutil"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 100, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

type fakeRecoverable struct {
	snap  state.Snapshot
	saves int
}

func (f *fakeRecoverable) State() state.Snapshot { return f.snap }

func (f *fakeRecoverable) SaveNow(context.Context) error {
	f.saves++
	f.snap.Episode++
	f.snap.Status = state.StatusSaved
	return nil
}

type fakeChecker struct {
	err   error
	calls int
}

func (f *fakeChecker) Health(context.Context) error {
	f.calls++
	return f.err
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestRecoveryOnce(t *testing.T) {
	transient := &gridapi.APIError{StatusCode: 503}
	permanent := &gridapi.APIError{StatusCode: 401}

	tests := []struct {
		name          string
		snap          state.Snapshot
		healthErr     error
		wantAttempted bool
		wantHealthy   bool
		wantSaves     int
	}{
		{"idle is left alone", state.Snapshot{Status: state.StatusIdle}, nil, false, false, 0},
		{"saving is left alone", state.Snapshot{Status: state.StatusSaving}, nil, false, false, 0},
		{"permanent error is left alone", state.Snapshot{Status: state.StatusError, LastError: permanent}, nil, false, false, 0},
		{"still down", state.Snapshot{Status: state.StatusError, LastError: transient}, errors.New("refused"), true, false, 0},
		{"back up", state.Snapshot{Status: state.StatusError, LastError: transient}, nil, true, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saver := &fakeRecoverable{snap: tt.snap}
			checker := &fakeChecker{err: tt.healthErr}
			r := &recovery{saver: saver, checker: checker, log: discardLogger()}

			attempted, healthy := r.once(context.Background())
			if attempted != tt.wantAttempted || healthy != tt.wantHealthy {
				t.Fatalf("once = (%v, %v), want (%v, %v)", attempted, healthy, tt.wantAttempted, tt.wantHealthy)
			}
			if saver.saves != tt.wantSaves {
				t.Fatalf("saves = %d, want %d", saver.saves, tt.wantSaves)
			}
		})
	}
}

// failingAPI rejects every write with a transient error.
type failingAPI struct {
	mu    sync.Mutex
	calls int
}

func (a *failingAPI) PersistPayload(context.Context, int64, []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return &gridapi.APIError{StatusCode: 503, Message: "database is locked"}
}

func (a *failingAPI) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// newFailingCoordinator returns a coordinator whose first save episode has
// already run out of retries.
func newFailingCoordinator(t *testing.T, clock *testutil.ManualClock, api *failingAPI, payload *string) *autosave.Coordinator {
	t.Helper()
	coord, err := autosave.New(autosave.Options{
		DocumentID: 1,
		Serializer: autosave.SerializerFunc(func() ([]byte, error) { return []byte(*payload), nil }),
		Persister:  api,
		Clock:      clock,
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("autosave.New: %v", err)
	}
	t.Cleanup(coord.Close)

	coord.SetInitialSnapshot()
	*payload = "v1"
	coord.MarkDirty()
	clock.Advance(time.Minute)
	if got := coord.State().Status; got != state.StatusError {
		t.Fatalf("status after first episode = %s, want error", got)
	}
	return coord
}

func TestRecoveryRetriesOncePerFailure(t *testing.T) {
	clock := testutil.NewManualClock()
	advance := func() { clock.Advance(time.Minute) }
	api := &failingAPI{}
	payload := "v0"
	coord := newFailingCoordinator(t, clock, api, &payload)
	if got := api.count(); got != 3 {
		t.Fatalf("calls after first episode = %d, want 3", got)
	}

	checker := &fakeChecker{}
	r := &recovery{saver: coord, checker: checker, log: discardLogger()}

	attempted, healthy := r.once(context.Background())
	if !attempted || !healthy {
		t.Fatalf("once = (%v, %v), want (true, true)", attempted, healthy)
	}
	advance()
	if got := api.count(); got != 6 {
		t.Fatalf("calls after recovery episode = %d, want 6", got)
	}
	if got := coord.State().Status; got != state.StatusError {
		t.Fatalf("status = %s, want error", got)
	}

	for i := 0; i < 5; i++ {
		if attempted, _ := r.once(context.Background()); attempted {
			t.Fatalf("round %d: recovery retried a failure it already handled", i)
		}
		advance()
	}
	if got := api.count(); got != 6 {
		t.Fatalf("calls without user action = %d, want 6", got)
	}
	if checker.calls != 1 {
		t.Fatalf("health checks = %d, want 1", checker.calls)
	}

	// A fresh edit starts a new episode; its failure may be recovered once.
	payload = "v2"
	coord.MarkDirty()
	advance()
	if got := api.count(); got != 9 {
		t.Fatalf("calls after edit episode = %d, want 9", got)
	}
	if attempted, _ := r.once(context.Background()); !attempted {
		t.Fatal("recovery ignored a failure from a new episode")
	}
	advance()
	if got := api.count(); got != 12 {
		t.Fatalf("calls after second recovery = %d, want 12", got)
	}
}

func TestStartRecoveryStopsAfterOneEpisode(t *testing.T) {
	api := &failingAPI{}
	payload := "v0"
	coord, err := autosave.New(autosave.Options{
		DocumentID: 1,
		Serializer: autosave.SerializerFunc(func() ([]byte, error) { return []byte(payload), nil }),
		Persister:  api,
		Timing: autosave.Timing{
			Debounce:           time.Millisecond,
			DirtyCheckThrottle: time.Millisecond,
			RetryBase:          time.Millisecond,
			MaxRetryDelay:      time.Millisecond,
		},
		Logger: discardLogger(),
	})
	if err != nil {
		t.Fatalf("autosave.New: %v", err)
	}
	t.Cleanup(coord.Close)
	coord.SetInitialSnapshot()
	payload = "v1"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartRecovery(ctx, coord, &fakeChecker{}, 5*time.Millisecond, discardLogger())
	coord.MarkDirty()

	deadline := time.Now().Add(5 * time.Second)
	for api.count() < 6 {
		if time.Now().After(deadline) {
			t.Fatalf("recovery episode did not run; calls = %d", api.count())
		}
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)
	if got := api.count(); got != 6 {
		t.Fatalf("calls = %d, want 6 (one automatic episode, one recovery)", got)
	}
	if got := coord.State().Status; got != state.StatusError {
		t.Fatalf("status = %s, want error", got)
	}
}
