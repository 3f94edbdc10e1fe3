package autosave_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/five82/sheetsync/internal/autosave"
	"github.com/five82/sheetsync/internal/testutil"
)

// fakeDoc is a document whose serialized form the test controls.
type fakeDoc struct {
	mu      sync.Mutex
	payload string
	err     error
}

func (d *fakeDoc) set(payload string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payload = payload
}

func (d *fakeDoc) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *fakeDoc) Serialize() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return []byte(d.payload), nil
}

type persistCall struct {
	at      time.Duration
	docID   int64
	payload string
}

// fakeAPI records persist calls. Results are consumed in order; once
// exhausted, fallback is returned.
type fakeAPI struct {
	mu       sync.Mutex
	clock    *testutil.ManualClock
	start    time.Time
	calls    []persistCall
	results  []error
	fallback error
	inFlight int
	maxSeen  int

	// gate, when set, blocks the next call until released.
	gate    chan struct{}
	entered chan struct{}
}

func (a *fakeAPI) PersistPayload(ctx context.Context, id int64, payload []byte) error {
	a.mu.Lock()
	a.inFlight++
	if a.inFlight > a.maxSeen {
		a.maxSeen = a.inFlight
	}
	a.calls = append(a.calls, persistCall{at: a.clock.Now().Sub(a.start), docID: id, payload: string(payload)})
	gate, entered := a.gate, a.entered
	a.gate, a.entered = nil, nil
	var result error
	if len(a.results) > 0 {
		result = a.results[0]
		a.results = a.results[1:]
	} else {
		result = a.fallback
	}
	a.mu.Unlock()

	if gate != nil {
		close(entered)
		select {
		case <-gate:
		case <-ctx.Done():
			result = ctx.Err()
		}
	}

	a.mu.Lock()
	a.inFlight--
	a.mu.Unlock()
	return result
}

func (a *fakeAPI) blockNext() (entered <-chan struct{}, release func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	gate := make(chan struct{})
	ent := make(chan struct{})
	a.gate, a.entered = gate, ent
	return ent, func() { close(gate) }
}

func (a *fakeAPI) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func (a *fakeAPI) snapshot() []persistCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]persistCall, len(a.calls))
	copy(out, a.calls)
	return out
}

type permanentErr struct{ msg string }

func (e permanentErr) Error() string   { return e.msg }
func (e permanentErr) Permanent() bool { return true }

var errTransient = errors.New("api /api/spreadsheets/1 returned status 503")

type harness struct {
	clock *testutil.ManualClock
	doc   *fakeDoc
	api   *fakeAPI
	coord *autosave.Coordinator
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newHarness(t *testing.T, docID int64, timing autosave.Timing) *harness {
	t.Helper()

	clock := testutil.NewManualClock()
	doc := &fakeDoc{payload: "v0"}
	api := &fakeAPI{clock: clock, start: clock.Now()}

	coord, err := autosave.New(autosave.Options{
		DocumentID: docID,
		Serializer: doc,
		Persister:  api,
		Timing:     timing,
		Clock:      clock,
		Logger:     quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(coord.Close)

	return &harness{clock: clock, doc: doc, api: api, coord: coord}
}
