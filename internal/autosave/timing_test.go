package autosave

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetryDelay(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"zero attempt", 0, time.Second},
		{"negative attempt", -1, time.Second},
		{"first retry", 1, time.Second},
		{"second retry", 2, 2 * time.Second},
		{"third retry", 3, 4 * time.Second},
		{"fifth retry", 5, 16 * time.Second},
		{"sixth retry capped", 6, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many retries capped", 40, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := retryDelay(tt.attempt, base, max)
			if got != tt.want {
				t.Errorf("retryDelay(%d, %v, %v) = %v, want %v", tt.attempt, base, max, got, tt.want)
			}
		})
	}
}

func TestRetryDelay_NoCap(t *testing.T) {
	if got := retryDelay(4, time.Second, 0); got != 8*time.Second {
		t.Fatalf("retryDelay uncapped = %v, want 8s", got)
	}
}

func TestTiming_WithDefaults(t *testing.T) {
	got := Timing{Debounce: 2 * time.Second, MaxRetries: -1}.withDefaults()
	if got.Debounce != 2*time.Second {
		t.Fatalf("Debounce = %v, want 2s", got.Debounce)
	}
	if got.MaxRetries != defaultMaxRetries {
		t.Fatalf("MaxRetries = %d, want %d", got.MaxRetries, defaultMaxRetries)
	}
	if got.SavedBadge != defaultSavedBadge || got.DirtyCheckThrottle != defaultDirtyCheckThrottle {
		t.Fatalf("timing = %#v, want stock badge/throttle", got)
	}
}

type statusErr struct{ permanent bool }

func (e statusErr) Error() string   { return "status" }
func (e statusErr) Permanent() bool { return e.permanent }

func TestIsPermanent(t *testing.T) {
	if isPermanent(errors.New("plain")) {
		t.Fatal("plain errors are transient")
	}
	if !isPermanent(fmt.Errorf("wrapped: %w", statusErr{permanent: true})) {
		t.Fatal("wrapped permanent error not detected")
	}
	if isPermanent(statusErr{permanent: false}) {
		t.Fatal("Permanent() false must be transient")
	}
}

func TestHumanMessage(t *testing.T) {
	if got := humanMessage(errors.New("  ")); got != fallbackErrorMessage {
		t.Fatalf("humanMessage(blank) = %q, want fallback", got)
	}
	if got := humanMessage(errors.New("Request failed")); got != "Request failed" {
		t.Fatalf("humanMessage = %q, want Request failed", got)
	}
}
