package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClock_FiresInDeadlineOrder(t *testing.T) {
	c := NewManualClock()
	var order []string

	c.AfterFunc(300*time.Millisecond, func() { order = append(order, "b") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	c.AfterFunc(time.Second, func() { order = append(order, "c") })

	c.Advance(500 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, c.Pending())

	c.Advance(500 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, c.Pending())
}

func TestManualClock_StopPreventsCallback(t *testing.T) {
	c := NewManualClock()
	fired := false

	timer := c.AfterFunc(time.Second, func() { fired = true })
	require.True(t, timer.Stop())
	require.False(t, timer.Stop(), "second Stop should report false")

	c.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestManualClock_CallbackSchedulesWithinAdvance(t *testing.T) {
	c := NewManualClock()
	start := c.Now()
	var firedAt []time.Duration

	c.AfterFunc(time.Second, func() {
		firedAt = append(firedAt, c.Now().Sub(start))
		c.AfterFunc(time.Second, func() {
			firedAt = append(firedAt, c.Now().Sub(start))
		})
	})

	c.Advance(5 * time.Second)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, firedAt)
	assert.Equal(t, 5*time.Second, c.Now().Sub(start))
}

func TestManualClock_NextDeadline(t *testing.T) {
	c := NewManualClock()
	_, ok := c.NextDeadline()
	assert.False(t, ok)

	c.AfterFunc(1500*time.Millisecond, func() {})
	c.Advance(500 * time.Millisecond)

	d, ok := c.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, time.Second, d)
}
