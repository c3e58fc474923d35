package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func TestWindowAllowsExactlyMax(t *testing.T) {
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	w := NewWindow(3, time.Minute, clock.Now)

	for i := 0; i < 3; i++ {
		assert.True(t, w.Allow(), "call %d", i+1)
		clock.now = clock.now.Add(time.Second)
	}
	assert.False(t, w.Allow())

	clock.now = clock.now.Add(time.Minute)
	assert.True(t, w.Allow(), "window elapsed")
	assert.Equal(t, 1, w.Count())
}

func TestWindowPrunesOnlyExpiredTimestamps(t *testing.T) {
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	w := NewWindow(2, time.Minute, clock.Now)

	assert.True(t, w.Allow())
	clock.now = clock.now.Add(40 * time.Second)
	assert.True(t, w.Allow())
	clock.now = clock.now.Add(30 * time.Second)

	// The first call is now 70s old and drops out; the second is 30s old and stays.
	assert.True(t, w.Allow())
	assert.Equal(t, 2, w.Count())
}
