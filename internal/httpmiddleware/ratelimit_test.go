package httpmiddleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowExhaustsBudget(t *testing.T) {
	l := NewRateLimiter(3)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, l.Allow("1.2.3.4"))

	// Another client has its own budget.
	assert.True(t, l.Allow("5.6.7.8"))
}

func TestAllowRefills(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("ip"))
	assert.True(t, l.Allow("ip"))
	assert.False(t, l.Allow("ip"))

	now = now.Add(time.Minute)
	assert.True(t, l.Allow("ip"))
}

func TestSweepDropsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(5)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(staleAfter + time.Minute)
	l.Allow("fresh")

	l.mu.Lock()
	_, oldKept := l.buckets["old"]
	_, freshKept := l.buckets["fresh"]
	l.mu.Unlock()
	assert.False(t, oldKept)
	assert.True(t, freshKept)
}
