package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceLimiterBurst(t *testing.T) {
	l := NewSourceLimiter(DefaultLimit(), map[string]Limit{
		"partner": {RequestsPerSecond: 0.001, Burst: 2},
	})

	assert.True(t, l.Allow("partner"))
	assert.True(t, l.Allow("partner"))
	assert.False(t, l.Allow("partner"))

	// other sources are unaffected
	assert.True(t, l.Allow("pricing"))
}

func TestSourceLimiterWaitHonoursContext(t *testing.T) {
	l := NewSourceLimiter(Limit{RequestsPerSecond: 0.001, Burst: 1}, nil)
	require.True(t, l.Allow("widget"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, "widget")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "widget")
}

func TestSourceLimiterUnlimited(t *testing.T) {
	l := NewSourceLimiter(Limit{}, nil)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "pricing"))
	}
}

func TestSetReplacesLimit(t *testing.T) {
	l := NewSourceLimiter(DefaultLimit(), nil)
	l.Set("pricing", Limit{RequestsPerSecond: 0.001, Burst: 1})

	assert.True(t, l.Allow("pricing"))
	assert.False(t, l.Allow("pricing"))
}
