package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetTime(t *testing.T) {
	at := time.Date(2026, time.March, 2, 9, 31, 45, 123, time.UTC)

	assert.Equal(t, time.Date(2026, time.March, 2, 9, 31, 0, 0, time.UTC), ResetTime(at, "minute"))
	assert.Equal(t, time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC), ResetTime(at, "hour"))
	assert.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), ResetTime(at, "day"))
	assert.Equal(t, at, ResetTime(at, "week"))
}

func TestNextBoundary(t *testing.T) {
	seoul := MarketLocation()
	require.Equal(t, "Asia/Seoul", seoul.String())

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before target stays same day",
			now:  time.Date(2026, time.March, 2, 7, 30, 0, 0, seoul),
			want: time.Date(2026, time.March, 2, 9, 0, 0, 0, seoul),
		},
		{
			name: "exactly at target rolls to tomorrow",
			now:  time.Date(2026, time.March, 2, 9, 0, 0, 0, seoul),
			want: time.Date(2026, time.March, 3, 9, 0, 0, 0, seoul),
		},
		{
			name: "after target rolls to tomorrow",
			now:  time.Date(2026, time.March, 2, 15, 0, 0, 0, seoul),
			want: time.Date(2026, time.March, 3, 9, 0, 0, 0, seoul),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextBoundary(tt.now, 9, 0)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestNextBoundaryConvertsToMarketClock(t *testing.T) {
	seoul := MarketLocation()

	// 01:00 UTC is 10:00 in Seoul, already past a 09:00 target.
	now := time.Date(2026, time.March, 2, 1, 0, 0, 0, time.UTC)

	got := NextBoundary(now, 9, 0)
	want := time.Date(2026, time.March, 3, 9, 0, 0, 0, seoul)
	assert.True(t, want.Equal(got), "want %s got %s", want, got)
}

func TestSleepUntilPastDeadline(t *testing.T) {
	err := SleepUntil(context.Background(), time.Now().Add(-time.Minute))
	assert.NoError(t, err)
}

func TestSleepUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SleepUntil(ctx, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExitHorizon(t *testing.T) {
	assert.Equal(t, 24*time.Hour, ExitHorizon(24))
	assert.Equal(t, time.Duration(0), ExitHorizon(0))
	assert.Equal(t, 30*time.Minute, ExitHorizon(-30))
}
