package utils

import (
	"context"
	"fmt"
	"time"
)

// ResetTime resets the time component based on the granularity specified.
// Pass "minute" to reset seconds to zero.
// Pass "hour" to reset minutes and seconds to zero.
// Pass "day" to reset the whole time-of-day component.
func ResetTime(t time.Time, granularity string) time.Time {
	switch granularity {
	case "minute":
		return t.Truncate(time.Minute)
	case "hour":
		return t.Truncate(time.Hour)
	case "day":
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	default:
		fmt.Println("Invalid granularity. Please use 'minute', 'hour' or 'day'.")
		return t
	}
}

// MarketLocation loads the exchange's local clock. KRW markets bucket their
// candles in Asia/Seoul regardless of where the process runs.
func MarketLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.UTC
	}
	return loc
}

// NextBoundary returns the next occurrence of hour:minute on the market
// clock, strictly after now.
func NextBoundary(now time.Time, hour, minute int) time.Time {
	local := now.In(MarketLocation())
	target := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, local.Location())
	if !target.After(local) {
		target = target.Add(24 * time.Hour)
	}
	return target
}

// SleepUntil blocks until the deadline or until ctx is canceled, whichever
// comes first. Returns ctx.Err() on cancellation.
func SleepUntil(ctx context.Context, deadline time.Time) error {
	wait := time.Until(deadline)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ExitHorizon converts the signed exit setting into a duration. Negative
// values count minutes, zero and positive values count hours.
func ExitHorizon(value int) time.Duration {
	if value < 0 {
		return time.Duration(-value) * time.Minute
	}
	return time.Duration(value) * time.Hour
}
