// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// backoff produces exponentially growing retry delays with random jitter.
type backoff struct {
	// base is the delay before the first retry.
	base time.Duration

	// max caps the delay before jitter is applied.
	max time.Duration

	// scaler defines the jitter. A delay d is drawn from
	// [d * (1 - scaler), d * (1 + scaler)], with a lower bound of 0.
	scaler float64
}

// calculateMinMax calculates the min and max duration values. If the
// calculated min is negative, it will be set to 0.
func calculateMinMax(d time.Duration, scaler float64) (int64, int64) {
	if scaler < 0 {
		panic(errors.New("scaler must be positive"))
	}

	min := math.Floor(float64(d) * (1 - scaler))
	max := math.Ceil(float64(d) * (1 + scaler))

	if 1-scaler < 0 {
		min = 0
	}

	return int64(min), int64(max)
}

// delay returns the jittered delay before retry attempt (starting at 0).
func (b backoff) delay(attempt int) time.Duration {
	d := b.base << uint(attempt)
	if d > b.max || d <= 0 {
		d = b.max
	}

	min, max := calculateMinMax(d, b.scaler)
	if max == min {
		return d
	}

	return time.Duration(rand.Int63n(max-min) + min) //nolint:gosec
}

// wait sleeps before retry attempt or returns early with the context error.
func (b backoff) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(b.delay(attempt))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
