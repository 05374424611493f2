// Copyright 2023-present The DBMover Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"time"

	"github.com/jpillora/backoff"
)

// defaultRetryBase is the first delay of a fresh retry schedule.
const defaultRetryBase = 500 * time.Millisecond

// Exponential yields at most a fixed number of sleep durations, doubling
// each time. One schedule covers a whole batch attempt: the recover calls
// consume the same remaining budget as the write retries.
type Exponential struct {
	b    *backoff.Backoff
	left int
}

// NewExponential returns a schedule of at most retries durations starting
// at 500ms.
func NewExponential(retries int) *Exponential {
	return NewExponentialWithBase(retries, defaultRetryBase)
}

// NewExponentialWithBase returns a schedule with a custom base duration.
func NewExponentialWithBase(retries int, base time.Duration) *Exponential {
	return &Exponential{
		b: &backoff.Backoff{
			Min:    base,
			Max:    time.Hour,
			Factor: 2,
		},
		left: retries,
	}
}

// Next returns the next sleep duration, or false when the schedule is
// exhausted.
func (e *Exponential) Next() (time.Duration, bool) {
	if e.left <= 0 {
		return 0, false
	}
	e.left--
	return e.b.Duration(), true
}
