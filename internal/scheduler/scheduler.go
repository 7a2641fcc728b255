// Package scheduler abstracts timer-driven task execution so that every
// periodic behavior in the trading core (feed polling, trade settlement,
// automation monitoring, account refresh) can run against a real clock in
// production and a virtual clock in tests.
package scheduler

import "time"

// CancelFunc stops a scheduled task. It blocks until the task is guaranteed
// not to run again: after CancelFunc returns, zero further invocations of the
// task happen. Calling it more than once is safe.
type CancelFunc func()

// Scheduler registers tasks against a clock.
type Scheduler interface {
	// Schedule runs task repeatedly at the given interval until cancelled.
	Schedule(interval time.Duration, task func()) CancelFunc
	// After runs task once after the given delay unless cancelled first.
	After(delay time.Duration, task func()) CancelFunc
	// Now returns the scheduler's current time.
	Now() time.Time
}
