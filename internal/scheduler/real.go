package scheduler

import (
	"sync"
	"time"
)

// Real is a Scheduler backed by the wall clock. Each task runs on its own
// goroutine; no task blocks another.
type Real struct{}

// NewReal creates a wall-clock scheduler.
func NewReal() *Real {
	return &Real{}
}

// Now implements Scheduler.
func (r *Real) Now() time.Time {
	return time.Now().UTC()
}

// Schedule implements Scheduler.
func (r *Real) Schedule(interval time.Duration, task func()) CancelFunc {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// A tick may already be buffered when cancel fires; re-check
				// so no task invocation races past cancellation.
				select {
				case <-stop:
					return
				default:
				}

				task()
			}
		}
	}()

	var once sync.Once

	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}
}

// After implements Scheduler.
func (r *Real) After(delay time.Duration, task func()) CancelFunc {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-stop:
			return
		case <-timer.C:
			select {
			case <-stop:
				return
			default:
			}

			task()
		}
	}()

	var once sync.Once

	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}
}

// Verify Real implements the Scheduler interface.
var _ Scheduler = (*Real)(nil)
