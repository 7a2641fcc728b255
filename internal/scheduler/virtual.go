package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Virtual is a deterministic Scheduler for tests. Time only moves when
// Advance is called; due tasks fire synchronously on the advancing goroutine,
// in timestamp order.
type Virtual struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks map[int]*virtualTask
}

type virtualTask struct {
	id        int
	next      time.Time
	interval  time.Duration
	recurring bool
	fn        func()
}

// NewVirtual creates a virtual scheduler starting at the given time.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{
		now:   start,
		tasks: make(map[int]*virtualTask),
	}
}

// Now implements Scheduler.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.now
}

// Schedule implements Scheduler.
func (v *Virtual) Schedule(interval time.Duration, task func()) CancelFunc {
	return v.add(interval, task, true)
}

// After implements Scheduler.
func (v *Virtual) After(delay time.Duration, task func()) CancelFunc {
	return v.add(delay, task, false)
}

func (v *Virtual) add(d time.Duration, fn func(), recurring bool) CancelFunc {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.seq++
	id := v.seq
	v.tasks[id] = &virtualTask{
		id:        id,
		next:      v.now.Add(d),
		interval:  d,
		recurring: recurring,
		fn:        fn,
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			delete(v.tasks, id)
		})
	}
}

// TaskCount returns the number of armed tasks. Tests use it to assert that
// no timer leaked.
func (v *Virtual) TaskCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return len(v.tasks)
}

// Advance moves the clock forward by d, firing every task that becomes due,
// in due-time order. Recurring tasks re-arm; one-shot tasks are removed
// before they fire. Task callbacks run without the scheduler lock held, so
// they may schedule or cancel tasks.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	target := v.now.Add(d)

	for {
		task := v.nextDueLocked(target)
		if task == nil {
			break
		}

		v.now = task.next
		if task.recurring {
			task.next = task.next.Add(task.interval)
		} else {
			delete(v.tasks, task.id)
		}

		fn := task.fn

		v.mu.Unlock()
		fn()
		v.mu.Lock()
	}

	v.now = target
	v.mu.Unlock()
}

// nextDueLocked returns the task with the earliest due time not after target,
// breaking ties by registration order.
func (v *Virtual) nextDueLocked(target time.Time) *virtualTask {
	due := make([]*virtualTask, 0, len(v.tasks))

	for _, task := range v.tasks {
		if !task.next.After(target) {
			due = append(due, task)
		}
	}

	if len(due) == 0 {
		return nil
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].next.Equal(due[j].next) {
			return due[i].id < due[j].id
		}

		return due[i].next.Before(due[j].next)
	})

	return due[0]
}

// Verify Virtual implements the Scheduler interface.
var _ Scheduler = (*Virtual)(nil)
