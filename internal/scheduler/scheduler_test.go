package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

var testStart = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type VirtualSchedulerTestSuite struct {
	suite.Suite
}

func TestVirtualSchedulerSuite(t *testing.T) {
	suite.Run(t, new(VirtualSchedulerTestSuite))
}

func (suite *VirtualSchedulerTestSuite) TestScheduleFiresPerInterval() {
	sched := NewVirtual(testStart)

	count := 0
	cancel := sched.Schedule(time.Second, func() { count++ })
	defer cancel()

	sched.Advance(5 * time.Second)
	suite.Equal(5, count)
}

func (suite *VirtualSchedulerTestSuite) TestScheduleDoesNotFireEarly() {
	sched := NewVirtual(testStart)

	count := 0
	cancel := sched.Schedule(10*time.Second, func() { count++ })
	defer cancel()

	sched.Advance(9 * time.Second)
	suite.Equal(0, count)

	sched.Advance(time.Second)
	suite.Equal(1, count)
}

func (suite *VirtualSchedulerTestSuite) TestAfterFiresOnce() {
	sched := NewVirtual(testStart)

	count := 0
	sched.After(2*time.Second, func() { count++ })

	sched.Advance(10 * time.Second)
	suite.Equal(1, count)
	suite.Equal(0, sched.TaskCount())
}

func (suite *VirtualSchedulerTestSuite) TestCancelPreventsFiring() {
	sched := NewVirtual(testStart)

	count := 0
	cancel := sched.Schedule(time.Second, func() { count++ })
	cancel()

	sched.Advance(5 * time.Second)
	suite.Equal(0, count)
	suite.Equal(0, sched.TaskCount())
}

func (suite *VirtualSchedulerTestSuite) TestCancelIsIdempotent() {
	sched := NewVirtual(testStart)

	cancel := sched.Schedule(time.Second, func() {})
	cancel()
	cancel()

	suite.Equal(0, sched.TaskCount())
}

func (suite *VirtualSchedulerTestSuite) TestTasksFireInDueOrder() {
	sched := NewVirtual(testStart)

	var order []string

	sched.After(3*time.Second, func() { order = append(order, "c") })
	sched.After(time.Second, func() { order = append(order, "a") })
	sched.After(2*time.Second, func() { order = append(order, "b") })

	sched.Advance(3 * time.Second)
	suite.Equal([]string{"a", "b", "c"}, order)
}

func (suite *VirtualSchedulerTestSuite) TestNowTracksAdvance() {
	sched := NewVirtual(testStart)
	sched.Advance(90 * time.Second)
	suite.Equal(testStart.Add(90*time.Second), sched.Now())
}

func (suite *VirtualSchedulerTestSuite) TestTaskMayScheduleDuringAdvance() {
	sched := NewVirtual(testStart)

	count := 0
	sched.After(time.Second, func() {
		sched.After(time.Second, func() { count++ })
	})

	sched.Advance(2 * time.Second)
	suite.Equal(1, count)
}

type RealSchedulerTestSuite struct {
	suite.Suite
}

func TestRealSchedulerSuite(t *testing.T) {
	suite.Run(t, new(RealSchedulerTestSuite))
}

func (suite *RealSchedulerTestSuite) TestScheduleAndCancel() {
	sched := NewReal()

	var mu sync.Mutex

	count := 0
	cancel := sched.Schedule(5*time.Millisecond, func() {
		mu.Lock()
		count++
		mu.Unlock()
	})

	time.Sleep(30 * time.Millisecond)
	cancel()

	mu.Lock()
	after := count
	mu.Unlock()

	suite.Positive(after)

	// No invocation may happen after cancel returns.
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	suite.Equal(after, count)
	mu.Unlock()
}

func (suite *RealSchedulerTestSuite) TestAfterFiresOnce() {
	sched := NewReal()

	done := make(chan struct{})
	sched.After(5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		suite.Fail("After task never fired")
	}
}

func (suite *RealSchedulerTestSuite) TestAfterCancelBeforeFire() {
	sched := NewReal()

	fired := false
	cancel := sched.After(time.Hour, func() { fired = true })
	cancel()

	suite.False(fired)
}

func (suite *RealSchedulerTestSuite) TestNowIsUTC() {
	sched := NewReal()
	suite.Equal(time.UTC, sched.Now().Location())
}
