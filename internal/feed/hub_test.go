package feed

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/orbit-lab/orbit-trading/internal/logger"
	"github.com/orbit-lab/orbit-trading/internal/scheduler"
	"github.com/orbit-lab/orbit-trading/internal/types"
)

var feedTestStart = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type HubTestSuite struct {
	suite.Suite
	sched *scheduler.Virtual
	hub   *Hub
}

func TestHubSuite(t *testing.T) {
	suite.Run(t, new(HubTestSuite))
}

func (suite *HubTestSuite) SetupTest() {
	suite.sched = scheduler.NewVirtual(feedTestStart)
	suite.hub = NewHub(suite.sched, rand.New(rand.NewSource(42)), logger.NewNopLogger())
}

func (suite *HubTestSuite) TestFiveIntervalsFiveTicks() {
	var ticks []types.PriceTick

	unsubscribe := suite.hub.Subscribe("EURUSD", func(tick types.PriceTick) {
		ticks = append(ticks, tick)
	})
	defer unsubscribe()

	interval := PollInterval(types.InstrumentClassForex)
	suite.sched.Advance(5 * interval)

	suite.Len(ticks, 5)

	for i := 1; i < len(ticks); i++ {
		suite.True(ticks[i].Time.After(ticks[i-1].Time),
			"tick timestamps must be strictly increasing")
	}
}

func (suite *HubTestSuite) TestConcurrentSubscribeUnsubscribe() {
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				unsubscribe := suite.hub.Subscribe("EURUSD", func(types.PriceTick) {})
				unsubscribe()
			}
		}()
	}

	wg.Wait()

	suite.Equal(0, suite.hub.SubscriberCount("EURUSD"))
	suite.Empty(suite.hub.ActiveSymbols())
	suite.Equal(0, suite.sched.TaskCount(),
		"a last unsubscribe must always cancel the loop it raced with")
}

func (suite *HubTestSuite) TestOHLCInvariants() {
	var ticks []types.PriceTick

	unsubscribe := suite.hub.Subscribe("BTCUSD", func(tick types.PriceTick) {
		ticks = append(ticks, tick)
	})
	defer unsubscribe()

	suite.sched.Advance(200 * PollInterval(types.InstrumentClassCrypto))
	suite.Len(ticks, 200)

	for _, tick := range ticks {
		suite.LessOrEqual(tick.Low, tick.Last)
		suite.GreaterOrEqual(tick.High, tick.Last)
		suite.GreaterOrEqual(tick.Open, tick.Low)
		suite.LessOrEqual(tick.Open, tick.High)
		suite.Less(tick.Bid, tick.Ask)
		suite.GreaterOrEqual(tick.Volume, 0.0)
	}
}

func (suite *HubTestSuite) TestClassCadenceDiffers() {
	forexTicks := 0
	cryptoTicks := 0

	stopForex := suite.hub.Subscribe("EURUSD", func(types.PriceTick) { forexTicks++ })
	defer stopForex()

	stopCrypto := suite.hub.Subscribe("BTCUSD", func(types.PriceTick) { cryptoTicks++ })
	defer stopCrypto()

	suite.sched.Advance(4 * time.Second)

	suite.Equal(4, forexTicks)
	suite.Equal(8, cryptoTicks)
}

func (suite *HubTestSuite) TestUnsubscribeStopsDelivery() {
	count := 0
	unsubscribe := suite.hub.Subscribe("EURUSD", func(types.PriceTick) { count++ })

	suite.sched.Advance(2 * time.Second)
	suite.Equal(2, count)

	unsubscribe()

	suite.sched.Advance(5 * time.Second)
	suite.Equal(2, count, "no tick may be delivered after unsubscribe returns")
}

func (suite *HubTestSuite) TestLastUnsubscribeStopsLoop() {
	unsubscribe := suite.hub.Subscribe("EURUSD", func(types.PriceTick) {})
	suite.Equal(1, suite.sched.TaskCount())

	unsubscribe()
	suite.Equal(0, suite.sched.TaskCount(), "loop timer must be cancelled")
	suite.Empty(suite.hub.ActiveSymbols())
}

func (suite *HubTestSuite) TestOneLoopPerInstrument() {
	stopA := suite.hub.Subscribe("EURUSD", func(types.PriceTick) {})
	stopB := suite.hub.Subscribe("EURUSD", func(types.PriceTick) {})
	stopC := suite.hub.Subscribe("EURUSD", func(types.PriceTick) {})

	suite.Equal(1, suite.sched.TaskCount(), "at most one polling loop per instrument")
	suite.Equal(3, suite.hub.SubscriberCount("EURUSD"))

	stopA()
	stopB()
	suite.Equal(1, suite.sched.TaskCount())

	stopC()
	suite.Equal(0, suite.sched.TaskCount())
}

func (suite *HubTestSuite) TestDeliveryInSubscriptionOrder() {
	var order []string

	stopA := suite.hub.Subscribe("EURUSD", func(types.PriceTick) { order = append(order, "a") })
	defer stopA()

	stopB := suite.hub.Subscribe("EURUSD", func(types.PriceTick) { order = append(order, "b") })
	defer stopB()

	suite.sched.Advance(time.Second)
	suite.Equal([]string{"a", "b"}, order)
}

func (suite *HubTestSuite) TestPanickingSubscriberIsolated() {
	received := 0

	stopA := suite.hub.Subscribe("EURUSD", func(types.PriceTick) { panic("boom") })
	defer stopA()

	stopB := suite.hub.Subscribe("EURUSD", func(types.PriceTick) { received++ })
	defer stopB()

	suite.sched.Advance(3 * time.Second)
	suite.Equal(3, received, "a panicking subscriber must not affect others")
}

func (suite *HubTestSuite) TestLatestNoneBeforeSubscribe() {
	suite.True(suite.hub.Latest("EURUSD").IsNone())
}

func (suite *HubTestSuite) TestLatestCachedAfterTicks() {
	var lastSeen types.PriceTick

	unsubscribe := suite.hub.Subscribe("EURUSD", func(tick types.PriceTick) { lastSeen = tick })

	suite.sched.Advance(3 * time.Second)

	cached := suite.hub.Latest("EURUSD")
	suite.True(cached.IsSome())
	suite.Equal(lastSeen, cached.Unwrap())

	// Cache survives loop teardown for late joiners.
	unsubscribe()
	suite.True(suite.hub.Latest("EURUSD").IsSome())
}

func (suite *HubTestSuite) TestUnknownSymbolGetsDefaultProfile() {
	count := 0
	unsubscribe := suite.hub.Subscribe("ZZZTEST", func(types.PriceTick) { count++ })
	defer unsubscribe()

	suite.sched.Advance(2 * time.Second)
	suite.Equal(2, count)
}

func (suite *HubTestSuite) TestStopAllTearsDownEverything() {
	count := 0

	suite.hub.Subscribe("EURUSD", func(types.PriceTick) { count++ })
	suite.hub.Subscribe("BTCUSD", func(types.PriceTick) { count++ })

	suite.sched.Advance(time.Second)
	suite.Positive(count)

	before := count

	suite.hub.StopAll()
	suite.Equal(0, suite.sched.TaskCount(), "all loop timers must be cancelled")

	suite.sched.Advance(10 * time.Second)
	suite.Equal(before, count, "no tick may flow after StopAll returns")
}

func (suite *HubTestSuite) TestUnsubscribeIdempotent() {
	unsubscribe := suite.hub.Subscribe("EURUSD", func(types.PriceTick) {})
	unsubscribe()
	unsubscribe()

	suite.Equal(0, suite.hub.SubscriberCount("EURUSD"))
}

func (suite *HubTestSuite) TestPollIntervalPerClass() {
	suite.Equal(500*time.Millisecond, PollInterval(types.InstrumentClassCrypto))
	suite.Equal(time.Second, PollInterval(types.InstrumentClassForex))
	suite.Equal(2*time.Second, PollInterval(types.InstrumentClassMetal))
	suite.Equal(3*time.Second, PollInterval(types.InstrumentClassIndex))
}
