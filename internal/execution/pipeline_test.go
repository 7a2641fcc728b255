package execution

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/orbit-lab/orbit-trading/internal/connection"
	"github.com/orbit-lab/orbit-trading/internal/feed"
	"github.com/orbit-lab/orbit-trading/internal/logger"
	"github.com/orbit-lab/orbit-trading/internal/scheduler"
	"github.com/orbit-lab/orbit-trading/internal/types"
	"github.com/orbit-lab/orbit-trading/pkg/errors"
)

type PipelineTestSuite struct {
	suite.Suite
	sched       *scheduler.Virtual
	hub         *feed.Hub
	manager     *connection.Manager
	pipeline    *Pipeline
	unsubscribe feed.UnsubscribeFunc
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func (suite *PipelineTestSuite) SetupTest() {
	log := logger.NewNopLogger()
	suite.sched = scheduler.NewVirtual(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	suite.hub = feed.NewHub(suite.sched, rand.New(rand.NewSource(7)), log)
	suite.manager = connection.NewManager(connection.NewDemoGateway(rand.New(rand.NewSource(7))), suite.sched, log, connection.DefaultRefreshInterval)
	suite.pipeline = NewPipeline(suite.sched, suite.hub, suite.manager, rand.New(rand.NewSource(7)), log, DefaultConfig())

	// Prime a market price for EURUSD.
	suite.unsubscribe = suite.hub.Subscribe("EURUSD", func(types.PriceTick) {})
	suite.sched.Advance(time.Second)
}

func (suite *PipelineTestSuite) TearDownTest() {
	suite.unsubscribe()
}

func buyRequest(quantity float64) types.ExecuteRequest {
	return types.ExecuteRequest{
		Symbol:    "EURUSD",
		Direction: types.TradeDirectionBuy,
		Quantity:  quantity,
	}
}

func (suite *PipelineTestSuite) TestRejectsNonPositiveQuantity() {
	_, err := suite.pipeline.Execute(buyRequest(-0.01))
	suite.Error(err)
	suite.True(errors.IsValidation(err))
	suite.Empty(suite.pipeline.Trades())
}

func (suite *PipelineTestSuite) TestRejectsOversizedQuantity() {
	_, err := suite.pipeline.Execute(buyRequest(1000))
	suite.True(errors.HasCode(err, errors.ErrCodeQuantityTooLarge))
	suite.Empty(suite.pipeline.Trades())
}

func (suite *PipelineTestSuite) TestNoCachedTickEntersPendingAnyway() {
	req := buyRequest(0.01)
	req.Symbol = "USDJPY" // never subscribed, no cached tick

	trade, err := suite.pipeline.Execute(req)
	suite.NoError(err)
	suite.Equal(types.TradeStatusPending, trade.Status)
	// Catalog base price plus half the spread.
	suite.InDelta(149.51, trade.RequestedPrice, 1e-9)

	sellReq := req
	sellReq.Direction = types.TradeDirectionSell

	sell, err := suite.pipeline.Execute(sellReq)
	suite.NoError(err)
	suite.InDelta(149.49, sell.RequestedPrice, 1e-9)

	suite.sched.Advance(DefaultConfig().SettleDelay)

	settled, err := suite.pipeline.Get(trade.ID)
	suite.NoError(err)
	suite.Equal(types.TradeStatusExecuted, settled.Status)
	suite.True(settled.Profit.IsSome())
}

func (suite *PipelineTestSuite) TestUncataloguedSymbolGetsDefaultSyntheticPrice() {
	req := buyRequest(0.01)
	req.Symbol = "GBPJPY"

	trade, err := suite.pipeline.Execute(req)
	suite.NoError(err)
	suite.Equal(types.TradeStatusPending, trade.Status)
	suite.InDelta(1.0001, trade.RequestedPrice, 1e-9)
}

func (suite *PipelineTestSuite) TestBuyFillsAtAskSellAtBid() {
	tick, err := suite.hub.Latest("EURUSD").Take()
	suite.NoError(err)

	buy, execErr := suite.pipeline.Execute(buyRequest(0.01))
	suite.NoError(execErr)
	suite.Equal(tick.Ask, buy.RequestedPrice)

	sellReq := buyRequest(0.01)
	sellReq.Direction = types.TradeDirectionSell

	sell, execErr := suite.pipeline.Execute(sellReq)
	suite.NoError(execErr)
	suite.Equal(tick.Bid, sell.RequestedPrice)
}

func (suite *PipelineTestSuite) TestSimulatedTradeLifecycle() {
	trade, err := suite.pipeline.Execute(buyRequest(0.01))
	suite.NoError(err)
	suite.Equal(types.TradeStatusPending, trade.Status)
	suite.True(trade.SettledPrice.IsNone())
	suite.True(trade.Profit.IsNone())
	suite.Equal(1, suite.pipeline.PendingCount())

	// Visible in the ledger immediately, still pending.
	stored, err := suite.pipeline.Get(trade.ID)
	suite.NoError(err)
	suite.Equal(types.TradeStatusPending, stored.Status)

	suite.sched.Advance(DefaultConfig().SettleDelay)

	settled, err := suite.pipeline.Get(trade.ID)
	suite.NoError(err)
	suite.Equal(types.TradeStatusExecuted, settled.Status)
	suite.True(settled.SettledPrice.IsSome())
	suite.True(settled.Profit.IsSome())
	suite.Equal(0, suite.pipeline.PendingCount())

	profit, takeErr := settled.Profit.Take()
	suite.NoError(takeErr)
	suite.NotZero(profit)
}

func (suite *PipelineTestSuite) TestSimulatedProfitBias() {
	wins := 0
	total := 400

	for i := 0; i < total; i++ {
		trade, err := suite.pipeline.Execute(buyRequest(0.01))
		suite.NoError(err)

		suite.sched.Advance(DefaultConfig().SettleDelay)

		settled, getErr := suite.pipeline.Get(trade.ID)
		suite.NoError(getErr)

		profit, takeErr := settled.Profit.Take()
		suite.NoError(takeErr)

		if profit > 0 {
			wins++
		}
	}

	rate := float64(wins) / float64(total)
	suite.Greater(rate, 0.45, "a 0.45 bias should settle profitably more often than not")
	suite.Less(rate, 0.65)
}

func (suite *PipelineTestSuite) TestLiveTradeExecutesSynchronously() {
	_, err := suite.manager.Connect(types.Credentials{
		Server:   "MetaQuotes-Demo",
		Login:    "5021394",
		Password: "demo-pass",
	})
	suite.NoError(err)

	trade, err := suite.pipeline.Execute(buyRequest(0.01))
	suite.NoError(err)
	suite.Equal(types.TradeStatusExecuted, trade.Status)
	suite.True(trade.SettledPrice.IsSome())
	suite.True(trade.Profit.IsNone(), "live profit arrives via position reconciliation")
	suite.Equal(0, suite.pipeline.PendingCount())

	fill, takeErr := trade.SettledPrice.Take()
	suite.NoError(takeErr)
	suite.InDelta(trade.RequestedPrice, fill, trade.RequestedPrice*0.001)
}

func (suite *PipelineTestSuite) TestLiveProfitReconciledFromPositions() {
	_, err := suite.manager.Connect(types.Credentials{
		Server:   "MetaQuotes-Demo",
		Login:    "5021394",
		Password: "demo-pass",
	})
	suite.Require().NoError(err)

	var settled []types.Trade

	suite.pipeline.OnSettled(func(trade types.Trade) {
		settled = append(settled, trade)
	})

	trade, err := suite.pipeline.Execute(buyRequest(0.01))
	suite.NoError(err)
	suite.True(trade.Profit.IsNone())
	suite.Empty(settled, "listeners wait for the reconciled profit")

	// A refresh drifts the opened position's price; reconciliation then
	// prices the fill against it.
	suite.sched.Advance(connection.DefaultRefreshInterval)
	suite.pipeline.ReconcileLiveProfits(suite.manager.Positions())

	reconciled, err := suite.pipeline.Get(trade.ID)
	suite.NoError(err)
	suite.True(reconciled.Profit.IsSome())

	suite.Require().Len(settled, 1)
	suite.Equal(trade.ID, settled[0].ID)

	// Reconciling again leaves the profit untouched.
	suite.pipeline.ReconcileLiveProfits(suite.manager.Positions())

	again, err := suite.pipeline.Get(trade.ID)
	suite.NoError(err)
	suite.Equal(reconciled.Profit, again.Profit)
	suite.Len(settled, 1)
}

func (suite *PipelineTestSuite) TestCancelPendingTrade() {
	trade, err := suite.pipeline.Execute(buyRequest(0.01))
	suite.NoError(err)

	cancelled, err := suite.pipeline.Cancel(trade.ID)
	suite.NoError(err)
	suite.Equal(types.TradeStatusCancelled, cancelled.Status)
	suite.Equal(0, suite.pipeline.PendingCount())

	// Settlement never fires for a cancelled trade.
	suite.sched.Advance(DefaultConfig().SettleDelay)

	stored, err := suite.pipeline.Get(trade.ID)
	suite.NoError(err)
	suite.Equal(types.TradeStatusCancelled, stored.Status)
	suite.True(stored.Profit.IsNone())
}

func (suite *PipelineTestSuite) TestCancelErrors() {
	_, err := suite.pipeline.Cancel("missing")
	suite.True(errors.HasCode(err, errors.ErrCodeTradeNotFound))

	trade, execErr := suite.pipeline.Execute(buyRequest(0.01))
	suite.NoError(execErr)
	suite.sched.Advance(DefaultConfig().SettleDelay)

	_, err = suite.pipeline.Cancel(trade.ID)
	suite.Error(err, "settled trades cannot be cancelled")
}

func (suite *PipelineTestSuite) TestTradesMostRecentFirst() {
	first, _ := suite.pipeline.Execute(buyRequest(0.01))
	second, _ := suite.pipeline.Execute(buyRequest(0.02))
	third, _ := suite.pipeline.Execute(buyRequest(0.03))

	trades := suite.pipeline.Trades()
	suite.Len(trades, 3)
	suite.Equal(third.ID, trades[0].ID)
	suite.Equal(second.ID, trades[1].ID)
	suite.Equal(first.ID, trades[2].ID)
}

func (suite *PipelineTestSuite) TestOnSettledListener() {
	var settled []types.Trade

	suite.pipeline.OnSettled(func(trade types.Trade) {
		settled = append(settled, trade)
	})

	trade, err := suite.pipeline.Execute(buyRequest(0.01))
	suite.NoError(err)
	suite.Empty(settled)

	suite.sched.Advance(DefaultConfig().SettleDelay)

	suite.Len(settled, 1)
	suite.Equal(trade.ID, settled[0].ID)
	suite.Equal(types.TradeStatusExecuted, settled[0].Status)
}

func (suite *PipelineTestSuite) TestShutdownStopsSettlement() {
	trade, err := suite.pipeline.Execute(buyRequest(0.01))
	suite.NoError(err)

	suite.pipeline.Shutdown()
	suite.sched.Advance(DefaultConfig().SettleDelay)

	stored, getErr := suite.pipeline.Get(trade.ID)
	suite.NoError(getErr)
	suite.Equal(types.TradeStatusPending, stored.Status)
}
