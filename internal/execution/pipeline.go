// Package execution implements the trade pipeline: request validation, live
// placement through the broker session, and simulated settlement for trades
// placed without a session. The pipeline owns the trade ledger.
package execution

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orbit-lab/orbit-trading/internal/connection"
	"github.com/orbit-lab/orbit-trading/internal/feed"
	"github.com/orbit-lab/orbit-trading/internal/logger"
	"github.com/orbit-lab/orbit-trading/internal/scheduler"
	"github.com/orbit-lab/orbit-trading/internal/types"
	"github.com/orbit-lab/orbit-trading/pkg/errors"
)

// Config tunes the execution pipeline.
type Config struct {
	// ProfitBias shifts the simulated settlement draw. A uniform draw above
	// this value settles profitably, so 0.45 yields winners 55% of the time.
	ProfitBias float64 `json:"profit_bias" yaml:"profit_bias" jsonschema:"description=Settlement draw threshold; lower values settle profitably more often"`
	// SettleDelay is how long a simulated trade stays pending.
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay" jsonschema:"description=Delay before a simulated trade settles"`
	// MaxQuantity caps a single order.
	MaxQuantity float64 `json:"max_quantity" yaml:"max_quantity" jsonschema:"description=Largest quantity accepted per order"`
	// MovementScale is the magnitude of the simulated settlement price move,
	// as a fraction of the requested price.
	MovementScale float64 `json:"movement_scale" yaml:"movement_scale" jsonschema:"description=Relative price move applied at simulated settlement"`
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		ProfitBias:    0.45,
		SettleDelay:   2 * time.Second,
		MaxQuantity:   100,
		MovementScale: 0.002,
	}
}

// contractSize converts a price difference into account-currency profit per
// lot of quantity. 100000 is the standard lot size.
const contractSize = 100000

// SettlementListener observes trades reaching a terminal status.
type SettlementListener func(trade types.Trade)

// Pipeline validates and executes trade requests. With a broker session the
// order goes to the gateway synchronously; without one the trade is simulated:
// it enters the ledger as PENDING and settles after a delay with a biased
// random outcome.
type Pipeline struct {
	sched   scheduler.Scheduler
	log     *logger.Logger
	hub     *feed.Hub
	manager *connection.Manager
	cfg     Config

	rngMu sync.Mutex
	rng   *rand.Rand

	mu        sync.RWMutex
	trades    map[string]*types.Trade
	order     []string
	settlers  map[string]scheduler.CancelFunc
	listeners []SettlementListener
}

// NewPipeline creates a trade execution pipeline. The rng drives simulated
// settlement outcomes and is injected so tests can seed it.
func NewPipeline(sched scheduler.Scheduler, hub *feed.Hub, manager *connection.Manager, rng *rand.Rand, log *logger.Logger, cfg Config) *Pipeline {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultConfig().SettleDelay
	}

	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = DefaultConfig().MaxQuantity
	}

	if cfg.MovementScale <= 0 {
		cfg.MovementScale = DefaultConfig().MovementScale
	}

	return &Pipeline{
		sched:    sched,
		log:      log,
		hub:      hub,
		manager:  manager,
		cfg:      cfg,
		rng:      rng,
		trades:   make(map[string]*types.Trade),
		settlers: make(map[string]scheduler.CancelFunc),
	}
}

// Execute validates the request and places the trade. The returned trade is a
// snapshot; simulated trades are PENDING in it and settle later.
func (p *Pipeline) Execute(req types.ExecuteRequest) (types.Trade, error) {
	if err := req.Validate(); err != nil {
		return types.Trade{}, err
	}

	if req.Quantity > p.cfg.MaxQuantity {
		return types.Trade{}, errors.Newf(errors.ErrCodeQuantityTooLarge, "quantity %f exceeds the maximum of %f", req.Quantity, p.cfg.MaxQuantity)
	}

	trade := types.Trade{
		ID:             uuid.NewString(),
		Symbol:         req.Symbol,
		Direction:      req.Direction,
		Quantity:       req.Quantity,
		RequestedPrice: p.referencePrice(req.Symbol, req.Direction),
		Status:         types.TradeStatusPending,
		StrategyID:     req.StrategyID,
		Timestamp:      p.sched.Now(),
	}

	if p.manager.IsConnected() {
		return p.executeLive(trade)
	}

	return p.executeSimulated(trade)
}

// referencePrice picks the execution reference: the cached tick when the
// instrument has one, otherwise a synthetic price from the instrument
// profile. Buys price at the ask, sells at the bid.
func (p *Pipeline) referencePrice(symbol string, direction types.TradeDirection) float64 {
	if tick, err := p.hub.Latest(symbol).Take(); err == nil {
		if direction == types.TradeDirectionSell {
			return tick.Bid
		}

		return tick.Ask
	}

	profile := feed.LookupProfile(symbol)
	if direction == types.TradeDirectionSell {
		return profile.BasePrice - profile.Spread/2
	}

	return profile.BasePrice + profile.Spread/2
}

// executeLive sends the order to the broker synchronously. The pending row is
// visible in the ledger for the duration of the call; a rejected order removes
// it so no dangling PENDING trade survives a failure.
func (p *Pipeline) executeLive(trade types.Trade) (types.Trade, error) {
	p.insert(trade)

	fill, err := p.manager.PlaceMarketOrder(trade.Symbol, trade.Direction, trade.Quantity, trade.RequestedPrice)
	if err != nil {
		p.remove(trade.ID)

		p.log.Warn("Live order failed",
			zap.String("symbol", trade.Symbol),
			zap.String("direction", string(trade.Direction)),
			zap.Error(err),
		)

		if errors.IsExecution(err) || errors.IsConnection(err) {
			return types.Trade{}, err
		}

		return types.Trade{}, errors.Wrap(errors.ErrCodeOrderFailed, "broker order failed", err)
	}

	// Profit stays None until position reconciliation prices the fill.
	settled := p.settle(trade.ID, fill, optional.None[float64]())

	p.log.Info("Live order filled",
		zap.String("trade", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.Float64("fill", fill),
	)

	return settled, nil
}

// executeSimulated inserts the trade as PENDING and arms the settlement
// timer. The pending trade is visible to ledger reads immediately.
func (p *Pipeline) executeSimulated(trade types.Trade) (types.Trade, error) {
	p.insert(trade)

	id := trade.ID
	cancel := p.sched.After(p.cfg.SettleDelay, func() { p.settleSimulated(id) })

	p.mu.Lock()
	p.settlers[id] = cancel
	p.mu.Unlock()

	p.log.Info("Simulated order pending",
		zap.String("trade", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.Float64("quantity", trade.Quantity),
	)

	return trade, nil
}

// settleSimulated resolves a pending simulated trade with a biased random
// outcome: the settlement price moves in the profitable direction when the
// draw exceeds ProfitBias.
func (p *Pipeline) settleSimulated(id string) {
	p.rngMu.Lock()
	draw := p.rng.Float64()
	p.rngMu.Unlock()

	p.mu.RLock()
	trade, ok := p.trades[id]

	if !ok || trade.Status != types.TradeStatusPending {
		p.mu.RUnlock()

		return
	}

	requested := trade.RequestedPrice
	quantity := trade.Quantity
	direction := trade.Direction
	p.mu.RUnlock()

	move := (draw - p.cfg.ProfitBias) * p.cfg.MovementScale * requested

	// A favorable move raises the price for buys and lowers it for sells.
	settledPrice := requested + move
	if direction == types.TradeDirectionSell {
		settledPrice = requested - move
	}

	profit := settlementProfit(requested, settledPrice, quantity, direction)
	settled := p.settle(id, settledPrice, optional.Some(profit))

	p.log.Info("Simulated order settled",
		zap.String("trade", id),
		zap.Float64("settled_price", settledPrice),
		zap.Float64("profit", profit),
	)

	p.notify(settled)
}

// settle transitions a trade to EXECUTED under the ledger lock so readers
// never observe a half-settled row. Live fills pass None for profit and get
// it filled in by ReconcileLiveProfits.
func (p *Pipeline) settle(id string, settledPrice float64, profit optional.Option[float64]) types.Trade {
	p.mu.Lock()

	trade, ok := p.trades[id]
	if !ok || trade.Status != types.TradeStatusPending {
		var snapshot types.Trade
		if ok {
			snapshot = *trade
		}

		p.mu.Unlock()

		return snapshot
	}

	trade.Status = types.TradeStatusExecuted
	trade.SettledPrice = optional.Some(settledPrice)
	trade.Profit = profit
	snapshot := *trade

	delete(p.settlers, id)
	p.mu.Unlock()

	return snapshot
}

// ReconcileLiveProfits prices live fills from the broker's refreshed
// positions: every executed trade still missing a profit gets one from its
// symbol's current position price. Settlement listeners fire once per trade,
// when the profit lands.
func (p *Pipeline) ReconcileLiveProfits(positions []types.Position) {
	prices := make(map[string]float64, len(positions))
	for _, position := range positions {
		prices[position.Symbol] = position.CurrentPrice
	}

	var reconciled []types.Trade

	p.mu.Lock()

	for _, id := range p.order {
		trade := p.trades[id]
		if trade.Status != types.TradeStatusExecuted || trade.Profit.IsSome() {
			continue
		}

		current, ok := prices[trade.Symbol]
		if !ok {
			continue
		}

		fill, err := trade.SettledPrice.Take()
		if err != nil {
			continue
		}

		trade.Profit = optional.Some(settlementProfit(fill, current, trade.Quantity, trade.Direction))
		reconciled = append(reconciled, *trade)
	}

	p.mu.Unlock()

	for _, trade := range reconciled {
		p.notify(trade)
	}
}

// Cancel aborts a pending trade: its settlement timer is stopped and the
// trade transitions to CANCELLED. Final trades cannot be cancelled.
func (p *Pipeline) Cancel(id string) (types.Trade, error) {
	p.mu.Lock()

	trade, ok := p.trades[id]
	if !ok {
		p.mu.Unlock()

		return types.Trade{}, errors.Newf(errors.ErrCodeTradeNotFound, "trade not found: %s", id)
	}

	if trade.IsFinal() {
		p.mu.Unlock()

		return types.Trade{}, errors.Newf(errors.ErrCodeOrderFailed, "trade %s already settled", id)
	}

	cancelTimer := p.settlers[id]
	delete(p.settlers, id)

	trade.Status = types.TradeStatusCancelled
	snapshot := *trade
	p.mu.Unlock()

	if cancelTimer != nil {
		// Blocks until the settlement task cannot fire.
		cancelTimer()
	}

	p.notify(snapshot)

	return snapshot, nil
}

// Get returns a snapshot of one trade.
func (p *Pipeline) Get(id string) (types.Trade, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	trade, ok := p.trades[id]
	if !ok {
		return types.Trade{}, errors.Newf(errors.ErrCodeTradeNotFound, "trade not found: %s", id)
	}

	return *trade, nil
}

// Trades returns ledger snapshots, most recent first.
func (p *Pipeline) Trades() []types.Trade {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]types.Trade, 0, len(p.order))
	for i := len(p.order) - 1; i >= 0; i-- {
		result = append(result, *p.trades[p.order[i]])
	}

	return result
}

// PendingCount returns the number of trades awaiting settlement.
func (p *Pipeline) PendingCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.settlers)
}

// OnSettled registers a listener for trades whose final figures become
// available: simulated trades at settlement, cancellations immediately, and
// live fills once reconciliation prices them. Listeners run synchronously on
// the settling goroutine.
func (p *Pipeline) OnSettled(listener SettlementListener) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.listeners = append(p.listeners, listener)
}

// Shutdown cancels every outstanding settlement timer. Pending trades stay
// PENDING in the ledger.
func (p *Pipeline) Shutdown() {
	p.mu.Lock()

	cancels := make([]scheduler.CancelFunc, 0, len(p.settlers))
	for id, cancel := range p.settlers {
		cancels = append(cancels, cancel)
		delete(p.settlers, id)
	}

	p.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (p *Pipeline) insert(trade types.Trade) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored := trade
	p.trades[trade.ID] = &stored
	p.order = append(p.order, trade.ID)
}

func (p *Pipeline) remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.trades, id)
	delete(p.settlers, id)

	for i, existing := range p.order {
		if existing == id {
			p.order = append(p.order[:i], p.order[i+1:]...)

			break
		}
	}
}

func (p *Pipeline) notify(trade types.Trade) {
	p.mu.RLock()
	listeners := make([]SettlementListener, len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.RUnlock()

	for _, listener := range listeners {
		listener(trade)
	}
}

// settlementProfit computes the realized profit of a fill in account
// currency, using decimal arithmetic so ledger figures do not accumulate
// float error.
func settlementProfit(requested, settled, quantity float64, direction types.TradeDirection) float64 {
	diff := decimal.NewFromFloat(settled).Sub(decimal.NewFromFloat(requested))
	if direction == types.TradeDirectionSell {
		diff = diff.Neg()
	}

	profit := diff.
		Mul(decimal.NewFromFloat(quantity)).
		Mul(decimal.NewFromInt(contractSize))

	result, _ := profit.Float64()

	return result
}
