// Package provider wires the trading core together: connection lifecycle,
// price feeds, indicator state, strategies, automation, and trade execution
// behind a single façade.
package provider

import (
	"math/rand"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/orbit-lab/orbit-trading/internal/connection"
	"github.com/orbit-lab/orbit-trading/internal/execution"
	"github.com/orbit-lab/orbit-trading/internal/feed"
	"github.com/orbit-lab/orbit-trading/internal/indicator"
	"github.com/orbit-lab/orbit-trading/internal/logger"
	"github.com/orbit-lab/orbit-trading/internal/scheduler"
	"github.com/orbit-lab/orbit-trading/internal/signal"
	"github.com/orbit-lab/orbit-trading/internal/strategy"
	"github.com/orbit-lab/orbit-trading/internal/types"
)

// TradingProvider is the orchestration façade over the trading core. All
// commands and queries are safe for concurrent use.
type TradingProvider struct {
	cfg   Config
	log   *logger.Logger
	sched scheduler.Scheduler

	manager  *connection.Manager
	hub      *feed.Hub
	store    *strategy.Store
	pipeline *execution.Pipeline
	engine   *signal.Engine

	mu            sync.RWMutex
	subscriptions map[string]feed.UnsubscribeFunc
	indicators    map[string]types.IndicatorSet
}

// NewTradingProvider builds the full component graph. Every component gets
// its own seeded random source derived from the configured seed so runs are
// reproducible end to end.
func NewTradingProvider(cfg Config, sched scheduler.Scheduler, log *logger.Logger) *TradingProvider {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	gateway := connection.NewDemoGateway(rand.New(rand.NewSource(seed)))
	manager := connection.NewManager(gateway, sched, log, cfg.AccountRefreshInterval)
	hub := feed.NewHub(sched, rand.New(rand.NewSource(seed+1)), log)
	store := strategy.NewStore(sched)
	pipeline := execution.NewPipeline(sched, hub, manager, rand.New(rand.NewSource(seed+2)), log, cfg.Execution)
	engine := signal.NewEngine(sched, store, hub, pipeline, rand.New(rand.NewSource(seed+3)), log, cfg.Signal)

	p := &TradingProvider{
		cfg:           cfg,
		log:           log,
		sched:         sched,
		manager:       manager,
		hub:           hub,
		store:         store,
		pipeline:      pipeline,
		engine:        engine,
		subscriptions: make(map[string]feed.UnsubscribeFunc),
		indicators:    make(map[string]types.IndicatorSet),
	}

	// Settled automation trades feed back into the strategy counters.
	pipeline.OnSettled(p.onTradeSettled)

	// Live fills get their profit from the periodic position refresh.
	manager.OnRefresh(func(_ types.AccountInfo, positions []types.Position) {
		pipeline.ReconcileLiveProfits(positions)
	})

	return p
}

// Start subscribes the configured instruments and registers the configured
// strategies.
func (p *TradingProvider) Start() {
	for _, symbol := range p.cfg.Instruments {
		p.SelectInstrument(symbol)
	}

	for _, spec := range p.cfg.Strategies {
		if _, err := p.store.Add(spec); err != nil {
			p.log.Warn("Configured strategy rejected",
				zap.String("symbol", spec.Symbol),
				zap.Error(err),
			)
		}
	}
}

// Connect establishes the broker session.
func (p *TradingProvider) Connect(creds types.Credentials) (types.AccountInfo, error) {
	return p.manager.Connect(creds)
}

// Disconnect tears the session down atomically: automation stops first, then
// every feed loop, then the broker session. After Disconnect returns no tick
// is delivered and no automation cycle runs.
func (p *TradingProvider) Disconnect() {
	p.engine.StopMonitoring()
	p.hub.StopAll()

	p.mu.Lock()
	p.subscriptions = make(map[string]feed.UnsubscribeFunc)
	p.mu.Unlock()

	p.manager.Disconnect()

	p.log.Info("Trading provider disconnected")
}

// Close shuts the provider down completely, including pending settlement
// timers.
func (p *TradingProvider) Close() {
	p.Disconnect()
	p.pipeline.Shutdown()
}

// SelectInstrument subscribes to an instrument's feed and keeps its
// indicator state current on every tick. Selecting a selected instrument is
// a no-op.
func (p *TradingProvider) SelectInstrument(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.subscriptions[symbol]; ok {
		return
	}

	p.subscriptions[symbol] = p.hub.Subscribe(symbol, p.onTick)

	p.log.Info("Instrument selected", zap.String("symbol", symbol))
}

// DeselectInstrument drops the instrument's subscription. Its cached
// indicator state and latest price survive for late readers.
func (p *TradingProvider) DeselectInstrument(symbol string) {
	p.mu.Lock()
	unsubscribe, ok := p.subscriptions[symbol]
	delete(p.subscriptions, symbol)
	p.mu.Unlock()

	if ok {
		unsubscribe()

		p.log.Info("Instrument deselected", zap.String("symbol", symbol))
	}
}

// SelectedInstruments returns the currently subscribed symbols.
func (p *TradingProvider) SelectedInstruments() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	symbols := make([]string, 0, len(p.subscriptions))
	for symbol := range p.subscriptions {
		symbols = append(symbols, symbol)
	}

	return symbols
}

// ExecuteTrade submits a manual trade request.
func (p *TradingProvider) ExecuteTrade(req types.ExecuteRequest) (types.Trade, error) {
	return p.pipeline.Execute(req)
}

// CancelTrade aborts a pending trade.
func (p *TradingProvider) CancelTrade(id string) (types.Trade, error) {
	return p.pipeline.Cancel(id)
}

// AddStrategy stores a new automation strategy.
func (p *TradingProvider) AddStrategy(spec types.StrategySpec) (types.Strategy, error) {
	return p.store.Add(spec)
}

// ToggleStrategy flips a strategy's active flag.
func (p *TradingProvider) ToggleStrategy(id string) (types.Strategy, error) {
	return p.store.Toggle(id)
}

// RemoveStrategy deletes a strategy.
func (p *TradingProvider) RemoveStrategy(id string) error {
	return p.store.Remove(id)
}

// StartAutomation arms the signal engine's monitoring loop.
func (p *TradingProvider) StartAutomation() error {
	return p.engine.StartMonitoring()
}

// StopAutomation stops the monitoring loop.
func (p *TradingProvider) StopAutomation() {
	p.engine.StopMonitoring()
}

// ConnectionStatus returns the broker connection state.
func (p *TradingProvider) ConnectionStatus() types.ConnectionStatus {
	return p.manager.Status()
}

// OnConnectionStatusChange registers a connection state listener.
func (p *TradingProvider) OnConnectionStatusChange(listener connection.StatusListener) scheduler.CancelFunc {
	return p.manager.OnStatusChange(listener)
}

// AccountInfo returns the latest account snapshot, or None while
// disconnected.
func (p *TradingProvider) AccountInfo() optional.Option[types.AccountInfo] {
	return p.manager.Account()
}

// Positions returns the open positions reported by the broker.
func (p *TradingProvider) Positions() []types.Position {
	return p.manager.Positions()
}

// LatestPrice returns the cached latest tick for an instrument.
func (p *TradingProvider) LatestPrice(symbol string) optional.Option[types.PriceTick] {
	return p.hub.Latest(symbol)
}

// Indicators returns the current indicator state for an instrument, or None
// before its first tick.
func (p *TradingProvider) Indicators(symbol string) optional.Option[types.IndicatorSet] {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if set, ok := p.indicators[symbol]; ok {
		return optional.Some(set)
	}

	return optional.None[types.IndicatorSet]()
}

// Trades returns the trade ledger, most recent first.
func (p *TradingProvider) Trades() []types.Trade {
	return p.pipeline.Trades()
}

// Strategies returns every stored strategy in insertion order.
func (p *TradingProvider) Strategies() []types.Strategy {
	return p.store.List()
}

// Strategy returns one strategy by id.
func (p *TradingProvider) Strategy(id string) (types.Strategy, error) {
	return p.store.Get(id)
}

// AutomationRunning reports whether the monitoring loop is armed.
func (p *TradingProvider) AutomationRunning() bool {
	return p.engine.Running()
}

// SignalHistory returns recorded signals, most recent first.
func (p *TradingProvider) SignalHistory() []types.Signal {
	return p.engine.History()
}

// onTick folds each delivered tick into the instrument's indicator state.
func (p *TradingProvider) onTick(tick types.PriceTick) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, err := indicator.Compute(tick, p.indicators[tick.Symbol])
	if err != nil {
		p.log.Warn("Indicator update failed",
			zap.String("symbol", tick.Symbol),
			zap.Error(err),
		)

		return
	}

	p.indicators[tick.Symbol] = next
}

// onTradeSettled routes settled automation trades back into the strategy
// counters. Manual trades carry no strategy id and are skipped.
func (p *TradingProvider) onTradeSettled(trade types.Trade) {
	if trade.StrategyID == "" || trade.Status != types.TradeStatusExecuted {
		return
	}

	profit, err := trade.Profit.Take()
	if err != nil {
		return
	}

	if err := p.store.RecordTrigger(trade.StrategyID, profit, profit > 0); err != nil {
		// The strategy may have been removed while the trade was pending.
		p.log.Debug("Trigger not recorded",
			zap.String("strategy", trade.StrategyID),
			zap.Error(err),
		)
	}
}
