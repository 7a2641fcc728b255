// Package signal implements the probabilistic signal engine: a monitoring
// loop that evaluates active strategies against market state and forwards
// strong enough signals to the execution pipeline.
package signal

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbit-lab/orbit-trading/internal/feed"
	"github.com/orbit-lab/orbit-trading/internal/logger"
	"github.com/orbit-lab/orbit-trading/internal/scheduler"
	"github.com/orbit-lab/orbit-trading/internal/strategy"
	"github.com/orbit-lab/orbit-trading/internal/types"
	"github.com/orbit-lab/orbit-trading/pkg/errors"
)

// Executor receives trade requests for signals that cross the action
// threshold. Satisfied by the execution pipeline.
type Executor interface {
	Execute(req types.ExecuteRequest) (types.Trade, error)
}

// Config tunes the signal engine.
type Config struct {
	// Interval is the monitoring cycle cadence.
	Interval time.Duration `json:"interval" yaml:"interval" jsonschema:"description=Monitoring cycle cadence"`
	// ActionThreshold is the minimum strength a signal needs to be forwarded
	// to the execution pipeline.
	ActionThreshold float64 `json:"action_threshold" yaml:"action_threshold" jsonschema:"description=Minimum strength for a signal to trade"`
	// HistoryCapacity bounds the signal history ring.
	HistoryCapacity int `json:"history_capacity" yaml:"history_capacity" jsonschema:"description=Number of signals kept in history"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Interval:        15 * time.Second,
		ActionThreshold: 65,
		HistoryCapacity: 50,
	}
}

// kindProfile holds the per-indicator trigger behavior: how likely one
// evaluation cycle is to produce a signal and how strong it starts out.
type kindProfile struct {
	triggerProbability float64
	baseStrength       float64
}

var kindProfiles = map[types.IndicatorType]kindProfile{
	types.IndicatorTypeRSI:                   {triggerProbability: 0.30, baseStrength: 68},
	types.IndicatorTypeMACD:                  {triggerProbability: 0.25, baseStrength: 66},
	types.IndicatorTypeMA:                    {triggerProbability: 0.20, baseStrength: 62},
	types.IndicatorTypeADX:                   {triggerProbability: 0.22, baseStrength: 70},
	types.IndicatorTypeBollingerBands:        {triggerProbability: 0.18, baseStrength: 64},
	types.IndicatorTypeStochasticOsciallator: {triggerProbability: 0.28, baseStrength: 65},
}

// strengthSpread is the half-width of the random perturbation applied to the
// base strength.
const strengthSpread = 15.0

// Engine runs the automation monitoring loop. At most one loop runs at a
// time; StartMonitoring and StopMonitoring manage its lifecycle.
type Engine struct {
	sched    scheduler.Scheduler
	log      *logger.Logger
	store    *strategy.Store
	hub      *feed.Hub
	executor Executor
	cfg      Config

	rngMu sync.Mutex
	rng   *rand.Rand

	mu      sync.Mutex
	running bool
	cancel  scheduler.CancelFunc

	historyMu sync.RWMutex
	history   []types.Signal
	next      int
	count     int
}

// NewEngine creates a signal engine. The rng drives trigger draws, direction
// picks, and strength perturbation; it is injected so tests can seed it.
func NewEngine(sched scheduler.Scheduler, store *strategy.Store, hub *feed.Hub, executor Executor, rng *rand.Rand, log *logger.Logger, cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}

	if cfg.ActionThreshold <= 0 {
		cfg.ActionThreshold = DefaultConfig().ActionThreshold
	}

	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = DefaultConfig().HistoryCapacity
	}

	return &Engine{
		sched:    sched,
		log:      log,
		store:    store,
		hub:      hub,
		executor: executor,
		cfg:      cfg,
		rng:      rng,
		history:  make([]types.Signal, cfg.HistoryCapacity),
	}
}

// StartMonitoring arms the monitoring loop. With zero active strategies there
// is nothing to monitor: no timer is armed and a typed error is returned.
func (e *Engine) StartMonitoring() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return errors.New(errors.ErrCodeMonitorRunning, "automation monitoring is already running")
	}

	if len(e.store.Active()) == 0 {
		return errors.New(errors.ErrCodeNoActiveStrategies, "no active strategies to monitor")
	}

	e.running = true
	e.cancel = e.sched.Schedule(e.cfg.Interval, e.cycle)

	e.log.Info("Automation monitoring started",
		zap.Duration("interval", e.cfg.Interval),
	)

	return nil
}

// StopMonitoring cancels the monitoring loop. It blocks until no further
// cycle can run and is safe to call while stopped.
func (e *Engine) StopMonitoring() {
	e.mu.Lock()

	if !e.running {
		e.mu.Unlock()

		return
	}

	cancel := e.cancel
	e.cancel = nil
	e.running = false
	e.mu.Unlock()

	// Blocks until the cycle task cannot fire again.
	cancel()

	e.log.Info("Automation monitoring stopped")
}

// Running reports whether the monitoring loop is armed.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.running
}

// History returns recorded signals, most recent first.
func (e *Engine) History() []types.Signal {
	e.historyMu.RLock()
	defer e.historyMu.RUnlock()

	result := make([]types.Signal, 0, e.count)

	for i := 0; i < e.count; i++ {
		idx := (e.next - 1 - i + len(e.history)) % len(e.history)
		result = append(result, e.history[idx])
	}

	return result
}

// cycle evaluates every active strategy once. Strategies are isolated from
// each other: a failure in one never stops the rest of the cycle.
func (e *Engine) cycle() {
	for _, strat := range e.store.Active() {
		e.evaluateStrategy(strat)
	}
}

func (e *Engine) evaluateStrategy(strat types.Strategy) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Strategy evaluation panicked",
				zap.String("strategy", strat.ID),
				zap.Any("panic", r),
			)
		}
	}()

	sig, triggered := e.Evaluate(strat)
	if !triggered {
		return
	}

	e.record(sig)

	if sig.Strength < e.cfg.ActionThreshold {
		e.log.Debug("Signal below action threshold",
			zap.String("strategy", strat.ID),
			zap.Float64("strength", sig.Strength),
		)

		return
	}

	_, err := e.executor.Execute(types.ExecuteRequest{
		Symbol:     sig.Symbol,
		Direction:  sig.Direction,
		Quantity:   strat.PositionSize,
		StrategyID: strat.ID,
	})
	if err != nil {
		e.log.Warn("Signal execution failed",
			zap.String("strategy", strat.ID),
			zap.String("symbol", sig.Symbol),
			zap.Error(err),
		)

		return
	}

	e.log.Info("Signal executed",
		zap.String("strategy", strat.ID),
		zap.String("symbol", sig.Symbol),
		zap.String("direction", string(sig.Direction)),
		zap.Float64("strength", sig.Strength),
	)
}

// Evaluate runs one probabilistic evaluation of a strategy. It reports false
// when the trigger draw fails or no market price is available for the
// strategy's instrument.
func (e *Engine) Evaluate(strat types.Strategy) (types.Signal, bool) {
	profile, ok := kindProfiles[strat.Indicator]
	if !ok {
		return types.Signal{}, false
	}

	e.rngMu.Lock()
	draw := e.rng.Float64()
	directionDraw := e.rng.Float64()
	perturbation := (e.rng.Float64()*2 - 1) * strengthSpread
	rationaleDraw := e.rng.Intn(len(rationales[strat.Indicator][types.TradeDirectionBuy]))
	e.rngMu.Unlock()

	if draw >= profile.triggerProbability {
		return types.Signal{}, false
	}

	tick, err := e.hub.Latest(strat.Symbol).Take()
	if err != nil {
		e.log.Debug("No market price for strategy instrument",
			zap.String("strategy", strat.ID),
			zap.String("symbol", strat.Symbol),
		)

		return types.Signal{}, false
	}

	direction := types.TradeDirectionBuy

	switch strat.Direction {
	case types.TradePolicySell:
		direction = types.TradeDirectionSell
	case types.TradePolicyBoth:
		if directionDraw < 0.5 {
			direction = types.TradeDirectionSell
		}
	case types.TradePolicyBuy:
	}

	strength := clamp(profile.baseStrength+perturbation, 0, 100)

	return types.Signal{
		ID:         uuid.NewString(),
		Symbol:     strat.Symbol,
		Direction:  direction,
		Strength:   strength,
		Price:      tick.Last,
		StrategyID: strat.ID,
		Indicator:  strat.Indicator,
		Rationale:  rationale(strat.Indicator, direction, strength, rationaleDraw),
		Time:       e.sched.Now(),
	}, true
}

// record appends a signal to the history ring, evicting the oldest entry
// once the ring is full.
func (e *Engine) record(sig types.Signal) {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()

	e.history[e.next] = sig
	e.next = (e.next + 1) % len(e.history)

	if e.count < len(e.history) {
		e.count++
	}
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}

	if value > high {
		return high
	}

	return value
}
