package types

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/orbit-lab/orbit-trading/pkg/errors"
)

// TradePolicy restricts which sides a strategy is allowed to trade.
type TradePolicy string

const (
	TradePolicyBuy  TradePolicy = "BUY"
	TradePolicySell TradePolicy = "SELL"
	TradePolicyBoth TradePolicy = "BOTH"
)

// Allows reports whether the policy permits the given trade direction.
func (p TradePolicy) Allows(direction TradeDirection) bool {
	switch p {
	case TradePolicyBuy:
		return direction == TradeDirectionBuy
	case TradePolicySell:
		return direction == TradeDirectionSell
	case TradePolicyBoth:
		return true
	}

	return false
}

// StrategySpec is the user-authored definition of an automation rule.
type StrategySpec struct {
	Symbol    string        `json:"symbol" yaml:"symbol" validate:"required" jsonschema:"description=Instrument symbol the strategy trades"`
	Indicator IndicatorType `json:"indicator" yaml:"indicator" validate:"required,oneof=rsi macd ma adx bollinger_bands stochastic_oscillator" jsonschema:"description=Indicator kind driving the strategy"`
	Direction TradePolicy   `json:"direction" yaml:"direction" validate:"required,oneof=BUY SELL BOTH" jsonschema:"description=Trade sides the strategy may take"`
	// PositionSize is the quantity submitted per triggered trade.
	PositionSize float64 `json:"position_size" yaml:"position_size" validate:"required,gt=0" jsonschema:"description=Quantity per triggered trade"`
}

// Validate validates the StrategySpec struct.
func (s *StrategySpec) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidStrategySpec, "invalid strategy spec", err)
	}

	return nil
}

// Strategy is a stored automation rule plus its runtime counters. The
// counters are updated by the signal engine after each triggered trade.
type Strategy struct {
	ID           string        `json:"id" yaml:"id"`
	Symbol       string        `json:"symbol" yaml:"symbol"`
	Indicator    IndicatorType `json:"indicator" yaml:"indicator"`
	Direction    TradePolicy   `json:"direction" yaml:"direction"`
	PositionSize float64       `json:"position_size" yaml:"position_size"`
	Active       bool          `json:"active" yaml:"active"`
	CreatedAt    time.Time     `json:"created_at" yaml:"created_at"`

	// TriggeredCount is the number of trades the strategy has triggered.
	TriggeredCount int `json:"triggered_count" yaml:"triggered_count"`
	// CumulativeProfit is the running profit across triggered trades.
	CumulativeProfit float64 `json:"cumulative_profit" yaml:"cumulative_profit"`
	// SuccessRate is the share of triggered trades judged successful, in [0, 1].
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
}
