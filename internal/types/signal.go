package types

import "time"

// Signal is an engine-produced suggestion to trade, with a confidence
// strength. Signals are immutable once created.
type Signal struct {
	// ID is the unique signal identifier
	ID string `json:"id" yaml:"id"`
	// Symbol is the instrument the signal applies to
	Symbol string `json:"symbol" yaml:"symbol"`
	// Direction is the suggested trade side
	Direction TradeDirection `json:"direction" yaml:"direction"`
	// Strength is the confidence score, always within [0, 100]
	Strength float64 `json:"strength" yaml:"strength"`
	// Price is the last price at evaluation time
	Price float64 `json:"price" yaml:"price"`
	// StrategyID is the strategy that produced the signal
	StrategyID string `json:"strategy_id" yaml:"strategy_id"`
	// Indicator is the indicator kind that produced the signal
	Indicator IndicatorType `json:"indicator" yaml:"indicator"`
	// Rationale is a human-readable explanation for the signal
	Rationale string `json:"rationale" yaml:"rationale"`
	// Time is the time of the signal
	Time time.Time `json:"time" yaml:"time"`
}
