package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"

	"github.com/orbit-lab/orbit-trading/pkg/errors"
)

type TradeDirection string

type TradeStatus string

const (
	TradeDirectionBuy  TradeDirection = "BUY"
	TradeDirectionSell TradeDirection = "SELL"
)

const (
	TradeStatusPending   TradeStatus = "PENDING"
	TradeStatusExecuted  TradeStatus = "EXECUTED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
)

// ExecuteRequest is a trade intent submitted to the execution pipeline,
// either manually or forwarded from a triggered signal.
type ExecuteRequest struct {
	Symbol    string         `json:"symbol" yaml:"symbol" validate:"required"`
	Direction TradeDirection `json:"direction" yaml:"direction" validate:"required,oneof=BUY SELL"`
	Quantity  float64        `json:"quantity" yaml:"quantity" validate:"required,gt=0"`
	// StrategyID is the originating strategy when the trade was triggered by
	// automation. Empty for manual trades.
	StrategyID string `json:"strategy_id" yaml:"strategy_id"`
}

// Validate validates the ExecuteRequest struct.
func (r *ExecuteRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidQuantity, "invalid execute request", err)
	}

	return nil
}

// Trade is one entry in the trade ledger. A trade is created in PENDING state
// and settles into EXECUTED or CANCELLED. SettledPrice is None until a fill;
// Profit is None until settlement for simulated trades and until position
// reconciliation for live fills.
type Trade struct {
	ID             string                   `json:"id" yaml:"id"`
	Symbol         string                   `json:"symbol" yaml:"symbol"`
	Direction      TradeDirection           `json:"direction" yaml:"direction"`
	Quantity       float64                  `json:"quantity" yaml:"quantity"`
	RequestedPrice float64                  `json:"requested_price" yaml:"requested_price"`
	Status         TradeStatus              `json:"status" yaml:"status"`
	SettledPrice   optional.Option[float64] `json:"settled_price" yaml:"settled_price"`
	Profit         optional.Option[float64] `json:"profit" yaml:"profit"`
	StrategyID     string                   `json:"strategy_id" yaml:"strategy_id"`
	Timestamp      time.Time                `json:"timestamp" yaml:"timestamp"`
}

// IsFinal reports whether the trade has reached a terminal status.
func (t *Trade) IsFinal() bool {
	return t.Status == TradeStatusExecuted || t.Status == TradeStatusCancelled
}

// Opposite returns the opposing trade direction.
func (d TradeDirection) Opposite() TradeDirection {
	if d == TradeDirectionBuy {
		return TradeDirectionSell
	}

	return TradeDirectionBuy
}
