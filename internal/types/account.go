package types

import "time"

// AccountInfo represents the broker account snapshot reported at connect time
// and refreshed periodically while connected.
type AccountInfo struct {
	// Balance is the current cash balance (excluding unrealized P&L)
	Balance float64 `json:"balance" yaml:"balance"`
	// Equity is the total account value (balance + unrealized P&L)
	Equity float64 `json:"equity" yaml:"equity"`
	// Margin is the margin currently in use by open positions
	Margin float64 `json:"margin" yaml:"margin"`
	// FreeMargin is the margin available for new positions
	FreeMargin float64 `json:"free_margin" yaml:"free_margin"`
	// Leverage is the account leverage ratio (e.g. 100 for 1:100)
	Leverage int `json:"leverage" yaml:"leverage"`
	// Currency is the account deposit currency
	Currency string `json:"currency" yaml:"currency"`
}

// Position represents a single open position reported by the broker.
type Position struct {
	Symbol       string         `json:"symbol" yaml:"symbol"`
	Direction    TradeDirection `json:"direction" yaml:"direction"`
	Quantity     float64        `json:"quantity" yaml:"quantity"`
	OpenPrice    float64        `json:"open_price" yaml:"open_price"`
	CurrentPrice float64        `json:"current_price" yaml:"current_price"`
	Profit       float64        `json:"profit" yaml:"profit"`
	OpenedAt     time.Time      `json:"opened_at" yaml:"opened_at"`
}
