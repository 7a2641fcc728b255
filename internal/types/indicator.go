package types

import "time"

type IndicatorType string

const (
	IndicatorTypeRSI                   IndicatorType = "rsi"
	IndicatorTypeMACD                  IndicatorType = "macd"
	IndicatorTypeMA                    IndicatorType = "ma"
	IndicatorTypeADX                   IndicatorType = "adx"
	IndicatorTypeBollingerBands        IndicatorType = "bollinger_bands"
	IndicatorTypeStochasticOsciallator IndicatorType = "stochastic_oscillator"
)

// IndicatorSet holds the derived indicator values for one instrument after a
// tick. The EMA fields carry the smoothing state forward so the calculator
// stays a pure function of (tick, previous set).
type IndicatorSet struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	// RSI is the relative strength index, always within [0, 100].
	RSI float64 `json:"rsi" yaml:"rsi"`
	// MA is the smoothed moving average of the last price.
	MA float64 `json:"ma" yaml:"ma"`
	// EMAFast and EMASlow are the exponential averages feeding MACD.
	EMAFast float64 `json:"ema_fast" yaml:"ema_fast"`
	EMASlow float64 `json:"ema_slow" yaml:"ema_slow"`
	// MACD is EMAFast - EMASlow.
	MACD float64 `json:"macd" yaml:"macd"`
	// MACDSignal is the smoothed MACD line.
	MACDSignal float64 `json:"macd_signal" yaml:"macd_signal"`
	// MACDHistogram is MACD - MACDSignal.
	MACDHistogram float64 `json:"macd_histogram" yaml:"macd_histogram"`
	// AvgGain and AvgLoss carry Wilder smoothing state for RSI.
	AvgGain float64 `json:"avg_gain" yaml:"avg_gain"`
	AvgLoss float64 `json:"avg_loss" yaml:"avg_loss"`
	// LastPrice is the price the set was computed from.
	LastPrice float64   `json:"last_price" yaml:"last_price"`
	Time      time.Time `json:"time" yaml:"time"`
}

// IsZero reports whether the set has never been computed. The calculator
// seeds a fresh set from the first tick when this is true.
func (s *IndicatorSet) IsZero() bool {
	return s.Symbol == "" && s.LastPrice == 0
}
