// Package indicator derives technical indicator values from price ticks.
// Compute is a pure function of (tick, previous set): no hidden state, no
// I/O, deterministic given its inputs.
package indicator

import (
	"github.com/orbit-lab/orbit-trading/internal/types"
	"github.com/orbit-lab/orbit-trading/pkg/errors"
)

// Periods for the incremental calculations. These mirror the conventional
// defaults: RSI 14 with Wilder smoothing, MA 20, MACD 12/26 with a 9-period
// signal line.
const (
	rsiPeriod        = 14
	maPeriod         = 20
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
)

// Compute derives the next indicator set from a tick and the previous set.
// A zero previous set seeds neutral values from the tick. Invalid input
// (NaN price, negative volume) is rejected with an explicit error instead of
// letting NaN propagate into the outputs.
func Compute(tick types.PriceTick, previous types.IndicatorSet) (types.IndicatorSet, error) {
	if err := tick.Validate(); err != nil {
		return types.IndicatorSet{}, errors.Wrap(errors.ErrCodeIndicatorCalculation, "cannot compute indicators from invalid tick", err)
	}

	if previous.IsZero() {
		return seed(tick), nil
	}

	price := tick.Last
	change := price - previous.LastPrice

	gain := 0.0
	loss := 0.0

	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	// Wilder smoothing carries the averages forward one step per tick.
	avgGain := (previous.AvgGain*(rsiPeriod-1) + gain) / rsiPeriod
	avgLoss := (previous.AvgLoss*(rsiPeriod-1) + loss) / rsiPeriod

	emaFast := ema(previous.EMAFast, price, macdFastPeriod)
	emaSlow := ema(previous.EMASlow, price, macdSlowPeriod)
	macd := emaFast - emaSlow
	macdSignal := ema(previous.MACDSignal, macd, macdSignalPeriod)

	return types.IndicatorSet{
		Symbol:        tick.Symbol,
		RSI:           clamp(rsi(avgGain, avgLoss), 0, 100),
		MA:            ema(previous.MA, price, maPeriod),
		EMAFast:       emaFast,
		EMASlow:       emaSlow,
		MACD:          macd,
		MACDSignal:    macdSignal,
		MACDHistogram: macd - macdSignal,
		AvgGain:       avgGain,
		AvgLoss:       avgLoss,
		LastPrice:     price,
		Time:          tick.Time,
	}, nil
}

// seed builds a neutral indicator set from the first observed tick.
func seed(tick types.PriceTick) types.IndicatorSet {
	return types.IndicatorSet{
		Symbol:        tick.Symbol,
		RSI:           50,
		MA:            tick.Last,
		EMAFast:       tick.Last,
		EMASlow:       tick.Last,
		MACD:          0,
		MACDSignal:    0,
		MACDHistogram: 0,
		AvgGain:       0,
		AvgLoss:       0,
		LastPrice:     tick.Last,
		Time:          tick.Time,
	}
}

func ema(previous, value float64, period int) float64 {
	k := 2.0 / float64(period+1)

	return previous + (value-previous)*k
}

func rsi(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50 // No movement yet, stay neutral
		}

		return 100 // Perfect uptrend
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs))
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
