package signal

import "github.com/orbit-lab/orbit-trading/internal/types"

// rationales holds the explanation pools per indicator kind and direction.
// Every pool has the same length so one draw indexes any of them.
var rationales = map[types.IndicatorType]map[types.TradeDirection][]string{
	types.IndicatorTypeRSI: {
		types.TradeDirectionBuy: {
			"RSI dipped into oversold territory",
			"RSI reversal from the lower band",
			"RSI divergence against falling price",
		},
		types.TradeDirectionSell: {
			"RSI pushed into overbought territory",
			"RSI rolling over from the upper band",
			"RSI divergence against rising price",
		},
	},
	types.IndicatorTypeMACD: {
		types.TradeDirectionBuy: {
			"MACD crossed above the signal line",
			"MACD histogram turned positive",
			"MACD converging from below the zero line",
		},
		types.TradeDirectionSell: {
			"MACD crossed below the signal line",
			"MACD histogram turned negative",
			"MACD diverging above the zero line",
		},
	},
	types.IndicatorTypeMA: {
		types.TradeDirectionBuy: {
			"Price closed above the moving average",
			"Fast average crossed above the slow average",
			"Pullback held the moving average as support",
		},
		types.TradeDirectionSell: {
			"Price closed below the moving average",
			"Fast average crossed below the slow average",
			"Rally rejected at the moving average",
		},
	},
	types.IndicatorTypeADX: {
		types.TradeDirectionBuy: {
			"ADX confirms a strengthening uptrend",
			"+DI crossed above -DI with rising ADX",
			"Trend strength building on the long side",
		},
		types.TradeDirectionSell: {
			"ADX confirms a strengthening downtrend",
			"-DI crossed above +DI with rising ADX",
			"Trend strength building on the short side",
		},
	},
	types.IndicatorTypeBollingerBands: {
		types.TradeDirectionBuy: {
			"Price tagged the lower Bollinger band",
			"Band squeeze resolving upward",
			"Close back inside the bands from below",
		},
		types.TradeDirectionSell: {
			"Price tagged the upper Bollinger band",
			"Band squeeze resolving downward",
			"Close back inside the bands from above",
		},
	},
	types.IndicatorTypeStochasticOsciallator: {
		types.TradeDirectionBuy: {
			"Stochastic crossed up out of oversold",
			"%K crossed above %D near the lows",
			"Stochastic double bottom below 20",
		},
		types.TradeDirectionSell: {
			"Stochastic crossed down out of overbought",
			"%K crossed below %D near the highs",
			"Stochastic double top above 80",
		},
	},
}

// rationale renders the explanation for a signal, prefixed by a confidence
// qualifier once the strength crosses the reporting bands.
func rationale(kind types.IndicatorType, direction types.TradeDirection, strength float64, idx int) string {
	text := rationales[kind][direction][idx]

	switch {
	case strength >= 80:
		return "Strong signal: " + text
	case strength >= 70:
		return "Good signal: " + text
	default:
		return text
	}
}
