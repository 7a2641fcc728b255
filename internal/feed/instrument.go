package feed

import (
	"time"

	"github.com/orbit-lab/orbit-trading/internal/types"
)

// InstrumentProfile describes the synthetic pricing model for one instrument:
// where its price lives, how far it typically moves in a day, and how wide
// its book is.
type InstrumentProfile struct {
	Symbol     string
	Class      types.InstrumentClass
	BasePrice  float64
	DailyRange float64
	Spread     float64
	BaseVolume float64
}

// walkFraction is the share of the daily range a single tick may move.
const walkFraction = 0.02

// shadowFraction is the share of the daily range the intra-tick high/low
// shadows may extend beyond the last price.
const shadowFraction = 0.05

// catalog lists the instruments with tuned profiles. Symbols outside the
// catalog fall back to defaultProfile so subscribing never fails on symbol.
var catalog = map[string]InstrumentProfile{
	"EURUSD": {Symbol: "EURUSD", Class: types.InstrumentClassForex, BasePrice: 1.0850, DailyRange: 0.0080, Spread: 0.0002, BaseVolume: 1200},
	"GBPUSD": {Symbol: "GBPUSD", Class: types.InstrumentClassForex, BasePrice: 1.2700, DailyRange: 0.0110, Spread: 0.0003, BaseVolume: 950},
	"USDJPY": {Symbol: "USDJPY", Class: types.InstrumentClassForex, BasePrice: 149.50, DailyRange: 1.20, Spread: 0.02, BaseVolume: 1100},
	"AUDUSD": {Symbol: "AUDUSD", Class: types.InstrumentClassForex, BasePrice: 0.6550, DailyRange: 0.0070, Spread: 0.0002, BaseVolume: 700},
	"BTCUSD": {Symbol: "BTCUSD", Class: types.InstrumentClassCrypto, BasePrice: 64000, DailyRange: 2500, Spread: 15, BaseVolume: 300},
	"ETHUSD": {Symbol: "ETHUSD", Class: types.InstrumentClassCrypto, BasePrice: 3100, DailyRange: 160, Spread: 1.2, BaseVolume: 450},
	"XAUUSD": {Symbol: "XAUUSD", Class: types.InstrumentClassMetal, BasePrice: 2350, DailyRange: 28, Spread: 0.4, BaseVolume: 600},
	"XAGUSD": {Symbol: "XAGUSD", Class: types.InstrumentClassMetal, BasePrice: 30.5, DailyRange: 0.9, Spread: 0.03, BaseVolume: 500},
	"US500":  {Symbol: "US500", Class: types.InstrumentClassIndex, BasePrice: 5200, DailyRange: 55, Spread: 0.8, BaseVolume: 850},
	"US30":   {Symbol: "US30", Class: types.InstrumentClassIndex, BasePrice: 39000, DailyRange: 380, Spread: 4, BaseVolume: 650},
}

// LookupProfile returns the profile for a symbol, falling back to a generic
// forex-like profile for unknown symbols.
func LookupProfile(symbol string) InstrumentProfile {
	if profile, ok := catalog[symbol]; ok {
		return profile
	}

	return InstrumentProfile{
		Symbol:     symbol,
		Class:      types.InstrumentClassForex,
		BasePrice:  1.0,
		DailyRange: 0.01,
		Spread:     0.0002,
		BaseVolume: 500,
	}
}

// PollInterval returns the tick cadence for an instrument class. Volatile
// classes poll faster; downstream signal timing depends on this split.
func PollInterval(class types.InstrumentClass) time.Duration {
	switch class {
	case types.InstrumentClassCrypto:
		return 500 * time.Millisecond
	case types.InstrumentClassForex:
		return time.Second
	case types.InstrumentClassMetal:
		return 2 * time.Second
	case types.InstrumentClassIndex:
		return 3 * time.Second
	}

	return time.Second
}
