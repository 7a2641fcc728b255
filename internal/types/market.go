package types

import (
	"math"
	"time"

	"github.com/orbit-lab/orbit-trading/pkg/errors"
)

// InstrumentClass groups instruments by volatility profile. The class decides
// how often the price feed polls the instrument and how wide its spread is.
type InstrumentClass string

const (
	InstrumentClassForex     InstrumentClass = "forex"
	InstrumentClassCrypto    InstrumentClass = "crypto"
	InstrumentClassIndex     InstrumentClass = "index"
	InstrumentClassMetal     InstrumentClass = "metal"
)

// PriceTick is a single timestamped price observation for an instrument.
// Ticks are immutable once produced.
type PriceTick struct {
	Symbol string    `json:"symbol" yaml:"symbol"`
	Bid    float64   `json:"bid" yaml:"bid"`
	Ask    float64   `json:"ask" yaml:"ask"`
	Last   float64   `json:"last" yaml:"last"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Volume float64   `json:"volume" yaml:"volume"`
	Time   time.Time `json:"time" yaml:"time"`
}

// Validate checks the tick for values that would poison downstream
// calculations.
func (t *PriceTick) Validate() error {
	if t.Symbol == "" {
		return errors.New(errors.ErrCodeInvalidTick, "tick symbol is empty")
	}

	if math.IsNaN(t.Last) || math.IsInf(t.Last, 0) || t.Last <= 0 {
		return errors.Newf(errors.ErrCodeInvalidTick, "tick price is not a positive number: %f", t.Last)
	}

	if math.IsNaN(t.Volume) || t.Volume < 0 {
		return errors.Newf(errors.ErrCodeInvalidTick, "tick volume is negative: %f", t.Volume)
	}

	return nil
}
