package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// candleMinFields is the minimum row width required to project a close price:
// [mts, open, close].
const candleMinFields = 3

// Candle represents one OHLCV row as delivered by the Bitfinex candles
// endpoint: [mts, open, close, high, low, volume]. Only the timestamp and
// close price are retained downstream; the remaining fields exist so rows can
// be sanity-checked before projection.
type Candle struct {
	Mts    int64
	Open   float64
	Close  float64
	High   float64
	Low    float64
	Volume float64
}

// CandleFromRow converts a raw numeric row into a Candle. Rows with fewer
// than three fields are malformed and rejected; trailing fields beyond the
// six known ones are ignored.
func CandleFromRow(row []float64) (Candle, error) {
	if len(row) < candleMinFields {
		return Candle{}, fmt.Errorf("candle row has %d fields, need at least %d", len(row), candleMinFields)
	}
	c := Candle{
		Mts:   int64(row[0]),
		Open:  row[1],
		Close: row[2],
	}
	if len(row) > 3 {
		c.High = row[3]
	}
	if len(row) > 4 {
		c.Low = row[4]
	}
	if len(row) > 5 {
		c.Volume = row[5]
	}
	return c, nil
}

// Validate checks the candle for internal consistency: positive close price,
// non-negative volume, and the OHLC ordering relations when high/low are
// present. Validation failures are advisory: the pipeline logs and counts
// them but still projects the close price, matching the lenient upstream
// handling.
func (c Candle) Validate() error {
	closePrice := decimal.NewFromFloat(c.Close)
	if closePrice.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("close price %s must be greater than 0", closePrice)
	}
	if decimal.NewFromFloat(c.Volume).IsNegative() {
		return fmt.Errorf("volume %v must be greater than or equal to 0", c.Volume)
	}

	// High/low of zero means the row was short; skip the relation checks.
	if c.High == 0 && c.Low == 0 {
		return nil
	}

	open := decimal.NewFromFloat(c.Open)
	high := decimal.NewFromFloat(c.High)
	low := decimal.NewFromFloat(c.Low)
	if high.LessThan(decimal.Max(open, closePrice)) {
		return fmt.Errorf("high %s below max(open, close) %s", high, decimal.Max(open, closePrice))
	}
	if low.GreaterThan(decimal.Min(open, closePrice)) {
		return fmt.Errorf("low %s above min(open, close) %s", low, decimal.Min(open, closePrice))
	}
	return nil
}

// ClosePoint projects the candle to its close-price time point.
func (c Candle) ClosePoint() TimePoint {
	return TimePoint{Mts: c.Mts, Value: c.Close}
}
