package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Side selects the margin position side for the stats endpoint.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// sortDescending asks the API for newest-first ordering, which is what the
// backward pagination cursor relies on.
const sortDescending = -1

// PositionHist fetches one page of margin position-size history for a symbol
// and side at the given stat granularity. Rows are [mts, amount] pairs,
// newest first. endMs <= 0 means "up to now" and omits the end bound.
func (c *Client) PositionHist(ctx context.Context, tf, symbol string, side Side, startMs, endMs int64, limit int) ([][]float64, Status) {
	endpoint := fmt.Sprintf("%s/stats1/pos.size:%s:%s:%s/hist", c.cfg.BaseURL, tf, symbol, side)

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("start", strconv.FormatInt(startMs, 10))
	if endMs > 0 {
		params.Set("end", strconv.FormatInt(endMs, 10))
	}
	params.Set("sort", strconv.Itoa(sortDescending))

	return c.fetchRows(ctx, endpoint+"?"+params.Encode())
}

// CandleHist fetches OHLCV candle history for a symbol at the given
// granularity in a single call. Rows are [mts, open, close, high, low,
// volume], newest first.
func (c *Client) CandleHist(ctx context.Context, tf, symbol string, startMs int64, limit int) ([][]float64, Status) {
	endpoint := fmt.Sprintf("%s/candles/trade:%s:%s/hist", c.cfg.BaseURL, tf, symbol)

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("start", strconv.FormatInt(startMs, 10))
	params.Set("sort", strconv.Itoa(sortDescending))

	return c.fetchRows(ctx, endpoint+"?"+params.Encode())
}
