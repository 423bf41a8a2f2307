package exchange

import (
	"context"

	"github.com/herdvibe/margin-stats-collector/internal/models"
)

// positionMinFields is the row width of a position-stats entry: [mts, amount].
const positionMinFields = 2

// FetchPositionSeries assembles the full position-size series for a window by
// walking the stats endpoint backward in time from now.
//
// Each page requests [startMs, cursor] newest-first. Pagination stops when
// the source returns a non-array or empty response, when a page comes back
// smaller than the per-page limit (no older data remains in range), when the
// cursor reaches startMs, or when the page budget is spent. The cursor moves
// to one millisecond before the oldest timestamp of each page so consecutive
// pages never re-request the same instant.
//
// The result is chronologically ordered with unique timestamps and may be
// empty; fetch failures degrade to early termination, never to an error.
// The page count is returned for progress logging.
func (c *Client) FetchPositionSeries(ctx context.Context, symbol string, side Side, tf string, startMs int64, maxPages int) (models.Series, int) {
	var all models.Series
	cursor := c.now().UnixMilli()
	pages := 0

	for pages < maxPages {
		rows, status := c.PositionHist(ctx, tf, symbol, side, startMs, cursor, c.cfg.PageLimit)
		if status != StatusOK || len(rows) == 0 {
			c.logger.Debug("pagination stopped",
				"symbol", symbol,
				"side", side,
				"status", status.String(),
				"pages", pages)
			break
		}
		pages++

		oldest := cursor
		skipped := 0
		for _, row := range rows {
			if len(row) < positionMinFields {
				skipped++
				continue
			}
			p := models.TimePoint{Mts: int64(row[0]), Value: row[1]}
			all = append(all, p)
			if p.Mts < oldest {
				oldest = p.Mts
			}
		}
		if skipped > 0 {
			c.logger.Warn("skipped malformed position rows",
				"symbol", symbol,
				"side", side,
				"skipped", skipped)
		}

		// A short page means the source has nothing older in range.
		if len(rows) < c.cfg.PageLimit {
			break
		}
		cursor = oldest - 1
		if cursor <= startMs {
			break
		}
	}

	return all.Normalize(), pages
}
