// Package models provides the data structures for margin position statistics:
// time points, series, candles, and the snapshot/metadata documents that are
// persisted for the dashboard.
package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// TimePoint is a single observation: a Unix epoch millisecond timestamp and a
// value. The value is a signed position size for longs/shorts series and a
// close price for price series; the container shape is identical.
//
// On the wire a TimePoint is a two-element JSON array [mts, value], matching
// both the Bitfinex response format and the dashboard contract.
type TimePoint struct {
	Mts   int64
	Value float64
}

// MarshalJSON encodes the point as [mts, value].
func (p TimePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Mts, p.Value})
}

// UnmarshalJSON decodes a [mts, value] pair. Anything that is not a
// two-element numeric array is rejected.
func (p *TimePoint) UnmarshalJSON(data []byte) error {
	var raw []json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("time point must be a numeric array: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("time point must have exactly 2 elements, got %d", len(raw))
	}
	mts, err := raw[0].Int64()
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", raw[0], err)
	}
	value, err := raw[1].Float64()
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", raw[1], err)
	}
	p.Mts = mts
	p.Value = value
	return nil
}

// Series is an ordered sequence of time points. A normalized series is
// strictly ascending by timestamp with unique timestamps.
type Series []TimePoint

// MarshalJSON encodes an empty or nil series as [] rather than null; the
// dashboard contract promises arrays for all three series.
func (s Series) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal([]TimePoint(s))
}

// Normalize returns the series sorted ascending by timestamp with duplicate
// timestamps removed, keeping the first occurrence after the sort. The sort
// is stable so ties resolve deterministically.
func (s Series) Normalize() Series {
	if len(s) == 0 {
		return s
	}
	out := make(Series, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Mts < out[j].Mts
	})

	dedup := out[:1]
	for _, p := range out[1:] {
		if p.Mts != dedup[len(dedup)-1].Mts {
			dedup = append(dedup, p)
		}
	}
	return dedup
}

// Start returns the timestamp of the first point. The second return value is
// false for an empty series.
func (s Series) Start() (int64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[0].Mts, true
}

// TrimStart returns the suffix of the series with timestamps >= mts. The
// series must already be in ascending order.
func (s Series) TrimStart(mts int64) Series {
	i := sort.Search(len(s), func(i int) bool { return s[i].Mts >= mts })
	return s[i:]
}

// Reverse flips the series in place and returns it. Used to convert
// newest-first API responses to chronological order.
func (s Series) Reverse() Series {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return s
}
