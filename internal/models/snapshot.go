package models

import (
	"encoding/json"
	"fmt"
)

// CoinSeries holds the three reconciled series for one coin within a window.
type CoinSeries struct {
	Longs  Series `json:"longs"`
	Shorts Series `json:"shorts"`
	Price  Series `json:"price"`
}

// Snapshot is the persisted unit of output: one document per window. Coin
// entries sit at the top level of the JSON object next to updated_at and
// period, which is the shape the dashboard consumes:
//
//	{"updated_at": "...", "period": "90d", "btc": {"longs": [...], ...}, ...}
type Snapshot struct {
	UpdatedAt string
	Period    string
	Coins     map[string]CoinSeries
}

// MarshalJSON flattens the coin map into the top-level object.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(s.Coins)+2)
	doc["updated_at"] = s.UpdatedAt
	doc["period"] = s.Period
	for key, coin := range s.Coins {
		if key == "updated_at" || key == "period" {
			return nil, fmt.Errorf("coin key %q collides with a reserved field", key)
		}
		doc[key] = coin
	}
	return json.Marshal(doc)
}

// UnmarshalJSON is the inverse of MarshalJSON: every key that is not
// updated_at or period is treated as a coin entry.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Coins = make(map[string]CoinSeries)
	for key, val := range raw {
		switch key {
		case "updated_at":
			if err := json.Unmarshal(val, &s.UpdatedAt); err != nil {
				return fmt.Errorf("invalid updated_at: %w", err)
			}
		case "period":
			if err := json.Unmarshal(val, &s.Period); err != nil {
				return fmt.Errorf("invalid period: %w", err)
			}
		default:
			var coin CoinSeries
			if err := json.Unmarshal(val, &coin); err != nil {
				return fmt.Errorf("invalid coin entry %q: %w", key, err)
			}
			s.Coins[key] = coin
		}
	}
	return nil
}

// Meta is the process-wide summary document, rewritten in full on every run.
type Meta struct {
	LastUpdated string            `json:"last_updated"`
	Coins       []string          `json:"coins"`
	Periods     []string          `json:"periods"`
	Symbols     map[string]string `json:"symbols"`
}
