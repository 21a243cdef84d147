// Package weather provides current-conditions lookups for a city.
package weather

import (
	"context"
	"encoding/json"
	"strconv"
)

// NA is the sentinel used for every field of an unavailable snapshot.
const NA = "NA"

// Reading is a numeric observation that may be missing.
// It marshals to a JSON number when valid and to "NA" otherwise.
type Reading struct {
	Value float64
	Valid bool
}

// Value returns a valid reading.
func Value(v float64) Reading {
	return Reading{Value: v, Valid: true}
}

// String renders the reading the way prompts show it.
func (r Reading) String() string {
	if !r.Valid {
		return NA
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// MarshalJSON implements json.Marshaler.
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return json.Marshal(NA)
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON accepts a number or the "NA" sentinel.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Reading{}
		if s == NA || s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*r = Value(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Value(v)
	return nil
}

// Snapshot is the current weather for a city.
type Snapshot struct {
	Temp      Reading `json:"temp"`      // °C
	Humidity  Reading `json:"humidity"`  // %
	Condition string  `json:"condition"` // e.g. "light rain"
}

// Unavailable returns the all-sentinel snapshot.
func Unavailable() Snapshot {
	return Snapshot{Condition: NA}
}

// Available reports whether every field carries a real observation.
func (s Snapshot) Available() bool {
	return s.Temp.Valid && s.Humidity.Valid && s.Condition != "" && s.Condition != NA
}

// Lookup resolves the current weather for a city.
// On error the returned snapshot is Unavailable(), never partially filled.
type Lookup interface {
	Current(ctx context.Context, city string) (Snapshot, error)
}
