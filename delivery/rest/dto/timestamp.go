package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp accepts epoch milliseconds or a datetime string and always
// marshals as epoch milliseconds
type Timestamp struct {
	time.Time
}

// UnmarshalJSON parses a number (epoch ms) or one of several datetime formats
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	s := strings.Trim(string(b), "\"")
	if s == "" {
		return nil
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		ts.Time = time.UnixMilli(ms).UTC()
		return nil
	}

	var lastErr error

	formatsWithTZ := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z07", // "+08" without minutes
	}
	for _, format := range formatsWithTZ {
		t, err := time.Parse(format, s)
		if err == nil {
			ts.Time = t.UTC()
			return nil
		}
		lastErr = err
	}

	// no zone means UTC
	formatsNoTZ := []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, format := range formatsNoTZ {
		t, err := time.ParseInLocation(format, s, time.UTC)
		if err == nil {
			ts.Time = t
			return nil
		}
		lastErr = err
	}

	return fmt.Errorf("cannot parse time %q: expected epoch milliseconds or YYYY-MM-DDTHH:MM:SSZ: %v", s, lastErr)
}

// MarshalJSON writes epoch milliseconds
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.Time.UnixMilli())
}

// Millis returns the time as epoch milliseconds, nil for a zero or nil value
func (ts *Timestamp) Millis() *int64 {
	if ts == nil || ts.Time.IsZero() {
		return nil
	}
	ms := ts.Time.UnixMilli()
	return &ms
}
