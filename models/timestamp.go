package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayouts are tried in order when decoding. The adjudication backend
// serializes naive datetimes without a zone, and date-only values for
// treatment dates entered by users.
var timestampLayouts = []struct {
	layout  string
	hasTime bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02 15:04:05.999999999-07:00", true},
	{"2006-01-02 15:04:05.999999999", true},
	{"2006-01-02", false},
}

// Timestamp is a point in time as reported by the backend. HasTime records
// whether the source value carried a time of day, which decides how it is
// displayed.
type Timestamp struct {
	time.Time
	HasTime bool
}

// NewTimestamp wraps t as a timestamp with a time of day.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, HasTime: true}
}

// NewDate wraps t as a calendar date.
func NewDate(t time.Time) Timestamp {
	return Timestamp{Time: t, HasTime: false}
}

// ParseTimestamp parses any of the layouts the backend is known to emit.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, l := range timestampLayouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			return Timestamp{Time: t, HasTime: l.hasTime}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// MarshalJSON encodes date-only values as YYYY-MM-DD and everything else as RFC3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	if !t.HasTime {
		return json.Marshal(t.Format("2006-01-02"))
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer so timestamps can be written by pgx.
func (t Timestamp) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.Time, nil
}

// Scan implements sql.Scanner for TIMESTAMPTZ columns.
func (t *Timestamp) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = Timestamp{}
	case time.Time:
		*t = NewTimestamp(v)
	case string:
		parsed, err := ParseTimestamp(v)
		if err != nil {
			return err
		}
		*t = parsed
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", value)
	}
	return nil
}
