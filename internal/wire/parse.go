package wire

import (
	"time"

	"github.com/shopspring/decimal"
)

// Timestamp layouts, tried in order. The backend normally emits fractional
// seconds with a zone designator; older rows lack the fraction, and a few
// migration-era rows lack the zone (treated as UTC).
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

const dateOnlyLayout = "2006-01-02"

// ParseTimestamp parses an ISO-8601 audit timestamp.
// Returns false when no layout matches.
func ParseTimestamp(s string) (time.Time, bool) {
	for i, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if i < 2 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.UTC)
		}
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TimestampOr parses an audit timestamp, returning fallback when unparsable.
// updated_at-class fields fall back to the caller's "now".
func TimestampOr(s string, fallback time.Time) time.Time {
	if t, ok := ParseTimestamp(s); ok {
		return t
	}
	return fallback
}

// ParseTimestampPtr parses an optional audit timestamp, nil when unparsable.
func ParseTimestampPtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	if t, ok := ParseTimestamp(*s); ok {
		return &t
	}
	return nil
}

// ParseDateOnly parses a YYYY-MM-DD business date in the local calendar.
// When the value is actually a full timestamp (some rows are), it is
// normalized to local midnight of the UTC calendar date.
// Returns nil when unparsable; business dates are optional.
func ParseDateOnly(s string) *time.Time {
	if t, err := time.ParseInLocation(dateOnlyLayout, s, time.Local); err == nil {
		return &t
	}
	t, ok := ParseTimestamp(s)
	if !ok {
		return nil
	}
	y, m, d := t.UTC().Date()
	local := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return &local
}

// ParseDateOnlyPtr is ParseDateOnly over an optional field.
func ParseDateOnlyPtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	return ParseDateOnly(*s)
}

// FormatTimestamp renders an audit timestamp in the backend's canonical
// form: UTC, millisecond precision, Z designator.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// FormatTimestampPtr renders an optional audit timestamp.
func FormatTimestampPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTimestamp(*t)
	return &s
}

// FormatDateOnly renders a business date as YYYY-MM-DD in the local calendar.
func FormatDateOnly(t time.Time) string {
	return t.Format(dateOnlyLayout)
}

// FormatDateOnlyPtr renders an optional business date.
func FormatDateOnlyPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatDateOnly(*t)
	return &s
}

// ParseMoney parses a canonical decimal string, zero when unparsable.
// Money never goes through floating point.
func ParseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Epoch is the default sync checkpoint for a first run.
var Epoch = time.Unix(0, 0).UTC()
