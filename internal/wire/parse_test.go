package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestampLayouts(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want time.Time
	}{
		{
			name: "fractional with zone",
			in:   "2025-03-15T10:30:00.123Z",
			want: time.Date(2025, 3, 15, 10, 30, 0, 123000000, time.UTC),
		},
		{
			name: "no fraction with zone",
			in:   "2025-03-15T10:30:00Z",
			want: time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "fractional without zone is UTC",
			in:   "2025-03-15T10:30:00.5",
			want: time.Date(2025, 3, 15, 10, 30, 0, 500000000, time.UTC),
		},
		{
			name: "bare without zone is UTC",
			in:   "2025-03-15T10:30:00",
			want: time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "offset zone",
			in:   "2025-03-15T10:30:00+03:00",
			want: time.Date(2025, 3, 15, 10, 30, 0, 0, time.FixedZone("", 3*3600)),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tc.in)
			require.True(t, ok)
			assert.True(t, tc.want.Equal(got), "want %v, got %v", tc.want, got)
		})
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2025-13-45T99:99:99Z"} {
		_, ok := ParseTimestamp(in)
		assert.False(t, ok, "input %q", in)
	}
}

func TestTimestampOrFallback(t *testing.T) {
	fallback := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, fallback, TimestampOr("not a time", fallback))

	parsed := TimestampOr("2025-03-15T10:30:00Z", fallback)
	assert.Equal(t, time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC), parsed.UTC())
}

func TestParseDateOnly(t *testing.T) {
	got := ParseDateOnly("2025-03-15")
	require.NotNil(t, got)
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 15, got.Day())
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, time.Local, got.Location())
}

func TestParseDateOnlyTimestampFallback(t *testing.T) {
	// A full timestamp in a business-date field normalizes to local
	// midnight of the UTC calendar date.
	got := ParseDateOnly("2025-03-15T23:45:00Z")
	require.NotNil(t, got)
	assert.Equal(t, 15, got.Day())
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, time.Local, got.Location())
}

func TestParseDateOnlyUnparsable(t *testing.T) {
	assert.Nil(t, ParseDateOnly("soon"))
	assert.Nil(t, ParseDateOnlyPtr(nil))
}

func TestFormatTimestampCanonical(t *testing.T) {
	in := time.Date(2025, 3, 15, 13, 30, 0, 123000000, time.FixedZone("", 3*3600))
	assert.Equal(t, "2025-03-15T10:30:00.123Z", FormatTimestamp(in))
}

func TestFormatDateOnly(t *testing.T) {
	in := time.Date(2025, 3, 5, 14, 0, 0, 0, time.Local)
	assert.Equal(t, "2025-03-05", FormatDateOnly(in))
}

func TestParseMoneyExact(t *testing.T) {
	d := ParseMoney("1234.50")
	assert.Equal(t, "1234.5", d.String())
	assert.True(t, d.Equal(decimal.RequireFromString("1234.50")))

	// Values that lose precision as float64 stay exact.
	big := ParseMoney("99999999999999999.99")
	assert.Equal(t, "99999999999999999.99", big.String())

	assert.True(t, ParseMoney("garbage").IsZero())
}

func TestDecimalUnmarshal(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"string", `"1234.50"`, "1234.5"},
		{"bare number", `1234.5`, "1234.5"},
		{"null", `null`, "0"},
		{"garbage string", `"lots"`, "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var d Decimal
			require.NoError(t, json.Unmarshal([]byte(tc.in), &d))
			assert.Equal(t, tc.want, d.String())
		})
	}
}

func TestDecimalMarshalAsString(t *testing.T) {
	d := NewDecimal(decimal.RequireFromString("10.25"))
	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"10.25"`, string(out))
}
