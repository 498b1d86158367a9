package upload

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanNumber(t *testing.T) {
	tests := []struct {
		in       string
		want     float64
		present  bool
		negative bool
		invalid  bool
	}{
		{in: "₹1,234.50", want: 1234.5, present: true},
		{in: "1234.50", want: 1234.5, present: true},
		{in: "$ 1 200", want: 1200, present: true},
		{in: "-", present: false},
		{in: "N/A", present: false},
		{in: "na", present: false},
		{in: "-5", want: -5, present: true, negative: true},
		{in: "abc", invalid: true},
		{in: "1.2.3", invalid: true},
		{in: "Rs. 1,000", want: 1000, present: true},
		{in: "Rs 750", want: 750, present: true},
		{in: "INR 2,500.25", want: 2500.25, present: true},
		{in: "1.5E+3", want: 1500, present: true},
		{in: "1e5", want: 100000, present: true},
		{in: "12abc34", invalid: true},
		{in: "Rs.", invalid: true},
		{in: "10 USD", invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, present, err := CleanNumber(tt.in)
			switch {
			case tt.invalid:
				assert.Error(t, err)
				assert.False(t, present)
			case tt.negative:
				assert.ErrorIs(t, err, errNegative)
				assert.True(t, present)
				assert.Equal(t, tt.want, got)
			default:
				assert.NoError(t, err)
				assert.Equal(t, tt.present, present)
				if tt.present {
					assert.Equal(t, tt.want, got)
				}
			}
		})
	}
}

func cleanRow(t *testing.T, headers, row []string) Cleaned {
	t.Helper()
	s := priceSchema(t)
	hm := s.MapHeaders(NewNormalizer(), headers)
	return s.Clean(row, hm, fixedNow)
}

func TestCleanAppliesDefaultsAndTracksProvided(t *testing.T) {
	c := cleanRow(t,
		[]string{"Part Number", "Product", "CMC Price", "NCMC Price"},
		[]string{"PN-1", "  Ultra   Sound\tProbe ", "₹1,000", "1500"})

	require.True(t, c.Valid(), c.Errors)
	assert.Equal(t, []string{"partNumber", "product", "cmcPrice", "ncmcPrice"}, c.Provided)
	assert.Equal(t, "Ultra Sound Probe", c.Record["product"])
	assert.Equal(t, 1000.0, c.Record["cmcPrice"])
	assert.Equal(t, DefaultStatus, c.Record[StatusField])
	assert.Equal(t, "", c.Record["description"])
	assert.Equal(t, "", c.Record["remarks"])
	assert.Equal(t, fixedNow, c.Record[CreatedAtField])
	assert.Equal(t, fixedNow, c.Record[ModifiedAtField])
	assert.False(t, c.IsProvided(StatusField))
}

func TestCleanSkipsPlaceholders(t *testing.T) {
	c := cleanRow(t,
		[]string{"Part Number", "Desc", "CMC Price", "NCMC Price", "Status"},
		[]string{"PN-1", "undefined", "10", "n/a", "NULL"})

	assert.Equal(t, []string{"ncmcPrice is required"}, c.Errors)
	assert.False(t, c.IsProvided("description"))
	assert.False(t, c.IsProvided(StatusField))
}

func TestCleanStopsAfterMissingRequired(t *testing.T) {
	c := cleanRow(t,
		[]string{"Part Number", "Desc", "CMC Price", "NCMC Price"},
		[]string{"", strings.Repeat("x", 50), "-3", "10"})

	assert.Equal(t, []string{"partNumber is required"}, c.Errors)
}

func TestCleanReportsEveryRuleOnceRequiredPresent(t *testing.T) {
	c := cleanRow(t,
		[]string{"Part Number", "Desc", "CMC Price", "NCMC Price"},
		[]string{"PN-1", strings.Repeat("x", 21), "-3", "10"})

	assert.False(t, c.Valid())
	assert.Equal(t, []string{
		"description exceeds maximum length of 20 characters",
		"cmcPrice cannot be negative",
	}, c.Errors)
}

func TestCleanRejectsNonNumeric(t *testing.T) {
	c := cleanRow(t,
		[]string{"Part Number", "CMC Price", "NCMC Price"},
		[]string{"PN-1", "twelve", "10"})

	assert.Contains(t, c.Errors, `cmcPrice must be a number (got "twelve")`)
	assert.Contains(t, c.Errors, "cmcPrice is required")
}

func TestCleanRejectsDigitsMixedWithLetters(t *testing.T) {
	c := cleanRow(t,
		[]string{"Part Number", "CMC Price", "NCMC Price"},
		[]string{"PN-1", "12abc34", "Rs. 1,000"})

	assert.Contains(t, c.Errors, `cmcPrice must be a number (got "12abc34")`)
	assert.NotContains(t, c.Record, "cmcPrice")
	assert.Equal(t, 1000.0, c.Record["ncmcPrice"])
}

func TestCleanKeepsSuppliedCreatedAt(t *testing.T) {
	c := cleanRow(t,
		[]string{"Part Number", "CMC Price", "NCMC Price", "Created Date"},
		[]string{"PN-1", "1", "2", "15/01/2026"})

	require.True(t, c.Valid(), c.Errors)
	created := c.Record[CreatedAtField].(time.Time)
	assert.Equal(t, 2026, created.Year())
	assert.Equal(t, time.January, created.Month())
	assert.Equal(t, 15, created.Day())
	assert.Equal(t, fixedNow, c.Record[ModifiedAtField])
}

func TestParseTimeExcelSerial(t *testing.T) {
	got, err := parseTime("45658")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "100", stringify(100.0))
	assert.Equal(t, "100", stringify(int32(100)))
	assert.Equal(t, "100", stringify("100"))
	assert.Equal(t, "1234.5", stringify(1234.50))
	assert.Equal(t, "", stringify(nil))
}
