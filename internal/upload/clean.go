package upload

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"MaintBackOffice/internal/config"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Record is a canonical record keyed by field name. Values are string,
// float64 or time.Time.
type Record map[string]any

// Cleaned is the validator's output for one row. Provided lists the fields the
// file actually supplied, in column order; defaulted fields are not in it.
type Cleaned struct {
	Record   Record
	Provided []string
	Errors   []string
}

func (c Cleaned) IsProvided(name string) bool {
	for _, p := range c.Provided {
		if p == name {
			return true
		}
	}
	return false
}

func (c Cleaned) Valid() bool { return len(c.Errors) == 0 }

var errNegative = errors.New("cannot be negative")

var placeholderValues = map[string]bool{"undefined": true, "null": true}

var absentNumbers = map[string]bool{"-": true, "na": true, "n/a": true}

// Clean maps one data row onto the schema. Validation stops right after the
// required-field check when a required field is missing, so such rows report
// only what is missing.
func (s *Schema) Clean(row []string, hm *HeaderMap, now time.Time) Cleaned {
	c := Cleaned{Record: Record{}}
	for _, col := range hm.columns {
		if col.index >= len(row) {
			continue
		}
		raw := strings.TrimSpace(row[col.index])
		if raw == "" || placeholderValues[strings.ToLower(raw)] {
			continue
		}
		switch col.field.Type {
		case TypeNumber:
			v, present, err := CleanNumber(raw)
			if err != nil && !errors.Is(err, errNegative) {
				c.Errors = append(c.Errors, fmt.Sprintf("%s must be a number (got %q)", col.field.Name, raw))
				continue
			}
			if !present {
				continue
			}
			c.Record[col.field.Name] = v
		case TypeTime:
			ts, err := parseTime(raw)
			if err != nil {
				c.Errors = append(c.Errors, fmt.Sprintf("%s is not a valid date (got %q)", col.field.Name, raw))
				continue
			}
			c.Record[col.field.Name] = ts
		default:
			c.Record[col.field.Name] = collapseSpaces(raw)
		}
		c.Provided = append(c.Provided, col.field.Name)
	}

	var missing []string
	for _, name := range s.Required {
		if _, ok := c.Record[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		for _, name := range missing {
			c.Errors = append(c.Errors, name+" is required")
		}
		return c
	}

	for _, f := range s.Fields {
		v, ok := c.Record[f.Name]
		if !ok {
			continue
		}
		switch f.Type {
		case TypeString, TypeStatus:
			if f.MaxLen > 0 && utf8.RuneCountInString(v.(string)) > f.MaxLen {
				c.Errors = append(c.Errors, fmt.Sprintf("%s exceeds maximum length of %d characters", f.Name, f.MaxLen))
			}
		case TypeNumber:
			if v.(float64) < 0 {
				c.Errors = append(c.Errors, fmt.Sprintf("%s %s", f.Name, errNegative))
			}
		}
	}

	for _, f := range s.Fields {
		if _, ok := c.Record[f.Name]; ok {
			continue
		}
		switch {
		case f.Type == TypeStatus:
			c.Record[f.Name] = DefaultStatus
		case f.HasDefault:
			c.Record[f.Name] = f.Default
		}
	}
	if _, ok := c.Record[CreatedAtField]; !ok {
		c.Record[CreatedAtField] = now
	}
	c.Record[ModifiedAtField] = now
	return c
}

// currencyTokens are removed from lowercased number cells before parsing.
// "rs." precedes "rs" so the dot goes with the prefix.
var currencyTokens = strings.NewReplacer("₹", "", "$", "", "rs.", "", "rs", "", "inr", "", ",", "")

// CleanNumber strips currency symbols and thousands separators and parses the
// rest, exponents included. Anything else left in the cell is an error. "-",
// "na" and "n/a" mean absent. A negative value is returned together with an
// error so callers can still report it.
func CleanNumber(raw string) (float64, bool, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if absentNumbers[s] {
		return 0, false, nil
	}
	s = strings.Join(strings.Fields(currencyTokens.Replace(s)), "")
	if s == "" {
		return 0, false, fmt.Errorf("no digits in %q", raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false, fmt.Errorf("parse %q: %w", raw, err)
	}
	f := d.InexactFloat64()
	if d.IsNegative() {
		return f, true, errNegative
	}
	return f, true, nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
	"01-02-06",
	"02-Jan-2006",
	"2 Jan 2006",
}

var uploadLocation = func() *time.Location {
	loc, err := time.LoadLocation(config.DefaultTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}()

// parseTime accepts the layouts spreadsheets commonly render dates in, day
// first, and raw Excel serial numbers.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, uploadLocation); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return excelize.ExcelDateToTime(serial, false)
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// stringify renders stored and incoming values the same way so that 100,
// 100.0 and "100" compare equal.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case decimal.Decimal:
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}
