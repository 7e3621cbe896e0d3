package receipts

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/zero-paper-user/internal/entity"
)

// ParsePrice coerces a decoded JSON value to a non-negative float. Strings
// are read with parseFloat semantics, so "12.50" and "12.50 EUR" both give 12.5.
func ParsePrice(v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: missing", entity.ErrNotANumber)
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		return entity.ParseAmount(t.String())
	case string:
		return entity.ParseAmount(t)
	default:
		return 0, fmt.Errorf("%w: %T", entity.ErrNotANumber, v)
	}
	if f < 0 {
		return 0, fmt.Errorf("%w: %v", entity.ErrNegativeAmount, f)
	}
	return f, nil
}

// isoMillis is the JavaScript Date#toISOString layout the backend expects.
const isoMillis = "2006-01-02T15:04:05.000Z"

var reEuropean = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})(?:[ T]+(\d{1,2}):(\d{2}))?$`)

// ParseEuropeanDateTime converts "DD.MM.YYYY HH:MM" (time optional) into an
// ISO-8601 UTC timestamp. The wall clock is taken as UTC, so
// "25.12.2023 14:30" becomes "2023-12-25T14:30:00.000Z" on every host.
func ParseEuropeanDateTime(s string) (string, error) {
	m := reEuropean.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", fmt.Errorf("date %q is not DD.MM.YYYY HH:MM", s)
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, minute := 0, 0
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
	}
	if hour > 23 || minute > 59 {
		return "", fmt.Errorf("date %q has an invalid time", s)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	// time.Date normalizes 31.02 into March; reject instead.
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return "", fmt.Errorf("date %q does not exist", s)
	}
	return t.Format(isoMillis), nil
}

// NormalizeDate accepts either a European date or an ISO-8601 timestamp and
// returns ISO-8601. Empty input stays empty.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if reEuropean.MatchString(s) {
		return ParseEuropeanDateTime(s)
	}
	t, err := entity.ParseTimestamp(s)
	if err != nil {
		return "", fmt.Errorf("date %q is neither DD.MM.YYYY HH:MM nor ISO-8601", s)
	}
	return t.UTC().Format(isoMillis), nil
}
