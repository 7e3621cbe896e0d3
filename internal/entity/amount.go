package entity

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNotANumber     = errors.New("price is not a number")
	ErrNegativeAmount = errors.New("price must not be negative")
)

// leading numeric prefix, the same prefix parseFloat would consume
var reFloatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseAmount parses the leading number of s ("12.50", " 7abc", "1e2") and
// rejects negatives and non-numbers.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	m := reFloatPrefix.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	if f < 0 {
		return 0, fmt.Errorf("%w: %q", ErrNegativeAmount, s)
	}
	return f, nil
}
