package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Unknown is the "no idea" card. It is a valid vote but never counts toward the estimate.
const Unknown = "?"

// DefaultScaleValues is the Fibonacci-like card deck used when no scale is configured.
var DefaultScaleValues = []string{"1", "2", "3", "5", "8", "13", "21", "34", "55", "89", Unknown}

// Scale is the ordered set of values a vote may take. It is immutable once built.
type Scale struct {
	values  []string
	numeric []float64
}

// NewScale validates values and builds a Scale. Values are trimmed; blanks and duplicates are rejected.
func NewScale(values []string) (Scale, error) {
	if len(values) == 0 {
		return Scale{}, fmt.Errorf("%w: scale is empty", ErrInvalidArgument)
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	var numeric []float64
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return Scale{}, fmt.Errorf("%w: scale contains a blank value", ErrInvalidArgument)
		}
		if _, dup := seen[v]; dup {
			return Scale{}, fmt.Errorf("%w: scale value %q repeated", ErrInvalidArgument, v)
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if f, ok := ParseNumeric(v); ok {
			numeric = append(numeric, f)
		}
	}
	sort.Float64s(numeric)
	return Scale{values: out, numeric: numeric}, nil
}

// ParseScale builds a Scale from a comma separated list such as "1,2,3,5,8,?".
func ParseScale(csv string) (Scale, error) {
	if strings.TrimSpace(csv) == "" {
		return DefaultScale(), nil
	}
	return NewScale(strings.Split(csv, ","))
}

// DefaultScale returns the default deck.
func DefaultScale() Scale {
	s, _ := NewScale(DefaultScaleValues)
	return s
}

// Contains reports whether v is a card of the scale.
func (s Scale) Contains(v string) bool {
	for _, x := range s.values {
		if x == v {
			return true
		}
	}
	return false
}

// Values returns the cards in display order.
func (s Scale) Values() []string {
	return append([]string(nil), s.values...)
}

// Numeric returns the numeric cards in ascending order.
func (s Scale) Numeric() []float64 {
	return append([]float64(nil), s.numeric...)
}

// IsZero reports whether the scale was never built.
func (s Scale) IsZero() bool {
	return len(s.values) == 0
}

// String renders the scale in the same comma separated form ParseScale accepts.
func (s Scale) String() string {
	return strings.Join(s.values, ",")
}

// ParseNumeric parses a vote value as a finite number. The unknown card and anything else non-numeric return false.
func ParseNumeric(v string) (float64, bool) {
	if v == Unknown {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
