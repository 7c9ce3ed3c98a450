// Package estimate derives a consensus estimate from a round of votes.
// Every function is pure; callers recompute on demand instead of storing results.
package estimate

import (
	"math"

	"scrumtools/backend/internal/poker/domain"
)

// Summary is the aggregate shown after votes are revealed.
type Summary struct {
	Average      float64
	Nearest      float64
	HasNearest   bool
	Min          float64
	Max          float64
	NumericCount int
	TotalCount   int
}

// Numeric returns the numeric votes, skipping the unknown card and anything that does not parse.
func Numeric(values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := domain.ParseNumeric(v); ok {
			out = append(out, f)
		}
	}
	return out
}

// Average is the mean of the numeric votes rounded to one decimal, or 0 when there are none.
func Average(values []string) float64 {
	nums := Numeric(values)
	if len(nums) == 0 {
		return 0
	}
	var sum float64
	for _, n := range nums {
		sum += n
	}
	return round1(sum / float64(len(nums)))
}

// NearestScaleValue returns the member of scale closest to avg. scale must be ascending;
// on a tie the lower value wins because only a strictly smaller distance replaces the current pick.
func NearestScaleValue(avg float64, scale []float64) (float64, bool) {
	if len(scale) == 0 {
		return 0, false
	}
	best := scale[0]
	bestDiff := math.Abs(scale[0] - avg)
	for _, v := range scale[1:] {
		if d := math.Abs(v - avg); d < bestDiff {
			best, bestDiff = v, d
		}
	}
	return best, true
}

// Min returns the smallest numeric vote, or 0 when there are none.
func Min(values []string) float64 {
	nums := Numeric(values)
	if len(nums) == 0 {
		return 0
	}
	m := nums[0]
	for _, n := range nums[1:] {
		m = math.Min(m, n)
	}
	return m
}

// Max returns the largest numeric vote, or 0 when there are none.
func Max(values []string) float64 {
	nums := Numeric(values)
	if len(nums) == 0 {
		return 0
	}
	m := nums[0]
	for _, n := range nums[1:] {
		m = math.Max(m, n)
	}
	return m
}

// Summarize aggregates values against the numeric members of a scale.
// Nearest is only set when at least one numeric vote exists.
func Summarize(values []string, scale domain.Scale) Summary {
	s := Summary{
		Average:      Average(values),
		Min:          Min(values),
		Max:          Max(values),
		NumericCount: len(Numeric(values)),
		TotalCount:   len(values),
	}
	if s.NumericCount > 0 {
		s.Nearest, s.HasNearest = NearestScaleValue(s.Average, scale.Numeric())
	}
	return s
}

// ForSession summarizes the session's votes against its own scale.
func ForSession(s *domain.Session) Summary {
	return Summarize(s.VoteValues(), s.Scale)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
