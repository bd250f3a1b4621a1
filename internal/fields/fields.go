// Package fields converts raw listing text into typed values.
package fields

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/IshaanNene/catalogcrawl/internal/types"
)

// MaxRating is the top of the rating scale.
const MaxRating = 5.0

var (
	currencyPrefixes = []string{"Rs.", "Rs", "₹"}
	groupSeparator   = strings.NewReplacer(",", "")

	errEmpty      = errors.New("empty value")
	errNegative   = errors.New("negative value")
	errNotFinite  = errors.New("value is not a finite number")
	errOutOfRange = errors.New("rating outside 0-5")
)

// ParseCurrency parses a price such as "Rs. 1,299" into 1299.
func ParseCurrency(text string) (float64, error) {
	s := strings.TrimSpace(text)
	for _, prefix := range currencyPrefixes {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
			break
		}
	}
	s = groupSeparator.Replace(s)
	if s == "" {
		return 0, &types.ParseError{Field: "currency", Value: text, Err: errEmpty}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &types.ParseError{Field: "currency", Value: text, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &types.ParseError{Field: "currency", Value: text, Err: errNotFinite}
	}
	if v < 0 {
		return 0, &types.ParseError{Field: "currency", Value: text, Err: errNegative}
	}
	return v, nil
}

// ParseReviewCount parses counts such as "150" or "2.5k".
// Empty input is not an error: it means no reviews and yields 0.
func ParseReviewCount(text string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0, nil
	}

	if prefix, ok := strings.CutSuffix(s, "k"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(prefix), 64)
		if err != nil {
			return 0, &types.ParseError{Field: "review_count", Value: text, Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &types.ParseError{Field: "review_count", Value: text, Err: errNotFinite}
		}
		if v < 0 {
			return 0, &types.ParseError{Field: "review_count", Value: text, Err: errNegative}
		}
		return int(v * 1000), nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &types.ParseError{Field: "review_count", Value: text, Err: err}
	}
	if n < 0 {
		return 0, &types.ParseError{Field: "review_count", Value: text, Err: errNegative}
	}
	return n, nil
}

// ParseRating parses a rating on the 0-5 scale. Absent, malformed or
// out-of-range input yields 0, the unrated sentinel.
func ParseRating(text string) float64 {
	v, err := ParseRatingValue(text)
	if err != nil {
		return 0
	}
	return v
}

// ParseRatingValue is the strict form of ParseRating.
func ParseRatingValue(text string) (float64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, &types.ParseError{Field: "rating", Value: text, Err: errEmpty}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &types.ParseError{Field: "rating", Value: text, Err: err}
	}
	if math.IsNaN(v) || v < 0 || v > MaxRating {
		return 0, &types.ParseError{Field: "rating", Value: text, Err: errOutOfRange}
	}
	return v, nil
}

// Discount returns the discount of sale against mrp as a percentage rounded
// to two decimals, clamped to [0, 100]. A zero MRP yields 0.
func Discount(mrp, sale float64) float64 {
	if mrp <= 0 {
		return 0
	}
	pct := math.Round((mrp-sale)/mrp*100*100) / 100
	return math.Min(100, math.Max(0, pct))
}

// TitleCase trims s and upper-cases the first letter of every word. Word
// boundaries follow Unicode rules, so "o'neil" becomes "O'neil".
func TitleCase(s string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(s))
}
