package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/unavoidables/internal/shared"
)

// Week is a chart week token such as "19 07".
//
// Raw keeps the display string. Year and Number are set when the token is two numeric parts.
type Week struct {
	Raw    string
	Year   int
	Number int
	valid  bool
}

// ParseWeek parses a week token. Tokens that are not two numeric parts keep only Raw.
//
// An empty token is an error.
func ParseWeek(s string) (Week, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Week{}, fmt.Errorf("%w: empty week", shared.ErrMalformedRecord)
	}

	w := Week{Raw: raw}
	parts := strings.Fields(raw)
	if len(parts) != 2 {
		return w, nil
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return w, nil
	}
	number, err := strconv.Atoi(parts[1])
	if err != nil {
		return w, nil
	}

	w.Year, w.Number, w.valid = year, number, true
	return w, nil
}

// Structured reports whether Year and Number were parsed.
func (w Week) Structured() bool {
	return w.valid
}

// String returns the display token.
func (w Week) String() string {
	return w.Raw
}

// Compare returns -1, 0 or 1. Two structured weeks compare by (year, number), anything else by string.
func (w Week) Compare(other Week) int {
	if w.valid && other.valid {
		switch {
		case w.Year != other.Year:
			return cmpInt(w.Year, other.Year)
		default:
			return cmpInt(w.Number, other.Number)
		}
	}
	return strings.Compare(w.Raw, other.Raw)
}

// PadWeek left-pads every whitespace separated token to two characters with zeros.
func PadWeek(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		if len(p) < 2 {
			parts[i] = strings.Repeat("0", 2-len(p)) + p
		}
	}
	return strings.Join(parts, " ")
}

// CompareWeeks parses and compares two week tokens.
//
// Unparseable tokens fall back to plain string comparison.
func CompareWeeks(a, b string) int {
	wa, errA := ParseWeek(a)
	wb, errB := ParseWeek(b)
	if errA != nil || errB != nil {
		return strings.Compare(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return wa.Compare(wb)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
