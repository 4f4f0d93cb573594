// Package duration parses and renders Microsoft Project's ISO-8601-derived
// task duration strings (PT<H>H<M>M<S>S) using a fixed 8-hour working day.
package duration

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/jra3/scheduled/internal/apperr"
)

const hoursPerDay = 8.0

var pattern = regexp.MustCompile(`^PT(\d+)H(\d+)M(\d+)S$`)

// Parse converts a duration string of shape PT<H>H<M>M<S>S into a
// canonical hours-decimal value. Non-conforming strings fail with an
// invalid-format error.
func Parse(s string) (float64, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return 0, apperr.Parse(nil, "invalid duration format %q, expected PT<H>H<M>M<S>S", s)
	}
	hours, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, apperr.Parse(err, "invalid hours component in duration %q", s)
	}
	minutes, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, apperr.Parse(err, "invalid minutes component in duration %q", s)
	}
	seconds, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, apperr.Parse(err, "invalid seconds component in duration %q", s)
	}
	return hours + minutes/60 + seconds/3600, nil
}

// Format renders hours as a PT<H>H<M>M<S>S string with seconds always 0
// and minutes derived from any fractional hour remainder.
func Format(hours float64) string {
	if hours < 0 {
		hours = 0
	}
	wholeHours := int(hours)
	remainder := hours - float64(wholeHours)
	minutes := int(remainder*60 + 0.5)
	if minutes >= 60 {
		wholeHours++
		minutes = 0
	}
	return fmt.Sprintf("PT%dH%dM0S", wholeHours, minutes)
}

// ToDays converts an hours-decimal duration into days using the fixed
// 8-hour working day.
func ToDays(hours float64) float64 {
	return hours / hoursPerDay
}

// FromDays converts a days duration back into hours using the fixed
// 8-hour working day.
func FromDays(days float64) float64 {
	return days * hoursPerDay
}

// Zero is the canonical zero-duration string required for milestones.
const Zero = "PT0H0M0S"
