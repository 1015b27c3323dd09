package directory

import (
	"strings"

	"github.com/medicare-hms/portal-booking/internal/reputation"
)

// ExperienceBucket is a coarse years-of-experience range. Upper bounds are
// inclusive: "5-10" means more than 5 and at most 10 years.
type ExperienceBucket string

const (
	Experience0To5   ExperienceBucket = "0-5"
	Experience5To10  ExperienceBucket = "5-10"
	Experience10To15 ExperienceBucket = "10-15"
	Experience15Plus ExperienceBucket = "15+"
)

// FeeBucket is a coarse consultation-fee range with inclusive upper bounds.
type FeeBucket string

const (
	Fee0To500     FeeBucket = "0-500"
	Fee500To1000  FeeBucket = "500-1000"
	Fee1000To1500 FeeBucket = "1000-1500"
	Fee1500Plus   FeeBucket = "1500+"
)

// Criteria narrows the roster. Every field is optional; zero values match
// everything, populated fields combine with logical AND.
type Criteria struct {
	Specialization string           `json:"specialization,omitempty"`
	Experience     ExperienceBucket `json:"experience,omitempty"`
	Fee            FeeBucket        `json:"fee,omitempty"`
	MinRating      float64          `json:"minRating,omitempty"`
	NameQuery      string           `json:"nameQuery,omitempty"`
}

// IsZero reports whether no criterion is populated.
func (c Criteria) IsZero() bool {
	return c.Specialization == "" && c.Experience == "" && c.Fee == "" &&
		c.MinRating == 0 && c.NameQuery == ""
}

// Filter returns the doctors matching every populated criterion, in roster
// order. The input is never mutated; the result is always a fresh slice.
func Filter(roster []Doctor, c Criteria) []Doctor {
	out := make([]Doctor, 0, len(roster))
	for _, d := range roster {
		if matches(d, c) {
			out = append(out, d)
		}
	}
	return out
}

func matches(d Doctor, c Criteria) bool {
	if c.Specialization != "" && d.Specialization != c.Specialization {
		return false
	}
	if !matchExperience(d.Experience, c.Experience) {
		return false
	}
	if !matchFee(d.ConsultationFee, c.Fee) {
		return false
	}
	if c.MinRating > 0 && reputation.EstimateFor(d.ID).Rating < c.MinRating {
		return false
	}
	if c.NameQuery != "" &&
		!strings.Contains(strings.ToLower(d.Name), strings.ToLower(c.NameQuery)) {
		return false
	}
	return true
}

// Unrecognized bucket values behave as "no filter", as the original
// portal's switch statements did.
func matchExperience(years int, b ExperienceBucket) bool {
	switch b {
	case Experience0To5:
		return years <= 5
	case Experience5To10:
		return years > 5 && years <= 10
	case Experience10To15:
		return years > 10 && years <= 15
	case Experience15Plus:
		return years > 15
	default:
		return true
	}
}

func matchFee(fee float64, b FeeBucket) bool {
	switch b {
	case Fee0To500:
		return fee <= 500
	case Fee500To1000:
		return fee > 500 && fee <= 1000
	case Fee1000To1500:
		return fee > 1000 && fee <= 1500
	case Fee1500Plus:
		return fee > 1500
	default:
		return true
	}
}
