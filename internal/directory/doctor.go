// Package directory holds the active-doctor roster and the filter engine
// patients use to narrow it.
package directory

// Doctor is one roster entry as the HMS reports it. The workflow treats
// roster entries as read-only.
type Doctor struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Specialization  string  `json:"specialization"`
	Qualification   string  `json:"qualification"`
	Experience      int     `json:"experience"`
	ConsultationFee float64 `json:"consultationFee"`
	Active          bool    `json:"active"`
}

// Specializations is the fixed set the portal offers as filter choices.
var Specializations = []string{
	"Cardiology", "Dermatology", "General Medicine", "Pediatrics",
	"Orthopedics", "Neurology", "Gynecology", "ENT", "Ophthalmology",
	"Psychiatry", "Dentistry",
}

// ExperienceTier returns the display tier for a doctor's years of
// experience, matching the badges the portal has always shown.
func ExperienceTier(years int) string {
	switch {
	case years >= 15:
		return "Expert"
	case years >= 10:
		return "Senior"
	case years >= 5:
		return "Experienced"
	default:
		return "Doctor"
	}
}
