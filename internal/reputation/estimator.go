// Package reputation derives synthetic reputation figures for doctors.
//
// The HMS has no reputation subsystem yet, so the portal derives stable
// stand-in figures from the doctor identifier. The same identifier always
// yields the same figures, across calls, processes, and deployments, so a
// roster card and a rating filter never disagree. When a real reputation
// source ships server-side, only Estimate needs to be replaced.
package reputation

// Estimate holds the derived figures for one doctor.
type Estimate struct {
	Rating       float64 `json:"rating"`       // [3.5, 5.0] in 0.1 steps
	ReviewCount  int     `json:"reviewCount"`  // [50, 250)
	PatientCount int     `json:"patientCount"` // [100, 1000)
}

// EstimateFor computes the reputation figures for a doctor identifier.
// The seed multiplier matches the figures the portal has always shown,
// so they must not change.
func EstimateFor(doctorID int64) Estimate {
	seed := doctorID * 7
	return Estimate{
		Rating:       3.5 + float64(seed%15)/10,
		ReviewCount:  int(50 + seed%200),
		PatientCount: int(100 + seed%900),
	}
}
