package wizard

import (
	"github.com/medicare-hms/portal-booking/internal/directory"
	"github.com/medicare-hms/portal-booking/internal/reputation"
)

// DoctorView is a roster entry enriched with the derived reputation
// figures and display tier, as the portal renders it.
type DoctorView struct {
	directory.Doctor
	Reputation     reputation.Estimate `json:"reputation"`
	ExperienceTier string              `json:"experienceTier"`
}

// Snapshot is a read-only view of the wizard for rendering. It shares no
// storage with the wizard; holding one across transitions is safe.
type Snapshot struct {
	State          State                `json:"state"`
	Criteria       directory.Criteria   `json:"criteria"`
	FilteredRoster []DoctorView         `json:"filteredRoster"`
	SelectedDoctor *DoctorView          `json:"selectedDoctor,omitempty"`
	SelectedDate   string               `json:"selectedDate,omitempty"`
	AvailableSlots []string             `json:"availableSlots"`
	SelectedSlot   string               `json:"selectedSlot,omitempty"`
	Reason         string               `json:"reason,omitempty"`
	Submission     SubmissionStatus     `json:"submission"`
	LastError      string               `json:"lastError,omitempty"`
	Confirmation   *Confirmation        `json:"confirmation,omitempty"`
}

// Snapshot returns the current state for rendering.
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		State:          w.state,
		Criteria:       w.criteria,
		FilteredRoster: make([]DoctorView, 0, len(w.filtered)),
		SelectedDate:   w.date,
		AvailableSlots: append([]string{}, w.slots...),
		SelectedSlot:   w.slot,
		Reason:         w.reason,
		Submission:     w.submission,
		LastError:      w.lastError,
	}
	for _, d := range w.filtered {
		s.FilteredRoster = append(s.FilteredRoster, newDoctorView(d))
	}
	if w.doctor != nil {
		v := newDoctorView(*w.doctor)
		s.SelectedDoctor = &v
	}
	if w.confirmation != nil {
		c := *w.confirmation
		s.Confirmation = &c
	}
	return s
}

func newDoctorView(d directory.Doctor) DoctorView {
	return DoctorView{
		Doctor:         d,
		Reputation:     reputation.EstimateFor(d.ID),
		ExperienceTier: directory.ExperienceTier(d.Experience),
	}
}
