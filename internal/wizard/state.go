package wizard

// State is the wizard's position in the booking flow.
type State string

const (
	// StateBrowsing is the initial state: no doctor selected yet.
	StateBrowsing State = "browsing"
	// StateDoctorChosen has a doctor fixed but no date.
	StateDoctorChosen State = "doctor_chosen"
	// StateFetchingSlots has an availability request in flight for the
	// current (doctor, date) pair.
	StateFetchingSlots State = "fetching_slots"
	// StateSlotsReady has at least one open slot to choose from.
	StateSlotsReady State = "slots_ready"
	// StateNoSlots means the doctor is fully booked on the chosen date.
	StateNoSlots State = "no_slots"
	// StateFetchFailed means the availability call failed; the patient may
	// retry or change the selection.
	StateFetchFailed State = "fetch_failed"
	// StateSlotChosen has a slot fixed; the reason text may still change.
	StateSlotChosen State = "slot_chosen"
	// StateSubmitting has exactly one booking request in flight.
	StateSubmitting State = "submitting"
	// StateBooked is terminal; a new wizard is needed for another booking.
	StateBooked State = "booked"
)

// SubmissionStatus tracks the booking request independently of the wizard
// position, for display.
type SubmissionStatus string

const (
	SubmissionIdle      SubmissionStatus = "idle"
	SubmissionInFlight  SubmissionStatus = "submitting"
	SubmissionSucceeded SubmissionStatus = "succeeded"
	SubmissionFailed    SubmissionStatus = "failed"
)

// Event identifies a transition the hosting UI may want to react to, e.g.
// by scrolling the newly revealed step into view.
type Event string

const (
	EventDoctorSelected   Event = "doctor_selected"
	EventDateSelected     Event = "date_selected"
	EventSlotsReady       Event = "slots_ready"
	EventNoSlots          Event = "no_slots"
	EventFetchFailed      Event = "fetch_failed"
	EventSlotSelected     Event = "slot_selected"
	EventSubmitting       Event = "submitting"
	EventBooked           Event = "booked"
	EventSubmissionFailed Event = "submission_failed"
)

// Observer receives transition events. Called outside the wizard lock, in
// transition order; implementations must not call back into the wizard
// synchronously from the callback goroutine if they block.
type Observer func(Event)
