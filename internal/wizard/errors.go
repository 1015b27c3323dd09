package wizard

import "errors"

var (
	// ErrValidationBlocked is returned when a transition's preconditions do
	// not hold. It never reaches the network.
	ErrValidationBlocked = errors.New("wizard: action not allowed in current state")

	// ErrDoctorNotInRoster is returned when the selected doctor is not in
	// the current filtered roster.
	ErrDoctorNotInRoster = errors.New("wizard: doctor not in filtered roster")

	// ErrDateNotFuture is returned when the selected date is not strictly
	// after today.
	ErrDateNotFuture = errors.New("wizard: date must be after today")

	// ErrInvalidDate is returned when the date is not a YYYY-MM-DD value.
	ErrInvalidDate = errors.New("wizard: invalid date")

	// ErrSlotUnavailable is returned when the chosen slot is not in the
	// last-fetched availability set.
	ErrSlotUnavailable = errors.New("wizard: slot not in available set")

	// ErrWizardRetired is returned for any action after a successful
	// booking; a fresh wizard is required.
	ErrWizardRetired = errors.New("wizard: booking already completed")
)

// genericSubmitFailure is shown when the HMS gives no message of its own.
const genericSubmitFailure = "Failed to book appointment"

// userMessenger is implemented by errors that carry a message safe to show
// the patient verbatim (the HMS API error does).
type userMessenger interface {
	UserMessage() string
}
