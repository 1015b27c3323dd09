package medicare

import (
	"context"

	"github.com/medicare-hms/portal-booking/internal/wizard"
)

// BookingSubmitter adapts the HMS client to the booking wizard's Submitter
// interface, translating between the wizard's request shape and the HMS
// payload.
type BookingSubmitter struct {
	client *Client
}

// NewBookingSubmitter wraps an HMS client for use by booking wizards.
func NewBookingSubmitter(client *Client) *BookingSubmitter {
	return &BookingSubmitter{client: client}
}

// Submit posts the booking to the HMS and maps the created appointment back
// to a wizard confirmation. HMS API errors pass through unchanged so the
// wizard can surface the server's message.
func (s *BookingSubmitter) Submit(ctx context.Context, req wizard.BookingRequest) (*wizard.Confirmation, error) {
	appt, err := s.client.BookAppointment(ctx, req.PatientID, BookAppointmentRequest{
		DoctorID:      req.DoctorID,
		Date:          req.Date,
		PreferredTime: req.Time,
		Symptoms:      req.Symptoms,
	})
	if err != nil {
		return nil, err
	}
	return &wizard.Confirmation{
		AppointmentID: appt.ID,
		Status:        appt.Status,
	}, nil
}
