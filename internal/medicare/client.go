// Package medicare provides a REST client for the MediCare HMS API, the
// remote system that owns the doctor roster, slot availability, and
// appointment records.
package medicare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/medicare-hms/portal-booking/internal/directory"
	"github.com/medicare-hms/portal-booking/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// APIError carries the HMS response message for a failed call. The message
// is surfaced to patients verbatim when present.
type APIError struct {
	StatusCode int
	Message    string
}

// UserMessage returns the server-supplied message, if any. The booking
// workflow shows it to the patient unchanged.
func (e *APIError) UserMessage() string {
	return e.Message
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("hms api: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("hms api: status %d", e.StatusCode)
}

// envelope is the HMS response wrapper around every payload.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// SlotsResult is the availability payload for one (doctor, date) query.
type SlotsResult struct {
	DoctorID       int64    `json:"doctorId"`
	DoctorName     string   `json:"doctorName"`
	AvailableSlots []string `json:"availableSlots"`
}

// Appointment is the record the HMS creates for a booking.
type Appointment struct {
	ID       int64  `json:"id"`
	DoctorID int64  `json:"doctorId"`
	Date     string `json:"date"`
	Time     string `json:"preferredTime"`
	Status   string `json:"status"`
}

// BookAppointmentRequest is the booking payload posted to the HMS.
type BookAppointmentRequest struct {
	DoctorID      int64  `json:"doctorId"`
	Date          string `json:"date"`
	PreferredTime string `json:"preferredTime"`
	Symptoms      string `json:"symptoms,omitempty"`
}

// Client is a MediCare HMS API client.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithAuthToken sends a bearer token with every request.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

// NewClient creates a new HMS API client.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ActiveDoctors returns the active roster. Satisfies directory.RosterSource.
func (c *Client) ActiveDoctors(ctx context.Context) ([]directory.Doctor, error) {
	var doctors []directory.Doctor
	if err := c.get(ctx, "/doctors/active", &doctors); err != nil {
		return nil, fmt.Errorf("fetch active doctors: %w", err)
	}
	return doctors, nil
}

// AvailableSlots returns the open time labels for a doctor on a date
// (YYYY-MM-DD). An empty slice means the doctor is fully booked that day.
func (c *Client) AvailableSlots(ctx context.Context, doctorID int64, date string) ([]string, error) {
	path := fmt.Sprintf("/doctors/%d/slots?date=%s", doctorID, url.QueryEscape(date))
	var result SlotsResult
	if err := c.get(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("fetch slots for doctor %d on %s: %w", doctorID, date, err)
	}
	if result.AvailableSlots == nil {
		return []string{}, nil
	}
	return result.AvailableSlots, nil
}

// BookAppointment submits a booking for a patient and returns the created
// appointment record.
func (c *Client) BookAppointment(ctx context.Context, patientID int64, req BookAppointmentRequest) (*Appointment, error) {
	path := fmt.Sprintf("/patients/%d/appointments", patientID)
	var appt Appointment
	if err := c.post(ctx, path, req, &appt); err != nil {
		return nil, fmt.Errorf("book appointment for patient %d: %w", patientID, err)
	}
	c.logger.Info("appointment booked",
		"patient_id", patientID,
		"doctor_id", req.DoctorID,
		"date", req.Date,
		"time", req.PreferredTime,
		"appointment_id", appt.ID,
	)
	return &appt, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hms request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(data) > 0 {
		// A non-envelope body (proxy error page) is tolerated; the
		// status code alone decides the outcome below.
		_ = json.Unmarshal(data, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
