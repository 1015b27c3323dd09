package medicare

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicare-hms/portal-booking/internal/wizard"
	"github.com/medicare-hms/portal-booking/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New("error")
}

func TestActiveDoctors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/doctors/active", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"message": "Active doctors retrieved",
			"data": [
				{"id": 7, "name": "Dr. Asha Rao", "specialization": "Cardiology", "experience": 12, "consultationFee": 900, "active": true},
				{"id": 8, "name": "Dr. Brian Okafor", "specialization": "Dermatology", "experience": 6, "consultationFee": 600, "active": true}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger(), WithAuthToken("tok-123"))
	doctors, err := client.ActiveDoctors(context.Background())
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, int64(7), doctors[0].ID)
	assert.Equal(t, "Cardiology", doctors[0].Specialization)
	assert.Equal(t, 900.0, doctors[0].ConsultationFee)
}

func TestAvailableSlots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/doctors/7/slots", r.URL.Path)
		assert.Equal(t, "2025-06-10", r.URL.Query().Get("date"))
		w.Write([]byte(`{
			"success": true,
			"message": "Available slots retrieved",
			"data": {"doctorId": 7, "doctorName": "Dr. Asha Rao", "availableSlots": ["09:00", "09:30", "14:00"]}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	slots, err := client.AvailableSlots(context.Background(), 7, "2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "14:00"}, slots)
}

func TestAvailableSlotsNullListMeansFullyBooked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"message": "Available slots retrieved",
			"data": {"doctorId": 7, "doctorName": "Dr. Asha Rao", "availableSlots": null}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	slots, err := client.AvailableSlots(context.Background(), 7, "2025-06-10")
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestBookAppointment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/patients/42/appointments", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(7), body["doctorId"])
		assert.Equal(t, "2025-06-10", body["date"])
		assert.Equal(t, "09:00", body["preferredTime"])
		assert.Equal(t, "follow-up", body["symptoms"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"success": true,
			"message": "Appointment booked successfully",
			"data": {"id": 301, "doctorId": 7, "date": "2025-06-10", "preferredTime": "09:00", "status": "SCHEDULED"}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	appt, err := client.BookAppointment(context.Background(), 42, BookAppointmentRequest{
		DoctorID:      7,
		Date:          "2025-06-10",
		PreferredTime: "09:00",
		Symptoms:      "follow-up",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(301), appt.ID)
	assert.Equal(t, "SCHEDULED", appt.Status)
}

func TestServerMessagePassedThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success": false, "message": "Doctor unavailable", "data": null}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	_, err := client.BookAppointment(context.Background(), 42, BookAppointmentRequest{DoctorID: 7, Date: "2025-06-10", PreferredTime: "09:00"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "Doctor unavailable", apiErr.UserMessage())
}

func TestSuccessFalseIsAnError(t *testing.T) {
	// The HMS sometimes reports failures with a 200 and success=false.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "Doctor is not active", "data": null}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	_, err := client.ActiveDoctors(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Doctor is not active", apiErr.Message)
}

func TestNonEnvelopeErrorBodyTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream down</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	_, err := client.AvailableSlots(context.Background(), 7, "2025-06-10")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.UserMessage())
}

func TestBookingSubmitterMapsWizardRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/patients/42/appointments", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "09:30", body["preferredTime"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"success": true,
			"message": "Appointment booked successfully",
			"data": {"id": 305, "doctorId": 7, "date": "2025-06-10", "preferredTime": "09:30", "status": "SCHEDULED"}
		}`))
	}))
	defer server.Close()

	submitter := NewBookingSubmitter(NewClient(server.URL, testLogger()))
	conf, err := submitter.Submit(context.Background(), wizard.BookingRequest{
		PatientID: 42,
		DoctorID:  7,
		Date:      "2025-06-10",
		Time:      "09:30",
		Symptoms:  "rash",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(305), conf.AppointmentID)
	assert.Equal(t, "SCHEDULED", conf.Status)
}

func TestBookingSubmitterPassesAPIErrorThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success": false, "message": "Doctor unavailable", "data": null}`))
	}))
	defer server.Close()

	submitter := NewBookingSubmitter(NewClient(server.URL, testLogger()))
	_, err := submitter.Submit(context.Background(), wizard.BookingRequest{PatientID: 42, DoctorID: 7, Date: "2025-06-10", Time: "09:00"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Doctor unavailable", apiErr.UserMessage())
}
