package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medicare-hms/portal-booking/internal/directory"
	"github.com/medicare-hms/portal-booking/internal/http/middleware"
	"github.com/medicare-hms/portal-booking/internal/observability/metrics"
	"github.com/medicare-hms/portal-booking/internal/wizard"
	"github.com/medicare-hms/portal-booking/pkg/logging"
)

const defaultIdleTTL = 30 * time.Minute

// eventBuffer is the per-subscriber channel depth. A subscriber that falls
// further behind than this loses events; the snapshot endpoint is the
// recovery path.
const eventBuffer = 16

// BookingSessions owns the live wizard sessions and exposes the booking
// workflow over HTTP. One session is one booking attempt by one patient.
type BookingSessions struct {
	directory *directory.Directory
	fetcher   wizard.SlotFetcher
	submitter wizard.Submitter
	logger    *logging.Logger
	metrics   *metrics.BookingMetrics
	idleTTL   time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*bookingSession
}

type bookingSession struct {
	id        string
	patientID int64
	wizard    *wizard.Wizard

	mu          sync.Mutex
	lastTouched time.Time
	subscribers map[chan wizard.Event]struct{}
	closed      bool
}

// SessionOption configures a BookingSessions handler.
type SessionOption func(*BookingSessions)

// WithIdleTTL overrides how long an untouched session survives.
func WithIdleTTL(ttl time.Duration) SessionOption {
	return func(h *BookingSessions) {
		if ttl > 0 {
			h.idleTTL = ttl
		}
	}
}

// WithMetrics attaches booking workflow metrics.
func WithMetrics(m *metrics.BookingMetrics) SessionOption {
	return func(h *BookingSessions) {
		h.metrics = m
	}
}

// WithClock overrides the wall clock for expiry tests.
func WithClock(now func() time.Time) SessionOption {
	return func(h *BookingSessions) {
		h.now = now
	}
}

// NewBookingSessions creates the session handler over the given roster
// directory and HMS-facing fetcher and submitter.
func NewBookingSessions(dir *directory.Directory, fetcher wizard.SlotFetcher, submitter wizard.Submitter, logger *logging.Logger, opts ...SessionOption) *BookingSessions {
	if logger == nil {
		logger = logging.Default()
	}
	h := &BookingSessions{
		directory: dir,
		fetcher:   fetcher,
		submitter: submitter,
		logger:    logger,
		idleTTL:   defaultIdleTTL,
		now:       time.Now,
		sessions:  make(map[string]*bookingSession),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (s *bookingSession) broadcast(e wizard.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for ch := range s.subscribers {
		select {
		case ch <- e:
		default:
			// Slow subscriber; it resyncs from the snapshot endpoint.
		}
	}
}

// subscribe registers an event channel. The cancel func is idempotent and
// safe to call after the session is closed.
func (s *bookingSession) subscribe() (<-chan wizard.Event, func()) {
	ch := make(chan wizard.Event, eventBuffer)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := s.subscribers[ch]; ok {
				delete(s.subscribers, ch)
				close(ch)
			}
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// close tears the session down; subscriber channels are closed after any
// buffered events, so a connected host still sees the final transitions.
func (s *bookingSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
}

func (s *bookingSession) touch(now time.Time) {
	s.mu.Lock()
	s.lastTouched = now
	s.mu.Unlock()
}

func (s *bookingSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouched
}

type sessionResponse struct {
	SessionID string          `json:"sessionId"`
	Snapshot  wizard.Snapshot `json:"snapshot"`
}

// HandleCreate opens a new wizard session over the current roster for the
// authenticated patient.
func (h *BookingSessions) HandleCreate(w http.ResponseWriter, r *http.Request) {
	patientID, ok := middleware.PatientIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "patient identity required")
		return
	}

	roster, err := h.directory.Roster(r.Context())
	if err != nil {
		h.logger.Error("roster unavailable for new session", "error", err)
		writeError(w, http.StatusServiceUnavailable, "doctor roster unavailable")
		return
	}

	s := &bookingSession{
		id:          uuid.NewString(),
		patientID:   patientID,
		lastTouched: h.now(),
		subscribers: make(map[chan wizard.Event]struct{}),
	}
	s.wizard = wizard.New(patientID, roster, h.fetcher, h.submitter,
		wizard.WithObserver(s.broadcast),
		wizard.WithLogger(h.logger),
		wizard.WithMetrics(h.metrics),
	)

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	h.metrics.SessionOpened()

	h.logger.Info("booking session opened", "session_id", s.id, "patient_id", patientID)
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: s.id, Snapshot: s.wizard.Snapshot()})
}

// lookup resolves the session in the URL and checks ownership. A session
// belonging to another patient reads as not found.
func (h *BookingSessions) lookup(w http.ResponseWriter, r *http.Request) (*bookingSession, bool) {
	patientID, ok := middleware.PatientIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "patient identity required")
		return nil, false
	}
	sessionID := chi.URLParam(r, "sessionID")

	h.mu.RLock()
	s, found := h.sessions[sessionID]
	h.mu.RUnlock()
	if !found || s.patientID != patientID {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	s.touch(h.now())
	return s, true
}

// HandleSnapshot returns the current session state for rendering.
func (h *BookingSessions) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: s.id, Snapshot: s.wizard.Snapshot()})
}

// HandleSetFilters replaces the filter criteria and re-filters synchronously.
func (h *BookingSessions) HandleSetFilters(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var criteria directory.Criteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.wizard.SetCriteria(criteria)
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: s.id, Snapshot: s.wizard.Snapshot()})
}

// HandleSelectDoctor fixes the doctor for the booking attempt.
func (h *BookingSessions) HandleSelectDoctor(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		DoctorID int64 `json:"doctorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.wizard.SelectDoctor(req.DoctorID); err != nil {
		writeError(w, wizardErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: s.id, Snapshot: s.wizard.Snapshot()})
}

// HandleSelectDate fixes the date and starts the availability fetch.
func (h *BookingSessions) HandleSelectDate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.wizard.SelectDate(r.Context(), req.Date); err != nil {
		writeError(w, wizardErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, sessionResponse{SessionID: s.id, Snapshot: s.wizard.Snapshot()})
}

// HandleRetrySlots re-runs the availability fetch after a failure.
func (h *BookingSessions) HandleRetrySlots(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := s.wizard.RetrySlotFetch(r.Context()); err != nil {
		writeError(w, wizardErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, sessionResponse{SessionID: s.id, Snapshot: s.wizard.Snapshot()})
}

// HandleSelectSlot fixes the time slot.
func (h *BookingSessions) HandleSelectSlot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Slot string `json:"slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.wizard.SelectSlot(req.Slot); err != nil {
		writeError(w, wizardErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: s.id, Snapshot: s.wizard.Snapshot()})
}

// HandleSetReason attaches the free-text reason for the visit.
func (h *BookingSessions) HandleSetReason(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.wizard.SetReason(req.Reason); err != nil {
		writeError(w, wizardErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: s.id, Snapshot: s.wizard.Snapshot()})
}

type confirmResponse struct {
	SessionID    string               `json:"sessionId"`
	Confirmation *wizard.Confirmation `json:"confirmation,omitempty"`
	Snapshot     wizard.Snapshot      `json:"snapshot"`
}

// HandleConfirm submits the booking. A successful booking retires the
// session; a rejected submission leaves it intact for a retry.
func (h *BookingSessions) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	conf, err := s.wizard.Confirm(r.Context())
	if err != nil {
		status := wizardErrorStatus(err)
		if status == http.StatusBadGateway {
			// HMS rejected the booking; the snapshot carries the message
			// and every selection for a retry.
			writeJSON(w, status, confirmResponse{SessionID: s.id, Snapshot: s.wizard.Snapshot()})
			return
		}
		writeError(w, status, err.Error())
		return
	}

	h.removeSession(s)
	writeJSON(w, http.StatusCreated, confirmResponse{SessionID: s.id, Confirmation: conf, Snapshot: s.wizard.Snapshot()})
}

// HandleDelete abandons the session.
func (h *BookingSessions) HandleDelete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.removeSession(s)
	h.logger.Info("booking session abandoned", "session_id", s.id, "patient_id", s.patientID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingSessions) removeSession(s *bookingSession) {
	h.mu.Lock()
	if _, ok := h.sessions[s.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.id)
	h.mu.Unlock()
	s.close()
	h.metrics.SessionClosed()
}

// Run evicts idle sessions until ctx is cancelled.
func (h *BookingSessions) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.evictIdle()
		}
	}
}

func (h *BookingSessions) evictIdle() {
	cutoff := h.now().Add(-h.idleTTL)

	h.mu.RLock()
	var expired []*bookingSession
	for _, s := range h.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range expired {
		h.removeSession(s)
		h.logger.Info("booking session expired", "session_id", s.id, "patient_id", s.patientID)
	}
}

func wizardErrorStatus(err error) int {
	switch {
	case errors.Is(err, wizard.ErrWizardRetired):
		return http.StatusGone
	case errors.Is(err, wizard.ErrValidationBlocked):
		return http.StatusConflict
	case errors.Is(err, wizard.ErrDoctorNotInRoster),
		errors.Is(err, wizard.ErrDateNotFuture),
		errors.Is(err, wizard.ErrInvalidDate),
		errors.Is(err, wizard.ErrSlotUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
