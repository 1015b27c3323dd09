// Package wizard implements the cascading appointment booking flow: filter
// the roster, pick a doctor, pick a date, pick a fetched slot, confirm.
//
// The wizard is an explicit state machine rather than a pile of reactive
// effects so the two correctness-critical invariants live in one place:
// a stale availability response can never overwrite the slots for the
// current (doctor, date) pair, and changing doctor or date always discards
// the previously fetched slots and any selected slot.
package wizard

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medicare-hms/portal-booking/internal/directory"
	"github.com/medicare-hms/portal-booking/internal/observability/metrics"
	"github.com/medicare-hms/portal-booking/pkg/logging"
)

var wizardTracer = otel.Tracer("portal.internal.wizard")

const dateLayout = "2006-01-02"

// SlotFetcher queries the scheduling system for open slots on a
// (doctor, date) pair. medicare.Client satisfies this.
type SlotFetcher interface {
	AvailableSlots(ctx context.Context, doctorID int64, date string) ([]string, error)
}

// BookingRequest is the single idempotent booking produced by a completed
// wizard, constructed once at confirmation.
type BookingRequest struct {
	PatientID int64  `json:"patientId"`
	DoctorID  int64  `json:"doctorId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Symptoms  string `json:"symptoms,omitempty"`
}

// Confirmation is the booked appointment as reported back by the
// scheduling system.
type Confirmation struct {
	AppointmentID int64  `json:"appointmentId"`
	Status        string `json:"status"`
}

// Submitter sends a booking request to the scheduling system.
type Submitter interface {
	Submit(ctx context.Context, req BookingRequest) (*Confirmation, error)
}

// Wizard owns one in-progress booking attempt. All methods are safe for
// concurrent use; state changes are applied atomically under one lock so a
// reader never observes a half-applied transition.
type Wizard struct {
	fetcher   SlotFetcher
	submitter Submitter
	observer  Observer
	logger    *logging.Logger
	metrics   *metrics.BookingMetrics
	now       func() time.Time

	mu        sync.Mutex
	patientID int64
	roster    []directory.Doctor
	criteria  directory.Criteria
	filtered  []directory.Doctor

	state        State
	doctor       *directory.Doctor
	date         string
	slots        []string
	slot         string
	reason       string
	submission   SubmissionStatus
	lastError    string
	confirmation *Confirmation

	// fetchSeq identifies the latest (doctor, date) selection. A slot
	// response is applied only if its sequence still matches; anything
	// else is a stale response and is dropped.
	fetchSeq uint64
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithObserver registers a transition observer for the hosting UI.
func WithObserver(obs Observer) Option {
	return func(w *Wizard) {
		w.observer = obs
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *logging.Logger) Option {
	return func(w *Wizard) {
		w.logger = logger
	}
}

// WithMetrics attaches booking workflow metrics.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(w *Wizard) {
		w.metrics = m
	}
}

// WithClock overrides the wall clock. Used by tests for the future-date
// rule.
func WithClock(now func() time.Time) Option {
	return func(w *Wizard) {
		w.now = now
	}
}

// New creates a wizard for one patient over the given roster snapshot.
// The roster is copied; later cache refreshes never change an open
// session under the patient.
func New(patientID int64, roster []directory.Doctor, fetcher SlotFetcher, submitter Submitter, opts ...Option) *Wizard {
	w := &Wizard{
		fetcher:    fetcher,
		submitter:  submitter,
		logger:     logging.Default(),
		now:        time.Now,
		patientID:  patientID,
		roster:     append([]directory.Doctor(nil), roster...),
		state:      StateBrowsing,
		submission: SubmissionIdle,
	}
	w.filtered = directory.Filter(w.roster, w.criteria)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Wizard) notify(events ...Event) {
	if w.observer == nil {
		return
	}
	for _, e := range events {
		w.observer(e)
	}
}

// updateCriteria mutates the criteria and re-runs the filter engine
// synchronously, returning the new filtered view. Filtering never touches
// the current selection; a chosen doctor stays chosen even if the new
// criteria would hide them.
func (w *Wizard) updateCriteria(mut func(*directory.Criteria)) []directory.Doctor {
	w.mu.Lock()
	defer w.mu.Unlock()
	mut(&w.criteria)
	w.filtered = directory.Filter(w.roster, w.criteria)
	return append([]directory.Doctor(nil), w.filtered...)
}

// SetCriteria replaces the whole criteria set and re-filters.
func (w *Wizard) SetCriteria(c directory.Criteria) []directory.Doctor {
	return w.updateCriteria(func(cur *directory.Criteria) { *cur = c })
}

// SetSpecialization sets one criterion and re-filters.
func (w *Wizard) SetSpecialization(s string) []directory.Doctor {
	return w.updateCriteria(func(c *directory.Criteria) { c.Specialization = s })
}

// SetExperienceBucket sets one criterion and re-filters.
func (w *Wizard) SetExperienceBucket(b directory.ExperienceBucket) []directory.Doctor {
	return w.updateCriteria(func(c *directory.Criteria) { c.Experience = b })
}

// SetFeeBucket sets one criterion and re-filters.
func (w *Wizard) SetFeeBucket(b directory.FeeBucket) []directory.Doctor {
	return w.updateCriteria(func(c *directory.Criteria) { c.Fee = b })
}

// SetMinRating sets one criterion and re-filters.
func (w *Wizard) SetMinRating(r float64) []directory.Doctor {
	return w.updateCriteria(func(c *directory.Criteria) { c.MinRating = r })
}

// SetNameQuery sets one criterion and re-filters.
func (w *Wizard) SetNameQuery(q string) []directory.Doctor {
	return w.updateCriteria(func(c *directory.Criteria) { c.NameQuery = q })
}

// ClearCriteria drops every criterion, restoring the full roster view.
func (w *Wizard) ClearCriteria() []directory.Doctor {
	return w.SetCriteria(directory.Criteria{})
}

// SelectDoctor fixes the doctor for this booking attempt. The doctor must
// be in the current filtered roster. Any previously selected date, slot,
// and fetched availability are discarded; an in-flight fetch for the old
// selection becomes stale.
func (w *Wizard) SelectDoctor(doctorID int64) error {
	w.mu.Lock()
	if w.state == StateBooked {
		w.mu.Unlock()
		return ErrWizardRetired
	}
	if w.state == StateSubmitting {
		w.mu.Unlock()
		return ErrValidationBlocked
	}
	var chosen *directory.Doctor
	for i := range w.filtered {
		if w.filtered[i].ID == doctorID {
			chosen = &w.filtered[i]
			break
		}
	}
	if chosen == nil {
		w.mu.Unlock()
		return ErrDoctorNotInRoster
	}
	doc := *chosen
	w.doctor = &doc
	w.date = ""
	w.slot = ""
	w.slots = nil
	w.lastError = ""
	w.fetchSeq++ // invalidate any in-flight fetch
	w.state = StateDoctorChosen
	w.mu.Unlock()

	w.notify(EventDoctorSelected)
	return nil
}

// SelectDate fixes the appointment date (YYYY-MM-DD, strictly after today)
// and starts the availability fetch for the current (doctor, date) pair.
// Any previously fetched slots and selected slot are discarded first.
func (w *Wizard) SelectDate(ctx context.Context, date string) error {
	w.mu.Lock()
	if w.state == StateBooked {
		w.mu.Unlock()
		return ErrWizardRetired
	}
	if w.state == StateBrowsing || w.state == StateSubmitting {
		w.mu.Unlock()
		return ErrValidationBlocked
	}
	if err := w.validateDateLocked(date); err != nil {
		w.mu.Unlock()
		return err
	}
	w.date = date
	w.slot = ""
	w.slots = nil
	w.lastError = ""
	w.fetchSeq++
	seq := w.fetchSeq
	doctorID := w.doctor.ID
	w.state = StateFetchingSlots
	w.mu.Unlock()

	w.notify(EventDateSelected)
	go w.fetchSlots(context.WithoutCancel(ctx), seq, doctorID, date)
	return nil
}

// RetrySlotFetch re-issues the availability fetch for the current
// (doctor, date) pair after a failure. Retries are always user-triggered.
func (w *Wizard) RetrySlotFetch(ctx context.Context) error {
	w.mu.Lock()
	if w.state != StateFetchFailed {
		w.mu.Unlock()
		return ErrValidationBlocked
	}
	w.lastError = ""
	w.fetchSeq++
	seq := w.fetchSeq
	doctorID := w.doctor.ID
	date := w.date
	w.state = StateFetchingSlots
	w.mu.Unlock()

	go w.fetchSlots(context.WithoutCancel(ctx), seq, doctorID, date)
	return nil
}

// fetchSlots performs one availability fetch and applies the result if the
// selection has not moved on in the meantime.
func (w *Wizard) fetchSlots(ctx context.Context, seq uint64, doctorID int64, date string) {
	ctx, span := wizardTracer.Start(ctx, "wizard.fetch_slots")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("portal.doctor_id", doctorID),
		attribute.String("portal.date", date),
	)

	start := w.now()
	slots, err := w.fetcher.AvailableSlots(ctx, doctorID, date)
	elapsed := w.now().Sub(start).Seconds()

	w.mu.Lock()
	if seq != w.fetchSeq {
		w.mu.Unlock()
		// Stale response for a (doctor, date) pair the patient has
		// already left. Diagnostics only, never user-visible.
		w.metrics.ObserveStaleDrop()
		w.logger.Debug("stale slot response dropped",
			"doctor_id", doctorID,
			"date", date,
		)
		return
	}

	if err != nil {
		span.RecordError(err)
		w.metrics.ObserveSlotFetch("error", elapsed)
		w.state = StateFetchFailed
		w.lastError = fetchFailureMessage(err)
		w.mu.Unlock()
		w.logger.Error("slot fetch failed", "doctor_id", doctorID, "date", date, "error", err)
		w.notify(EventFetchFailed)
		return
	}

	w.metrics.ObserveSlotFetch("ok", elapsed)
	w.slots = dedupeSlots(slots)
	if len(w.slots) == 0 {
		w.state = StateNoSlots
		w.mu.Unlock()
		w.notify(EventNoSlots)
		return
	}
	w.state = StateSlotsReady
	w.mu.Unlock()
	w.notify(EventSlotsReady)
}

// SelectSlot fixes the time slot. The slot must be a member of the
// last-fetched availability set.
func (w *Wizard) SelectSlot(slot string) error {
	w.mu.Lock()
	if w.state != StateSlotsReady && w.state != StateSlotChosen {
		w.mu.Unlock()
		if w.state == StateBooked {
			return ErrWizardRetired
		}
		return ErrValidationBlocked
	}
	if !containsSlot(w.slots, slot) {
		w.mu.Unlock()
		return ErrSlotUnavailable
	}
	w.slot = slot
	w.state = StateSlotChosen
	w.mu.Unlock()

	w.notify(EventSlotSelected)
	return nil
}

// SetReason attaches the optional free-text reason for the visit. Allowed
// only once a slot is chosen; it does not change state.
func (w *Wizard) SetReason(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSlotChosen {
		if w.state == StateBooked {
			return ErrWizardRetired
		}
		return ErrValidationBlocked
	}
	w.reason = text
	return nil
}

// Confirm validates the completed selection, builds the single
// BookingRequest, and submits it. Exactly one submission can be in flight:
// a second Confirm while Submitting is rejected locally, which is the
// whole de-duplication mechanism.
//
// On failure the wizard returns to SlotChosen with every selection intact
// so the patient can retry without re-entering anything.
func (w *Wizard) Confirm(ctx context.Context) (*Confirmation, error) {
	ctx, span := wizardTracer.Start(ctx, "wizard.confirm")
	defer span.End()

	w.mu.Lock()
	if w.state == StateBooked {
		w.mu.Unlock()
		return nil, ErrWizardRetired
	}
	if w.state != StateSlotChosen {
		w.mu.Unlock()
		return nil, ErrValidationBlocked
	}
	// Preconditions checked again at the moment of confirmation: the date
	// may have slipped into the past while the patient hesitated.
	if w.doctor == nil || w.slot == "" || w.patientID <= 0 {
		w.mu.Unlock()
		return nil, ErrValidationBlocked
	}
	if err := w.validateDateLocked(w.date); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if !containsSlot(w.slots, w.slot) {
		w.mu.Unlock()
		return nil, ErrSlotUnavailable
	}
	req := BookingRequest{
		PatientID: w.patientID,
		DoctorID:  w.doctor.ID,
		Date:      w.date,
		Time:      w.slot,
		Symptoms:  w.reason,
	}
	w.state = StateSubmitting
	w.submission = SubmissionInFlight
	w.lastError = ""
	w.mu.Unlock()

	span.SetAttributes(
		attribute.Int64("portal.doctor_id", req.DoctorID),
		attribute.String("portal.date", req.Date),
	)
	w.notify(EventSubmitting)

	conf, err := w.submitter.Submit(ctx, req)
	if err != nil {
		span.RecordError(err)
		w.metrics.ObserveSubmission("failed")
		w.mu.Lock()
		w.state = StateSlotChosen
		w.submission = SubmissionFailed
		w.lastError = submitFailureMessage(err)
		w.mu.Unlock()
		w.logger.Error("booking submission failed",
			"patient_id", req.PatientID,
			"doctor_id", req.DoctorID,
			"error", err,
		)
		w.notify(EventSubmissionFailed)
		return nil, err
	}

	w.metrics.ObserveSubmission("booked")
	w.mu.Lock()
	w.state = StateBooked
	w.submission = SubmissionSucceeded
	w.confirmation = conf
	w.mu.Unlock()
	w.logger.Info("appointment booked",
		"patient_id", req.PatientID,
		"doctor_id", req.DoctorID,
		"date", req.Date,
		"time", req.Time,
	)
	w.notify(EventBooked)
	return conf, nil
}

// validateDateLocked checks the YYYY-MM-DD format and the strictly-after-
// today rule. Caller holds w.mu.
func (w *Wizard) validateDateLocked(date string) error {
	d, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		return ErrInvalidDate
	}
	now := w.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if !d.After(today) {
		return ErrDateNotFuture
	}
	return nil
}

func fetchFailureMessage(err error) string {
	var um userMessenger
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return "Could not load available slots"
}

func submitFailureMessage(err error) string {
	var um userMessenger
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return genericSubmitFailure
}

// dedupeSlots preserves order while dropping duplicates, in case the
// scheduling API ever repeats a label.
func dedupeSlots(slots []string) []string {
	out := make([]string, 0, len(slots))
	seen := make(map[string]struct{}, len(slots))
	for _, s := range slots {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func containsSlot(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}
