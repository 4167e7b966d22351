// Package booking drives the appointment request form: date and slot
// selection against the API's availability, guest contact capture and
// submission.
package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/lube-storefront/internal/apiclient"
	"github.com/iliyamo/lube-storefront/internal/i18n"
	"github.com/iliyamo/lube-storefront/internal/metrics"
	"github.com/iliyamo/lube-storefront/internal/model"
	"github.com/iliyamo/lube-storefront/internal/queue"
)

// State of the form.
type State int

const (
	CollectingInfo State = iota
	DateSelected
	TimeSelected
	Submitting
	Submitted
	Failed
)

func (s State) String() string {
	switch s {
	case CollectingInfo:
		return "collecting_info"
	case DateSelected:
		return "date_selected"
	case TimeSelected:
		return "time_selected"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	case Failed:
		return "failed"
	}
	return "unknown"
}

var (
	ErrDateUnavailable  = errors.New("date not selectable")
	ErrSlotBooked       = errors.New("time slot already booked")
	ErrUnknownSlot      = errors.New("unknown time slot")
	ErrUnknownService   = errors.New("unknown service")
	ErrNoDate           = errors.New("no date selected")
	ErrSubmitInProgress = errors.New("submission already in progress")
)

// API is the subset of the API client the workflow uses.
type API interface {
	BookedDates(ctx context.Context) ([]model.Date, error)
	BookedTimes(ctx context.Context, day model.Date) ([]string, error)
	CreateAppointment(ctx context.Context, r apiclient.AppointmentRequest) (model.Appointment, error)
	CreateGuestAppointment(ctx context.Context, r apiclient.AppointmentRequest) (model.Appointment, error)
}

// Notifier publishes to the visitor filling in the form.
type Notifier interface {
	T(key string, args ...any) string
	Success(msg string) string
	Error(msg string) string
}

// EventSink receives an event for every accepted appointment.
type EventSink interface {
	AppointmentRequested(ctx context.Context, ev queue.AppointmentRequestedEvent) error
}

// Slot is one hourly slot of the selected day.
type Slot struct {
	Time     string
	Booked   bool
	Selected bool
}

// Workflow is the state of one visitor's form. It is not safe for
// concurrent use; each request builds its own.
type Workflow struct {
	api    API
	notify Notifier
	events EventSink
	log    *zap.Logger
	now    func() time.Time

	guest       bool
	state       State
	outcome     State
	bookedDates map[string]bool
	bookedTimes map[string]bool

	date    model.Date
	time    string
	service string
	notes   string
	contact model.GuestContact
}

type Option func(*Workflow)

func WithEvents(s EventSink) Option         { return func(w *Workflow) { w.events = s } }
func WithLogger(l *zap.Logger) Option       { return func(w *Workflow) { w.log = l } }
func WithClock(now func() time.Time) Option { return func(w *Workflow) { w.now = now } }

// New starts an empty form. guest is true when the visitor has no valid
// session.
func New(api API, n Notifier, guest bool, opts ...Option) *Workflow {
	w := &Workflow{
		api:         api,
		notify:      n,
		log:         zap.NewNop(),
		now:         time.Now,
		guest:       guest,
		bookedDates: map[string]bool{},
		bookedTimes: map[string]bool{},
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *Workflow) State() State                { return w.state }
func (w *Workflow) Guest() bool                 { return w.guest }
func (w *Workflow) Date() model.Date            { return w.date }
func (w *Workflow) Time() string                { return w.time }
func (w *Workflow) Service() string             { return w.service }
func (w *Workflow) Notes() string               { return w.notes }
func (w *Workflow) Contact() model.GuestContact { return w.contact }

// Outcome is Submitted or Failed after a submission, CollectingInfo before.
func (w *Workflow) Outcome() State { return w.outcome }

// LoadBookedDates fetches the fully booked days. A failure is logged and
// leaves every day open; the API still rejects a clash on submit. The error
// is returned so callers can react to an expired session.
func (w *Workflow) LoadBookedDates(ctx context.Context) error {
	dates, err := w.api.BookedDates(ctx)
	if err != nil {
		w.log.Warn("booked dates unavailable", zap.Error(err))
		return err
	}
	w.bookedDates = make(map[string]bool, len(dates))
	for _, d := range dates {
		w.bookedDates[d.String()] = true
	}
	return nil
}

func (w *Workflow) today() model.Date { return model.NewDate(w.now()) }

// SelectableDate reports whether d can be picked: not a Sunday, not in the
// past and not fully booked.
func (w *Workflow) SelectableDate(d model.Date) bool {
	if d.IsZero() || d.Weekday() == time.Sunday {
		return false
	}
	if d.Before(w.today()) {
		return false
	}
	return !w.bookedDates[d.String()]
}

// SelectableDates lists the selectable days among the next n calendar days
// starting today.
func (w *Workflow) SelectableDates(n int) []model.Date {
	out := make([]model.Date, 0, n)
	start := w.today()
	for i := 0; i < n; i++ {
		d := model.NewDate(start.AddDate(0, 0, i))
		if w.SelectableDate(d) {
			out = append(out, d)
		}
	}
	return out
}

// SelectDate picks the day and loads its booked slots before returning.
// A previously chosen time that is booked on the new day is dropped. Only
// an expired session is reported from the booked-times fetch; other
// failures leave every slot open.
func (w *Workflow) SelectDate(ctx context.Context, d model.Date) error {
	if !w.SelectableDate(d) {
		return ErrDateUnavailable
	}
	w.date = d
	w.bookedTimes = map[string]bool{}
	times, err := w.api.BookedTimes(ctx, d)
	if err != nil {
		w.log.Warn("booked times unavailable", zap.String("date", d.String()), zap.Error(err))
		if errors.Is(err, apiclient.ErrSessionExpired) {
			return err
		}
	}
	for _, t := range times {
		w.bookedTimes[t] = true
	}
	if w.time != "" && w.bookedTimes[w.time] {
		w.time = ""
	}
	if w.time != "" {
		w.state = TimeSelected
	} else {
		w.state = DateSelected
	}
	return nil
}

// Slots lists the day's slots with availability. Empty until a date is
// selected.
func (w *Workflow) Slots() []Slot {
	if w.date.IsZero() {
		return nil
	}
	out := make([]Slot, len(model.TimeSlots))
	for i, t := range model.TimeSlots {
		out[i] = Slot{Time: t, Booked: w.bookedTimes[t], Selected: t == w.time}
	}
	return out
}

// SelectTime picks a free slot. A booked slot leaves the form unchanged.
func (w *Workflow) SelectTime(t string) error {
	if w.date.IsZero() {
		return ErrNoDate
	}
	if !model.IsTimeSlot(t) {
		return ErrUnknownSlot
	}
	if w.bookedTimes[t] {
		return ErrSlotBooked
	}
	w.time = t
	w.state = TimeSelected
	return nil
}

func (w *Workflow) SetService(s string) error {
	if s != "" && !model.IsService(s) {
		return ErrUnknownService
	}
	w.service = s
	return nil
}

func (w *Workflow) SetNotes(n string) { w.notes = strings.TrimSpace(n) }

// SetGuest records the contact block; ignored for signed-in visitors.
func (w *Workflow) SetGuest(c model.GuestContact) {
	if !w.guest {
		return
	}
	w.contact = model.GuestContact{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
}

// CanSubmit returns the validation failure blocking submission, or nil.
func (w *Workflow) CanSubmit() error {
	if w.guest && !w.contact.Complete() {
		return &apiclient.ValidationFailure{Field: "guestInfo", Reason: i18n.MsgGuestInfoRequired}
	}
	if w.date.IsZero() || w.time == "" || w.service == "" {
		return &apiclient.ValidationFailure{Field: "appointment", Reason: i18n.MsgBookingIncomplete}
	}
	return nil
}

// Submit sends the form. Validation failures are reported without any
// request. On success the form is reset; on failure every field is kept
// and the state returns to what it was before submitting.
func (w *Workflow) Submit(ctx context.Context) (model.Appointment, error) {
	if w.state == Submitting {
		return model.Appointment{}, ErrSubmitInProgress
	}
	if err := w.CanSubmit(); err != nil {
		var vf *apiclient.ValidationFailure
		errors.As(err, &vf)
		w.notify.Error(w.notify.T(vf.Reason))
		return model.Appointment{}, err
	}

	prev := w.state
	w.state = Submitting
	req := apiclient.AppointmentRequest{Date: w.date, Time: w.time, Service: w.service, Notes: w.notes}

	var (
		a   model.Appointment
		err error
	)
	kind := "user"
	if w.guest {
		kind = "guest"
		contact := w.contact
		req.Guest = &contact
		a, err = w.api.CreateGuestAppointment(ctx, req)
	} else {
		a, err = w.api.CreateAppointment(ctx, req)
	}

	if err != nil {
		metrics.BookingsSubmitted.WithLabelValues(kind, "failed").Inc()
		w.log.Info("appointment rejected", zap.String("date", w.date.String()), zap.String("time", w.time), zap.Error(err))
		w.outcome = Failed
		w.state = prev
		w.notify.Error(apiclient.Message(err, w.notify.T(i18n.MsgConnectivity), w.notify.T(i18n.MsgBookingFailed)))
		return model.Appointment{}, err
	}

	metrics.BookingsSubmitted.WithLabelValues(kind, "ok").Inc()
	w.publish(ctx, a, req)
	w.reset()
	w.outcome = Submitted
	w.notify.Success(w.notify.T(i18n.MsgBookingSuccess))
	return a, nil
}

func (w *Workflow) publish(ctx context.Context, a model.Appointment, req apiclient.AppointmentRequest) {
	if w.events == nil {
		return
	}
	ev := queue.AppointmentRequestedEvent{
		AppointmentID: a.ID,
		Date:          req.Date.String(),
		Time:          req.Time,
		Service:       req.Service,
		Guest:         w.guest,
		RequestedAt:   w.now().UTC().Format(time.RFC3339),
	}
	if req.Guest != nil {
		ev.ContactName, ev.ContactEmail = req.Guest.Name, req.Guest.Email
	}
	if err := w.events.AppointmentRequested(ctx, ev); err != nil {
		w.log.Warn("appointment event not published", zap.Error(err))
	}
}

func (w *Workflow) reset() {
	w.state = CollectingInfo
	w.date = model.Date{}
	w.time, w.service, w.notes = "", "", ""
	w.contact = model.GuestContact{}
	w.bookedTimes = map[string]bool{}
}
