package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lube-storefront/internal/booking"
	"github.com/iliyamo/lube-storefront/internal/middleware"
	"github.com/iliyamo/lube-storefront/internal/model"
)

// bookingDays is how far ahead the date picker reaches.
const bookingDays = 30

type dateOption struct {
	Date     model.Date
	URL      string
	Selected bool
}

type slotOption struct {
	booking.Slot
	URL string
}

type bookingView struct {
	Form      booking.Form
	Guest     bool
	State     string
	Dates     []dateOption
	Slots     []slotOption
	Services  []string
	CanSubmit bool
}

func (h *Handler) workflow(c echo.Context) *booking.Workflow {
	opts := []booking.Option{booking.WithLogger(h.Log), booking.WithClock(h.Now)}
	if h.Events != nil {
		opts = append(opts, booking.WithEvents(h.Events))
	}
	return booking.New(h.API, h.notices(c), !middleware.Visitor(c).Valid, opts...)
}

// formURL links to the appointment page with f carried in the query.
func formURL(f booking.Form) string {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("date", f.Date)
	set("time", f.Time)
	set("service", f.Service)
	if len(q) == 0 {
		return "/appointment"
	}
	return "/appointment?" + q.Encode()
}

func (h *Handler) bookingView(w *booking.Workflow, f booking.Form) bookingView {
	v := bookingView{
		Form:      f,
		Guest:     w.Guest(),
		State:     w.State().String(),
		Services:  model.Services,
		CanSubmit: w.CanSubmit() == nil,
	}
	// Fields the workflow rejected are not echoed back.
	v.Form.Date, v.Form.Time, v.Form.Service = "", w.Time(), w.Service()
	if d := w.Date(); !d.IsZero() {
		v.Form.Date = d.String()
	}
	for _, d := range w.SelectableDates(bookingDays) {
		next := v.Form
		next.Date = d.String()
		v.Dates = append(v.Dates, dateOption{Date: d, URL: formURL(next), Selected: d.Equal(w.Date())})
	}
	for _, s := range w.Slots() {
		opt := slotOption{Slot: s}
		if !s.Booked {
			next := v.Form
			next.Time = s.Time
			opt.URL = formURL(next)
		}
		v.Slots = append(v.Slots, opt)
	}
	return v
}

// Appointment renders the booking form rebuilt from the query string.
func (h *Handler) Appointment(c echo.Context) error {
	var f booking.Form
	_ = c.Bind(&f)
	w := h.workflow(c)
	if err := w.Restore(c.Request().Context(), f); err != nil {
		if expired, rerr := h.sessionExpired(c, err); expired {
			return rerr
		}
		n := h.notices(c)
		n.Warning(n.T(booking.ReasonKey(err)))
	}
	return h.render(c, http.StatusOK, "appointment", "Book an appointment", h.bookingView(w, f))
}

// SubmitAppointment replays the posted form and submits it. On success the
// visitor gets a fresh form; on failure the filled-in form is shown again.
func (h *Handler) SubmitAppointment(c echo.Context) error {
	var f booking.Form
	if err := c.Bind(&f); err != nil {
		return h.redirect(c, "/appointment")
	}
	ctx := c.Request().Context()
	w := h.workflow(c)
	if err := w.Restore(ctx, f); err != nil {
		if expired, rerr := h.sessionExpired(c, err); expired {
			return rerr
		}
		n := h.notices(c)
		n.Error(n.T(booking.ReasonKey(err)))
		return h.render(c, http.StatusUnprocessableEntity, "appointment", "Book an appointment", h.bookingView(w, f))
	}
	if _, err := w.Submit(ctx); err != nil {
		if expired, rerr := h.sessionExpired(c, err); expired {
			return rerr
		}
		return h.render(c, http.StatusUnprocessableEntity, "appointment", "Book an appointment", h.bookingView(w, f))
	}
	return h.redirect(c, "/appointment")
}
