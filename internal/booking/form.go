package booking

import (
	"context"
	"errors"

	"github.com/iliyamo/lube-storefront/internal/apiclient"
	"github.com/iliyamo/lube-storefront/internal/i18n"
	"github.com/iliyamo/lube-storefront/internal/model"
)

// Form is the posted appointment form. Pages carry every field forward so a
// request can rebuild the workflow from scratch.
type Form struct {
	Date    string `form:"date" query:"date"`
	Time    string `form:"time" query:"time"`
	Service string `form:"service" query:"service"`
	Notes   string `form:"notes"`
	Name    string `form:"name"`
	Email   string `form:"email"`
	Phone   string `form:"phone"`
}

// Restore loads availability and replays f. Every field that can be applied
// is applied; the first selection error is returned. An expired session
// stops the replay and is returned as apiclient.ErrSessionExpired.
func (w *Workflow) Restore(ctx context.Context, f Form) error {
	if err := w.LoadBookedDates(ctx); errors.Is(err, apiclient.ErrSessionExpired) {
		return err
	}

	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if f.Date != "" {
		d, err := model.ParseDate(f.Date)
		if err != nil {
			keep(ErrDateUnavailable)
		} else if err := w.SelectDate(ctx, d); errors.Is(err, apiclient.ErrSessionExpired) {
			return err
		} else {
			keep(err)
		}
	}
	if f.Time != "" && !w.date.IsZero() {
		keep(w.SelectTime(f.Time))
	}
	keep(w.SetService(f.Service))
	w.SetNotes(f.Notes)
	w.SetGuest(model.GuestContact{Name: f.Name, Email: f.Email, Phone: f.Phone})
	return first
}

// ReasonKey maps a selection error to its message key.
func ReasonKey(err error) string {
	switch {
	case errors.Is(err, ErrDateUnavailable), errors.Is(err, ErrNoDate):
		return i18n.MsgDateUnavailable
	case errors.Is(err, ErrSlotBooked):
		return i18n.MsgSlotBooked
	case errors.Is(err, ErrSubmitInProgress):
		return i18n.MsgSubmitInProgress
	case errors.Is(err, ErrUnknownSlot), errors.Is(err, ErrUnknownService):
		return i18n.MsgBookingIncomplete
	}
	return i18n.MsgBookingFailed
}
