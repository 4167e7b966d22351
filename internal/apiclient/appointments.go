package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/iliyamo/lube-storefront/internal/model"
)

// AppointmentRequest is the body of both appointment create endpoints.
type AppointmentRequest struct {
	Date    model.Date          `json:"date"`
	Time    string              `json:"time"`
	Service string              `json:"service"`
	Notes   string              `json:"notes"`
	IsGuest bool                `json:"isGuest,omitempty"`
	Guest   *model.GuestContact `json:"guestInfo,omitempty"`
}

// CreateAppointment books for the signed-in visitor.
func (c *Client) CreateAppointment(ctx context.Context, r AppointmentRequest) (model.Appointment, error) {
	r.IsGuest, r.Guest = false, nil
	return c.createAppointment(ctx, call{op: "appointments.create", method: http.MethodPost, path: "/appointments", body: r, needsAuth: true})
}

// CreateGuestAppointment books without a session; r.Guest must be set.
func (c *Client) CreateGuestAppointment(ctx context.Context, r AppointmentRequest) (model.Appointment, error) {
	r.IsGuest = true
	return c.createAppointment(ctx, call{op: "appointments.create_guest", method: http.MethodPost, path: "/appointments/guest", body: r})
}

func (c *Client) createAppointment(ctx context.Context, cl call) (model.Appointment, error) {
	resp, err := c.do(ctx, cl)
	if err != nil {
		return model.Appointment{}, err
	}
	var a model.Appointment
	if err := resp.Data(&a); err != nil {
		return model.Appointment{}, err
	}
	return a, nil
}

// Appointments lists every appointment; administrators only.
func (c *Client) Appointments(ctx context.Context) ([]model.Appointment, error) {
	return c.listAppointments(ctx, call{op: "appointments.list", method: http.MethodGet, path: "/appointments", needsAuth: true})
}

// UserAppointments lists the signed-in visitor's own appointments.
func (c *Client) UserAppointments(ctx context.Context) ([]model.Appointment, error) {
	return c.listAppointments(ctx, call{op: "appointments.user", method: http.MethodGet, path: "/appointments/user", needsAuth: true})
}

func (c *Client) listAppointments(ctx context.Context, cl call) ([]model.Appointment, error) {
	resp, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	out := []model.Appointment{}
	if err := resp.Data(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateAppointmentStatus persists a status change.
func (c *Client) UpdateAppointmentStatus(ctx context.Context, id string, status model.Status) error {
	_, err := c.do(ctx, call{
		op: "appointments.update", method: http.MethodPut, path: "/appointments/" + url.PathEscape(id),
		body: map[string]string{"status": string(status)}, needsAuth: true,
	})
	return err
}

func (c *Client) DeleteAppointment(ctx context.Context, id string) error {
	_, err := c.do(ctx, call{op: "appointments.delete", method: http.MethodDelete, path: "/appointments/" + url.PathEscape(id), needsAuth: true})
	return err
}

// BookedDates returns the days the API reports as unavailable.
func (c *Client) BookedDates(ctx context.Context) ([]model.Date, error) {
	resp, err := c.do(ctx, call{op: "appointments.booked_dates", method: http.MethodGet, path: "/appointments/booked-dates"})
	if err != nil {
		return nil, err
	}
	var raw []string
	if err := resp.Field("dates", &raw); err != nil {
		return nil, err
	}
	out := make([]model.Date, 0, len(raw))
	for _, s := range raw {
		d, err := model.ParseDate(s)
		if err != nil {
			c.log.Sugar().Warnf("skipping booked date %q: %v", s, err)
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// BookedTimes returns the taken slots of day.
func (c *Client) BookedTimes(ctx context.Context, day model.Date) ([]string, error) {
	resp, err := c.do(ctx, call{
		op: "appointments.booked_times", method: http.MethodGet, path: "/appointments/booked-times",
		query: url.Values{"date": {day.String()}},
	})
	if err != nil {
		return nil, err
	}
	times := []string{}
	if err := resp.Field("times", &times); err != nil {
		return nil, err
	}
	return times, nil
}
