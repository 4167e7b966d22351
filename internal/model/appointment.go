package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an appointment. Deletion is the only way
// an appointment is cancelled, so there is no cancelled status.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCompleted Status = "Completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusCompleted}

// ErrUnknownStatus is returned by ParseStatus for values outside the closed set.
var ErrUnknownStatus = errors.New("unknown appointment status")

// ParseStatus matches s against the closed set, ignoring case.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// DateLayout is the wire format of a calendar day.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time of day. The zero value means unset.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts "2006-01-02" and full RFC 3339 timestamps. The API
// returns booked dates as ISO timestamps while forms post bare days.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Equal reports whether d and o name the same calendar day.
func (d Date) Equal(o Date) bool { return d.String() == o.String() }

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// GuestContact is the contact block a visitor without a session supplies.
type GuestContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Complete reports whether every field has a non-blank value.
func (g GuestContact) Complete() bool {
	return strings.TrimSpace(g.Name) != "" &&
		strings.TrimSpace(g.Email) != "" &&
		strings.TrimSpace(g.Phone) != ""
}

// Appointment is a service booking as returned by the remote API.
//
// Fields:
//	ID      – server identifier (_id).
//	Date    – requested calendar day.
//	Time    – one of the hourly slots in TimeSlots.
//	Service – one of Services.
//	Notes   – free text, may be empty.
//	Status  – Pending, Confirmed or Completed.
//	User    – owner account id when booked with a session.
//	IsGuest – true when booked without a session; Guest then holds the contact.
//	Name, Email, Phone – display contact, flattened by the API for listings.
type Appointment struct {
	ID      string        `json:"_id"`
	Date    Date          `json:"date"`
	Time    string        `json:"time"`
	Service string        `json:"service"`
	Notes   string        `json:"notes,omitempty"`
	Status  Status        `json:"status"`
	User    string        `json:"user,omitempty"`
	IsGuest bool          `json:"isGuest"`
	Guest   *GuestContact `json:"guestInfo,omitempty"`
	Name    string        `json:"name,omitempty"`
	Email   string        `json:"email,omitempty"`
	Phone   string        `json:"phone,omitempty"`
}

// ErrOwnerAmbiguous is returned by Validate when an appointment has both or
// neither of a user owner and a guest contact.
var ErrOwnerAmbiguous = errors.New("appointment must belong to exactly one of a user or a guest")

// Contact returns the contact shown to administrators.
func (a Appointment) Contact() GuestContact {
	if a.Guest != nil && a.Guest.Complete() {
		return *a.Guest
	}
	return GuestContact{Name: a.Name, Email: a.Email, Phone: a.Phone}
}

// Validate checks the exactly-one-owner rule and the closed sets.
func (a Appointment) Validate() error {
	hasGuest := a.IsGuest && a.Guest != nil && a.Guest.Complete()
	hasUser := !a.IsGuest && a.User != ""
	if hasGuest == hasUser {
		return ErrOwnerAmbiguous
	}
	if !IsTimeSlot(a.Time) {
		return fmt.Errorf("invalid time slot %q", a.Time)
	}
	if !IsService(a.Service) {
		return fmt.Errorf("invalid service %q", a.Service)
	}
	if a.Status != "" {
		if _, err := ParseStatus(string(a.Status)); err != nil {
			return err
		}
	}
	return nil
}
