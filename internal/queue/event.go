// Package queue defines message payloads exchanged over the message broker.
package queue

// AppointmentQueue is the durable queue appointment events are routed to.
const AppointmentQueue = "appointment.requested"

// AppointmentRequestedEvent is published after the API accepted a new
// appointment. It carries enough for an audit trail or a follow-up mailer
// without calling the API again.
type AppointmentRequestedEvent struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Service       string `json:"service"`
	Guest         bool   `json:"guest"`
	ContactName   string `json:"contact_name,omitempty"`
	ContactEmail  string `json:"contact_email,omitempty"`
	RequestedAt   string `json:"requested_at"`
}
