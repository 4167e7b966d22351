package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{"pending": StatusPending, " Confirmed ": StatusConfirmed, "COMPLETED": StatusCompleted} {
		got, err := ParseStatus(in)
		if err != nil || got != want {
			t.Fatalf("ParseStatus(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStatus("cancelled"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestParseDateAcceptsTimestamps(t *testing.T) {
	a, err := ParseDate("2026-03-05")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseDate("2026-03-05T00:00:00.000Z")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) || a.String() != "2026-03-05" {
		t.Fatalf("got %s and %s", a, b)
	}
	if _, err := ParseDate("05/03/2026"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDateJSON(t *testing.T) {
	var v struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2026-04-01T10:00:00Z"}`), &v); err != nil {
		t.Fatal(err)
	}
	out, _ := json.Marshal(v)
	if string(out) != `{"d":"2026-04-01"}` {
		t.Fatalf("got %s", out)
	}
	out, _ = json.Marshal(struct {
		D Date `json:"d"`
	}{})
	if string(out) != `{"d":null}` {
		t.Fatalf("zero date: %s", out)
	}
}

func TestAppointmentOwner(t *testing.T) {
	guest := &GuestContact{Name: "Ana", Email: "ana@example.com", Phone: "555"}
	cases := []struct {
		name string
		a    Appointment
		ok   bool
	}{
		{"user", Appointment{User: "u1", Time: "09:00", Service: Services[0]}, true},
		{"guest", Appointment{IsGuest: true, Guest: guest, Time: "18:00", Service: Services[0]}, true},
		{"neither", Appointment{Time: "09:00", Service: Services[0]}, false},
		{"guest without contact", Appointment{IsGuest: true, Guest: &GuestContact{Name: "Ana"}, Time: "09:00", Service: Services[0]}, false},
		{"bad slot", Appointment{User: "u1", Time: "08:30", Service: Services[0]}, false},
		{"bad service", Appointment{User: "u1", Time: "09:00", Service: "Car wash"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.a.Validate()
			if (err == nil) != tc.ok {
				t.Fatalf("Validate() = %v", err)
			}
		})
	}
}

func TestTimeSlots(t *testing.T) {
	if len(TimeSlots) != 10 || TimeSlots[0] != "09:00" || TimeSlots[9] != "18:00" {
		t.Fatalf("slots = %v", TimeSlots)
	}
}

func TestProductValidate(t *testing.T) {
	p := Product{Brand: Brands[0], Grade: Grades[0], Price: decimal.NewFromInt(10), Stock: 1}
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	p.Stock = -1
	if err := p.Validate(); !errors.Is(err, ErrNegativeStock) {
		t.Fatalf("got %v", err)
	}
	p.Stock, p.Price = 0, decimal.NewFromInt(-1)
	if err := p.Validate(); !errors.Is(err, ErrNegativePrice) {
		t.Fatalf("got %v", err)
	}
	if p.ImageSrc() != PlaceholderImage {
		t.Fatal("expected placeholder")
	}
}
