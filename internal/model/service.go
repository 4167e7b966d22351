package model

import "fmt"

// Services is the closed set of bookable workshop services.
var Services = []string{
	"Engine Maintenance",
	"Performance Tuning",
	"Detailed Care",
	"Oil Change",
}

// IsService reports whether s is a bookable service.
func IsService(s string) bool { return contains(Services, s) }

const (
	firstSlotHour = 9
	lastSlotHour  = 18
)

// TimeSlots holds the hourly slots 09:00 through 18:00.
var TimeSlots = func() []string {
	out := make([]string, 0, lastSlotHour-firstSlotHour+1)
	for h := firstSlotHour; h <= lastSlotHour; h++ {
		out = append(out, fmt.Sprintf("%02d:00", h))
	}
	return out
}()

// IsTimeSlot reports whether s is one of TimeSlots.
func IsTimeSlot(s string) bool { return contains(TimeSlots, s) }

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
