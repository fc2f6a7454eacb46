package model

import (
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/interval"
)

type Salon struct {
	ID       string
	Name     string
	Timezone string
}

// Location resolves the salon time zone, falling back to UTC for blank or unknown names.
func (s Salon) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Professional struct {
	ID      string
	SalonID string
	Name    string
	Active  bool
}

type Service struct {
	ID              string
	SalonID         string
	Name            string
	DurationMinutes int
	// BufferMinutes of cleanup kept free on both sides of an appointment of this service.
	BufferMinutes int
	Active        bool
}

type Client struct {
	ID      string
	SalonID string
	Name    string
	Phone   string
	Email   string
}

// WorkingHours is one weekday's open ranges for a professional.
type WorkingHours struct {
	ProfessionalID string
	Weekday        time.Weekday
	Intervals      []interval.Interval
}

// Exception overrides working hours on one date: either the whole day or the listed ranges.
type Exception struct {
	ID             string
	ProfessionalID string
	Date           Date
	FullDay        bool
	Intervals      []interval.Interval
	Reason         string
}

type Appointment struct {
	ID             string
	SalonID        string
	ProfessionalID string
	ClientID       string
	ServiceID      string
	Date           Date
	Start          interval.Minute
	End            interval.Minute
	Status         Status
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a Appointment) Interval() interval.Interval {
	return interval.Interval{Start: a.Start, End: a.End}
}
