// Package availability derives bookable start times from working hours and existing bookings.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// DefaultGranularityMinutes is the slot grid used when neither the query nor the config sets one.
const DefaultGranularityMinutes = 30

type WorkingHours interface {
	WorkingIntervals(ctx context.Context, professionalID string, date model.Date) ([]interval.Interval, error)
}

type Bookings interface {
	BookedIntervals(ctx context.Context, professionalID string, date model.Date) ([]interval.Interval, error)
}

type Query struct {
	ProfessionalID  string
	Date            model.Date
	DurationMinutes int
	// GranularityMinutes <= 0 selects the generator default.
	GranularityMinutes int
	// BufferMinutes pads every existing booking on both sides.
	BufferMinutes int
	// Location is the salon time zone used to decide which times already passed. Nil means UTC.
	Location *time.Location
}

type Options struct {
	DefaultGranularityMinutes int
	Now                       func() time.Time
}

// Generator has no state of its own: identical inputs and clock give identical output.
type Generator struct {
	hours       WorkingHours
	bookings    Bookings
	now         func() time.Time
	granularity int
}

func NewGenerator(hours WorkingHours, bookings Bookings, opts Options) *Generator {
	g := &Generator{
		hours:       hours,
		bookings:    bookings,
		now:         opts.Now,
		granularity: opts.DefaultGranularityMinutes,
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.granularity <= 0 {
		g.granularity = DefaultGranularityMinutes
	}
	return g
}

// AvailableSlots returns the ordered start minutes at which a booking of q.DurationMinutes fits.
func (g *Generator) AvailableSlots(ctx context.Context, q Query) ([]interval.Minute, error) {
	dayLen := int(interval.DayEnd)
	if q.DurationMinutes <= 0 || q.DurationMinutes > dayLen {
		return nil, fmt.Errorf("%w: duration must be between 1 and %d minutes (got %d)", model.ErrInvalidArgument, dayLen, q.DurationMinutes)
	}
	if q.GranularityMinutes > dayLen {
		return nil, fmt.Errorf("%w: granularity must not exceed %d minutes (got %d)", model.ErrInvalidArgument, dayLen, q.GranularityMinutes)
	}
	if q.BufferMinutes < 0 || q.BufferMinutes > dayLen {
		return nil, fmt.Errorf("%w: buffer must be between 0 and %d minutes (got %d)", model.ErrInvalidArgument, dayLen, q.BufferMinutes)
	}
	step := q.GranularityMinutes
	if step <= 0 {
		step = g.granularity
	}
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}

	working, err := g.hours.WorkingIntervals(ctx, q.ProfessionalID, q.Date)
	if err != nil {
		return nil, err
	}
	now := g.now().In(loc)
	if len(working) == 0 || q.Date.Before(model.DateOf(now)) {
		return []interval.Minute{}, nil
	}
	booked, err := g.bookings.BookedIntervals(ctx, q.ProfessionalID, q.Date)
	if err != nil {
		return nil, fmt.Errorf("booked intervals: %w", err)
	}

	buffer := interval.Minute(q.BufferMinutes)
	free := interval.Subtract(working, interval.Pad(booked, buffer, buffer))
	out := []interval.Minute{}
	for _, t := range Starts(free, q.DurationMinutes, step) {
		if q.Date.At(t, loc).Before(now) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Starts walks each free range from its start in step increments and keeps every t with
// t+duration <= end. Ranges shorter than duration contribute nothing. Each step is compared
// against the last valid start before it is taken, so huge inputs cannot wrap.
func Starts(free []interval.Interval, duration, step int) []interval.Minute {
	if duration <= 0 || step <= 0 {
		return nil
	}
	d, s := interval.Minute(duration), interval.Minute(step)
	var out []interval.Minute
	for _, f := range free {
		if f.End < f.Start || d > f.Len() {
			continue
		}
		last := f.End - d
		for t := f.Start; ; t += s {
			out = append(out, t)
			if s > last-t {
				break
			}
		}
	}
	return out
}
