// Package calendar answers "when does this professional work on this date": recurring weekly
// hours with that date's exceptions cut out.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// Source is the read side of calendar storage.
type Source interface {
	Professional(ctx context.Context, professionalID string) (model.Professional, error)
	WeeklyHours(ctx context.Context, professionalID string, weekday time.Weekday) ([]interval.Interval, error)
	Exceptions(ctx context.Context, professionalID string, date model.Date) ([]model.Exception, error)
}

// Store adds the write side used by admin endpoints.
type Store interface {
	Source
	ReplaceWeeklyHours(ctx context.Context, professionalID string, weekday time.Weekday, intervals []interval.Interval) error
	InsertException(ctx context.Context, exc model.Exception) (string, error)
	DeleteException(ctx context.Context, professionalID, exceptionID string) error
	ListExceptions(ctx context.Context, professionalID string, from, to model.Date) ([]model.Exception, error)
}

type Model struct {
	store Store
}

func New(store Store) *Model {
	return &Model{store: store}
}

// WorkingIntervals returns the professional's open ranges on date, sorted and disjoint.
// Unknown or inactive professionals yield ErrNotFound; a full-day exception yields an empty slice.
func (m *Model) WorkingIntervals(ctx context.Context, professionalID string, date model.Date) ([]interval.Interval, error) {
	if _, err := m.activeProfessional(ctx, professionalID); err != nil {
		return nil, err
	}
	weekly, err := m.store.WeeklyHours(ctx, professionalID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("calendar: weekly hours: %w", err)
	}
	excs, err := m.store.Exceptions(ctx, professionalID, date)
	if err != nil {
		return nil, fmt.Errorf("calendar: exceptions: %w", err)
	}

	var off []interval.Interval
	for _, e := range excs {
		if e.FullDay {
			return []interval.Interval{}, nil
		}
		off = append(off, e.Intervals...)
	}
	return interval.Subtract(weekly, off), nil
}

// SetWorkingHours replaces one weekday's ranges. Ranges are merged; an empty list closes the day.
func (m *Model) SetWorkingHours(ctx context.Context, professionalID string, weekday time.Weekday, intervals []interval.Interval) error {
	if weekday < time.Sunday || weekday > time.Saturday {
		return fmt.Errorf("%w: weekday %d out of range", model.ErrInvalidArgument, weekday)
	}
	if err := validate(intervals); err != nil {
		return err
	}
	if _, err := m.store.Professional(ctx, professionalID); err != nil {
		return err
	}
	return m.store.ReplaceWeeklyHours(ctx, professionalID, weekday, interval.Normalize(intervals))
}

// AddException records time off. FullDay exceptions carry no ranges.
func (m *Model) AddException(ctx context.Context, exc model.Exception) (string, error) {
	if exc.Date.IsZero() {
		return "", fmt.Errorf("%w: exception date required", model.ErrInvalidArgument)
	}
	if exc.FullDay {
		exc.Intervals = nil
	} else {
		if len(exc.Intervals) == 0 {
			return "", fmt.Errorf("%w: exception needs full_day or at least one range", model.ErrInvalidArgument)
		}
		if err := validate(exc.Intervals); err != nil {
			return "", err
		}
		exc.Intervals = interval.Normalize(exc.Intervals)
	}
	if _, err := m.store.Professional(ctx, exc.ProfessionalID); err != nil {
		return "", err
	}
	return m.store.InsertException(ctx, exc)
}

func (m *Model) RemoveException(ctx context.Context, professionalID, exceptionID string) error {
	return m.store.DeleteException(ctx, professionalID, exceptionID)
}

// ListExceptions lists exceptions with from <= date <= to.
func (m *Model) ListExceptions(ctx context.Context, professionalID string, from, to model.Date) ([]model.Exception, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end before start", model.ErrInvalidArgument)
	}
	return m.store.ListExceptions(ctx, professionalID, from, to)
}

func (m *Model) activeProfessional(ctx context.Context, professionalID string) (model.Professional, error) {
	p, err := m.store.Professional(ctx, professionalID)
	if err != nil {
		return model.Professional{}, err
	}
	if !p.Active {
		return model.Professional{}, fmt.Errorf("%w: professional %s is inactive", model.ErrNotFound, professionalID)
	}
	return p, nil
}

func validate(intervals []interval.Interval) error {
	for _, i := range intervals {
		if !i.Valid() {
			return fmt.Errorf("%w: range %s must satisfy 00:00 <= start < end <= 24:00", model.ErrInvalidArgument, i)
		}
	}
	return nil
}
