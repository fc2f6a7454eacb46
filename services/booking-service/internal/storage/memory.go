package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

type weekdayKey struct {
	professionalID string
	weekday        time.Weekday
}

// MemoryStore keeps every table in process. Each write runs as one critical section, so the
// overlap check and the insert are atomic. Used by tests and STORE_BACKEND=memory.
type MemoryStore struct {
	mu            sync.RWMutex
	now           func() time.Time
	salons        map[string]model.Salon
	professionals map[string]model.Professional
	services      map[string]model.Service
	clients       map[string]model.Client
	hours         map[weekdayKey][]interval.Interval
	exceptions    map[string]model.Exception
	appointments  map[string]model.Appointment
}

var (
	_ AppointmentStore = (*MemoryStore)(nil)
	_ Catalog          = (*MemoryStore)(nil)
	_ calendar.Store   = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:           time.Now,
		salons:        map[string]model.Salon{},
		professionals: map[string]model.Professional{},
		services:      map[string]model.Service{},
		clients:       map[string]model.Client{},
		hours:         map[weekdayKey][]interval.Interval{},
		exceptions:    map[string]model.Exception{},
		appointments:  map[string]model.Appointment{},
	}
}

func (s *MemoryStore) PutSalon(v model.Salon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.salons[v.ID] = v
}

func (s *MemoryStore) PutProfessional(v model.Professional) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.professionals[v.ID] = v
}

// PutService inserts or edits a service. Existing appointments keep their stored end.
func (s *MemoryStore) PutService(v model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[v.ID] = v
}

func (s *MemoryStore) PutClient(v model.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[v.ID] = v
}

func (s *MemoryStore) Salon(_ context.Context, salonID string) (model.Salon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.salons[salonID]
	if !ok {
		return model.Salon{}, fmt.Errorf("salon %q: %w", salonID, model.ErrNotFound)
	}
	return v, nil
}

func (s *MemoryStore) Professional(_ context.Context, professionalID string) (model.Professional, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.professionals[professionalID]
	if !ok {
		return model.Professional{}, fmt.Errorf("professional %q: %w", professionalID, model.ErrNotFound)
	}
	return v, nil
}

func (s *MemoryStore) Service(_ context.Context, serviceID string) (model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.services[serviceID]
	if !ok {
		return model.Service{}, fmt.Errorf("service %q: %w", serviceID, model.ErrNotFound)
	}
	return v, nil
}

func (s *MemoryStore) Client(_ context.Context, clientID string) (model.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.clients[clientID]
	if !ok {
		return model.Client{}, fmt.Errorf("client %q: %w", clientID, model.ErrNotFound)
	}
	return v, nil
}

func (s *MemoryStore) WeeklyHours(_ context.Context, professionalID string, weekday time.Weekday) ([]interval.Interval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.hours[weekdayKey{professionalID, weekday}]), nil
}

func (s *MemoryStore) ReplaceWeeklyHours(_ context.Context, professionalID string, weekday time.Weekday, intervals []interval.Interval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.professionals[professionalID]; !ok {
		return fmt.Errorf("professional %q: %w", professionalID, model.ErrNotFound)
	}
	s.hours[weekdayKey{professionalID, weekday}] = slices.Clone(intervals)
	return nil
}

func (s *MemoryStore) Exceptions(ctx context.Context, professionalID string, date model.Date) ([]model.Exception, error) {
	return s.ListExceptions(ctx, professionalID, date, date)
}

func (s *MemoryStore) ListExceptions(_ context.Context, professionalID string, from, to model.Date) ([]model.Exception, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Exception{}
	for _, e := range s.exceptions {
		if e.ProfessionalID != professionalID || e.Date.Before(from) || to.Before(e.Date) {
			continue
		}
		e.Intervals = slices.Clone(e.Intervals)
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b model.Exception) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case b.Date.Before(a.Date):
			return 1
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) InsertException(_ context.Context, exc model.Exception) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.professionals[exc.ProfessionalID]; !ok {
		return "", fmt.Errorf("professional %q: %w", exc.ProfessionalID, model.ErrNotFound)
	}
	if exc.ID == "" {
		exc.ID = uuid.NewString()
	}
	exc.Intervals = slices.Clone(exc.Intervals)
	s.exceptions[exc.ID] = exc
	return exc.ID, nil
}

func (s *MemoryStore) DeleteException(_ context.Context, professionalID, exceptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exceptions[exceptionID]
	if !ok || e.ProfessionalID != professionalID {
		return fmt.Errorf("exception %q: %w", exceptionID, model.ErrNotFound)
	}
	delete(s.exceptions, exceptionID)
	return nil
}

func (s *MemoryStore) BookedIntervals(_ context.Context, professionalID string, date model.Date) ([]interval.Interval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookedLocked(professionalID, date, ""), nil
}

func (s *MemoryStore) Insert(_ context.Context, appt model.Appointment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.Status == "" {
		appt.Status = model.StatusScheduled
	}
	if _, dup := s.appointments[appt.ID]; dup {
		return "", fmt.Errorf("%w: appointment %s already exists", model.ErrInvalidArgument, appt.ID)
	}
	if appt.Status.Blocking() && interval.OverlapsAny(appt.Interval(), s.bookedLocked(appt.ProfessionalID, appt.Date, "")) {
		return "", fmt.Errorf("insert appointment %s at %s: %w", appt.Date, appt.Interval(), model.ErrConflict)
	}
	now := s.now().UTC()
	appt.CreatedAt, appt.UpdatedAt = now, now
	s.appointments[appt.ID] = appt
	return appt.ID, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, appointmentID string, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.appointments[appointmentID]
	if !ok {
		return fmt.Errorf("appointment %q: %w", appointmentID, model.ErrNotFound)
	}
	if err := model.CheckTransition(cur.Status, status); err != nil {
		return err
	}
	if cur.Status == status {
		return nil
	}
	if status.Blocking() && !cur.Status.Blocking() &&
		interval.OverlapsAny(cur.Interval(), s.bookedLocked(cur.ProfessionalID, cur.Date, cur.ID)) {
		return fmt.Errorf("update appointment %s: %w", appointmentID, model.ErrConflict)
	}
	cur.Status = status
	cur.UpdatedAt = s.now().UTC()
	s.appointments[appointmentID] = cur
	return nil
}

func (s *MemoryStore) Get(_ context.Context, appointmentID string) (model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.appointments[appointmentID]
	if !ok {
		return model.Appointment{}, fmt.Errorf("appointment %q: %w", appointmentID, model.ErrNotFound)
	}
	return appt, nil
}

func (s *MemoryStore) ListByProfessionalDate(_ context.Context, professionalID string, date model.Date) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Appointment{}
	for _, a := range s.appointments {
		if a.ProfessionalID == professionalID && a.Date == date {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b model.Appointment) int {
		if a.Start != b.Start {
			return int(a.Start - b.Start)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) bookedLocked(professionalID string, date model.Date, skipID string) []interval.Interval {
	out := []interval.Interval{}
	for _, a := range s.appointments {
		if a.ID == skipID || a.ProfessionalID != professionalID || a.Date != date || !a.Status.Blocking() {
			continue
		}
		out = append(out, a.Interval())
	}
	interval.Sort(out)
	return out
}
