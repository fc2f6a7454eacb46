// Package notify tells the outside world about committed reservations. Delivery is best effort:
// failures are logged and never undo a booking.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// Event describes a committed reservation.
type Event struct {
	AppointmentID  string
	SalonID        string
	ProfessionalID string
	ClientID       string
	ServiceID      string
	Date           model.Date
	Start          interval.Minute
	End            interval.Minute
	// OccurredAt is the commit time, UTC.
	OccurredAt time.Time
}

func EventFromAppointment(a model.Appointment, at time.Time) Event {
	return Event{
		AppointmentID:  a.ID,
		SalonID:        a.SalonID,
		ProfessionalID: a.ProfessionalID,
		ClientID:       a.ClientID,
		ServiceID:      a.ServiceID,
		Date:           a.Date,
		Start:          a.Start,
		End:            a.End,
		OccurredAt:     at.UTC(),
	}
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// LogNotifier writes the event to the service log. It is the fallback when no channel is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Logger.Info("appointment reserved",
		"appointment_id", ev.AppointmentID,
		"salon_id", ev.SalonID,
		"professional_id", ev.ProfessionalID,
		"date", ev.Date.String(),
		"start", ev.Start.String(),
		"end", ev.End.String(),
	)
	return nil
}

// Target is a named delivery channel.
type Target struct {
	Channel  string
	Notifier Notifier
}

type Observer interface {
	ObserveNotification(channel string, err error)
}

// Dispatcher delivers events to every target in the background.
type Dispatcher struct {
	targets  []Target
	logger   *slog.Logger
	observer Observer
	timeout  time.Duration
	wg       sync.WaitGroup
}

type DispatcherConfig struct {
	// Timeout bounds one delivery. Defaults to 10s.
	Timeout  time.Duration
	Observer Observer
}

func NewDispatcher(logger *slog.Logger, cfg DispatcherConfig, targets ...Target) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		targets:  targets,
		logger:   logger,
		observer: cfg.Observer,
		timeout:  cfg.Timeout,
	}
}

// Dispatch returns immediately. Delivery outlives ctx cancellation but keeps its values
// (trace and request ids).
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	base := context.WithoutCancel(ctx)
	for _, t := range d.targets {
		d.wg.Add(1)
		go func(t Target) {
			defer d.wg.Done()
			dctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			err := t.Notifier.Notify(dctx, ev)
			if d.observer != nil {
				d.observer.ObserveNotification(t.Channel, err)
			}
			if err != nil {
				d.logger.Warn("notification failed", "channel", t.Channel, "appointment_id", ev.AppointmentID, "err", err)
			}
		}(t)
	}
}

// Close waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}
