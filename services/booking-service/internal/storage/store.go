package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// AppointmentStore persists appointments. Inserts and status changes for one
// (professional, date) are serialized by the implementation.
type AppointmentStore interface {
	// BookedIntervals returns the blocking appointments' ranges sorted by start.
	BookedIntervals(ctx context.Context, professionalID string, date model.Date) ([]interval.Interval, error)
	// Insert stores appt unless it overlaps a blocking appointment, in which case it returns ErrConflict.
	Insert(ctx context.Context, appt model.Appointment) (string, error)
	UpdateStatus(ctx context.Context, appointmentID string, status model.Status) error
	Get(ctx context.Context, appointmentID string) (model.Appointment, error)
	ListByProfessionalDate(ctx context.Context, professionalID string, date model.Date) ([]model.Appointment, error)
}

// Catalog resolves the entities a reservation refers to.
type Catalog interface {
	Salon(ctx context.Context, salonID string) (model.Salon, error)
	Professional(ctx context.Context, professionalID string) (model.Professional, error)
	Service(ctx context.Context, serviceID string) (model.Service, error)
	Client(ctx context.Context, clientID string) (model.Client, error)
}

// LockKey names the exclusion scope shared by every writer for one professional's day.
func LockKey(professionalID string, date model.Date) string {
	return professionalID + "/" + date.String()
}

func blockingStatusNames() []string {
	out := make([]string, 0, len(model.BlockingStatuses))
	for _, s := range model.BlockingStatuses {
		out = append(out, string(s))
	}
	return out
}

// IsConflict reports an exclusion-constraint violation (SQLSTATE 23P01).
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isInvalidReference reports a foreign-key violation (SQLSTATE 23503).
func isInvalidReference(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
