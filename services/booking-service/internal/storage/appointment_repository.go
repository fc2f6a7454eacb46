package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

const appointmentColumns = `
	id::text, salon_id::text, professional_id::text, client_id::text, service_id::text,
	appointment_date, start_minute, end_minute, status, notes, created_at, updated_at`

// AppointmentRepository is the Postgres AppointmentStore. Writers for one (professional, date)
// serialize on a transaction-scoped advisory lock; the appointments_no_overlap exclusion
// constraint backs the overlap check.
type AppointmentRepository struct {
	q db.Querier
}

var _ AppointmentStore = (*AppointmentRepository)(nil)

func NewAppointmentRepository(q db.Querier) *AppointmentRepository {
	return &AppointmentRepository{q: q}
}

func (r *AppointmentRepository) BookedIntervals(ctx context.Context, professionalID string, date model.Date) ([]interval.Interval, error) {
	rows, err := r.q.Query(ctx, `
		SELECT start_minute, end_minute
		FROM appointments
		WHERE professional_id = $1
			AND appointment_date = $2
			AND status = ANY($3)
		ORDER BY start_minute ASC, end_minute ASC
	`, professionalID, date.Time(), blockingStatusNames())
	if err != nil {
		return nil, lookupErr(err, "professional", professionalID)
	}
	defer rows.Close()

	out := []interval.Interval{}
	for rows.Next() {
		var start, end int
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		out = append(out, interval.Interval{Start: interval.Minute(start), End: interval.Minute(end)})
	}
	if err := rows.Err(); err != nil {
		return nil, lookupErr(err, "professional", professionalID)
	}
	return out, nil
}

func (r *AppointmentRepository) Insert(ctx context.Context, appt model.Appointment) (string, error) {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.Status == "" {
		appt.Status = model.StatusScheduled
	}
	err := db.InTx(ctx, r.q, func(tx pgx.Tx) error {
		if err := lockDay(ctx, tx, appt.ProfessionalID, appt.Date); err != nil {
			return err
		}
		if appt.Status.Blocking() {
			clash, err := overlapsBlocking(ctx, tx, appt.ProfessionalID, appt.Date, appt.Interval(), "")
			if err != nil {
				return err
			}
			if clash {
				return model.ErrConflict
			}
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO appointments
				(id, salon_id, professional_id, client_id, service_id, appointment_date, start_minute, end_minute, status, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, appt.ID, appt.SalonID, appt.ProfessionalID, appt.ClientID, appt.ServiceID,
			appt.Date.Time(), int(appt.Start), int(appt.End), string(appt.Status), appt.Notes)
		return err
	})
	switch {
	case err == nil:
		return appt.ID, nil
	case errors.Is(err, model.ErrConflict), IsConflict(err):
		return "", fmt.Errorf("insert appointment %s at %s: %w", appt.Date, appt.Interval(), model.ErrConflict)
	case isInvalidReference(err):
		return "", fmt.Errorf("insert appointment: %w: unknown salon, professional, client or service", model.ErrNotFound)
	default:
		return "", err
	}
}

// UpdateStatus applies a status transition. Moving a cancelled appointment back to a blocking
// status re-checks overlap under the same advisory lock inserts use.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, appointmentID string, status model.Status) error {
	err := db.InTx(ctx, r.q, func(tx pgx.Tx) error {
		cur, err := scanAppointment(tx.QueryRow(ctx, `SELECT `+appointmentColumns+`
			FROM appointments
			WHERE id = $1
			FOR UPDATE
		`, appointmentID))
		if err != nil {
			return lookupErr(err, "appointment", appointmentID)
		}
		if err := model.CheckTransition(cur.Status, status); err != nil {
			return err
		}
		if cur.Status == status {
			return nil
		}
		if status.Blocking() && !cur.Status.Blocking() {
			if err := lockDay(ctx, tx, cur.ProfessionalID, cur.Date); err != nil {
				return err
			}
			clash, err := overlapsBlocking(ctx, tx, cur.ProfessionalID, cur.Date, cur.Interval(), cur.ID)
			if err != nil {
				return err
			}
			if clash {
				return model.ErrConflict
			}
		}
		_, err = tx.Exec(ctx, `
			UPDATE appointments
			SET status = $2,
				updated_at = now()
			WHERE id = $1
		`, appointmentID, string(status))
		return err
	})
	if err != nil && IsConflict(err) {
		return fmt.Errorf("update appointment %s: %w", appointmentID, model.ErrConflict)
	}
	return err
}

func (r *AppointmentRepository) Get(ctx context.Context, appointmentID string) (model.Appointment, error) {
	appt, err := scanAppointment(r.q.QueryRow(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, appointmentID))
	if err != nil {
		return model.Appointment{}, lookupErr(err, "appointment", appointmentID)
	}
	return appt, nil
}

func (r *AppointmentRepository) ListByProfessionalDate(ctx context.Context, professionalID string, date model.Date) ([]model.Appointment, error) {
	rows, err := r.q.Query(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1 AND appointment_date = $2
		ORDER BY start_minute ASC
	`, professionalID, date.Time())
	if err != nil {
		return nil, lookupErr(err, "professional", professionalID)
	}
	defer rows.Close()

	appts := []model.Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, lookupErr(err, "professional", professionalID)
	}
	return appts, nil
}

func lockDay(ctx context.Context, tx pgx.Tx, professionalID string, date model.Date) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, LockKey(professionalID, date))
	return err
}

func overlapsBlocking(ctx context.Context, tx pgx.Tx, professionalID string, date model.Date, in interval.Interval, excludeID string) (bool, error) {
	var clash bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE professional_id = $1
				AND appointment_date = $2
				AND status = ANY($3)
				AND start_minute < $5
				AND end_minute > $4
				AND id::text <> $6
		)
	`, professionalID, date.Time(), blockingStatusNames(), int(in.Start), int(in.End), excludeID).Scan(&clash)
	return clash, err
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		appt       model.Appointment
		day        time.Time
		start, end int
		status     string
	)
	if err := row.Scan(
		&appt.ID,
		&appt.SalonID,
		&appt.ProfessionalID,
		&appt.ClientID,
		&appt.ServiceID,
		&day,
		&start,
		&end,
		&status,
		&appt.Notes,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return model.Appointment{}, err
	}
	appt.Date = model.DateOf(day)
	appt.Start, appt.End = interval.Minute(start), interval.Minute(end)
	appt.Status = model.Status(status)
	return appt, nil
}

// lookupErr maps a missing row, or an id that is not a valid uuid, to ErrNotFound.
func lookupErr(err error, what, id string) error {
	var pgErr *pgconn.PgError
	if IsNotFound(err) || (errors.As(err, &pgErr) && pgErr.Code == "22P02") {
		return fmt.Errorf("%s %q: %w", what, id, model.ErrNotFound)
	}
	return err
}
