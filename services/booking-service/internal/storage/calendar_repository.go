package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// CalendarRepository stores weekly hours (one row per range) and dated exceptions (ranges as
// parallel start/end minute arrays).
type CalendarRepository struct {
	q db.Querier
}

var _ calendar.Store = (*CalendarRepository)(nil)

func NewCalendarRepository(q db.Querier) *CalendarRepository {
	return &CalendarRepository{q: q}
}

func (r *CalendarRepository) Professional(ctx context.Context, professionalID string) (model.Professional, error) {
	return selectProfessional(ctx, r.q, professionalID)
}

func (r *CalendarRepository) WeeklyHours(ctx context.Context, professionalID string, weekday time.Weekday) ([]interval.Interval, error) {
	rows, err := r.q.Query(ctx, `
		SELECT start_minute, end_minute
		FROM professional_working_hours
		WHERE professional_id = $1 AND weekday = $2
		ORDER BY start_minute ASC
	`, professionalID, int(weekday))
	if err != nil {
		return nil, lookupErr(err, "professional", professionalID)
	}
	defer rows.Close()

	var out []interval.Interval
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

func (r *CalendarRepository) Exceptions(ctx context.Context, professionalID string, date model.Date) ([]model.Exception, error) {
	return r.ListExceptions(ctx, professionalID, date, date)
}

func (r *CalendarRepository) ListExceptions(ctx context.Context, professionalID string, from, to model.Date) ([]model.Exception, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id::text, professional_id::text, exception_date, full_day, start_minutes, end_minutes, reason
		FROM professional_exceptions
		WHERE professional_id = $1
			AND exception_date BETWEEN $2 AND $3
		ORDER BY exception_date ASC, created_at ASC
	`, professionalID, from.Time(), to.Time())
	if err != nil {
		return nil, lookupErr(err, "professional", professionalID)
	}
	defer rows.Close()

	out := []model.Exception{}
	for rows.Next() {
		var (
			exc    model.Exception
			day    time.Time
			starts []int32
			ends   []int32
		)
		if err := rows.Scan(&exc.ID, &exc.ProfessionalID, &day, &exc.FullDay, &starts, &ends, &exc.Reason); err != nil {
			return nil, err
		}
		if len(starts) != len(ends) {
			return nil, fmt.Errorf("exception %s: %d starts but %d ends", exc.ID, len(starts), len(ends))
		}
		exc.Date = model.DateOf(day)
		for i := range starts {
			exc.Intervals = append(exc.Intervals, interval.Interval{Start: interval.Minute(starts[i]), End: interval.Minute(ends[i])})
		}
		out = append(out, exc)
	}
	if err := rows.Err(); err != nil {
		return nil, lookupErr(err, "professional", professionalID)
	}
	return out, nil
}

// ReplaceWeeklyHours swaps one weekday's rows in a single transaction.
func (r *CalendarRepository) ReplaceWeeklyHours(ctx context.Context, professionalID string, weekday time.Weekday, intervals []interval.Interval) error {
	return db.InTx(ctx, r.q, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM professional_working_hours
			WHERE professional_id = $1 AND weekday = $2
		`, professionalID, int(weekday)); err != nil {
			return err
		}
		for _, in := range intervals {
			if _, err := tx.Exec(ctx, `
				INSERT INTO professional_working_hours (professional_id, weekday, start_minute, end_minute)
				VALUES ($1, $2, $3, $4)
			`, professionalID, int(weekday), int(in.Start), int(in.End)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *CalendarRepository) InsertException(ctx context.Context, exc model.Exception) (string, error) {
	if exc.ID == "" {
		exc.ID = uuid.NewString()
	}
	starts := make([]int32, 0, len(exc.Intervals))
	ends := make([]int32, 0, len(exc.Intervals))
	for _, in := range exc.Intervals {
		starts = append(starts, int32(in.Start))
		ends = append(ends, int32(in.End))
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO professional_exceptions
			(id, professional_id, exception_date, full_day, start_minutes, end_minutes, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, exc.ID, exc.ProfessionalID, exc.Date.Time(), exc.FullDay, starts, ends, exc.Reason)
	if err != nil {
		if isInvalidReference(err) {
			return "", fmt.Errorf("professional %q: %w", exc.ProfessionalID, model.ErrNotFound)
		}
		return "", err
	}
	return exc.ID, nil
}

func (r *CalendarRepository) DeleteException(ctx context.Context, professionalID, exceptionID string) error {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM professional_exceptions
		WHERE id = $1 AND professional_id = $2
	`, exceptionID, professionalID)
	if err != nil {
		return lookupErr(err, "exception", exceptionID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("exception %q: %w", exceptionID, model.ErrNotFound)
	}
	return nil
}
