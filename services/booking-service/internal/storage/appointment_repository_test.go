package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func appointmentRow(id string, status model.Status) *pgxmock.Rows {
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	return pgxmock.NewRows([]string{
		"id", "salon_id", "professional_id", "client_id", "service_id",
		"appointment_date", "start_minute", "end_minute", "status", "notes", "created_at", "updated_at",
	}).AddRow(id, "salon-1", "pro-1", "client-1", "svc-1", testDay.Time(), 600, 630, string(status), "", now, now)
}

func TestAppointmentRepositoryInsert(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs("pro-1/2030-03-04").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("pro-1", pgxmock.AnyArg(), pgxmock.AnyArg(), 600, 630, "").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "salon-1", "pro-1", "client-1", "svc-1", pgxmock.AnyArg(), 600, 630, "scheduled", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	id, err := repo.Insert(context.Background(), appt(600, 630))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppointmentRepositoryInsertOverlapIsConflict(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	if _, err := repo.Insert(context.Background(), appt(600, 630)); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppointmentRepositoryExclusionViolationIsConflict(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO appointments").WillReturnError(&pgconn.PgError{Code: "23P01", ConstraintName: "appointments_no_overlap"})
	mock.ExpectRollback()

	_, err := repo.Insert(context.Background(), appt(600, 630))
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAppointmentRepositoryUpdateStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("appt-1").WillReturnRows(appointmentRow("appt-1", model.StatusScheduled))
	mock.ExpectExec("UPDATE appointments").WithArgs("appt-1", "confirmed").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	if err := repo.UpdateStatus(context.Background(), "appt-1", model.StatusConfirmed); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppointmentRepositoryReinstateChecksOverlap(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("appt-1").WillReturnRows(appointmentRow("appt-1", model.StatusCancelled))
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs("pro-1/2030-03-04").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("pro-1", pgxmock.AnyArg(), pgxmock.AnyArg(), 600, 630, "appt-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), "appt-1", model.StatusScheduled)
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppointmentRepositoryUpdateStatusNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	if err := repo.UpdateStatus(context.Background(), "missing", model.StatusConfirmed); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppointmentRepositoryGetScansRow(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock)

	mock.ExpectQuery("FROM appointments").WithArgs("appt-1").WillReturnRows(appointmentRow("appt-1", model.StatusConfirmed))

	got, err := repo.Get(context.Background(), "appt-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Date != testDay || got.Start != 600 || got.End != 630 || got.Status != model.StatusConfirmed {
		t.Fatalf("unexpected appointment %+v", got)
	}
}

func TestAppointmentRepositoryBookedIntervals(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock)

	mock.ExpectQuery("SELECT start_minute, end_minute").
		WithArgs("pro-1", pgxmock.AnyArg(), []string{"scheduled", "confirmed", "completed"}).
		WillReturnRows(pgxmock.NewRows([]string{"start_minute", "end_minute"}).AddRow(540, 570).AddRow(600, 660))

	got, err := repo.BookedIntervals(context.Background(), "pro-1", testDay)
	if err != nil {
		t.Fatalf("booked: %v", err)
	}
	if len(got) != 2 || got[0].Start != 540 || got[1].End != 660 {
		t.Fatalf("unexpected intervals %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppointmentRepositoryMalformedProfessionalIsNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepository(mock)
	badUUID := &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}

	mock.ExpectQuery("SELECT start_minute, end_minute").
		WithArgs("not-a-uuid", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"start_minute", "end_minute"}).AddRow(0, 0).RowError(0, badUUID))
	if _, err := repo.BookedIntervals(context.Background(), "not-a-uuid", testDay); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("booked: expected ErrNotFound, got %v", err)
	}

	mock.ExpectQuery("FROM appointments").
		WithArgs("not-a-uuid", pgxmock.AnyArg()).
		WillReturnRows(appointmentRow("appt-1", model.StatusScheduled).RowError(0, badUUID))
	if _, err := repo.ListByProfessionalDate(context.Background(), "not-a-uuid", testDay); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("list: expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
