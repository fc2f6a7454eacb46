package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/reservation"
)

type Booking interface {
	Reserve(ctx context.Context, req reservation.Request) (reservation.Reservation, error)
	Availability(ctx context.Context, req reservation.AvailabilityRequest) (reservation.Slots, error)
	UpdateStatus(ctx context.Context, appointmentID string, status model.Status) error
	Appointments(ctx context.Context, professionalID string, date model.Date) ([]model.Appointment, error)
}

type Schedule interface {
	SetWorkingHours(ctx context.Context, professionalID string, weekday time.Weekday, intervals []interval.Interval) error
	AddException(ctx context.Context, exc model.Exception) (string, error)
	ListExceptions(ctx context.Context, professionalID string, from, to model.Date) ([]model.Exception, error)
	RemoveException(ctx context.Context, professionalID, exceptionID string) error
}

// Register mounts every booking route on mux.
func Register(mux *http.ServeMux, b *BookingHandler, s *ScheduleHandler) {
	mux.HandleFunc("GET /api/v1/public/slots", b.Slots)
	mux.HandleFunc("POST /api/v1/public/book", b.Book)
	mux.HandleFunc("GET /api/v1/appointments", b.List)
	mux.HandleFunc("POST /api/v1/appointments/status", b.UpdateStatus)

	mux.HandleFunc("PUT /api/v1/professionals/working-hours", s.SetWorkingHours)
	mux.HandleFunc("GET /api/v1/professionals/exceptions", s.ListExceptions)
	mux.HandleFunc("POST /api/v1/professionals/exceptions", s.AddException)
	mux.HandleFunc("DELETE /api/v1/professionals/exceptions/{id}", s.DeleteException)
}

type clockRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (c clockRange) parse() (interval.Interval, error) {
	start, err := interval.ParseClock(c.Start)
	if err != nil {
		return interval.Interval{}, err
	}
	end, err := interval.ParseClock(c.End)
	if err != nil {
		return interval.Interval{}, err
	}
	return interval.Interval{Start: start, End: end}, nil
}

func toClockRanges(in []interval.Interval) []clockRange {
	out := make([]clockRange, 0, len(in))
	for _, i := range in {
		out = append(out, clockRange{Start: i.Start.String(), End: i.End.String()})
	}
	return out
}

func queryParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func optionalInt(r *http.Request, key string) (int, bool) {
	raw := queryParam(r, key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// writeDomainError maps sentinel errors to status codes. Anything unexpected is logged and
// reported as a generic 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, model.ErrInvalidArgument):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, model.ErrSlotUnavailable):
		httpx.WriteError(w, http.StatusConflict, "slot_unavailable", "the requested time is no longer available")
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(w, http.StatusServiceUnavailable, "busy", "calendar is busy, retry shortly")
	case errors.Is(err, context.Canceled):
		logger.Info("request cancelled", "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
	default:
		logger.Error("request failed", "path", r.URL.Path, "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
