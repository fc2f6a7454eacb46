// Package reservation is the only write path for appointments. It serializes writers per
// professional and day, re-derives availability under that lock and commits at most one
// booking per slot.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultLockTimeout = 5 * time.Second

type Request struct {
	ProfessionalID string
	ClientID       string
	ServiceID      string
	Date           model.Date
	Start          interval.Minute
	// GranularityMinutes must match the grid the caller picked the slot from; <= 0 uses the default.
	GranularityMinutes int
	Notes              string
}

type Reservation struct {
	AppointmentID string
	Appointment   model.Appointment
}

// AvailabilityRequest asks for slots by service (duration and buffer come from the catalog) or
// by a raw duration when ServiceID is empty.
type AvailabilityRequest struct {
	ProfessionalID     string
	ServiceID          string
	DurationMinutes    int
	Date               model.Date
	GranularityMinutes int
}

// Slots is an availability answer: every free start for a booking of DurationMinutes.
type Slots struct {
	DurationMinutes int
	Starts          []interval.Minute
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev notify.Event)
}

type Deps struct {
	Catalog  storage.Catalog
	Store    storage.AppointmentStore
	Calendar availability.WorkingHours
	Locker   Locker
	// Notifier may be nil.
	Notifier Dispatcher
	Metrics  *metrics.BookingMetrics
	Logger   *slog.Logger
}

type Config struct {
	LockTimeout               time.Duration
	DefaultGranularityMinutes int
	Now                       func() time.Time
}

type Coordinator struct {
	catalog     storage.Catalog
	store       storage.AppointmentStore
	slots       *availability.Generator
	locker      Locker
	notifier    Dispatcher
	metrics     *metrics.BookingMetrics
	logger      *slog.Logger
	tracer      trace.Tracer
	lockTimeout time.Duration
	now         func() time.Time
}

func New(deps Deps, cfg Config) *Coordinator {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Coordinator{
		catalog: deps.Catalog,
		store:   deps.Store,
		slots: availability.NewGenerator(deps.Calendar, deps.Store, availability.Options{
			DefaultGranularityMinutes: cfg.DefaultGranularityMinutes,
			Now:                       cfg.Now,
		}),
		locker:      deps.Locker,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		tracer:      otel.Tracer("booking-service/reservation"),
		lockTimeout: cfg.LockTimeout,
		now:         cfg.Now,
	}
}

// Reserve books req.Start for the service's duration. It returns ErrSlotUnavailable when the start
// is not free at commit time, ErrNotFound for unknown, inactive or cross-salon references and
// ErrInvalidArgument for malformed input. If ctx ends before the insert starts nothing is written;
// once the insert starts its outcome is returned.
func (c *Coordinator) Reserve(ctx context.Context, req Request) (res Reservation, err error) {
	started := time.Now()
	ctx, span := c.tracer.Start(ctx, "reservation.reserve", trace.WithAttributes(
		attribute.String("booking.professional_id", req.ProfessionalID),
		attribute.String("booking.date", req.Date.String()),
		attribute.String("booking.start", req.Start.String()),
	))
	defer func() {
		outcome := outcomeOf(err)
		c.metrics.ObserveReservation(outcome, time.Since(started).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	if err := validateRequest(req); err != nil {
		return Reservation{}, err
	}
	ref, err := c.resolve(ctx, req.ProfessionalID, req.ServiceID, req.ClientID)
	if err != nil {
		return Reservation{}, err
	}

	unlock, err := c.lock(ctx, storage.LockKey(req.ProfessionalID, req.Date))
	if err != nil {
		return Reservation{}, err
	}
	defer unlock()
	if err := ctx.Err(); err != nil {
		return Reservation{}, err
	}

	slots, err := c.slots.AvailableSlots(ctx, availability.Query{
		ProfessionalID:     req.ProfessionalID,
		Date:               req.Date,
		DurationMinutes:    ref.service.DurationMinutes,
		GranularityMinutes: req.GranularityMinutes,
		BufferMinutes:      ref.service.BufferMinutes,
		Location:           ref.salon.Location(),
	})
	if err != nil {
		return Reservation{}, err
	}
	if !slices.Contains(slots, req.Start) {
		return Reservation{}, fmt.Errorf("%w: %s at %s", model.ErrSlotUnavailable, req.Date, req.Start)
	}
	if err := ctx.Err(); err != nil {
		return Reservation{}, err
	}

	appt := model.Appointment{
		ID:             uuid.NewString(),
		SalonID:        ref.salon.ID,
		ProfessionalID: req.ProfessionalID,
		ClientID:       req.ClientID,
		ServiceID:      req.ServiceID,
		Date:           req.Date,
		Start:          req.Start,
		End:            req.Start + interval.Minute(ref.service.DurationMinutes),
		Status:         model.StatusScheduled,
		Notes:          req.Notes,
	}
	id, err := c.store.Insert(context.WithoutCancel(ctx), appt)
	if errors.Is(err, model.ErrConflict) {
		return Reservation{}, fmt.Errorf("%w: %s at %s was taken concurrently", model.ErrSlotUnavailable, req.Date, req.Start)
	}
	if err != nil {
		return Reservation{}, fmt.Errorf("insert appointment: %w", err)
	}
	appt.ID = id
	unlock()

	c.logger.Info("appointment reserved",
		"appointment_id", id,
		"salon_id", appt.SalonID,
		"professional_id", appt.ProfessionalID,
		"date", appt.Date.String(),
		"start", appt.Start.String(),
		"request_id", httpx.RequestIDFromContext(ctx),
	)
	if c.notifier != nil {
		c.notifier.Dispatch(ctx, notify.EventFromAppointment(appt, c.now()))
	}
	return Reservation{AppointmentID: id, Appointment: appt}, nil
}

// Availability lists free start times for a professional on a date.
func (c *Coordinator) Availability(ctx context.Context, req AvailabilityRequest) (out Slots, err error) {
	ctx, span := c.tracer.Start(ctx, "reservation.availability", trace.WithAttributes(
		attribute.String("booking.professional_id", req.ProfessionalID),
		attribute.String("booking.date", req.Date.String()),
	))
	defer func() {
		c.metrics.ObserveSlotQuery(err, len(out.Starts))
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	if req.ProfessionalID == "" || req.Date.IsZero() {
		return Slots{}, fmt.Errorf("%w: professional_id and date are required", model.ErrInvalidArgument)
	}
	pro, err := c.activeProfessional(ctx, req.ProfessionalID)
	if err != nil {
		return Slots{}, err
	}
	salon, err := c.catalog.Salon(ctx, pro.SalonID)
	if err != nil {
		return Slots{}, err
	}
	q := availability.Query{
		ProfessionalID:     req.ProfessionalID,
		Date:               req.Date,
		DurationMinutes:    req.DurationMinutes,
		GranularityMinutes: req.GranularityMinutes,
		Location:           salon.Location(),
	}
	if req.ServiceID != "" {
		svc, err := c.activeService(ctx, req.ServiceID, pro.SalonID)
		if err != nil {
			return Slots{}, err
		}
		q.DurationMinutes = svc.DurationMinutes
		q.BufferMinutes = svc.BufferMinutes
	}
	starts, err := c.slots.AvailableSlots(ctx, q)
	if err != nil {
		return Slots{}, err
	}
	return Slots{DurationMinutes: q.DurationMinutes, Starts: starts}, nil
}

// UpdateStatus applies an admin status change under the same lock as reservations. Reinstating a
// cancelled appointment whose time was rebooked fails with ErrSlotUnavailable.
func (c *Coordinator) UpdateStatus(ctx context.Context, appointmentID string, status model.Status) (err error) {
	ctx, span := c.tracer.Start(ctx, "reservation.update_status", trace.WithAttributes(
		attribute.String("booking.appointment_id", appointmentID),
		attribute.String("booking.status", string(status)),
	))
	defer func() {
		result := "ok"
		if err != nil {
			result = outcomeOf(err)
			span.RecordError(err)
		}
		c.metrics.ObserveStatusChange(string(status), result)
		span.End()
	}()

	if appointmentID == "" {
		return fmt.Errorf("%w: appointment_id is required", model.ErrInvalidArgument)
	}
	status, err = model.ParseStatus(string(status))
	if err != nil {
		return err
	}
	appt, err := c.store.Get(ctx, appointmentID)
	if err != nil {
		return err
	}
	unlock, err := c.lock(ctx, storage.LockKey(appt.ProfessionalID, appt.Date))
	if err != nil {
		return err
	}
	defer unlock()

	err = c.store.UpdateStatus(context.WithoutCancel(ctx), appointmentID, status)
	if errors.Is(err, model.ErrConflict) {
		return fmt.Errorf("%w: %s at %s is no longer free", model.ErrSlotUnavailable, appt.Date, appt.Start)
	}
	if err != nil {
		return err
	}
	c.logger.Info("appointment status changed", "appointment_id", appointmentID, "from", string(appt.Status), "to", string(status))
	return nil
}

// Appointments lists every appointment of a professional on a date, all statuses.
func (c *Coordinator) Appointments(ctx context.Context, professionalID string, date model.Date) ([]model.Appointment, error) {
	if professionalID == "" || date.IsZero() {
		return nil, fmt.Errorf("%w: professional_id and date are required", model.ErrInvalidArgument)
	}
	if _, err := c.catalog.Professional(ctx, professionalID); err != nil {
		return nil, err
	}
	return c.store.ListByProfessionalDate(ctx, professionalID, date)
}

type references struct {
	salon   model.Salon
	service model.Service
}

// resolve loads the request's entities and requires them to belong to one salon.
func (c *Coordinator) resolve(ctx context.Context, professionalID, serviceID, clientID string) (references, error) {
	pro, err := c.activeProfessional(ctx, professionalID)
	if err != nil {
		return references{}, err
	}
	svc, err := c.activeService(ctx, serviceID, pro.SalonID)
	if err != nil {
		return references{}, err
	}
	client, err := c.catalog.Client(ctx, clientID)
	if err != nil {
		return references{}, err
	}
	if client.SalonID != pro.SalonID {
		return references{}, fmt.Errorf("client %q: %w", clientID, model.ErrNotFound)
	}
	salon, err := c.catalog.Salon(ctx, pro.SalonID)
	if err != nil {
		return references{}, err
	}
	return references{salon: salon, service: svc}, nil
}

func (c *Coordinator) activeProfessional(ctx context.Context, id string) (model.Professional, error) {
	pro, err := c.catalog.Professional(ctx, id)
	if err != nil {
		return model.Professional{}, err
	}
	if !pro.Active {
		return model.Professional{}, fmt.Errorf("professional %q is inactive: %w", id, model.ErrNotFound)
	}
	return pro, nil
}

// activeService hides services of other salons behind ErrNotFound.
func (c *Coordinator) activeService(ctx context.Context, id, salonID string) (model.Service, error) {
	svc, err := c.catalog.Service(ctx, id)
	if err != nil {
		return model.Service{}, err
	}
	if !svc.Active || svc.SalonID != salonID {
		return model.Service{}, fmt.Errorf("service %q: %w", id, model.ErrNotFound)
	}
	if svc.DurationMinutes <= 0 {
		return model.Service{}, fmt.Errorf("%w: service %q has no duration", model.ErrInvalidArgument, id)
	}
	return svc, nil
}

func (c *Coordinator) lock(ctx context.Context, key string) (func(), error) {
	lctx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	defer cancel()
	started := time.Now()
	unlock, err := c.locker.Lock(lctx, key)
	c.metrics.ObserveLockWait(err == nil, time.Since(started).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	return unlock, nil
}

func validateRequest(req Request) error {
	switch {
	case req.ProfessionalID == "", req.ClientID == "", req.ServiceID == "":
		return fmt.Errorf("%w: professional_id, client_id and service_id are required", model.ErrInvalidArgument)
	case req.Date.IsZero():
		return fmt.Errorf("%w: date is required", model.ErrInvalidArgument)
	case req.Start < 0 || req.Start >= interval.DayEnd:
		return fmt.Errorf("%w: start %d is outside the day", model.ErrInvalidArgument, int(req.Start))
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, model.ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
