package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/reservation"
)

type BookingHandler struct {
	booking Booking
	logger  *slog.Logger
}

func NewBookingHandler(booking Booking, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{booking: booking, logger: logger}
}

type bookRequest struct {
	ProfessionalID     string `json:"professional_id"`
	ClientID           string `json:"client_id"`
	ServiceID          string `json:"service_id"`
	Date               string `json:"date"`
	StartTime          string `json:"start_time"`
	GranularityMinutes int    `json:"granularity_minutes"`
	Notes              string `json:"notes"`
}

type bookResponse struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
}

type statusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

type statusResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type slotsResponse struct {
	ProfessionalID  string     `json:"professional_id"`
	Date            string     `json:"date"`
	DurationMinutes int        `json:"duration_minutes"`
	Slots           []slotItem `json:"slots"`
}

type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	ClientID      string `json:"client_id"`
	ServiceID     string `json:"service_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// Slots answers GET /api/v1/public/slots. Duration comes from service_id or duration_minutes.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	professionalID := queryParam(r, "professional_id")
	serviceID := queryParam(r, "service_id")
	dateStr := queryParam(r, "date")
	if professionalID == "" || dateStr == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "professional_id and date are required")
		return
	}
	date, err := model.ParseDate(dateStr)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	duration, ok := optionalInt(r, "duration_minutes")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "duration_minutes must be an integer")
		return
	}
	if serviceID == "" && duration == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "service_id or duration_minutes is required")
		return
	}
	granularity, ok := optionalInt(r, "granularity_minutes")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "granularity_minutes must be an integer")
		return
	}

	slots, err := h.booking.Availability(r.Context(), reservation.AvailabilityRequest{
		ProfessionalID:     professionalID,
		ServiceID:          serviceID,
		DurationMinutes:    duration,
		Date:               date,
		GranularityMinutes: granularity,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	length := interval.Minute(slots.DurationMinutes)
	resp := slotsResponse{
		ProfessionalID:  professionalID,
		Date:            date.String(),
		DurationMinutes: slots.DurationMinutes,
		Slots:           make([]slotItem, 0, len(slots.Starts)),
	}
	for _, s := range slots.Starts {
		resp.Slots = append(resp.Slots, slotItem{StartTime: s.String(), EndTime: (s + length).String()})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Book answers POST /api/v1/public/book.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	req.ProfessionalID = strings.TrimSpace(req.ProfessionalID)
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.ProfessionalID == "" || req.ClientID == "" || req.ServiceID == "" || req.Date == "" || req.StartTime == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "professional_id, client_id, service_id, date and start_time are required")
		return
	}
	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	start, err := interval.ParseClock(req.StartTime)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "start_time must be HH:MM")
		return
	}

	res, err := h.booking.Reserve(r.Context(), reservation.Request{
		ProfessionalID:     req.ProfessionalID,
		ClientID:           req.ClientID,
		ServiceID:          req.ServiceID,
		Date:               date,
		Start:              start,
		GranularityMinutes: req.GranularityMinutes,
		Notes:              strings.TrimSpace(req.Notes),
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, bookResponse{
		AppointmentID: res.AppointmentID,
		Date:          res.Appointment.Date.String(),
		StartTime:     res.Appointment.Start.String(),
		EndTime:       res.Appointment.End.String(),
		Status:        string(res.Appointment.Status),
	})
}

// UpdateStatus answers POST /api/v1/appointments/status.
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "appointment_id is required")
		return
	}
	status, err := model.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if err := h.booking.UpdateStatus(r.Context(), req.AppointmentID, status); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, statusResponse{AppointmentID: req.AppointmentID, Status: string(status)})
}

// List answers GET /api/v1/appointments?professional_id&date.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	professionalID := queryParam(r, "professional_id")
	dateStr := queryParam(r, "date")
	if professionalID == "" || dateStr == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "professional_id and date are required")
		return
	}
	date, err := model.ParseDate(dateStr)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	appts, err := h.booking.Appointments(r.Context(), professionalID, date)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, appointmentItem{
			AppointmentID: a.ID,
			ClientID:      a.ClientID,
			ServiceID:     a.ServiceID,
			Date:          a.Date.String(),
			StartTime:     a.Start.String(),
			EndTime:       a.End.String(),
			Status:        string(a.Status),
			Notes:         a.Notes,
			CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}
