package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// ScheduleHandler serves the admin endpoints that edit working hours and exceptions.
type ScheduleHandler struct {
	schedule Schedule
	logger   *slog.Logger
}

func NewScheduleHandler(schedule Schedule, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule, logger: logger}
}

type workingHoursRequest struct {
	ProfessionalID string       `json:"professional_id"`
	Weekday        *int         `json:"weekday"`
	Intervals      []clockRange `json:"intervals"`
}

type workingHoursResponse struct {
	ProfessionalID string       `json:"professional_id"`
	Weekday        int          `json:"weekday"`
	Intervals      []clockRange `json:"intervals"`
}

type exceptionRequest struct {
	ProfessionalID string       `json:"professional_id"`
	Date           string       `json:"date"`
	FullDay        bool         `json:"full_day"`
	Start          string       `json:"start"`
	End            string       `json:"end"`
	Intervals      []clockRange `json:"intervals"`
	Reason         string       `json:"reason"`
}

type exceptionItem struct {
	ExceptionID    string       `json:"exception_id"`
	ProfessionalID string       `json:"professional_id"`
	Date           string       `json:"date"`
	FullDay        bool         `json:"full_day"`
	Intervals      []clockRange `json:"intervals"`
	Reason         string       `json:"reason,omitempty"`
}

// SetWorkingHours answers PUT /api/v1/professionals/working-hours. An empty interval list closes the day.
func (h *ScheduleHandler) SetWorkingHours(w http.ResponseWriter, r *http.Request) {
	var req workingHoursRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	req.ProfessionalID = strings.TrimSpace(req.ProfessionalID)
	if req.ProfessionalID == "" || req.Weekday == nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "professional_id and weekday are required")
		return
	}
	intervals := make([]interval.Interval, 0, len(req.Intervals))
	for _, c := range req.Intervals {
		in, err := c.parse()
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", err.Error())
			return
		}
		intervals = append(intervals, in)
	}
	weekday := time.Weekday(*req.Weekday)
	if err := h.schedule.SetWorkingHours(r.Context(), req.ProfessionalID, weekday, intervals); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, workingHoursResponse{
		ProfessionalID: req.ProfessionalID,
		Weekday:        int(weekday),
		Intervals:      toClockRanges(interval.Normalize(intervals)),
	})
}

// AddException answers POST /api/v1/professionals/exceptions.
func (h *ScheduleHandler) AddException(w http.ResponseWriter, r *http.Request) {
	var req exceptionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	req.ProfessionalID = strings.TrimSpace(req.ProfessionalID)
	if req.ProfessionalID == "" || req.Date == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "professional_id and date are required")
		return
	}
	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	ranges := req.Intervals
	if req.Start != "" || req.End != "" {
		ranges = append(ranges, clockRange{Start: req.Start, End: req.End})
	}
	exc := model.Exception{
		ProfessionalID: req.ProfessionalID,
		Date:           date,
		FullDay:        req.FullDay,
		Reason:         strings.TrimSpace(req.Reason),
	}
	if !req.FullDay {
		for _, c := range ranges {
			in, err := c.parse()
			if err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", err.Error())
				return
			}
			exc.Intervals = append(exc.Intervals, in)
		}
	}
	id, err := h.schedule.AddException(r.Context(), exc)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	exc.ID = id
	httpx.WriteJSON(w, http.StatusCreated, toExceptionItem(exc))
}

// ListExceptions answers GET /api/v1/professionals/exceptions?professional_id&from&to. to defaults to from.
func (h *ScheduleHandler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	professionalID := queryParam(r, "professional_id")
	fromStr := queryParam(r, "from")
	if professionalID == "" || fromStr == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "professional_id and from are required")
		return
	}
	from, err := model.ParseDate(fromStr)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	to := from
	if raw := queryParam(r, "to"); raw != "" {
		if to, err = model.ParseDate(raw); err != nil {
			writeDomainError(w, r, h.logger, err)
			return
		}
	}
	excs, err := h.schedule.ListExceptions(r.Context(), professionalID, from, to)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	items := make([]exceptionItem, 0, len(excs))
	for _, e := range excs {
		items = append(items, toExceptionItem(e))
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

// DeleteException answers DELETE /api/v1/professionals/exceptions/{id}?professional_id.
func (h *ScheduleHandler) DeleteException(w http.ResponseWriter, r *http.Request) {
	professionalID := queryParam(r, "professional_id")
	id := strings.TrimSpace(r.PathValue("id"))
	if professionalID == "" || id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "professional_id and exception id are required")
		return
	}
	if err := h.schedule.RemoveException(r.Context(), professionalID, id); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toExceptionItem(e model.Exception) exceptionItem {
	return exceptionItem{
		ExceptionID:    e.ID,
		ProfessionalID: e.ProfessionalID,
		Date:           e.Date.String(),
		FullDay:        e.FullDay,
		Intervals:      toClockRanges(e.Intervals),
		Reason:         e.Reason,
	}
}
