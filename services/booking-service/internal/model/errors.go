package model

import "errors"

var (
	// ErrNotFound: unknown professional, service, client or appointment.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument: malformed input such as a non-positive duration or bad date.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSlotUnavailable: the requested start time is not currently free.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrConflict is reported by stores when an insert would overlap a blocking appointment.
	// It never crosses the reservation boundary; callers see ErrSlotUnavailable instead.
	ErrConflict = errors.New("conflict")
)
