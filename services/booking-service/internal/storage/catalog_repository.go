package storage

import (
	"context"

	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

type CatalogRepository struct {
	q db.Querier
}

var _ Catalog = (*CatalogRepository)(nil)

func NewCatalogRepository(q db.Querier) *CatalogRepository {
	return &CatalogRepository{q: q}
}

func (r *CatalogRepository) Salon(ctx context.Context, salonID string) (model.Salon, error) {
	var s model.Salon
	err := r.q.QueryRow(ctx, `
		SELECT id::text, name, timezone
		FROM salons
		WHERE id = $1
	`, salonID).Scan(&s.ID, &s.Name, &s.Timezone)
	if err != nil {
		return model.Salon{}, lookupErr(err, "salon", salonID)
	}
	return s, nil
}

func (r *CatalogRepository) Professional(ctx context.Context, professionalID string) (model.Professional, error) {
	return selectProfessional(ctx, r.q, professionalID)
}

func (r *CatalogRepository) Service(ctx context.Context, serviceID string) (model.Service, error) {
	var s model.Service
	err := r.q.QueryRow(ctx, `
		SELECT id::text, salon_id::text, name, duration_minutes, buffer_minutes, active
		FROM services
		WHERE id = $1
	`, serviceID).Scan(&s.ID, &s.SalonID, &s.Name, &s.DurationMinutes, &s.BufferMinutes, &s.Active)
	if err != nil {
		return model.Service{}, lookupErr(err, "service", serviceID)
	}
	return s, nil
}

func (r *CatalogRepository) Client(ctx context.Context, clientID string) (model.Client, error) {
	var c model.Client
	err := r.q.QueryRow(ctx, `
		SELECT id::text, salon_id::text, name, phone, email
		FROM clients
		WHERE id = $1
	`, clientID).Scan(&c.ID, &c.SalonID, &c.Name, &c.Phone, &c.Email)
	if err != nil {
		return model.Client{}, lookupErr(err, "client", clientID)
	}
	return c, nil
}

func selectProfessional(ctx context.Context, q db.Querier, professionalID string) (model.Professional, error) {
	var p model.Professional
	err := q.QueryRow(ctx, `
		SELECT id::text, salon_id::text, name, active
		FROM professionals
		WHERE id = $1
	`, professionalID).Scan(&p.ID, &p.SalonID, &p.Name, &p.Active)
	if err != nil {
		return model.Professional{}, lookupErr(err, "professional", professionalID)
	}
	return p, nil
}
