package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"eventroster/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, code, name, location, start_date, end_date, time_zone, max_participants, confirmed_count, created_at, updated_at`

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (code, name, location, start_date, end_date, time_zone, max_participants, confirmed_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		e.Code, e.Name, e.Location, e.StartDate, e.EndDate, e.TimeZone,
		e.MaxParticipants, e.ConfirmedCount, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("event %s: %w", e.Code, domain.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.DB.QueryRowContext(ctx, query, id))
}

// GetByCode matches the event code case-insensitively.
func (r *eventRepository) GetByCode(ctx context.Context, code string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE lower(code) = $1`
	return scanEvent(r.DB.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(code))))
}

func (r *eventRepository) UpdateConfirmedCount(ctx context.Context, eventID string, count int) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE events SET confirmed_count = $2, updated_at = now() WHERE id = $1`, eventID, count)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanEvent(row *sql.Row) (*domain.Event, error) {
	e := &domain.Event{}
	err := row.Scan(
		&e.ID, &e.Code, &e.Name, &e.Location, &e.StartDate, &e.EndDate, &e.TimeZone,
		&e.MaxParticipants, &e.ConfirmedCount, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}
