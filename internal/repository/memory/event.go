package memory

import (
	"context"
	"fmt"

	"eventroster/internal/domain"
)

type eventRepository struct {
	*DB
}

// NewEventRepository returns an EventRepository backed by db.
func NewEventRepository(db *DB) domain.EventRepository {
	return &eventRepository{DB: db}
}

func (r *eventRepository) Create(_ context.Context, e *domain.Event) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tblEvents, "code", e.Code)
	if err != nil {
		return fmt.Errorf("find event by code: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("event %s: %w", e.Code, domain.ErrDuplicate)
	}

	if e.ID == "" {
		e.ID = newID()
	}
	stored := *e
	if err := txn.Insert(tblEvents, &stored); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *eventRepository) GetByID(_ context.Context, id string) (*domain.Event, error) {
	return r.first("id", id)
}

func (r *eventRepository) GetByCode(_ context.Context, code string) (*domain.Event, error) {
	return r.first("code", code)
}

func (r *eventRepository) first(index, value string) (*domain.Event, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblEvents, index, value)
	if err != nil {
		return nil, fmt.Errorf("find event by %s: %w", index, err)
	}
	if raw == nil {
		return nil, domain.ErrNotFound
	}
	e := *raw.(*domain.Event)
	return &e, nil
}

func (r *eventRepository) UpdateConfirmedCount(_ context.Context, eventID string, count int) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblEvents, "id", eventID)
	if err != nil {
		return fmt.Errorf("find event by id: %w", err)
	}
	if raw == nil {
		return domain.ErrNotFound
	}
	e := *raw.(*domain.Event)
	e.ConfirmedCount = count
	if err := txn.Insert(tblEvents, &e); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	txn.Commit()
	return nil
}
