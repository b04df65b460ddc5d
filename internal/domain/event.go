package domain

import (
	"context"
	"time"
)

// Event is a scheduled workshop with a capped roster.
// swagger:model Event
type Event struct {
	ID              string    `json:"id"`
	Code            string    `json:"code" validate:"required" label:"Code"`
	Name            string    `json:"name"`
	Location        string    `json:"location"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	TimeZone        string    `json:"time_zone" validate:"timezone" label:"Time zone"`
	MaxParticipants int       `json:"max_participants"`
	ConfirmedCount  int       `json:"confirmed_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Loc returns the event's time zone, falling back to UTC when it is unset or unknown.
func (e *Event) Loc() *time.Location {
	if e.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StartsOn returns the first day of the event at midnight in the event's time zone.
func (e *Event) StartsOn() time.Time {
	return DateIn(e.StartDate, e.Loc())
}

// EndsOn returns the last day of the event at midnight in the event's time zone.
func (e *Event) EndsOn() time.Time {
	return DateIn(e.EndDate, e.Loc())
}

// IsPast reports whether the event started before the day containing now.
func (e *Event) IsPast(now time.Time) bool {
	return e.StartsOn().Before(DateIn(now, e.Loc()))
}

// DateIn truncates t to midnight of its calendar day in loc. Values stored as
// plain dates (midnight at UTC offset zero) keep their calendar day.
func DateIn(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		return t
	}
	if !isPlainDate(t) {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func isPlainDate(t time.Time) bool {
	_, offset := t.Zone()
	return offset == 0 && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetByCode(ctx context.Context, code string) (*Event, error)
	UpdateConfirmedCount(ctx context.Context, eventID string, count int) error
}
