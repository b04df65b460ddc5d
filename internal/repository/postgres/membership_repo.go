package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"eventroster/internal/domain"
)

type membershipRepository struct {
	DB *sql.DB
}

func NewMembershipRepository(db *sql.DB) domain.MembershipRepository {
	return &membershipRepository{DB: db}
}

const membershipColumns = `id, event_id, person_id, role, attendance, arrival_date, departure_date, staff_notes, special_info,
	has_guest, guest_disclaimer, invited_by, invited_on, replied_at, updated_by, created_at, updated_at`

func (r *membershipRepository) Create(ctx context.Context, m *domain.Membership) error {
	query := `
		INSERT INTO memberships (event_id, person_id, role, attendance, arrival_date, departure_date, staff_notes, special_info,
			has_guest, guest_disclaimer, invited_by, invited_on, replied_at, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		m.EventID, m.PersonID, string(m.Role), string(m.Attendance), m.ArrivalDate, m.DepartureDate, m.StaffNotes, m.SpecialInfo,
		m.HasGuest, m.GuestDisclaimer, m.InvitedBy, m.InvitedOn, m.RepliedAt, m.UpdatedBy, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("membership of %s in %s: %w", m.PersonID, m.EventID, domain.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *membershipRepository) Update(ctx context.Context, m *domain.Membership) error {
	query := `
		UPDATE memberships SET role = $2, attendance = $3, arrival_date = $4, departure_date = $5, staff_notes = $6,
			special_info = $7, has_guest = $8, guest_disclaimer = $9, invited_by = $10, invited_on = $11,
			replied_at = $12, updated_by = $13, updated_at = $14
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query,
		m.ID, string(m.Role), string(m.Attendance), m.ArrivalDate, m.DepartureDate, m.StaffNotes,
		m.SpecialInfo, m.HasGuest, m.GuestDisclaimer, m.InvitedBy, m.InvitedOn,
		m.RepliedAt, m.UpdatedBy, m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *membershipRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *membershipRepository) GetByID(ctx context.Context, id string) (*domain.Membership, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, id)
	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *membershipRepository) GetByEventAndPerson(ctx context.Context, eventID, personID string) (*domain.Membership, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE event_id = $1 AND person_id = $2`, eventID, personID)
	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// ListByEvent returns one page of the roster in creation order and the roster size.
// A non-positive page size returns the whole roster.
func (r *membershipRepository) ListByEvent(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Membership, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM memberships WHERE event_id = $1`, eventID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE event_id = $1 ORDER BY created_at, id`
	args := []any{eventID}
	if !params.Unpaged() {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, params.PageSize, params.Offset())
	}
	list, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *membershipRepository) ListByRole(ctx context.Context, eventID string, role domain.Role) ([]*domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE event_id = $1 AND role = $2 ORDER BY created_at, id`
	return r.query(ctx, query, eventID, string(role))
}

func (r *membershipRepository) CountByAttendance(ctx context.Context, eventID, excludeID string, states ...domain.Attendance) (int, error) {
	if len(states) == 0 {
		return 0, nil
	}
	values := make([]string, len(states))
	for i, s := range states {
		values[i] = string(s)
	}
	query := `
		SELECT COUNT(*) FROM memberships
		WHERE event_id = $1 AND attendance = ANY($2) AND ($3 = '' OR id::text <> $3)
	`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, eventID, pq.Array(values), excludeID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *membershipRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Membership, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*domain.Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMembership(row scanner) (*domain.Membership, error) {
	m := &domain.Membership{}
	var role, attendance string
	var arrival, departure, invitedOn, repliedAt sql.NullTime
	err := row.Scan(
		&m.ID, &m.EventID, &m.PersonID, &role, &attendance, &arrival, &departure, &m.StaffNotes, &m.SpecialInfo,
		&m.HasGuest, &m.GuestDisclaimer, &m.InvitedBy, &invitedOn, &repliedAt, &m.UpdatedBy, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	m.Attendance = domain.Attendance(attendance)
	m.ArrivalDate = timePtr(arrival)
	m.DepartureDate = timePtr(departure)
	m.InvitedOn = timePtr(invitedOn)
	m.RepliedAt = timePtr(repliedAt)
	return m, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
