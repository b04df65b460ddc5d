package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"eventroster/internal/domain"
)

type invitationRepository struct {
	DB *sql.DB
}

func NewInvitationRepository(db *sql.DB) domain.InvitationRepository {
	return &invitationRepository{DB: db}
}

const invitationColumns = `id, membership_id, code, invited_on, expires, reminders, created_at`

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	reminders := inv.Reminders
	if reminders == nil {
		reminders = []domain.Reminder{}
	}
	raw, err := json.Marshal(reminders)
	if err != nil {
		return fmt.Errorf("encode reminders: %w", err)
	}
	query := `
		INSERT INTO invitations (membership_id, code, invited_on, expires, reminders, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err = r.DB.QueryRowContext(ctx, query, inv.MembershipID, inv.Code, inv.InvitedOn, inv.Expires, raw, inv.CreatedAt).Scan(&inv.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invitation for %s: %w", inv.MembershipID, domain.ErrDuplicate)
		}
		return err
	}
	return nil
}

// AddReminder appends to the JSONB history in place so concurrent reminders are not lost.
func (r *invitationRepository) AddReminder(ctx context.Context, invitationID string, rem domain.Reminder) error {
	raw, err := json.Marshal([]domain.Reminder{rem})
	if err != nil {
		return fmt.Errorf("encode reminder: %w", err)
	}
	result, err := r.DB.ExecContext(ctx, `UPDATE invitations SET reminders = reminders || $2::jsonb WHERE id = $1`, invitationID, raw)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *invitationRepository) GetByCode(ctx context.Context, code string) (*domain.Invitation, error) {
	if code == "" {
		return nil, domain.ErrNotFound
	}
	return scanInvitation(r.DB.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE code = $1`, code))
}

func (r *invitationRepository) GetByMembershipID(ctx context.Context, membershipID string) (*domain.Invitation, error) {
	return scanInvitation(r.DB.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE membership_id = $1`, membershipID))
}

func (r *invitationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanInvitation(row *sql.Row) (*domain.Invitation, error) {
	inv := &domain.Invitation{}
	var raw []byte
	err := row.Scan(&inv.ID, &inv.MembershipID, &inv.Code, &inv.InvitedOn, &inv.Expires, &raw, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	inv.Reminders = []domain.Reminder{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &inv.Reminders); err != nil {
			return nil, fmt.Errorf("decode reminders: %w", err)
		}
	}
	return inv, nil
}
