package memory

import (
	"context"
	"fmt"

	"eventroster/internal/domain"
)

type invitationRepository struct {
	*DB
}

// NewInvitationRepository returns an InvitationRepository backed by db.
func NewInvitationRepository(db *DB) domain.InvitationRepository {
	return &invitationRepository{DB: db}
}

func copyInvitation(inv *domain.Invitation) *domain.Invitation {
	cp := *inv
	cp.Reminders = append([]domain.Reminder{}, inv.Reminders...)
	return &cp
}

func (r *invitationRepository) Create(_ context.Context, inv *domain.Invitation) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	for index, value := range map[string]string{"code": inv.Code, "membership_id": inv.MembershipID} {
		existing, err := txn.First(tblInvitations, index, value)
		if err != nil {
			return fmt.Errorf("find invitation by %s: %w", index, err)
		}
		if existing != nil {
			return fmt.Errorf("invitation %s %s: %w", index, value, domain.ErrDuplicate)
		}
	}

	if inv.ID == "" {
		inv.ID = newID()
	}
	if err := txn.Insert(tblInvitations, copyInvitation(inv)); err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *invitationRepository) AddReminder(_ context.Context, invitationID string, rem domain.Reminder) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblInvitations, "id", invitationID)
	if err != nil {
		return fmt.Errorf("find invitation by id: %w", err)
	}
	if raw == nil {
		return domain.ErrNotFound
	}
	inv := copyInvitation(raw.(*domain.Invitation))
	inv.Reminders = append(inv.Reminders, rem)
	if err := txn.Insert(tblInvitations, inv); err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *invitationRepository) GetByCode(_ context.Context, code string) (*domain.Invitation, error) {
	if code == "" {
		return nil, domain.ErrNotFound
	}
	return r.first("code", code)
}

func (r *invitationRepository) GetByMembershipID(_ context.Context, membershipID string) (*domain.Invitation, error) {
	return r.first("membership_id", membershipID)
}

func (r *invitationRepository) first(index, value string) (*domain.Invitation, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblInvitations, index, value)
	if err != nil {
		return nil, fmt.Errorf("find invitation by %s: %w", index, err)
	}
	if raw == nil {
		return nil, domain.ErrNotFound
	}
	return copyInvitation(raw.(*domain.Invitation)), nil
}

func (r *invitationRepository) Delete(_ context.Context, id string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblInvitations, "id", id)
	if err != nil {
		return fmt.Errorf("find invitation by id: %w", err)
	}
	if raw == nil {
		return domain.ErrNotFound
	}
	if err := txn.Delete(tblInvitations, raw); err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	txn.Commit()
	return nil
}
