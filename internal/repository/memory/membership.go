package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-memdb"

	"eventroster/internal/domain"
)

type membershipRepository struct {
	*DB
}

// NewMembershipRepository returns a MembershipRepository backed by db.
func NewMembershipRepository(db *DB) domain.MembershipRepository {
	return &membershipRepository{DB: db}
}

// stored strips the loaded person; it is never persisted.
func stored(m *domain.Membership) *domain.Membership {
	cp := *m
	cp.Person = nil
	return &cp
}

func (r *membershipRepository) Create(_ context.Context, m *domain.Membership) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tblMemberships, "event_id_person_id", m.EventID, m.PersonID)
	if err != nil {
		return fmt.Errorf("find membership by event and person: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("membership of %s in %s: %w", m.PersonID, m.EventID, domain.ErrDuplicate)
	}

	if m.ID == "" {
		m.ID = newID()
	}
	if err := txn.Insert(tblMemberships, stored(m)); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *membershipRepository) Update(_ context.Context, m *domain.Membership) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblMemberships, "id", m.ID)
	if err != nil {
		return fmt.Errorf("find membership by id: %w", err)
	}
	if raw == nil {
		return domain.ErrNotFound
	}
	if err := txn.Insert(tblMemberships, stored(m)); err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *membershipRepository) Delete(_ context.Context, id string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblMemberships, "id", id)
	if err != nil {
		return fmt.Errorf("find membership by id: %w", err)
	}
	if raw == nil {
		return domain.ErrNotFound
	}
	if err := txn.Delete(tblMemberships, raw); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *membershipRepository) GetByID(_ context.Context, id string) (*domain.Membership, error) {
	return r.first("id", id)
}

func (r *membershipRepository) GetByEventAndPerson(_ context.Context, eventID, personID string) (*domain.Membership, error) {
	if eventID == "" || personID == "" {
		return nil, domain.ErrNotFound
	}
	return r.first("event_id_person_id", eventID, personID)
}

func (r *membershipRepository) first(index string, args ...interface{}) (*domain.Membership, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblMemberships, index, args...)
	if err != nil {
		return nil, fmt.Errorf("find membership by %s: %w", index, err)
	}
	if raw == nil {
		return nil, domain.ErrNotFound
	}
	return stored(raw.(*domain.Membership)), nil
}

// ListByEvent returns one page of the event's memberships, oldest first.
func (r *membershipRepository) ListByEvent(_ context.Context, eventID string, params domain.PaginationParams) ([]*domain.Membership, int, error) {
	all, err := r.collect("event_id", eventID)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	total := len(all)
	start, end := params.Window(total)
	return all[start:end], total, nil
}

func (r *membershipRepository) ListByRole(_ context.Context, eventID string, role domain.Role) ([]*domain.Membership, error) {
	list, err := r.collect("event_id_role", eventID, string(role))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (r *membershipRepository) CountByAttendance(_ context.Context, eventID, excludeID string, states ...domain.Attendance) (int, error) {
	list, err := r.collect("event_id", eventID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range list {
		if m.ID == excludeID {
			continue
		}
		for _, s := range states {
			if m.Attendance == s {
				n++
				break
			}
		}
	}
	return n, nil
}

func (r *membershipRepository) collect(index string, args ...interface{}) ([]*domain.Membership, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblMemberships, index, args...)
	if err != nil {
		return nil, fmt.Errorf("find memberships by %s: %w", index, err)
	}
	return drain(iter), nil
}

func drain(iter memdb.ResultIterator) []*domain.Membership {
	list := make([]*domain.Membership, 0)
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		list = append(list, stored(raw.(*domain.Membership)))
	}
	return list
}
