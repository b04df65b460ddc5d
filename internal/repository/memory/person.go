package memory

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"

	"eventroster/internal/domain"
)

type personRepository struct {
	*DB
}

// NewPersonRepository returns a PersonRepository backed by db.
func NewPersonRepository(db *DB) domain.PersonRepository {
	return &personRepository{DB: db}
}

func (r *personRepository) Create(_ context.Context, p *domain.Person) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	stored := *p
	if stored.ID == "" {
		stored.ID = newID()
	}
	if err := checkPersonUnique(txn, &stored); err != nil {
		return err
	}
	if err := txn.Insert(tblPeople, &stored); err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	txn.Commit()
	p.ID = stored.ID
	return nil
}

func (r *personRepository) Update(_ context.Context, p *domain.Person) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblPeople, "id", p.ID)
	if err != nil {
		return fmt.Errorf("find person by id: %w", err)
	}
	if raw == nil {
		return domain.ErrNotFound
	}
	if err := checkPersonUnique(txn, p); err != nil {
		return err
	}
	stored := *p
	if err := txn.Insert(tblPeople, &stored); err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	txn.Commit()
	return nil
}

// checkPersonUnique enforces the unique indexes, which memdb itself does not.
func checkPersonUnique(txn *memdb.Txn, p *domain.Person) error {
	for index, value := range map[string]string{"email": domain.NormalizeEmail(p.Email), "legacy_id": p.LegacyID} {
		if value == "" {
			continue
		}
		raw, err := txn.First(tblPeople, index, value)
		if err != nil {
			return fmt.Errorf("find person by %s: %w", index, err)
		}
		if raw != nil && raw.(*domain.Person).ID != p.ID {
			return fmt.Errorf("person %s %s: %w", index, value, domain.ErrDuplicate)
		}
	}
	return nil
}

func (r *personRepository) GetByID(_ context.Context, id string) (*domain.Person, error) {
	return r.first("id", id)
}

func (r *personRepository) GetByLegacyID(_ context.Context, legacyID string) (*domain.Person, error) {
	if legacyID == "" {
		return nil, domain.ErrNotFound
	}
	return r.first("legacy_id", legacyID)
}

func (r *personRepository) GetByEmail(_ context.Context, email string) (*domain.Person, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrNotFound
	}
	return r.first("email", email)
}

func (r *personRepository) first(index, value string) (*domain.Person, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblPeople, index, value)
	if err != nil {
		return nil, fmt.Errorf("find person by %s: %w", index, err)
	}
	if raw == nil {
		return nil, domain.ErrNotFound
	}
	p := *raw.(*domain.Person)
	return &p, nil
}
