package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"eventroster/internal/domain"
)

type personRepository struct {
	DB *sql.DB
}

func NewPersonRepository(db *sql.DB) domain.PersonRepository {
	return &personRepository{DB: db}
}

const personColumns = `id, legacy_id, firstname, lastname, email, affiliation, title, department, url, phone,
	address1, city, region, postal_code, country, biography, research_areas, updated_by, created_at, updated_at`

func (r *personRepository) Create(ctx context.Context, p *domain.Person) error {
	query := `
		INSERT INTO people (legacy_id, firstname, lastname, email, affiliation, title, department, url, phone,
			address1, city, region, postal_code, country, biography, research_areas, updated_by, created_at, updated_at)
		VALUES (NULLIF($1, ''), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		p.LegacyID, p.Firstname, p.Lastname, p.Email, p.Affiliation, p.Title, p.Department, p.URL, p.Phone,
		p.Address1, p.City, p.Region, p.PostalCode, p.Country, p.Biography, p.ResearchAreas,
		p.UpdatedBy, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("person %s: %w", p.Email, domain.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *personRepository) Update(ctx context.Context, p *domain.Person) error {
	query := `
		UPDATE people SET legacy_id = NULLIF($2, ''), firstname = $3, lastname = $4, email = $5, affiliation = $6,
			title = $7, department = $8, url = $9, phone = $10, address1 = $11, city = $12, region = $13,
			postal_code = $14, country = $15, biography = $16, research_areas = $17, updated_by = $18, updated_at = $19
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query,
		p.ID, p.LegacyID, p.Firstname, p.Lastname, p.Email, p.Affiliation, p.Title, p.Department, p.URL, p.Phone,
		p.Address1, p.City, p.Region, p.PostalCode, p.Country, p.Biography, p.ResearchAreas,
		p.UpdatedBy, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("person %s: %w", p.Email, domain.ErrDuplicate)
		}
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *personRepository) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	return scanPerson(r.DB.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE id = $1`, id))
}

func (r *personRepository) GetByLegacyID(ctx context.Context, legacyID string) (*domain.Person, error) {
	if strings.TrimSpace(legacyID) == "" {
		return nil, domain.ErrNotFound
	}
	return scanPerson(r.DB.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE legacy_id = $1`, legacyID))
}

func (r *personRepository) GetByEmail(ctx context.Context, email string) (*domain.Person, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrNotFound
	}
	return scanPerson(r.DB.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE lower(email) = $1`, email))
}

func scanPerson(row *sql.Row) (*domain.Person, error) {
	p := &domain.Person{}
	var legacyID sql.NullString
	err := row.Scan(
		&p.ID, &legacyID, &p.Firstname, &p.Lastname, &p.Email, &p.Affiliation, &p.Title, &p.Department, &p.URL, &p.Phone,
		&p.Address1, &p.City, &p.Region, &p.PostalCode, &p.Country, &p.Biography, &p.ResearchAreas,
		&p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if legacyID.Valid {
		p.LegacyID = legacyID.String
	}
	return p, nil
}
