package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"crmsync_backend/platform/apperr"
)

const (
	contactNotFoundMessage = "contact not found"
	contactEmailTakenMsg   = "a contact with this email already exists"

	// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
	uniqueViolation = "23505"
)

const contactColumns = `id, email, name, phone, company, title, created_at, updated_at`

// contactFieldColumns maps update-diff field names to their columns. Fields
// outside this set are rejected before any SQL is built.
var contactFieldColumns = map[string]string{
	"email":   "email",
	"name":    "name",
	"phone":   "phone",
	"company": "company",
	"title":   "title",
}

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new canonical store repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// CreateContact inserts a new contact. A concurrent insert of the same email
// surfaces as a conflict error so the caller can fall back to the existing row.
func (r *Repo) CreateContact(ctx context.Context, params CreateContactParams) (Contact, error) {
	query := `
		INSERT INTO contacts (email, name, phone, company, title)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + contactColumns

	contact, err := scanContact(r.pool.QueryRow(ctx, query,
		params.Email, params.Name, params.Phone, params.Company, params.Title,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return Contact{}, apperr.Conflict(contactEmailTakenMsg)
		}
		return Contact{}, fmt.Errorf("create contact: %w", err)
	}

	return contact, nil
}

// GetContactByID retrieves a contact by its ID.
func (r *Repo) GetContactByID(ctx context.Context, id uuid.UUID) (Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`

	contact, err := scanContact(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound(contactNotFoundMessage)
		}
		return Contact{}, fmt.Errorf("get contact by id: %w", err)
	}

	return contact, nil
}

// GetContactByEmail retrieves a contact by email, case-insensitively.
func (r *Repo) GetContactByEmail(ctx context.Context, email string) (Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE lower(email) = lower($1)`

	contact, err := scanContact(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound(contactNotFoundMessage)
		}
		return Contact{}, fmt.Errorf("get contact by email: %w", err)
	}

	return contact, nil
}

// ListContacts retrieves all contacts ordered by name.
func (r *Repo) ListContacts(ctx context.Context) ([]Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts ORDER BY name ASC, email ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var results []Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		results = append(results, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}

	return results, nil
}

// UpdateContactFields applies only the given fields to the contact.
func (r *Repo) UpdateContactFields(ctx context.Context, id uuid.UUID, fields map[string]string) (Contact, error) {
	if len(fields) == 0 {
		return r.GetContactByID(ctx, id)
	}

	setClause := ""
	args := []interface{}{id}
	for field, value := range fields {
		column, ok := contactFieldColumns[field]
		if !ok {
			return Contact{}, apperr.Validation("unknown contact field: " + field)
		}
		args = append(args, value)
		if setClause != "" {
			setClause += ", "
		}
		setClause += fmt.Sprintf("%s = $%d", column, len(args))
	}

	query := fmt.Sprintf(`
		UPDATE contacts
		SET %s, updated_at = now()
		WHERE id = $1
		RETURNING `+contactColumns, setClause)

	contact, err := scanContact(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound(contactNotFoundMessage)
		}
		if isUniqueViolation(err) {
			return Contact{}, apperr.Conflict(contactEmailTakenMsg)
		}
		return Contact{}, fmt.Errorf("update contact fields: %w", err)
	}

	return contact, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func scanContact(row pgx.Row) (Contact, error) {
	var contact Contact
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&contact.ID, &contact.Email, &contact.Name, &contact.Phone, &contact.Company, &contact.Title,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return Contact{}, err
	}

	contact.CreatedAt = createdAt.Format(time.RFC3339)
	contact.UpdatedAt = updatedAt.Format(time.RFC3339)

	return contact, nil
}
