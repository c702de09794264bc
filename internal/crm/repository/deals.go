package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"crmsync_backend/platform/apperr"
)

const dealNotFoundMessage = "deal not found"

const dealColumns = `id, name, stage, amount, created_at, updated_at`

// CreateDeal inserts a new deal.
func (r *Repo) CreateDeal(ctx context.Context, params CreateDealParams) (Deal, error) {
	stage := params.Stage
	if stage == "" {
		stage = "new"
	}

	query := `
		INSERT INTO deals (name, stage, amount)
		VALUES ($1, $2, $3)
		RETURNING ` + dealColumns

	deal, err := scanDeal(r.pool.QueryRow(ctx, query, params.Name, stage, params.Amount))
	if err != nil {
		return Deal{}, fmt.Errorf("create deal: %w", err)
	}

	return deal, nil
}

// GetDealByID retrieves a deal by its ID.
func (r *Repo) GetDealByID(ctx context.Context, id uuid.UUID) (Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1`

	deal, err := scanDeal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Deal{}, apperr.NotFound(dealNotFoundMessage)
		}
		return Deal{}, fmt.Errorf("get deal by id: %w", err)
	}

	return deal, nil
}

// ListDeals retrieves all deals, newest first.
func (r *Repo) ListDeals(ctx context.Context) ([]Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	var results []Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		results = append(results, deal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deals: %w", err)
	}

	return results, nil
}

func scanDeal(row pgx.Row) (Deal, error) {
	var deal Deal
	var createdAt, updatedAt time.Time

	err := row.Scan(&deal.ID, &deal.Name, &deal.Stage, &deal.Amount, &createdAt, &updatedAt)
	if err != nil {
		return Deal{}, err
	}

	deal.CreatedAt = createdAt.Format(time.RFC3339)
	deal.UpdatedAt = updatedAt.Format(time.RFC3339)

	return deal, nil
}
