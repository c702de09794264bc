package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crmsync_backend/platform/apperr"
)

const sourceEventNotFoundMessage = "source event not found"

const sourceEventColumns = `id, external_id, kind, subject, sender, body, received_at, status, metadata, error_detail, processed_at, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new source event repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Ingest stores a new source event keyed by external id. A conflicting
// external id returns the already stored event with created=false.
func (r *Repo) Ingest(ctx context.Context, params IngestParams) (SourceEvent, bool, error) {
	metadata, err := marshalMetadata(params.Metadata)
	if err != nil {
		return SourceEvent{}, false, err
	}

	query := `
		INSERT INTO source_events (external_id, kind, subject, sender, body, received_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING ` + sourceEventColumns

	event, err := scanSourceEvent(r.pool.QueryRow(ctx, query,
		params.ExternalID, params.Kind, params.Subject, params.Sender, params.Body, params.ReceivedAt, metadata,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, getErr := r.getByExternalID(ctx, params.ExternalID)
			if getErr != nil {
				return SourceEvent{}, false, getErr
			}
			return existing, false, nil
		}
		return SourceEvent{}, false, fmt.Errorf("ingest source event: %w", err)
	}

	return event, true, nil
}

// GetByID retrieves a source event by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (SourceEvent, error) {
	query := `SELECT ` + sourceEventColumns + ` FROM source_events WHERE id = $1`

	event, err := scanSourceEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SourceEvent{}, apperr.NotFound(sourceEventNotFoundMessage)
		}
		return SourceEvent{}, fmt.Errorf("get source event by id: %w", err)
	}

	return event, nil
}

func (r *Repo) getByExternalID(ctx context.Context, externalID string) (SourceEvent, error) {
	query := `SELECT ` + sourceEventColumns + ` FROM source_events WHERE external_id = $1`

	event, err := scanSourceEvent(r.pool.QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SourceEvent{}, apperr.NotFound(sourceEventNotFoundMessage)
		}
		return SourceEvent{}, fmt.Errorf("get source event by external id: %w", err)
	}

	return event, nil
}

// List retrieves source events filtered by status, newest first.
func (r *Repo) List(ctx context.Context, params ListParams) ([]SourceEvent, error) {
	limit := params.Limit
	if limit < 1 {
		limit = 50
	}

	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}

	query := `
		SELECT ` + sourceEventColumns + `
		FROM source_events
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY received_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, statusParam, limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list source events: %w", err)
	}
	defer rows.Close()

	return scanSourceEvents(rows)
}

// ListPending retrieves up to limit pending source events, oldest first so a
// backlog drains in arrival order.
func (r *Repo) ListPending(ctx context.Context, limit int) ([]SourceEvent, error) {
	query := `
		SELECT ` + sourceEventColumns + `
		FROM source_events
		WHERE status = 'pending'
		ORDER BY received_at ASC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending source events: %w", err)
	}
	defer rows.Close()

	return scanSourceEvents(rows)
}

// MarkProcessing transitions a pending event to processing.
func (r *Repo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE source_events SET status = 'processing', updated_at = now() WHERE id = $1 AND status = 'pending'`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark source event processing: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.Conflict("source event is not pending")
	}

	return nil
}

// MarkProcessed finalizes an event with per-entity-type counts merged into
// its metadata.
func (r *Repo) MarkProcessed(ctx context.Context, id uuid.UUID, summary map[string]int) error {
	summaryJSON, err := json.Marshal(map[string]any{"summary": summary})
	if err != nil {
		return fmt.Errorf("marshal processed summary: %w", err)
	}

	query := `
		UPDATE source_events
		SET status = 'processed', metadata = metadata || $2::jsonb, error_detail = NULL, processed_at = now(), updated_at = now()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, summaryJSON)
	if err != nil {
		return fmt.Errorf("mark source event processed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(sourceEventNotFoundMessage)
	}

	return nil
}

// MarkError records an extraction failure on the event.
func (r *Repo) MarkError(ctx context.Context, id uuid.UUID, detail string) error {
	query := `
		UPDATE source_events
		SET status = 'error', error_detail = $2, processed_at = now(), updated_at = now()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, detail)
	if err != nil {
		return fmt.Errorf("mark source event error: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(sourceEventNotFoundMessage)
	}

	return nil
}

// ResetToPending returns an error or stuck processing event to the pending
// pool. Processed events stay processed.
func (r *Repo) ResetToPending(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE source_events
		SET status = 'pending', error_detail = NULL, processed_at = NULL, updated_at = now()
		WHERE id = $1 AND status IN ('error', 'processing')`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("reset source event to pending: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return apperr.Conflict("source event cannot be reset from its current status")
	}

	return nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal source event metadata: %w", err)
	}
	return data, nil
}

func scanSourceEvent(row pgx.Row) (SourceEvent, error) {
	var event SourceEvent
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&event.ID, &event.ExternalID, &event.Kind, &event.Subject, &event.Sender, &event.Body,
		&event.ReceivedAt, &event.Status, &event.Metadata, &event.ErrorDetail, &event.ProcessedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return SourceEvent{}, err
	}

	event.CreatedAt = createdAt.Format(time.RFC3339)
	event.UpdatedAt = updatedAt.Format(time.RFC3339)

	return event, nil
}

func scanSourceEvents(rows pgx.Rows) ([]SourceEvent, error) {
	var results []SourceEvent

	for rows.Next() {
		event, err := scanSourceEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source event: %w", err)
		}
		results = append(results, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source events: %w", err)
	}

	return results, nil
}
