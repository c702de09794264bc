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

const (
	activityNotFoundMessage = "activity not found"
	activityDecidedMessage  = "activity has already been decided"
)

const activityColumns = `id, source_event_id, entity_type, action, payload, source_subject, source_sender, source_received_at, status, processed_at, created_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new activity repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// CreateBatch stages every proposal of one source event transactionally.
func (r *Repo) CreateBatch(ctx context.Context, sourceEventID uuid.UUID, prov Provenance, items []NewActivity) ([]Activity, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin activity batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO activities (source_event_id, entity_type, action, payload, source_subject, source_sender, source_received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + activityColumns

	results := make([]Activity, 0, len(items))
	for _, item := range items {
		payload, err := json.Marshal(item.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal activity payload: %w", err)
		}

		activity, err := scanActivity(tx.QueryRow(ctx, query,
			sourceEventID, item.EntityType, item.Action, payload,
			prov.Subject, prov.Sender, prov.ReceivedAt,
		))
		if err != nil {
			return nil, fmt.Errorf("create activity: %w", err)
		}
		results = append(results, activity)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit activity batch: %w", err)
	}

	return results, nil
}

// GetByID retrieves an activity by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1`

	activity, err := scanActivity(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Activity{}, apperr.NotFound(activityNotFoundMessage)
		}
		return Activity{}, fmt.Errorf("get activity by id: %w", err)
	}

	return activity, nil
}

// List retrieves activities filtered by status and source event, newest first.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Activity, error) {
	limit := params.Limit
	if limit < 1 {
		limit = 50
	}

	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}
	var sourceEventParam interface{}
	if params.SourceEventID != nil {
		sourceEventParam = *params.SourceEventID
	}

	query := `
		SELECT ` + activityColumns + `
		FROM activities
		WHERE ($1::text IS NULL OR status = $1)
			AND ($2::uuid IS NULL OR source_event_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, statusParam, sourceEventParam, limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var results []Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		results = append(results, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}

	return results, nil
}

// TransitionFromPending performs the compare-and-set decision transition.
// Only a pending activity moves; a decided one yields a conflict so retried
// requests are safe no-ops.
func (r *Repo) TransitionFromPending(ctx context.Context, id uuid.UUID, to Status) (Activity, error) {
	if to != StatusAccepted && to != StatusRejected {
		return Activity{}, apperr.Validation("invalid decision status")
	}

	query := `
		UPDATE activities
		SET status = $2, processed_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + activityColumns

	activity, err := scanActivity(r.pool.QueryRow(ctx, query, id, to))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return Activity{}, getErr
			}
			return Activity{}, apperr.Conflict(activityDecidedMessage)
		}
		return Activity{}, fmt.Errorf("transition activity: %w", err)
	}

	return activity, nil
}

func scanActivity(row pgx.Row) (Activity, error) {
	var activity Activity
	var payload []byte
	var createdAt time.Time

	err := row.Scan(
		&activity.ID, &activity.SourceEventID, &activity.EntityType, &activity.Action, &payload,
		&activity.Provenance.Subject, &activity.Provenance.Sender, &activity.Provenance.ReceivedAt,
		&activity.Status, &activity.ProcessedAt, &createdAt,
	)
	if err != nil {
		return Activity{}, err
	}

	if err := json.Unmarshal(payload, &activity.Payload); err != nil {
		return Activity{}, fmt.Errorf("unmarshal activity payload: %w", err)
	}

	activity.CreatedAt = createdAt.Format(time.RFC3339)

	return activity, nil
}
