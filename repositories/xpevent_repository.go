package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/designloop/sprint-system/models"
	"github.com/lib/pq"
)

var (
	ErrXPEventUserInvalid   = errors.New("xp event user reference invalid")
	ErrXPEventSprintInvalid = errors.New("xp event sprint reference invalid")
)

type ListXPEventsFilter struct {
	UserID   *int
	SprintID *int
	Source   *models.XPSource
}

// XPEventRepository is append-and-read only. The ledger table has no update or
// delete path by design.
type XPEventRepository interface {
	Create(ctx context.Context, e *models.XPEvent) error
	List(ctx context.Context, filter ListXPEventsFilter) ([]*models.XPEvent, error)
}

type postgresXPEventRepository struct {
	db *sql.DB
}

func NewPostgresXPEventRepository(db *sql.DB) XPEventRepository {
	return &postgresXPEventRepository{db: db}
}

func (r *postgresXPEventRepository) Create(ctx context.Context, e *models.XPEvent) error {
	query := `
		INSERT INTO xp_events (user_id, sprint_id, source_type, source_id, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		e.UserID, e.SprintID, e.SourceType, e.SourceID, e.Amount,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "xp_events_user_id_fkey":
				return ErrXPEventUserInvalid
			case "xp_events_sprint_id_fkey":
				return ErrXPEventSprintInvalid
			}
		}
		return fmt.Errorf("failed to append xp event: %w", err)
	}
	return nil
}

func (r *postgresXPEventRepository) List(ctx context.Context, filter ListXPEventsFilter) ([]*models.XPEvent, error) {
	query := `
		SELECT id, user_id, sprint_id, source_type, source_id, amount, created_at
		FROM xp_events
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argID)
		args = append(args, *filter.UserID)
		argID++
	}
	if filter.SprintID != nil {
		query += fmt.Sprintf(" AND sprint_id = $%d", argID)
		args = append(args, *filter.SprintID)
		argID++
	}
	if filter.Source != nil {
		query += fmt.Sprintf(" AND source_type = $%d", argID)
		args = append(args, *filter.Source)
	}

	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.XPEvent, 0)
	for rows.Next() {
		e := &models.XPEvent{}
		if scanErr := rows.Scan(
			&e.ID, &e.UserID, &e.SprintID, &e.SourceType, &e.SourceID, &e.Amount, &e.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
