package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/designloop/sprint-system/models"
	"github.com/lib/pq"
)

var (
	ErrSprintNotFound         = errors.New("sprint not found")
	ErrSprintNumberConflict   = errors.New("sprint number is already taken")
	ErrSprintInvalidChallenge = errors.New("invalid challenge reference")
	ErrSprintInvalidUser      = errors.New("invalid user reference")
)

type ListSprintsFilter struct {
	Status   *models.SprintStatus
	Statuses []models.SprintStatus
	Limit    int
	Offset   int
}

type SprintRepository interface {
	Create(ctx context.Context, sprint *models.Sprint) error
	GetByID(ctx context.Context, id int) (*models.Sprint, error)
	List(ctx context.Context, filter ListSprintsFilter) ([]models.Sprint, error)
	// Activate flips scheduled -> active in a single conditional update.
	// Returns false without error when the sprint was not in scheduled state.
	Activate(ctx context.Context, id int, startAt time.Time, actorID int) (bool, error)
	// AdvanceStatus moves from exactly `from` to `to`; false when the
	// precondition no longer holds (somebody else transitioned first).
	AdvanceStatus(ctx context.Context, id int, from, to models.SprintStatus, endedByID *int) (bool, error)
	Cancel(ctx context.Context, id int, actorID int) (bool, error)
	ExtendDates(ctx context.Context, id int, days int) (bool, error)
	ListDueForAdvance(ctx context.Context, now time.Time) ([]*models.Sprint, error)
}

type postgresSprintRepository struct {
	db *sql.DB
}

func NewPostgresSprintRepository(db *sql.DB) SprintRepository {
	return &postgresSprintRepository{db: db}
}

const sprintColumns = `
	id, sprint_number, name, challenge_id, status,
	start_at, end_at, voting_end_at, retro_day, duration_days,
	started_by_id, ended_by_id, created_at, updated_at`

func (r *postgresSprintRepository) scanSprint(rowScanner interface {
	Scan(dest ...interface{}) error
}, s *models.Sprint) error {
	return rowScanner.Scan(
		&s.ID, &s.SprintNumber, &s.Name, &s.ChallengeID, &s.Status,
		&s.StartAt, &s.EndAt, &s.VotingEndAt, &s.RetroDay, &s.DurationDays,
		&s.StartedByID, &s.EndedByID, &s.CreatedAt, &s.UpdatedAt,
	)
}

func (r *postgresSprintRepository) Create(ctx context.Context, s *models.Sprint) error {
	query := `
		INSERT INTO sprints (
			sprint_number, name, challenge_id, status,
			start_at, end_at, voting_end_at, retro_day, duration_days
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.SprintNumber, s.Name, s.ChallengeID, s.Status,
		s.StartAt, s.EndAt, s.VotingEndAt, s.RetroDay, s.DurationDays,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	return r.handleSprintError(err)
}

func (r *postgresSprintRepository) GetByID(ctx context.Context, id int) (*models.Sprint, error) {
	query := `SELECT` + sprintColumns + ` FROM sprints WHERE id = $1`

	s := &models.Sprint{}
	err := r.scanSprint(r.db.QueryRowContext(ctx, query, id), s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSprintNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *postgresSprintRepository) List(ctx context.Context, filter ListSprintsFilter) ([]models.Sprint, error) {
	query := `SELECT` + sprintColumns + ` FROM sprints WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		query += fmt.Sprintf(" AND status = ANY($%d)", argID)
		args = append(args, pq.Array(statuses))
		argID++
	}

	query += " ORDER BY sprint_number DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sprints := make([]models.Sprint, 0)
	for rows.Next() {
		var s models.Sprint
		if scanErr := r.scanSprint(rows, &s); scanErr != nil {
			return nil, scanErr
		}
		sprints = append(sprints, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return sprints, nil
}

func (r *postgresSprintRepository) Activate(ctx context.Context, id int, startAt time.Time, actorID int) (bool, error) {
	query := `
		UPDATE sprints SET
			status = $1,
			start_at = COALESCE(start_at, $2),
			started_by_id = $3,
			updated_at = now()
		WHERE id = $4 AND status = $5`

	result, err := r.db.ExecContext(ctx, query,
		models.StatusActive, startAt, actorID, id, models.StatusScheduled)
	if err != nil {
		return false, r.handleSprintError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *postgresSprintRepository) AdvanceStatus(ctx context.Context, id int, from, to models.SprintStatus, endedByID *int) (bool, error) {
	query := `
		UPDATE sprints SET
			status = $1,
			ended_by_id = COALESCE($2, ended_by_id),
			updated_at = now()
		WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, to, endedByID, id, from)
	if err != nil {
		return false, r.handleSprintError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *postgresSprintRepository) Cancel(ctx context.Context, id int, actorID int) (bool, error) {
	query := `
		UPDATE sprints SET
			status = $1,
			ended_by_id = $2,
			updated_at = now()
		WHERE id = $3 AND status IN ($4, $5)`

	result, err := r.db.ExecContext(ctx, query,
		models.StatusCancelled, actorID, id, models.StatusScheduled, models.StatusActive)
	if err != nil {
		return false, r.handleSprintError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *postgresSprintRepository) ExtendDates(ctx context.Context, id int, days int) (bool, error) {
	// voting_end_at shifts with end_at so the voting window keeps its length.
	query := `
		UPDATE sprints SET
			end_at = end_at + make_interval(days => $1),
			voting_end_at = voting_end_at + make_interval(days => $1),
			updated_at = now()
		WHERE id = $2 AND status IN ($3, $4)`

	result, err := r.db.ExecContext(ctx, query,
		days, id, models.StatusActive, models.StatusVoting)
	if err != nil {
		return false, r.handleSprintError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *postgresSprintRepository) ListDueForAdvance(ctx context.Context, now time.Time) ([]*models.Sprint, error) {
	query := `SELECT` + sprintColumns + `
		FROM sprints
		WHERE
			(status = $1 AND end_at IS NOT NULL AND end_at <= $4) OR
			(status = $2 AND voting_end_at IS NOT NULL AND voting_end_at <= $4) OR
			(status = $3 AND retro_day IS NOT NULL AND retro_day <= $4)
		ORDER BY sprint_number`

	rows, err := r.db.QueryContext(ctx, query,
		models.StatusActive, models.StatusVoting, models.StatusRetro, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query sprints due for advance: %w", err)
	}
	defer rows.Close()

	var sprints []*models.Sprint
	for rows.Next() {
		var s models.Sprint
		if scanErr := r.scanSprint(rows, &s); scanErr != nil {
			return nil, fmt.Errorf("failed to scan sprint due for advance: %w", scanErr)
		}
		sprints = append(sprints, &s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return sprints, nil
}

func (r *postgresSprintRepository) handleSprintError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "sprints_sprint_number_key" {
				return ErrSprintNumberConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "sprints_challenge_id_fkey":
				return ErrSprintInvalidChallenge
			case "sprints_started_by_id_fkey", "sprints_ended_by_id_fkey":
				return ErrSprintInvalidUser
			}
		}
	}
	return err
}
