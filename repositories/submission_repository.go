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
	ErrSubmissionNotFound      = errors.New("submission not found")
	ErrSubmissionConflict      = errors.New("user already has a submission for this sprint")
	ErrSubmissionSprintInvalid = errors.New("submission sprint reference invalid")
	ErrSubmissionUserInvalid   = errors.New("submission user reference invalid")
	ErrSubmissionAlreadyLocked = errors.New("submission is no longer a draft")
)

type SubmissionRepository interface {
	Create(ctx context.Context, s *models.Submission) error
	GetByID(ctx context.Context, id int) (*models.Submission, error)
	ListBySprint(ctx context.Context, sprintID int) ([]*models.Submission, error)
	FindBySprintAndUser(ctx context.Context, sprintID, userID int) (*models.Submission, error)
	// UpdateDraft only touches rows still in draft; rows gone past draft are
	// reported as locked.
	UpdateDraft(ctx context.Context, s *models.Submission) error
	// MarkSubmitted flips draft -> submitted conditionally. False means the
	// submission was not in draft anymore.
	MarkSubmitted(ctx context.Context, id int, submittedAt time.Time) (bool, error)
	UpdateAssetKey(ctx context.Context, id int, assetKey *string) error
	Delete(ctx context.Context, id int) error
}

type postgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &postgresSubmissionRepository{db: db}
}

const submissionColumns = `
	id, sprint_id, user_id, status, title, description,
	submitted_at, asset_key, created_at, updated_at`

func (r *postgresSubmissionRepository) scanSubmission(rowScanner interface {
	Scan(dest ...interface{}) error
}, s *models.Submission) error {
	return rowScanner.Scan(
		&s.ID, &s.SprintID, &s.UserID, &s.Status, &s.Title, &s.Description,
		&s.SubmittedAt, &s.AssetKey, &s.CreatedAt, &s.UpdatedAt,
	)
}

func (r *postgresSubmissionRepository) Create(ctx context.Context, s *models.Submission) error {
	query := `
		INSERT INTO submissions (sprint_id, user_id, status, title, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.SprintID, s.UserID, s.Status, s.Title, s.Description,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "submissions_sprint_id_user_id_key" {
					return ErrSubmissionConflict
				}
			case "23503":
				switch pqErr.Constraint {
				case "submissions_sprint_id_fkey":
					return ErrSubmissionSprintInvalid
				case "submissions_user_id_fkey":
					return ErrSubmissionUserInvalid
				}
			}
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *postgresSubmissionRepository) GetByID(ctx context.Context, id int) (*models.Submission, error) {
	query := `SELECT` + submissionColumns + ` FROM submissions WHERE id = $1`

	s := &models.Submission{}
	err := r.scanSubmission(r.db.QueryRowContext(ctx, query, id), s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *postgresSubmissionRepository) ListBySprint(ctx context.Context, sprintID int) ([]*models.Submission, error) {
	query := `SELECT` + submissionColumns + `
		FROM submissions
		WHERE sprint_id = $1
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, sprintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := make([]*models.Submission, 0)
	for rows.Next() {
		s := &models.Submission{}
		if scanErr := r.scanSubmission(rows, s); scanErr != nil {
			return nil, scanErr
		}
		submissions = append(submissions, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *postgresSubmissionRepository) FindBySprintAndUser(ctx context.Context, sprintID, userID int) (*models.Submission, error) {
	query := `SELECT` + submissionColumns + `
		FROM submissions
		WHERE sprint_id = $1 AND user_id = $2`

	s := &models.Submission{}
	err := r.scanSubmission(r.db.QueryRowContext(ctx, query, sprintID, userID), s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *postgresSubmissionRepository) UpdateDraft(ctx context.Context, s *models.Submission) error {
	query := `
		UPDATE submissions SET
			title = $1,
			description = $2,
			updated_at = now()
		WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, s.Title, s.Description, s.ID, models.SubmissionDraft)
	if err != nil {
		return fmt.Errorf("failed to update submission draft: %w", err)
	}
	return checkAffectedRows(result, ErrSubmissionAlreadyLocked)
}

func (r *postgresSubmissionRepository) MarkSubmitted(ctx context.Context, id int, submittedAt time.Time) (bool, error) {
	query := `
		UPDATE submissions SET
			status = $1,
			submitted_at = $2,
			updated_at = now()
		WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query,
		models.SubmissionSubmitted, submittedAt, id, models.SubmissionDraft)
	if err != nil {
		return false, fmt.Errorf("failed to mark submission submitted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *postgresSubmissionRepository) UpdateAssetKey(ctx context.Context, id int, assetKey *string) error {
	query := `UPDATE submissions SET asset_key = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, assetKey, id)
	if err != nil {
		return fmt.Errorf("failed to update submission asset key: %w", err)
	}
	return checkAffectedRows(result, ErrSubmissionNotFound)
}

func (r *postgresSubmissionRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM submissions WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	return checkAffectedRows(result, ErrSubmissionNotFound)
}
