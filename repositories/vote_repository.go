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
	ErrVoteNotFound          = errors.New("vote not found")
	ErrVoteConflict          = errors.New("vote already exists for this submission and voter")
	ErrVoteSubmissionInvalid = errors.New("vote submission reference invalid")
	ErrVoteVoterInvalid      = errors.New("vote voter reference invalid")
)

type VoteRepository interface {
	// Create inserts a brand-new vote. The unique (submission_id, voter_id)
	// constraint is the backstop against concurrent duplicate first votes;
	// callers handle ErrVoteConflict by retrying as an update.
	Create(ctx context.Context, v *models.Vote) error
	GetByID(ctx context.Context, id int) (*models.Vote, error)
	FindBySubmissionAndVoter(ctx context.Context, submissionID, voterID int) (*models.Vote, error)
	ListBySubmission(ctx context.Context, submissionID int) ([]*models.Vote, error)
	UpdateRatings(ctx context.Context, v *models.Vote) error
	Delete(ctx context.Context, id int) error
}

type postgresVoteRepository struct {
	db *sql.DB
}

func NewPostgresVoteRepository(db *sql.DB) VoteRepository {
	return &postgresVoteRepository{db: db}
}

const voteColumns = `
	id, sprint_id, submission_id, voter_id,
	rating_clarity, rating_usability, rating_visual_craft, rating_originality,
	created_at, updated_at`

func (r *postgresVoteRepository) scanVote(rowScanner interface {
	Scan(dest ...interface{}) error
}, v *models.Vote) error {
	return rowScanner.Scan(
		&v.ID, &v.SprintID, &v.SubmissionID, &v.VoterID,
		&v.RatingClarity, &v.RatingUsability, &v.RatingVisualCraft, &v.RatingOriginality,
		&v.CreatedAt, &v.UpdatedAt,
	)
}

func (r *postgresVoteRepository) Create(ctx context.Context, v *models.Vote) error {
	query := `
		INSERT INTO votes (
			sprint_id, submission_id, voter_id,
			rating_clarity, rating_usability, rating_visual_craft, rating_originality
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		v.SprintID, v.SubmissionID, v.VoterID,
		v.RatingClarity, v.RatingUsability, v.RatingVisualCraft, v.RatingOriginality,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "votes_submission_id_voter_id_key" {
					return ErrVoteConflict
				}
			case "23503":
				switch pqErr.Constraint {
				case "votes_submission_id_fkey":
					return ErrVoteSubmissionInvalid
				case "votes_voter_id_fkey":
					return ErrVoteVoterInvalid
				}
			}
		}
		return fmt.Errorf("failed to create vote: %w", err)
	}
	return nil
}

func (r *postgresVoteRepository) GetByID(ctx context.Context, id int) (*models.Vote, error) {
	query := `SELECT` + voteColumns + ` FROM votes WHERE id = $1`

	v := &models.Vote{}
	err := r.scanVote(r.db.QueryRowContext(ctx, query, id), v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVoteNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *postgresVoteRepository) FindBySubmissionAndVoter(ctx context.Context, submissionID, voterID int) (*models.Vote, error) {
	query := `SELECT` + voteColumns + `
		FROM votes
		WHERE submission_id = $1 AND voter_id = $2`

	v := &models.Vote{}
	err := r.scanVote(r.db.QueryRowContext(ctx, query, submissionID, voterID), v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVoteNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *postgresVoteRepository) ListBySubmission(ctx context.Context, submissionID int) ([]*models.Vote, error) {
	query := `SELECT` + voteColumns + `
		FROM votes
		WHERE submission_id = $1
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := make([]*models.Vote, 0)
	for rows.Next() {
		v := &models.Vote{}
		if scanErr := r.scanVote(rows, v); scanErr != nil {
			return nil, scanErr
		}
		votes = append(votes, v)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *postgresVoteRepository) UpdateRatings(ctx context.Context, v *models.Vote) error {
	query := `
		UPDATE votes SET
			rating_clarity = $1,
			rating_usability = $2,
			rating_visual_craft = $3,
			rating_originality = $4,
			updated_at = now()
		WHERE id = $5
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		v.RatingClarity, v.RatingUsability, v.RatingVisualCraft, v.RatingOriginality, v.ID,
	).Scan(&v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVoteNotFound
		}
		return fmt.Errorf("failed to update vote ratings: %w", err)
	}
	return nil
}

func (r *postgresVoteRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM votes WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return checkAffectedRows(result, ErrVoteNotFound)
}
