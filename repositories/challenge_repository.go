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
	ErrChallengeNotFound       = errors.New("challenge not found")
	ErrChallengeNumberConflict = errors.New("challenge number is already taken")
	ErrChallengeInUse          = errors.New("challenge is referenced by a sprint")
)

type ChallengeRepository interface {
	Create(ctx context.Context, challenge *models.Challenge) error
	GetByID(ctx context.Context, id int) (*models.Challenge, error)
	List(ctx context.Context) ([]models.Challenge, error)
	Update(ctx context.Context, challenge *models.Challenge) error
	Delete(ctx context.Context, id int) error
}

type postgresChallengeRepository struct {
	db *sql.DB
}

func NewPostgresChallengeRepository(db *sql.DB) ChallengeRepository {
	return &postgresChallengeRepository{db: db}
}

func (r *postgresChallengeRepository) Create(ctx context.Context, c *models.Challenge) error {
	query := `
		INSERT INTO challenges (challenge_number, title, brief)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, c.ChallengeNumber, c.Title, c.Brief).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return r.handleChallengeError(err)
}

func (r *postgresChallengeRepository) GetByID(ctx context.Context, id int) (*models.Challenge, error) {
	query := `
		SELECT id, challenge_number, title, brief, created_at, updated_at
		FROM challenges
		WHERE id = $1`

	c := &models.Challenge{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.ChallengeNumber, &c.Title, &c.Brief, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresChallengeRepository) List(ctx context.Context) ([]models.Challenge, error) {
	query := `
		SELECT id, challenge_number, title, brief, created_at, updated_at
		FROM challenges
		ORDER BY challenge_number`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	challenges := make([]models.Challenge, 0)
	for rows.Next() {
		var c models.Challenge
		if scanErr := rows.Scan(
			&c.ID, &c.ChallengeNumber, &c.Title, &c.Brief, &c.CreatedAt, &c.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		challenges = append(challenges, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return challenges, nil
}

func (r *postgresChallengeRepository) Update(ctx context.Context, c *models.Challenge) error {
	query := `
		UPDATE challenges SET
			challenge_number = $1,
			title = $2,
			brief = $3,
			updated_at = now()
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, c.ChallengeNumber, c.Title, c.Brief, c.ID)
	if err != nil {
		return r.handleChallengeError(err)
	}
	return checkAffectedRows(result, ErrChallengeNotFound)
}

func (r *postgresChallengeRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM challenges WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleChallengeError(err)
	}
	return checkAffectedRows(result, ErrChallengeNotFound)
}

func (r *postgresChallengeRepository) handleChallengeError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "challenges_challenge_number_key" {
				return ErrChallengeNumberConflict
			}
		case "23503":
			// A sprint still references this challenge.
			return ErrChallengeInUse
		}
	}
	return fmt.Errorf("challenge repository: %w", err)
}
