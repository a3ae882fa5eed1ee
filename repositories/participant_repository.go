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
	ErrParticipantNotFound      = errors.New("participant record not found")
	ErrParticipantConflict      = errors.New("user already joined this sprint")
	ErrParticipantSprintInvalid = errors.New("participant sprint reference invalid")
	ErrParticipantUserInvalid   = errors.New("participant user reference invalid")
)

type ParticipantRepository interface {
	Create(ctx context.Context, p *models.SprintParticipant) error
	FindByID(ctx context.Context, id int) (*models.SprintParticipant, error)
	FindBySprintAndUser(ctx context.Context, sprintID, userID int) (*models.SprintParticipant, error)
	ListBySprint(ctx context.Context, sprintID int) ([]*models.SprintParticipant, error)
	ListByUser(ctx context.Context, userID int) ([]*models.SprintParticipant, error)
	Delete(ctx context.Context, id int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) Create(ctx context.Context, p *models.SprintParticipant) error {
	query := `
		INSERT INTO sprint_participants (sprint_id, user_id)
		VALUES ($1, $2)
		RETURNING id, joined_at`

	err := r.db.QueryRowContext(ctx, query, p.SprintID, p.UserID).
		Scan(&p.ID, &p.JoinedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "sprint_participants_sprint_id_user_id_key" {
					return ErrParticipantConflict
				}
			case "23503":
				switch pqErr.Constraint {
				case "sprint_participants_sprint_id_fkey":
					return ErrParticipantSprintInvalid
				case "sprint_participants_user_id_fkey":
					return ErrParticipantUserInvalid
				}
			}
		}
		return fmt.Errorf("failed to create sprint participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) scanParticipant(rowScanner interface {
	Scan(dest ...interface{}) error
}, p *models.SprintParticipant) error {
	return rowScanner.Scan(&p.ID, &p.SprintID, &p.UserID, &p.JoinedAt)
}

func (r *postgresParticipantRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.SprintParticipant, error) {
	p := &models.SprintParticipant{}
	err := r.scanParticipant(r.db.QueryRowContext(ctx, query, args...), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find sprint participant: %w", err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) FindByID(ctx context.Context, id int) (*models.SprintParticipant, error) {
	query := `
		SELECT id, sprint_id, user_id, joined_at
		FROM sprint_participants
		WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *postgresParticipantRepository) FindBySprintAndUser(ctx context.Context, sprintID, userID int) (*models.SprintParticipant, error) {
	query := `
		SELECT id, sprint_id, user_id, joined_at
		FROM sprint_participants
		WHERE sprint_id = $1 AND user_id = $2`
	return r.findOne(ctx, query, sprintID, userID)
}

func (r *postgresParticipantRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.SprintParticipant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]*models.SprintParticipant, 0)
	for rows.Next() {
		p := &models.SprintParticipant{}
		if scanErr := r.scanParticipant(rows, p); scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *postgresParticipantRepository) ListBySprint(ctx context.Context, sprintID int) ([]*models.SprintParticipant, error) {
	query := `
		SELECT id, sprint_id, user_id, joined_at
		FROM sprint_participants
		WHERE sprint_id = $1
		ORDER BY joined_at`
	return r.list(ctx, query, sprintID)
}

func (r *postgresParticipantRepository) ListByUser(ctx context.Context, userID int) ([]*models.SprintParticipant, error) {
	query := `
		SELECT id, sprint_id, user_id, joined_at
		FROM sprint_participants
		WHERE user_id = $1
		ORDER BY joined_at`
	return r.list(ctx, query, userID)
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM sprint_participants WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete sprint participant: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
