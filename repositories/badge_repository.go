package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/designloop/sprint-system/models"
)

var ErrBadgeNotFound = errors.New("badge not found")

// BadgeRepository reads award data written by retrospective processing; this
// service never creates badges itself.
type BadgeRepository interface {
	GetByID(ctx context.Context, id int) (*models.Badge, error)
	ListUserBadges(ctx context.Context, userID int) ([]*models.UserBadge, error)
	ListSprintAwards(ctx context.Context, sprintID int) ([]*models.SprintAward, error)
}

type postgresBadgeRepository struct {
	db *sql.DB
}

func NewPostgresBadgeRepository(db *sql.DB) BadgeRepository {
	return &postgresBadgeRepository{db: db}
}

func (r *postgresBadgeRepository) GetByID(ctx context.Context, id int) (*models.Badge, error) {
	query := `
		SELECT id, slug, name, description, icon_key, created_at
		FROM badges
		WHERE id = $1`

	b := &models.Badge{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.Slug, &b.Name, &b.Description, &b.IconKey, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadgeNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *postgresBadgeRepository) ListUserBadges(ctx context.Context, userID int) ([]*models.UserBadge, error) {
	query := `
		SELECT
			ub.id, ub.user_id, ub.badge_id, ub.sprint_id, ub.awarded_at,
			b.id, b.slug, b.name, b.description, b.icon_key, b.created_at
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.awarded_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	userBadges := make([]*models.UserBadge, 0)
	for rows.Next() {
		ub := &models.UserBadge{Badge: &models.Badge{}}
		if scanErr := rows.Scan(
			&ub.ID, &ub.UserID, &ub.BadgeID, &ub.SprintID, &ub.AwardedAt,
			&ub.Badge.ID, &ub.Badge.Slug, &ub.Badge.Name, &ub.Badge.Description,
			&ub.Badge.IconKey, &ub.Badge.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		userBadges = append(userBadges, ub)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return userBadges, nil
}

func (r *postgresBadgeRepository) ListSprintAwards(ctx context.Context, sprintID int) ([]*models.SprintAward, error) {
	query := `
		SELECT id, sprint_id, user_id, category, created_at
		FROM sprint_awards
		WHERE sprint_id = $1
		ORDER BY category`

	rows, err := r.db.QueryContext(ctx, query, sprintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	awards := make([]*models.SprintAward, 0)
	for rows.Next() {
		a := &models.SprintAward{}
		if scanErr := rows.Scan(&a.ID, &a.SprintID, &a.UserID, &a.Category, &a.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		awards = append(awards, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return awards, nil
}
