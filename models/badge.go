package models

import "time"

// Badge and the award records below are produced by retrospective processing
// outside this service; they are read and displayed here, never computed.

type Badge struct {
	ID          int       `json:"id" db:"id"`
	Slug        string    `json:"slug" db:"slug"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IconKey     *string   `json:"-" db:"icon_key"`
	IconURL     *string   `json:"icon_url,omitempty" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type UserBadge struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	BadgeID   int       `json:"badge_id" db:"badge_id"`
	SprintID  *int      `json:"sprint_id,omitempty" db:"sprint_id"`
	AwardedAt time.Time `json:"awarded_at" db:"awarded_at"`

	Badge *Badge `json:"badge,omitempty" db:"-"`
}

type SprintAward struct {
	ID        int       `json:"id" db:"id"`
	SprintID  int       `json:"sprint_id" db:"sprint_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Category  string    `json:"category" db:"category"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
