package models

import "time"

// SprintParticipant is the join record between a user and a sprint.
// Unique per (sprint_id, user_id), enforced by the DB.
type SprintParticipant struct {
	ID       int       `json:"id" db:"id"`
	SprintID int       `json:"sprint_id" db:"sprint_id"`
	UserID   int       `json:"user_id" db:"user_id"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`

	User *User `json:"user,omitempty" db:"-"`
}
