package models

import "time"

type SubmissionStatus string

const (
	SubmissionDraft     SubmissionStatus = "draft"
	SubmissionSubmitted SubmissionStatus = "submitted"
)

// Submission is a user's entry for a sprint. Owned by UserID and mutable only
// while in draft.
type Submission struct {
	ID          int              `json:"id" db:"id"`
	SprintID    int              `json:"sprint_id" db:"sprint_id"`
	UserID      int              `json:"user_id" db:"user_id"`
	Status      SubmissionStatus `json:"status" db:"status"`
	Title       string           `json:"title" db:"title"`
	Description *string          `json:"description,omitempty" db:"description"`
	SubmittedAt *time.Time       `json:"submitted_at,omitempty" db:"submitted_at"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
	AssetKey    *string          `json:"-" db:"asset_key"`
	AssetURL    *string          `json:"asset_url,omitempty" db:"-"`
}
