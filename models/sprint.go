package models

import "time"

// SprintStatus represents the phases a sprint moves through, matching the ENUM in the DB.
type SprintStatus string

const (
	StatusScheduled SprintStatus = "scheduled"
	StatusActive    SprintStatus = "active"
	StatusVoting    SprintStatus = "voting"
	StatusRetro     SprintStatus = "retro"
	StatusCompleted SprintStatus = "completed"
	StatusCancelled SprintStatus = "cancelled"
)

// Sprint is a time-boxed design challenge period.
type Sprint struct {
	ID           int          `json:"id" db:"id"`
	SprintNumber int          `json:"sprint_number" db:"sprint_number"`
	Name         string       `json:"name" db:"name"`
	ChallengeID  int          `json:"challenge_id" db:"challenge_id"`
	Status       SprintStatus `json:"status" db:"status"`
	StartAt      *time.Time   `json:"start_at,omitempty" db:"start_at"`
	EndAt        *time.Time   `json:"end_at,omitempty" db:"end_at"`
	VotingEndAt  *time.Time   `json:"voting_end_at,omitempty" db:"voting_end_at"`
	RetroDay     *time.Time   `json:"retro_day,omitempty" db:"retro_day"`
	DurationDays int          `json:"duration_days" db:"duration_days"`
	StartedByID  *int         `json:"started_by_id,omitempty" db:"started_by_id"`
	EndedByID    *int         `json:"ended_by_id,omitempty" db:"ended_by_id"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Challenge    *Challenge          `json:"challenge,omitempty" db:"-"`
	Participants []SprintParticipant `json:"participants,omitempty" db:"-"`
}

// InPlayingField reports whether the sprint counts for streak walks:
// everything that ran or is running, i.e. not scheduled and not cancelled.
func (s *Sprint) InPlayingField() bool {
	switch s.Status {
	case StatusActive, StatusVoting, StatusRetro, StatusCompleted:
		return true
	}
	return false
}
