package models

import "time"

// Rating bounds for every vote category.
const (
	RatingMin = 1
	RatingMax = 5
)

// Vote is one voter's four-category rating of a submission.
// Unique per (submission_id, voter_id); a voter never rates their own work.
type Vote struct {
	ID                int       `json:"id" db:"id"`
	SprintID          int       `json:"sprint_id" db:"sprint_id"`
	SubmissionID      int       `json:"submission_id" db:"submission_id"`
	VoterID           int       `json:"voter_id" db:"voter_id"`
	RatingClarity     int       `json:"rating_clarity" db:"rating_clarity"`
	RatingUsability   int       `json:"rating_usability" db:"rating_usability"`
	RatingVisualCraft int       `json:"rating_visual_craft" db:"rating_visual_craft"`
	RatingOriginality int       `json:"rating_originality" db:"rating_originality"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// VoteStats are the aggregated averages for one submission. With zero votes all
// averages are 0, never NaN.
type VoteStats struct {
	SubmissionID   int     `json:"submission_id"`
	TotalVotes     int     `json:"total_votes"`
	AvgClarity     float64 `json:"avg_clarity"`
	AvgUsability   float64 `json:"avg_usability"`
	AvgVisualCraft float64 `json:"avg_visual_craft"`
	AvgOriginality float64 `json:"avg_originality"`
	AvgOverall     float64 `json:"avg_overall"`
}
