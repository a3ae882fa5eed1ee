package models

import "time"

// Challenge is a reusable design brief. Once a sprint references it, only an
// administrator may still edit it.
type Challenge struct {
	ID              int       `json:"id" db:"id"`
	ChallengeNumber int       `json:"challenge_number" db:"challenge_number"`
	Title           string    `json:"title" db:"title"`
	Brief           string    `json:"brief" db:"brief"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
