package models

import "time"

// XPSource identifies the kind of action an XP event rewards.
type XPSource string

const (
	SourceReadBrief       XPSource = "read_brief"
	SourceSubmitDesign    XPSource = "submit_design"
	SourceVote            XPSource = "vote"
	SourceFeedback        XPSource = "feedback"
	SourceReflection      XPSource = "reflection"
	SourceHelpfulFeedback XPSource = "helpful_feedback"
)

// ValidXPSource reports whether s is one of the recognized source kinds.
func ValidXPSource(s XPSource) bool {
	switch s {
	case SourceReadBrief, SourceSubmitDesign, SourceVote,
		SourceFeedback, SourceReflection, SourceHelpfulFeedback:
		return true
	}
	return false
}

// XPEvent is an immutable ledger entry. Rows are only ever appended; totals and
// breakdowns are recomputed from the ledger on read.
type XPEvent struct {
	ID         int       `json:"id" db:"id"`
	UserID     int       `json:"user_id" db:"user_id"`
	SprintID   int       `json:"sprint_id" db:"sprint_id"`
	SourceType XPSource  `json:"source_type" db:"source_type"`
	SourceID   *int      `json:"source_id,omitempty" db:"source_id"`
	Amount     int       `json:"amount" db:"amount"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
