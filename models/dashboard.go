package models

// LeaderboardEntry is one ranked row of the XP leaderboard.
type LeaderboardEntry struct {
	Rank    int   `json:"rank"`
	UserID  int   `json:"user_id"`
	TotalXP int   `json:"total_xp"`
	Level   int   `json:"level"`
	User    *User `json:"user,omitempty"`
}

// StreakSummary pairs the two streak flavors for one user.
type StreakSummary struct {
	UserID              int `json:"user_id"`
	ParticipationStreak int `json:"participation_streak"`
	FeedbackStreak      int `json:"feedback_streak"`
}

// UserDashboard is the aggregate profile view assembled by DashboardService.
type UserDashboard struct {
	UserID              int              `json:"user_id"`
	TotalXP             int              `json:"total_xp"`
	Level               int              `json:"level"`
	XPBySource          map[XPSource]int `json:"xp_by_source"`
	ParticipationStreak int              `json:"participation_streak"`
	FeedbackStreak      int              `json:"feedback_streak"`
	Badges              []*UserBadge     `json:"badges"`
}
