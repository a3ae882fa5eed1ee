package services

import (
	"context"
	"sort"

	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/repositories"
)

// streakStatuses are the sprint phases that count toward streak history.
// Scheduled and cancelled sprints never existed from a participant's point of
// view.
var streakStatuses = []models.SprintStatus{
	models.StatusActive,
	models.StatusVoting,
	models.StatusRetro,
	models.StatusCompleted,
}

// StreakService derives streaks and the leaderboard from the ledger and the
// participation records. Everything here is a read-side view; nothing is
// persisted back.
type StreakService struct {
	sprintRepo      repositories.SprintRepository
	participantRepo repositories.ParticipantRepository
	xpRepo          repositories.XPEventRepository
	userRepo        repositories.UserRepository
}

func NewStreakService(
	sprintRepo repositories.SprintRepository,
	participantRepo repositories.ParticipantRepository,
	xpRepo repositories.XPEventRepository,
	userRepo repositories.UserRepository,
) *StreakService {
	return &StreakService{
		sprintRepo:      sprintRepo,
		participantRepo: participantRepo,
		xpRepo:          xpRepo,
		userRepo:        userRepo,
	}
}

// ParticipationStreak counts how many of the most recent sprints, walking
// backwards by sprint_number, the user joined without a gap.
//
// With no qualifying sprints at all, any participation record still yields a
// streak of 1. That quirk is long-standing observable behavior and clients
// depend on it.
func (s *StreakService) ParticipationStreak(ctx context.Context, userID int) (int, error) {
	participants, err := s.participantRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	joined := make(map[int]bool, len(participants))
	for _, p := range participants {
		joined[p.SprintID] = true
	}
	return s.walkStreak(ctx, joined, len(participants) > 0)
}

// FeedbackStreak is the same walk with "gave feedback during that sprint" as
// the qualifying condition. Feedback presence is read off the XP ledger.
func (s *StreakService) FeedbackStreak(ctx context.Context, userID int) (int, error) {
	events, err := s.xpRepo.List(ctx, repositories.ListXPEventsFilter{UserID: &userID})
	if err != nil {
		return 0, err
	}
	gaveFeedback := make(map[int]bool)
	for _, e := range events {
		if e.SourceType == models.SourceFeedback || e.SourceType == models.SourceHelpfulFeedback {
			gaveFeedback[e.SprintID] = true
		}
	}
	return s.walkStreak(ctx, gaveFeedback, len(gaveFeedback) > 0)
}

func (s *StreakService) Streaks(ctx context.Context, userID int) (*models.StreakSummary, error) {
	participation, err := s.ParticipationStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	feedback, err := s.FeedbackStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.StreakSummary{
		UserID:              userID,
		ParticipationStreak: participation,
		FeedbackStreak:      feedback,
	}, nil
}

func (s *StreakService) walkStreak(ctx context.Context, qualifies map[int]bool, hasAnyRecord bool) (int, error) {
	sprints, err := s.sprintRepo.List(ctx, repositories.ListSprintsFilter{Statuses: streakStatuses})
	if err != nil {
		return 0, err
	}
	if len(sprints) == 0 {
		if hasAnyRecord {
			return 1, nil
		}
		return 0, nil
	}

	sort.Slice(sprints, func(i, j int) bool {
		return sprints[i].SprintNumber > sprints[j].SprintNumber
	})

	streak := 0
	for _, sprint := range sprints {
		if !qualifies[sprint.ID] {
			break
		}
		streak++
	}
	return streak, nil
}

// Leaderboard ranks users by total XP descending. Ties are broken by ascending
// user id so repeated calls against the same ledger always agree. sprintID
// scopes the totals to one sprint when set.
func (s *StreakService) Leaderboard(ctx context.Context, limit int, sprintID *int) ([]models.LeaderboardEntry, error) {
	events, err := s.xpRepo.List(ctx, repositories.ListXPEventsFilter{SprintID: sprintID})
	if err != nil {
		return nil, err
	}

	totals := make(map[int]int)
	for _, e := range events {
		totals[e.UserID] += e.Amount
	}

	entries := make([]models.LeaderboardEntry, 0, len(totals))
	for userID, total := range totals {
		entries = append(entries, models.LeaderboardEntry{
			UserID:  userID,
			TotalXP: total,
			Level:   LevelFor(total),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalXP != entries[j].TotalXP {
			return entries[i].TotalXP > entries[j].TotalXP
		}
		return entries[i].UserID < entries[j].UserID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	if err := s.attachUsers(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *StreakService) attachUsers(ctx context.Context, entries []models.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range entries {
		entries[i].User = byID[entries[i].UserID]
	}
	return nil
}
