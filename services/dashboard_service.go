package services

import (
	"context"

	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/repositories"
	"golang.org/x/sync/errgroup"
)

// DashboardService assembles the aggregate profile view: XP totals, level,
// streaks and badges in one response.
type DashboardService struct {
	engagement *EngagementService
	streaks    *StreakService
	badgeRepo  repositories.BadgeRepository
}

func NewDashboardService(engagement *EngagementService, streaks *StreakService, badgeRepo repositories.BadgeRepository) *DashboardService {
	return &DashboardService{
		engagement: engagement,
		streaks:    streaks,
		badgeRepo:  badgeRepo,
	}
}

// GetUserDashboard runs the independent reads concurrently; each one only
// touches its own slice of the store.
func (s *DashboardService) GetUserDashboard(ctx context.Context, userID int) (*models.UserDashboard, error) {
	dashboard := &models.UserDashboard{UserID: userID}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		bySource, err := s.engagement.XPBySource(gctx, userID)
		if err != nil {
			return err
		}
		total := 0
		for _, amount := range bySource {
			total += amount
		}
		dashboard.XPBySource = bySource
		dashboard.TotalXP = total
		dashboard.Level = LevelFor(total)
		return nil
	})

	g.Go(func() error {
		summary, err := s.streaks.Streaks(gctx, userID)
		if err != nil {
			return err
		}
		dashboard.ParticipationStreak = summary.ParticipationStreak
		dashboard.FeedbackStreak = summary.FeedbackStreak
		return nil
	})

	g.Go(func() error {
		badges, err := s.badgeRepo.ListUserBadges(gctx, userID)
		if err != nil {
			return err
		}
		dashboard.Badges = badges
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dashboard, nil
}

func (s *DashboardService) ListUserBadges(ctx context.Context, userID int) ([]*models.UserBadge, error) {
	return s.badgeRepo.ListUserBadges(ctx, userID)
}
