package services

import (
	"context"
	"fmt"

	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/repositories"
)

// Default award amounts per source. Handlers and sibling services use these
// when recording the standard engagement actions.
const (
	XPAmountReadBrief       = 5
	XPAmountSubmitDesign    = 50
	XPAmountVote            = 10
	XPAmountFeedback        = 15
	XPAmountReflection      = 20
	XPAmountHelpfulFeedback = 25
)

// levelThresholds[i] is the minimum total XP for level i+1. The curve
// saturates: everything at or past the last threshold is level 8.
var levelThresholds = []int{0, 100, 250, 500, 1000, 2000, 4000, 7000}

// EngagementService is the append-only XP ledger. Totals, groupings and levels
// are always recomputed from the full event list; no running counter exists to
// drift out of sync.
type EngagementService struct {
	xpRepo repositories.XPEventRepository
}

func NewEngagementService(xpRepo repositories.XPEventRepository) *EngagementService {
	return &EngagementService{xpRepo: xpRepo}
}

// RecordEvent appends one ledger entry. sourceID optionally points at the
// submission/vote/feedback row that earned the XP.
func (s *EngagementService) RecordEvent(ctx context.Context, userID, sprintID int, sourceType models.XPSource, amount int, sourceID *int) (*models.XPEvent, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeXPAmount, amount)
	}
	if !models.ValidXPSource(sourceType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownXPSource, sourceType)
	}

	event := &models.XPEvent{
		UserID:     userID,
		SprintID:   sprintID,
		SourceType: sourceType,
		SourceID:   sourceID,
		Amount:     amount,
	}
	if err := s.xpRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record xp event: %w", err)
	}
	return event, nil
}

func (s *EngagementService) TotalXP(ctx context.Context, userID int) (int, error) {
	events, err := s.xpRepo.List(ctx, repositories.ListXPEventsFilter{UserID: &userID})
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range events {
		total += e.Amount
	}
	return total, nil
}

func (s *EngagementService) XPBySource(ctx context.Context, userID int) (map[models.XPSource]int, error) {
	events, err := s.xpRepo.List(ctx, repositories.ListXPEventsFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	grouped := make(map[models.XPSource]int)
	for _, e := range events {
		grouped[e.SourceType] += e.Amount
	}
	return grouped, nil
}

func (s *EngagementService) XPBySprint(ctx context.Context, userID int) (map[int]int, error) {
	events, err := s.xpRepo.List(ctx, repositories.ListXPEventsFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	grouped := make(map[int]int)
	for _, e := range events {
		grouped[e.SprintID] += e.Amount
	}
	return grouped, nil
}

func (s *EngagementService) ListEvents(ctx context.Context, filter repositories.ListXPEventsFilter) ([]*models.XPEvent, error) {
	return s.xpRepo.List(ctx, filter)
}

// LevelFor maps a total XP amount onto the 1..8 level curve.
func LevelFor(totalXP int) int {
	level := 1
	for i, threshold := range levelThresholds {
		if totalXP >= threshold {
			level = i + 1
		}
	}
	return level
}
