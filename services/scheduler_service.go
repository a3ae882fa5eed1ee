package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/repositories"
)

// maxNumberRetries bounds the retry loop around sprint number allocation.
// Concurrent creators collide on the sprints_sprint_number unique constraint
// and the loser recomputes max+1 from a fresh read.
const maxNumberRetries = 3

type CreateSprintInput struct {
	Name         *string    `json:"name"`
	ChallengeID  *int       `json:"challenge_id"`
	StartAt      time.Time  `json:"start_at"`
	EndAt        time.Time  `json:"end_at"`
	VotingEndAt  *time.Time `json:"voting_end_at"`
	RetroDay     *time.Time `json:"retro_day"`
	DurationDays int        `json:"duration_days"`
}

// SchedulerService validates candidate sprints against the existing calendar,
// allocates sprint numbers and picks an unused challenge when none is given.
type SchedulerService struct {
	sprintRepo    repositories.SprintRepository
	challengeRepo repositories.ChallengeRepository
	pick          func(n int) int
}

func NewSchedulerService(
	sprintRepo repositories.SprintRepository,
	challengeRepo repositories.ChallengeRepository,
) *SchedulerService {
	return &SchedulerService{
		sprintRepo:    sprintRepo,
		challengeRepo: challengeRepo,
		pick:          rand.Intn,
	}
}

// CreateSprint runs the full scheduling pipeline: date validation, overlap
// detection, challenge selection, number allocation and persistence.
func (s *SchedulerService) CreateSprint(ctx context.Context, input CreateSprintInput) (*models.Sprint, error) {
	if err := validateSprintDates(input.StartAt, input.EndAt, input.VotingEndAt); err != nil {
		return nil, err
	}

	existing, err := s.sprintRepo.List(ctx, repositories.ListSprintsFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load existing sprints: %w", err)
	}

	if conflict := findOverlap(input.StartAt, input.EndAt, existing); conflict != nil {
		return nil, conflict
	}

	challenge, err := s.selectChallenge(ctx, input.ChallengeID, existing)
	if err != nil {
		return nil, err
	}

	durationDays := input.DurationDays
	if durationDays <= 0 {
		durationDays = int(input.EndAt.Sub(input.StartAt).Hours() / 24)
	}

	startAt := input.StartAt
	endAt := input.EndAt

	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		number := nextSprintNumber(existing)

		sprint := &models.Sprint{
			SprintNumber: number,
			Name:         sprintName(input.Name, number, challenge.Title),
			ChallengeID:  challenge.ID,
			Status:       models.StatusScheduled,
			StartAt:      &startAt,
			EndAt:        &endAt,
			VotingEndAt:  input.VotingEndAt,
			RetroDay:     input.RetroDay,
			DurationDays: durationDays,
		}

		err = s.sprintRepo.Create(ctx, sprint)
		if err == nil {
			sprint.Challenge = challenge
			return sprint, nil
		}
		if !errors.Is(err, repositories.ErrSprintNumberConflict) {
			return nil, fmt.Errorf("failed to create sprint: %w", err)
		}

		// Somebody else took the number; reload and recompute.
		existing, err = s.sprintRepo.List(ctx, repositories.ListSprintsFilter{})
		if err != nil {
			return nil, fmt.Errorf("failed to reload sprints after number conflict: %w", err)
		}
	}

	return nil, ErrSprintNumberExhausted
}

func validateSprintDates(startAt, endAt time.Time, votingEndAt *time.Time) error {
	if startAt.IsZero() || endAt.IsZero() {
		return ErrSprintDatesRequired
	}
	if !startAt.Before(endAt) {
		return fmt.Errorf("%w: start (%s) must be strictly before end (%s)",
			ErrInvalidDateOrder, startAt.Format(time.RFC3339), endAt.Format(time.RFC3339))
	}
	if votingEndAt != nil && endAt.After(*votingEndAt) {
		return fmt.Errorf("%w: end (%s) must not be after voting end (%s)",
			ErrInvalidDateOrder, endAt.Format(time.RFC3339), votingEndAt.Format(time.RFC3339))
	}
	return nil
}

// rangesOverlap uses half-open interval semantics: touching boundaries do not
// overlap, so back-to-back sprints are allowed.
func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func findOverlap(startAt, endAt time.Time, existing []models.Sprint) *SprintOverlapError {
	for i := range existing {
		e := &existing[i]
		if e.StartAt == nil || e.EndAt == nil {
			continue
		}
		if rangesOverlap(startAt, endAt, *e.StartAt, *e.EndAt) {
			return &SprintOverlapError{
				SprintID:     e.ID,
				SprintNumber: e.SprintNumber,
				StartAt:      *e.StartAt,
				EndAt:        *e.EndAt,
			}
		}
	}
	return nil
}

func nextSprintNumber(existing []models.Sprint) int {
	max := 0
	for i := range existing {
		if existing[i].SprintNumber > max {
			max = existing[i].SprintNumber
		}
	}
	return max + 1
}

func (s *SchedulerService) selectChallenge(ctx context.Context, challengeID *int, existing []models.Sprint) (*models.Challenge, error) {
	if challengeID != nil {
		challenge, err := s.challengeRepo.GetByID(ctx, *challengeID)
		if err != nil {
			if errors.Is(err, repositories.ErrChallengeNotFound) {
				return nil, ErrChallengeNotFound
			}
			return nil, fmt.Errorf("failed to load challenge %d: %w", *challengeID, err)
		}
		return challenge, nil
	}

	challenges, err := s.challengeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	used := make(map[int]bool, len(existing))
	for i := range existing {
		used[existing[i].ChallengeID] = true
	}

	pool := make([]models.Challenge, 0, len(challenges))
	for _, c := range challenges {
		if !used[c.ID] {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return nil, ErrNoChallengesAvailable
	}

	picked := pool[s.pick(len(pool))]
	return &picked, nil
}

func sprintName(override *string, number int, challengeTitle string) string {
	if override != nil && *override != "" {
		return *override
	}
	return fmt.Sprintf("Sprint %d: %s", number, challengeTitle)
}
