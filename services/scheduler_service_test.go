package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/repositories"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newScheduler(t *testing.T) (*SchedulerService, *fakeSprintRepo, *fakeChallengeRepo) {
	t.Helper()
	sprintRepo := newFakeSprintRepo()
	challengeRepo := newFakeChallengeRepo()
	svc := NewSchedulerService(sprintRepo, challengeRepo)
	return svc, sprintRepo, challengeRepo
}

func TestRangesOverlap_Symmetry(t *testing.T) {
	base := day(2024, time.January, 1)
	// A sweep of range pairs, including nested, partial, disjoint and adjacent.
	cases := [][4]int{
		{0, 14, 10, 20},
		{0, 14, 14, 28},
		{0, 28, 7, 14},
		{0, 7, 20, 28},
		{0, 14, 0, 14},
		{5, 6, 0, 14},
	}
	for _, c := range cases {
		aStart, aEnd := base.AddDate(0, 0, c[0]), base.AddDate(0, 0, c[1])
		bStart, bEnd := base.AddDate(0, 0, c[2]), base.AddDate(0, 0, c[3])
		assert.Equal(t,
			rangesOverlap(aStart, aEnd, bStart, bEnd),
			rangesOverlap(bStart, bEnd, aStart, aEnd),
			"overlap must be symmetric for days %v", c)
	}
}

func TestRangesOverlap_ContainmentAndAdjacency(t *testing.T) {
	t0 := day(2024, time.January, 1)
	t1 := day(2024, time.January, 14)
	t2 := day(2024, time.January, 28)

	// Containment implies overlap.
	assert.True(t, rangesOverlap(t0, t2, t0.AddDate(0, 0, 5), t0.AddDate(0, 0, 9)))

	// Adjacent half-open ranges [t0,t1) and [t1,t2) do not overlap.
	assert.False(t, rangesOverlap(t0, t1, t1, t2))
	assert.False(t, rangesOverlap(t1, t2, t0, t1))
}

func TestCreateSprint_OverlapConflict(t *testing.T) {
	svc, sprintRepo, challengeRepo := newScheduler(t)
	ctx := context.Background()
	challengeRepo.add("Onboarding flow")
	challengeRepo.add("Pricing page")

	first, err := svc.CreateSprint(ctx, CreateSprintInput{
		StartAt: day(2024, time.January, 1),
		EndAt:   day(2024, time.January, 14),
	})
	require.NoError(t, err)
	require.Len(t, sprintRepo.sprints, 1)

	// [2024-01-10, 2024-01-20) overlaps the existing [2024-01-01, 2024-01-14).
	_, err = svc.CreateSprint(ctx, CreateSprintInput{
		StartAt: day(2024, time.January, 10),
		EndAt:   day(2024, time.January, 20),
	})
	var conflict *SprintOverlapError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.SprintID)
	assert.Equal(t, first.SprintNumber, conflict.SprintNumber)
	assert.Equal(t, day(2024, time.January, 1), conflict.StartAt)
	assert.Equal(t, day(2024, time.January, 14), conflict.EndAt)
	require.Len(t, sprintRepo.sprints, 1, "conflicting sprint must not be stored")
}

func TestCreateSprint_AdjacentAccepted(t *testing.T) {
	svc, _, challengeRepo := newScheduler(t)
	ctx := context.Background()
	challengeRepo.add("Onboarding flow")
	challengeRepo.add("Pricing page")

	_, err := svc.CreateSprint(ctx, CreateSprintInput{
		StartAt: day(2024, time.January, 1),
		EndAt:   day(2024, time.January, 14),
	})
	require.NoError(t, err)

	// Back-to-back sprint starting exactly at the previous end is allowed.
	second, err := svc.CreateSprint(ctx, CreateSprintInput{
		StartAt: day(2024, time.January, 14),
		EndAt:   day(2024, time.January, 28),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.SprintNumber)
}

func TestCreateSprint_NumberIsMaxPlusOne(t *testing.T) {
	svc, sprintRepo, challengeRepo := newScheduler(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		challengeRepo.add("Challenge")
	}

	// Seed a gap: numbers 1 and 7 exist.
	require.NoError(t, sprintRepo.Create(ctx, &models.Sprint{
		SprintNumber: 1, ChallengeID: 1, Status: models.StatusCompleted,
	}))
	require.NoError(t, sprintRepo.Create(ctx, &models.Sprint{
		SprintNumber: 7, ChallengeID: 2, Status: models.StatusCompleted,
	}))

	sprint, err := svc.CreateSprint(ctx, CreateSprintInput{
		StartAt: day(2024, time.March, 1),
		EndAt:   day(2024, time.March, 15),
	})
	require.NoError(t, err)
	assert.Equal(t, 8, sprint.SprintNumber, "number is max+1, gaps are not reused")
}

func TestCreateSprint_RetriesNumberConflict(t *testing.T) {
	svc, sprintRepo, challengeRepo := newScheduler(t)
	ctx := context.Background()
	challengeRepo.add("Onboarding flow")
	challengeRepo.add("Pricing page")

	// Simulate a concurrent creator grabbing number 1 between the service's
	// read and its insert.
	raced := false
	svc.pick = func(n int) int {
		if !raced {
			raced = true
			other := &models.Sprint{
				SprintNumber: 1,
				ChallengeID:  2,
				Status:       models.StatusScheduled,
			}
			require.NoError(t, sprintRepo.Create(ctx, other))
		}
		return 0
	}

	sprint, err := svc.CreateSprint(ctx, CreateSprintInput{
		StartAt: day(2024, time.May, 1),
		EndAt:   day(2024, time.May, 15),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sprint.SprintNumber, "loser recomputes max+1 after the unique violation")
}

func TestCreateSprint_NameDefaultsAndOverride(t *testing.T) {
	svc, _, challengeRepo := newScheduler(t)
	ctx := context.Background()
	c := challengeRepo.add("Onboarding flow")

	sprint, err := svc.CreateSprint(ctx, CreateSprintInput{
		ChallengeID: &c.ID,
		StartAt:     day(2024, time.January, 1),
		EndAt:       day(2024, time.January, 14),
	})
	require.NoError(t, err)
	assert.Equal(t, "Sprint 1: Onboarding flow", sprint.Name)
	assert.Equal(t, models.StatusScheduled, sprint.Status)

	name := "Winter kickoff"
	challengeRepo.add("Pricing page")
	sprint, err = svc.CreateSprint(ctx, CreateSprintInput{
		Name:    &name,
		StartAt: day(2024, time.January, 14),
		EndAt:   day(2024, time.January, 28),
	})
	require.NoError(t, err)
	assert.Equal(t, "Winter kickoff", sprint.Name)
}

func TestCreateSprint_PicksUnusedChallenge(t *testing.T) {
	svc, _, challengeRepo := newScheduler(t)
	ctx := context.Background()
	used := challengeRepo.add("Onboarding flow")
	unused := challengeRepo.add("Pricing page")

	_, err := svc.CreateSprint(ctx, CreateSprintInput{
		ChallengeID: &used.ID,
		StartAt:     day(2024, time.January, 1),
		EndAt:       day(2024, time.January, 14),
	})
	require.NoError(t, err)

	// Only one challenge remains unused, so any pick index resolves to it.
	svc.pick = func(n int) int {
		require.Equal(t, 1, n, "used challenges must be excluded from the pool")
		return 0
	}
	sprint, err := svc.CreateSprint(ctx, CreateSprintInput{
		StartAt: day(2024, time.January, 14),
		EndAt:   day(2024, time.January, 28),
	})
	require.NoError(t, err)
	assert.Equal(t, unused.ID, sprint.ChallengeID)
}

func TestCreateSprint_NoChallengesAvailable(t *testing.T) {
	svc, _, challengeRepo := newScheduler(t)
	ctx := context.Background()
	c := challengeRepo.add("Onboarding flow")

	_, err := svc.CreateSprint(ctx, CreateSprintInput{
		ChallengeID: &c.ID,
		StartAt:     day(2024, time.January, 1),
		EndAt:       day(2024, time.January, 14),
	})
	require.NoError(t, err)

	_, err = svc.CreateSprint(ctx, CreateSprintInput{
		StartAt: day(2024, time.January, 14),
		EndAt:   day(2024, time.January, 28),
	})
	require.ErrorIs(t, err, ErrNoChallengesAvailable)
}

func TestCreateSprint_UnknownChallenge(t *testing.T) {
	svc, _, _ := newScheduler(t)
	missing := 42
	_, err := svc.CreateSprint(context.Background(), CreateSprintInput{
		ChallengeID: &missing,
		StartAt:     day(2024, time.January, 1),
		EndAt:       day(2024, time.January, 14),
	})
	require.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestCreateSprint_DateValidation(t *testing.T) {
	svc, _, challengeRepo := newScheduler(t)
	ctx := context.Background()
	challengeRepo.add("Onboarding flow")

	_, err := svc.CreateSprint(ctx, CreateSprintInput{})
	require.ErrorIs(t, err, ErrSprintDatesRequired)

	_, err = svc.CreateSprint(ctx, CreateSprintInput{
		StartAt: day(2024, time.January, 14),
		EndAt:   day(2024, time.January, 1),
	})
	require.ErrorIs(t, err, ErrInvalidDateOrder)

	// Equal start and end is also rejected: the range must be non-empty.
	_, err = svc.CreateSprint(ctx, CreateSprintInput{
		StartAt: day(2024, time.January, 1),
		EndAt:   day(2024, time.January, 1),
	})
	require.ErrorIs(t, err, ErrInvalidDateOrder)

	votingEnd := day(2024, time.January, 10)
	_, err = svc.CreateSprint(ctx, CreateSprintInput{
		StartAt:     day(2024, time.January, 1),
		EndAt:       day(2024, time.January, 14),
		VotingEndAt: &votingEnd,
	})
	require.ErrorIs(t, err, ErrInvalidDateOrder)
}

func TestCreateSprint_NumberExhausted(t *testing.T) {
	svc, sprintRepo, challengeRepo := newScheduler(t)
	ctx := context.Background()
	challengeRepo.add("Onboarding flow")

	// Every insert attempt loses the number race to a concurrent writer.
	taken := 0
	svc.pick = func(n int) int { return 0 }
	svc.sprintRepo = &racingSprintRepo{fakeSprintRepo: sprintRepo, t: t, taken: &taken}

	_, err := svc.CreateSprint(ctx, CreateSprintInput{
		StartAt: day(2024, time.June, 1),
		EndAt:   day(2024, time.June, 15),
	})
	require.ErrorIs(t, err, ErrSprintNumberExhausted)
	assert.Equal(t, maxNumberRetries, taken)
}

// racingSprintRepo makes every Create lose to a concurrent writer that claims
// the same sprint number first.
type racingSprintRepo struct {
	*fakeSprintRepo
	t     *testing.T
	taken *int
}

func (r *racingSprintRepo) Create(ctx context.Context, s *models.Sprint) error {
	other := &models.Sprint{
		SprintNumber: s.SprintNumber,
		ChallengeID:  s.ChallengeID,
		Status:       models.StatusScheduled,
	}
	require.NoError(r.t, r.fakeSprintRepo.Create(ctx, other))
	*r.taken++
	return repositories.ErrSprintNumberConflict
}
