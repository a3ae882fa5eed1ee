package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designloop/sprint-system/models"
)

type lifecycleFixture struct {
	svc           *SprintService
	sprintRepo    *fakeSprintRepo
	challengeRepo *fakeChallengeRepo
	participants  *fakeParticipantRepo
	users         *fakeUserRepo
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		sprintRepo:    newFakeSprintRepo(),
		challengeRepo: newFakeChallengeRepo(),
		participants:  newFakeParticipantRepo(),
		users:         newFakeUserRepo(),
	}
	f.svc = NewSprintService(f.sprintRepo, f.challengeRepo, f.participants, f.users, nil, nil, nil)
	return f
}

func (f *lifecycleFixture) seedSprint(t *testing.T, status models.SprintStatus) *models.Sprint {
	t.Helper()
	challenge := f.challengeRepo.add("Onboarding flow")
	start := day(2024, time.January, 1)
	end := day(2024, time.January, 14)
	votingEnd := day(2024, time.January, 17)
	sprint := &models.Sprint{
		SprintNumber: len(f.sprintRepo.sprints) + 1,
		Name:         "Sprint 1: Onboarding flow",
		ChallengeID:  challenge.ID,
		Status:       status,
		StartAt:      &start,
		EndAt:        &end,
		VotingEndAt:  &votingEnd,
		DurationDays: 13,
	}
	require.NoError(t, f.sprintRepo.Create(context.Background(), sprint))
	return sprint
}

func TestActivate_FromScheduled(t *testing.T) {
	f := newLifecycleFixture(t)
	sprint := f.seedSprint(t, models.StatusScheduled)

	updated, err := f.svc.Activate(context.Background(), sprint.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, updated.Status)
	require.NotNil(t, updated.StartedByID)
	assert.Equal(t, 7, *updated.StartedByID)
	require.NotNil(t, updated.Challenge, "activated sprint carries its challenge")
}

func TestActivate_RejectsNonScheduled(t *testing.T) {
	f := newLifecycleFixture(t)
	sprint := f.seedSprint(t, models.StatusVoting)

	_, err := f.svc.Activate(context.Background(), sprint.ID, 7)
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.StatusVoting, transitionErr.From)
	assert.Equal(t, []models.SprintStatus{models.StatusScheduled}, transitionErr.Expected)
}

func TestActivate_NotFound(t *testing.T) {
	f := newLifecycleFixture(t)
	_, err := f.svc.Activate(context.Background(), 99, 7)
	require.ErrorIs(t, err, ErrSprintNotFound)
}

func TestActivate_SecondCallerLoses(t *testing.T) {
	f := newLifecycleFixture(t)
	sprint := f.seedSprint(t, models.StatusScheduled)

	_, first := f.svc.Activate(context.Background(), sprint.ID, 1)
	_, second := f.svc.Activate(context.Background(), sprint.ID, 2)

	require.NoError(t, first)
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, second, &transitionErr)
	assert.Equal(t, models.StatusActive, transitionErr.From)
}

func TestActivate_LostSwapReportsFreshStatus(t *testing.T) {
	f := newLifecycleFixture(t)
	sprint := f.seedSprint(t, models.StatusScheduled)

	// A competing writer flips the sprint between the service's pre-check and
	// its conditional update.
	f.svc.sprintRepo = &flippingSprintRepo{fakeSprintRepo: f.sprintRepo, flipTo: models.StatusActive}

	_, err := f.svc.Activate(context.Background(), sprint.ID, 7)
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.StatusActive, transitionErr.From)
	assert.Equal(t, []models.SprintStatus{models.StatusScheduled}, transitionErr.Expected)
}

func TestAdvancePhase_WalksSequence(t *testing.T) {
	f := newLifecycleFixture(t)
	sprint := f.seedSprint(t, models.StatusActive)
	ctx := context.Background()
	actor := 3

	for _, want := range []models.SprintStatus{models.StatusVoting, models.StatusRetro, models.StatusCompleted} {
		updated, err := f.svc.AdvancePhase(ctx, sprint.ID, &actor)
		require.NoError(t, err)
		assert.Equal(t, want, updated.Status)
	}

	// Terminal: completed has no next phase.
	_, err := f.svc.AdvancePhase(ctx, sprint.ID, &actor)
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.StatusCompleted, transitionErr.From)
}

func TestAdvancePhase_RecordsActorOnlyAtCompletion(t *testing.T) {
	f := newLifecycleFixture(t)
	sprint := f.seedSprint(t, models.StatusActive)
	ctx := context.Background()
	actor := 3

	updated, err := f.svc.AdvancePhase(ctx, sprint.ID, &actor)
	require.NoError(t, err)
	assert.Nil(t, updated.EndedByID, "intermediate phases keep ended_by empty")

	_, err = f.svc.AdvancePhase(ctx, sprint.ID, &actor)
	require.NoError(t, err)

	updated, err = f.svc.AdvancePhase(ctx, sprint.ID, &actor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	require.NotNil(t, updated.EndedByID)
	assert.Equal(t, actor, *updated.EndedByID)
}

func TestAdvancePhase_RejectsScheduled(t *testing.T) {
	f := newLifecycleFixture(t)
	sprint := f.seedSprint(t, models.StatusScheduled)

	_, err := f.svc.AdvancePhase(context.Background(), sprint.ID, nil)
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.StatusScheduled, transitionErr.From)
}

func TestExtend_ShiftsDates(t *testing.T) {
	f := newLifecycleFixture(t)
	sprint := f.seedSprint(t, models.StatusActive)

	updated, err := f.svc.Extend(context.Background(), sprint.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.January, 17), *updated.EndAt)
	assert.Equal(t, day(2024, time.January, 20), *updated.VotingEndAt)
	assert.Equal(t, models.StatusActive, updated.Status, "extension never changes status")
}

func TestExtend_InvalidDays(t *testing.T) {
	f := newLifecycleFixture(t)
	sprint := f.seedSprint(t, models.StatusActive)

	for _, days := range []int{0, -2} {
		_, err := f.svc.Extend(context.Background(), sprint.ID, days)
		require.ErrorIs(t, err, ErrExtensionDaysInvalid)
	}
}

func TestExtend_RequiresActiveOrVoting(t *testing.T) {
	f := newLifecycleFixture(t)
	sprint := f.seedSprint(t, models.StatusCompleted)

	_, err := f.svc.Extend(context.Background(), sprint.ID, 2)
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.StatusCompleted, transitionErr.From)
	assert.Equal(t, []models.SprintStatus{models.StatusActive, models.StatusVoting}, transitionErr.Expected)
}

func TestCancel_FromScheduledAndActive(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	for _, status := range []models.SprintStatus{models.StatusScheduled, models.StatusActive} {
		sprint := f.seedSprint(t, status)
		updated, err := f.svc.Cancel(ctx, sprint.ID, 5)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, updated.Status)
		require.NotNil(t, updated.EndedByID)
		assert.Equal(t, 5, *updated.EndedByID)
	}
}

func TestCancel_RejectsLatePhases(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	for _, status := range []models.SprintStatus{models.StatusVoting, models.StatusRetro, models.StatusCompleted, models.StatusCancelled} {
		sprint := f.seedSprint(t, status)
		_, err := f.svc.Cancel(ctx, sprint.ID, 5)
		var transitionErr *InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, status, transitionErr.From)
	}
}

func TestAutoAdvanceDueSprints(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	overdue := f.seedSprint(t, models.StatusActive) // end_at already in the past
	notDue := f.seedSprint(t, models.StatusVoting)
	future := day(2030, time.January, 1)
	f.sprintRepo.sprints[notDue.ID].VotingEndAt = &future

	require.NoError(t, f.svc.AutoAdvanceDueSprints(ctx))

	advanced, err := f.sprintRepo.GetByID(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVoting, advanced.Status)

	untouched, err := f.sprintRepo.GetByID(ctx, notDue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVoting, untouched.Status)
}

// flippingSprintRepo changes the sprint's status right after the first GetByID
// so the service's conditional update affects zero rows.
type flippingSprintRepo struct {
	*fakeSprintRepo
	flipTo  models.SprintStatus
	flipped bool
}

func (r *flippingSprintRepo) GetByID(ctx context.Context, id int) (*models.Sprint, error) {
	sprint, err := r.fakeSprintRepo.GetByID(ctx, id)
	if err == nil && !r.flipped {
		r.flipped = true
		r.fakeSprintRepo.sprints[id].Status = r.flipTo
	}
	return sprint, err
}
