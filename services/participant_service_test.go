package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designloop/sprint-system/models"
)

func TestJoinAndLeave(t *testing.T) {
	sprintRepo := newFakeSprintRepo()
	participants := newFakeParticipantRepo()
	users := newFakeUserRepo()
	svc := NewParticipantService(participants, sprintRepo, users)
	ctx := context.Background()

	sprint := &models.Sprint{SprintNumber: 1, ChallengeID: 1, Status: models.StatusScheduled}
	require.NoError(t, sprintRepo.Create(ctx, sprint))
	member := users.add("Alice")

	participant, err := svc.Join(ctx, sprint.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, participant.UserID)

	_, err = svc.Join(ctx, sprint.ID, member.ID)
	require.ErrorIs(t, err, ErrAlreadyJoined)

	roster, err := svc.ListParticipants(ctx, sprint.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.NotNil(t, roster[0].User)
	assert.Equal(t, "Alice", roster[0].User.FirstName)

	require.NoError(t, svc.Leave(ctx, sprint.ID, member.ID))
	require.ErrorIs(t, svc.Leave(ctx, sprint.ID, member.ID), ErrParticipantNotFound)
}

func TestJoin_RejectsFinishedSprint(t *testing.T) {
	sprintRepo := newFakeSprintRepo()
	svc := NewParticipantService(newFakeParticipantRepo(), sprintRepo, newFakeUserRepo())
	ctx := context.Background()

	sprint := &models.Sprint{SprintNumber: 1, ChallengeID: 1, Status: models.StatusCompleted}
	require.NoError(t, sprintRepo.Create(ctx, sprint))

	_, err := svc.Join(ctx, sprint.ID, 1)
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.StatusCompleted, transitionErr.From)
}

func TestJoin_UnknownSprint(t *testing.T) {
	svc := NewParticipantService(newFakeParticipantRepo(), newFakeSprintRepo(), newFakeUserRepo())
	_, err := svc.Join(context.Background(), 404, 1)
	require.ErrorIs(t, err, ErrSprintNotFound)
}
