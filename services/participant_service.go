package services

import (
	"context"
	"errors"

	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/repositories"
)

type ParticipantService struct {
	participantRepo repositories.ParticipantRepository
	sprintRepo      repositories.SprintRepository
	userRepo        repositories.UserRepository
}

func NewParticipantService(
	participantRepo repositories.ParticipantRepository,
	sprintRepo repositories.SprintRepository,
	userRepo repositories.UserRepository,
) *ParticipantService {
	return &ParticipantService{
		participantRepo: participantRepo,
		sprintRepo:      sprintRepo,
		userRepo:        userRepo,
	}
}

// Join enrolls the user into a sprint that has not finished yet. The unique
// (sprint_id, user_id) constraint makes a concurrent double-join surface as
// ErrAlreadyJoined rather than a duplicate row.
func (s *ParticipantService) Join(ctx context.Context, sprintID, userID int) (*models.SprintParticipant, error) {
	sprint, err := s.sprintRepo.GetByID(ctx, sprintID)
	if err != nil {
		if errors.Is(err, repositories.ErrSprintNotFound) {
			return nil, ErrSprintNotFound
		}
		return nil, err
	}
	switch sprint.Status {
	case models.StatusScheduled, models.StatusActive:
	default:
		return nil, &InvalidTransitionError{
			From:     sprint.Status,
			Expected: []models.SprintStatus{models.StatusScheduled, models.StatusActive},
		}
	}

	participant := &models.SprintParticipant{SprintID: sprintID, UserID: userID}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		if errors.Is(err, repositories.ErrParticipantConflict) {
			return nil, ErrAlreadyJoined
		}
		return nil, err
	}
	return participant, nil
}

func (s *ParticipantService) Leave(ctx context.Context, sprintID, userID int) error {
	participant, err := s.participantRepo.FindBySprintAndUser(ctx, sprintID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}
	return s.participantRepo.Delete(ctx, participant.ID)
}

// ListParticipants returns the roster with user records attached.
func (s *ParticipantService) ListParticipants(ctx context.Context, sprintID int) ([]*models.SprintParticipant, error) {
	participants, err := s.participantRepo.ListBySprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return participants, nil
	}

	ids := make([]int, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, p := range participants {
		p.User = byID[p.UserID]
	}
	return participants, nil
}
