package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/repositories"
)

type ChallengeInput struct {
	ChallengeNumber int    `json:"challenge_number"`
	Title           string `json:"title"`
	Brief           string `json:"brief"`
}

// ChallengeService manages the pool of design briefs the scheduler draws from.
type ChallengeService struct {
	challengeRepo repositories.ChallengeRepository
}

func NewChallengeService(challengeRepo repositories.ChallengeRepository) *ChallengeService {
	return &ChallengeService{challengeRepo: challengeRepo}
}

func (s *ChallengeService) CreateChallenge(ctx context.Context, input ChallengeInput) (*models.Challenge, error) {
	if err := validateChallengeInput(input); err != nil {
		return nil, err
	}

	challenge := &models.Challenge{
		ChallengeNumber: input.ChallengeNumber,
		Title:           input.Title,
		Brief:           input.Brief,
	}
	if err := s.challengeRepo.Create(ctx, challenge); err != nil {
		if errors.Is(err, repositories.ErrChallengeNumberConflict) {
			return nil, ErrChallengeNumberTaken
		}
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}
	return challenge, nil
}

func (s *ChallengeService) GetChallenge(ctx context.Context, id int) (*models.Challenge, error) {
	challenge, err := s.challengeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrChallengeNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return challenge, nil
}

func (s *ChallengeService) ListChallenges(ctx context.Context) ([]models.Challenge, error) {
	return s.challengeRepo.List(ctx)
}

func (s *ChallengeService) UpdateChallenge(ctx context.Context, id int, input ChallengeInput) (*models.Challenge, error) {
	if err := validateChallengeInput(input); err != nil {
		return nil, err
	}

	challenge, err := s.GetChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	challenge.ChallengeNumber = input.ChallengeNumber
	challenge.Title = input.Title
	challenge.Brief = input.Brief

	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		if errors.Is(err, repositories.ErrChallengeNumberConflict) {
			return nil, ErrChallengeNumberTaken
		}
		if errors.Is(err, repositories.ErrChallengeNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return challenge, nil
}

func (s *ChallengeService) DeleteChallenge(ctx context.Context, id int) error {
	err := s.challengeRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrChallengeNotFound) {
			return ErrChallengeNotFound
		}
		// A brief referenced by a sprint stays; history depends on it.
		return err
	}
	return nil
}

func validateChallengeInput(input ChallengeInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return ErrChallengeTitleRequired
	}
	if input.ChallengeNumber < 1 {
		return fmt.Errorf("%w: challenge number must be positive", ErrValidationFailed)
	}
	return nil
}
