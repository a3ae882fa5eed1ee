package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/repositories"
	"github.com/designloop/sprint-system/storage"
)

type CreateSubmissionInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

type UpdateSubmissionInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type SubmissionService struct {
	submissionRepo  repositories.SubmissionRepository
	sprintRepo      repositories.SprintRepository
	participantRepo repositories.ParticipantRepository
	engagement      *EngagementService
	uploader        storage.FileUploader
}

func NewSubmissionService(
	submissionRepo repositories.SubmissionRepository,
	sprintRepo repositories.SprintRepository,
	participantRepo repositories.ParticipantRepository,
	engagement *EngagementService,
	uploader storage.FileUploader,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo:  submissionRepo,
		sprintRepo:      sprintRepo,
		participantRepo: participantRepo,
		engagement:      engagement,
		uploader:        uploader,
	}
}

// CreateDraft opens a draft submission for a sprint participant. One
// submission per user per sprint, enforced by the unique constraint.
func (s *SubmissionService) CreateDraft(ctx context.Context, sprintID, userID int, input CreateSubmissionInput) (*models.Submission, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: submission title is required", ErrValidationFailed)
	}

	sprint, err := s.sprintRepo.GetByID(ctx, sprintID)
	if err != nil {
		if errors.Is(err, repositories.ErrSprintNotFound) {
			return nil, ErrSprintNotFound
		}
		return nil, err
	}
	if sprint.Status != models.StatusActive {
		return nil, &InvalidTransitionError{
			From:     sprint.Status,
			Expected: []models.SprintStatus{models.StatusActive},
		}
	}
	if _, err := s.participantRepo.FindBySprintAndUser(ctx, sprintID, userID); err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrForbiddenOperation
		}
		return nil, err
	}

	submission := &models.Submission{
		SprintID:    sprintID,
		UserID:      userID,
		Status:      models.SubmissionDraft,
		Title:       input.Title,
		Description: input.Description,
	}
	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		if errors.Is(err, repositories.ErrSubmissionConflict) {
			return nil, ErrSubmissionExists
		}
		return nil, err
	}
	s.resolveAssetURL(submission)
	return submission, nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, id int) (*models.Submission, error) {
	submission, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	s.resolveAssetURL(submission)
	return submission, nil
}

func (s *SubmissionService) ListBySprint(ctx context.Context, sprintID int) ([]*models.Submission, error) {
	submissions, err := s.submissionRepo.ListBySprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	for _, submission := range submissions {
		s.resolveAssetURL(submission)
	}
	return submissions, nil
}

// UpdateDraft edits a draft in place. Only the owner may edit, and only while
// the submission has not been submitted.
func (s *SubmissionService) UpdateDraft(ctx context.Context, id, userID int, input UpdateSubmissionInput) (*models.Submission, error) {
	submission, err := s.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.UserID != userID {
		return nil, ErrForbiddenOperation
	}
	if submission.Status != models.SubmissionDraft {
		return nil, ErrSubmissionLocked
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, fmt.Errorf("%w: submission title is required", ErrValidationFailed)
		}
		submission.Title = *input.Title
	}
	if input.Description != nil {
		submission.Description = input.Description
	}

	if err := s.submissionRepo.UpdateDraft(ctx, submission); err != nil {
		if errors.Is(err, repositories.ErrSubmissionAlreadyLocked) {
			return nil, ErrSubmissionLocked
		}
		return nil, err
	}
	s.resolveAssetURL(submission)
	return submission, nil
}

// Submit locks the draft and awards submission XP. The conditional update
// makes a concurrent double-submit award XP exactly once.
func (s *SubmissionService) Submit(ctx context.Context, id, userID int) (*models.Submission, error) {
	submission, err := s.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.UserID != userID {
		return nil, ErrForbiddenOperation
	}
	if submission.Status != models.SubmissionDraft {
		return nil, ErrSubmissionLocked
	}

	locked, err := s.submissionRepo.MarkSubmitted(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrSubmissionLocked
	}

	if s.engagement != nil {
		sourceID := submission.ID
		_, _ = s.engagement.RecordEvent(ctx, userID, submission.SprintID, models.SourceSubmitDesign, XPAmountSubmitDesign, &sourceID)
	}
	return s.GetSubmission(ctx, id)
}

// UploadAsset stores the design file and records its key on the submission.
func (s *SubmissionService) UploadAsset(ctx context.Context, id, userID int, filename, contentType string, reader io.Reader) (*models.Submission, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: asset storage is not configured", ErrValidationFailed)
	}

	submission, err := s.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.UserID != userID {
		return nil, ErrForbiddenOperation
	}
	if submission.Status != models.SubmissionDraft {
		return nil, ErrSubmissionLocked
	}

	key := fmt.Sprintf("submissions/%d/%d_%s", submission.SprintID, submission.ID, filename)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload submission asset: %w", err)
	}

	if submission.AssetKey != nil && *submission.AssetKey != result.Key {
		// Old asset is orphaned either way; best effort cleanup.
		_ = s.uploader.Delete(ctx, *submission.AssetKey)
	}

	if err := s.submissionRepo.UpdateAssetKey(ctx, id, &result.Key); err != nil {
		return nil, err
	}
	submission.AssetKey = &result.Key
	s.resolveAssetURL(submission)
	return submission, nil
}

func (s *SubmissionService) resolveAssetURL(submission *models.Submission) {
	if s.uploader == nil || submission.AssetKey == nil {
		return
	}
	url := s.uploader.GetPublicURL(*submission.AssetKey)
	submission.AssetURL = &url
}
