package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/repositories"
)

// CastVoteInput carries the four category ratings for one submission.
type CastVoteInput struct {
	RatingClarity     int `json:"rating_clarity"`
	RatingUsability   int `json:"rating_usability"`
	RatingVisualCraft int `json:"rating_visual_craft"`
	RatingOriginality int `json:"rating_originality"`
}

type VoteService struct {
	voteRepo       repositories.VoteRepository
	submissionRepo repositories.SubmissionRepository
	engagement     *EngagementService
}

func NewVoteService(voteRepo repositories.VoteRepository, submissionRepo repositories.SubmissionRepository, engagement *EngagementService) *VoteService {
	return &VoteService{voteRepo: voteRepo, submissionRepo: submissionRepo, engagement: engagement}
}

// CastVote upserts the voter's ratings for a submission. The returned bool is
// true when a new vote row was created, false when an existing one was
// updated; the handler maps this to 201 vs 200.
func (s *VoteService) CastVote(ctx context.Context, submissionID, voterID int, input CastVoteInput) (*models.Vote, bool, error) {
	if err := validateRatings(input); err != nil {
		return nil, false, err
	}

	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return nil, false, ErrSubmissionNotFound
		}
		return nil, false, err
	}
	if submission.UserID == voterID {
		return nil, false, ErrSelfVoteForbidden
	}

	existing, err := s.voteRepo.FindBySubmissionAndVoter(ctx, submissionID, voterID)
	if err != nil && !errors.Is(err, repositories.ErrVoteNotFound) {
		return nil, false, err
	}
	if existing != nil {
		applyRatings(existing, input)
		if err := s.voteRepo.UpdateRatings(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	vote := &models.Vote{
		SprintID:     submission.SprintID,
		SubmissionID: submissionID,
		VoterID:      voterID,
	}
	applyRatings(vote, input)

	err = s.voteRepo.Create(ctx, vote)
	if err == nil {
		s.awardVoteXP(ctx, vote)
		return vote, true, nil
	}
	if !errors.Is(err, repositories.ErrVoteConflict) {
		return nil, false, err
	}

	// Lost a race against a concurrent first vote from the same voter; the
	// unique constraint guarantees the row now exists, so retry as update.
	existing, err = s.voteRepo.FindBySubmissionAndVoter(ctx, submissionID, voterID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reload vote after conflict: %w", err)
	}
	applyRatings(existing, input)
	if err := s.voteRepo.UpdateRatings(ctx, existing); err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ComputeStats aggregates all votes for a submission. Averages are computed
// here rather than in SQL so the zero-vote case stays an explicit zero.
func (s *VoteService) ComputeStats(ctx context.Context, submissionID int) (*models.VoteStats, error) {
	if _, err := s.submissionRepo.GetByID(ctx, submissionID); err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	votes, err := s.voteRepo.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	stats := &models.VoteStats{SubmissionID: submissionID, TotalVotes: len(votes)}
	if len(votes) == 0 {
		return stats, nil
	}

	var clarity, usability, visualCraft, originality, overall float64
	for _, v := range votes {
		clarity += float64(v.RatingClarity)
		usability += float64(v.RatingUsability)
		visualCraft += float64(v.RatingVisualCraft)
		originality += float64(v.RatingOriginality)
		overall += float64(v.RatingClarity+v.RatingUsability+v.RatingVisualCraft+v.RatingOriginality) / 4
	}
	n := float64(len(votes))
	stats.AvgClarity = clarity / n
	stats.AvgUsability = usability / n
	stats.AvgVisualCraft = visualCraft / n
	stats.AvgOriginality = originality / n
	stats.AvgOverall = overall / n
	return stats, nil
}

// RemoveVote deletes the caller's own vote.
func (s *VoteService) RemoveVote(ctx context.Context, voteID, voterID int) error {
	vote, err := s.voteRepo.GetByID(ctx, voteID)
	if err != nil {
		if errors.Is(err, repositories.ErrVoteNotFound) {
			return ErrVoteNotFound
		}
		return err
	}
	if vote.VoterID != voterID {
		return ErrForbiddenOperation
	}
	return s.voteRepo.Delete(ctx, voteID)
}

// awardVoteXP is best-effort: a first vote earns XP once, and a failed award
// never fails the vote itself.
func (s *VoteService) awardVoteXP(ctx context.Context, vote *models.Vote) {
	if s.engagement == nil {
		return
	}
	sourceID := vote.ID
	_, _ = s.engagement.RecordEvent(ctx, vote.VoterID, vote.SprintID, models.SourceVote, XPAmountVote, &sourceID)
}

func validateRatings(input CastVoteInput) error {
	for _, rating := range []int{input.RatingClarity, input.RatingUsability, input.RatingVisualCraft, input.RatingOriginality} {
		if rating < models.RatingMin || rating > models.RatingMax {
			return fmt.Errorf("%w: got %d", ErrRatingOutOfRange, rating)
		}
	}
	return nil
}

func applyRatings(v *models.Vote, input CastVoteInput) {
	v.RatingClarity = input.RatingClarity
	v.RatingUsability = input.RatingUsability
	v.RatingVisualCraft = input.RatingVisualCraft
	v.RatingOriginality = input.RatingOriginality
}
