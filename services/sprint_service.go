package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/designloop/sprint-system/live"
	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/repositories"
)

// phaseSequence drives AdvancePhase: active -> voting -> retro -> completed.
var phaseSequence = map[models.SprintStatus]models.SprintStatus{
	models.StatusActive: models.StatusVoting,
	models.StatusVoting: models.StatusRetro,
	models.StatusRetro:  models.StatusCompleted,
}

// SprintAnnouncer notifies sprint participants about lifecycle changes.
// Implemented by EmailService; nil disables announcements.
type SprintAnnouncer interface {
	AnnounceSprintActivated(sprint *models.Sprint, recipients []*models.User)
}

// SprintService enforces the sprint status state machine. It deliberately does
// not re-check calendar overlap at transition time; the scheduler's
// creation-time guarantee is the sole enforcement point.
type SprintService struct {
	sprintRepo      repositories.SprintRepository
	challengeRepo   repositories.ChallengeRepository
	participantRepo repositories.ParticipantRepository
	userRepo        repositories.UserRepository
	announcer       SprintAnnouncer
	hub             *live.Hub
	logger          *slog.Logger
}

func NewSprintService(
	sprintRepo repositories.SprintRepository,
	challengeRepo repositories.ChallengeRepository,
	participantRepo repositories.ParticipantRepository,
	userRepo repositories.UserRepository,
	announcer SprintAnnouncer,
	hub *live.Hub,
	logger *slog.Logger,
) *SprintService {
	return &SprintService{
		sprintRepo:      sprintRepo,
		challengeRepo:   challengeRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		announcer:       announcer,
		hub:             hub,
		logger:          logger,
	}
}

func (s *SprintService) GetSprint(ctx context.Context, id int) (*models.Sprint, error) {
	sprint, err := s.sprintRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrSprintNotFound) {
			return nil, ErrSprintNotFound
		}
		return nil, err
	}
	if challenge, chErr := s.challengeRepo.GetByID(ctx, sprint.ChallengeID); chErr == nil {
		sprint.Challenge = challenge
	} else if s.logger != nil {
		s.logger.WarnContext(ctx, "failed to populate sprint challenge",
			slog.Int("sprint_id", sprint.ID), slog.Any("error", chErr))
	}
	return sprint, nil
}

func (s *SprintService) ListSprints(ctx context.Context, filter repositories.ListSprintsFilter) ([]models.Sprint, error) {
	return s.sprintRepo.List(ctx, filter)
}

// Activate moves a scheduled sprint to active. Two concurrent calls resolve to
// exactly one success: the conditional update in the repository swaps the
// status only when it still reads scheduled.
func (s *SprintService) Activate(ctx context.Context, sprintID, actorID int) (*models.Sprint, error) {
	sprint, err := s.sprintRepo.GetByID(ctx, sprintID)
	if err != nil {
		if errors.Is(err, repositories.ErrSprintNotFound) {
			return nil, ErrSprintNotFound
		}
		return nil, err
	}
	if sprint.Status != models.StatusScheduled {
		return nil, &InvalidTransitionError{From: sprint.Status, Expected: []models.SprintStatus{models.StatusScheduled}}
	}

	swapped, err := s.sprintRepo.Activate(ctx, sprintID, time.Now().UTC(), actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to activate sprint %d: %w", sprintID, err)
	}
	if !swapped {
		return s.transitionLost(ctx, sprintID, models.StatusScheduled)
	}

	updated, err := s.GetSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	s.publishSprintUpdate(updated)
	s.announceActivation(ctx, updated)
	return updated, nil
}

// AdvancePhase moves an active-ish sprint one step along the phase sequence.
// actorID may be nil when the caller is the scheduled auto-advance job; it is
// only recorded when the sprint reaches completed.
func (s *SprintService) AdvancePhase(ctx context.Context, sprintID int, actorID *int) (*models.Sprint, error) {
	sprint, err := s.sprintRepo.GetByID(ctx, sprintID)
	if err != nil {
		if errors.Is(err, repositories.ErrSprintNotFound) {
			return nil, ErrSprintNotFound
		}
		return nil, err
	}

	next, ok := phaseSequence[sprint.Status]
	if !ok {
		return nil, &InvalidTransitionError{
			From:     sprint.Status,
			Expected: []models.SprintStatus{models.StatusActive, models.StatusVoting, models.StatusRetro},
		}
	}

	var endedBy *int
	if next == models.StatusCompleted {
		endedBy = actorID
	}

	swapped, err := s.sprintRepo.AdvanceStatus(ctx, sprintID, sprint.Status, next, endedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to advance sprint %d: %w", sprintID, err)
	}
	if !swapped {
		return s.transitionLost(ctx, sprintID, sprint.Status)
	}

	updated, err := s.GetSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	s.publishSprintUpdate(updated)
	return updated, nil
}

// Extend pushes end_at (and voting_end_at, when set) out by the given number
// of days without touching the status.
func (s *SprintService) Extend(ctx context.Context, sprintID, days int) (*models.Sprint, error) {
	if days <= 0 {
		return nil, ErrExtensionDaysInvalid
	}

	sprint, err := s.sprintRepo.GetByID(ctx, sprintID)
	if err != nil {
		if errors.Is(err, repositories.ErrSprintNotFound) {
			return nil, ErrSprintNotFound
		}
		return nil, err
	}
	if sprint.Status != models.StatusActive && sprint.Status != models.StatusVoting {
		return nil, &InvalidTransitionError{
			From:     sprint.Status,
			Expected: []models.SprintStatus{models.StatusActive, models.StatusVoting},
		}
	}

	swapped, err := s.sprintRepo.ExtendDates(ctx, sprintID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to extend sprint %d: %w", sprintID, err)
	}
	if !swapped {
		return s.transitionLost(ctx, sprintID, sprint.Status)
	}

	updated, err := s.GetSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	s.publishSprintUpdate(updated)
	return updated, nil
}

func (s *SprintService) Cancel(ctx context.Context, sprintID, actorID int) (*models.Sprint, error) {
	sprint, err := s.sprintRepo.GetByID(ctx, sprintID)
	if err != nil {
		if errors.Is(err, repositories.ErrSprintNotFound) {
			return nil, ErrSprintNotFound
		}
		return nil, err
	}
	if sprint.Status != models.StatusScheduled && sprint.Status != models.StatusActive {
		return nil, &InvalidTransitionError{
			From:     sprint.Status,
			Expected: []models.SprintStatus{models.StatusScheduled, models.StatusActive},
		}
	}

	swapped, err := s.sprintRepo.Cancel(ctx, sprintID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel sprint %d: %w", sprintID, err)
	}
	if !swapped {
		return s.transitionLost(ctx, sprintID, sprint.Status)
	}

	updated, err := s.GetSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	s.publishSprintUpdate(updated)
	return updated, nil
}

// AutoAdvanceDueSprints walks sprints whose phase deadline has passed and
// advances each one step. Invoked by the ticker in cmd, never from within the
// engine itself.
func (s *SprintService) AutoAdvanceDueSprints(ctx context.Context) error {
	due, err := s.sprintRepo.ListDueForAdvance(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to list sprints due for advance: %w", err)
	}

	for _, sprint := range due {
		if _, advErr := s.AdvancePhase(ctx, sprint.ID, nil); advErr != nil {
			// A lost race here just means someone advanced it first.
			var transitionErr *InvalidTransitionError
			if errors.As(advErr, &transitionErr) {
				continue
			}
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "auto-advance failed",
					slog.Int("sprint_id", sprint.ID), slog.Any("error", advErr))
			}
		} else if s.logger != nil {
			s.logger.InfoContext(ctx, "sprint auto-advanced", slog.Int("sprint_id", sprint.ID))
		}
	}
	return nil
}

// transitionLost rebuilds a precise InvalidTransitionError after a conditional
// update affected zero rows.
func (s *SprintService) transitionLost(ctx context.Context, sprintID int, expected models.SprintStatus) (*models.Sprint, error) {
	fresh, err := s.sprintRepo.GetByID(ctx, sprintID)
	if err != nil {
		if errors.Is(err, repositories.ErrSprintNotFound) {
			return nil, ErrSprintNotFound
		}
		return nil, err
	}
	return nil, &InvalidTransitionError{From: fresh.Status, Expected: []models.SprintStatus{expected}}
}

func (s *SprintService) publishSprintUpdate(sprint *models.Sprint) {
	if s.hub == nil {
		return
	}
	roomID := live.SprintRoom(sprint.ID)
	s.hub.BroadcastToRoom(roomID, live.Message{
		Type:    live.EventSprintUpdated,
		Payload: sprint,
		RoomID:  roomID,
	})
}

func (s *SprintService) announceActivation(ctx context.Context, sprint *models.Sprint) {
	if s.announcer == nil {
		return
	}
	participants, err := s.participantRepo.ListBySprint(ctx, sprint.ID)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to load participants for announcement",
				slog.Int("sprint_id", sprint.ID), slog.Any("error", err))
		}
		return
	}
	ids := make([]int, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	recipients, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to load users for announcement",
				slog.Int("sprint_id", sprint.ID), slog.Any("error", err))
		}
		return
	}
	go s.announcer.AnnounceSprintActivated(sprint, recipients)
}
