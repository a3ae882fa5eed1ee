package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/designloop/sprint-system/models"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed       = errors.New("validation failed")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrSprintDatesRequired    = errors.New("sprint start and end dates are required")
	ErrInvalidDateOrder       = errors.New("sprint dates are out of order")
	ErrNoChallengesAvailable  = errors.New("no unused challenges available")
	ErrSelfVoteForbidden      = errors.New("voting for your own submission is not allowed")
	ErrRatingOutOfRange       = errors.New("rating must be an integer between 1 and 5")
	ErrNegativeXPAmount       = errors.New("xp amount must be a non-negative integer")
	ErrUnknownXPSource        = errors.New("unknown xp source type")
	ErrExtensionDaysInvalid   = errors.New("extension days must be positive")
	ErrSubmissionLocked       = errors.New("submission can only be changed while in draft")
	ErrAlreadyJoined          = errors.New("user already joined this sprint")
	ErrChallengeTitleRequired = errors.New("challenge title is required")

	// Ошибки конфликтов
	ErrUserEmailConflict     = errors.New("email address is already in use")
	ErrUserNicknameConflict  = errors.New("nickname is already in use")
	ErrChallengeNumberTaken  = errors.New("challenge number is already in use")
	ErrSubmissionExists      = errors.New("user already has a submission for this sprint")
	ErrSprintNumberExhausted = errors.New("could not allocate a unique sprint number")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound        = errors.New("user not found")
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrSprintNotFound      = errors.New("sprint not found")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrVoteNotFound        = errors.New("vote not found")
	ErrParticipantNotFound = errors.New("participant record not found")
)

// SprintOverlapError reports a scheduling conflict with one concrete existing
// sprint, carrying enough detail for the caller to render a precise message.
type SprintOverlapError struct {
	SprintID     int
	SprintNumber int
	StartAt      time.Time
	EndAt        time.Time
}

func (e *SprintOverlapError) Error() string {
	return fmt.Sprintf("candidate dates overlap sprint %d (#%d, %s to %s)",
		e.SprintID, e.SprintNumber,
		e.StartAt.Format(time.RFC3339), e.EndAt.Format(time.RFC3339))
}

// InvalidTransitionError reports both the current status and what the
// operation expected, so the caller can explain exactly what went wrong.
type InvalidTransitionError struct {
	From     models.SprintStatus
	Expected []models.SprintStatus
}

func (e *InvalidTransitionError) Error() string {
	if len(e.Expected) == 1 {
		return fmt.Sprintf("invalid sprint transition: status is %q, expected %q", e.From, e.Expected[0])
	}
	return fmt.Sprintf("invalid sprint transition: status is %q, expected one of %v", e.From, e.Expected)
}
