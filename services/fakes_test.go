package services

import (
	"context"
	"sort"
	"time"

	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/repositories"
)

// In-memory repository fakes. They mirror the conditional-update semantics of
// the postgres implementations, including the unique-constraint sentinel
// errors, so service behavior under races can be exercised without a database.

type fakeSprintRepo struct {
	seq     int
	sprints map[int]*models.Sprint
}

func newFakeSprintRepo() *fakeSprintRepo {
	return &fakeSprintRepo{sprints: make(map[int]*models.Sprint)}
}

func (r *fakeSprintRepo) Create(_ context.Context, s *models.Sprint) error {
	for _, existing := range r.sprints {
		if existing.SprintNumber == s.SprintNumber {
			return repositories.ErrSprintNumberConflict
		}
	}
	r.seq++
	s.ID = r.seq
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	clone := *s
	r.sprints[s.ID] = &clone
	return nil
}

func (r *fakeSprintRepo) GetByID(_ context.Context, id int) (*models.Sprint, error) {
	s, ok := r.sprints[id]
	if !ok {
		return nil, repositories.ErrSprintNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *fakeSprintRepo) List(_ context.Context, filter repositories.ListSprintsFilter) ([]models.Sprint, error) {
	var out []models.Sprint
	for _, s := range r.sprints {
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if s.Status == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSprintRepo) Activate(_ context.Context, id int, startAt time.Time, actorID int) (bool, error) {
	s, ok := r.sprints[id]
	if !ok {
		return false, repositories.ErrSprintNotFound
	}
	if s.Status != models.StatusScheduled {
		return false, nil
	}
	s.Status = models.StatusActive
	if s.StartAt == nil {
		s.StartAt = &startAt
	}
	s.StartedByID = &actorID
	return true, nil
}

func (r *fakeSprintRepo) AdvanceStatus(_ context.Context, id int, from, to models.SprintStatus, endedByID *int) (bool, error) {
	s, ok := r.sprints[id]
	if !ok {
		return false, repositories.ErrSprintNotFound
	}
	if s.Status != from {
		return false, nil
	}
	s.Status = to
	if endedByID != nil {
		s.EndedByID = endedByID
	}
	return true, nil
}

func (r *fakeSprintRepo) Cancel(_ context.Context, id int, actorID int) (bool, error) {
	s, ok := r.sprints[id]
	if !ok {
		return false, repositories.ErrSprintNotFound
	}
	if s.Status != models.StatusScheduled && s.Status != models.StatusActive {
		return false, nil
	}
	s.Status = models.StatusCancelled
	s.EndedByID = &actorID
	return true, nil
}

func (r *fakeSprintRepo) ExtendDates(_ context.Context, id int, days int) (bool, error) {
	s, ok := r.sprints[id]
	if !ok {
		return false, repositories.ErrSprintNotFound
	}
	if s.Status != models.StatusActive && s.Status != models.StatusVoting {
		return false, nil
	}
	if s.EndAt != nil {
		extended := s.EndAt.AddDate(0, 0, days)
		s.EndAt = &extended
	}
	if s.VotingEndAt != nil {
		extended := s.VotingEndAt.AddDate(0, 0, days)
		s.VotingEndAt = &extended
	}
	return true, nil
}

func (r *fakeSprintRepo) ListDueForAdvance(_ context.Context, now time.Time) ([]*models.Sprint, error) {
	var out []*models.Sprint
	for _, s := range r.sprints {
		var deadline *time.Time
		switch s.Status {
		case models.StatusActive:
			deadline = s.EndAt
		case models.StatusVoting:
			deadline = s.VotingEndAt
		case models.StatusRetro:
			deadline = s.RetroDay
		default:
			continue
		}
		if deadline != nil && !deadline.After(now) {
			clone := *s
			out = append(out, &clone)
		}
	}
	return out, nil
}

type fakeChallengeRepo struct {
	seq        int
	challenges map[int]*models.Challenge
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{challenges: make(map[int]*models.Challenge)}
}

func (r *fakeChallengeRepo) add(title string) *models.Challenge {
	r.seq++
	c := &models.Challenge{ID: r.seq, ChallengeNumber: r.seq, Title: title}
	r.challenges[c.ID] = c
	return c
}

func (r *fakeChallengeRepo) Create(_ context.Context, c *models.Challenge) error {
	for _, existing := range r.challenges {
		if existing.ChallengeNumber == c.ChallengeNumber {
			return repositories.ErrChallengeNumberConflict
		}
	}
	r.seq++
	c.ID = r.seq
	clone := *c
	r.challenges[c.ID] = &clone
	return nil
}

func (r *fakeChallengeRepo) GetByID(_ context.Context, id int) (*models.Challenge, error) {
	c, ok := r.challenges[id]
	if !ok {
		return nil, repositories.ErrChallengeNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *fakeChallengeRepo) List(_ context.Context) ([]models.Challenge, error) {
	out := make([]models.Challenge, 0, len(r.challenges))
	for _, c := range r.challenges {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeChallengeRepo) Update(_ context.Context, c *models.Challenge) error {
	if _, ok := r.challenges[c.ID]; !ok {
		return repositories.ErrChallengeNotFound
	}
	clone := *c
	r.challenges[c.ID] = &clone
	return nil
}

func (r *fakeChallengeRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.challenges[id]; !ok {
		return repositories.ErrChallengeNotFound
	}
	delete(r.challenges, id)
	return nil
}

type fakeParticipantRepo struct {
	seq          int
	participants map[int]*models.SprintParticipant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{participants: make(map[int]*models.SprintParticipant)}
}

func (r *fakeParticipantRepo) Create(_ context.Context, p *models.SprintParticipant) error {
	for _, existing := range r.participants {
		if existing.SprintID == p.SprintID && existing.UserID == p.UserID {
			return repositories.ErrParticipantConflict
		}
	}
	r.seq++
	p.ID = r.seq
	p.JoinedAt = time.Now()
	clone := *p
	r.participants[p.ID] = &clone
	return nil
}

func (r *fakeParticipantRepo) FindByID(_ context.Context, id int) (*models.SprintParticipant, error) {
	p, ok := r.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeParticipantRepo) FindBySprintAndUser(_ context.Context, sprintID, userID int) (*models.SprintParticipant, error) {
	for _, p := range r.participants {
		if p.SprintID == sprintID && p.UserID == userID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) ListBySprint(_ context.Context, sprintID int) ([]*models.SprintParticipant, error) {
	var out []*models.SprintParticipant
	for _, p := range r.participants {
		if p.SprintID == sprintID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) ListByUser(_ context.Context, userID int) ([]*models.SprintParticipant, error) {
	var out []*models.SprintParticipant
	for _, p := range r.participants {
		if p.UserID == userID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.participants[id]; !ok {
		return repositories.ErrParticipantNotFound
	}
	delete(r.participants, id)
	return nil
}

type fakeSubmissionRepo struct {
	seq         int
	submissions map[int]*models.Submission
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{submissions: make(map[int]*models.Submission)}
}

func (r *fakeSubmissionRepo) Create(_ context.Context, s *models.Submission) error {
	for _, existing := range r.submissions {
		if existing.SprintID == s.SprintID && existing.UserID == s.UserID {
			return repositories.ErrSubmissionConflict
		}
	}
	r.seq++
	s.ID = r.seq
	clone := *s
	r.submissions[s.ID] = &clone
	return nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id int) (*models.Submission, error) {
	s, ok := r.submissions[id]
	if !ok {
		return nil, repositories.ErrSubmissionNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *fakeSubmissionRepo) ListBySprint(_ context.Context, sprintID int) ([]*models.Submission, error) {
	var out []*models.Submission
	for _, s := range r.submissions {
		if s.SprintID == sprintID {
			clone := *s
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) FindBySprintAndUser(_ context.Context, sprintID, userID int) (*models.Submission, error) {
	for _, s := range r.submissions {
		if s.SprintID == sprintID && s.UserID == userID {
			clone := *s
			return &clone, nil
		}
	}
	return nil, repositories.ErrSubmissionNotFound
}

func (r *fakeSubmissionRepo) UpdateDraft(_ context.Context, s *models.Submission) error {
	existing, ok := r.submissions[s.ID]
	if !ok {
		return repositories.ErrSubmissionNotFound
	}
	if existing.Status != models.SubmissionDraft {
		return repositories.ErrSubmissionAlreadyLocked
	}
	existing.Title = s.Title
	existing.Description = s.Description
	return nil
}

func (r *fakeSubmissionRepo) MarkSubmitted(_ context.Context, id int, submittedAt time.Time) (bool, error) {
	s, ok := r.submissions[id]
	if !ok {
		return false, repositories.ErrSubmissionNotFound
	}
	if s.Status != models.SubmissionDraft {
		return false, nil
	}
	s.Status = models.SubmissionSubmitted
	s.SubmittedAt = &submittedAt
	return true, nil
}

func (r *fakeSubmissionRepo) UpdateAssetKey(_ context.Context, id int, assetKey *string) error {
	s, ok := r.submissions[id]
	if !ok {
		return repositories.ErrSubmissionNotFound
	}
	s.AssetKey = assetKey
	return nil
}

func (r *fakeSubmissionRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.submissions[id]; !ok {
		return repositories.ErrSubmissionNotFound
	}
	delete(r.submissions, id)
	return nil
}

type fakeVoteRepo struct {
	seq   int
	votes map[int]*models.Vote

	// createConflictOnce forces the next Create to fail with ErrVoteConflict
	// after silently inserting the row, simulating a lost insert race.
	createConflictOnce bool
}

func newFakeVoteRepo() *fakeVoteRepo {
	return &fakeVoteRepo{votes: make(map[int]*models.Vote)}
}

func (r *fakeVoteRepo) insert(v *models.Vote) {
	r.seq++
	v.ID = r.seq
	clone := *v
	r.votes[v.ID] = &clone
}

func (r *fakeVoteRepo) Create(_ context.Context, v *models.Vote) error {
	for _, existing := range r.votes {
		if existing.SubmissionID == v.SubmissionID && existing.VoterID == v.VoterID {
			return repositories.ErrVoteConflict
		}
	}
	if r.createConflictOnce {
		r.createConflictOnce = false
		r.insert(v)
		return repositories.ErrVoteConflict
	}
	r.insert(v)
	return nil
}

func (r *fakeVoteRepo) GetByID(_ context.Context, id int) (*models.Vote, error) {
	v, ok := r.votes[id]
	if !ok {
		return nil, repositories.ErrVoteNotFound
	}
	clone := *v
	return &clone, nil
}

func (r *fakeVoteRepo) FindBySubmissionAndVoter(_ context.Context, submissionID, voterID int) (*models.Vote, error) {
	for _, v := range r.votes {
		if v.SubmissionID == submissionID && v.VoterID == voterID {
			clone := *v
			return &clone, nil
		}
	}
	return nil, repositories.ErrVoteNotFound
}

func (r *fakeVoteRepo) ListBySubmission(_ context.Context, submissionID int) ([]*models.Vote, error) {
	var out []*models.Vote
	for _, v := range r.votes {
		if v.SubmissionID == submissionID {
			clone := *v
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeVoteRepo) UpdateRatings(_ context.Context, v *models.Vote) error {
	existing, ok := r.votes[v.ID]
	if !ok {
		return repositories.ErrVoteNotFound
	}
	existing.RatingClarity = v.RatingClarity
	existing.RatingUsability = v.RatingUsability
	existing.RatingVisualCraft = v.RatingVisualCraft
	existing.RatingOriginality = v.RatingOriginality
	return nil
}

func (r *fakeVoteRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.votes[id]; !ok {
		return repositories.ErrVoteNotFound
	}
	delete(r.votes, id)
	return nil
}

type fakeXPEventRepo struct {
	seq    int
	events []*models.XPEvent
}

func newFakeXPEventRepo() *fakeXPEventRepo {
	return &fakeXPEventRepo{}
}

func (r *fakeXPEventRepo) Create(_ context.Context, e *models.XPEvent) error {
	r.seq++
	e.ID = r.seq
	e.CreatedAt = time.Now()
	clone := *e
	r.events = append(r.events, &clone)
	return nil
}

func (r *fakeXPEventRepo) List(_ context.Context, filter repositories.ListXPEventsFilter) ([]*models.XPEvent, error) {
	var out []*models.XPEvent
	for _, e := range r.events {
		if filter.UserID != nil && e.UserID != *filter.UserID {
			continue
		}
		if filter.SprintID != nil && e.SprintID != *filter.SprintID {
			continue
		}
		if filter.Source != nil && e.SourceType != *filter.Source {
			continue
		}
		clone := *e
		out = append(out, &clone)
	}
	return out, nil
}

type fakeUserRepo struct {
	seq   int
	users map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User)}
}

func (r *fakeUserRepo) add(firstName string) *models.User {
	r.seq++
	u := &models.User{ID: r.seq, FirstName: firstName, Role: models.RoleMember}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	r.seq++
	u.ID = r.seq
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []int) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			clone := *u
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *models.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *fakeUserRepo) UpdateAvatarKey(_ context.Context, userID int, avatarKey *string) error {
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.AvatarKey = avatarKey
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}
