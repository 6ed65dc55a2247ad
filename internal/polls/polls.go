package polls

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/logging"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
	"github.com/emilythestrangee/ballotbox/backend/internal/session"
	"github.com/emilythestrangee/ballotbox/backend/internal/store"
)

// DefaultDuration is the voting window given to polls created without an end date.
const DefaultDuration = 7 * 24 * time.Hour

type Repository interface {
	store.PollRepository
	store.CandidateRepository
}

// Notifier is told when a poll is moved to completed.
type Notifier interface {
	PollCompleted(ctx context.Context, poll *models.Poll, results *models.Results) error
}

// ResultSource produces the results attached to completion notices.
type ResultSource interface {
	Results(ctx context.Context, pollID string) (*models.Results, error)
}

type Service struct {
	repo     Repository
	results  ResultSource
	notifier Notifier
	now      func() time.Time
	log      *logrus.Entry
}

func NewService(repo Repository, results ResultSource, notifier Notifier, log logrus.FieldLogger) *Service {
	return &Service{
		repo:     repo,
		results:  results,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logging.Module(log, "polls"),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

func requireAdmin(sess *session.Session) error {
	if sess == nil {
		return apperr.ErrUnauthenticated
	}
	if !sess.IsAdmin() {
		return apperr.ErrForbidden
	}
	return nil
}

func validatePoll(in models.PollInput) error {
	var v apperr.Validation
	v.Require("title", in.Title)
	v.Require("description", in.Description)
	if !in.Status.Valid() {
		v.Add("status", "must be one of scheduled, active, completed")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		v.Add("end_date", "must not be before start_date")
	}
	return v.Err()
}

func (s *Service) CreatePoll(ctx context.Context, sess *session.Session, in models.PollInput) (*models.Poll, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}

	now := s.now()
	if in.Status == "" {
		in.Status = models.StatusScheduled
	}
	if in.StartDate == nil {
		in.StartDate = &now
	}
	if in.EndDate == nil {
		endDate := in.StartDate.Add(DefaultDuration)
		in.EndDate = &endDate
	}
	if err := validatePoll(in); err != nil {
		return nil, err
	}

	poll := &models.Poll{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		StartDate:    in.StartDate.UTC(),
		EndDate:      in.EndDate.UTC(),
		Status:       in.Status,
		CandidateIDs: dedupe(in.CandidateIDs),
		CreatedBy:    sess.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreatePoll(ctx, poll); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"poll_id": poll.ID, "status": poll.Status}).Info("poll created")
	return poll, nil
}

// UpdatePoll applies in over the stored poll. Omitted dates keep their stored
// values; an omitted candidate list keeps the stored list.
func (s *Service) UpdatePoll(ctx context.Context, sess *session.Session, id string, in models.PollInput) (*models.Poll, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}

	poll, err := s.repo.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := poll.Status

	if in.Status == "" {
		in.Status = poll.Status
	}
	if in.StartDate == nil {
		in.StartDate = &poll.StartDate
	}
	if in.EndDate == nil {
		in.EndDate = &poll.EndDate
	}
	if err := validatePoll(in); err != nil {
		return nil, err
	}

	poll.Title = strings.TrimSpace(in.Title)
	poll.Description = strings.TrimSpace(in.Description)
	poll.StartDate = in.StartDate.UTC()
	poll.EndDate = in.EndDate.UTC()
	poll.Status = in.Status
	if in.CandidateIDs != nil {
		poll.CandidateIDs = dedupe(in.CandidateIDs)
	}
	poll.UpdatedAt = s.now()

	if err := s.repo.UpdatePoll(ctx, poll); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"poll_id": poll.ID,
		"from":    previous,
		"to":      poll.Status,
	}).Info("poll updated")

	if previous != models.StatusCompleted && poll.Status == models.StatusCompleted {
		s.announce(ctx, poll)
	}
	return poll, nil
}

// announce never fails the caller; notification problems are only logged.
func (s *Service) announce(ctx context.Context, poll *models.Poll) {
	if s.notifier == nil || s.results == nil {
		return
	}
	entry := s.log.WithField("poll_id", poll.ID)

	results, err := s.results.Results(ctx, poll.ID)
	if err != nil {
		entry.WithError(err).Warn("could not compute results for completion notice")
		return
	}
	if err := s.notifier.PollCompleted(ctx, poll, results); err != nil {
		entry.WithError(err).Warn("completion notice failed")
	}
}

func (s *Service) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	return s.repo.GetPoll(ctx, id)
}

func (s *Service) ListPolls(ctx context.Context, filter models.PollFilter) ([]models.Poll, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		var v apperr.Validation
		v.Add("status", "must be one of scheduled, active, completed")
		return nil, v.Err()
	}
	polls, err := s.repo.ListPolls(ctx, filter)
	if err != nil {
		return nil, err
	}
	if polls == nil {
		polls = []models.Poll{}
	}
	return polls, nil
}

// DeletePoll removes the poll only; its candidates and votes are left intact.
func (s *Service) DeletePoll(ctx context.Context, sess *session.Session, id string) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if err := s.repo.DeletePoll(ctx, id); err != nil {
		return err
	}
	s.log.WithField("poll_id", id).Info("poll deleted")
	return nil
}

func (s *Service) Stats(ctx context.Context, sess *session.Session) (*models.PollStats, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	polls, err := s.repo.ListPolls(ctx, models.PollFilter{})
	if err != nil {
		return nil, err
	}

	stats := &models.PollStats{Total: len(polls), ByStatus: make(map[models.PollStatus]int)}
	for _, status := range models.PollStatuses {
		stats.ByStatus[status] = 0
	}
	for _, p := range polls {
		stats.ByStatus[p.Status]++
	}
	return stats, nil
}

func validateCandidate(in models.CandidateInput) *apperr.Validation {
	var v apperr.Validation
	v.Require("name", in.Name)
	v.Require("biography", in.Biography)
	v.Require("proposals", in.Proposals)
	v.Require("poll_id", in.PollID)

	links := map[string]string{
		"social_links.facebook":  in.SocialLinks.Facebook,
		"social_links.twitter":   in.SocialLinks.Twitter,
		"social_links.instagram": in.SocialLinks.Instagram,
		"social_links.website":   in.SocialLinks.Website,
	}
	for field, link := range links {
		if link != "" && !isHTTPURL(link) {
			v.Add(field, "must be an absolute http(s) URL")
		}
	}
	return &v
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func trimLinks(l models.SocialLinks) models.SocialLinks {
	return models.SocialLinks{
		Facebook:  strings.TrimSpace(l.Facebook),
		Twitter:   strings.TrimSpace(l.Twitter),
		Instagram: strings.TrimSpace(l.Instagram),
		Website:   strings.TrimSpace(l.Website),
	}
}

// CreateCandidate stores the candidate and appends it to its poll's list.
func (s *Service) CreateCandidate(ctx context.Context, sess *session.Session, in models.CandidateInput) (*models.Candidate, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}

	v := validateCandidate(in)
	var poll *models.Poll
	if in.PollID != "" {
		p, err := s.repo.GetPoll(ctx, in.PollID)
		switch {
		case err == nil:
			poll = p
		case apperr.IsNotFound(err):
			v.Add("poll_id", "poll does not exist")
		default:
			return nil, err
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	candidate := &models.Candidate{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Biography:   strings.TrimSpace(in.Biography),
		Proposals:   strings.TrimSpace(in.Proposals),
		SocialLinks: trimLinks(in.SocialLinks),
		PhotoURL:    strings.TrimSpace(in.PhotoURL),
		PollID:      poll.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateCandidate(ctx, candidate); err != nil {
		return nil, err
	}

	poll.CandidateIDs = append(poll.CandidateIDs, candidate.ID)
	poll.UpdatedAt = now
	if err := s.repo.UpdatePoll(ctx, poll); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"candidate_id": candidate.ID, "poll_id": poll.ID}).Info("candidate created")
	return candidate, nil
}

// UpdateCandidate rewrites the candidate's fields. Moving a candidate to a
// different poll adds it to that poll's list; the old poll's list is left
// alone so earlier votes stay attributable.
func (s *Service) UpdateCandidate(ctx context.Context, sess *session.Session, id string, in models.CandidateInput) (*models.Candidate, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}

	candidate, err := s.repo.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.PollID == "" {
		in.PollID = candidate.PollID
	}
	if in.PhotoURL == "" {
		in.PhotoURL = candidate.PhotoURL
	}

	v := validateCandidate(in)
	var poll *models.Poll
	if in.PollID != candidate.PollID {
		p, err := s.repo.GetPoll(ctx, in.PollID)
		switch {
		case err == nil:
			poll = p
		case apperr.IsNotFound(err):
			v.Add("poll_id", "poll does not exist")
		default:
			return nil, err
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	candidate.Name = strings.TrimSpace(in.Name)
	candidate.Biography = strings.TrimSpace(in.Biography)
	candidate.Proposals = strings.TrimSpace(in.Proposals)
	candidate.SocialLinks = trimLinks(in.SocialLinks)
	candidate.PhotoURL = strings.TrimSpace(in.PhotoURL)
	candidate.PollID = in.PollID
	candidate.UpdatedAt = s.now()

	if err := s.repo.UpdateCandidate(ctx, candidate); err != nil {
		return nil, err
	}
	if poll != nil && !poll.HasCandidate(candidate.ID) {
		poll.CandidateIDs = append(poll.CandidateIDs, candidate.ID)
		poll.UpdatedAt = candidate.UpdatedAt
		if err := s.repo.UpdatePoll(ctx, poll); err != nil {
			return nil, err
		}
	}
	return candidate, nil
}

// SetPhoto records an uploaded photo URL on the candidate.
func (s *Service) SetPhoto(ctx context.Context, sess *session.Session, id, photoURL string) (*models.Candidate, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	candidate, err := s.repo.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	candidate.PhotoURL = photoURL
	candidate.UpdatedAt = s.now()
	if err := s.repo.UpdateCandidate(ctx, candidate); err != nil {
		return nil, err
	}
	return candidate, nil
}

func (s *Service) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	return s.repo.GetCandidate(ctx, id)
}

func (s *Service) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	candidates, err := s.repo.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	return candidates, nil
}

// CandidatesForPoll returns the poll's candidates: those whose poll_id points
// at it followed by any listed in its candidate_ids that live elsewhere.
func (s *Service) CandidatesForPoll(ctx context.Context, pollID string) ([]models.Candidate, error) {
	poll, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.repo.ListCandidatesByPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		seen[c.ID] = true
	}
	for _, id := range poll.CandidateIDs {
		if seen[id] {
			continue
		}
		c, err := s.repo.GetCandidate(ctx, id)
		switch {
		case err == nil:
			candidates = append(candidates, *c)
			seen[id] = true
		case apperr.IsNotFound(err):
		default:
			return nil, err
		}
	}
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	return candidates, nil
}

// DeleteCandidate removes the candidate. Votes already cast for it remain in
// the ledger.
func (s *Service) DeleteCandidate(ctx context.Context, sess *session.Session, id string) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if err := s.repo.DeleteCandidate(ctx, id); err != nil {
		return err
	}
	s.log.WithField("candidate_id", id).Info("candidate deleted")
	return nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
