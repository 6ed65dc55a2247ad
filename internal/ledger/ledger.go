// Package ledger records votes and aggregates them into tallies.
//
// The ledger never checks for an existing vote before inserting; the
// (voter, poll) uniqueness rule lives in the store, so concurrent
// submissions for one pair produce exactly one Vote.
package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/logging"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
	"github.com/emilythestrangee/ballotbox/backend/internal/session"
	"github.com/emilythestrangee/ballotbox/backend/internal/store"
)

type Repository interface {
	store.PollRepository
	store.CandidateRepository
	store.VoteRepository
}

type Ledger struct {
	repo Repository
	now  func() time.Time
	log  *logrus.Entry
}

func New(repo Repository, log logrus.FieldLogger) *Ledger {
	return &Ledger{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
		log:  logging.Module(log, "ledger"),
	}
}

// WithClock replaces the clock used for the votable check and vote timestamps.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	cp := *l
	cp.now = now
	return &cp
}

// CastVote records the caller's vote for candidateID in pollID.
func (l *Ledger) CastVote(ctx context.Context, s *session.Session, pollID, candidateID string) (*models.Vote, error) {
	if s == nil || s.UserID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	if !s.CanVote() {
		return nil, apperr.ErrForbidden
	}

	poll, err := l.repo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, errors.Wrapf(err, "poll %s", pollID)
	}

	now := l.now()
	if !poll.IsVotable(now) {
		return nil, apperr.ErrPollNotVotable
	}

	candidate, err := l.repo.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, errors.Wrapf(err, "candidate %s", candidateID)
	}
	if candidate.PollID != poll.ID && !poll.HasCandidate(candidate.ID) {
		var v apperr.Validation
		v.Add("candidate_id", "candidate does not belong to this poll")
		return nil, v.Err()
	}

	vote := &models.Vote{
		ID:          uuid.NewString(),
		VoterID:     s.UserID,
		PollID:      poll.ID,
		CandidateID: candidate.ID,
		CreatedAt:   now,
	}
	if err := l.repo.InsertVote(ctx, vote); err != nil {
		if errors.Is(err, apperr.ErrAlreadyVoted) {
			l.log.WithFields(logrus.Fields{
				"poll_id":  poll.ID,
				"voter_id": s.UserID,
			}).Info("duplicate vote rejected")
		}
		return nil, err
	}

	l.log.WithFields(logrus.Fields{
		"poll_id":      poll.ID,
		"candidate_id": candidate.ID,
		"voter_id":     s.UserID,
	}).Info("vote cast")

	return vote, nil
}

func (l *Ledger) Tally(ctx context.Context, pollID string) (models.Tally, error) {
	return l.repo.TallyVotes(ctx, pollID)
}

// HasVoted reports whether voterID already voted in an existing poll.
func (l *Ledger) HasVoted(ctx context.Context, voterID, pollID string) (bool, error) {
	if _, err := l.repo.GetPoll(ctx, pollID); err != nil {
		return false, err
	}
	return l.repo.HasVoted(ctx, voterID, pollID)
}

func (l *Ledger) Votes(ctx context.Context, pollID string) ([]models.Vote, error) {
	if _, err := l.repo.GetPoll(ctx, pollID); err != nil {
		return nil, err
	}
	return l.repo.ListVotes(ctx, pollID)
}

// Results joins the tally with the poll's candidates. The poll itself must
// exist; candidates that were deleted after receiving votes are kept and
// flagged.
func (l *Ledger) Results(ctx context.Context, pollID string) (*models.Results, error) {
	poll, err := l.repo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	tally, err := l.repo.TallyVotes(ctx, pollID)
	if err != nil {
		return nil, err
	}
	candidates, err := l.repo.ListCandidatesByPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(candidates))
	for _, c := range candidates {
		names[c.ID] = c.Name
	}
	for _, id := range poll.CandidateIDs {
		if _, ok := names[id]; ok {
			continue
		}
		c, err := l.repo.GetCandidate(ctx, id)
		switch {
		case err == nil:
			names[id] = c.Name
		case errors.Is(err, apperr.ErrNotFound):
		default:
			return nil, err
		}
	}

	return Summarize(pollID, tally, names), nil
}

// Summarize builds Results from a tally and the known candidate names.
// Every named candidate appears; tally keys without a name are marked deleted.
func Summarize(pollID string, tally models.Tally, names map[string]string) *models.Results {
	total := tally.Total()
	res := &models.Results{PollID: pollID, TotalVotes: total}

	for id, name := range names {
		n := tally[id]
		res.Candidates = append(res.Candidates, models.CandidateResult{
			CandidateID: id,
			Name:        name,
			Votes:       n,
			Percentage:  models.Percentage(n, total),
		})
	}
	for id, n := range tally {
		if _, ok := names[id]; ok {
			continue
		}
		res.Candidates = append(res.Candidates, models.CandidateResult{
			CandidateID: id,
			Votes:       n,
			Percentage:  models.Percentage(n, total),
			Deleted:     true,
		})
	}

	sort.Slice(res.Candidates, func(i, j int) bool {
		a, b := res.Candidates[i], res.Candidates[j]
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.CandidateID < b.CandidateID
	})
	if res.Candidates == nil {
		res.Candidates = []models.CandidateResult{}
	}
	return res
}
