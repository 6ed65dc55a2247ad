// Package store declares the persistence contracts shared by the SQL and
// document-store backends.
//
// Implementations translate their driver errors into the apperr taxonomy:
// a missing record is apperr.ErrNotFound, a second vote for the same
// (voter, poll) pair is apperr.ErrAlreadyVoted, a duplicate user email is
// apperr.ErrConflict, and every other failure is apperr.ErrBackendUnavailable.
package store

import (
	"context"

	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

type PollRepository interface {
	CreatePoll(ctx context.Context, poll *models.Poll) error
	UpdatePoll(ctx context.Context, poll *models.Poll) error
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	ListPolls(ctx context.Context, filter models.PollFilter) ([]models.Poll, error)
	DeletePoll(ctx context.Context, id string) error
}

type CandidateRepository interface {
	CreateCandidate(ctx context.Context, candidate *models.Candidate) error
	UpdateCandidate(ctx context.Context, candidate *models.Candidate) error
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	ListCandidates(ctx context.Context) ([]models.Candidate, error)
	ListCandidatesByPoll(ctx context.Context, pollID string) ([]models.Candidate, error)
	DeleteCandidate(ctx context.Context, id string) error
}

// VoteRepository is append-only.
type VoteRepository interface {
	// InsertVote stores vote atomically with respect to the (voter, poll)
	// uniqueness rule; it never relies on a prior existence query.
	InsertVote(ctx context.Context, vote *models.Vote) error
	HasVoted(ctx context.Context, voterID, pollID string) (bool, error)
	TallyVotes(ctx context.Context, pollID string) (models.Tally, error)
	ListVotes(ctx context.Context, pollID string) ([]models.Vote, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type Store interface {
	PollRepository
	CandidateRepository
	VoteRepository
	UserRepository

	// Health returns backend-specific status information; "status" is
	// always present and is either "up" or "down".
	Health(ctx context.Context) map[string]string
	Close() error
}
