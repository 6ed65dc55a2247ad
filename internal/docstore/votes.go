package docstore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

type voteDoc struct {
	ID          string    `firestore:"id"`
	VoterID     string    `firestore:"voter_id"`
	PollID      string    `firestore:"poll_id"`
	CandidateID string    `firestore:"candidate_id"`
	CreatedAt   time.Time `firestore:"created_at"`
}

// VoteKey is the document id that makes (poll, voter) unique.
func VoteKey(pollID, voterID string) string {
	return pollID + "_" + voterID
}

func (s *Store) InsertVote(ctx context.Context, vote *models.Vote) error {
	ref := s.client.Collection(votesCollection).Doc(VoteKey(vote.PollID, vote.VoterID))
	_, err := ref.Create(ctx, voteDoc{
		ID:          vote.ID,
		VoterID:     vote.VoterID,
		PollID:      vote.PollID,
		CandidateID: vote.CandidateID,
		CreatedAt:   vote.CreatedAt,
	})
	if isAlreadyExists(err) {
		return apperr.ErrAlreadyVoted
	}
	return translate(err, "insert vote")
}

func (s *Store) HasVoted(ctx context.Context, voterID, pollID string) (bool, error) {
	_, err := s.client.Collection(votesCollection).Doc(VoteKey(pollID, voterID)).Get(ctx)
	switch err := translate(err, "check vote"); {
	case err == nil:
		return true, nil
	case apperr.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) TallyVotes(ctx context.Context, pollID string) (models.Tally, error) {
	query := s.client.Collection(votesCollection).
		Where("poll_id", "==", pollID).
		Select("candidate_id")

	tally := make(models.Tally)
	err := collect(query.Documents(ctx), func(snap *firestore.DocumentSnapshot) error {
		id, err := snap.DataAt("candidate_id")
		if err != nil {
			return err
		}
		if candidateID, ok := id.(string); ok {
			tally[candidateID]++
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "tally votes")
	}
	return tally, nil
}

func (s *Store) ListVotes(ctx context.Context, pollID string) ([]models.Vote, error) {
	query := s.client.Collection(votesCollection).Where("poll_id", "==", pollID)

	var votes []models.Vote
	err := collect(query.Documents(ctx), func(snap *firestore.DocumentSnapshot) error {
		var doc voteDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		votes = append(votes, models.Vote{
			ID:          doc.ID,
			VoterID:     doc.VoterID,
			PollID:      doc.PollID,
			CandidateID: doc.CandidateID,
			CreatedAt:   doc.CreatedAt.UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, translate(err, "list votes")
	}

	sort.Slice(votes, func(i, j int) bool {
		return votes[i].CreatedAt.Before(votes[j].CreatedAt)
	})
	return votes, nil
}
