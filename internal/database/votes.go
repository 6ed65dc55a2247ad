package database

import (
	"context"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

// InsertVote relies on idx_votes_voter_poll; there is no existence check first.
func (d *Database) InsertVote(ctx context.Context, vote *models.Vote) error {
	err := d.db.WithContext(ctx).Create(vote).Error
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return apperr.ErrAlreadyVoted
	default:
		return translate(err, "insert vote")
	}
}

func (d *Database) HasVoted(ctx context.Context, voterID, pollID string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("voter_id = ? AND poll_id = ?", voterID, pollID).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "check vote")
	}
	return count > 0, nil
}

type tallyRow struct {
	CandidateID string
	Count       int
}

func (d *Database) TallyVotes(ctx context.Context, pollID string) (models.Tally, error) {
	var rows []tallyRow
	err := d.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("candidate_id, COUNT(*) AS count").
		Where("poll_id = ?", pollID).
		Group("candidate_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "tally votes")
	}

	tally := make(models.Tally, len(rows))
	for _, r := range rows {
		tally[r.CandidateID] = r.Count
	}
	return tally, nil
}

func (d *Database) ListVotes(ctx context.Context, pollID string) ([]models.Vote, error) {
	var votes []models.Vote
	err := d.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("created_at ASC").
		Find(&votes).Error
	if err != nil {
		return nil, translate(err, "list votes")
	}
	return votes, nil
}
