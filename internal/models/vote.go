package models

import (
	"math"
	"time"
)

// Vote binds one voter to one candidate within one poll. Rows are never
// updated or deleted; (voter_id, poll_id) is unique at the storage layer.
type Vote struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	VoterID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_votes_voter_poll,priority:1" json:"voter_id"`
	PollID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_votes_voter_poll,priority:2;index:idx_votes_poll" json:"poll_id"`
	CandidateID string    `gorm:"type:varchar(36);not null" json:"candidate_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Tally maps candidate id to vote count. Candidates without votes are absent.
type Tally map[string]int

func (t Tally) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

type CandidateResult struct {
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name"`
	Votes       int     `json:"votes"`
	Percentage  float64 `json:"percentage"`
	// Deleted marks votes whose candidate no longer resolves.
	Deleted bool `json:"deleted,omitempty"`
}

type Results struct {
	PollID     string            `json:"poll_id"`
	TotalVotes int               `json:"total_votes"`
	Candidates []CandidateResult `json:"candidates"`
}

// Percentage of part over total, rounded to one decimal.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(total)) / 10
}
