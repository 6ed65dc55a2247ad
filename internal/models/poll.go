package models

import (
	"strings"
	"time"
)

type PollStatus string

const (
	StatusScheduled PollStatus = "scheduled"
	StatusActive    PollStatus = "active"
	StatusCompleted PollStatus = "completed"
)

// PollStatuses lists every status in display order.
var PollStatuses = []PollStatus{StatusScheduled, StatusActive, StatusCompleted}

func (s PollStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusActive, StatusCompleted:
		return true
	}
	return false
}

type Poll struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title        string     `gorm:"not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	StartDate    time.Time  `gorm:"not null" json:"start_date"`
	EndDate      time.Time  `gorm:"not null" json:"end_date"`
	Status       PollStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	CandidateIDs []string   `gorm:"serializer:json;type:text" json:"candidate_ids"`
	CreatedBy    string     `gorm:"type:varchar(36)" json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsVotable reports whether new votes are accepted at now. The stored status
// is authoritative; the date window is an additional gate, inclusive on both ends.
func (p *Poll) IsVotable(now time.Time) bool {
	if p.Status != StatusActive {
		return false
	}
	return !now.Before(p.StartDate) && !now.After(p.EndDate)
}

func (p *Poll) HasCandidate(candidateID string) bool {
	for _, id := range p.CandidateIDs {
		if id == candidateID {
			return true
		}
	}
	return false
}

// PollFilter narrows ListPolls. Zero value matches everything.
type PollFilter struct {
	Status PollStatus
	Query  string
	// VotableAt keeps only polls votable at that instant when non-nil.
	VotableAt *time.Time
}

func (f PollFilter) Match(p *Poll) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if f.VotableAt != nil && !p.IsVotable(*f.VotableAt) {
		return false
	}
	return true
}

// PollStats backs the admin dashboard.
type PollStats struct {
	Total    int                `json:"total"`
	ByStatus map[PollStatus]int `json:"by_status"`
}

type PollInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	Status       PollStatus `json:"status"`
	CandidateIDs []string   `json:"candidate_ids"`
}
