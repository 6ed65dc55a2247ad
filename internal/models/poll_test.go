package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollIsVotable(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	tests := []struct {
		name   string
		poll   Poll
		expect bool
	}{
		{"active inside window", Poll{Status: StatusActive, StartDate: yesterday, EndDate: tomorrow}, true},
		{"active on start boundary", Poll{Status: StatusActive, StartDate: now, EndDate: tomorrow}, true},
		{"active on end boundary", Poll{Status: StatusActive, StartDate: yesterday, EndDate: now}, true},
		{"active before window", Poll{Status: StatusActive, StartDate: tomorrow, EndDate: tomorrow.Add(time.Hour)}, false},
		{"active after window", Poll{Status: StatusActive, StartDate: yesterday.Add(-time.Hour), EndDate: yesterday}, false},
		{"scheduled with past start", Poll{Status: StatusScheduled, StartDate: yesterday, EndDate: tomorrow}, false},
		{"completed inside window", Poll{Status: StatusCompleted, StartDate: yesterday, EndDate: tomorrow}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.poll.IsVotable(now))
		})
	}
}

func TestPollFilterMatch(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	poll := &Poll{
		Title:       "City Council 2026",
		Description: "Elect the next council",
		Status:      StatusActive,
		StartDate:   now.Add(-time.Hour),
		EndDate:     now.Add(time.Hour),
	}
	later := now.Add(2 * time.Hour)

	assert.True(t, PollFilter{}.Match(poll))
	assert.True(t, PollFilter{Status: StatusActive}.Match(poll))
	assert.False(t, PollFilter{Status: StatusCompleted}.Match(poll))
	assert.True(t, PollFilter{Query: "council"}.Match(poll))
	assert.True(t, PollFilter{Query: "NEXT"}.Match(poll))
	assert.False(t, PollFilter{Query: "mayor"}.Match(poll))
	assert.True(t, PollFilter{VotableAt: &now}.Match(poll))
	assert.False(t, PollFilter{VotableAt: &later}.Match(poll))
}

func TestPollStatusValid(t *testing.T) {
	for _, s := range PollStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, PollStatus("open").Valid())
	assert.False(t, PollStatus("").Valid())
}

func TestTallyAndPercentage(t *testing.T) {
	tally := Tally{"a": 2, "b": 1}
	assert.Equal(t, 3, tally.Total())
	assert.Equal(t, 0, Tally{}.Total())

	assert.Equal(t, 66.7, Percentage(2, 3))
	assert.Equal(t, 33.3, Percentage(1, 3))
	assert.Equal(t, 100.0, Percentage(4, 4))
	assert.Equal(t, 0.0, Percentage(0, 0))
}
