package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/ledger"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
	"github.com/emilythestrangee/ballotbox/backend/internal/polls"
)

type PollHandler struct {
	polls  *polls.Service
	ledger *ledger.Ledger
	now    func() time.Time
}

func NewPollHandler(svc *polls.Service, l *ledger.Ledger) *PollHandler {
	return &PollHandler{polls: svc, ledger: l, now: func() time.Time { return time.Now().UTC() }}
}

func parseFilter(c *gin.Context, now time.Time) (models.PollFilter, error) {
	filter := models.PollFilter{
		Status: models.PollStatus(c.Query("status")),
		Query:  c.Query("q"),
	}
	if raw := c.Query("votable"); raw != "" {
		votable, err := strconv.ParseBool(raw)
		if err != nil {
			var v apperr.Validation
			v.Add("votable", "must be true or false")
			return filter, v.Err()
		}
		if votable {
			filter.VotableAt = &now
		}
	}
	return filter, nil
}

// GetPolls lists polls, optionally filtered by ?status=, ?q= and ?votable=
func (h *PollHandler) GetPolls(c *gin.Context) {
	filter, err := parseFilter(c, h.now())
	if err != nil {
		fail(c, err)
		return
	}

	list, err := h.polls.ListPolls(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetPoll returns a poll with its candidates and current results
func (h *PollHandler) GetPoll(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	poll, err := h.polls.GetPoll(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	candidates, err := h.polls.CandidatesForPoll(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	results, err := h.ledger.Results(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}

	body := gin.H{
		"poll":       poll,
		"candidates": candidates,
		"results":    results,
		"votable":    poll.IsVotable(h.now()),
	}
	if s := current(c); s != nil {
		voted, err := h.ledger.HasVoted(ctx, s.UserID, id)
		if err != nil {
			fail(c, err)
			return
		}
		body["has_voted"] = voted
	}
	c.JSON(http.StatusOK, body)
}

// GetPollCandidates lists the candidates standing in a poll
func (h *PollHandler) GetPollCandidates(c *gin.Context) {
	candidates, err := h.polls.CandidatesForPoll(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, candidates)
}

// GetResults returns the tally with per-candidate percentages
func (h *PollHandler) GetResults(c *gin.Context) {
	results, err := h.ledger.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// CreatePoll creates a new poll (ADMIN)
func (h *PollHandler) CreatePoll(c *gin.Context) {
	var input models.PollInput
	if !bind(c, &input) {
		return
	}

	poll, err := h.polls.CreatePoll(c.Request.Context(), current(c), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, poll)
}

// UpdatePoll updates an existing poll (ADMIN)
func (h *PollHandler) UpdatePoll(c *gin.Context) {
	var input models.PollInput
	if !bind(c, &input) {
		return
	}

	poll, err := h.polls.UpdatePoll(c.Request.Context(), current(c), c.Param("id"), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

// DeletePoll deletes a poll; its candidates and votes are kept (ADMIN)
func (h *PollHandler) DeletePoll(c *gin.Context) {
	if err := h.polls.DeletePoll(c.Request.Context(), current(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Poll deleted successfully"})
}

// GetVotes lists every vote cast in a poll (ADMIN)
func (h *PollHandler) GetVotes(c *gin.Context) {
	votes, err := h.ledger.Votes(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if votes == nil {
		votes = []models.Vote{}
	}
	c.JSON(http.StatusOK, votes)
}

// GetStats returns poll counts per status (ADMIN)
func (h *PollHandler) GetStats(c *gin.Context) {
	stats, err := h.polls.Stats(c.Request.Context(), current(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
