package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/ballotbox/backend/internal/ledger"
)

type VoteHandler struct {
	ledger *ledger.Ledger
}

func NewVoteHandler(l *ledger.Ledger) *VoteHandler {
	return &VoteHandler{ledger: l}
}

type castVoteRequest struct {
	CandidateID string `json:"candidate_id" binding:"required"`
}

// CastVote records the caller's vote and returns the refreshed results
func (h *VoteHandler) CastVote(c *gin.Context) {
	var input castVoteRequest
	if !bind(c, &input) {
		return
	}

	ctx := c.Request.Context()
	pollID := c.Param("id")

	vote, err := h.ledger.CastVote(ctx, current(c), pollID, input.CandidateID)
	if err != nil {
		fail(c, err)
		return
	}

	results, err := h.ledger.Results(ctx, pollID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Vote recorded successfully",
		"vote":    vote,
		"results": results,
	})
}

// GetVoteStatus tells the caller whether they already voted in the poll
func (h *VoteHandler) GetVoteStatus(c *gin.Context) {
	s := current(c)
	if s == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	voted, err := h.ledger.HasVoted(c.Request.Context(), s.UserID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"has_voted": voted})
}
