package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/ballotbox/backend/internal/accounts"
	"github.com/emilythestrangee/ballotbox/backend/internal/ledger"
	"github.com/emilythestrangee/ballotbox/backend/internal/middleware"
	"github.com/emilythestrangee/ballotbox/backend/internal/photos"
	"github.com/emilythestrangee/ballotbox/backend/internal/polls"
	"github.com/emilythestrangee/ballotbox/backend/internal/session"
	"github.com/emilythestrangee/ballotbox/backend/internal/store"
)

// Handler combines all handler types
type Handler struct {
	Auth      *AuthHandler
	Poll      *PollHandler
	Candidate *CandidateHandler
	Vote      *VoteHandler
	User      *UserHandler

	store store.Store
}

type Deps struct {
	Store    store.Store
	Accounts *accounts.Service
	Polls    *polls.Service
	Ledger   *ledger.Ledger
	Photos   *photos.Uploader
	// PhotoMaxBytes caps multipart uploads before they are read into memory.
	PhotoMaxBytes int64
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(d Deps) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(d.Accounts),
		Poll:      NewPollHandler(d.Polls, d.Ledger),
		Candidate: NewCandidateHandler(d.Polls, d.Photos, d.PhotoMaxBytes),
		Vote:      NewVoteHandler(d.Ledger),
		User:      NewUserHandler(d.Accounts),
		store:     d.Store,
	}
}

// Health reports the store status; 503 when it is down.
func (h *Handler) Health(c *gin.Context) {
	stats := h.store.Health(c.Request.Context())
	code := http.StatusOK
	if stats["status"] != "up" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, stats)
}

func fail(c *gin.Context, err error) {
	middleware.Abort(c, err)
}

func bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func current(c *gin.Context) *session.Session {
	return session.FromContext(c.Request.Context())
}
