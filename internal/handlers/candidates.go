package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
	"github.com/emilythestrangee/ballotbox/backend/internal/photos"
	"github.com/emilythestrangee/ballotbox/backend/internal/polls"
)

type CandidateHandler struct {
	polls    *polls.Service
	photos   *photos.Uploader
	maxBytes int64
}

func NewCandidateHandler(svc *polls.Service, up *photos.Uploader, maxBytes int64) *CandidateHandler {
	return &CandidateHandler{polls: svc, photos: up, maxBytes: maxBytes}
}

// GetCandidate returns a single candidate by ID
func (h *CandidateHandler) GetCandidate(c *gin.Context) {
	candidate, err := h.polls.GetCandidate(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// GetCandidates lists every candidate across polls (ADMIN)
func (h *CandidateHandler) GetCandidates(c *gin.Context) {
	candidates, err := h.polls.ListCandidates(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, candidates)
}

// CreateCandidate creates a candidate and adds it to its poll (ADMIN)
func (h *CandidateHandler) CreateCandidate(c *gin.Context) {
	var input models.CandidateInput
	if !bind(c, &input) {
		return
	}

	candidate, err := h.polls.CreateCandidate(c.Request.Context(), current(c), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, candidate)
}

// UpdateCandidate updates an existing candidate (ADMIN)
func (h *CandidateHandler) UpdateCandidate(c *gin.Context) {
	var input models.CandidateInput
	if !bind(c, &input) {
		return
	}

	candidate, err := h.polls.UpdateCandidate(c.Request.Context(), current(c), c.Param("id"), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// DeleteCandidate deletes a candidate; votes for it stay counted (ADMIN)
func (h *CandidateHandler) DeleteCandidate(c *gin.Context) {
	if err := h.polls.DeleteCandidate(c.Request.Context(), current(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Candidate deleted successfully"})
}

// UploadPhoto stores the multipart "photo" field as the candidate's picture (ADMIN)
func (h *CandidateHandler) UploadPhoto(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := h.polls.GetCandidate(ctx, id); err != nil {
		fail(c, err)
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		var v apperr.Validation
		v.Add("photo", "is required")
		fail(c, v.Err())
		return
	}

	f, err := file.Open()
	if err != nil {
		fail(c, errors.Wrap(err, "open upload"))
		return
	}
	defer f.Close()

	// One byte past the limit lets the uploader report the size error.
	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		fail(c, errors.Wrap(err, "read upload"))
		return
	}

	url, err := h.photos.Upload(ctx, id, data)
	if err != nil {
		fail(c, err)
		return
	}

	candidate, err := h.polls.SetPhoto(ctx, current(c), id, url)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo_url": url, "candidate": candidate})
}
