package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/ballotbox/backend/internal/accounts"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

type UserHandler struct {
	accounts *accounts.Service
}

func NewUserHandler(svc *accounts.Service) *UserHandler {
	return &UserHandler{accounts: svc}
}

// GetUser returns any user's account (ADMIN)
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.accounts.User(c.Request.Context(), current(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile lets the current user change their display name and avatar
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var input models.ProfileRequest
	if !bind(c, &input) {
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), current(c), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
