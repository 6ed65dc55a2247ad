package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/ballotbox/backend/internal/accounts"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

type AuthHandler struct {
	accounts *accounts.Service
}

func NewAuthHandler(svc *accounts.Service) *AuthHandler {
	return &AuthHandler{accounts: svc}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterRequest
	if !bind(c, &input) {
		return
	}

	res, err := h.accounts.Register(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Login handles email/password login
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.LoginRequest
	if !bind(c, &input) {
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GoogleLogin handles Google ID token sign-in
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var input models.TokenRequest
	if !bind(c, &input) {
		return
	}

	res, err := h.accounts.GoogleLogin(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// FirebaseLogin handles Firebase Auth ID token sign-in
func (h *AuthHandler) FirebaseLogin(c *gin.Context) {
	var input models.TokenRequest
	if !bind(c, &input) {
		return
	}

	res, err := h.accounts.FirebaseLogin(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetMe returns the current authenticated user
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, err := h.accounts.Me(c.Request.Context(), current(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetRole updates a user's admin/voter flags (ADMIN)
func (h *AuthHandler) SetRole(c *gin.Context) {
	var input models.RoleRequest
	if !bind(c, &input) {
		return
	}

	user, err := h.accounts.SetRole(c.Request.Context(), current(c), c.Param("id"), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
