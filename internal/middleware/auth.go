package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
	"github.com/emilythestrangee/ballotbox/backend/internal/session"
)

// Users resolves the stored role for a token subject.
type Users interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type TokenParser interface {
	Parse(raw string) (*session.Claims, error)
}

// Abort writes the JSON error body used across the API and stops the chain.
// Server-side failures get a generic message; the cause stays in c.Errors for
// the request log.
func Abort(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	switch {
	case status == http.StatusServiceUnavailable:
		msg = apperr.ErrBackendUnavailable.Error()
	case status >= http.StatusInternalServerError:
		msg = "internal server error"
	}

	body := gin.H{"error": msg}
	if fields := apperr.FieldErrors(err); fields != nil {
		body["fields"] = fields
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// Authenticate turns a bearer token into a session on the request context.
// Requests without an Authorization header continue anonymously; a header
// that doesn't verify is rejected.
func Authenticate(tokens TokenParser, users Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			Abort(c, apperr.ErrUnauthenticated)
			return
		}

		claims, err := tokens.Parse(header)
		if err != nil {
			Abort(c, err)
			return
		}

		// The role is read fresh so changes apply without a new token.
		user, err := users.GetUser(c.Request.Context(), claims.Subject)
		if err != nil {
			if apperr.IsNotFound(err) {
				err = apperr.ErrUnauthenticated
			}
			Abort(c, err)
			return
		}

		s := &session.Session{UserID: user.ID, Email: user.Email, Role: user.Role}
		c.Request = c.Request.WithContext(session.NewContext(c.Request.Context(), s))
		c.Set("user_id", user.ID)
		c.Next()
	}
}

func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if session.FromContext(c.Request.Context()) == nil {
			Abort(c, apperr.ErrUnauthenticated)
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := session.FromContext(c.Request.Context())
		switch {
		case s == nil:
			Abort(c, apperr.ErrUnauthenticated)
		case !s.IsAdmin():
			Abort(c, apperr.ErrForbidden)
		default:
			c.Next()
		}
	}
}
