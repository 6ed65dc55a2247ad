// Package accounts registers users, signs them in and manages their roles.
package accounts

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/logging"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
	"github.com/emilythestrangee/ballotbox/backend/internal/session"
	"github.com/emilythestrangee/ballotbox/backend/internal/store"
)

var errInvalidCredentials = errors.Wrap(apperr.ErrUnauthenticated, "invalid credentials")

type Service struct {
	users    store.UserRepository
	issuer   *session.Issuer
	google   Verifier
	firebase Verifier
	isAdmin  func(email string) bool
	now      func() time.Time
	log      *logrus.Entry
}

type Options struct {
	Google   Verifier
	Firebase Verifier
	// IsAdminEmail grants the admin flag to new accounts with a matching email.
	IsAdminEmail func(email string) bool
}

func NewService(users store.UserRepository, issuer *session.Issuer, opts Options, log logrus.FieldLogger) *Service {
	isAdmin := opts.IsAdminEmail
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &Service{
		users:    users,
		issuer:   issuer,
		google:   opts.Google,
		firebase: opts.Firebase,
		isAdmin:  isAdmin,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logging.Module(log, "accounts"),
	}
}

func (s *Service) roleFor(email string) models.Role {
	role := models.DefaultRole
	role.IsAdmin = s.isAdmin(email)
	return role
}

func (s *Service) respond(user *models.User, msg string) (*models.AuthResponse, error) {
	token, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: *user, Message: msg}, nil
}

func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var v apperr.Validation
	v.Require("email", email)
	if len(req.Password) < 6 {
		v.Add("password", "must be at least 6 characters")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: string(hash),
		Avatar:       req.Avatar,
		AuthProvider: models.ProviderEmail,
		Role:         s.roleFor(email),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.DisplayName == "" {
		user.DisplayName = displayNameFromEmail(email)
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, errors.Wrap(apperr.ErrConflict, "email already registered")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "admin": user.Role.IsAdmin}).Info("user registered")
	return s.respond(user, "User registered successfully")
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	return s.respond(user, "Login successful")
}

func (s *Service) GoogleLogin(ctx context.Context, req models.TokenRequest) (*models.AuthResponse, error) {
	return s.external(ctx, s.google, req)
}

func (s *Service) FirebaseLogin(ctx context.Context, req models.TokenRequest) (*models.AuthResponse, error) {
	return s.external(ctx, s.firebase, req)
}

// external finds or creates the user an identity provider vouches for.
func (s *Service) external(ctx context.Context, verifier Verifier, req models.TokenRequest) (*models.AuthResponse, error) {
	if verifier == nil {
		return nil, errors.Wrap(apperr.ErrNotFound, "sign-in provider not configured")
	}
	id, err := verifier.Verify(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, id.Email)
	switch {
	case err == nil:
		if linkIdentity(user, id, req.Avatar) {
			user.UpdatedAt = s.now()
			if err := s.users.UpdateUser(ctx, user); err != nil {
				return nil, err
			}
		}
		return s.respond(user, "Login successful")
	case !apperr.IsNotFound(err):
		return nil, err
	}

	now := s.now()
	user = &models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(id.Email)),
		DisplayName:  firstNonEmpty(req.DisplayName, id.Name, displayNameFromEmail(id.Email)),
		Avatar:       firstNonEmpty(req.Avatar, id.Picture),
		AuthProvider: id.Provider,
		Role:         s.roleFor(id.Email),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	linkIdentity(user, id, "")

	if err := s.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, apperr.ErrConflict) {
			return nil, err
		}
		// Lost a race with a concurrent first sign-in for the same email.
		existing, getErr := s.users.GetUserByEmail(ctx, id.Email)
		if getErr != nil {
			return nil, getErr
		}
		return s.respond(existing, "Login successful")
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "provider": id.Provider}).Info("user created from external sign-in")
	return s.respond(user, "User registered successfully")
}

// linkIdentity stores the provider id and a missing avatar; it reports
// whether anything changed.
func linkIdentity(user *models.User, id *Identity, avatar string) bool {
	changed := false
	switch id.Provider {
	case models.ProviderGoogle:
		if user.GoogleID == "" {
			user.GoogleID = id.Subject
			changed = true
		}
	case models.ProviderFirebase:
		if user.FirebaseUID == "" {
			user.FirebaseUID = id.Subject
			changed = true
		}
	}
	if user.Avatar == "" {
		if a := firstNonEmpty(avatar, id.Picture); a != "" {
			user.Avatar = a
			changed = true
		}
	}
	return changed
}

func (s *Service) Me(ctx context.Context, sess *session.Session) (*models.User, error) {
	if sess == nil {
		return nil, apperr.ErrUnauthenticated
	}
	return s.users.GetUser(ctx, sess.UserID)
}

// User looks up any account. Admin only.
func (s *Service) User(ctx context.Context, sess *session.Session, userID string) (*models.User, error) {
	switch {
	case sess == nil:
		return nil, apperr.ErrUnauthenticated
	case !sess.IsAdmin():
		return nil, apperr.ErrForbidden
	}
	return s.users.GetUser(ctx, userID)
}

// UpdateProfile changes the caller's display name and avatar.
func (s *Service) UpdateProfile(ctx context.Context, sess *session.Session, req models.ProfileRequest) (*models.User, error) {
	if sess == nil {
		return nil, apperr.ErrUnauthenticated
	}

	var v apperr.Validation
	if req.DisplayName != nil && strings.TrimSpace(*req.DisplayName) == "" {
		v.Add("display_name", "display name cannot be empty")
	}
	if req.Avatar != nil && *req.Avatar != "" && !isHTTPURL(*req.Avatar) {
		v.Add("avatar", "must be an http or https URL")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Avatar != nil {
		user.Avatar = strings.TrimSpace(*req.Avatar)
	}
	user.UpdatedAt = s.now()

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetRole changes a user's flags. Admins cannot revoke their own admin flag.
func (s *Service) SetRole(ctx context.Context, sess *session.Session, userID string, req models.RoleRequest) (*models.User, error) {
	switch {
	case sess == nil:
		return nil, apperr.ErrUnauthenticated
	case !sess.IsAdmin():
		return nil, apperr.ErrForbidden
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.IsAdmin != nil {
		if userID == sess.UserID && !*req.IsAdmin {
			var v apperr.Validation
			v.Add("is_admin", "cannot remove your own admin role")
			return nil, v.Err()
		}
		user.Role.IsAdmin = *req.IsAdmin
	}
	if req.IsVoter != nil {
		user.Role.IsVoter = *req.IsVoter
	}
	user.UpdatedAt = s.now()

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"is_admin": user.Role.IsAdmin,
		"is_voter": user.Role.IsVoter,
		"by":       sess.UserID,
	}).Info("role updated")
	return user, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func displayNameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
