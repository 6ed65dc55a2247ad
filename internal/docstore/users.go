package docstore

import (
	"context"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

type userDoc struct {
	Email        string    `firestore:"email"`
	DisplayName  string    `firestore:"display_name"`
	PasswordHash string    `firestore:"password_hash"`
	Avatar       string    `firestore:"avatar"`
	GoogleID     string    `firestore:"google_id"`
	FirebaseUID  string    `firestore:"firebase_uid"`
	AuthProvider string    `firestore:"auth_provider"`
	// Role flags are pointers so documents written without them fall back
	// to models.DefaultRole.
	IsAdmin      *bool     `firestore:"is_admin"`
	IsVoter      *bool     `firestore:"is_voter"`
	CreatedAt    time.Time `firestore:"created_at"`
	UpdatedAt    time.Time `firestore:"updated_at"`
}

type emailDoc struct {
	UserID string `firestore:"user_id"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// emailKey escapes the email so it is a valid document id.
func emailKey(email string) string {
	return url.PathEscape(normalizeEmail(email))
}

func toUserDoc(u *models.User) userDoc {
	return userDoc{
		Email:        normalizeEmail(u.Email),
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		Avatar:       u.Avatar,
		GoogleID:     u.GoogleID,
		FirebaseUID:  u.FirebaseUID,
		AuthProvider: u.AuthProvider,
		IsAdmin:      boolPtr(u.Role.IsAdmin),
		IsVoter:      boolPtr(u.Role.IsVoter),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func (d userDoc) role() models.Role {
	role := models.DefaultRole
	if d.IsAdmin != nil {
		role.IsAdmin = *d.IsAdmin
	}
	if d.IsVoter != nil {
		role.IsVoter = *d.IsVoter
	}
	return role
}

func (d userDoc) model(id string) models.User {
	return models.User{
		ID:           id,
		Email:        d.Email,
		DisplayName:  d.DisplayName,
		PasswordHash: d.PasswordHash,
		Avatar:       d.Avatar,
		GoogleID:     d.GoogleID,
		FirebaseUID:  d.FirebaseUID,
		AuthProvider: d.AuthProvider,
		Role:         d.role(),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	userRef := s.client.Collection(usersCollection).Doc(user.ID)
	emailRef := s.client.Collection(emailsCollection).Doc(emailKey(user.Email))

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(emailRef, emailDoc{UserID: user.ID}); err != nil {
			return err
		}
		return tx.Create(userRef, toUserDoc(user))
	})
	if isAlreadyExists(err) {
		return apperr.ErrConflict
	}
	return translate(err, "create user")
}

// UpdateUser moves the email reservation when the address changes.
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	userRef := s.client.Collection(usersCollection).Doc(user.ID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(userRef)
		if err != nil {
			return err
		}
		var current userDoc
		if err := snap.DataTo(&current); err != nil {
			return err
		}

		if current.Email != user.Email {
			newRef := s.client.Collection(emailsCollection).Doc(emailKey(user.Email))
			if err := tx.Create(newRef, emailDoc{UserID: user.ID}); err != nil {
				return err
			}
			oldRef := s.client.Collection(emailsCollection).Doc(emailKey(current.Email))
			if err := tx.Delete(oldRef); err != nil {
				return err
			}
		}

		doc := toUserDoc(user)
		doc.CreatedAt = current.CreatedAt
		return tx.Set(userRef, doc)
	})
	if isAlreadyExists(err) {
		return apperr.ErrConflict
	}
	return translate(err, "update user")
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	snap, err := s.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err, "get user")
	}
	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, apperr.Unavailable(err, "decode user")
	}
	u := doc.model(snap.Ref.ID)
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	snap, err := s.client.Collection(emailsCollection).Doc(emailKey(email)).Get(ctx)
	if err != nil {
		return nil, translate(err, "get user by email")
	}
	var idx emailDoc
	if err := snap.DataTo(&idx); err != nil {
		return nil, apperr.Unavailable(err, "decode email index")
	}
	return s.GetUser(ctx, idx.UserID)
}
