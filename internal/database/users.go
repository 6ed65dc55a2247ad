package database

import (
	"context"
	"strings"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

func (d *Database) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := d.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrConflict
		}
		return translate(err, "create user")
	}
	return nil
}

func (d *Database) UpdateUser(ctx context.Context, user *models.User) error {
	res := d.db.WithContext(ctx).
		Model(user).
		Select("*").
		Omit("id", "created_at").
		Updates(user)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return apperr.ErrConflict
		}
		return translate(res.Error, "update user")
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (d *Database) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return &user, nil
}

func (d *Database) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, translate(err, "get user by email")
	}
	return &user, nil
}
