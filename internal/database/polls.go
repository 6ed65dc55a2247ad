package database

import (
	"context"
	"strings"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

func (d *Database) CreatePoll(ctx context.Context, poll *models.Poll) error {
	if err := d.db.WithContext(ctx).Create(poll).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrConflict
		}
		return translate(err, "create poll")
	}
	return nil
}

func (d *Database) UpdatePoll(ctx context.Context, poll *models.Poll) error {
	res := d.db.WithContext(ctx).
		Model(poll).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(poll)
	if res.Error != nil {
		return translate(res.Error, "update poll")
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (d *Database) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	var poll models.Poll
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&poll).Error; err != nil {
		return nil, translate(err, "get poll")
	}
	return &poll, nil
}

// ListPolls narrows by status and text in SQL; the votable window is checked
// in Go so that time comparison does not depend on the dialect.
func (d *Database) ListPolls(ctx context.Context, filter models.PollFilter) ([]models.Poll, error) {
	query := d.db.WithContext(ctx).Model(&models.Poll{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.VotableAt != nil {
		query = query.Where("status = ?", models.StatusActive)
	}

	var polls []models.Poll
	if err := query.Order("created_at DESC").Find(&polls).Error; err != nil {
		return nil, translate(err, "list polls")
	}

	out := polls[:0]
	for i := range polls {
		if filter.Match(&polls[i]) {
			out = append(out, polls[i])
		}
	}
	return out, nil
}

// DeletePoll removes the poll row only. Candidates and votes referencing it stay.
func (d *Database) DeletePoll(ctx context.Context, id string) error {
	res := d.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Poll{})
	if res.Error != nil {
		return translate(res.Error, "delete poll")
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
