package database

import (
	"context"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

func (d *Database) CreateCandidate(ctx context.Context, candidate *models.Candidate) error {
	if err := d.db.WithContext(ctx).Create(candidate).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrConflict
		}
		return translate(err, "create candidate")
	}
	return nil
}

func (d *Database) UpdateCandidate(ctx context.Context, candidate *models.Candidate) error {
	res := d.db.WithContext(ctx).
		Model(candidate).
		Select("*").
		Omit("id", "created_at").
		Updates(candidate)
	if res.Error != nil {
		return translate(res.Error, "update candidate")
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (d *Database) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&candidate).Error; err != nil {
		return nil, translate(err, "get candidate")
	}
	return &candidate, nil
}

func (d *Database) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	var candidates []models.Candidate
	if err := d.db.WithContext(ctx).Order("created_at ASC").Find(&candidates).Error; err != nil {
		return nil, translate(err, "list candidates")
	}
	return candidates, nil
}

func (d *Database) ListCandidatesByPoll(ctx context.Context, pollID string) ([]models.Candidate, error) {
	var candidates []models.Candidate
	err := d.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("created_at ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, translate(err, "list candidates by poll")
	}
	return candidates, nil
}

// DeleteCandidate leaves votes for the candidate in place.
func (d *Database) DeleteCandidate(ctx context.Context, id string) error {
	res := d.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Candidate{})
	if res.Error != nil {
		return translate(res.Error, "delete candidate")
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
