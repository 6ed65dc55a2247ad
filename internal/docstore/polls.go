package docstore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

type pollDoc struct {
	Title        string    `firestore:"title"`
	Description  string    `firestore:"description"`
	StartDate    time.Time `firestore:"start_date"`
	EndDate      time.Time `firestore:"end_date"`
	Status       string    `firestore:"status"`
	CandidateIDs []string  `firestore:"candidate_ids"`
	CreatedBy    string    `firestore:"created_by"`
	CreatedAt    time.Time `firestore:"created_at"`
	UpdatedAt    time.Time `firestore:"updated_at"`
}

func toPollDoc(p *models.Poll) pollDoc {
	ids := p.CandidateIDs
	if ids == nil {
		ids = []string{}
	}
	return pollDoc{
		Title:        p.Title,
		Description:  p.Description,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		Status:       string(p.Status),
		CandidateIDs: ids,
		CreatedBy:    p.CreatedBy,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (d pollDoc) model(id string) models.Poll {
	return models.Poll{
		ID:           id,
		Title:        d.Title,
		Description:  d.Description,
		StartDate:    d.StartDate.UTC(),
		EndDate:      d.EndDate.UTC(),
		Status:       models.PollStatus(d.Status),
		CandidateIDs: d.CandidateIDs,
		CreatedBy:    d.CreatedBy,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func (s *Store) CreatePoll(ctx context.Context, poll *models.Poll) error {
	_, err := s.client.Collection(pollsCollection).Doc(poll.ID).Create(ctx, toPollDoc(poll))
	if isAlreadyExists(err) {
		return apperr.ErrConflict
	}
	return translate(err, "create poll")
}

// UpdatePoll fails with NotFound instead of creating a missing document.
func (s *Store) UpdatePoll(ctx context.Context, poll *models.Poll) error {
	doc := toPollDoc(poll)
	_, err := s.client.Collection(pollsCollection).Doc(poll.ID).Update(ctx, []firestore.Update{
		{Path: "title", Value: doc.Title},
		{Path: "description", Value: doc.Description},
		{Path: "start_date", Value: doc.StartDate},
		{Path: "end_date", Value: doc.EndDate},
		{Path: "status", Value: doc.Status},
		{Path: "candidate_ids", Value: doc.CandidateIDs},
		{Path: "updated_at", Value: doc.UpdatedAt},
	})
	return translate(err, "update poll")
}

func (s *Store) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	snap, err := s.client.Collection(pollsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err, "get poll")
	}
	var doc pollDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, apperr.Unavailable(err, "decode poll")
	}
	p := doc.model(snap.Ref.ID)
	return &p, nil
}

// ListPolls pushes the status equality into the query and applies the rest
// of the filter in memory, which avoids composite indexes.
func (s *Store) ListPolls(ctx context.Context, filter models.PollFilter) ([]models.Poll, error) {
	query := s.client.Collection(pollsCollection).Query
	switch {
	case filter.Status != "":
		query = query.Where("status", "==", string(filter.Status))
	case filter.VotableAt != nil:
		query = query.Where("status", "==", string(models.StatusActive))
	}

	var polls []models.Poll
	err := collect(query.Documents(ctx), func(snap *firestore.DocumentSnapshot) error {
		var doc pollDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		p := doc.model(snap.Ref.ID)
		if filter.Match(&p) {
			polls = append(polls, p)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "list polls")
	}

	sort.Slice(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
	return polls, nil
}

func (s *Store) DeletePoll(ctx context.Context, id string) error {
	_, err := s.client.Collection(pollsCollection).Doc(id).Delete(ctx, firestore.Exists)
	return translate(err, "delete poll")
}
