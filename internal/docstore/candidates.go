package docstore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

type socialDoc struct {
	Facebook  string `firestore:"facebook,omitempty"`
	Twitter   string `firestore:"twitter,omitempty"`
	Instagram string `firestore:"instagram,omitempty"`
	Website   string `firestore:"website,omitempty"`
}

type candidateDoc struct {
	Name        string    `firestore:"name"`
	Biography   string    `firestore:"biography"`
	Proposals   string    `firestore:"proposals"`
	SocialLinks socialDoc `firestore:"social_links"`
	PhotoURL    string    `firestore:"photo_url"`
	PollID      string    `firestore:"poll_id"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

func toCandidateDoc(c *models.Candidate) candidateDoc {
	return candidateDoc{
		Name:        c.Name,
		Biography:   c.Biography,
		Proposals:   c.Proposals,
		SocialLinks: socialDoc(c.SocialLinks),
		PhotoURL:    c.PhotoURL,
		PollID:      c.PollID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (d candidateDoc) model(id string) models.Candidate {
	return models.Candidate{
		ID:          id,
		Name:        d.Name,
		Biography:   d.Biography,
		Proposals:   d.Proposals,
		SocialLinks: models.SocialLinks(d.SocialLinks),
		PhotoURL:    d.PhotoURL,
		PollID:      d.PollID,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func (s *Store) CreateCandidate(ctx context.Context, candidate *models.Candidate) error {
	_, err := s.client.Collection(candidatesCollection).Doc(candidate.ID).Create(ctx, toCandidateDoc(candidate))
	if isAlreadyExists(err) {
		return apperr.ErrConflict
	}
	return translate(err, "create candidate")
}

func (s *Store) UpdateCandidate(ctx context.Context, candidate *models.Candidate) error {
	doc := toCandidateDoc(candidate)
	_, err := s.client.Collection(candidatesCollection).Doc(candidate.ID).Update(ctx, []firestore.Update{
		{Path: "name", Value: doc.Name},
		{Path: "biography", Value: doc.Biography},
		{Path: "proposals", Value: doc.Proposals},
		{Path: "social_links", Value: doc.SocialLinks},
		{Path: "photo_url", Value: doc.PhotoURL},
		{Path: "poll_id", Value: doc.PollID},
		{Path: "updated_at", Value: doc.UpdatedAt},
	})
	return translate(err, "update candidate")
}

func (s *Store) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	snap, err := s.client.Collection(candidatesCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err, "get candidate")
	}
	var doc candidateDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, apperr.Unavailable(err, "decode candidate")
	}
	c := doc.model(snap.Ref.ID)
	return &c, nil
}

func (s *Store) listCandidates(ctx context.Context, query firestore.Query, op string) ([]models.Candidate, error) {
	var candidates []models.Candidate
	err := collect(query.Documents(ctx), func(snap *firestore.DocumentSnapshot) error {
		var doc candidateDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		candidates = append(candidates, doc.model(snap.Ref.ID))
		return nil
	})
	if err != nil {
		return nil, translate(err, op)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return candidates, nil
}

func (s *Store) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	return s.listCandidates(ctx, s.client.Collection(candidatesCollection).Query, "list candidates")
}

func (s *Store) ListCandidatesByPoll(ctx context.Context, pollID string) ([]models.Candidate, error) {
	query := s.client.Collection(candidatesCollection).Where("poll_id", "==", pollID)
	return s.listCandidates(ctx, query, "list candidates by poll")
}

func (s *Store) DeleteCandidate(ctx context.Context, id string) error {
	_, err := s.client.Collection(candidatesCollection).Doc(id).Delete(ctx, firestore.Exists)
	return translate(err, "delete candidate")
}
