// Package docstore implements store.Store on Cloud Firestore.
//
// Vote documents are keyed "<poll_id>_<voter_id>" and written with Create,
// which fails with AlreadyExists for a second vote of the same voter in the
// same poll. User emails are reserved in the user_emails collection inside
// the same transaction that creates the user.
package docstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/logging"
	"github.com/emilythestrangee/ballotbox/backend/internal/store"
)

const (
	pollsCollection      = "polls"
	candidatesCollection = "candidates"
	votesCollection      = "votes"
	usersCollection      = "users"
	emailsCollection     = "user_emails"
)

type Store struct {
	client *firestore.Client
	log    *logrus.Entry
}

var _ store.Store = (*Store)(nil)

func Open(ctx context.Context, app *firebase.App, log logrus.FieldLogger) (*Store, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "connect firestore")
	}
	s := New(client, log)
	s.log.Info("firestore connected")
	return s, nil
}

func New(client *firestore.Client, log logrus.FieldLogger) *Store {
	return &Store{client: client, log: logging.Module(log, "docstore")}
}

func (s *Store) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stats := map[string]string{"backend": "firestore"}

	start := time.Now()
	iter := s.client.Collection(pollsCollection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("firestore down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["latency_ms"] = fmt.Sprintf("%d", time.Since(start).Milliseconds())
	return stats
}

func (s *Store) Close() error {
	s.log.Info("disconnected from firestore")
	return s.client.Close()
}

func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return apperr.ErrNotFound
	default:
		return apperr.Unavailable(err, op)
	}
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// collect drains iter, decoding each document with decode.
func collect(iter *firestore.DocumentIterator, decode func(*firestore.DocumentSnapshot) error) error {
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return err
		}
		if err := decode(doc); err != nil {
			return err
		}
	}
}
