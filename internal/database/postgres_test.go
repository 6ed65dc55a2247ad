package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/config"
	"github.com/emilythestrangee/ballotbox/backend/internal/logging"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

func TestPostgresVoteIndex(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("ballotbox"),
		tcpostgres.WithUsername("ballotbox"),
		tcpostgres.WithPassword("ballotbox"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	for _, driver := range []string{"pgx", "postgres"} {
		t.Run(driver, func(t *testing.T) {
			db, err := Open(config.Config{
				DatabaseURL:    dsn,
				DBDriver:       driver,
				DBMaxOpenConns: 10,
				DBMaxIdleConns: 2,
				DBSlowQuery:    time.Second,
			}, logging.Discard())
			require.NoError(t, err)
			defer db.Close()

			assert.Equal(t, "up", db.Health(ctx)["status"])

			poll := &models.Poll{
				ID:        uuid.NewString(),
				Title:     "Board election " + driver,
				StartDate: time.Now().UTC().Add(-time.Hour),
				EndDate:   time.Now().UTC().Add(time.Hour),
				Status:    models.StatusActive,
			}
			require.NoError(t, db.CreatePoll(ctx, poll))

			require.NoError(t, db.InsertVote(ctx, newVote("u1", poll.ID, "a")))
			err = db.InsertVote(ctx, newVote("u1", poll.ID, "b"))
			assert.ErrorIs(t, err, apperr.ErrAlreadyVoted)

			tally, err := db.TallyVotes(ctx, poll.ID)
			require.NoError(t, err)
			assert.Equal(t, models.Tally{"a": 1}, tally)
		})
	}
}
